package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/vitals-monitor/internal/logic"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	BootID        string       `json:"boot_id,omitempty"`
	Ready         bool         `json:"ready"`
	Clock         string       `json:"clock"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	Sensor        SensorJSON   `json:"sensor"`
	Alarm         AlarmJSON    `json:"alarm"`
	User          string       `json:"user,omitempty"`
	Accounts      int          `json:"accounts"`
	Degraded      bool         `json:"storage_degraded"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// SensorJSON reports acquisition state.
type SensorJSON struct {
	FingerPresent bool     `json:"finger_present"`
	Active        bool     `json:"active"`
	BeatDetected  bool     `json:"beat_detected"`
	PulseBPM      uint16   `json:"pulse_bpm"`
	SpO2          uint8    `json:"spo2"`
	Warnings      []string `json:"warnings,omitempty"`
}

// AlarmJSON reports alarm state.
type AlarmJSON struct {
	State  string `json:"state"`
	Target string `json:"target,omitempty"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PassMs      int64  `json:"pass_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Broker      string `json:"broker"`
	HTTPAddr    string `json:"http_addr"`
	Store       string `json:"store"`
}

func buildInner(snap Snapshot) StatusInner {
	state := string(snap.Alarm.State)
	if state == "" {
		state = string(logic.AlarmDisabled)
	}
	alarm := AlarmJSON{State: state}
	if snap.Alarm.Target != nil {
		alarm.Target = snap.Alarm.Target.String()
	}

	var warnings []string
	for _, w := range snap.Health() {
		warnings = append(warnings, string(w.Code))
	}

	inner := StatusInner{
		BootID:        snap.BootID,
		Ready:         snap.Ready,
		Clock:         snap.Clock.String(),
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		Sensor: SensorJSON{
			FingerPresent: snap.Present,
			Active:        snap.SensorActive,
			BeatDetected:  snap.BeatDetected,
			PulseBPM:      snap.Vitals.PulseBPM,
			SpO2:          snap.Vitals.SpO2,
			Warnings:      warnings,
		},
		Alarm:    alarm,
		Accounts: len(snap.Accounts),
		Degraded: snap.Degraded,
		MQTT:     MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Config: ConfigJSON{
			PassMs:      snap.Config.PassMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			HTTPAddr:    snap.Config.HTTPAddr,
			Store:       snap.Config.Store,
		},
	}
	if snap.Session != nil {
		inner.User = snap.Session.Username
	}
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
