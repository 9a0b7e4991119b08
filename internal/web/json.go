package web

import (
	"encoding/json"

	"github.com/sweeney/vitals-monitor/internal/logic"
	"github.com/sweeney/vitals-monitor/internal/status"
)

const notSet = "Not set"

// DataJSON is the live reading polled by the status page. Key names
// follow the appliance's original /data endpoint.
type DataJSON struct {
	Time           string   `json:"time"`
	Pulse          uint16   `json:"pulse"`
	SpO2           uint8    `json:"spo2"`
	FingerPresent  bool     `json:"finger_present"`
	SensorActive   bool     `json:"sensor_active"`
	SensorReady    bool     `json:"sensor_ready"`
	BeatDetected   bool     `json:"beat_detected"`
	AlarmEnabled   bool     `json:"alarmEnabled"`
	AlarmTriggered bool     `json:"alarmTriggered"`
	AlarmTime      string   `json:"alarmTime"`
	Username       string   `json:"username"`
	IsAdmin        bool     `json:"isAdmin"`
	Bedtime        string   `json:"bedtime"`
	Wakeup         string   `json:"wakeup"`
	Warnings       []string `json:"warnings,omitempty"`
	Screen         []string `json:"screen"`
}

func formatData(snap status.Snapshot) []byte {
	d := DataJSON{
		Time:           snap.Clock.String(),
		Pulse:          snap.Vitals.PulseBPM,
		SpO2:           snap.Vitals.SpO2,
		FingerPresent:  snap.Present,
		SensorActive:   snap.SensorActive,
		SensorReady:    snap.Ready,
		BeatDetected:   snap.BeatDetected,
		AlarmEnabled:   snap.Alarm.Target != nil,
		AlarmTriggered: snap.Alarm.Triggered,
		AlarmTime:      timeOrEmpty(snap.Alarm.Target),
		Bedtime:        notSet,
		Wakeup:         notSet,
		Screen:         snap.Screen,
	}
	if d.Screen == nil {
		d.Screen = []string{}
	}
	if snap.Session != nil {
		d.Username = snap.Session.Username
		d.IsAdmin = snap.Session.IsAdmin
		if snap.Session.Bedtime != nil {
			d.Bedtime = snap.Session.Bedtime.String()
		}
		if snap.Session.Wakeup != nil {
			d.Wakeup = snap.Session.Wakeup.String()
		}
	}
	for _, w := range snap.Health() {
		d.Warnings = append(d.Warnings, w.Message)
	}

	data, _ := json.Marshal(d)
	return data
}

func timeOrEmpty(t *logic.TimeOfDay) string {
	if t == nil {
		return ""
	}
	return t.String()
}
