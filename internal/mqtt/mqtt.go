// Package mqtt provides MQTT telemetry publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"
)

// Topics for vitals telemetry.
const (
	// TopicRecords carries every stored vitals record.
	TopicRecords = "health/monitor/vitals/records"

	// TopicEvents carries alarm, session and notification events.
	TopicEvents = "health/monitor/vitals/events"

	// TopicSystem carries lifecycle events (STARTUP, HEARTBEAT, SHUTDOWN).
	TopicSystem = "health/monitor/vitals/system"
)

// Device event types.
const (
	EventAlarmSet       = "ALARM_SET"
	EventAlarmTriggered = "ALARM_TRIGGERED"
	EventAlarmCleared   = "ALARM_CLEARED"
	EventLogin          = "LOGIN"
	EventLogout         = "LOGOUT"
	EventNotification   = "NOTIFICATION"
)

// Publisher publishes telemetry to MQTT. Implementations must not block
// the caller on the network.
type Publisher interface {
	// PublishRecord sends a stored vitals record.
	PublishRecord(rec RecordEvent) error

	// PublishEvent sends an alarm, session or notification event.
	PublishEvent(event DeviceEvent) error

	// PublishSystem sends a system lifecycle event.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// RecordEvent is one vitals record stored for an account.
type RecordEvent struct {
	Timestamp time.Time
	Username  string
	ClockMs   uint32 // soft-clock timestamp stored with the record
	PulseBPM  uint16
	SpO2      uint8
	Warnings  []string
}

// DeviceEvent is an alarm, session or notification event.
type DeviceEvent struct {
	Timestamp time.Time
	Type      string
	Username  string
	Lines     []string
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	BootID     string
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// RecordPayload is the MQTT message payload for a vitals record.
type RecordPayload struct {
	Vitals RecordPayloadInner `json:"vitals"`
}

// RecordPayloadInner contains the record details.
type RecordPayloadInner struct {
	Timestamp string   `json:"timestamp"`
	User      string   `json:"user"`
	ClockMs   uint32   `json:"clock_ms"`
	PulseBPM  uint16   `json:"pulse_bpm"`
	SpO2      uint8    `json:"spo2"`
	Warnings  []string `json:"warnings,omitempty"`
}

// FormatRecordPayload creates the JSON payload for a vitals record.
func FormatRecordPayload(rec RecordEvent) ([]byte, error) {
	return json.Marshal(RecordPayload{
		Vitals: RecordPayloadInner{
			Timestamp: rec.Timestamp.UTC().Format(time.RFC3339),
			User:      rec.Username,
			ClockMs:   rec.ClockMs,
			PulseBPM:  rec.PulseBPM,
			SpO2:      rec.SpO2,
			Warnings:  rec.Warnings,
		},
	})
}

// EventPayload is the MQTT message payload for a device event.
type EventPayload struct {
	Event EventPayloadInner `json:"event"`
}

// EventPayloadInner contains the event details.
type EventPayloadInner struct {
	Timestamp string   `json:"timestamp"`
	Type      string   `json:"type"`
	User      string   `json:"user,omitempty"`
	Lines     []string `json:"lines,omitempty"`
}

// FormatEventPayload creates the JSON payload for a device event.
func FormatEventPayload(event DeviceEvent) ([]byte, error) {
	return json.Marshal(EventPayload{
		Event: EventPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Type:      event.Type,
			User:      event.Username,
			Lines:     event.Lines,
		},
	})
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
	BootID    string `json:"boot_id,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
			BootID:    event.BootID,
		},
	}
	return json.Marshal(payload)
}

// NopPublisher discards everything. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishRecord(RecordEvent) error { return nil }
func (NopPublisher) PublishEvent(DeviceEvent) error  { return nil }
func (NopPublisher) PublishSystem(SystemEvent) error { return nil }
func (NopPublisher) Close() error                    { return nil }
func (NopPublisher) IsConnected() bool               { return false }
