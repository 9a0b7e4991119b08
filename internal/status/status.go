// Package status provides a thread-safe status tracker for the vitals-monitor daemon.
// The device loop writes one snapshot per pass; HTTP handlers and MQTT
// lifecycle events read it.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/vitals-monitor/internal/logic"
	"github.com/sweeney/vitals-monitor/internal/store"
)

// NetworkInfo contains network state exported by the host.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	PassMs      int64
	HeartbeatMs int64
	Broker      string
	HTTPAddr    string
	Store       string
	DataPath    string
}

// Alarm is the alarm state as shown to clients.
type Alarm struct {
	State     logic.AlarmState
	Target    *logic.TimeOfDay
	Triggered bool
	BlinkOn   bool
}

// Session describes the logged-in account.
type Session struct {
	Index    int
	Username string
	IsAdmin  bool
	Bedtime  *logic.TimeOfDay
	Wakeup   *logic.TimeOfDay
	Records  []store.PulseRecord
}

// AccountSummary is one row of the admin account list.
type AccountSummary struct {
	Index       int
	Username    string
	IsAdmin     bool
	RecordCount int
}

// Device is the core state published by the device loop each pass.
// Update takes ownership of the slices it carries.
type Device struct {
	Clock        logic.ClockReading
	Ready        bool // sample source opened
	Present      bool
	SensorActive bool
	BeatDetected bool
	Vitals       logic.Vitals
	FillIndex    int
	Alarm        Alarm
	Session      *Session
	Accounts     []AccountSummary
	Screen       []string
	Degraded     bool
	Passes       uint64
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type and stays valid after the lock is released.
type Snapshot struct {
	Device
	BootID        string
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Health returns the warnings for the live vitals.
func (s Snapshot) Health() []logic.HealthWarning {
	return logic.AssessHealth(s.Vitals)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, bootID string, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			BootID:    bootID,
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update replaces the device state. Called by the device loop on every pass.
func (t *Tracker) Update(d Device) {
	t.mu.Lock()
	t.snap.Device = d
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
