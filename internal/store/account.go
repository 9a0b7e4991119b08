// Package store keeps the device's user accounts and their bounded vitals
// history, persisted through a pluggable Codec.
package store

import (
	"errors"

	"github.com/sweeney/vitals-monitor/internal/logic"
)

// Capacity limits and the built-in administrator.
const (
	MaxAccounts = 10
	MaxRecords  = 20

	AdminUsername = "admin"
	AdminPassword = "admin"
)

// Rejected-input errors.
var (
	ErrDuplicateUsername  = errors.New("username already exists")
	ErrCapacityExceeded   = errors.New("account capacity exceeded")
	ErrInvalidTarget      = errors.New("invalid account target")
	ErrInvalidCredentials = errors.New("username and password must not be empty")
)

// PulseRecord is one stored reading.
type PulseRecord struct {
	Timestamp uint32 // soft-clock milliseconds since midnight
	PulseBPM  uint16
	SpO2      uint8
}

// Vitals returns the reading without its timestamp.
func (r PulseRecord) Vitals() logic.Vitals {
	return logic.Vitals{PulseBPM: r.PulseBPM, SpO2: r.SpO2}
}

// Account is a device user. Passwords are stored and compared in plain
// text; the appliance has no credential protection.
type Account struct {
	Username string
	Password string
	IsAdmin  bool
	Bedtime  *logic.TimeOfDay
	Wakeup   *logic.TimeOfDay
	Records  []PulseRecord // oldest first, at most MaxRecords
}

// SleepWindow returns the account's bedtime and wake-up settings.
func (a Account) SleepWindow() logic.SleepWindow {
	return logic.SleepWindow{Bedtime: a.Bedtime, Wakeup: a.Wakeup}
}

func (a Account) clone() Account {
	c := a
	if a.Bedtime != nil {
		b := *a.Bedtime
		c.Bedtime = &b
	}
	if a.Wakeup != nil {
		w := *a.Wakeup
		c.Wakeup = &w
	}
	c.Records = append([]PulseRecord(nil), a.Records...)
	return c
}

func cloneAll(in []Account) []Account {
	out := make([]Account, len(in))
	for i, a := range in {
		out[i] = a.clone()
	}
	return out
}
