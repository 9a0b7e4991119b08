// Package logic contains the pure state machines of the vitals monitor:
// the soft clock, signal acquisition, alarm, notifications and screen
// composition. This package has NO external dependencies (no I2C, GPIO,
// MQTT, OS, or time.Sleep). Time is always injected as a Ticks value.
package logic

import (
	"errors"
	"fmt"
)

// Ticks is a free-running millisecond counter. It wraps at 2^32;
// differences computed with Since stay correct across the wrap.
type Ticks uint32

// Since returns the milliseconds elapsed from earlier to t.
func (t Ticks) Since(earlier Ticks) uint32 {
	return uint32(t - earlier)
}

// ErrInvalidTime is returned for hour/minute pairs outside a 24h day.
var ErrInvalidTime = errors.New("invalid time of day")

// TimeOfDay is an hour:minute pair on a 24h dial.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// NewTimeOfDay validates h and m.
func NewTimeOfDay(h, m int) (TimeOfDay, error) {
	t := TimeOfDay{Hour: h, Minute: m}
	if !t.Valid() {
		return TimeOfDay{}, fmt.Errorf("%w: %d:%d", ErrInvalidTime, h, m)
	}
	return t, nil
}

// Valid reports whether the hour is in [0,24) and the minute in [0,60).
func (t TimeOfDay) Valid() bool {
	return t.Hour >= 0 && t.Hour < 24 && t.Minute >= 0 && t.Minute < 60
}

// MinuteOfDay returns the minute index in [0,1440).
func (t TimeOfDay) MinuteOfDay() int {
	return t.Hour*60 + t.Minute
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Vitals is the latest derived reading. Zero values mean "no valid reading".
type Vitals struct {
	PulseBPM uint16
	SpO2     uint8
}

// Valid reports whether both readings are present.
func (v Vitals) Valid() bool {
	return v.PulseBPM > 0 && v.SpO2 > 0
}
