package logic

import "fmt"

const (
	msPerSecond = 1000
	secondsDay  = 24 * 60 * 60
	msPerDay    = secondsDay * msPerSecond
)

// ClockReading is the derived time of day.
type ClockReading struct {
	Hours   int
	Minutes int
	Seconds int
}

// TimeOfDay drops the seconds.
func (r ClockReading) TimeOfDay() TimeOfDay {
	return TimeOfDay{Hour: r.Hours, Minute: r.Minutes}
}

// MinuteOfDay returns the minute index in [0,1440).
func (r ClockReading) MinuteOfDay() int {
	return r.Hours*60 + r.Minutes
}

func (r ClockReading) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", r.Hours, r.Minutes, r.Seconds)
}

// SoftClock is a calendar-free 24h clock driven by the tick counter.
// It starts at 00:00:00 and only changes through SetTime.
type SoftClock struct {
	baseTick   Ticks
	baseSecond uint32 // second of day at baseTick
	elapsed    Ticks
}

// NewSoftClock returns a clock reading 00:00:00 at start.
func NewSoftClock(start Ticks) *SoftClock {
	return &SoftClock{baseTick: start, elapsed: start}
}

// SetTime sets the clock to h:m:00 as of now.
func (c *SoftClock) SetTime(t TimeOfDay, now Ticks) error {
	if !t.Valid() {
		return ErrInvalidTime
	}
	c.baseTick = now
	c.baseSecond = uint32(t.Hour*3600 + t.Minute*60)
	c.elapsed = now
	return nil
}

// Update records now as the current tick. The base is advanced whole days
// at a time so the tick delta never approaches the uint32 wrap.
func (c *SoftClock) Update(now Ticks) {
	c.elapsed = now
	for now.Since(c.baseTick) >= msPerDay {
		c.baseTick += msPerDay
	}
}

// Elapsed returns the tick recorded by the last Update or SetTime.
func (c *SoftClock) Elapsed() Ticks {
	return c.elapsed
}

// Reading derives h:m:s from the last recorded tick.
func (c *SoftClock) Reading() ClockReading {
	sec := c.secondOfDay()
	return ClockReading{
		Hours:   int(sec / 3600),
		Minutes: int(sec/60) % 60,
		Seconds: int(sec % 60),
	}
}

// Millis returns milliseconds since soft-clock midnight. Records are
// stamped with this value.
func (c *SoftClock) Millis() uint32 {
	ms := uint64(c.baseSecond)*msPerSecond + uint64(c.elapsed.Since(c.baseTick))
	return uint32(ms % msPerDay)
}

func (c *SoftClock) secondOfDay() uint32 {
	return (c.baseSecond + c.elapsed.Since(c.baseTick)/msPerSecond) % secondsDay
}
