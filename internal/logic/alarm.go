package logic

// AlarmState is the alarm state machine position.
type AlarmState string

const (
	AlarmDisabled  AlarmState = "DISABLED"
	AlarmArmed     AlarmState = "ARMED"
	AlarmTriggered AlarmState = "TRIGGERED"
)

const blinkPeriodMs = 500

// Alarm is a one-shot alarm clock.
//
// Disabled -> Armed on Set. Armed -> Triggered the first time Check sees
// the clock inside the armed minute. Triggered persists until Clear, which
// always returns to Disabled and forgets the target. The alarm fires at
// most once per clock minute, even if it is cleared and re-armed within it.
type Alarm struct {
	state  AlarmState
	target TimeOfDay

	fired       bool
	firedMinute int
	blinkOn     bool
	blink       Gate
}

// NewAlarm returns a disabled alarm.
func NewAlarm() *Alarm {
	return &Alarm{state: AlarmDisabled, blink: Gate{Period: blinkPeriodMs}}
}

// Set arms the alarm for t, replacing any previous target and dismissing a
// pending trigger.
func (a *Alarm) Set(t TimeOfDay) error {
	if !t.Valid() {
		return ErrInvalidTime
	}
	a.state = AlarmArmed
	a.target = t
	a.blinkOn = false
	return nil
}

// Clear dismisses the alarm and forgets its target.
func (a *Alarm) Clear() {
	a.state = AlarmDisabled
	a.target = TimeOfDay{}
	a.blinkOn = false
}

// Check fires an armed alarm whose minute matches r and reports whether it
// fired on this call. Check must be polled in every state so the last
// fired minute expires once the clock leaves it.
func (a *Alarm) Check(r ClockReading, now Ticks) bool {
	minute := r.MinuteOfDay()
	if a.fired && minute != a.firedMinute {
		a.fired = false
	}
	if a.state != AlarmArmed || a.fired {
		return false
	}
	if minute != a.target.MinuteOfDay() {
		return false
	}
	a.state = AlarmTriggered
	a.fired = true
	a.firedMinute = minute
	a.blinkOn = true
	a.blink.Reset(now)
	return true
}

// Blink toggles the blink phase every 500ms while triggered.
func (a *Alarm) Blink(now Ticks) bool {
	if a.state != AlarmTriggered {
		return false
	}
	if a.blink.Ready(now) {
		a.blinkOn = !a.blinkOn
	}
	return a.blinkOn
}

// State returns the current state.
func (a *Alarm) State() AlarmState { return a.state }

// Enabled reports whether a target is set.
func (a *Alarm) Enabled() bool { return a.state != AlarmDisabled }

// Triggered reports whether the alarm is ringing.
func (a *Alarm) Triggered() bool { return a.state == AlarmTriggered }

// BlinkOn returns the blink phase.
func (a *Alarm) BlinkOn() bool { return a.blinkOn }

// Target returns the armed time, if any.
func (a *Alarm) Target() (TimeOfDay, bool) {
	if a.state == AlarmDisabled {
		return TimeOfDay{}, false
	}
	return a.target, true
}
