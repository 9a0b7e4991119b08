package device

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/sweeney/vitals-monitor/internal/logic"
	"github.com/sweeney/vitals-monitor/internal/mqtt"
)

// Command errors. Store and logic errors (logic.ErrInvalidTime,
// store.ErrDuplicateUsername, ...) are returned wrapped, never replaced.
var (
	ErrNoSession      = errors.New("no active session")
	ErrNotPermitted   = errors.New("administrator session required")
	ErrBadCredentials = errors.New("invalid username or password")
	ErrUnknownCommand = errors.New("unknown command")
)

// Command is a request from a transport. Each maps to one core operation.
type Command interface {
	command()
}

// SetTime sets the soft clock to Hour:Minute:00.
type SetTime struct{ Hour, Minute int }

// SetAlarm arms the alarm.
type SetAlarm struct{ Hour, Minute int }

// ClearAlarm disarms the alarm and dismisses a ringing one.
type ClearAlarm struct{}

// Login starts a session.
type Login struct{ Username, Password string }

// Register creates an account and logs into it.
type Register struct{ Username, Password string }

// Logout ends the session, resets vitals and clears the alarm.
type Logout struct{}

// SetSleepWindow updates the session account's bedtime and wake-up
// times. A nil field leaves that time unchanged.
type SetSleepWindow struct {
	Bedtime *logic.TimeOfDay
	Wakeup  *logic.TimeOfDay
}

// DeleteAccount removes an account. Requires an administrator session.
type DeleteAccount struct{ Index int }

func (SetTime) command()        {}
func (SetAlarm) command()       {}
func (ClearAlarm) command()     {}
func (Login) command()          {}
func (Register) command()       {}
func (Logout) command()         {}
func (SetSleepWindow) command() {}
func (DeleteAccount) command()  {}

type request struct {
	cmd   Command
	reply chan error
}

// Invoke queues cmd for the loop goroutine and waits for its result.
// It may be called from any goroutine.
func (d *Device) Invoke(ctx context.Context, cmd Command) error {
	req := request{cmd: cmd, reply: make(chan error, 1)}
	select {
	case d.commands <- req:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Execute applies cmd immediately. It must only be called on the loop
// goroutine; other goroutines use Invoke.
func (d *Device) Execute(cmd Command, now logic.Ticks) error {
	err := d.execute(cmd, now)
	if err != nil {
		log.Printf("command %T rejected: %v", cmd, err)
	}
	return err
}

func (d *Device) execute(cmd Command, now logic.Ticks) error {
	switch c := cmd.(type) {
	case SetTime:
		tod := logic.TimeOfDay{Hour: c.Hour, Minute: c.Minute}
		if err := d.clock.SetTime(tod, now); err != nil {
			return err
		}
		log.Printf("clock: set to %s", tod)
		d.show(now)
		return nil

	case SetAlarm:
		tod := logic.TimeOfDay{Hour: c.Hour, Minute: c.Minute}
		if err := d.alarm.Set(tod); err != nil {
			return err
		}
		log.Printf("alarm: set to %s", tod)
		d.emit(mqtt.EventAlarmSet, []string{tod.String()})
		d.banner([]string{"Alarm set to:", tod.String()}, now, logic.BannerMediumMs)
		return nil

	case ClearAlarm:
		log.Printf("alarm: cleared")
		d.clearAlarm(now)
		return nil

	case Login:
		idx, ok := d.store.Authenticate(c.Username, c.Password)
		if !ok {
			return ErrBadCredentials
		}
		d.startSession(idx, now)
		return nil

	case Register:
		idx, err := d.store.Register(c.Username, c.Password)
		if err != nil {
			return err
		}
		log.Printf("store: registered %q", c.Username)
		d.startSession(idx, now)
		return nil

	case Logout:
		name := d.username()
		d.emit(mqtt.EventLogout, nil)
		d.session.End()
		d.acq.ResetVitals()
		d.alarm.Clear()
		d.dirty = true
		log.Printf("session: %q logged out", name)
		d.banner([]string{"Logged out", "Success!"}, now, logic.BannerShortMs)
		return nil

	case SetSleepWindow:
		idx, ok := d.session.Index()
		if !ok {
			return ErrNoSession
		}
		a, _ := d.store.Account(idx)
		w := a.SleepWindow()
		if c.Bedtime != nil {
			w.Bedtime = c.Bedtime
		}
		if c.Wakeup != nil {
			w.Wakeup = c.Wakeup
		}
		if err := d.store.SetSleepWindow(idx, w); err != nil {
			return err
		}
		d.dirty = true
		return nil

	case DeleteAccount:
		idx, ok := d.session.Index()
		if !ok {
			return ErrNoSession
		}
		if !d.store.IsAdmin(idx) {
			return ErrNotPermitted
		}
		name, _ := d.store.Username(c.Index)
		if err := d.store.Delete(c.Index, d.session); err != nil {
			return err
		}
		d.session.AfterDelete(c.Index)
		d.dirty = true
		log.Printf("store: deleted %q", name)
		return nil
	}
	return fmt.Errorf("%w: %T", ErrUnknownCommand, cmd)
}

// startSession makes idx the active account and resets the live vitals.
func (d *Device) startSession(idx int, now logic.Ticks) {
	d.session.Begin(idx)
	d.acq.ResetVitals()
	d.dirty = true
	name := d.username()
	log.Printf("session: %q logged in", name)
	d.emit(mqtt.EventLogin, nil)
	d.banner([]string{"Welcome!", name}, now, logic.BannerShortMs)
}
