package device

import (
	"context"
	"errors"
	"runtime"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/vitals-monitor/internal/display"
	"github.com/sweeney/vitals-monitor/internal/gpio"
	"github.com/sweeney/vitals-monitor/internal/logic"
	"github.com/sweeney/vitals-monitor/internal/mqtt"
	"github.com/sweeney/vitals-monitor/internal/sensor"
	"github.com/sweeney/vitals-monitor/internal/status"
	"github.com/sweeney/vitals-monitor/internal/store"
)

// scriptedEngine reports a beat every beatEvery samples and a fixed SpO2.
type scriptedEngine struct {
	beatEvery int
	spo2      int
	calls     int
}

func (e *scriptedEngine) DetectBeat(ir uint32) bool {
	e.calls++
	return e.beatEvery > 0 && e.calls%e.beatEvery == 0
}

func (e *scriptedEngine) ComputeSpO2(red, ir []uint32) logic.SpO2Result {
	return logic.SpO2Result{SpO2: e.spo2, SpO2Valid: e.spo2 > 0}
}

type fixture struct {
	dev     *Device
	store   *store.Store
	codec   *store.MemoryCodec
	sensor  *sensor.FakeReader
	panel   *gpio.FakePanel
	screen  *display.Fake
	pub     *mqtt.FakePublisher
	tracker *status.Tracker
	now     logic.Ticks
}

func newFixture(t *testing.T, mutate func(*Options)) *fixture {
	t.Helper()
	codec := store.NewMemoryCodec()
	st := store.New(codec)
	require.NoError(t, st.Load())
	require.NoError(t, st.EnsureAdmin())

	f := &fixture{
		store:   st,
		codec:   codec,
		sensor:  sensor.NewFakeReader([]sensor.Sample{{Red: 40000, IR: 50000}}),
		panel:   gpio.NewFakePanel(false),
		screen:  &display.Fake{},
		pub:     mqtt.NewFakePublisher(),
		tracker: status.NewTracker(time.Now(), "boot-1", status.Config{}),
	}
	opts := Options{
		Store:     st,
		Tracker:   f.tracker,
		Sensor:    f.sensor,
		Engine:    &scriptedEngine{beatEvery: 27, spo2: 97},
		Panel:     f.panel,
		Display:   f.screen,
		Publisher: f.pub,
		MQTT:      f.pub,
	}
	if mutate != nil {
		mutate(&opts)
	}
	f.dev = New(opts, 0)
	return f
}

// run ticks the device every 10ms until the clock reaches until.
func (f *fixture) run(until logic.Ticks) {
	for f.now < until {
		f.now += 10
		f.dev.Tick(f.now)
	}
}

func (f *fixture) exec(t *testing.T, cmd Command) {
	t.Helper()
	require.NoError(t, f.dev.Execute(cmd, f.now))
}

func TestTaskOrder(t *testing.T) {
	f := newFixture(t, func(o *Options) { o.Heartbeat = 15 * time.Minute })

	var names []string
	for _, s := range f.dev.Stats() {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"clock", "blink", "transport", "finger", "sensor", "network", "notify", "heartbeat", "publish"}, names)

	f2 := newFixture(t, nil)
	for _, s := range f2.dev.Stats() {
		assert.NotEqual(t, "heartbeat", s.Name, "zero heartbeat disables the task")
	}
}

func TestNotReadyKeepsRunning(t *testing.T) {
	f := newFixture(t, func(o *Options) { o.Sensor = nil })

	f.exec(t, SetAlarm{Hour: 7, Minute: 30})
	f.run(5000)

	snap := f.tracker.Snapshot()
	assert.False(t, snap.Ready)
	assert.Equal(t, logic.AlarmArmed, snap.Alarm.State)
	assert.Contains(t, f.screen.Last(), "Sensor not ready")
	assert.Equal(t, 5, snap.Clock.Seconds)
}

func TestAlarmTriggersAndPanelDismisses(t *testing.T) {
	f := newFixture(t, nil)
	f.exec(t, SetTime{Hour: 7, Minute: 29})
	f.exec(t, SetAlarm{Hour: 7, Minute: 30})

	f.run(59000)
	assert.False(t, f.tracker.Snapshot().Alarm.Triggered)

	f.run(61000)
	snap := f.tracker.Snapshot()
	require.True(t, snap.Alarm.Triggered)
	assert.Contains(t, f.pub.EventTypes(), mqtt.EventAlarmTriggered)
	assert.Contains(t, f.panel.BuzzerChanges, true, "buzzer follows the blink phase")

	frames := f.screen.Frames
	assert.True(t, slices.ContainsFunc(frames, func(fr []string) bool {
		return len(fr) > 0 && fr[0] == "ALARM!"
	}))

	// Time passing does not dismiss.
	f.run(125000)
	require.True(t, f.tracker.Snapshot().Alarm.Triggered)

	// Hold the button past the debounce period.
	f.panel.Script(true)
	f.run(f.now + 200)

	snap = f.tracker.Snapshot()
	assert.False(t, snap.Alarm.Triggered)
	assert.Equal(t, logic.AlarmDisabled, snap.Alarm.State)
	assert.Nil(t, snap.Alarm.Target, "dismissal forgets the target")
	assert.Contains(t, f.pub.EventTypes(), mqtt.EventAlarmCleared)
	assert.False(t, f.panel.Buzzer)
}

func TestRecordsAreGated(t *testing.T) {
	f := newFixture(t, nil)
	f.exec(t, Register{Username: "bob", Password: "pw"})

	f.run(12000)

	a, ok := f.store.Account(1)
	require.True(t, ok)
	require.Len(t, a.Records, 2, "one record per 5s window")
	assert.GreaterOrEqual(t, a.Records[1].Timestamp-a.Records[0].Timestamp, uint32(RecordPeriodMs))
	assert.Equal(t, uint16(60000/810), a.Records[0].PulseBPM)
	assert.Equal(t, uint8(97), a.Records[0].SpO2)

	require.Len(t, f.pub.Records, 2)
	assert.Equal(t, "bob", f.pub.Records[0].Username)

	snap := f.tracker.Snapshot()
	require.NotNil(t, snap.Session)
	assert.Len(t, snap.Session.Records, 2)
}

func TestNoRecordsWithoutSession(t *testing.T) {
	f := newFixture(t, nil)
	f.run(12000)

	snap := f.tracker.Snapshot()
	assert.True(t, snap.Present)
	assert.Equal(t, uint8(97), snap.Vitals.SpO2)
	for _, a := range f.store.Accounts() {
		assert.Empty(t, a.Records)
	}
	assert.Empty(t, f.pub.Records)
}

func TestFingerRemovalStopsRecording(t *testing.T) {
	f := newFixture(t, nil)
	f.exec(t, Register{Username: "bob", Password: "pw"})
	f.run(4000)

	f.sensor.Samples = []sensor.Sample{{Red: 100, IR: 100}}
	f.sensor.Reset()
	f.run(12000)

	snap := f.tracker.Snapshot()
	assert.False(t, snap.Present)
	assert.False(t, snap.BeatDetected)
	assert.Equal(t, uint8(0), snap.Vitals.SpO2, "removal discards SpO2")
	a, _ := f.store.Account(1)
	assert.Empty(t, a.Records)
}

func TestSensorErrorsAreSkipped(t *testing.T) {
	f := newFixture(t, nil)
	f.sensor.ReadError = errors.New("i2c timeout")
	f.run(2000)

	snap := f.tracker.Snapshot()
	assert.True(t, snap.Ready, "read errors do not make the sensor not-ready")
	assert.False(t, snap.Present)
}

func TestLoginLogout(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.store.Register("bob", "pw")
	require.NoError(t, err)

	err = f.dev.Execute(Login{Username: "bob", Password: "wrong"}, 0)
	assert.ErrorIs(t, err, ErrBadCredentials)

	f.exec(t, Login{Username: "bob", Password: "pw"})
	f.exec(t, SetAlarm{Hour: 6, Minute: 0})
	f.run(100)
	snap := f.tracker.Snapshot()
	require.NotNil(t, snap.Session)
	assert.Equal(t, "bob", snap.Session.Username)
	assert.True(t, slices.ContainsFunc(f.screen.Frames, func(fr []string) bool {
		return len(fr) > 1 && fr[0] == "Welcome!" && fr[1] == "bob"
	}))

	f.exec(t, Logout{})
	f.run(200)
	snap = f.tracker.Snapshot()
	assert.Nil(t, snap.Session)
	assert.Equal(t, logic.AlarmDisabled, snap.Alarm.State, "logout clears the alarm")
	assert.Equal(t, []string{mqtt.EventLogin, mqtt.EventAlarmSet, mqtt.EventLogout}, f.pub.EventTypes())
}

func TestRegisterErrors(t *testing.T) {
	f := newFixture(t, nil)
	f.exec(t, Register{Username: "bob", Password: "pw"})

	err := f.dev.Execute(Register{Username: "bob", Password: "other"}, 0)
	assert.ErrorIs(t, err, store.ErrDuplicateUsername)

	for i := f.store.Len(); i < store.MaxAccounts; i++ {
		_, err := f.store.Register(string(rune('a'+i)), "pw")
		require.NoError(t, err)
	}
	err = f.dev.Execute(Register{Username: "late", Password: "pw"}, 0)
	assert.ErrorIs(t, err, store.ErrCapacityExceeded)
}

func TestInvalidTimes(t *testing.T) {
	f := newFixture(t, nil)
	assert.ErrorIs(t, f.dev.Execute(SetTime{Hour: 24}, 0), logic.ErrInvalidTime)
	assert.ErrorIs(t, f.dev.Execute(SetAlarm{Hour: 7, Minute: 60}, 0), logic.ErrInvalidTime)
	assert.Empty(t, f.pub.Events)
}

func TestSetSleepWindow(t *testing.T) {
	f := newFixture(t, nil)
	bed := logic.TimeOfDay{Hour: 22, Minute: 30}
	wake := logic.TimeOfDay{Hour: 6, Minute: 45}

	err := f.dev.Execute(SetSleepWindow{Bedtime: &bed}, 0)
	assert.ErrorIs(t, err, ErrNoSession)

	f.exec(t, Register{Username: "bob", Password: "pw"})
	f.exec(t, SetSleepWindow{Bedtime: &bed, Wakeup: &wake})

	later := logic.TimeOfDay{Hour: 23, Minute: 0}
	f.exec(t, SetSleepWindow{Bedtime: &later})

	a, _ := f.store.Account(1)
	require.NotNil(t, a.Bedtime)
	require.NotNil(t, a.Wakeup)
	assert.Equal(t, later, *a.Bedtime)
	assert.Equal(t, wake, *a.Wakeup, "omitted field is left unchanged")

	bad := logic.TimeOfDay{Hour: 30}
	assert.ErrorIs(t, f.dev.Execute(SetSleepWindow{Wakeup: &bad}, 0), logic.ErrInvalidTime)
}

func TestDeleteAccountRules(t *testing.T) {
	codec := store.NewMemoryCodec(
		store.Account{Username: "alice", Password: "pw"},
		store.Account{Username: "bob", Password: "pw"},
	)
	f := newFixture(t, nil)
	st := store.New(codec)
	require.NoError(t, st.Load())
	require.NoError(t, st.EnsureAdmin()) // admin lands at index 2
	f.store = st
	f.dev = New(Options{Store: st, Tracker: f.tracker, Publisher: f.pub}, 0)

	assert.ErrorIs(t, f.dev.Execute(DeleteAccount{Index: 0}, 0), ErrNoSession)

	f.exec(t, Login{Username: "bob", Password: "pw"})
	assert.ErrorIs(t, f.dev.Execute(DeleteAccount{Index: 0}, 0), ErrNotPermitted)

	f.exec(t, Login{Username: "admin", Password: "admin"})
	assert.ErrorIs(t, f.dev.Execute(DeleteAccount{Index: 2}, 0), store.ErrInvalidTarget, "self delete")
	assert.ErrorIs(t, f.dev.Execute(DeleteAccount{Index: 9}, 0), store.ErrInvalidTarget)

	f.exec(t, DeleteAccount{Index: 0})
	assert.Equal(t, 2, st.Len())
	idx, ok := f.dev.session.Index()
	require.True(t, ok)
	assert.Equal(t, 1, idx, "session follows the admin account down")

	f.run(100)
	snap := f.tracker.Snapshot()
	require.NotNil(t, snap.Session)
	assert.Equal(t, "admin", snap.Session.Username)
	require.Len(t, snap.Accounts, 2)
	assert.Equal(t, "bob", snap.Accounts[0].Username)
}

func TestSleepNotifications(t *testing.T) {
	f := newFixture(t, func(o *Options) { o.Sensor = nil })
	bed := logic.TimeOfDay{Hour: 0, Minute: 1}
	f.exec(t, Register{Username: "bob", Password: "pw"})
	f.exec(t, SetSleepWindow{Bedtime: &bed})

	f.run(125000)

	var notes int
	for _, e := range f.pub.Events {
		if e.Type == mqtt.EventNotification {
			notes++
			assert.Equal(t, []string{"TIME TO SLEEP!", "Good night!"}, e.Lines)
		}
	}
	assert.Equal(t, 1, notes, "fires once per matching minute")
	assert.True(t, slices.ContainsFunc(f.screen.Frames, func(fr []string) bool {
		return len(fr) > 0 && fr[0] == "TIME TO SLEEP!"
	}))
}

func TestHeartbeatAndNetwork(t *testing.T) {
	f := newFixture(t, func(o *Options) {
		o.Heartbeat = time.Second
		o.Network = func() *status.NetworkInfo {
			return &status.NetworkInfo{Status: "connected", IP: "10.0.0.5"}
		}
	})
	f.pub.Connected = true

	f.run(10500)

	var beats int
	for _, e := range f.pub.SystemEvents {
		if e.Event == "HEARTBEAT" {
			beats++
			assert.NotEmpty(t, e.RawPayload)
		}
	}
	assert.Equal(t, 10, beats)

	snap := f.tracker.Snapshot()
	require.NotNil(t, snap.Network)
	assert.Equal(t, "10.0.0.5", snap.Network.IP)
	assert.True(t, snap.MQTTConnected)
}

func TestInvoke(t *testing.T) {
	f := newFixture(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- f.dev.Invoke(ctx, Register{Username: "bob", Password: "pw"}) }()

	for {
		select {
		case err := <-done:
			require.NoError(t, err)
			_, ok := f.store.Find("bob")
			assert.True(t, ok)
			return
		case <-ctx.Done():
			t.Fatal("Invoke was never served")
		default:
			f.now += 10
			f.dev.Tick(f.now)
			runtime.Gosched()
		}
	}
}

func TestInvokeCanceled(t *testing.T) {
	f := newFixture(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := f.dev.Invoke(ctx, ClearAlarm{})
	assert.ErrorIs(t, err, context.Canceled)
}
