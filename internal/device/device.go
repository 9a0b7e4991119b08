// Package device owns the appliance state and wires every subsystem into
// the cooperative task table. All state is confined to the loop goroutine;
// other goroutines reach it through Invoke and the status tracker.
package device

import (
	"log"
	"time"

	"github.com/sweeney/vitals-monitor/internal/display"
	"github.com/sweeney/vitals-monitor/internal/gpio"
	"github.com/sweeney/vitals-monitor/internal/logic"
	"github.com/sweeney/vitals-monitor/internal/mqtt"
	"github.com/sweeney/vitals-monitor/internal/scheduler"
	"github.com/sweeney/vitals-monitor/internal/sensor"
	"github.com/sweeney/vitals-monitor/internal/status"
	"github.com/sweeney/vitals-monitor/internal/store"
)

// Task cadences in milliseconds.
const (
	ClockPeriodMs      = 1000
	DisplayPeriodMs    = 200
	SensorPeriodMs     = 30
	NetworkPeriodMs    = 10000
	NotifyPeriodMs     = 3000
	MotivationPollMs   = 60000
	RecordPeriodMs     = 5000
	ButtonDebounceMs   = 50
	commandQueueLength = 16
)

// Options configures a Device. Store and Tracker are required; every
// other collaborator is optional.
type Options struct {
	Store   *store.Store
	Tracker *status.Tracker

	// Sensor is the sample source. Nil means the sensor could not be
	// opened and the device runs in the not-ready state.
	Sensor          sensor.Reader
	Engine          logic.BiometricEngine
	FingerThreshold uint32

	Panel     gpio.Panel
	Display   display.Display
	Publisher mqtt.Publisher
	MQTT      mqtt.ConnectionStatus

	// Heartbeat is the MQTT heartbeat interval; 0 disables it.
	Heartbeat time.Duration

	// Network reads host network health; nil skips it.
	Network func() *status.NetworkInfo

	// Now supplies wall-clock time for telemetry timestamps.
	Now func() time.Time

	// Yield runs between tasks (runtime.Gosched in the daemon).
	Yield func()
}

// Device is the single owner of all appliance state.
type Device struct {
	clock    *logic.SoftClock
	acq      *logic.Acquisition
	alarm    *logic.Alarm
	notifier *logic.Notifier
	screen   *logic.Screen
	store    *store.Store
	session  store.Session

	sensor  sensor.Reader
	panel   gpio.Panel
	button  *logic.Debouncer
	display display.Display
	pub     mqtt.Publisher
	mqtt    mqtt.ConnectionStatus
	tracker *status.Tracker
	network func() *status.NetworkInfo
	now     func() time.Time

	sched    *scheduler.Scheduler
	commands chan request

	second     logic.Gate
	refresh    logic.Gate
	motivation logic.Gate
	record     logic.Gate

	red, ir     uint32
	sampleOK    bool
	sensorFault bool
	panelFault  bool
	screenFault bool
	lastBlink   bool

	frame    []string
	accounts []status.AccountSummary
	current  *status.Session
	dirty    bool
}

// New builds a device whose clock reads 00:00:00 at start and registers
// its tasks in execution order.
func New(opts Options, start logic.Ticks) *Device {
	engine := opts.Engine
	if engine == nil {
		engine = sensor.NewEngine(sensor.DefaultSampleRateHz)
	}
	pub := opts.Publisher
	if pub == nil {
		pub = mqtt.NopPublisher{}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	d := &Device{
		clock:      logic.NewSoftClock(start),
		acq:        logic.NewAcquisition(engine, opts.FingerThreshold, start),
		alarm:      logic.NewAlarm(),
		notifier:   logic.NewNotifier(start),
		screen:     logic.NewScreen(),
		store:      opts.Store,
		sensor:     opts.Sensor,
		panel:      opts.Panel,
		button:     logic.NewDebouncer(ButtonDebounceMs),
		display:    opts.Display,
		pub:        pub,
		mqtt:       opts.MQTT,
		tracker:    opts.Tracker,
		network:    opts.Network,
		now:        now,
		commands:   make(chan request, commandQueueLength),
		second:     logic.NewGate(ClockPeriodMs, start),
		refresh:    logic.NewGate(DisplayPeriodMs, start),
		motivation: logic.NewGate(MotivationPollMs, start),
		record:     logic.NewGate(RecordPeriodMs, start),
		dirty:      true,
	}

	d.sched = scheduler.New(start, opts.Yield)
	d.sched.Add(scheduler.Task{Name: "clock", Run: d.runClock})
	d.sched.Add(scheduler.Task{Name: "blink", Run: d.runBlink})
	d.sched.Add(scheduler.Task{Name: "transport", Run: d.runTransport})
	d.sched.Add(scheduler.Task{Name: "finger", Run: d.runFinger})
	d.sched.Add(scheduler.Task{Name: "sensor", Period: SensorPeriodMs, Run: d.runSensor})
	d.sched.Add(scheduler.Task{Name: "network", Period: NetworkPeriodMs, Run: d.runNetwork})
	d.sched.Add(scheduler.Task{Name: "notify", Period: NotifyPeriodMs, Run: d.runNotify})
	if ms := opts.Heartbeat.Milliseconds(); ms > 0 {
		d.sched.Add(scheduler.Task{Name: "heartbeat", Period: uint32(ms), Run: d.runHeartbeat})
	}
	d.sched.Add(scheduler.Task{Name: "publish", Run: d.runPublish})

	if d.sensor == nil {
		log.Printf("sensor: not ready, acquisition disabled")
	}
	return d
}

// Tick performs one cooperative pass.
func (d *Device) Tick(now logic.Ticks) {
	d.sched.Tick(now)
}

// Ready reports whether the sample source is available.
func (d *Device) Ready() bool {
	return d.sensor != nil
}

// Stats returns per-task run counts.
func (d *Device) Stats() []scheduler.TaskStats {
	return d.sched.Stats()
}

// runClock advances the soft clock and checks the alarm once a second,
// and refreshes the display at most every DisplayPeriodMs.
func (d *Device) runClock(now logic.Ticks) {
	if d.second.Ready(now) {
		d.clock.Update(now)
		r := d.clock.Reading()
		if d.alarm.Check(r, now) {
			log.Printf("alarm: triggered at %s", r)
			d.emit(mqtt.EventAlarmTriggered, nil)
		}
	}
	if d.refresh.Ready(now) {
		d.show(now)
	}
}

// runBlink follows the alarm's blink phase with the buzzer and display.
func (d *Device) runBlink(now logic.Ticks) {
	on := d.alarm.Blink(now)
	if on == d.lastBlink {
		return
	}
	d.lastBlink = on
	if d.panel != nil {
		if err := d.panel.SetBuzzer(on); err != nil && !d.panelFault {
			log.Printf("panel: buzzer: %v", err)
			d.panelFault = true
		}
	}
	d.show(now)
}

func (d *Device) runTransport(now logic.Ticks) {
	for n := len(d.commands); n > 0; n-- {
		req := <-d.commands
		req.reply <- d.Execute(req.cmd, now)
	}
}

// runFinger reads one sample for presence and polls the dismiss button.
func (d *Device) runFinger(now logic.Ticks) {
	if d.sensor != nil {
		red, ir, err := d.sensor.Read()
		switch {
		case err != nil:
			if !d.sensorFault {
				log.Printf("sensor: read error: %v", err)
				d.sensorFault = true
			}
			d.sampleOK = false
		default:
			if d.sensorFault {
				log.Printf("sensor: reads recovered")
				d.sensorFault = false
			}
			d.red, d.ir, d.sampleOK = red, ir, true
			d.acq.OnFingerPoll(ir)
		}
	}

	if d.panel == nil {
		return
	}
	pressed, err := d.panel.Pressed()
	if err != nil {
		if !d.panelFault {
			log.Printf("panel: button: %v", err)
			d.panelFault = true
		}
		return
	}
	if level, changed := d.button.Process(pressed, now); changed && level == logic.LevelHigh {
		if d.alarm.Triggered() {
			log.Printf("alarm: dismissed from panel")
			d.clearAlarm(now)
		}
	}
}

// runSensor feeds the acquisition state machine and stores records.
func (d *Device) runSensor(now logic.Ticks) {
	if d.sensor == nil || !d.sampleOK {
		return
	}
	if d.acq.Present() {
		d.acq.OnBeatCandidate(d.ir, now)
		d.acq.OnSpO2Tick(d.red, d.ir, now)
	}
	d.acq.OnAbsenceTick(now)
	d.maybeRecord(now)
}

// maybeRecord stores the live vitals for the session at most every
// RecordPeriodMs, and only while a beat is current and both values are set.
func (d *Device) maybeRecord(now logic.Ticks) {
	idx, ok := d.session.Index()
	if !ok || !d.acq.Present() || !d.acq.BeatDetected() {
		return
	}
	v := d.acq.Vitals()
	if !v.Valid() {
		return
	}
	if !d.record.Ready(now) {
		return
	}
	ts := d.clock.Millis()
	if err := d.store.AddRecord(idx, v, ts); err != nil {
		log.Printf("store: add record: %v", err)
		return
	}
	d.dirty = true

	var warnings []string
	for _, w := range logic.AssessHealth(v) {
		warnings = append(warnings, string(w.Code))
	}
	if err := d.pub.PublishRecord(mqtt.RecordEvent{
		Timestamp: d.now(),
		Username:  d.username(),
		ClockMs:   ts,
		PulseBPM:  v.PulseBPM,
		SpO2:      v.SpO2,
		Warnings:  warnings,
	}); err != nil {
		log.Printf("mqtt: publish record: %v", err)
	}
}

func (d *Device) runNetwork(now logic.Ticks) {
	if d.network != nil {
		d.tracker.SetNetwork(d.network())
	}
	if d.mqtt != nil {
		d.tracker.SetMQTTConnected(d.mqtt.IsConnected())
	}
}

// runNotify checks the sleep triggers and, once a minute, the
// motivational message rotation.
func (d *Device) runNotify(now logic.Ticks) {
	var name string
	var window logic.SleepWindow
	if idx, ok := d.session.Index(); ok {
		if a, ok := d.store.Account(idx); ok {
			name = a.Username
			window = a.SleepWindow()
		}
	}

	for _, n := range d.notifier.CheckSleep(name, window, d.clock.Reading()) {
		d.notify(n, logic.BannerLongMs, now)
	}
	if d.motivation.Ready(now) {
		if n, ok := d.notifier.CheckMotivation(now); ok {
			d.notify(n, logic.BannerLongMs, now)
		}
	}
}

func (d *Device) notify(n logic.Notification, durationMs uint32, now logic.Ticks) {
	log.Printf("notify: %s %q", n.Kind, n.Lines)
	d.banner(n.Lines, now, durationMs)
	d.emit(mqtt.EventNotification, n.Lines)
}

func (d *Device) runHeartbeat(now logic.Ticks) {
	if d.mqtt != nil {
		d.tracker.SetMQTTConnected(d.mqtt.IsConnected())
	}
	snap := d.tracker.Snapshot()
	log.Printf("heartbeat: uptime=%v passes=%d user=%q", snap.Uptime().Truncate(time.Second), snap.Passes, d.username())
	event := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "HEARTBEAT",
		BootID:     snap.BootID,
		RawPayload: status.FormatStatusEvent(snap, "HEARTBEAT", ""),
	}
	if err := d.pub.PublishSystem(event); err != nil {
		log.Printf("heartbeat publish error: %v", err)
	}
}

// runPublish pushes the pass's state to the tracker.
func (d *Device) runPublish(now logic.Ticks) {
	if d.dirty {
		d.rebuildAccounts()
		d.dirty = false
	}
	target, armed := d.alarm.Target()
	alarm := status.Alarm{
		State:     d.alarm.State(),
		Triggered: d.alarm.Triggered(),
		BlinkOn:   d.alarm.BlinkOn(),
	}
	if armed {
		alarm.Target = &target
	}
	d.tracker.Update(status.Device{
		Clock:        d.clock.Reading(),
		Ready:        d.Ready(),
		Present:      d.acq.Present(),
		SensorActive: d.acq.Active(),
		BeatDetected: d.acq.BeatDetected(),
		Vitals:       d.acq.Vitals(),
		FillIndex:    d.acq.FillIndex(),
		Alarm:        alarm,
		Session:      d.current,
		Accounts:     d.accounts,
		Screen:       d.frame,
		Degraded:     d.store.Degraded(),
		Passes:       d.sched.Passes(),
	})
}

// rebuildAccounts refreshes the cached account list and session view
// after a store or session change.
func (d *Device) rebuildAccounts() {
	all := d.store.Accounts()
	d.accounts = make([]status.AccountSummary, len(all))
	for i, a := range all {
		d.accounts[i] = status.AccountSummary{
			Index:       i,
			Username:    a.Username,
			IsAdmin:     a.IsAdmin,
			RecordCount: len(a.Records),
		}
	}
	d.current = nil
	if idx, ok := d.session.Index(); ok && idx < len(all) {
		a := all[idx]
		d.current = &status.Session{
			Index:    idx,
			Username: a.Username,
			IsAdmin:  a.IsAdmin,
			Bedtime:  a.Bedtime,
			Wakeup:   a.Wakeup,
			Records:  a.Records,
		}
	}
}

// show composes the frame and sends it to the display.
func (d *Device) show(now logic.Ticks) {
	target, armed := d.alarm.Target()
	in := logic.ScreenInput{
		Reading:        d.clock.Reading(),
		Ready:          d.Ready(),
		Present:        d.acq.Present(),
		BeatDetected:   d.acq.BeatDetected(),
		Vitals:         d.acq.Vitals(),
		Username:       d.username(),
		AlarmTriggered: d.alarm.Triggered(),
		BlinkOn:        d.alarm.BlinkOn(),
	}
	if armed {
		in.AlarmTarget = &target
	}
	d.frame = d.screen.Compose(in, now)
	if d.display == nil {
		return
	}
	if err := d.display.Show(d.frame); err != nil {
		if !d.screenFault {
			log.Printf("display: %v", err)
			d.screenFault = true
		}
		return
	}
	d.screenFault = false
}

func (d *Device) banner(lines []string, now logic.Ticks, durationMs uint32) {
	d.screen.ShowBanner(lines, now, durationMs)
	d.show(now)
}

func (d *Device) emit(kind string, lines []string) {
	if err := d.pub.PublishEvent(mqtt.DeviceEvent{
		Timestamp: d.now(),
		Type:      kind,
		Username:  d.username(),
		Lines:     lines,
	}); err != nil {
		log.Printf("mqtt: publish %s: %v", kind, err)
	}
}

func (d *Device) username() string {
	idx, ok := d.session.Index()
	if !ok {
		return ""
	}
	name, _ := d.store.Username(idx)
	return name
}

func (d *Device) clearAlarm(now logic.Ticks) {
	d.alarm.Clear()
	d.emit(mqtt.EventAlarmCleared, nil)
	d.banner([]string{"Alarm cleared!"}, now, logic.BannerShortMs)
}
