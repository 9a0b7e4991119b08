package logic

// Acquisition constants.
const (
	DefaultFingerThreshold = 5000 // IR amplitude at or above which a finger is present
	SpO2BufferSize         = 100

	minBeatIntervalMs  = 300
	maxBeatIntervalMs  = 2000
	spo2SampleMinMs    = 10
	absenceDecayPeriod = 2000
)

// SpO2Result is the output of one SpO2 computation over a full buffer.
type SpO2Result struct {
	SpO2           int
	SpO2Valid      bool
	HeartRate      int
	HeartRateValid bool
}

// BiometricEngine provides peak detection and the SpO2 computation.
type BiometricEngine interface {
	// DetectBeat is fed every IR sample and reports a detected peak.
	DetectBeat(ir uint32) bool

	// ComputeSpO2 is called with exactly SpO2BufferSize paired samples.
	ComputeSpO2(red, ir []uint32) SpO2Result
}

// Acquisition turns raw photodetector samples into validated vitals.
// Invalid intermediate results are discarded silently; nothing here fails.
type Acquisition struct {
	engine    BiometricEngine
	threshold uint32

	present      bool
	active       bool
	beatDetected bool
	vitals       Vitals
	lastBeat     Ticks

	red        [SpO2BufferSize]uint32
	ir         [SpO2BufferSize]uint32
	fill       int
	lastSample Ticks

	decay        Gate
	computations int
}

// NewAcquisition creates an acquisition state machine. A zero threshold
// selects DefaultFingerThreshold.
func NewAcquisition(engine BiometricEngine, threshold uint32, start Ticks) *Acquisition {
	if threshold == 0 {
		threshold = DefaultFingerThreshold
	}
	return &Acquisition{
		engine:     engine,
		threshold:  threshold,
		lastBeat:   start,
		lastSample: start,
		decay:      NewGate(absenceDecayPeriod, start),
	}
}

// OnFingerPoll updates finger presence from an IR sample and reports it.
// Removing the finger discards any partially filled SpO2 buffer.
func (a *Acquisition) OnFingerPoll(ir uint32) bool {
	if ir < a.threshold {
		if a.present {
			a.fill = 0
			a.vitals.SpO2 = 0
		}
		a.present = false
		a.beatDetected = false
		return false
	}
	a.present = true
	a.active = true
	return true
}

// OnBeatCandidate runs peak detection on an IR sample. A beat is accepted
// only when the interval from the previous peak lies strictly inside
// (300ms, 2000ms); otherwise pulse and beat state are left untouched.
func (a *Acquisition) OnBeatCandidate(ir uint32, now Ticks) {
	if !a.engine.DetectBeat(ir) {
		return
	}
	delta := now.Since(a.lastBeat)
	a.lastBeat = now
	if delta <= minBeatIntervalMs || delta >= maxBeatIntervalMs {
		return
	}
	a.vitals.PulseBPM = uint16(60000 / delta)
	a.beatDetected = true
}

// OnSpO2Tick appends a paired sample while a finger is present. When the
// buffer reaches SpO2BufferSize the engine is run once and the buffer is
// emptied regardless of the result.
func (a *Acquisition) OnSpO2Tick(red, ir uint32, now Ticks) {
	if !a.present {
		return
	}
	if now.Since(a.lastSample) < spo2SampleMinMs {
		return
	}
	a.lastSample = now

	if a.fill < SpO2BufferSize {
		a.red[a.fill] = red
		a.ir[a.fill] = ir
		a.fill++
	}
	if a.fill < SpO2BufferSize {
		return
	}

	res := a.engine.ComputeSpO2(a.red[:], a.ir[:])
	a.computations++
	if res.SpO2Valid && res.SpO2 > 0 && res.SpO2 <= 100 {
		a.vitals.SpO2 = uint8(res.SpO2)
	}
	a.fill = 0
}

// OnAbsenceTick lets the displayed vitals fall toward zero while no finger
// is present, one unit every two seconds.
func (a *Acquisition) OnAbsenceTick(now Ticks) {
	if a.present {
		a.decay.Reset(now)
		return
	}
	if !a.decay.Ready(now) {
		return
	}
	if a.vitals.PulseBPM > 0 {
		a.vitals.PulseBPM--
	}
	if a.vitals.SpO2 > 0 {
		a.vitals.SpO2--
	}
	a.beatDetected = false
}

// ResetVitals clears the live readings, e.g. when the session changes.
func (a *Acquisition) ResetVitals() {
	a.vitals = Vitals{}
	a.beatDetected = false
}

// Present reports finger presence from the last poll.
func (a *Acquisition) Present() bool { return a.present }

// Active reports whether a finger has been seen since startup.
func (a *Acquisition) Active() bool { return a.active }

// BeatDetected reports whether the last accepted beat is still current.
func (a *Acquisition) BeatDetected() bool { return a.beatDetected }

// Vitals returns the current readings.
func (a *Acquisition) Vitals() Vitals { return a.vitals }

// FillIndex returns the number of buffered SpO2 samples.
func (a *Acquisition) FillIndex() int { return a.fill }

// Computations returns how many SpO2 computations have run.
func (a *Acquisition) Computations() int { return a.computations }
