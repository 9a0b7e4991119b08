package sensor

import (
	"math"

	"github.com/sweeney/vitals-monitor/internal/logic"
)

// Engine defaults.
const (
	DefaultSampleRateHz = 33.3 // one sample per 30ms sensor pass
	DefaultMinAmplitude = 20.0 // ADC counts below the DC level a trough must reach

	dcSmoothing = 16.0
)

// Engine is the default logic.BiometricEngine. Beats are rising zero
// crossings of the DC-removed IR signal. SpO2 uses the ratio of ratios
// with the MAX3010x calibration curve.
type Engine struct {
	SampleRateHz float64
	MinAmplitude float64

	dc     float64
	primed bool
	prevAC float64
	trough float64
}

// NewEngine returns an engine tuned for samples arriving at rateHz.
func NewEngine(rateHz float64) *Engine {
	if rateHz <= 0 {
		rateHz = DefaultSampleRateHz
	}
	return &Engine{SampleRateHz: rateHz, MinAmplitude: DefaultMinAmplitude}
}

// DetectBeat reports a beat on the rising edge of each pulse wave.
func (e *Engine) DetectBeat(ir uint32) bool {
	x := float64(ir)
	if !e.primed {
		e.dc = x
		e.primed = true
		return false
	}
	e.dc += (x - e.dc) / dcSmoothing
	ac := x - e.dc

	beat := false
	if e.prevAC <= 0 && ac > 0 && e.trough <= -e.MinAmplitude {
		beat = true
		e.trough = 0
	}
	if ac < e.trough {
		e.trough = ac
	}
	e.prevAC = ac
	return beat
}

// ComputeSpO2 estimates saturation and heart rate from paired buffers.
func (e *Engine) ComputeSpO2(red, ir []uint32) logic.SpO2Result {
	n := len(ir)
	if len(red) < n {
		n = len(red)
	}
	if n < 4 {
		return logic.SpO2Result{}
	}
	red, ir = red[:n], ir[:n]

	dcRed, acRed := dcAC(red)
	dcIR, acIR := dcAC(ir)

	var res logic.SpO2Result
	if dcRed > 0 && dcIR > 0 && acIR > 0 && acRed > 0 {
		r := (acRed / dcRed) / (acIR / dcIR)
		spo2 := -45.060*r*r + 30.354*r + 94.845
		if r > 0.2 && r < 1.8 && spo2 > 0 && spo2 <= 100 {
			res.SpO2 = int(math.Round(spo2))
			res.SpO2Valid = true
		}
	}

	if hr, ok := e.bufferHeartRate(ir, dcIR); ok {
		res.HeartRate = hr
		res.HeartRateValid = true
	}
	return res
}

// bufferHeartRate averages the spacing of rising crossings in a buffer.
func (e *Engine) bufferHeartRate(ir []uint32, mean float64) (int, bool) {
	var crossings []int
	for i := 1; i < len(ir); i++ {
		if float64(ir[i-1]) <= mean && float64(ir[i]) > mean {
			crossings = append(crossings, i)
		}
	}
	if len(crossings) < 2 {
		return 0, false
	}
	span := float64(crossings[len(crossings)-1] - crossings[0])
	interval := span / float64(len(crossings)-1)
	hr := int(math.Round(60 * e.SampleRateHz / interval))
	if hr < 30 || hr > 220 {
		return 0, false
	}
	return hr, true
}

// dcAC returns the mean and the RMS of the signal around the mean.
func dcAC(x []uint32) (float64, float64) {
	var sum float64
	for _, v := range x {
		sum += float64(v)
	}
	mean := sum / float64(len(x))

	var sq float64
	for _, v := range x {
		d := float64(v) - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / float64(len(x)))
}
