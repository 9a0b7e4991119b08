package logic

import "fmt"

// Normal ranges.
const (
	MinNormalPulse = 60
	MaxNormalPulse = 100
	MinNormalSpO2  = 95
	CriticalSpO2   = 90
)

// WarningCode classifies an out-of-range reading.
type WarningCode string

const (
	WarnPulseLow     WarningCode = "PULSE_LOW"
	WarnPulseHigh    WarningCode = "PULSE_HIGH"
	WarnSpO2Low      WarningCode = "SPO2_LOW"
	WarnSpO2Critical WarningCode = "SPO2_CRITICAL"
)

// HealthWarning is a single finding for a reading.
type HealthWarning struct {
	Code    WarningCode
	Message string
}

// AssessHealth checks a reading against the normal ranges. Zero values
// are "no reading" and produce no warning.
func AssessHealth(v Vitals) []HealthWarning {
	var out []HealthWarning
	switch {
	case v.PulseBPM == 0:
	case v.PulseBPM < MinNormalPulse:
		out = append(out, HealthWarning{WarnPulseLow, fmt.Sprintf("Pulse is low (%d bpm)", v.PulseBPM)})
	case v.PulseBPM > MaxNormalPulse:
		out = append(out, HealthWarning{WarnPulseHigh, fmt.Sprintf("Pulse is high (%d bpm)", v.PulseBPM)})
	}
	switch {
	case v.SpO2 == 0:
	case v.SpO2 < CriticalSpO2:
		out = append(out, HealthWarning{WarnSpO2Critical, fmt.Sprintf("Critical SpO2 drop (%d%%), see a doctor immediately", v.SpO2)})
	case v.SpO2 < MinNormalSpO2:
		out = append(out, HealthWarning{WarnSpO2Low, fmt.Sprintf("SpO2 below normal (%d%%), consider a consultation", v.SpO2)})
	}
	return out
}
