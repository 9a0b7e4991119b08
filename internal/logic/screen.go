package logic

import "fmt"

// Banner durations.
const (
	BannerShortMs  = 1000
	BannerMediumMs = 2000
	BannerLongMs   = 3000
)

// ScreenInput is everything the status screen shows.
type ScreenInput struct {
	Reading        ClockReading
	Ready          bool
	Present        bool
	BeatDetected   bool
	Vitals         Vitals
	Username       string
	AlarmTarget    *TimeOfDay
	AlarmTriggered bool
	BlinkOn        bool
}

// Screen composes the text frame for the display. Timed banners replace
// the status frame until their expiry tick instead of blocking the loop.
type Screen struct {
	banner      []string
	bannerStart Ticks
	bannerMs    uint32
}

// NewScreen returns a screen with no banner.
func NewScreen() *Screen {
	return &Screen{}
}

// ShowBanner displays lines for durationMs starting at now, replacing any
// banner still on screen.
func (s *Screen) ShowBanner(lines []string, now Ticks, durationMs uint32) {
	s.banner = append([]string(nil), lines...)
	s.bannerStart = now
	s.bannerMs = durationMs
}

// Banner returns the active banner lines, or nil once expired.
func (s *Screen) Banner(now Ticks) []string {
	if s.banner == nil {
		return nil
	}
	if now.Since(s.bannerStart) >= s.bannerMs {
		s.banner = nil
		return nil
	}
	return s.banner
}

// Compose returns the frame for now. A ringing alarm pre-empts everything,
// then an active banner, then the status frame.
func (s *Screen) Compose(in ScreenInput, now Ticks) []string {
	if in.AlarmTriggered {
		if !in.BlinkOn {
			return []string{}
		}
		return []string{"ALARM!", "Press Reset", "to dismiss"}
	}
	if b := s.Banner(now); b != nil {
		return append([]string(nil), b...)
	}

	r := in.Reading
	timeLine := "Time: " + r.String()
	if in.AlarmTarget != nil {
		timeLine += " [A]"
	}
	lines := []string{"Health Monitoring", timeLine}

	switch {
	case !in.Ready:
		lines = append(lines, "Sensor not ready")
	case !in.Present:
		lines = append(lines, "Place finger")
	default:
		pulse := uint16(0)
		if in.BeatDetected {
			pulse = in.Vitals.PulseBPM
		}
		lines = append(lines,
			fmt.Sprintf("Pulse: %d bpm", pulse),
			fmt.Sprintf("SpO2: %d%%", in.Vitals.SpO2))
	}

	if in.Username == "" {
		return append(lines, "Not logged in")
	}
	lines = append(lines, "User: "+in.Username)
	if in.AlarmTarget != nil {
		lines = append(lines, "Alarm: "+in.AlarmTarget.String())
	}
	return lines
}
