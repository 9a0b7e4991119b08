package logic

import (
	"reflect"
	"testing"
)

func TestComposeStatusFrame(t *testing.T) {
	s := NewScreen()
	in := ScreenInput{
		Reading:      at(7, 5, 9),
		Ready:        true,
		Present:      true,
		BeatDetected: true,
		Vitals:       Vitals{PulseBPM: 72, SpO2: 98},
		Username:     "bob",
		AlarmTarget:  tod(7, 30),
	}
	want := []string{
		"Health Monitoring",
		"Time: 07:05:09 [A]",
		"Pulse: 72 bpm",
		"SpO2: 98%",
		"User: bob",
		"Alarm: 07:30",
	}
	if got := s.Compose(in, 0); !reflect.DeepEqual(got, want) {
		t.Errorf("got %q\nwant %q", got, want)
	}
}

func TestComposeNoFingerNoUser(t *testing.T) {
	s := NewScreen()
	got := s.Compose(ScreenInput{Ready: true}, 0)
	want := []string{"Health Monitoring", "Time: 00:00:00", "Place finger", "Not logged in"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestComposeHidesPulseWithoutBeat(t *testing.T) {
	s := NewScreen()
	got := s.Compose(ScreenInput{Ready: true, Present: true, Vitals: Vitals{PulseBPM: 80, SpO2: 97}}, 0)
	if got[2] != "Pulse: 0 bpm" {
		t.Errorf("got %q", got[2])
	}
}

func TestComposeNotReady(t *testing.T) {
	s := NewScreen()
	got := s.Compose(ScreenInput{Present: true}, 0)
	if got[2] != "Sensor not ready" {
		t.Errorf("got %q", got[2])
	}
}

func TestComposeAlarmPreemptsBanner(t *testing.T) {
	s := NewScreen()
	s.ShowBanner([]string{"hello"}, 0, BannerLongMs)

	got := s.Compose(ScreenInput{AlarmTriggered: true, BlinkOn: true}, 100)
	if len(got) == 0 || got[0] != "ALARM!" {
		t.Errorf("expected ALARM! frame, got %q", got)
	}
	got = s.Compose(ScreenInput{AlarmTriggered: true, BlinkOn: false}, 100)
	if len(got) != 0 {
		t.Errorf("expected blank blink phase, got %q", got)
	}
}

func TestBannerExpires(t *testing.T) {
	s := NewScreen()
	s.ShowBanner([]string{"Alarm set to:", "07:30"}, 1000, BannerMediumMs)

	got := s.Compose(ScreenInput{Ready: true}, 2999)
	if got[0] != "Alarm set to:" {
		t.Errorf("banner missing before expiry: %q", got)
	}
	got = s.Compose(ScreenInput{Ready: true}, 3000)
	if got[0] != "Health Monitoring" {
		t.Errorf("banner still shown after expiry: %q", got)
	}
	if s.Banner(3000) != nil {
		t.Error("Banner should be nil after expiry")
	}
}

func TestAssessHealth(t *testing.T) {
	tests := []struct {
		name string
		in   Vitals
		want []WarningCode
	}{
		{"no reading", Vitals{}, nil},
		{"normal", Vitals{PulseBPM: 72, SpO2: 98}, nil},
		{"low pulse", Vitals{PulseBPM: 59, SpO2: 98}, []WarningCode{WarnPulseLow}},
		{"high pulse", Vitals{PulseBPM: 101, SpO2: 95}, []WarningCode{WarnPulseHigh}},
		{"low spo2", Vitals{PulseBPM: 60, SpO2: 94}, []WarningCode{WarnSpO2Low}},
		{"critical spo2", Vitals{PulseBPM: 100, SpO2: 89}, []WarningCode{WarnSpO2Critical}},
		{"both", Vitals{PulseBPM: 130, SpO2: 85}, []WarningCode{WarnPulseHigh, WarnSpO2Critical}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AssessHealth(tt.in)
			var codes []WarningCode
			for _, w := range got {
				codes = append(codes, w.Code)
				if w.Message == "" {
					t.Errorf("%s: empty message", w.Code)
				}
			}
			if !reflect.DeepEqual(codes, tt.want) {
				t.Errorf("got %v, want %v", codes, tt.want)
			}
		})
	}
}

func TestGate(t *testing.T) {
	g := NewGate(1000, 0)
	if g.Ready(999) {
		t.Error("ready before period")
	}
	if !g.Ready(1000) {
		t.Error("not ready at period")
	}
	if g.Ready(1500) {
		t.Error("ready twice in one period")
	}

	var every Gate
	for i := Ticks(0); i < 3; i++ {
		if !every.Ready(i) {
			t.Errorf("zero-period gate refused call %d", i)
		}
	}
}

func TestDebouncer(t *testing.T) {
	d := NewDebouncer(50)

	// Baseline: released (low) held for 50ms.
	for now := Ticks(0); now <= 50; now += 10 {
		if _, ok := d.Process(false, now); ok {
			t.Fatalf("transition reported during baseline at %d", now)
		}
	}
	if !d.IsBaselined() || d.Stable() != LevelLow {
		t.Fatalf("expected LOW baseline, got baselined=%v stable=%s", d.IsBaselined(), d.Stable())
	}

	// Glitch shorter than the debounce period is ignored.
	d.Process(true, 60)
	d.Process(false, 80)
	if d.Stable() != LevelLow {
		t.Error("glitch changed stable level")
	}

	// Held press is reported once.
	d.Process(true, 100)
	if _, ok := d.Process(true, 140); ok {
		t.Error("press reported before debounce period")
	}
	level, ok := d.Process(true, 150)
	if !ok || level != LevelHigh {
		t.Errorf("expected HIGH transition, got %s ok=%v", level, ok)
	}
	if _, ok := d.Process(true, 300); ok {
		t.Error("press reported twice")
	}
}
