package logic

import "testing"

func tod(h, m int) *TimeOfDay {
	return &TimeOfDay{Hour: h, Minute: m}
}

func TestBedtimeHysteresis(t *testing.T) {
	n := NewNotifier(0)
	w := SleepWindow{Bedtime: tod(22, 0)}

	if got := n.CheckSleep("bob", w, at(21, 59, 57)); len(got) != 0 {
		t.Errorf("21:59: expected nothing, got %v", got)
	}

	got := n.CheckSleep("bob", w, at(22, 0, 0))
	if len(got) != 1 || got[0].Kind != NotifyBedtime {
		t.Fatalf("22:00:00: expected one BEDTIME, got %v", got)
	}

	for _, s := range []int{3, 30, 59} {
		if got := n.CheckSleep("bob", w, at(22, 0, s)); len(got) != 0 {
			t.Errorf("22:00:%02d: refired %v", s, got)
		}
	}

	if got := n.CheckSleep("bob", w, at(22, 1, 0)); len(got) != 0 {
		t.Errorf("22:01: expected nothing, got %v", got)
	}

	// Re-armed: next matching minute fires again.
	got = n.CheckSleep("bob", w, at(22, 0, 10))
	if len(got) != 1 {
		t.Errorf("expected refire after re-arm, got %v", got)
	}
}

func TestWakeupAndBedtimeIndependent(t *testing.T) {
	n := NewNotifier(0)
	w := SleepWindow{Bedtime: tod(6, 0), Wakeup: tod(6, 0)}

	got := n.CheckSleep("bob", w, at(6, 0, 0))
	if len(got) != 2 {
		t.Fatalf("expected both triggers, got %v", got)
	}
	if got[0].Kind != NotifyBedtime || got[1].Kind != NotifyWakeup {
		t.Errorf("unexpected kinds: %s, %s", got[0].Kind, got[1].Kind)
	}
}

func TestSleepInertWithoutAccount(t *testing.T) {
	n := NewNotifier(0)
	w := SleepWindow{Bedtime: tod(22, 0), Wakeup: tod(7, 0)}
	if got := n.CheckSleep("", w, at(22, 0, 0)); got != nil {
		t.Errorf("expected nothing without an account, got %v", got)
	}
}

func TestSleepUnsetTriggersInert(t *testing.T) {
	n := NewNotifier(0)
	if got := n.CheckSleep("bob", SleepWindow{}, at(0, 0, 0)); len(got) != 0 {
		t.Errorf("expected nothing, got %v", got)
	}
}

func TestSleepFlagsResetOnAccountChange(t *testing.T) {
	n := NewNotifier(0)
	w := SleepWindow{Bedtime: tod(22, 0)}
	n.CheckSleep("bob", w, at(22, 0, 0))

	got := n.CheckSleep("alice", w, at(22, 0, 3))
	if len(got) != 1 {
		t.Errorf("new account should get its own notification, got %v", got)
	}
}

func TestMotivationRoundRobin(t *testing.T) {
	n := NewNotifier(0)

	if _, ok := n.CheckMotivation(60_000); ok {
		t.Error("message before the first hour")
	}

	now := Ticks(0)
	for i := 0; i < len(MotivationalMessages)+2; i++ {
		now += MotivationPeriodMs
		msg, ok := n.CheckMotivation(now)
		if !ok {
			t.Fatalf("round %d: expected a message", i)
		}
		want := MotivationalMessages[i%len(MotivationalMessages)]
		if msg.Kind != NotifyMotivation || msg.Lines[0] != want {
			t.Errorf("round %d: got %v, want %q", i, msg, want)
		}
		if _, ok := n.CheckMotivation(now + 60_000); ok {
			t.Errorf("round %d: second message inside the period", i)
		}
	}
}
