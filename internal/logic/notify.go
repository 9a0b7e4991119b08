package logic

// NotificationKind identifies what raised a notification.
type NotificationKind string

const (
	NotifyBedtime    NotificationKind = "BEDTIME"
	NotifyWakeup     NotificationKind = "WAKEUP"
	NotifyMotivation NotificationKind = "MOTIVATION"
)

// MotivationPeriodMs is the spacing between motivational messages.
const MotivationPeriodMs = 60 * 60 * 1000

// MotivationalMessages is the fixed round-robin message set.
var MotivationalMessages = []string{
	"Take care of your health!",
	"Water is life",
	"Move more!",
	"Deep breathing reduces stress",
	"Smile more often!",
	"Good sleep is key to health",
	"Proper nutrition matters",
	"15 minutes of sport daily",
	"Watch your posture!",
	"Health is the main wealth",
}

// Notification is a presentation-only signal.
type Notification struct {
	Kind  NotificationKind
	Lines []string
}

// SleepWindow is an account's optional bedtime and wake-up time.
type SleepWindow struct {
	Bedtime *TimeOfDay
	Wakeup  *TimeOfDay
}

// Notifier raises bedtime, wake-up and motivational notifications.
// Each sleep trigger fires at most once while the clock stays in the
// target minute and re-arms as soon as the minute changes.
type Notifier struct {
	account   string
	bedShown  bool
	wakeShown bool

	messages   []string
	next       int
	motivation Gate
}

// NewNotifier returns a notifier whose first motivational message is due
// one period after start.
func NewNotifier(start Ticks) *Notifier {
	return &Notifier{
		messages:   MotivationalMessages,
		motivation: NewGate(MotivationPeriodMs, start),
	}
}

// CheckSleep evaluates the sleep triggers of the active account. An empty
// account name means nobody is logged in and nothing fires.
func (n *Notifier) CheckSleep(account string, w SleepWindow, r ClockReading) []Notification {
	if account != n.account {
		n.account = account
		n.bedShown = false
		n.wakeShown = false
	}
	if account == "" {
		return nil
	}

	minute := r.MinuteOfDay()
	var out []Notification
	if edge(&n.bedShown, w.Bedtime, minute) {
		out = append(out, Notification{Kind: NotifyBedtime, Lines: []string{"TIME TO SLEEP!", "Good night!"}})
	}
	if edge(&n.wakeShown, w.Wakeup, minute) {
		out = append(out, Notification{Kind: NotifyWakeup, Lines: []string{"GOOD MORNING!", "TIME TO WAKE UP!"}})
	}
	return out
}

// edge implements the hysteresis flag for one trigger.
func edge(shown *bool, target *TimeOfDay, minute int) bool {
	if target == nil || minute != target.MinuteOfDay() {
		*shown = false
		return false
	}
	if *shown {
		return false
	}
	*shown = true
	return true
}

// CheckMotivation returns the next motivational message once per period.
func (n *Notifier) CheckMotivation(now Ticks) (Notification, bool) {
	if len(n.messages) == 0 || !n.motivation.Ready(now) {
		return Notification{}, false
	}
	msg := n.messages[n.next]
	n.next = (n.next + 1) % len(n.messages)
	return Notification{Kind: NotifyMotivation, Lines: []string{msg}}, true
}
