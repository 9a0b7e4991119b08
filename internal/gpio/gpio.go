// Package gpio drives the alarm panel with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Panel is the physical alarm panel: a dismiss button and a buzzer.
type Panel interface {
	// Pressed returns the raw button level. The button pulls the line
	// low when pressed (active low), so raw 0 = pressed.
	Pressed() (bool, error)

	// SetBuzzer drives the buzzer output.
	SetBuzzer(on bool) error

	// Close releases GPIO resources.
	Close() error
}

// Pin defaults (BCM numbering)
const (
	DefaultChip      = "gpiochip0"
	DefaultPinButton = 17
	DefaultPinBuzzer = 27
)
