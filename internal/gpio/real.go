//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealPanel drives the panel from actual hardware using the Linux GPIO
// character device.
type RealPanel struct {
	chip   *gpiocdev.Chip
	button *gpiocdev.Line
	buzzer *gpiocdev.Line
	buzzOn bool
}

// NewRealPanel requests the button and buzzer lines on the named chip.
func NewRealPanel(chipName string, pinButton, pinBuzzer int) (*RealPanel, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	// Button wired to ground, so pull the line up.
	button, err := chip.RequestLine(pinButton, gpiocdev.AsInput, gpiocdev.WithPullUp)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request button pin %d: %w", pinButton, err)
	}

	buzzer, err := chip.RequestLine(pinBuzzer, gpiocdev.AsOutput(0))
	if err != nil {
		button.Close()
		chip.Close()
		return nil, fmt.Errorf("request buzzer pin %d: %w", pinBuzzer, err)
	}

	return &RealPanel{
		chip:   chip,
		button: button,
		buzzer: buzzer,
	}, nil
}

// Pressed reports whether the button is held. Raw 0 = pressed.
func (p *RealPanel) Pressed() (bool, error) {
	raw, err := p.button.Value()
	if err != nil {
		return false, fmt.Errorf("read button pin: %w", err)
	}
	return raw == 0, nil
}

// SetBuzzer drives the buzzer line. Unchanged levels are not rewritten.
func (p *RealPanel) SetBuzzer(on bool) error {
	if on == p.buzzOn {
		return nil
	}
	v := 0
	if on {
		v = 1
	}
	if err := p.buzzer.SetValue(v); err != nil {
		return fmt.Errorf("set buzzer pin: %w", err)
	}
	p.buzzOn = on
	return nil
}

// Close silences the buzzer and returns both pins to input with pull-down
// (matching Pi boot defaults) before closing.
func (p *RealPanel) Close() error {
	var errs []error

	if p.buzzer != nil {
		if err := p.buzzer.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("silence buzzer: %w", err))
		}
		if err := p.buzzer.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure buzzer pin: %w", err))
		}
		if err := p.buzzer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close buzzer pin: %w", err))
		}
	}
	if p.button != nil {
		if err := p.button.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure button pin: %w", err))
		}
		if err := p.button.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close button pin: %w", err))
		}
	}
	if p.chip != nil {
		if err := p.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
