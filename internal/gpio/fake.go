package gpio

import "errors"

// FakePanel is a test double with a scripted button and a recorded buzzer.
type FakePanel struct {
	// Presses contains scripted button levels. Each call to Pressed()
	// consumes the next one; the last level repeats once exhausted.
	Presses []bool

	index int

	// Buzzer is the current buzzer output.
	Buzzer bool

	// BuzzerChanges records every distinct buzzer level written.
	BuzzerChanges []bool

	// Closed tracks if Close was called
	Closed bool

	// ReadError, if set, will be returned by Pressed()
	ReadError error
}

// NewFakePanel creates a FakePanel with the given button levels.
func NewFakePanel(presses ...bool) *FakePanel {
	return &FakePanel{Presses: presses}
}

// Pressed returns the next scripted button level.
func (f *FakePanel) Pressed() (bool, error) {
	if f.ReadError != nil {
		return false, f.ReadError
	}
	if len(f.Presses) == 0 {
		return false, errors.New("no button levels configured")
	}
	p := f.Presses[f.index]
	if f.index < len(f.Presses)-1 {
		f.index++
	}
	return p, nil
}

// SetBuzzer records the buzzer level.
func (f *FakePanel) SetBuzzer(on bool) error {
	if on != f.Buzzer {
		f.BuzzerChanges = append(f.BuzzerChanges, on)
	}
	f.Buzzer = on
	return nil
}

// Close marks the panel as closed.
func (f *FakePanel) Close() error {
	f.Closed = true
	return nil
}

// Script replaces the button levels and rewinds.
func (f *FakePanel) Script(presses ...bool) {
	f.Presses = presses
	f.index = 0
}
