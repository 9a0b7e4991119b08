package display

import "slices"

// Fake records every frame shown.
type Fake struct {
	Frames [][]string

	// ShowError, if set, will be returned by Show()
	ShowError error
}

// Show records a copy of the frame.
func (f *Fake) Show(lines []string) error {
	if f.ShowError != nil {
		return f.ShowError
	}
	f.Frames = append(f.Frames, slices.Clone(lines))
	return nil
}

// Last returns the most recent frame, or nil.
func (f *Fake) Last() []string {
	if len(f.Frames) == 0 {
		return nil
	}
	return f.Frames[len(f.Frames)-1]
}
