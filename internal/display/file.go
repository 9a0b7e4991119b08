package display

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// File writes frames to a text file, one line per screen row.
// Unchanged frames are not rewritten.
type File struct {
	Path  string
	last  []string
	shown bool
}

// NewFile returns a display writing to path.
func NewFile(path string) *File {
	return &File{Path: path}
}

// Show writes the frame atomically via a temp file and rename.
func (f *File) Show(lines []string) error {
	if f.shown && slices.Equal(lines, f.last) {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(f.Path), 0755); err != nil {
		return fmt.Errorf("create display directory: %w", err)
	}
	var b strings.Builder
	for _, l := range lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	tmp := f.Path + ".tmp"
	if err := os.WriteFile(tmp, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	if err := os.Rename(tmp, f.Path); err != nil {
		return fmt.Errorf("replace frame: %w", err)
	}
	f.last = slices.Clone(lines)
	f.shown = true
	return nil
}
