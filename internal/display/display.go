// Package display renders composed screen frames.
// The file display writes each frame as plain text for a framebuffer
// console or a kiosk to pick up. The fake records frames for tests.
package display

// Display shows one composed frame. An empty frame blanks the screen.
type Display interface {
	Show(lines []string) error
}
