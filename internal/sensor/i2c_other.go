//go:build !linux

package sensor

import "errors"

// Defaults for a MAX30102 on the Raspberry Pi's first i2c bus.
const (
	DefaultDevice  = "/dev/i2c-1"
	DefaultAddress = 0x57
)

// I2CReader is not available on non-Linux platforms.
type I2CReader struct{}

// NewI2CReader returns an error on non-Linux platforms.
func NewI2CReader(device string, addr int) (*I2CReader, error) {
	return nil, errors.New("sensor: i2c not supported on this platform (requires Linux)")
}

// Read is not implemented on non-Linux platforms.
func (r *I2CReader) Read() (uint32, uint32, error) {
	return 0, 0, errors.New("sensor: not supported")
}

// Close is not implemented on non-Linux platforms.
func (r *I2CReader) Close() error {
	return nil
}
