// Package sensor provides photoplethysmography sample sources and the
// default biometric engine.
// The real source uses a MAX3010x-class sensor over Linux i2c-dev.
// The fake source allows testing without hardware.
package sensor

// Reader reads raw paired samples from the optical sensor.
type Reader interface {
	// Read returns the most recent red and infrared ADC values.
	Read() (red, ir uint32, err error)

	// Close releases sensor resources.
	Close() error
}

// Sample is one paired red/IR reading.
type Sample struct {
	Red uint32
	IR  uint32
}
