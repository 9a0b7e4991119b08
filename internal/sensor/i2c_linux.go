//go:build linux

package sensor

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// Defaults for a MAX30102 on the Raspberry Pi's first i2c bus.
const (
	DefaultDevice  = "/dev/i2c-1"
	DefaultAddress = 0x57
)

const (
	i2cSlave = 0x0703 // I2C_SLAVE ioctl

	regFIFOWrite  = 0x04
	regFIFORead   = 0x06
	regFIFOData   = 0x07
	regFIFOConfig = 0x08
	regMode       = 0x09
	regSpO2Config = 0x0A
	regLED1PA     = 0x0C
	regLED2PA     = 0x0D
	regPartID     = 0xFF

	partID     = 0x15
	modeReset  = 0x40
	modeSpO2   = 0x03
	fifoDepth  = 32
	sampleSize = 6 // 3 bytes red, 3 bytes IR
	sampleMask = 0x3FFFF
)

// I2CReader reads a MAX3010x over the Linux i2c-dev interface.
type I2CReader struct {
	fd   int
	last Sample
}

// NewI2CReader opens the bus device, checks the part ID and configures
// SpO2 mode at 100 samples/s with 4-sample averaging.
func NewI2CReader(device string, addr int) (*I2CReader, error) {
	fd, err := unix.Open(device, unix.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", device, err)
	}
	if err := unix.IoctlSetInt(fd, i2cSlave, addr); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("select i2c address 0x%02x: %w", addr, err)
	}

	r := &I2CReader{fd: fd}
	if err := r.init(); err != nil {
		unix.Close(fd)
		return nil, err
	}
	return r, nil
}

func (r *I2CReader) init() error {
	id, err := r.readReg(regPartID, 1)
	if err != nil {
		return fmt.Errorf("read part id: %w", err)
	}
	if id[0] != partID {
		return fmt.Errorf("unexpected part id 0x%02x", id[0])
	}

	steps := []struct {
		reg, val byte
	}{
		{regMode, modeReset},
		{regFIFOConfig, 0x4F}, // 4-sample average, rollover, almost-full at 17
		{regMode, modeSpO2},
		{regSpO2Config, 0x27}, // 4096nA range, 100 sps, 411us pulse
		{regLED1PA, 0x0A},
		{regLED2PA, 0x0A},
		{regFIFOWrite, 0},
		{regFIFORead, 0},
	}
	for _, s := range steps {
		if err := r.writeReg(s.reg, s.val); err != nil {
			return fmt.Errorf("write register 0x%02x: %w", s.reg, err)
		}
	}
	return nil
}

// Read drains the FIFO and returns the newest sample. With nothing new
// queued the previous sample is returned again.
func (r *I2CReader) Read() (uint32, uint32, error) {
	ptrs, err := r.readReg(regFIFOWrite, 3) // write ptr, overflow, read ptr
	if err != nil {
		return 0, 0, fmt.Errorf("read fifo pointers: %w", err)
	}
	n := int(ptrs[0]-ptrs[2]) & (fifoDepth - 1)
	if n == 0 {
		return r.last.Red, r.last.IR, nil
	}

	data, err := r.readReg(regFIFOData, n*sampleSize)
	if err != nil {
		return 0, 0, fmt.Errorf("read fifo: %w", err)
	}
	b := data[len(data)-sampleSize:]
	r.last = Sample{
		Red: (uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])) & sampleMask,
		IR:  (uint32(b[3])<<16 | uint32(b[4])<<8 | uint32(b[5])) & sampleMask,
	}
	return r.last.Red, r.last.IR, nil
}

// Close puts the sensor into shutdown and releases the bus.
func (r *I2CReader) Close() error {
	var errs []error
	if err := r.writeReg(regMode, 0x80); err != nil {
		errs = append(errs, fmt.Errorf("shutdown sensor: %w", err))
	}
	if err := unix.Close(r.fd); err != nil {
		errs = append(errs, fmt.Errorf("close bus: %w", err))
	}
	return errors.Join(errs...)
}

func (r *I2CReader) writeReg(reg, val byte) error {
	_, err := unix.Write(r.fd, []byte{reg, val})
	return err
}

func (r *I2CReader) readReg(reg byte, n int) ([]byte, error) {
	if _, err := unix.Write(r.fd, []byte{reg}); err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	got, err := unix.Read(r.fd, buf)
	if err != nil {
		return nil, err
	}
	if got != n {
		return nil, fmt.Errorf("short read: %d of %d bytes", got, n)
	}
	return buf, nil
}
