// Package stusb4500 implements a driver for the STUSB4500 USB Power Delivery
// sink controller from ST.
//
// The chip negotiates power on its own, using the sink PDOs held in its
// registers, which are loaded from NVM at power up. The driver reads the
// status and the negotiated contract, sets the sink PDOs at run time and
// reprograms the NVM defaults.
//
// A Device is not safe for concurrent use. While an NVM session is open, all
// other register operations on the Device fail with ErrNVMOpen.
package stusb4500

import (
	"encoding/binary"
	"fmt"

	"github.com/sirupsen/logrus"
)

// I2C defines a minimum interface to I2C hardware with a single Tx method. It
// is satisfied by periph.io i2c.Bus and TinyGo machine.I2C.
type I2C interface {

	// Tx performs a write and then a read transfer placing the result in r.
	//
	// Passing a nil value for w or r skips the transfer corresponding to write
	// or read, respectively.
	Tx(addr uint16, w, r []byte) error
}

// Longest transfer: ClearInterrupts reads 10 consecutive status registers.
const maxTransfer = 10

// Device represents an STUSB4500 chip on an I2C bus.
type Device struct {
	bus  I2C
	addr uint16
	cfg  Config
	log  logrus.FieldLogger

	nvm *NVM // open NVM session, nil if none

	// Buffer used for all transfers, defined once here to avoid heap
	// allocations in each method used.
	buf [1 + maxTransfer]byte
}

// New returns a driver for the chip on bus. The bus is used exclusively by
// the returned Device from then on.
func New(bus I2C, cfg Config) (*Device, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()
	return &Device{
		bus:  bus,
		addr: uint16(cfg.Address),
		cfg:  cfg,
		log:  cfg.Logger,
	}, nil
}

// Address returns the I2C address the device is accessed at.
func (d *Device) Address() uint16 {
	return d.addr
}

// ReadRegister reads a single byte register.
func (d *Device) ReadRegister(r Register) (byte, error) {
	if d.nvm != nil {
		return 0, ErrNVMOpen
	}
	return d.read(r)
}

// WriteRegister writes a single byte register.
func (d *Device) WriteRegister(r Register, v byte) error {
	if d.nvm != nil {
		return ErrNVMOpen
	}
	return d.write(r, v)
}

// ReadRegister32 reads a 4 byte little-endian register.
func (d *Device) ReadRegister32(r Register) (uint32, error) {
	if d.nvm != nil {
		return 0, ErrNVMOpen
	}
	return d.readWord(r)
}

// WriteRegister32 writes a 4 byte little-endian register.
func (d *Device) WriteRegister32(r Register, v uint32) error {
	if d.nvm != nil {
		return ErrNVMOpen
	}
	return d.writeWord(r, v)
}

func (d *Device) tx(op string, r Register, w, rd []byte) error {
	if err := d.bus.Tx(d.addr, w, rd); err != nil {
		return &BusError{Op: op, Register: r, Err: err}
	}
	return nil
}

func (d *Device) write(r Register, v byte) error {
	d.buf[0] = byte(r)
	d.buf[1] = v
	return d.tx("write", r, d.buf[:2], nil)
}

func (d *Device) read(r Register) (byte, error) {
	d.buf[0] = byte(r)
	if err := d.tx("read", r, d.buf[:1], d.buf[1:2]); err != nil {
		return 0, err
	}
	return d.buf[1], nil
}

func (d *Device) writeWord(r Register, v uint32) error {
	d.buf[0] = byte(r)
	binary.LittleEndian.PutUint32(d.buf[1:5], v)
	return d.tx("write", r, d.buf[:5], nil)
}

func (d *Device) readWord(r Register) (uint32, error) {
	d.buf[0] = byte(r)
	if err := d.tx("read", r, d.buf[:1], d.buf[1:5]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(d.buf[1:5]), nil
}

func (d *Device) writeMany(r Register, p []byte) error {
	if len(p) > maxTransfer {
		return fmt.Errorf("%w: write of %d bytes to %s", errTransferSize, len(p), r)
	}
	d.buf[0] = byte(r)
	n := copy(d.buf[1:], p)
	return d.tx("write", r, d.buf[:n+1], nil)
}

func (d *Device) readMany(r Register, p []byte) error {
	if len(p) > maxTransfer {
		return fmt.Errorf("%w: read of %d bytes from %s", errTransferSize, len(p), r)
	}
	d.buf[0] = byte(r)
	n := len(p)
	if err := d.tx("read", r, d.buf[:1], d.buf[1:n+1]); err != nil {
		return err
	}
	copy(p, d.buf[1:n+1])
	return nil
}
