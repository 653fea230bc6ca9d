package stusb4500

import (
	"errors"
	"io"
	"time"

	"github.com/jpillora/backoff"
	"github.com/sirupsen/logrus"
)

// Address is the 7-bit I2C address of the chip.
type Address uint8

// DefaultAddress is the address with both address straps tied low.
const DefaultAddress Address = 0x28

// StrapAddress returns the address selected by the A1 and A0 straps, true
// meaning tied high.
func StrapAddress(a1, a0 bool) Address {
	a := DefaultAddress
	if a1 {
		a |= 1 << 1
	}
	if a0 {
		a |= 1 << 0
	}
	return a
}

// Defaults used for zero Config fields.
const (
	DefaultAckPolls = 1000

	defaultAckBackoffMin = 50 * time.Microsecond
	defaultAckBackoffMax = 5 * time.Millisecond
)

// Config holds the driver settings. The zero value is usable.
type Config struct {
	// Address is the I2C address of the chip. Zero means DefaultAddress.
	Address Address

	// AckPolls is the maximum number of NVMCtrl0 reads while waiting for the
	// chip to acknowledge an NVM request. Zero means DefaultAckPolls.
	AckPolls int

	// AckBackoff paces the acknowledge polls. Only Min, Max, Factor and Jitter
	// are used; a fresh backoff is started for every request. Nil means a 50µs
	// to 5ms exponential backoff.
	AckBackoff *backoff.Backoff

	// Verify makes NVM.WriteSectors read back all sectors and compare them
	// with what was written.
	Verify bool

	// Logger receives debug output of the NVM sequences and register writes.
	// Nil discards all output.
	Logger logrus.FieldLogger
}

var (
	errBadAddress    = errors.New("stusb4500: address must be a 7-bit value")
	errBadAckPolls   = errors.New("stusb4500: ack polls must be >= 0")
	errBadAckBackoff = errors.New("stusb4500: ack backoff min must be <= max")
)

// Validate returns an error if the config is invalid.
func (c Config) Validate() error {
	if c.Address > 0x7F {
		return errBadAddress
	}
	if c.AckPolls < 0 {
		return errBadAckPolls
	}
	if b := c.AckBackoff; b != nil && b.Min > 0 && b.Max > 0 && b.Min > b.Max {
		return errBadAckBackoff
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.Address == 0 {
		c.Address = DefaultAddress
	}
	if c.AckPolls == 0 {
		c.AckPolls = DefaultAckPolls
	}
	if c.AckBackoff == nil {
		c.AckBackoff = &backoff.Backoff{
			Min:    defaultAckBackoffMin,
			Max:    defaultAckBackoffMax,
			Factor: 2,
		}
	}
	if c.Logger == nil {
		l := logrus.New()
		l.Out = io.Discard
		c.Logger = l
	}
	return c
}

// ackBackoff returns a new backoff following the configured template.
func (c Config) ackBackoff() *backoff.Backoff {
	return &backoff.Backoff{
		Min:    c.AckBackoff.Min,
		Max:    c.AckBackoff.Max,
		Factor: c.AckBackoff.Factor,
		Jitter: c.AckBackoff.Jitter,
	}
}
