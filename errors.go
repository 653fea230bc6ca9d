package stusb4500

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidPDO is returned when a non-fixed PDO is written to a sink
	// slot, or a slot holds a word with the reserved type tag.
	ErrInvalidPDO = errors.New("stusb4500: invalid pdo")

	// ErrPDOCount is returned by SetNumPDO for counts outside 1-3.
	ErrPDOCount = errors.New("stusb4500: pdo count must be 1, 2 or 3")

	// ErrPDOSlot is returned for a PDOSlot other than PDO1, PDO2 and PDO3.
	ErrPDOSlot = errors.New("stusb4500: invalid pdo slot")

	// ErrAckTimeout is returned when the chip does not clear the NVM request
	// bit within the configured number of polls.
	ErrAckTimeout = errors.New("stusb4500: nvm request not acknowledged")

	// ErrVerifyMismatch is wrapped by VerifyError.
	ErrVerifyMismatch = errors.New("stusb4500: nvm verify mismatch")

	// ErrSector is returned for sector indexes outside 0-4.
	ErrSector = errors.New("stusb4500: invalid nvm sector")

	// ErrNVMOpen is returned by register operations while an NVM session
	// holds the bus, and by UnlockNVM if one is already open.
	ErrNVMOpen = errors.New("stusb4500: nvm session open")

	// ErrNVMClosed is returned by operations on a locked NVM session.
	ErrNVMClosed = errors.New("stusb4500: nvm session closed")

	errTransferSize = errors.New("stusb4500: transfer larger than buffer")
)

// BusError is a transport failure. It is never retried by the driver.
type BusError struct {
	Op       string // "read" or "write"
	Register Register
	Err      error
}

func (e *BusError) Error() string {
	return fmt.Sprintf("stusb4500: %s %s: %v", e.Op, e.Register, e.Err)
}

func (e *BusError) Unwrap() error {
	return e.Err
}

// VerifyError reports an NVM sector whose content read back differs from what
// was programmed.
type VerifyError struct {
	Sector    int
	Want, Got Sector
}

func (e *VerifyError) Error() string {
	return fmt.Sprintf("stusb4500: nvm sector %d: wrote % x, read % x", e.Sector, e.Want[:], e.Got[:])
}

func (e *VerifyError) Unwrap() error {
	return ErrVerifyMismatch
}
