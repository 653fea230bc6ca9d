package stusb4500

import (
	"bytes"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

// NVM geometry.
const (
	NVMSectors = 5
	SectorSize = 8
)

// Sector is the content of one NVM sector, the unit of programming.
type Sector [SectorSize]byte

// Sectors is the content of the whole NVM.
type Sectors [NVMSectors]Sector

// nvmState is the stage of the NVM sequence a session last entered.
type nvmState string

const (
	nvmLocked      nvmState = "locked"
	nvmUnlocked    nvmState = "unlocked"
	nvmReading     nvmState = "reading"
	nvmErasing     nvmState = "erasing"
	nvmProgramming nvmState = "programming"
)

// NVM is an unlocked NVM session. It holds the device exclusively until Lock
// or Close is called.
//
// Multi-sector writes are not atomic: if one step fails, earlier steps have
// already taken effect on the chip and the NVM content is indeterminate. Read
// it back and verify after any failure.
type NVM struct {
	d     *Device
	state nvmState
}

// UnlockNVM enters the NVM password and powers up the NVM controller. If it
// fails, the chip may or may not be unlocked.
func (d *Device) UnlockNVM() (*NVM, error) {
	if d.nvm != nil {
		return nil, ErrNVMOpen
	}
	d.log.Debug("nvm: unlock")
	if err := d.write(RegNVMPassword, nvmPassword); err != nil {
		return nil, err
	}
	if err := d.write(RegNVMCtrl0, 0); err != nil {
		return nil, err
	}
	if err := d.write(RegNVMCtrl0, nvmCtrl0Power|nvmCtrl0Enable); err != nil {
		return nil, err
	}
	n := &NVM{d: d, state: nvmUnlocked}
	d.nvm = n
	return n, nil
}

func (n *NVM) check() error {
	if n.state == nvmLocked {
		return ErrNVMClosed
	}
	return nil
}

func (n *NVM) enter(s nvmState) {
	if n.state != s {
		n.d.log.WithField("from", n.state).Debugf("nvm: %s", s)
		n.state = s
	}
}

// request loads op into NVMCtrl1, starts it on sector and waits for the chip
// to clear the request bit.
func (n *NVM) request(op byte, sector uint8) error {
	d := n.d
	if err := d.write(RegNVMCtrl1, op); err != nil {
		return err
	}
	if err := d.write(RegNVMCtrl0, sector&0b111|nvmCtrl0Power|nvmCtrl0Enable|nvmCtrl0Request); err != nil {
		return err
	}
	b := d.cfg.ackBackoff()
	for i := 1; ; i++ {
		v, err := d.read(RegNVMCtrl0)
		if err != nil {
			return err
		}
		if v&nvmCtrl0Request == 0 {
			d.log.WithFields(logrus.Fields{"op": op, "sector": sector, "polls": i}).Debug("nvm: request done")
			return nil
		}
		if i >= d.cfg.AckPolls {
			break
		}
		time.Sleep(b.Duration())
	}
	d.log.WithFields(logrus.Fields{"op": op, "sector": sector}).Warn("nvm: request not acknowledged")
	return fmt.Errorf("%w: opcode %#x sector %d after %d polls", ErrAckTimeout, op, sector, d.cfg.AckPolls)
}

func checkSector(i int) error {
	if i < 0 || i >= NVMSectors {
		return fmt.Errorf("%w: %d", ErrSector, i)
	}
	return nil
}

// ReadSector reads sector i.
func (n *NVM) ReadSector(i int) (Sector, error) {
	var s Sector
	if err := n.check(); err != nil {
		return s, err
	}
	if err := checkSector(i); err != nil {
		return s, err
	}
	n.enter(nvmReading)
	if err := n.request(nvmOpReadSector, uint8(i)); err != nil {
		return s, err
	}
	if err := n.d.readMany(RegRWBuffer, s[:]); err != nil {
		return s, err
	}
	n.d.log.WithField("sector", i).Debugf("nvm: read % x", s[:])
	return s, nil
}

// ReadSectors reads all sectors in index order.
func (n *NVM) ReadSectors() (Sectors, error) {
	var ss Sectors
	for i := range ss {
		s, err := n.ReadSector(i)
		if err != nil {
			return ss, err
		}
		ss[i] = s
	}
	return ss, nil
}

// EraseSectors erases all sectors. There is no partial erase.
func (n *NVM) EraseSectors() error {
	if err := n.check(); err != nil {
		return err
	}
	n.enter(nvmErasing)
	if err := n.request(nvmOpLoadSER|nvmCtrl1EraseAll, 0); err != nil {
		return err
	}
	return n.request(nvmOpEraseSectors, 0)
}

// WriteSector programs sector i with data. The sector must have been erased.
func (n *NVM) WriteSector(i int, data Sector) error {
	if err := n.check(); err != nil {
		return err
	}
	if err := checkSector(i); err != nil {
		return err
	}
	n.enter(nvmProgramming)
	if err := n.d.writeMany(RegRWBuffer, data[:]); err != nil {
		return err
	}
	if err := n.request(nvmOpLoadPLR, 0); err != nil {
		return err
	}
	if err := n.request(nvmOpWriteSector, uint8(i)); err != nil {
		return err
	}
	n.d.log.WithField("sector", i).Debugf("nvm: wrote % x", data[:])
	return nil
}

// WriteSectors erases the NVM and programs all sectors in index order. If
// Config.Verify is set, all sectors are read back afterwards and compared.
//
// A failure part way leaves the sectors before the failing one programmed and
// the rest erased. Nothing is rolled back.
func (n *NVM) WriteSectors(ss Sectors) error {
	if err := n.EraseSectors(); err != nil {
		return fmt.Errorf("stusb4500: nvm erase: %w", err)
	}
	for i, s := range ss {
		if err := n.WriteSector(i, s); err != nil {
			return fmt.Errorf("stusb4500: nvm program sector %d: %w", i, err)
		}
	}
	if n.d.cfg.Verify {
		return n.Verify(ss)
	}
	return nil
}

// Verify reads back all sectors and compares them with want. Each differing
// sector is reported as a *VerifyError, combined with multierr.
func (n *NVM) Verify(want Sectors) error {
	got, err := n.ReadSectors()
	if err != nil {
		return err
	}
	var errs error
	for i := range want {
		if !bytes.Equal(want[i][:], got[i][:]) {
			n.d.log.WithField("sector", i).Warn("nvm: verify mismatch")
			errs = multierr.Append(errs, &VerifyError{Sector: i, Want: want[i], Got: got[i]})
		}
	}
	return errs
}

// Lock powers down the NVM controller and clears the password, ending the
// session. If Lock fails the session stays open and Lock may be called again.
func (n *NVM) Lock() error {
	if err := n.check(); err != nil {
		return err
	}
	d := n.d
	if err := d.write(RegNVMCtrl0, nvmCtrl0Enable); err != nil {
		return err
	}
	if err := d.write(RegNVMCtrl1, 0); err != nil {
		return err
	}
	if err := d.write(RegNVMPassword, 0); err != nil {
		return err
	}
	n.enter(nvmLocked)
	d.nvm = nil
	return nil
}

// Close locks the NVM if the session is still open. It is meant to be
// deferred right after UnlockNVM; calling it on a locked session is a no-op.
func (n *NVM) Close() error {
	if n.state == nvmLocked {
		return nil
	}
	return n.Lock()
}
