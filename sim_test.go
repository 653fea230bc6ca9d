package stusb4500

import (
	"errors"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

var errNack = errors.New("sim: nack")

// erased is the content of an erased sector.
var erased = Sector{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

type simRequest struct {
	op     byte // opcode, without erase sector flags
	sector uint8
}

// sim models the register file and the NVM controller of the chip.
type sim struct {
	addr uint16
	regs [256]byte
	nvm  Sectors
	plr  Sector
	ser  byte

	// busy is the number of NVMCtrl0 reads that still show the request bit
	// after a request is started. stuck keeps it set forever.
	busy    int
	stuck   bool
	pending int

	// fail, if set, is consulted before every transfer.
	fail func(w, r []byte) error
	// corrupt, if set, is applied to data programmed into a sector.
	corrupt func(sector uint8, s Sector) Sector

	requests []simRequest
	ctrlPoll int
}

var _ i2c.Bus = (*sim)(nil)

func newSim() *sim {
	s := &sim{addr: uint16(DefaultAddress)}
	for i := range s.nvm {
		s.nvm[i] = erased
	}
	return s
}

func (s *sim) String() string { return "sim" }

func (s *sim) SetSpeed(physic.Frequency) error { return nil }

func (s *sim) Tx(addr uint16, w, r []byte) error {
	if addr != s.addr {
		return errNack
	}
	if s.fail != nil {
		if err := s.fail(w, r); err != nil {
			return err
		}
	}
	if len(w) == 0 {
		return errors.New("sim: register pointer not written")
	}
	reg := w[0]
	for i, b := range w[1:] {
		s.writeReg(reg+uint8(i), b)
	}
	for i := range r {
		r[i] = s.readReg(reg + uint8(i))
	}
	return nil
}

func (s *sim) writeReg(reg, v byte) {
	s.regs[reg] = v
	if Register(reg) == RegNVMCtrl0 && v&nvmCtrl0Request != 0 {
		s.pending = s.busy
		s.execute(v & 0b111)
	}
}

func (s *sim) readReg(reg byte) byte {
	if Register(reg) == RegNVMCtrl0 {
		s.ctrlPoll++
		if s.regs[reg]&nvmCtrl0Request != 0 && !s.stuck {
			if s.pending > 0 {
				s.pending--
			} else {
				s.regs[reg] &^= nvmCtrl0Request
			}
		}
	}
	return s.regs[reg]
}

func (s *sim) unlocked() bool {
	const on = nvmCtrl0Power | nvmCtrl0Enable
	return s.regs[RegNVMPassword] == nvmPassword && s.regs[RegNVMCtrl0]&on == on
}

func (s *sim) execute(sector uint8) {
	ctrl1 := s.regs[RegNVMCtrl1]
	op := ctrl1 & 0b111
	s.requests = append(s.requests, simRequest{op: op, sector: sector})
	if !s.unlocked() {
		return
	}
	buf := s.regs[RegRWBuffer : RegRWBuffer+SectorSize]
	switch op {
	case nvmOpReadSector:
		copy(buf, s.nvm[sector][:])
	case nvmOpLoadPLR:
		copy(s.plr[:], buf)
	case nvmOpLoadSER:
		s.ser = ctrl1 &^ 0b111
	case nvmOpEraseSectors:
		for i := range s.nvm {
			if s.ser&(nvmCtrl1EraseSector0<<i) != 0 {
				s.nvm[i] = erased
			}
		}
	case nvmOpWriteSector:
		data := s.plr
		if s.corrupt != nil {
			data = s.corrupt(sector, data)
		}
		s.nvm[sector] = data
	}
}
