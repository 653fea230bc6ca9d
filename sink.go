package stusb4500

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/oxplot/go-stusb4500/pdo"
)

// PDOSlot is one of the three sink PDO registers.
type PDOSlot uint8

// Sink PDO slots. PDO1 must always hold a 5V profile.
const (
	PDO1 PDOSlot = 1 + iota
	PDO2
	PDO3
)

// MaxPDOs is the number of sink PDO slots.
const MaxPDOs = 3

func (s PDOSlot) register() (Register, error) {
	switch s {
	case PDO1:
		return RegDPMSNKPDO1, nil
	case PDO2:
		return RegDPMSNKPDO2, nil
	case PDO3:
		return RegDPMSNKPDO3, nil
	}
	return 0, ErrPDOSlot
}

func (s PDOSlot) String() string {
	return fmt.Sprintf("PDO%d", uint8(s))
}

// SetPDO writes a sink PDO to slot. Only fixed PDOs are accepted, anything
// else fails with ErrInvalidPDO without touching the bus.
func (d *Device) SetPDO(slot PDOSlot, o pdo.Object) error {
	if d.nvm != nil {
		return ErrNVMOpen
	}
	r, err := slot.register()
	if err != nil {
		return err
	}
	f, ok := o.(pdo.Fixed)
	if !ok {
		return fmt.Errorf("%w: %v cannot be advertised", ErrInvalidPDO, o)
	}
	d.log.WithFields(logrus.Fields{"slot": slot, "pdo": f}).Debug("set sink pdo")
	return d.writeWord(r, pdo.Encode(f))
}

// PDO reads the sink PDO in slot. A slot holding the reserved type fails with
// ErrInvalidPDO.
func (d *Device) PDO(slot PDOSlot) (pdo.Object, error) {
	r, err := slot.register()
	if err != nil {
		return nil, err
	}
	w, err := d.ReadRegister32(r)
	if err != nil {
		return nil, err
	}
	o, ok := pdo.Decode(w)
	if !ok {
		return nil, fmt.Errorf("%w: %s holds %#08x", ErrInvalidPDO, r, w)
	}
	return o, nil
}

// SetNumPDO sets the number of sink PDOs advertised, starting from PDO1.
func (d *Device) SetNumPDO(n uint8) error {
	if d.nvm != nil {
		return ErrNVMOpen
	}
	if n < 1 || n > MaxPDOs {
		return ErrPDOCount
	}
	d.log.WithField("count", n).Debug("set sink pdo count")
	return d.write(RegDPMPDONumb, n)
}

// NumPDO returns the number of sink PDOs advertised.
func (d *Device) NumPDO() (uint8, error) {
	v, err := d.ReadRegister(RegDPMPDONumb)
	return v & 0b111, err
}

// SinkPDOs returns the advertised sink PDOs in slot order.
func (d *Device) SinkPDOs() ([]pdo.Object, error) {
	n, err := d.NumPDO()
	if err != nil {
		return nil, err
	}
	if n > MaxPDOs {
		n = MaxPDOs
	}
	pdos := make([]pdo.Object, 0, n)
	for s := PDO1; s < PDO1+PDOSlot(n); s++ {
		o, err := d.PDO(s)
		if err != nil {
			return nil, err
		}
		pdos = append(pdos, o)
	}
	return pdos, nil
}

// RDO returns the request data object of the current power contract. Its
// content is undefined until a contract has been negotiated.
func (d *Device) RDO() (pdo.RDO, error) {
	w, err := d.ReadRegister32(RegRDORegStatus)
	if err != nil {
		return 0, err
	}
	return pdo.DecodeRDO(w), nil
}
