// Package profile implements some useful sink profiles for common use. A
// profile turns a power requirement into the fixed PDOs the STUSB4500
// advertises to the source.
//
// The chip requests the highest numbered PDO the source can satisfy, falling
// back to lower numbered ones and finally to PDO1, which is always 5V.
package profile

import (
	"errors"
	"fmt"
	"io"

	"periph.io/x/conn/v3/physic"

	stusb4500 "github.com/oxplot/go-stusb4500"
	"github.com/oxplot/go-stusb4500/pdo"
)

// Policy is a sink profile.
type Policy interface {
	// Validate returns an error if the policy parameters are invalid.
	Validate() error

	// SinkPDOs returns the PDOs to advertise, PDO1 first. There are always
	// between 1 and stusb4500.MaxPDOs of them and the first is 5V.
	SinkPDOs() []pdo.Fixed
}

const (
	vSafe5V    = 5000  // mV
	maxVoltage = 20000 // mV
	maxCurrent = 5000  // mA
)

var (
	errBadVoltage            = errors.New("profile: voltage must be >= 5000mV & <= 20000mV")
	errBadCurrent            = errors.New("profile: current must be <= 5000mA")
	errBadPower              = errors.New("profile: power must be > 0 and need <= 5000mA at min voltage")
	errMaxVoltageLessThanMin = errors.New("profile: max voltage must be >= min voltage")
)

func validateVoltages(lo, hi uint16) error {
	if lo < vSafe5V || hi < vSafe5V || lo > maxVoltage || hi > maxVoltage {
		return errBadVoltage
	}
	if lo > hi {
		return errMaxVoltageLessThanMin
	}
	return nil
}

// sinkVoltages returns the voltages to advertise for the given range, 5V
// first and the highest last.
func sinkVoltages(lo, hi uint16) []uint16 {
	vs := []uint16{vSafe5V}
	if lo > vSafe5V && lo < hi {
		vs = append(vs, lo)
	}
	if hi > vSafe5V {
		vs = append(vs, hi)
	}
	return vs
}

// fixed returns a fixed PDO for voltage in mV and current in mA. Voltage is
// rounded to the nearest 50mV and current up to the next 10mA.
func fixed(voltage uint16, current uint32) pdo.Fixed {
	return pdo.NewFixed((voltage+25)/50, uint16((current+9)/10))
}

// CVPolicy defines a constant voltage profile where the source is expected to
// supply a voltage between MinVoltage and MaxVoltage, preferring the highest,
// and to be capable of supplying at least Current at it.
type CVPolicy struct {

	// Minimum accepted voltage in millivolts.
	MinVoltage uint16

	// Maximum accepted voltage in millivolts.
	MaxVoltage uint16

	// Current in milliamps that the source must be able to supply at the
	// negotiated voltage.
	Current uint16
}

// Validate returns an error if the policy parameters are invalid.
func (c CVPolicy) Validate() error {
	if c.Current > maxCurrent {
		return errBadCurrent
	}
	return validateVoltages(c.MinVoltage, c.MaxVoltage)
}

// SinkPDOs returns 5V, MinVoltage and MaxVoltage profiles at Current,
// skipping duplicates.
func (c CVPolicy) SinkPDOs() []pdo.Fixed {
	vs := sinkVoltages(c.MinVoltage, c.MaxVoltage)
	pdos := make([]pdo.Fixed, len(vs))
	for i, v := range vs {
		pdos[i] = fixed(v, uint32(c.Current))
	}
	return pdos
}

// CPPolicy defines a constant power profile where the source is expected to
// be capable of supplying Power at the negotiated voltage. CPPolicy is a
// special case of CVPolicy where the current is calculated from the power and
// voltage.
type CPPolicy struct {

	// Minimum accepted voltage in millivolts.
	MinVoltage uint16

	// Maximum accepted voltage in millivolts.
	MaxVoltage uint16

	// Power in milliwatts that the source must be able to supply at the
	// negotiated voltage.
	Power uint32
}

// Validate returns an error if the policy parameters are invalid.
func (c CPPolicy) Validate() error {
	if err := validateVoltages(c.MinVoltage, c.MaxVoltage); err != nil {
		return err
	}
	if c.Power == 0 || currentFor(c.Power, c.MinVoltage) > maxCurrent {
		return errBadPower
	}
	return nil
}

// currentFor returns the current in mA needed to draw power mW at voltage mV,
// rounded up.
func currentFor(power uint32, voltage uint16) uint64 {
	return (uint64(power)*1000 + uint64(voltage) - 1) / uint64(voltage)
}

// SinkPDOs returns 5V, MinVoltage and MaxVoltage profiles, each with the
// current needed to draw Power. The 5V profile current is capped at 5A since
// PDO1 must always be advertised.
func (c CPPolicy) SinkPDOs() []pdo.Fixed {
	vs := sinkVoltages(c.MinVoltage, c.MaxVoltage)
	pdos := make([]pdo.Fixed, len(vs))
	for i, v := range vs {
		cur := currentFor(c.Power, v)
		if cur > maxCurrent {
			cur = maxCurrent
		}
		pdos[i] = fixed(v, uint32(cur))
	}
	return pdos
}

// Sink is the part of stusb4500.Device a profile is applied to.
type Sink interface {
	SetPDO(slot stusb4500.PDOSlot, o pdo.Object) error
	SetNumPDO(n uint8) error
	SoftReset() error
}

var _ Sink = (*stusb4500.Device)(nil)

// Apply validates p, writes its PDOs to the sink PDO slots in order and sets
// the number of advertised PDOs. If softReset is true, a soft reset is sent
// afterwards so the source renegotiates with the new PDOs. Otherwise they are
// only used in the next negotiation.
//
// The PDOs are not persisted to NVM.
func Apply(s Sink, p Policy, softReset bool) error {
	if err := p.Validate(); err != nil {
		return err
	}
	pdos := p.SinkPDOs()
	if len(pdos) == 0 || len(pdos) > stusb4500.MaxPDOs {
		return fmt.Errorf("profile: policy returned %d pdos", len(pdos))
	}
	for i, f := range pdos {
		if err := s.SetPDO(stusb4500.PDO1+stusb4500.PDOSlot(i), f); err != nil {
			return err
		}
	}
	if err := s.SetNumPDO(uint8(len(pdos))); err != nil {
		return err
	}
	if softReset {
		return s.SoftReset()
	}
	return nil
}

// Logger is a passthrough policy that writes a textual description of the
// advertised PDOs to a given io.Writer. It's mostly used for debugging
// purposes.
type Logger struct {
	w    io.Writer
	sep  string
	base Policy
}

// NewLogger creates a new logger which will write to the given writer and
// passes through to base, which must not be nil. Line separator is written
// to the writer after each line of output. Some common values are "\n", "\r",
// "\r\n".
func NewLogger(w io.Writer, lineSep string, base Policy) *Logger {
	return &Logger{
		w:    w,
		sep:  lineSep,
		base: base,
	}
}

// Validate returns the base policy validation result.
func (l *Logger) Validate() error {
	return l.base.Validate()
}

// SinkPDOs writes out the description of the PDOs of the base policy and
// returns them.
func (l *Logger) SinkPDOs() []pdo.Fixed {
	pdos := l.base.SinkPDOs()
	fmt.Fprintf(l.w, "Advertising %d profiles:%s", len(pdos), l.sep)
	for i, f := range pdos {
		fmt.Fprintf(l.w, "  %d) %s%s", i+1, describe(f), l.sep)
	}
	return pdos
}

// Contract writes out the power contract described by rdo, given the PDOs
// that were advertised when it was negotiated.
func (l *Logger) Contract(advertised []pdo.Object, rdo pdo.RDO) {
	p := int(rdo.Position())
	if p == 0 || p > len(advertised) {
		fmt.Fprintf(l.w, "No contract%s", l.sep)
		return
	}
	mismatch := ""
	if rdo.CapabilityMismatch() {
		mismatch = " (capability mismatch)"
	}
	cur := physic.ElectricCurrent(rdo.OperatingCurrent()) * pdo.CurrentUnit
	fmt.Fprintf(l.w, "Contract on profile %d: %s, operating %.2fA%s%s",
		p, describe(advertised[p-1]), float64(cur)/float64(physic.Ampere), mismatch, l.sep)
}

func describe(o pdo.Object) string {
	switch o := o.(type) {
	case pdo.Fixed:
		v, c := o.ElectricPotential(), o.ElectricCurrent()
		return fmt.Sprintf("Fixed %.2fV @ %.2fA", float64(v)/float64(physic.Volt), float64(c)/float64(physic.Ampere))
	case pdo.Variable:
		return "Variable (not supported)"
	case pdo.Battery:
		return "Battery (not supported)"
	}
	return "INVALID!"
}
