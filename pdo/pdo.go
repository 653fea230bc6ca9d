// Package pdo encodes and decodes the 32-bit sink Power Data Objects and the
// Request Data Object exchanged with a USB Power Delivery sink controller.
//
// Field widths and offsets are a contract with the chip and are kept
// bit-for-bit. All voltage, current and power fields are stored in their raw
// register units; the physical value accessors convert them using
// periph.io/x/conn/v3/physic.
package pdo

import (
	"fmt"

	"periph.io/x/conn/v3/physic"
)

// Units of the raw 10-bit fields.
const (
	VoltageUnit = 50 * physic.MilliVolt
	CurrentUnit = 10 * physic.MilliAmpere
	PowerUnit   = 250 * physic.MilliWatt
)

const (
	fieldMask = 1<<10 - 1
	typeShift = 30
)

// Type identifies the variant of a power data object, stored in the two most
// significant bits of the word.
type Type uint8

// Power data object types.
const (
	TypeFixed    Type = 0b00
	TypeVariable Type = 0b01
	TypeBattery  Type = 0b10
	typeReserved Type = 0b11
)

func (t Type) String() string {
	switch t {
	case TypeFixed:
		return "fixed"
	case TypeVariable:
		return "variable"
	case TypeBattery:
		return "battery"
	default:
		return "reserved"
	}
}

// TypeOf returns the type tag of w. The reserved tag is reported as is, and
// Decode rejects it.
func TypeOf(w uint32) Type {
	return Type(w >> typeShift)
}

// Object is a decoded power data object. It is implemented by Fixed, Variable
// and Battery only.
type Object interface {
	// Type returns the variant of the object.
	Type() Type

	// Word returns the 32-bit encoding of the object.
	Word() uint32

	fmt.Stringer
	object()
}

// Decode returns the power data object encoded in w. It returns false if the
// type tag is the reserved value.
func Decode(w uint32) (Object, bool) {
	switch TypeOf(w) {
	case TypeFixed:
		return Fixed(w), true
	case TypeVariable:
		return Variable(w), true
	case TypeBattery:
		return Battery(w), true
	}
	return nil, false
}

// Encode returns the 32-bit encoding of o.
func Encode(o Object) uint32 {
	return o.Word()
}

func field(w uint32, shift uint) uint16 {
	return uint16((w >> shift) & fieldMask)
}

func setField(w uint32, shift uint, v uint16) uint32 {
	return (w & ^(uint32(fieldMask) << shift)) | (uint32(v)&fieldMask)<<shift
}

func setBit(w uint32, bit uint, v bool) uint32 {
	w &= ^(uint32(1) << bit)
	if v {
		w |= 1 << bit
	}
	return w
}

// FastRoleSwap is the current a sink requires from the new source after a
// fast role swap.
type FastRoleSwap uint8

// Fast role swap required currents.
const (
	FastRoleSwapNotSupported FastRoleSwap = 0b00
	FastRoleSwapDefaultUSB   FastRoleSwap = 0b01
	FastRoleSwap1A5          FastRoleSwap = 0b10 // 1.5A at 5V
	FastRoleSwap3A0          FastRoleSwap = 0b11 // 3A at 5V
)

func (f FastRoleSwap) String() string {
	switch f {
	case FastRoleSwapNotSupported:
		return "not-supported"
	case FastRoleSwapDefaultUSB:
		return "default-usb"
	case FastRoleSwap1A5:
		return "1.5A@5V"
	default:
		return "3A@5V"
	}
}

// Fixed is a fixed supply sink PDO. It is the only variant a sink controller
// accepts in its capability slots.
//
//	31:30 type (00)
//	29    dual role power
//	28    higher capability
//	27    unconstrained power
//	26    USB communications capable
//	25    dual role data
//	24:23 fast role swap
//	22:20 reserved
//	19:10 voltage (50mV units)
//	9:0   operational current (10mA units)
type Fixed uint32

// NewFixed returns a fixed PDO with the given voltage in 50mV units and
// current in 10mA units and all flags cleared. Values are truncated to 10
// bits.
func NewFixed(voltage, current uint16) Fixed {
	return Fixed(0).WithVoltage(voltage).WithCurrent(current)
}

func (Fixed) object() {}

// Type returns TypeFixed.
func (Fixed) Type() Type { return TypeFixed }

// Word returns the encoding of o. The type bits are always zero.
func (o Fixed) Word() uint32 { return uint32(o) &^ (0b11 << typeShift) }

// Voltage returns the voltage field in 50mV units.
func (o Fixed) Voltage() uint16 { return field(uint32(o), 10) }

// Current returns the operational current field in 10mA units.
func (o Fixed) Current() uint16 { return field(uint32(o), 0) }

// WithVoltage returns a copy of o with the voltage set in 50mV units.
func (o Fixed) WithVoltage(v uint16) Fixed { return Fixed(setField(uint32(o), 10, v)) }

// WithCurrent returns a copy of o with the current set in 10mA units.
func (o Fixed) WithCurrent(c uint16) Fixed { return Fixed(setField(uint32(o), 0, c)) }

// DualRolePower reports whether the dual role power flag is set.
func (o Fixed) DualRolePower() bool { return o&(1<<29) != 0 }

// HigherCapability reports whether the higher capability flag is set.
func (o Fixed) HigherCapability() bool { return o&(1<<28) != 0 }

// UnconstrainedPower reports whether the unconstrained power flag is set.
func (o Fixed) UnconstrainedPower() bool { return o&(1<<27) != 0 }

// USBCommunicationsCapable reports whether the USB communications capable
// flag is set.
func (o Fixed) USBCommunicationsCapable() bool { return o&(1<<26) != 0 }

// DualRoleData reports whether the dual role data flag is set.
func (o Fixed) DualRoleData() bool { return o&(1<<25) != 0 }

// FastRoleSwap returns the fast role swap required current.
func (o Fixed) FastRoleSwap() FastRoleSwap { return FastRoleSwap((o >> 23) & 0b11) }

// WithDualRolePower returns a copy of o with the dual role power flag set to v.
func (o Fixed) WithDualRolePower(v bool) Fixed { return Fixed(setBit(uint32(o), 29, v)) }

// WithHigherCapability returns a copy of o with the higher capability flag set
// to v.
func (o Fixed) WithHigherCapability(v bool) Fixed { return Fixed(setBit(uint32(o), 28, v)) }

// WithUnconstrainedPower returns a copy of o with the unconstrained power flag
// set to v.
func (o Fixed) WithUnconstrainedPower(v bool) Fixed { return Fixed(setBit(uint32(o), 27, v)) }

// WithUSBCommunicationsCapable returns a copy of o with the USB communications
// capable flag set to v.
func (o Fixed) WithUSBCommunicationsCapable(v bool) Fixed {
	return Fixed(setBit(uint32(o), 26, v))
}

// WithDualRoleData returns a copy of o with the dual role data flag set to v.
func (o Fixed) WithDualRoleData(v bool) Fixed { return Fixed(setBit(uint32(o), 25, v)) }

// WithFastRoleSwap returns a copy of o with the fast role swap field set to f.
func (o Fixed) WithFastRoleSwap(f FastRoleSwap) Fixed {
	return (o & ^(Fixed(0b11) << 23)) | Fixed(f&0b11)<<23
}

// ElectricPotential returns the voltage.
func (o Fixed) ElectricPotential() physic.ElectricPotential {
	return physic.ElectricPotential(o.Voltage()) * VoltageUnit
}

// ElectricCurrent returns the operational current.
func (o Fixed) ElectricCurrent() physic.ElectricCurrent {
	return physic.ElectricCurrent(o.Current()) * CurrentUnit
}

func (o Fixed) String() string {
	return fmt.Sprintf("fixed %s @ %s", o.ElectricPotential(), o.ElectricCurrent())
}

// Variable is a variable supply sink PDO.
//
//	31:30 type (01)
//	29:20 maximum voltage (50mV units)
//	19:10 minimum voltage (50mV units)
//	9:0   operational current (10mA units)
type Variable uint32

// NewVariable returns a variable PDO from raw field values.
func NewVariable(maxVoltage, minVoltage, current uint16) Variable {
	w := uint32(TypeVariable) << typeShift
	w = setField(w, 20, maxVoltage)
	w = setField(w, 10, minVoltage)
	return Variable(setField(w, 0, current))
}

func (Variable) object() {}

// Type returns TypeVariable.
func (Variable) Type() Type { return TypeVariable }

// Word returns the encoding of o.
func (o Variable) Word() uint32 { return uint32(o) }

// MaxVoltage returns the maximum voltage field in 50mV units.
func (o Variable) MaxVoltage() uint16 { return field(uint32(o), 20) }

// MinVoltage returns the minimum voltage field in 50mV units.
func (o Variable) MinVoltage() uint16 { return field(uint32(o), 10) }

// Current returns the operational current field in 10mA units.
func (o Variable) Current() uint16 { return field(uint32(o), 0) }

func (o Variable) String() string {
	return fmt.Sprintf("variable %s-%s @ %s",
		physic.ElectricPotential(o.MinVoltage())*VoltageUnit,
		physic.ElectricPotential(o.MaxVoltage())*VoltageUnit,
		physic.ElectricCurrent(o.Current())*CurrentUnit)
}

// Battery is a battery supply sink PDO.
//
//	31:30 type (10)
//	29:20 maximum voltage (50mV units)
//	19:10 minimum voltage (50mV units)
//	9:0   operational power (250mW units)
type Battery uint32

// NewBattery returns a battery PDO from raw field values.
func NewBattery(maxVoltage, minVoltage, power uint16) Battery {
	w := uint32(TypeBattery) << typeShift
	w = setField(w, 20, maxVoltage)
	w = setField(w, 10, minVoltage)
	return Battery(setField(w, 0, power))
}

func (Battery) object() {}

// Type returns TypeBattery.
func (Battery) Type() Type { return TypeBattery }

// Word returns the encoding of o.
func (o Battery) Word() uint32 { return uint32(o) }

// MaxVoltage returns the maximum voltage field in 50mV units.
func (o Battery) MaxVoltage() uint16 { return field(uint32(o), 20) }

// MinVoltage returns the minimum voltage field in 50mV units.
func (o Battery) MinVoltage() uint16 { return field(uint32(o), 10) }

// Power returns the operational power field in 250mW units.
func (o Battery) Power() uint16 { return field(uint32(o), 0) }

func (o Battery) String() string {
	return fmt.Sprintf("battery %s-%s @ %s",
		physic.ElectricPotential(o.MinVoltage())*VoltageUnit,
		physic.ElectricPotential(o.MaxVoltage())*VoltageUnit,
		physic.Power(o.Power())*PowerUnit)
}

// RDO is the Request Data Object of the power contract negotiated by the
// chip. It is only ever read from the chip.
//
//	30:28 object position (1-indexed)
//	27    give back
//	26    capability mismatch
//	25    USB communications capable
//	24    no USB suspend
//	23    unchunked extended messages supported
//	19:10 operating current (10mA units)
//	9:0   maximum operating current (10mA units)
type RDO uint32

// DecodeRDO returns the request data object encoded in w. Every word is
// structurally valid, but the content is undefined until a contract has been
// negotiated.
func DecodeRDO(w uint32) RDO {
	return RDO(w)
}

// Position returns the 1-indexed position of the selected source PDO.
func (o RDO) Position() uint8 { return uint8((o >> 28) & 0b111) }

// GiveBack reports whether the give back flag is set.
func (o RDO) GiveBack() bool { return o&(1<<27) != 0 }

// CapabilityMismatch reports whether the capability mismatch flag is set.
func (o RDO) CapabilityMismatch() bool { return o&(1<<26) != 0 }

// USBCommunicationsCapable reports whether the USB communications capable
// flag is set.
func (o RDO) USBCommunicationsCapable() bool { return o&(1<<25) != 0 }

// NoUSBSuspend reports whether the no USB suspend flag is set.
func (o RDO) NoUSBSuspend() bool { return o&(1<<24) != 0 }

// UnchunkedExtendedMessages reports whether unchunked extended messages are
// supported.
func (o RDO) UnchunkedExtendedMessages() bool { return o&(1<<23) != 0 }

// OperatingCurrent returns the operating current field in 10mA units.
func (o RDO) OperatingCurrent() uint16 { return field(uint32(o), 10) }

// MaxOperatingCurrent returns the maximum operating current field in 10mA
// units.
func (o RDO) MaxOperatingCurrent() uint16 { return field(uint32(o), 0) }

func (o RDO) String() string {
	s := fmt.Sprintf("pdo#%d %s (max %s)", o.Position(),
		physic.ElectricCurrent(o.OperatingCurrent())*CurrentUnit,
		physic.ElectricCurrent(o.MaxOperatingCurrent())*CurrentUnit)
	if o.CapabilityMismatch() {
		s += " mismatch"
	}
	return s
}
