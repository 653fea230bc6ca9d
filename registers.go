package stusb4500

import (
	"fmt"
	"strings"
)

// Register is a register address of the chip.
type Register uint8

// Registers. Multi-byte registers are noted with their width.
const (
	RegBCDTypeCRevL           Register = 0x06
	RegBCDTypeCRevH           Register = 0x07
	RegBCDUSBPDRevL           Register = 0x08
	RegBCDUSBPDRevH           Register = 0x09
	RegDeviceCapabHigh        Register = 0x0A
	RegAlertStatus1           Register = 0x0B
	RegAlertStatus1Mask       Register = 0x0C
	RegPortStatus0            Register = 0x0D
	RegPortStatus1            Register = 0x0E
	RegTypeCMonitoringStatus0 Register = 0x0F
	RegTypeCMonitoringStatus1 Register = 0x10
	RegCCStatus               Register = 0x11
	RegCCHWFaultStatus0       Register = 0x12
	RegCCHWFaultStatus1       Register = 0x13
	RegPDTypeCStatus          Register = 0x14
	RegTypeCStatus            Register = 0x15
	RegPRTStatus              Register = 0x16
	RegPDCommandCtrl          Register = 0x1A
	RegMonitoringCtrl0        Register = 0x20
	RegMonitoringCtrl2        Register = 0x22
	RegResetCtrl              Register = 0x23
	RegVBusDischargeTimeCtrl  Register = 0x25
	RegVBusDischargeCtrl      Register = 0x26
	RegVBusCtrl               Register = 0x27
	RegPEFSM                  Register = 0x29
	RegGPIOSWGPIO             Register = 0x2D
	RegDeviceID               Register = 0x2F
	RegRXHeaderL              Register = 0x31
	RegRXHeaderH              Register = 0x32
	RegRXDataObj              Register = 0x33 // 4 bytes
	RegTXHeaderL              Register = 0x51
	RegTXHeaderH              Register = 0x52
	RegRWBuffer               Register = 0x53 // 8 bytes
	RegDPMPDONumb             Register = 0x70
	RegDPMSNKPDO1             Register = 0x85 // 4 bytes
	RegDPMSNKPDO2             Register = 0x89 // 4 bytes
	RegDPMSNKPDO3             Register = 0x8D // 4 bytes
	RegRDORegStatus           Register = 0x91 // 4 bytes
	RegNVMPassword            Register = 0x95
	RegNVMCtrl0               Register = 0x96
	RegNVMCtrl1               Register = 0x97
)

var registerNames = map[Register]string{
	RegBCDTypeCRevL:           "BCDTypeCRevL",
	RegBCDTypeCRevH:           "BCDTypeCRevH",
	RegBCDUSBPDRevL:           "BCDUSBPDRevL",
	RegBCDUSBPDRevH:           "BCDUSBPDRevH",
	RegDeviceCapabHigh:        "DeviceCapabHigh",
	RegAlertStatus1:           "AlertStatus1",
	RegAlertStatus1Mask:       "AlertStatus1Mask",
	RegPortStatus0:            "PortStatus0",
	RegPortStatus1:            "PortStatus1",
	RegTypeCMonitoringStatus0: "TypeCMonitoringStatus0",
	RegTypeCMonitoringStatus1: "TypeCMonitoringStatus1",
	RegCCStatus:               "CCStatus",
	RegCCHWFaultStatus0:       "CCHWFaultStatus0",
	RegCCHWFaultStatus1:       "CCHWFaultStatus1",
	RegPDTypeCStatus:          "PDTypeCStatus",
	RegTypeCStatus:            "TypeCStatus",
	RegPRTStatus:              "PRTStatus",
	RegPDCommandCtrl:          "PDCommandCtrl",
	RegMonitoringCtrl0:        "MonitoringCtrl0",
	RegMonitoringCtrl2:        "MonitoringCtrl2",
	RegResetCtrl:              "ResetCtrl",
	RegVBusDischargeTimeCtrl:  "VBusDischargeTimeCtrl",
	RegVBusDischargeCtrl:      "VBusDischargeCtrl",
	RegVBusCtrl:               "VBusCtrl",
	RegPEFSM:                  "PEFSM",
	RegGPIOSWGPIO:             "GPIOSWGPIO",
	RegDeviceID:               "DeviceID",
	RegRXHeaderL:              "RXHeaderL",
	RegRXHeaderH:              "RXHeaderH",
	RegRXDataObj:              "RXDataObj",
	RegTXHeaderL:              "TXHeaderL",
	RegTXHeaderH:              "TXHeaderH",
	RegRWBuffer:               "RWBuffer",
	RegDPMPDONumb:             "DPMPDONumb",
	RegDPMSNKPDO1:             "DPMSNKPDO1",
	RegDPMSNKPDO2:             "DPMSNKPDO2",
	RegDPMSNKPDO3:             "DPMSNKPDO3",
	RegRDORegStatus:           "RDORegStatus",
	RegNVMPassword:            "NVMPassword",
	RegNVMCtrl0:               "NVMCtrl0",
	RegNVMCtrl1:               "NVMCtrl1",
}

func (r Register) String() string {
	if n, ok := registerNames[r]; ok {
		return n
	}
	return fmt.Sprintf("reg(0x%02X)", uint8(r))
}

// flagNames renders the set bits of v using names, highest bit first. Bits
// without a name are ignored.
func flagNames(v uint8, names [8]string) string {
	var s []string
	for i := 7; i >= 0; i-- {
		if v&(1<<i) != 0 && names[i] != "" {
			s = append(s, names[i])
		}
	}
	if len(s) == 0 {
		return "None"
	}
	return strings.Join(s, "|")
}

// Alert is the content of the AlertStatus1 register. Reading it clears the
// latched alerts.
type Alert uint8

// Alert flags.
const (
	AlertPRTStatus             Alert = 1 << 1
	AlertPDTypeCStatus         Alert = 1 << 3
	AlertCCHWFaultStatus       Alert = 1 << 4
	AlertTypeCMonitoringStatus Alert = 1 << 5
	AlertPortStatus            Alert = 1 << 6

	alertDefined = AlertPRTStatus | AlertPDTypeCStatus | AlertCCHWFaultStatus |
		AlertTypeCMonitoringStatus | AlertPortStatus
)

// Has returns true if all flags in v are set.
func (a Alert) Has(v Alert) bool { return a&v == v }

func (a Alert) String() string {
	return flagNames(uint8(a), [8]string{
		1: "PRTStatus",
		3: "PDTypeCStatus",
		4: "CCHWFaultStatus",
		5: "TypeCMonitoringStatus",
		6: "PortStatus",
	})
}

// AlertMask is the content of the AlertStatus1Mask register. A set bit masks
// the corresponding alert from the ALERT pin.
type AlertMask uint8

// Alert mask flags.
const (
	MaskPRTStatus             AlertMask = 1 << 1
	MaskCCFaultStatus         AlertMask = 1 << 4
	MaskTypeCMonitoringStatus AlertMask = 1 << 5
	MaskPortStatus            AlertMask = 1 << 6

	// DefaultAlertMask masks everything except CC faults.
	DefaultAlertMask = MaskPortStatus | MaskTypeCMonitoringStatus | MaskPRTStatus

	alertMaskDefined = MaskPRTStatus | MaskCCFaultStatus | MaskTypeCMonitoringStatus | MaskPortStatus
)

// Has returns true if all flags in v are set.
func (m AlertMask) Has(v AlertMask) bool { return m&v == v }

func (m AlertMask) String() string {
	return flagNames(uint8(m), [8]string{1: "PRTStatus", 4: "CCFaultStatus", 5: "TypeCMonitoringStatus", 6: "PortStatus"})
}

// PortStatus0 holds port status transitions.
type PortStatus0 uint8

// PortStatus0 flags.
const (
	PortStatus0AttachTrans PortStatus0 = 1 << 0

	portStatus0Defined = PortStatus0AttachTrans
)

// Has returns true if all flags in v are set.
func (p PortStatus0) Has(v PortStatus0) bool { return p&v == v }

func (p PortStatus0) String() string {
	return flagNames(uint8(p), [8]string{0: "AttachTrans"})
}

// PortStatus1 holds the attachment and power role status.
type PortStatus1 uint8

// PortStatus1 flags. DebugAttached is a two bit field value that includes
// SinkAttached.
const (
	PortStatus1Attached      PortStatus1 = 1 << 0
	PortStatus1DataModeUFP   PortStatus1 = 1 << 2
	PortStatus1SinkingPower  PortStatus1 = 1 << 3
	PortStatus1SinkAttached  PortStatus1 = 1 << 5
	PortStatus1DebugAttached PortStatus1 = 0b11 << 5

	portStatus1Defined = PortStatus1Attached | PortStatus1DataModeUFP | PortStatus1SinkingPower | PortStatus1DebugAttached
)

// Has returns true if all flags in v are set.
func (p PortStatus1) Has(v PortStatus1) bool { return p&v == v }

func (p PortStatus1) String() string {
	return flagNames(uint8(p), [8]string{0: "Attached", 2: "DataModeUFP", 3: "SinkingPower", 5: "SinkAttached", 6: "Debug"})
}

// TypeCMonitoringStatus0 holds VBUS monitoring transitions.
type TypeCMonitoringStatus0 uint8

// TypeCMonitoringStatus0 flags.
const (
	VBusValidSnkTrans TypeCMonitoringStatus0 = 1 << 1
	VBusVSafe0VTrans  TypeCMonitoringStatus0 = 1 << 2
	VBusReadyTrans    TypeCMonitoringStatus0 = 1 << 3
	VBusLowStatus     TypeCMonitoringStatus0 = 1 << 4
	VBusHighStatus    TypeCMonitoringStatus0 = 1 << 5

	typeCMon0Defined = VBusValidSnkTrans | VBusVSafe0VTrans | VBusReadyTrans | VBusLowStatus | VBusHighStatus
)

// Has returns true if all flags in v are set.
func (s TypeCMonitoringStatus0) Has(v TypeCMonitoringStatus0) bool { return s&v == v }

func (s TypeCMonitoringStatus0) String() string {
	return flagNames(uint8(s), [8]string{1: "VBusValidSnkTrans", 2: "VBusVSafe0VTrans", 3: "VBusReadyTrans", 4: "VBusLow", 5: "VBusHigh"})
}

// TypeCMonitoringStatus1 holds the current VBUS state.
type TypeCMonitoringStatus1 uint8

// TypeCMonitoringStatus1 flags.
const (
	VBusValidSnk TypeCMonitoringStatus1 = 1 << 1
	VBusVSafe0V  TypeCMonitoringStatus1 = 1 << 2
	VBusReady    TypeCMonitoringStatus1 = 1 << 3

	typeCMon1Defined = VBusValidSnk | VBusVSafe0V | VBusReady
)

// Has returns true if all flags in v are set.
func (s TypeCMonitoringStatus1) Has(v TypeCMonitoringStatus1) bool { return s&v == v }

func (s TypeCMonitoringStatus1) String() string {
	return flagNames(uint8(s), [8]string{1: "VBusValidSnk", 2: "VBusVSafe0V", 3: "VBusReady"})
}

// PRTStatus holds protocol layer events.
type PRTStatus uint8

// PRTStatus flags.
const (
	PRTHWResetReceived PRTStatus = 1 << 1
	PRTMessageReceived PRTStatus = 1 << 2

	prtStatusDefined = PRTHWResetReceived | PRTMessageReceived
)

// Has returns true if all flags in v are set.
func (s PRTStatus) Has(v PRTStatus) bool { return s&v == v }

func (s PRTStatus) String() string {
	return flagNames(uint8(s), [8]string{1: "HWResetReceived", 2: "MessageReceived"})
}

// NVM control bits and opcodes.
const (
	nvmPassword = 0x47

	nvmCtrl0Request = 1 << 4
	nvmCtrl0Enable  = 1 << 6
	nvmCtrl0Power   = 1 << 7

	// Sector erase flags in NVMCtrl1, bits 3-7 for sectors 0-4.
	nvmCtrl1EraseSector0 = 1 << 3
	nvmCtrl1EraseAll     = 0b11111 << 3

	nvmOpReadSector   = 0x00 // read sector into RWBuffer
	nvmOpLoadPLR      = 0x01 // load program load register from RWBuffer
	nvmOpLoadSER      = 0x02 // load sector erase register
	nvmOpDumpPLR      = 0x03
	nvmOpDumpSER      = 0x04
	nvmOpEraseSectors = 0x05 // erase sectors selected in SER
	nvmOpWriteSector  = 0x06 // program PLR to sector
)

// PD command values used by SoftReset.
const (
	txHeaderSoftReset   = 0x0D
	pdCommandSendHeader = 0x26
)
