package stusb4500

// ClearInterrupts reads the 10 status registers from PortStatus0 up to
// PRTStatus in one transfer, which clears all latched alerts.
func (d *Device) ClearInterrupts() error {
	if d.nvm != nil {
		return ErrNVMOpen
	}
	var regs [RegPRTStatus - RegPortStatus0 + 1]byte
	return d.readMany(RegPortStatus0, regs[:])
}

// SetAlertMask sets the alerts masked from the ALERT pin.
func (d *Device) SetAlertMask(m AlertMask) error {
	if d.nvm != nil {
		return ErrNVMOpen
	}
	return d.write(RegAlertStatus1Mask, uint8(m&alertMaskDefined))
}

// AlertMask returns the alerts masked from the ALERT pin.
func (d *Device) AlertMask() (AlertMask, error) {
	v, err := d.ReadRegister(RegAlertStatus1Mask)
	return AlertMask(v) & alertMaskDefined, err
}

// Alerts returns the pending alerts.
func (d *Device) Alerts() (Alert, error) {
	v, err := d.ReadRegister(RegAlertStatus1)
	return Alert(v) & alertDefined, err
}

// PortStatus0 returns the port status transitions.
func (d *Device) PortStatus0() (PortStatus0, error) {
	v, err := d.ReadRegister(RegPortStatus0)
	return PortStatus0(v) & portStatus0Defined, err
}

// PortStatus1 returns the port attachment status.
func (d *Device) PortStatus1() (PortStatus1, error) {
	v, err := d.ReadRegister(RegPortStatus1)
	return PortStatus1(v) & portStatus1Defined, err
}

// TypeCMonitoringStatus0 returns the VBUS monitoring transitions.
func (d *Device) TypeCMonitoringStatus0() (TypeCMonitoringStatus0, error) {
	v, err := d.ReadRegister(RegTypeCMonitoringStatus0)
	return TypeCMonitoringStatus0(v) & typeCMon0Defined, err
}

// TypeCMonitoringStatus1 returns the VBUS monitoring status.
func (d *Device) TypeCMonitoringStatus1() (TypeCMonitoringStatus1, error) {
	v, err := d.ReadRegister(RegTypeCMonitoringStatus1)
	return TypeCMonitoringStatus1(v) & typeCMon1Defined, err
}

// PRTStatus returns the protocol layer events.
func (d *Device) PRTStatus() (PRTStatus, error) {
	v, err := d.ReadRegister(RegPRTStatus)
	return PRTStatus(v) & prtStatusDefined, err
}

// DeviceID returns the content of the device ID register.
func (d *Device) DeviceID() (uint8, error) {
	return d.ReadRegister(RegDeviceID)
}

// SoftReset sends a soft reset message to the source, which triggers a new
// negotiation using the current sink PDOs.
func (d *Device) SoftReset() error {
	if d.nvm != nil {
		return ErrNVMOpen
	}
	d.log.Debug("soft reset")
	if err := d.write(RegTXHeaderL, txHeaderSoftReset); err != nil {
		return err
	}
	return d.write(RegPDCommandCtrl, pdCommandSendHeader)
}
