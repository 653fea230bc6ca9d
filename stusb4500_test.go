package stusb4500

import (
	"errors"
	"testing"
	"time"

	"github.com/jpillora/backoff"
	"periph.io/x/conn/v3/i2c/i2ctest"

	"github.com/oxplot/go-stusb4500/pdo"
)

func fastConfig() Config {
	return Config{
		AckPolls:   20,
		AckBackoff: &backoff.Backoff{Min: time.Microsecond, Max: time.Microsecond, Factor: 1},
	}
}

func newDevice(t *testing.T, bus I2C) *Device {
	t.Helper()
	d, err := New(bus, fastConfig())
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func playback(ops ...i2ctest.IO) *i2ctest.Playback {
	return &i2ctest.Playback{Ops: ops, DontPanic: true}
}

func ioOp(w, r []byte) i2ctest.IO {
	return i2ctest.IO{Addr: 0x28, W: w, R: r}
}

func closePlayback(t *testing.T, p *i2ctest.Playback) {
	t.Helper()
	if err := p.Close(); err != nil {
		t.Error(err)
	}
}

func TestAddress(t *testing.T) {
	tests := []struct {
		a    Address
		want uint16
	}{
		{0, 0x28},
		{DefaultAddress, 0x28},
		{StrapAddress(false, false), 0x28},
		{StrapAddress(false, true), 0x29},
		{StrapAddress(true, false), 0x2a},
		{StrapAddress(true, true), 0x2b},
		{0x51, 0x51},
	}
	for _, tt := range tests {
		d, err := New(playback(), Config{Address: tt.a})
		if err != nil {
			t.Fatal(err)
		}
		if d.Address() != tt.want {
			t.Errorf("Address %#x: got %#x, want %#x", tt.a, d.Address(), tt.want)
		}
	}
}

func TestConfigValidate(t *testing.T) {
	bad := []Config{
		{Address: 0x80},
		{AckPolls: -1},
		{AckBackoff: &backoff.Backoff{Min: time.Second, Max: time.Millisecond}},
	}
	for _, c := range bad {
		if _, err := New(playback(), c); err == nil {
			t.Errorf("New(%+v) succeeded", c)
		}
	}
	if err := (Config{}).Validate(); err != nil {
		t.Errorf("zero config: %v", err)
	}
}

func TestRegisterAccess(t *testing.T) {
	p := playback(
		ioOp([]byte{0x0D}, []byte{0x01}),
		ioOp([]byte{0x0C, 0x52}, nil),
		ioOp([]byte{0x91}, []byte{0x2c, 0x91, 0x01, 0x20}),
		ioOp([]byte{0x85, 0x2c, 0x91, 0x01, 0x20}, nil),
	)
	d := newDevice(t, p)
	if v, err := d.ReadRegister(RegPortStatus0); err != nil || v != 0x01 {
		t.Errorf("ReadRegister = %#x, %v", v, err)
	}
	if err := d.WriteRegister(RegAlertStatus1Mask, 0x52); err != nil {
		t.Error(err)
	}
	if v, err := d.ReadRegister32(RegRDORegStatus); err != nil || v != 0x2001912c {
		t.Errorf("ReadRegister32 = %#x, %v", v, err)
	}
	if err := d.WriteRegister32(RegDPMSNKPDO1, 0x2001912c); err != nil {
		t.Error(err)
	}
	closePlayback(t, p)
}

type failingBus struct{ err error }

func (f failingBus) Tx(uint16, []byte, []byte) error { return f.err }

func TestBusErrorPropagates(t *testing.T) {
	errBus := errors.New("bus stuck")
	d := newDevice(t, failingBus{errBus})
	_, err := d.ReadRegister(RegPortStatus1)
	var be *BusError
	if !errors.As(err, &be) {
		t.Fatalf("got %v, want *BusError", err)
	}
	if be.Op != "read" || be.Register != RegPortStatus1 {
		t.Errorf("BusError = %+v", be)
	}
	if !errors.Is(err, errBus) {
		t.Errorf("%v does not wrap the bus error", err)
	}
	if _, err := d.UnlockNVM(); !errors.Is(err, errBus) {
		t.Errorf("UnlockNVM: %v", err)
	}
	if d.nvm != nil {
		t.Error("failed unlock left a session open")
	}
}

func TestSetPDO(t *testing.T) {
	f := pdo.NewFixed(100, 300).WithDualRolePower(true)
	p := playback(ioOp([]byte{0x89, 0x2c, 0x91, 0x01, 0x20}, nil))
	d := newDevice(t, p)
	if err := d.SetPDO(PDO2, f); err != nil {
		t.Error(err)
	}
	closePlayback(t, p)
}

func TestSetPDORejectsNonFixed(t *testing.T) {
	p := playback()
	d := newDevice(t, p)
	for _, o := range []pdo.Object{pdo.NewVariable(400, 100, 150), pdo.NewBattery(400, 100, 60), nil} {
		if err := d.SetPDO(PDO1, o); !errors.Is(err, ErrInvalidPDO) {
			t.Errorf("SetPDO(%v) = %v, want ErrInvalidPDO", o, err)
		}
	}
	if err := d.SetPDO(PDOSlot(4), pdo.NewFixed(100, 300)); !errors.Is(err, ErrPDOSlot) {
		t.Errorf("SetPDO(slot 4) = %v, want ErrPDOSlot", err)
	}
	closePlayback(t, p)
}

func TestPDO(t *testing.T) {
	p := playback(
		ioOp([]byte{0x8D}, []byte{0x2c, 0x91, 0x01, 0x40}),
		ioOp([]byte{0x85}, []byte{0x2c, 0x91, 0x01, 0xc0}),
	)
	d := newDevice(t, p)
	o, err := d.PDO(PDO3)
	if err != nil {
		t.Fatal(err)
	}
	if v, ok := o.(pdo.Variable); !ok || v.Word() != 0x4001912c {
		t.Errorf("PDO(PDO3) = %#v", o)
	}
	if _, err := d.PDO(PDO1); !errors.Is(err, ErrInvalidPDO) {
		t.Errorf("reserved type: got %v, want ErrInvalidPDO", err)
	}
	closePlayback(t, p)
}

func TestSetNumPDO(t *testing.T) {
	p := playback(
		ioOp([]byte{0x70, 1}, nil),
		ioOp([]byte{0x70, 2}, nil),
		ioOp([]byte{0x70, 3}, nil),
	)
	d := newDevice(t, p)
	for _, n := range []uint8{0, 4, 255} {
		if err := d.SetNumPDO(n); !errors.Is(err, ErrPDOCount) {
			t.Errorf("SetNumPDO(%d) = %v, want ErrPDOCount", n, err)
		}
	}
	for n := uint8(1); n <= 3; n++ {
		if err := d.SetNumPDO(n); err != nil {
			t.Errorf("SetNumPDO(%d) = %v", n, err)
		}
	}
	closePlayback(t, p)
}

func TestSinkPDOs(t *testing.T) {
	s := newSim()
	s.regs[RegDPMPDONumb] = 0xf2 // reserved bits set
	for i, w := range []uint32{0x0001912c, 0x0003c0c8} {
		r := int(RegDPMSNKPDO1) + 4*i
		s.regs[r], s.regs[r+1], s.regs[r+2], s.regs[r+3] = byte(w), byte(w>>8), byte(w>>16), byte(w>>24)
	}
	d := newDevice(t, s)
	pdos, err := d.SinkPDOs()
	if err != nil {
		t.Fatal(err)
	}
	if len(pdos) != 2 {
		t.Fatalf("got %d pdos, want 2", len(pdos))
	}
	if f := pdos[1].(pdo.Fixed); f.Voltage() != 240 || f.Current() != 200 {
		t.Errorf("PDO2 = %v", f)
	}
}

func TestRDO(t *testing.T) {
	p := playback(ioOp([]byte{0x91}, []byte{0x2c, 0x91, 0x01, 0x30}))
	d := newDevice(t, p)
	r, err := d.RDO()
	if err != nil {
		t.Fatal(err)
	}
	if r.Position() != 3 || r.OperatingCurrent() != 100 || r.MaxOperatingCurrent() != 300 {
		t.Errorf("RDO = %v", r)
	}
	closePlayback(t, p)
}

func TestStatusIgnoresReservedBits(t *testing.T) {
	p := playback(
		ioOp([]byte{0x0B}, []byte{0xff}),
		ioOp([]byte{0x0D}, []byte{0xff}),
		ioOp([]byte{0x0E}, []byte{0xff}),
		ioOp([]byte{0x0F}, []byte{0xff}),
		ioOp([]byte{0x10}, []byte{0xff}),
		ioOp([]byte{0x16}, []byte{0xff}),
	)
	d := newDevice(t, p)
	if a, _ := d.Alerts(); a != 0b0111_1010 {
		t.Errorf("Alerts = %08b", a)
	}
	if s, _ := d.PortStatus0(); s != PortStatus0AttachTrans {
		t.Errorf("PortStatus0 = %08b", s)
	}
	if s, _ := d.PortStatus1(); s != 0b0110_1101 || !s.Has(PortStatus1DebugAttached) {
		t.Errorf("PortStatus1 = %08b", s)
	}
	if s, _ := d.TypeCMonitoringStatus0(); s != 0b0011_1110 {
		t.Errorf("TypeCMonitoringStatus0 = %08b", s)
	}
	if s, _ := d.TypeCMonitoringStatus1(); s != VBusValidSnk|VBusVSafe0V|VBusReady {
		t.Errorf("TypeCMonitoringStatus1 = %08b", s)
	}
	if s, _ := d.PRTStatus(); s != PRTHWResetReceived|PRTMessageReceived {
		t.Errorf("PRTStatus = %08b", s)
	}
	closePlayback(t, p)
}

func TestFlagStrings(t *testing.T) {
	if s := (AlertPortStatus | AlertPRTStatus).String(); s != "PortStatus|PRTStatus" {
		t.Errorf("got %q", s)
	}
	if s := Alert(0).String(); s != "None" {
		t.Errorf("got %q", s)
	}
	if s := RegNVMCtrl0.String(); s != "NVMCtrl0" {
		t.Errorf("got %q", s)
	}
	if s := Register(0x5b).String(); s != "reg(0x5B)" {
		t.Errorf("got %q", s)
	}
}

func TestAlertMaskClearInterruptsSoftReset(t *testing.T) {
	p := playback(
		ioOp([]byte{0x0C, 0x62}, nil),
		ioOp([]byte{0x0D}, make([]byte, 10)),
		ioOp([]byte{0x51, 0x0D}, nil),
		ioOp([]byte{0x1A, 0x26}, nil),
	)
	d := newDevice(t, p)
	if err := d.SetAlertMask(DefaultAlertMask | 1); err != nil {
		t.Error(err)
	}
	if err := d.ClearInterrupts(); err != nil {
		t.Error(err)
	}
	if err := d.SoftReset(); err != nil {
		t.Error(err)
	}
	closePlayback(t, p)
}

func TestTransferSizeLimit(t *testing.T) {
	p := playback(
		ioOp([]byte{0x0D}, make([]byte, maxTransfer)),
		ioOp(append([]byte{0x53}, make([]byte, maxTransfer)...), nil),
	)
	d := newDevice(t, p)
	if err := d.readMany(RegPortStatus0, make([]byte, maxTransfer+2)); !errors.Is(err, errTransferSize) {
		t.Errorf("readMany of %d bytes = %v", maxTransfer+2, err)
	}
	if err := d.writeMany(RegRWBuffer, make([]byte, maxTransfer+1)); !errors.Is(err, errTransferSize) {
		t.Errorf("writeMany of %d bytes = %v", maxTransfer+1, err)
	}
	if err := d.readMany(RegPortStatus0, make([]byte, maxTransfer)); err != nil {
		t.Error(err)
	}
	if err := d.writeMany(RegRWBuffer, make([]byte, maxTransfer)); err != nil {
		t.Error(err)
	}
	closePlayback(t, p)
}
