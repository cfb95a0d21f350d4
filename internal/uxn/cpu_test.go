package uxn

import "testing"

// nullDevice satisfies Device for CPU tests that never touch a port.
type nullDevice struct {
	ports [256]byte
}

func (d *nullDevice) DEI(c *CPU, target uint8) uint8     { return d.ports[target] }
func (d *nullDevice) DEO(c *CPU, target uint8) bool      { return true }
func (d *nullDevice) SetPortByte(target uint8, v uint8)  { d.ports[target] = v }

func newTestCPU() *CPU {
	c := &CPU{}
	c.Dev = &nullDevice{}
	return c
}

func TestRunAddLiterals(t *testing.T) {
	c := newTestCPU()
	rom := []byte{0x80, 0x01, 0x80, 0x02, 0x18, 0x00} // LIT 01 LIT 02 ADD BRK
	c.LoadROM(rom)
	pc := c.Run(0x0100)
	if pc != 0x0106 {
		t.Fatalf("pc = %#x, want 0x0106", pc)
	}
	if c.WST.Len() != 1 || c.WST.PeekByteAt(0) != 0x03 {
		t.Fatalf("WST = %v, want [0x03]", c.WST.Bytes()[:c.WST.Len()])
	}
	if c.RST.Len() != 0 {
		t.Fatalf("RST len = %d, want 0", c.RST.Len())
	}
}

func TestRunAddShorts(t *testing.T) {
	c := newTestCPU()
	// LIT2 0010 LIT2 0020 ADD2 BRK
	rom := []byte{0xA0, 0x00, 0x10, 0xA0, 0x00, 0x20, 0x38, 0x00}
	c.LoadROM(rom)
	c.Run(0x0100)
	if got := c.WST.PopShort(); got != 0x0030 {
		t.Fatalf("WST short = %#x, want 0x0030", got)
	}
}

func TestDivByZero(t *testing.T) {
	c := newTestCPU()
	// LIT 05 LIT 00 DIV BRK
	rom := []byte{0x80, 0x05, 0x80, 0x00, 0x1b, 0x00}
	c.LoadROM(rom)
	c.Run(0x0100)
	if got := c.WST.PopByte(); got != 0 {
		t.Fatalf("5/0 = %d, want 0", got)
	}
}

func TestRAMWrapLDA(t *testing.T) {
	c := newTestCPU()
	c.Ram[0xFFFF] = 0xAB
	c.Ram[0x0000] = 0xCD
	if got := c.ramReadWord(0xFFFF); got != 0xABCD {
		t.Fatalf("ramReadWord wrap = %#x, want 0xABCD", got)
	}
}

func TestPCWrap(t *testing.T) {
	c := newTestCPU()
	c.Ram[0xFFFF] = 0x00 // BRK
	pc := c.Run(0xFFFF)
	if pc != 0x0000 {
		t.Fatalf("pc after BRK at 0xFFFF = %#x, want 0x0000", pc)
	}
}

func TestKeepModePreservesOperands(t *testing.T) {
	c := newTestCPU()
	// LIT 03 LIT 04 ADDk BRK -- ADD keep mode: 0x18 | 0x80 = 0x98
	rom := []byte{0x80, 0x03, 0x80, 0x04, 0x98, 0x00}
	c.LoadROM(rom)
	c.Run(0x0100)
	if c.WST.Len() != 3 {
		t.Fatalf("WST len = %d, want 3", c.WST.Len())
	}
	if got := c.WST.PopByte(); got != 0x07 {
		t.Fatalf("result = %d, want 7", got)
	}
	if got := c.WST.PopByte(); got != 0x04 {
		t.Fatalf("preserved operand b = %d, want 4", got)
	}
	if got := c.WST.PopByte(); got != 0x03 {
		t.Fatalf("preserved operand a = %d, want 3", got)
	}
}

func TestShortDEIReserveOrdering(t *testing.T) {
	// LIT 04 DEI2 against a device that reports the live WST/RST length.
	c := newTestCPU()
	dev := &lenReportingDevice{}
	c.Dev = dev
	rom := []byte{0x80, 0x04, 0x36, 0x00} // 0x36 = DEI base(22)|short(0x20)
	c.LoadROM(rom)
	c.Run(0x0100)
	if c.WST.Len() != 2 {
		t.Fatalf("final WST len = %d, want 2", c.WST.Len())
	}
	hi := c.WST.PeekByteAt(1)
	lo := c.WST.PeekByteAt(0)
	if hi != dev.seenWSTLen {
		t.Fatalf("hi byte = %d, want reserved WST len %d", hi, dev.seenWSTLen)
	}
	if lo != dev.seenRSTLen {
		t.Fatalf("lo byte = %d, want RST len %d", lo, dev.seenRSTLen)
	}
}

// lenReportingDevice mimics the System device's wst/rst ports: DEI
// returns the calling CPU's current stack lengths.
type lenReportingDevice struct {
	seenWSTLen, seenRSTLen uint8
	calls                  int
}

func (d *lenReportingDevice) DEI(c *CPU, target uint8) uint8 {
	d.calls++
	if d.calls == 1 {
		d.seenWSTLen = c.WST.Len()
		return c.WST.Len()
	}
	d.seenRSTLen = c.RST.Len()
	return c.RST.Len()
}
func (d *lenReportingDevice) DEO(c *CPU, target uint8) bool     { return true }
func (d *lenReportingDevice) SetPortByte(target uint8, v uint8) {}
