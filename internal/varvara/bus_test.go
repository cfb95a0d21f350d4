package varvara

import (
	"testing"

	"github.com/zotley/uxnvm/internal/uxn"
)

// stubDevice counts DEI/DEO calls and answers every DEI with 0x42, used to
// verify Bus's target&0xF0 dispatch in isolation from any real device.
type stubDevice struct {
	deiCalls, deoCalls int
}

func (d *stubDevice) dei(cpu *uxn.CPU, target uint8) uint8 {
	d.deiCalls++
	return 0x42
}

func (d *stubDevice) deo(cpu *uxn.CPU, target uint8) bool {
	d.deoCalls++
	return true
}

func TestBusDispatchesByHighNibble(t *testing.T) {
	bus := NewBus()
	cpu := &uxn.CPU{Dev: bus}
	dev := &stubDevice{}
	bus.Install(0x50, dev)

	if got := bus.DEI(cpu, 0x53); got != 0x42 {
		t.Fatalf("DEI = %#x, want 0x42", got)
	}
	if dev.deiCalls != 1 {
		t.Fatalf("deiCalls = %d, want 1", dev.deiCalls)
	}
	if bus.Ports[0x53] != 0x42 {
		t.Fatal("DEI result not planted into Ports")
	}

	bus.DEO(cpu, 0x5F)
	if dev.deoCalls != 1 {
		t.Fatalf("deoCalls = %d, want 1", dev.deoCalls)
	}
}

// TestBusUnimplementedDeviceIsSilentPassthrough checks that an
// unclaimed slot doesn't panic and just echoes the port page (§7's
// "unimplemented device" warning path doesn't block execution).
func TestBusUnimplementedDeviceIsSilentPassthrough(t *testing.T) {
	bus := NewBus()
	bus.Stderr = nil
	cpu := &uxn.CPU{Dev: bus}

	bus.Ports[0x73] = 0x11
	if got := bus.DEI(cpu, 0x73); got != 0x11 {
		t.Fatalf("DEI on unclaimed slot = %#x, want passthrough 0x11", got)
	}
	if ok := bus.DEO(cpu, 0x73); !ok {
		t.Fatal("DEO on unclaimed slot returned false, want true (keep running)")
	}
}

func TestReadWriteShort(t *testing.T) {
	var ports [256]byte
	writeShort(&ports, 0x10, 0xBEEF)
	if got := readShort(&ports, 0x10); got != 0xBEEF {
		t.Fatalf("readShort = %#x, want 0xbeef", got)
	}
}
