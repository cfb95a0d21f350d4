package varvara

import (
	"testing"

	"github.com/zotley/uxnvm/internal/uxn"
)

func newTestMachineParts() (*uxn.CPU, *Bus, *System) {
	bus := NewBus()
	bus.Stderr = nil
	cpu := &uxn.CPU{Dev: bus}
	sys := NewSystem(bus, &Palette{})
	return cpu, bus, sys
}

// TestSystemExpansionFill reproduces spec.md scenario 5: a FILL request
// written into RAM and triggered via system.expansion fills the target
// bank with the given byte.
func TestSystemExpansionFill(t *testing.T) {
	cpu, bus, _ := newTestMachineParts()

	const reqAddr = 0x0200
	cpu.Ram[reqAddr] = expOpFill
	writeShortRAM(&cpu.Ram, reqAddr+1, 4)    // length
	writeShortRAM(&cpu.Ram, reqAddr+3, 0)    // bank 0 (main RAM)
	writeShortRAM(&cpu.Ram, reqAddr+5, 0x300) // addr
	cpu.Ram[reqAddr+7] = 0xAB

	writeShort(&bus.Ports, systemBase+sysExpansion, reqAddr)
	bus.DEO(cpu, systemBase+sysExpansion+1)

	for i := uint16(0); i < 4; i++ {
		if got := cpu.Ram[0x300+i]; got != 0xAB {
			t.Fatalf("ram[%#x] = %#x, want 0xAB", 0x300+i, got)
		}
	}
}

// writeShort on [65536]byte RAM, distinct from the bus.Ports helper.
func writeShortRAM(ram *[65536]byte, addr uint16, v uint16) {
	ram[addr] = byte(v >> 8)
	ram[addr+1] = byte(v)
}

func TestSystemExpansionCopy(t *testing.T) {
	cpu, bus, _ := newTestMachineParts()

	copy(cpu.Ram[0x400:0x404], []byte{1, 2, 3, 4})

	const reqAddr = 0x0200
	cpu.Ram[reqAddr] = expOpCPYL
	writeShortRAM(&cpu.Ram, reqAddr+1, 4)   // length
	writeShortRAM(&cpu.Ram, reqAddr+3, 0)   // src bank
	writeShortRAM(&cpu.Ram, reqAddr+5, 0x400)
	writeShortRAM(&cpu.Ram, reqAddr+7, 0)   // dst bank
	writeShortRAM(&cpu.Ram, reqAddr+9, 0x500)

	writeShort(&bus.Ports, systemBase+sysExpansion, reqAddr)
	bus.DEO(cpu, systemBase+sysExpansion+1)

	for i := 0; i < 4; i++ {
		if got, want := cpu.Ram[0x500+i], cpu.Ram[0x400+i]; got != want {
			t.Fatalf("ram[%#x] = %#x, want %#x", 0x500+i, got, want)
		}
	}
}

// TestSystemPaletteDecode checks the nibble-duplication rule: each 4-bit
// field becomes an 8-bit channel by repeating itself in the low nibble.
func TestSystemPaletteDecode(t *testing.T) {
	_, bus, sys := newTestMachineParts()

	writeShort(&bus.Ports, systemBase+sysRed, 0xf000)
	writeShort(&bus.Ports, systemBase+sysGreen, 0x0f00)
	writeShort(&bus.Ports, systemBase+sysBlue, 0x000f)
	sys.decodePalette()

	if !sys.Palette.Changed {
		t.Fatal("Changed = false after decodePalette")
	}
	if c := sys.Palette.Colors[0]; (c>>16)&0xFF != 0xFF {
		t.Fatalf("color0 red = %#x, want 0xff", (c>>16)&0xFF)
	}
	if c := sys.Palette.Colors[1]; (c>>8)&0xFF != 0xFF {
		t.Fatalf("color1 green = %#x, want 0xff", (c>>8)&0xFF)
	}
	if c := sys.Palette.Colors[3]; c&0xFF != 0xFF {
		t.Fatalf("color3 blue = %#x, want 0xff", c&0xFF)
	}
}

func TestSystemStateExit(t *testing.T) {
	cpu, bus, sys := newTestMachineParts()
	bus.Ports[systemBase+sysState] = 0x85 // blocking bit set, code 5
	sys.deo(cpu, systemBase+sysState)

	if !sys.ExitRequested {
		t.Fatal("ExitRequested = false")
	}
	if !sys.ExitBlocking {
		t.Fatal("ExitBlocking = false, want true for bit 7 set")
	}
	if sys.ExitCode != 5 {
		t.Fatalf("ExitCode = %d, want 5", sys.ExitCode)
	}
}
