// bus.go - the Varvara device bus: owns the 256-byte port page and
// dispatches DEI/DEO to whichever device claims a 16-byte slot.

package varvara

import (
	"fmt"
	"os"

	"github.com/zotley/uxnvm/internal/uxn"
)

// portDevice is the internal shape every Varvara peripheral implements.
// Unlike uxn.Device, a portDevice only ever sees bytes that fall inside
// its own 16-byte slot - the Bus has already done the target&0xF0 lookup.
type portDevice interface {
	// dei services a read of port byte target, returning the value to
	// push to the stack (and to land in the port page).
	dei(cpu *uxn.CPU, target uint8) uint8

	// deo services a write that has already landed in the port page.
	// Returning false requests the CPU's run loop stop.
	deo(cpu *uxn.CPU, target uint8) bool
}

// Bus is the aggregator's device table: a 256-byte port page plus one
// portDevice per 16-byte slot, keyed by base address (target & 0xF0).
// Bus implements uxn.Device directly, so a *Bus can be handed to a CPU
// as-is.
type Bus struct {
	Ports [256]byte

	slots [16]portDevice // indexed by (base>>4)

	warned [16]bool // one "unimplemented device" warning per class (§7)
	Stderr func(string)
}

// NewBus builds an empty bus; callers register devices via Install.
func NewBus() *Bus {
	b := &Bus{}
	b.Stderr = func(s string) { fmt.Fprint(os.Stderr, s) }
	return b
}

// Install claims the 16-byte slot starting at base for dev. base must be
// a multiple of 16; audio's four voices and any other multi-slot device
// call Install once per slot they occupy.
func (b *Bus) Install(base uint8, dev portDevice) {
	b.slots[base>>4] = dev
}

// SetPortByte plants a raw byte into the port page, satisfying
// uxn.Device. It never triggers a device handler by itself.
func (b *Bus) SetPortByte(target uint8, value uint8) {
	b.Ports[target] = value
}

// DEI satisfies uxn.Device: look up the owning device by masking off
// the low nibble, and forward the full byte address.
func (b *Bus) DEI(cpu *uxn.CPU, target uint8) uint8 {
	dev := b.slots[target>>4]
	if dev == nil {
		b.warnUnimplemented(target)
		return b.Ports[target]
	}
	v := dev.dei(cpu, target)
	b.Ports[target] = v
	return v
}

// DEO satisfies uxn.Device: the byte has already been written into
// Ports[target] by the CPU core before this call (§4.B's contract).
func (b *Bus) DEO(cpu *uxn.CPU, target uint8) bool {
	dev := b.slots[target>>4]
	if dev == nil {
		b.warnUnimplemented(target)
		return true
	}
	return dev.deo(cpu, target)
}

func (b *Bus) warnUnimplemented(target uint8) {
	class := target >> 4
	if b.warned[class] {
		return
	}
	b.warned[class] = true
	if b.Stderr != nil {
		b.Stderr(fmt.Sprintf("uxn: unimplemented device class %#02x\n", class))
	}
}

// readShort/writeShort are the big-endian port helpers every device
// layout (§6's port page table) relies on for its u16 fields.
func readShort(ports *[256]byte, addr uint8) uint16 {
	return uint16(ports[addr])<<8 | uint16(ports[addr+1])
}

func writeShort(ports *[256]byte, addr uint8, v uint16) {
	ports[addr] = byte(v >> 8)
	ports[addr+1] = byte(v)
}
