// mouse.go - the Mouse device: position, button bitfield, and
// accumulator-driven scroll ticks (§4.F/4.J).

package varvara

import "github.com/zotley/uxnvm/internal/uxn"

const mouseBase = 0x90

const (
	mseVector  = 0x00 // u16
	mseX       = 0x02 // u16
	mseY       = 0x04 // u16
	mseState   = 0x06
	mseScrollX = 0x0A // u16; 0x07-0x09 reserved
	mseScrollY = 0x0C // u16
)

// Mouse implements the §4.J device. Scroll deltas arrive as
// fractional host-reported floats; Tick accumulates them and only
// emits a port event once a full unit has accrued, per "each time an
// accumulator crosses ±1, emits a one-tick delta".
type Mouse struct {
	bus *Bus

	lastX, lastY uint16
	lastState    uint8

	accumX, accumY float64
}

// NewMouse wires a Mouse device onto bus at base 0x90.
func NewMouse(bus *Bus) *Mouse {
	m := &Mouse{bus: bus}
	bus.Install(mouseBase, m)
	return m
}

func (m *Mouse) dei(cpu *uxn.CPU, target uint8) uint8 { return m.bus.Ports[target] }
func (m *Mouse) deo(cpu *uxn.CPU, target uint8) bool  { return true }

func (m *Mouse) vector() uint16 {
	return readShort(&m.bus.Ports, mouseBase+mseVector)
}

// Tick folds one host-frame's worth of mouse state into port writes
// and returns every Event that should fire this frame (position/button
// change first, then one event per accumulated scroll tick).
func (m *Mouse) Tick(x, y uint16, buttons uint8, scrollX, scrollY float64) []Event {
	var events []Event

	if x != m.lastX || y != m.lastY || buttons != m.lastState {
		m.lastX, m.lastY, m.lastState = x, y, buttons
		writeShort(&m.bus.Ports, mouseBase+mseX, x)
		writeShort(&m.bus.Ports, mouseBase+mseY, y)
		m.bus.Ports[mouseBase+mseState] = buttons
		events = append(events, Event{Vector: m.vector()})
	}

	m.accumX += scrollX
	m.accumY += scrollY
	for m.accumX >= 1 {
		m.accumX--
		writeShort(&m.bus.Ports, mouseBase+mseScrollX, 1)
		events = append(events, Event{Vector: m.vector()})
	}
	for m.accumX <= -1 {
		m.accumX++
		writeShort(&m.bus.Ports, mouseBase+mseScrollX, 0xFFFF)
		events = append(events, Event{Vector: m.vector()})
	}
	for m.accumY >= 1 {
		m.accumY--
		writeShort(&m.bus.Ports, mouseBase+mseScrollY, 1)
		events = append(events, Event{Vector: m.vector()})
	}
	for m.accumY <= -1 {
		m.accumY++
		writeShort(&m.bus.Ports, mouseBase+mseScrollY, 0xFFFF)
		events = append(events, Event{Vector: m.vector()})
	}

	return events
}
