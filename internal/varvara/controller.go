// controller.go - the Controller device: a button bitfield plus a
// clear-after key byte for character events (§4.F/4.I).

package varvara

import "github.com/zotley/uxnvm/internal/uxn"

const controllerBase = 0x80

const (
	ctlVector = 0x00 // u16
	ctlButton = 0x02
	ctlKey    = 0x03
)

// Button bits, matching the reference ordering (Ctrl, Alt, Shift, Home,
// Up, Down, Left, Right).
const (
	ButtonCtrl = 1 << iota
	ButtonAlt
	ButtonShift
	ButtonHome
	ButtonUp
	ButtonDown
	ButtonLeft
	ButtonRight
)

// Controller implements the §4.I device.
type Controller struct {
	bus *Bus

	lastButtons uint8
	lastKey     uint8
}

// NewController wires a Controller device onto bus at base 0x80.
func NewController(bus *Bus) *Controller {
	c := &Controller{bus: bus}
	bus.Install(controllerBase, c)
	return c
}

func (c *Controller) dei(cpu *uxn.CPU, target uint8) uint8 { return c.bus.Ports[target] }
func (c *Controller) deo(cpu *uxn.CPU, target uint8) bool  { return true }

func (c *Controller) vector() uint16 {
	return readShort(&c.bus.Ports, controllerBase+ctlVector)
}

// KeyEvent builds the Event for one character keypress; the key byte is
// clear-after per §4.I.
func (c *Controller) KeyEvent(b byte) Event {
	return Event{
		Vector: c.vector(),
		Data:   &EventData{Addr: controllerBase + ctlKey, Value: b, Clear: true},
	}
}

// ButtonEvent builds the Event for a modifier/arrow bitfield change.
// fired reports whether the caller should actually enqueue it: the
// vector only fires if the bitfield changed or the key repeated
// (§4.I).
func (c *Controller) ButtonEvent(buttons uint8, repeat bool) (ev Event, fired bool) {
	if buttons == c.lastButtons && !repeat {
		return Event{}, false
	}
	c.lastButtons = buttons
	return Event{
		Vector: c.vector(),
		Data:   &EventData{Addr: controllerBase + ctlButton, Value: buttons},
	}, true
}
