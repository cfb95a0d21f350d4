// console.go - the Console device: stdout/stderr accumulators plus the
// stdin/argument byte-injection event stream.

package varvara

import (
	"sync"

	"github.com/zotley/uxnvm/internal/uxn"
)

const consoleBase = 0x10

const (
	conVector = 0x00 // u16
	conRead   = 0x02
	conType   = 0x07
	conWrite  = 0x08
	conError  = 0x09
)

// Console byte-event types (§4.F).
const (
	ConsoleTypeStdin     = 1
	ConsoleTypeArg       = 2
	ConsoleTypeArgSpacer = 3
	ConsoleTypeArgEnd    = 4
)

// Console implements the §4.F device. DEO writes to `write`/`error`
// accumulate into buffers the aggregator drains once per snapshot;
// external bytes (stdin, CLI argument injection) are turned into Events
// by StdinEvent/ArgEvent, which the aggregator's Queue* methods call.
type Console struct {
	bus *Bus

	mu     sync.Mutex
	stdout []byte
	stderr []byte
}

// NewConsole wires a Console device onto bus at base 0x10.
func NewConsole(bus *Bus) *Console {
	c := &Console{bus: bus}
	bus.Install(consoleBase, c)
	return c
}

func (c *Console) dei(cpu *uxn.CPU, target uint8) uint8 {
	return c.bus.Ports[target]
}

func (c *Console) deo(cpu *uxn.CPU, target uint8) bool {
	off := target - consoleBase
	switch off {
	case conWrite:
		c.mu.Lock()
		c.stdout = append(c.stdout, c.bus.Ports[target])
		c.mu.Unlock()
	case conError:
		c.mu.Lock()
		c.stderr = append(c.stderr, c.bus.Ports[target])
		c.mu.Unlock()
	}
	return true
}

// DrainStdout/DrainStderr return and clear the accumulated bytes,
// called once per host iteration by the aggregator's snapshot step.
func (c *Console) DrainStdout() []byte { return c.drain(&c.stdout) }
func (c *Console) DrainStderr() []byte { return c.drain(&c.stderr) }

func (c *Console) drain(buf *[]byte) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := *buf
	*buf = nil
	return out
}

// vector reads the console's installed vector address.
func (c *Console) vector() uint16 {
	return readShort(&c.bus.Ports, consoleBase+conVector)
}

// StdinEvent builds the Event for one byte read from stdin.
func (c *Console) StdinEvent(b byte) Event {
	c.bus.Ports[consoleBase+conType] = ConsoleTypeStdin
	return Event{
		Vector: c.vector(),
		Data:   &EventData{Addr: consoleBase + conRead, Value: b},
	}
}

// ArgEvent builds the Event for one byte of CLI argument injection.
// final marks the terminator byte emitted after the last argument (type
// becomes arg-end); spacer marks the separator byte emitted between
// arguments.
func (c *Console) ArgEvent(b byte, final, spacer bool) Event {
	typ := byte(ConsoleTypeArg)
	switch {
	case spacer:
		typ = ConsoleTypeArgSpacer
	case final:
		typ = ConsoleTypeArgEnd
	}
	c.bus.Ports[consoleBase+conType] = typ
	return Event{
		Vector: c.vector(),
		Data:   &EventData{Addr: consoleBase + conRead, Value: b},
	}
}
