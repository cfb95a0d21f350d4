// varvara.go - the Varvara aggregator: owns every device and the CPU
// that addresses them, and drives one host iteration per call to Tick
// (§4.M).

package varvara

import "github.com/zotley/uxnvm/internal/uxn"

// Snapshot is what one host iteration hands back to the outer loop:
// everything the host needs to paint a frame, play audio, flush
// console output, and decide whether to exit (§4.M point 4).
type Snapshot struct {
	FrameRGBA     []byte
	FrameWidth    int
	FrameHeight   int
	Stdout        []byte
	Stderr        []byte
	ExitRequested bool
	ExitCode      uint8
}

// Machine bundles the CPU core with every Varvara device, wired onto a
// shared Bus (§4.C/4.D).
type Machine struct {
	CPU *uxn.CPU
	Bus *Bus

	System     *System
	Console    *Console
	Screen     *Screen
	Audio      *Audio
	Controller *Controller
	Mouse      *Mouse
	File       *File
	Datetime   *Datetime

	pal *Palette

	pendingConsole []Event
	pendingInput   []Event
}

// New builds a Machine with every device installed and its CPU ready
// to load a ROM.
func New() *Machine {
	bus := NewBus()
	cpu := &uxn.CPU{Dev: bus}
	pal := &Palette{}

	m := &Machine{
		CPU:        cpu,
		Bus:        bus,
		System:     NewSystem(bus, pal),
		Console:    NewConsole(bus),
		Screen:     NewScreen(bus, pal),
		Audio:      NewAudio(bus),
		Controller: NewController(bus),
		Mouse:      NewMouse(bus),
		File:       NewFile(bus),
		Datetime:   NewDatetime(bus),
		pal:        pal,
	}
	return m
}

// Boot loads rom and runs the reset vector (0x0100) once, the same way
// the CPU core always begins execution.
func (m *Machine) Boot(rom []byte) {
	overflow := m.CPU.LoadROM(rom)
	m.System.seedExpansion(overflow)
	m.CPU.Run(0x0100)
}

// seedExpansion stores ROM bytes past the main 64 KiB image as the
// initial contents of expansion bank 1, then bank 2, and so on (§6).
func (s *System) seedExpansion(overflow []byte) {
	bank := 0
	for len(overflow) > 0 && bank < expansionBankCount {
		buf := s.bankBytes(nil, uint16(bank+1))
		n := copy(buf, overflow)
		overflow = overflow[n:]
		bank++
	}
}

// QueueStdin enqueues one stdin byte for the next Tick's input drain.
func (m *Machine) QueueStdin(b byte) {
	m.pendingConsole = append(m.pendingConsole, m.Console.StdinEvent(b))
}

// QueueArg enqueues one byte of CLI argument injection.
func (m *Machine) QueueArg(b byte, final, spacer bool) {
	m.pendingConsole = append(m.pendingConsole, m.Console.ArgEvent(b, final, spacer))
}

// QueueControllerKey enqueues a character keypress event.
func (m *Machine) QueueControllerKey(b byte) {
	m.pendingInput = append(m.pendingInput, m.Controller.KeyEvent(b))
}

// QueueControllerButtons enqueues a modifier/arrow bitfield update if
// it actually changed (or repeat is set).
func (m *Machine) QueueControllerButtons(buttons uint8, repeat bool) {
	if ev, ok := m.Controller.ButtonEvent(buttons, repeat); ok {
		m.pendingInput = append(m.pendingInput, ev)
	}
}

// QueueMouse folds one frame of mouse state into zero or more events.
func (m *Machine) QueueMouse(x, y uint16, buttons uint8, scrollX, scrollY float64) {
	m.pendingInput = append(m.pendingInput, m.Mouse.Tick(x, y, buttons, scrollX, scrollY)...)
}

// Tick runs one host iteration per §4.M: screen vector, input drain,
// audio polling, then a snapshot. The order matches the spec exactly
// since the screen vector's side effects must land before input events
// queued this same frame are processed.
func (m *Machine) Tick() Snapshot {
	m.runEvent(Event{Vector: m.Screen.vector()})

	pending := append(m.pendingConsole, m.pendingInput...)
	m.pendingConsole = nil
	m.pendingInput = nil
	for _, ev := range pending {
		m.runEvent(ev)
	}

	for _, i := range m.Audio.PollDone() {
		vec := readShort(&m.Bus.Ports, uint8(audioBase+i*audioSlotSize)+audVector)
		m.runEvent(Event{Vector: vec})
	}

	rgba, w, h := m.Screen.Frame()
	snap := Snapshot{
		FrameRGBA:     rgba,
		FrameWidth:    w,
		FrameHeight:   h,
		Stdout:        m.Console.DrainStdout(),
		Stderr:        m.Console.DrainStderr(),
		ExitRequested: m.System.ExitRequested,
		ExitCode:      m.System.ExitCode,
	}
	m.System.ExitRequested = false
	return snap
}

// runEvent implements the per-event processing rule of §4.M: plant the
// byte if present, run the vector, then clear if requested. A zero
// vector means no handler is installed and the event is dropped.
func (m *Machine) runEvent(ev Event) {
	if ev.Vector == 0 {
		return
	}
	if ev.Data != nil {
		m.Bus.Ports[ev.Data.Addr] = ev.Data.Value
	}
	m.CPU.Run(ev.Vector)
	if ev.Data != nil && ev.Data.Clear {
		m.Bus.Ports[ev.Data.Addr] = 0
	}
}
