package varvara

import "testing"

func TestConsoleStdinEventSetsType(t *testing.T) {
	bus := NewBus()
	con := NewConsole(bus)
	writeShort(&bus.Ports, consoleBase+conVector, 0x0100)

	ev := con.StdinEvent('x')
	if ev.Vector != 0x0100 {
		t.Fatalf("vector = %#x, want 0x0100", ev.Vector)
	}
	if got := bus.Ports[consoleBase+conType]; got != ConsoleTypeStdin {
		t.Fatalf("type = %d, want ConsoleTypeStdin", got)
	}
	if ev.Data.Value != 'x' || ev.Data.Clear {
		t.Fatalf("data = %+v, want value 'x', clear=false", ev.Data)
	}
}

func TestConsoleArgEventSpacerAndEnd(t *testing.T) {
	bus := NewBus()
	con := NewConsole(bus)

	con.ArgEvent('a', false, false)
	if got := bus.Ports[consoleBase+conType]; got != ConsoleTypeArg {
		t.Fatalf("type = %d, want ConsoleTypeArg", got)
	}
	con.ArgEvent(' ', false, true)
	if got := bus.Ports[consoleBase+conType]; got != ConsoleTypeArgSpacer {
		t.Fatalf("type = %d, want ConsoleTypeArgSpacer", got)
	}
	con.ArgEvent('z', true, false)
	if got := bus.Ports[consoleBase+conType]; got != ConsoleTypeArgEnd {
		t.Fatalf("type = %d, want ConsoleTypeArgEnd", got)
	}
}

func TestConsoleDrainClearsBuffer(t *testing.T) {
	bus := NewBus()
	con := NewConsole(bus)

	bus.Ports[consoleBase+conWrite] = 'h'
	con.deo(nil, consoleBase+conWrite)
	bus.Ports[consoleBase+conWrite] = 'i'
	con.deo(nil, consoleBase+conWrite)

	if got := string(con.DrainStdout()); got != "hi" {
		t.Fatalf("stdout = %q, want %q", got, "hi")
	}
	if got := con.DrainStdout(); got != nil {
		t.Fatalf("second drain = %v, want nil", got)
	}
}
