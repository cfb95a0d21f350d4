package varvara

import "testing"

// TestControllerKeyEventClearAfter reproduces spec.md scenario 6: the
// key byte event clears itself after the vector runs.
func TestControllerKeyEventClearAfter(t *testing.T) {
	bus := NewBus()
	ctl := NewController(bus)
	writeShort(&bus.Ports, controllerBase+ctlVector, 0x0200)

	ev := ctl.KeyEvent('a')
	if ev.Vector != 0x0200 {
		t.Fatalf("vector = %#x, want 0x0200", ev.Vector)
	}
	if !ev.Data.Clear {
		t.Fatal("key event Data.Clear = false, want true")
	}
	if ev.Data.Value != 'a' {
		t.Fatalf("key value = %q, want 'a'", ev.Data.Value)
	}

	bus.Ports[ev.Data.Addr] = ev.Data.Value
	if got := bus.Ports[controllerBase+ctlKey]; got != 'a' {
		t.Fatalf("Ports[key] = %q, want 'a'", got)
	}
	bus.Ports[ev.Data.Addr] = 0
	if got := bus.Ports[controllerBase+ctlKey]; got != 0 {
		t.Fatalf("Ports[key] after clear = %q, want 0", got)
	}
}

// TestControllerButtonEventChangeOnly checks that ButtonEvent only
// fires when the bitfield actually changed, unless repeat is set.
func TestControllerButtonEventChangeOnly(t *testing.T) {
	bus := NewBus()
	ctl := NewController(bus)

	if _, fired := ctl.ButtonEvent(0, false); fired {
		t.Fatal("fired on unchanged zero state")
	}
	if _, fired := ctl.ButtonEvent(ButtonUp, false); !fired {
		t.Fatal("did not fire on changed state")
	}
	if _, fired := ctl.ButtonEvent(ButtonUp, false); fired {
		t.Fatal("fired again with unchanged state and no repeat")
	}
	if _, fired := ctl.ButtonEvent(ButtonUp, true); !fired {
		t.Fatal("did not fire on repeat with unchanged state")
	}
}
