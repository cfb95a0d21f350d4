package varvara

import (
	"testing"

	"github.com/zotley/uxnvm/internal/uxn"
)

func newTestScreen() (*uxn.CPU, *Bus, *Screen) {
	bus := NewBus()
	cpu := &uxn.CPU{Dev: bus}
	pal := &Palette{Colors: [4]uint32{0x0F000000, 0x0FFFFFFF, 0x0F0000FF, 0x0F00FF00}}
	scr := NewScreen(bus, pal)
	return cpu, bus, scr
}

// TestScreenDefaultSize matches spec.md scenario 4's default 512x320
// screen.
func TestScreenDefaultSize(t *testing.T) {
	_, _, scr := newTestScreen()
	if scr.Width() != 512 || scr.Height() != 320 {
		t.Fatalf("size = %dx%d, want 512x320", scr.Width(), scr.Height())
	}
}

// TestScreenPixelWrite writes a single foreground pixel and checks the
// RGBA frame re-derives it to the palette color at that index.
func TestScreenPixelWrite(t *testing.T) {
	cpu, bus, scr := newTestScreen()

	writeShort(&bus.Ports, screenBase+scrX, 10)
	writeShort(&bus.Ports, screenBase+scrY, 20)
	bus.Ports[screenBase+scrPixel] = 0b01000001 // layer=fg, color=1
	scr.deo(cpu, screenBase+scrPixel)

	rgba, w, _ := scr.Frame()
	idx := (10 + 20*w) * 4
	// Frame emits little-endian bytes of the packed 0xAARRGGBB color, so
	// byte order is B,G,R,A.
	got := uint32(rgba[idx+2])<<16 | uint32(rgba[idx+1])<<8 | uint32(rgba[idx])
	want := scr.colorFor(1) & 0x00FFFFFF
	if got != want {
		t.Fatalf("pixel rgb = %#06x, want %#06x", got, want)
	}
}

// TestScreenPixelAutoAdvance checks the auto-increment bits on a
// non-fill pixel write (§4.G).
func TestScreenPixelAutoAdvance(t *testing.T) {
	cpu, bus, scr := newTestScreen()

	writeShort(&bus.Ports, screenBase+scrX, 5)
	writeShort(&bus.Ports, screenBase+scrY, 5)
	bus.Ports[screenBase+scrAuto] = 0b11 // auto_x and auto_y both set
	bus.Ports[screenBase+scrPixel] = 0x01
	scr.deo(cpu, screenBase+scrPixel)

	if x := readShort(&bus.Ports, screenBase+scrX); x != 6 {
		t.Fatalf("x after auto-advance = %d, want 6", x)
	}
	if y := readShort(&bus.Ports, screenBase+scrY); y != 6 {
		t.Fatalf("y after auto-advance = %d, want 6", y)
	}
}

// TestScreenFrameDirtyOnlyOncePerChange asserts Frame only re-derives
// when something actually changed, per §4.G's "dirty or palette
// changed" rule; this is an implementation detail worth pinning since
// the rule is the entire point of the dirty flag.
func TestScreenFrameDirtyOnlyOncePerChange(t *testing.T) {
	_, _, scr := newTestScreen()

	rgba1, _, _ := scr.Frame()
	// Overwrite one byte; a re-derivation would restore it.
	marker := rgba1[0] ^ 0xFF
	rgba1[0] = marker
	rgba2, _, _ := scr.Frame()
	if rgba2[0] != marker {
		t.Fatal("Frame re-derived the buffer with nothing dirty")
	}
}
