// screen.go - the Screen device: two 2-bit pixel planes, pixel/sprite
// blit operations, and RGBA frame re-derivation (§4.G).

package varvara

import "github.com/zotley/uxnvm/internal/uxn"

const screenBase = 0x20

const (
	scrVector = 0x00 // u16
	scrWidth  = 0x02 // u16
	scrHeight = 0x04 // u16
	scrAuto   = 0x06
	scrX      = 0x08 // u16
	scrY      = 0x0A // u16
	scrAddr   = 0x0C // u16
	scrPixel  = 0x0E
	scrSprite = 0x0F
)

const (
	defaultScreenWidth  = 512
	defaultScreenHeight = 320
)

// blending maps (sprite pixel data 0..3, sprite color 0..15) to an
// output palette index - a fixed table lifted verbatim from the
// reference blit, not derivable from first principles (§9 open
// question 2, glossary "BLENDING table").
var blending = [4][16]uint8{
	{0, 0, 0, 0, 1, 0, 1, 1, 2, 2, 0, 2, 3, 3, 3, 0},
	{0, 1, 2, 3, 0, 1, 2, 3, 0, 1, 2, 3, 0, 1, 2, 3},
	{1, 2, 3, 1, 1, 2, 3, 1, 1, 2, 3, 1, 1, 2, 3, 1},
	{2, 3, 1, 2, 2, 3, 1, 2, 2, 3, 1, 2, 2, 3, 1, 2},
}

// opaque marks which sprite colors treat data==0 as opaque rather than
// transparent (glossary "OPAQUE table").
var opaque = [16]bool{
	false, true, true, true, true, false, true, true,
	true, true, false, true, true, true, true, false,
}

// Screen implements the §4.G device: a foreground and background plane
// of 2-bit indices, re-derived into an RGBA buffer on demand.
type Screen struct {
	bus *Bus
	pal *Palette

	width, height int
	fg, bg        []uint8
	rgba          []byte

	dirty bool

	lastColors [4]uint32
}

// NewScreen wires a Screen device onto bus at base 0x20, sharing pal
// with the System device that decodes palette writes.
func NewScreen(bus *Bus, pal *Palette) *Screen {
	s := &Screen{bus: bus, pal: pal}
	s.resize(defaultScreenWidth, defaultScreenHeight)
	writeShort(&bus.Ports, screenBase+scrWidth, uint16(s.width))
	writeShort(&bus.Ports, screenBase+scrHeight, uint16(s.height))
	bus.Install(screenBase, s)
	return s
}

func (s *Screen) resize(w, h int) {
	size := w * h
	fg := make([]uint8, size)
	bg := make([]uint8, size)
	// Preserve overlap, zero-fill new area (§4.G "resizes both planes").
	minW, minH := w, h
	if s.width < minW {
		minW = s.width
	}
	if s.height < minH {
		minH = s.height
	}
	for y := 0; y < minH; y++ {
		copy(fg[y*w:y*w+minW], s.fg[y*s.width:y*s.width+minW])
		copy(bg[y*w:y*w+minW], s.bg[y*s.width:y*s.width+minW])
	}
	s.fg, s.bg = fg, bg
	s.rgba = make([]byte, size*4)
	s.width, s.height = w, h
	s.dirty = true
}

func (s *Screen) dei(cpu *uxn.CPU, target uint8) uint8 {
	off := target - screenBase
	switch off {
	case scrWidth, scrWidth + 1:
		writeShort(&s.bus.Ports, screenBase+scrWidth, uint16(s.width))
	case scrHeight, scrHeight + 1:
		writeShort(&s.bus.Ports, screenBase+scrHeight, uint16(s.height))
	}
	return s.bus.Ports[target]
}

func (s *Screen) deo(cpu *uxn.CPU, target uint8) bool {
	off := target - screenBase
	switch off {
	case scrWidth + 1:
		w := int(readShort(&s.bus.Ports, screenBase+scrWidth))
		if w != s.width {
			s.resize(w, s.height)
		}
	case scrHeight + 1:
		h := int(readShort(&s.bus.Ports, screenBase+scrHeight))
		if h != s.height {
			s.resize(s.width, h)
		}
	case scrPixel:
		s.pixel(cpu)
	case scrSprite:
		s.sprite(cpu)
	}
	return true
}

func (s *Screen) vector() uint16 {
	return readShort(&s.bus.Ports, screenBase+scrVector)
}

func (s *Screen) plane(layer bool) []uint8 {
	if layer {
		return s.fg
	}
	return s.bg
}

// pixel implements the §4.G pixel operation.
func (s *Screen) pixel(cpu *uxn.CPU) {
	p := s.bus.Ports[screenBase+scrPixel]
	color := p & 0b11
	fill := p&(1<<7) != 0
	layer := p&(1<<6) != 0
	flipY := p&(1<<5) != 0
	flipX := p&(1<<4) != 0
	auto := s.bus.Ports[screenBase+scrAuto]

	x := int(readShort(&s.bus.Ports, screenBase+scrX))
	y := int(readShort(&s.bus.Ports, screenBase+scrY))
	pixels := s.plane(layer)
	s.dirty = true

	if fill {
		xLo, xHi := x, s.width
		if flipX {
			xLo, xHi = 0, x
		}
		yLo, yHi := y, s.height
		if flipY {
			yLo, yHi = 0, y
		}
		for xi := xLo; xi < xHi; xi++ {
			for yi := yLo; yi < yHi; yi++ {
				pixels[xi+yi*s.width] = color
			}
		}
		return
	}

	if x < s.width && y < s.height {
		pixels[x+y*s.width] = color
	}
	autoX := auto&(1<<0) != 0
	autoY := auto&(1<<1) != 0
	if autoX {
		writeShort(&s.bus.Ports, screenBase+scrX, uint16(x)+1)
	}
	if autoY {
		writeShort(&s.bus.Ports, screenBase+scrY, uint16(y)+1)
	}
}

// sprite implements the §4.G sprite blit. auto_y advances x and auto_x
// advances y inside the per-tile loop - this is intentional, matching
// the reference blit (§9 open question 2), not a naming mistake here.
func (s *Screen) sprite(cpu *uxn.CPU) {
	p := s.bus.Ports[screenBase+scrSprite]
	color := p & 0xF
	twoBPP := p&(1<<7) != 0
	layer := p&(1<<6) != 0
	flipY := p&(1<<5) != 0
	flipX := p&(1<<4) != 0

	auto := s.bus.Ports[screenBase+scrAuto]
	autoLen := auto >> 4
	autoAddr := auto&(1<<2) != 0
	autoY := auto&(1<<1) != 0
	autoX := auto&(1<<0) != 0

	pixels := s.plane(layer)
	s.dirty = true

	x := int(readShort(&s.bus.Ports, screenBase+scrX))
	y := int(readShort(&s.bus.Ports, screenBase+scrY))

	for n := 0; n <= int(autoLen); n++ {
		addr := readShort(&s.bus.Ports, screenBase+scrAddr)
		for dy := 0; dy < 8; dy++ {
			py := y + dy
			if flipY {
				py = y + 7 - dy
			}
			if py < 0 || py >= s.height {
				continue
			}
			lo := cpu.Ram[addr]
			var hi byte
			if twoBPP {
				hi = cpu.Ram[addr+8]
			}
			for dx := 0; dx < 8; dx++ {
				px := x + dx
				if flipX {
					px = x + 7 - dx
				}
				if px < 0 || px >= s.width {
					continue
				}
				data := (lo>>(7-dx))&1 | (((hi >> (7 - dx)) & 1) << 1)
				if data != 0 || opaque[color] {
					pixels[px+py*s.width] = blending[data][color]
				}
			}
			addr++
		}
		if twoBPP {
			addr += 8
		}
		if autoY {
			if flipX {
				x -= 8
			} else {
				x += 8
			}
		}
		if autoX {
			if flipY {
				y -= 8
			} else {
				y += 8
			}
		}
		if autoAddr {
			writeShort(&s.bus.Ports, screenBase+scrAddr, addr)
		}
	}

	if autoX {
		cur := int(readShort(&s.bus.Ports, screenBase+scrX))
		if flipX {
			cur -= 8
		} else {
			cur += 8
		}
		writeShort(&s.bus.Ports, screenBase+scrX, uint16(cur))
	}
	if autoY {
		cur := int(readShort(&s.bus.Ports, screenBase+scrY))
		if flipY {
			cur -= 8
		} else {
			cur += 8
		}
		writeShort(&s.bus.Ports, screenBase+scrY, uint16(cur))
	}
}

// Width reports the current screen width in pixels.
func (s *Screen) Width() int { return s.width }

// Height reports the current screen height in pixels.
func (s *Screen) Height() int { return s.height }

// Frame re-derives the RGBA buffer if the dirty flag or palette changed
// since the last call (§4.G "Frame emission").
func (s *Screen) Frame() (rgba []byte, width, height int) {
	if s.pal != nil && s.pal.Colors != s.lastColors {
		s.dirty = true
		s.lastColors = s.pal.Colors
	}
	if s.dirty {
		for i, bgv := range s.bg {
			idx := bgv
			if fgv := s.fg[i]; fgv != 0 {
				idx = fgv
			}
			c := s.colorFor(idx)
			o := s.rgba[i*4 : i*4+4]
			o[0] = byte(c)
			o[1] = byte(c >> 8)
			o[2] = byte(c >> 16)
			o[3] = byte(c >> 24)
		}
		s.dirty = false
	}
	return s.rgba, s.width, s.height
}

func (s *Screen) colorFor(idx uint8) uint32 {
	if s.pal == nil {
		return 0
	}
	return s.pal.Colors[idx&0b11]
}
