//go:build !headless

// video_ebiten.go - real windowed video output and input source, grounded
// on the teacher's EbitenOutput (video_backend_ebiten.go): an ebiten.Game
// implementation that uploads one RGBA frame per Draw and translates
// keyboard/mouse state into MMIO-facing events on Update.

package host

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/zotley/uxnvm/internal/varvara"
)

// buttonKeys maps a Varvara controller button bit to the ebiten key (or
// keys) that set it, mirroring §4.I's button bitfield layout.
var buttonKeys = []struct {
	bit  uint8
	keys []ebiten.Key
}{
	{varvara.ButtonCtrl, []ebiten.Key{ebiten.KeyControlLeft, ebiten.KeyControlRight}},
	{varvara.ButtonAlt, []ebiten.Key{ebiten.KeyAltLeft, ebiten.KeyAltRight}},
	{varvara.ButtonShift, []ebiten.Key{ebiten.KeyShiftLeft, ebiten.KeyShiftRight}},
	{varvara.ButtonHome, []ebiten.Key{ebiten.KeyHome}},
	{varvara.ButtonUp, []ebiten.Key{ebiten.KeyArrowUp}},
	{varvara.ButtonDown, []ebiten.Key{ebiten.KeyArrowDown}},
	{varvara.ButtonLeft, []ebiten.Key{ebiten.KeyArrowLeft}},
	{varvara.ButtonRight, []ebiten.Key{ebiten.KeyArrowRight}},
}

var specialControllerKeys = []ebiten.Key{
	ebiten.KeyEnter, ebiten.KeyNumpadEnter, ebiten.KeyBackspace,
	ebiten.KeyTab, ebiten.KeyEscape, ebiten.KeyDelete,
}

// Window drives the emulator one frame per ebiten tick: it queues
// keyboard/mouse/stdin events onto the Machine, advances it, then paints
// the resulting frame. It satisfies ebiten.Game.
type Window struct {
	Machine *varvara.Machine
	Stdin   *StdinReader
	Scale   int

	window     *ebiten.Image
	fullscreen bool
	windowedW  int
	windowedH  int

	lastStdout func([]byte)
	lastStderr func([]byte)

	quit bool

	status    string // optional one-line diagnostic overlay
	statusImg *ebiten.Image
}

// NewWindow builds a Window at the Machine's current screen size scaled
// by scale (§5's "host window, scaled integer multiple of the Varvara
// screen resolution").
func NewWindow(m *varvara.Machine, stdin *StdinReader, scale int) *Window {
	if scale < 1 {
		scale = 1
	}
	w := &Window{Machine: m, Stdin: stdin, Scale: scale}
	w.windowedW = int(m.Screen.Width()) * scale
	w.windowedH = int(m.Screen.Height()) * scale
	ebiten.SetWindowSize(w.windowedW, w.windowedH)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	return w
}

// OnOutput installs callbacks invoked with each frame's drained
// stdout/stderr bytes; nil disables either stream.
func (w *Window) OnOutput(stdout, stderr func([]byte)) {
	w.lastStdout, w.lastStderr = stdout, stderr
}

// SetStatus installs (or clears, with "") a one-line status overlay
// drawn over the top-left corner of the frame; the run command sets it
// only for the stdin-unavailable warning. Rendered with a fixed
// bitmap font rather than shaped text since it is diagnostic output,
// not guest-controlled content.
func (w *Window) SetStatus(line string) {
	if line == w.status {
		return
	}
	w.status = line
	w.statusImg = renderStatusLine(line)
}

func renderStatusLine(line string) *ebiten.Image {
	if line == "" {
		return nil
	}
	face := basicfont.Face7x13
	width := len(line)*7 + 4
	img := image.NewRGBA(image.Rect(0, 0, width, 16))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.NRGBA{0, 0, 0, 200}), image.Point{}, draw.Src)
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.White),
		Face: face,
		Dot:  fixed.P(2, 12),
	}
	d.DrawString(line)
	return ebiten.NewImageFromImage(img)
}

func (w *Window) Update() error {
	if ebiten.IsWindowBeingClosed() || w.quit {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF11) {
		w.fullscreen = !w.fullscreen
		ebiten.SetFullscreen(w.fullscreen)
		if !w.fullscreen {
			ebiten.SetWindowSize(w.windowedW, w.windowedH)
		}
	}

	w.drainStdin()
	w.pollKeyboard()
	w.pollMouse()

	snap := w.Machine.Tick()
	if w.lastStdout != nil && len(snap.Stdout) > 0 {
		w.lastStdout(snap.Stdout)
	}
	if w.lastStderr != nil && len(snap.Stderr) > 0 {
		w.lastStderr(snap.Stderr)
	}
	if w.window == nil || w.window.Bounds().Dx() != snap.FrameWidth || w.window.Bounds().Dy() != snap.FrameHeight {
		w.window = ebiten.NewImage(snap.FrameWidth, snap.FrameHeight)
	}
	w.window.WritePixels(snap.FrameRGBA)
	if snap.ExitRequested {
		w.quit = true
	}
	return nil
}

// drainStdin forwards every byte the background reader has buffered
// since the last tick as a console.read event.
func (w *Window) drainStdin() {
	if w.Stdin == nil {
		return
	}
	for {
		select {
		case b := <-w.Stdin.Bytes():
			w.Machine.QueueStdin(b)
		default:
			return
		}
	}
}

// pollKeyboard folds pressed modifier/arrow keys into one button-field
// event and emits character/special-key events for the controller, mirroring
// the teacher's handleKeyboardInput split between buttons and bytes.
func (w *Window) pollKeyboard() {
	var buttons uint8
	for _, bk := range buttonKeys {
		for _, k := range bk.keys {
			if ebiten.IsKeyPressed(k) {
				buttons |= bk.bit
				break
			}
		}
	}
	w.Machine.QueueControllerButtons(buttons, false)

	for _, r := range ebiten.AppendInputChars(nil) {
		if r > 0 && r <= 0xFF {
			w.Machine.QueueControllerKey(byte(r))
		}
	}
	for _, key := range specialControllerKeys {
		if inpututil.IsKeyJustPressed(key) {
			if b, ok := specialKeyByte(key); ok {
				w.Machine.QueueControllerKey(b)
			}
		}
	}
}

func specialKeyByte(key ebiten.Key) (byte, bool) {
	switch key {
	case ebiten.KeyEnter, ebiten.KeyNumpadEnter:
		return '\r', true
	case ebiten.KeyBackspace:
		return 0x08, true
	case ebiten.KeyTab:
		return '\t', true
	case ebiten.KeyEscape:
		return 0x1B, true
	case ebiten.KeyDelete:
		return 0x7F, true
	default:
		return 0, false
	}
}

// pollMouse reports cursor position, buttons and scroll wheel every
// tick; Mouse.Tick decides whether any of it actually changed.
func (w *Window) pollMouse() {
	x, y := ebiten.CursorPosition()
	var buttons uint8
	if ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft) {
		buttons |= 0x01
	}
	if ebiten.IsMouseButtonPressed(ebiten.MouseButtonMiddle) {
		buttons |= 0x02
	}
	if ebiten.IsMouseButtonPressed(ebiten.MouseButtonRight) {
		buttons |= 0x04
	}
	sx, sy := ebiten.Wheel()
	w.Machine.QueueMouse(clampCoord(x), clampCoord(y), buttons, sx, sy)
}

func clampCoord(v int) uint16 {
	if v < 0 {
		return 0
	}
	if v > 0xFFFF {
		return 0xFFFF
	}
	return uint16(v)
}

func (w *Window) Draw(screen *ebiten.Image) {
	if w.window == nil {
		return
	}
	screen.DrawImage(w.window, nil)
	if w.statusImg != nil {
		screen.DrawImage(w.statusImg, nil)
	}
}

func (w *Window) Layout(_, _ int) (int, int) {
	if w.window == nil {
		return w.windowedW, w.windowedH
	}
	b := w.window.Bounds()
	return b.Dx(), b.Dy()
}

// Run starts the ebiten loop; it blocks until the window closes or the
// ROM requests exit via the System device's state port.
func (w *Window) Run(title string) error {
	ebiten.SetWindowTitle(title)
	return ebiten.RunGame(w)
}
