//go:build headless

// video_headless.go - a headless stand-in for Window that drives the
// Machine without opening an OS window, grounded on the teacher's
// HeadlessVideoOutput (video_backend_headless.go): counts frames, never
// blocks on vsync.

package host

import (
	"sync/atomic"

	"github.com/zotley/uxnvm/internal/varvara"
)

// Window runs the Machine's Tick loop without any real display, input,
// or stdin source; used for tests and CI per §7's headless-mode note.
type Window struct {
	Machine *varvara.Machine

	frameCount uint64
	quit       bool

	lastStdout func([]byte)
	lastStderr func([]byte)
}

// NewWindow ignores stdin/scale in headless builds; both are unused
// when there is no real terminal or window to size.
func NewWindow(m *varvara.Machine, _ *StdinReader, _ int) *Window {
	return &Window{Machine: m}
}

// OnOutput installs callbacks invoked with each frame's drained
// stdout/stderr bytes; nil disables either stream.
func (w *Window) OnOutput(stdout, stderr func([]byte)) {
	w.lastStdout, w.lastStderr = stdout, stderr
}

// SetStatus is a no-op in headless builds: there is no window to
// overlay a status line onto.
func (w *Window) SetStatus(string) {}

// Run drives Tick in a plain loop until the ROM requests exit.
func (w *Window) Run(_ string) error {
	for !w.quit {
		snap := w.Machine.Tick()
		atomic.AddUint64(&w.frameCount, 1)
		if w.lastStdout != nil && len(snap.Stdout) > 0 {
			w.lastStdout(snap.Stdout)
		}
		if w.lastStderr != nil && len(snap.Stderr) > 0 {
			w.lastStderr(snap.Stderr)
		}
		if snap.ExitRequested {
			w.quit = true
		}
	}
	return nil
}

// FrameCount reports how many Tick iterations Run has completed.
func (w *Window) FrameCount() uint64 { return atomic.LoadUint64(&w.frameCount) }
