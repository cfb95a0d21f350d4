// stdin.go - raw-stdin reader goroutine feeding console.read events,
// grounded on the teacher's TerminalHost (terminal_host.go): a
// background reader forwarding bytes through an MPSC queue that the
// main loop drains non-blockingly each frame (§5's "platform-specific
// stdin reader thread").

package host

import (
	"os"
	"sync"

	"golang.org/x/term"
)

// StdinReader puts the terminal into raw mode and streams bytes into a
// channel the main loop drains once per tick. Raw mode means the MMIO
// device (not the OS) is responsible for echo and line editing.
type StdinReader struct {
	fd       int
	oldState *term.State

	bytes chan byte

	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
}

// NewStdinReader constructs a reader that has not yet taken over the
// terminal; call Start to begin.
func NewStdinReader() *StdinReader {
	return &StdinReader{
		bytes:  make(chan byte, 256),
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start puts stdin into raw mode and begins the background read loop.
// If stdin is not a terminal (piped input, tests), it still streams
// bytes but skips the raw-mode dance.
func (r *StdinReader) Start() error {
	r.fd = int(os.Stdin.Fd())

	if term.IsTerminal(r.fd) {
		oldState, err := term.MakeRaw(r.fd)
		if err != nil {
			close(r.done)
			return err
		}
		r.oldState = oldState
	}

	go r.loop()
	return nil
}

func (r *StdinReader) loop() {
	defer close(r.done)
	buf := make([]byte, 1)
	for {
		select {
		case <-r.stopCh:
			return
		default:
		}
		n, err := os.Stdin.Read(buf)
		if n > 0 {
			b := buf[0]
			if b == '\r' {
				b = '\n'
			}
			if b == 0x7F {
				b = 0x08
			}
			select {
			case r.bytes <- b:
			case <-r.stopCh:
				return
			}
		}
		if err != nil {
			return
		}
	}
}

// Bytes is the channel the main loop drains non-blockingly each tick.
func (r *StdinReader) Bytes() <-chan byte { return r.bytes }

// Stop ends the read goroutine and restores the terminal's prior mode.
func (r *StdinReader) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
	<-r.done
	if r.oldState != nil {
		_ = term.Restore(r.fd, r.oldState)
		r.oldState = nil
	}
}
