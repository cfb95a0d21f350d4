//go:build !headless

// audio_oto.go - real audio output via oto v3, grounded on the
// teacher's OtoPlayer (audio_backend_oto.go): a float32LE oto.Player
// whose Read pulls samples from the emulated mixer instead of a ring
// buffer.

package host

import (
	"sync"
	"unsafe"

	"github.com/ebitengine/oto/v3"
	"github.com/zotley/uxnvm/internal/varvara"
)

const audioChannels = 2

// AudioSink drives an oto.Player whose Read callback mixes all four
// Varvara audio voices into one interleaved float32LE stream (§4.H's
// "audio callback (pull)" contract, §6's "Audio callback contract").
type AudioSink struct {
	ctx    *oto.Context
	player *oto.Player

	mu      sync.Mutex
	audio   *varvara.Audio
	scratch []float32
	mix     []float32
}

// NewAudioSink opens an oto context at the sample rate Varvara expects
// and wires it to audio. If the host has no supported 44.1kHz/stereo
// device, it returns an error; callers disable audio and keep running
// per §7's "Audio host misconfiguration" error kind.
func NewAudioSink(audio *varvara.Audio) (*AudioSink, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   44100,
		ChannelCount: audioChannels,
		Format:       oto.FormatFloat32LE,
		BufferSize:   0,
	})
	if err != nil {
		return nil, err
	}
	<-ready

	s := &AudioSink{ctx: ctx, audio: audio}
	s.player = ctx.NewPlayer(s)
	return s, nil
}

// Read implements io.Reader for oto.Player: fills p with interleaved
// float32LE samples, mixing every voice's contribution.
func (s *AudioSink) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(p) / 4
	if cap(s.mix) < n {
		s.mix = make([]float32, n)
		s.scratch = make([]float32, n)
	}
	mix := s.mix[:n]
	for i := range mix {
		mix[i] = 0
	}
	for _, v := range s.audio.Voices {
		scratch := s.scratch[:n]
		v.Next(scratch, audioChannels)
		for i, sample := range scratch {
			mix[i] += sample
		}
	}

	copy(p, (*[1 << 30]byte)(unsafe.Pointer(&mix[0]))[:len(p)])
	return len(p), nil
}

// Start begins playback.
func (s *AudioSink) Start() { s.player.Play() }

// Close stops playback and releases the oto player.
func (s *AudioSink) Close() {
	if s.player != nil {
		s.player.Close()
	}
}
