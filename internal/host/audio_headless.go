//go:build headless

// audio_headless.go - no-op audio sink for headless/CI builds, grounded
// on the teacher's headless OtoPlayer stub (audio_backend_headless.go).

package host

import "github.com/zotley/uxnvm/internal/varvara"

// AudioSink discards every sample; used where no audio device is
// available (tests, CI) but the rest of the system must keep running.
type AudioSink struct{}

// NewAudioSink never fails in headless builds.
func NewAudioSink(audio *varvara.Audio) (*AudioSink, error) {
	return &AudioSink{}, nil
}

func (s *AudioSink) Start() {}
func (s *AudioSink) Close() {}
