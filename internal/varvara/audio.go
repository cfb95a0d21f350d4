// audio.go - the Audio device: four independently-triggered PCM voices
// with ADSR envelopes and a fixed-length crossfade on retrigger (§4.H).

package varvara

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/zotley/uxnvm/internal/uxn"
)

const audioBase = 0x30
const audioVoiceCount = 4
const audioSlotSize = 0x10

// Audio port offsets, relative to a voice's own base.
const (
	audVector   = 0x00 // u16
	audPosition = 0x02 // u16
	audOutput   = 0x04
	audDuration = 0x05 // u16
	audADSR     = 0x08 // u16
	audLength   = 0x0A // u16
	audAddr     = 0x0C // u16
	audVolume   = 0x0E
	audPitch    = 0x0F
)

const (
	sampleRate    = 44100
	middleC       = 261.6
	crossfadeLen  = 200 // §4.H CROSSFADE_COUNT
)

// tuning is the per-MIDI-note playback rate table, lifted verbatim from
// the reference implementation (audio.c) - not derivable from a formula.
var tuning = [109]float64{
	0.00058853, 0.00062352, 0.00066060, 0.00069988, 0.00074150, 0.00078559,
	0.00083230, 0.00088179, 0.00093423, 0.00098978, 0.00104863, 0.00111099,
	0.00117705, 0.00124704, 0.00132120, 0.00139976, 0.00148299, 0.00157118,
	0.00166460, 0.00176359, 0.00186845, 0.00197956, 0.00209727, 0.00222198,
	0.00235410, 0.00249409, 0.00264239, 0.00279952, 0.00296599, 0.00314235,
	0.00332921, 0.00352717, 0.00373691, 0.00395912, 0.00419454, 0.00444396,
	0.00470821, 0.00498817, 0.00528479, 0.00559904, 0.00593197, 0.00628471,
	0.00665841, 0.00705434, 0.00747382, 0.00791823, 0.00838908, 0.00888792,
	0.00941642, 0.00997635, 0.01056957, 0.01119807, 0.01186395, 0.01256941,
	0.01331683, 0.01410869, 0.01494763, 0.01583647, 0.01677815, 0.01777583,
	0.01883284, 0.01995270, 0.02113915, 0.02239615, 0.02372789, 0.02513882,
	0.02663366, 0.02821738, 0.02989527, 0.03167293, 0.03355631, 0.03555167,
	0.03766568, 0.03990540, 0.04227830, 0.04479229, 0.04745578, 0.05027765,
	0.05326731, 0.05643475, 0.05979054, 0.06334587, 0.06711261, 0.07110333,
	0.07533136, 0.07981079, 0.08455659, 0.08958459, 0.09491156, 0.10055530,
	0.10653463, 0.11286951, 0.11958108, 0.12669174, 0.13422522, 0.14220667,
	0.15066272, 0.15962159, 0.16911318, 0.17916918, 0.18982313, 0.20111060,
	0.21306926, 0.22573902, 0.23916216, 0.25338348, 0.26845044, 0.28441334,
	0.30132544,
}

type envStage int

const (
	stageAttack envStage = iota
	stageDecay
	stageSustain
	stageRelease
)

// envelope decodes the adsr port: a big-endian u16 of four 4-bit fields.
type envelope struct{ raw uint16 }

func (e envelope) attackRate() (rate float64, enabled bool) {
	a := uint8(e.raw>>12) & 0xF
	if a == 0 {
		return 0, false
	}
	return 1000.0 / (float64(a) * 64.0 * sampleRate), true
}

func (e envelope) decayRate() float64 {
	d := float64(uint8(e.raw>>8)&0xF) * 64.0
	if d < 10 {
		d = 10
	}
	return 1000.0 / (d * sampleRate)
}

func (e envelope) sustainLevel() float64 {
	return float64(uint8(e.raw>>4)&0xF) / 16.0
}

func (e envelope) releaseRate() float64 {
	r := float64(uint8(e.raw)&0xF) * 64.0
	return 1000.0 / (r * sampleRate)
}

func (e envelope) disabled() bool { return e.raw == 0 }

// pitch decodes the pitch port.
type pitch uint8

func (p pitch) loopSample() bool { return p>>7 == 0 }
func (p pitch) note() uint8 {
	n := uint8(p) & 0x7F
	if n < 20 {
		n = 20
	}
	return n - 20
}
func (p pitch) isEmpty() bool { return p == 0 }

// Voice is one PCM playback channel: its sample buffer, envelope state,
// and the crossfade tail carried over from whatever was playing before
// retrigger. Mutated from the main thread (Trigger/Release) and read
// from the audio callback thread (Next); Mu scopes every access to a
// single buffer fill, per §5/§9's "shared audio state" design note.
type Voice struct {
	Mu sync.Mutex

	samples []byte
	loop    bool

	crossfade []float32 // fixed-length buffer, consumed front-to-back

	pos float64
	inc float64

	stage      envStage
	attackRate float64
	env        envelope
	vol        float64
	duration   float64 // milliseconds remaining
	left, right float64

	done  atomic.Bool
	muted *atomic.Bool
}

func newVoice(muted *atomic.Bool) *Voice {
	return &Voice{muted: muted}
}

func (v *Voice) getSample(i int) float64 {
	if i < 0 || i >= len(v.samples) {
		return 0
	}
	return float64(v.samples[i])
}

// Next fills data (interleaved, `channels` per frame) per the §4.H pull
// contract: linear-interpolated resample, crossfade blend, stereo gain,
// envelope advance, duration countdown.
func (v *Voice) Next(data []float32, channels int) {
	v.Mu.Lock()
	defer v.Mu.Unlock()

	frames := len(data) / channels
	v.duration -= float64(frames) / sampleRate * 1000.0
	if v.duration <= 0 {
		v.done.Store(true)
	}
	muted := v.muted.Load()

	for i := 0; i < len(data); i += channels {
		wrap := float64(len(v.samples))
		valid := true
		if wrap > 0 && v.pos >= wrap {
			if v.loop {
				v.pos = mod(v.pos, wrap)
			} else {
				valid = false
			}
		} else if wrap == 0 {
			valid = false
		}

		var d float64
		if valid {
			loIdx := int(v.pos)
			hiIdx := int(mod(math.Ceil(v.pos), wrap))
			frac := v.pos - float64(int(v.pos))
			lo := v.getSample(loIdx)
			hi := v.getSample(hiIdx)
			d = hi*frac + lo*(1-frac)
			d *= v.vol
			if d > 255 {
				d = 255
			}
			d -= 128
			d /= 512
		}
		if muted {
			d = 0
		}

		switch channels {
		case 1:
			data[i] = float32(d)
		default:
			data[i] = float32(d * v.left)
			data[i+1] = float32(d * v.right)
		}

		if len(v.crossfade) > 0 {
			x := float64(len(v.crossfade)) / (crossfadeLen - 1)
			for j := 0; j < channels && j < len(v.crossfade); j++ {
				cf := v.crossfade[0]
				v.crossfade = v.crossfade[1:]
				data[i+j] = float32(float64(cf)*x + float64(data[i+j])*(1-x))
			}
		}

		v.pos += v.inc
		switch v.stage {
		case stageAttack:
			v.vol += v.attackRate
			if v.vol >= 1 {
				v.stage = stageDecay
				v.vol = 1
			}
		case stageDecay:
			v.vol -= v.env.decayRate()
			if v.vol < 0 || v.vol <= v.env.sustainLevel() {
				v.stage = stageSustain
				v.vol = v.env.sustainLevel()
			}
		case stageSustain:
			v.vol = v.env.sustainLevel()
		case stageRelease:
			rel := v.env.releaseRate()
			if v.vol <= 0 || rel <= 0 {
				v.vol = 0
			} else {
				v.vol -= rel
			}
		}
	}
}

func mod(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return math.Mod(a, b)
}

// Audio implements the §4.H device: four Voices sharing one global mute
// flag, dispatched by target's voice index.
type Audio struct {
	bus    *Bus
	Voices [audioVoiceCount]*Voice
	muted  atomic.Bool
}

// NewAudio wires four Voices onto bus at bases 0x30, 0x40, 0x50, 0x60.
func NewAudio(bus *Bus) *Audio {
	a := &Audio{bus: bus}
	for i := range a.Voices {
		a.Voices[i] = newVoice(&a.muted)
		bus.Install(uint8(audioBase+i*audioSlotSize), &audioSlot{a: a, i: i})
	}
	return a
}

// SetMuted sets the global mute flag read by every voice's callback.
func (a *Audio) SetMuted(m bool) { a.muted.Store(m) }

// PollDone returns, and clears, the "done" flags for every voice whose
// playback just finished - the aggregator turns each into a note-end
// event firing that voice's vector (§4.M point 3).
func (a *Audio) PollDone() []int {
	var done []int
	for i, v := range a.Voices {
		if v.done.CompareAndSwap(true, false) {
			done = append(done, i)
		}
	}
	return done
}

// audioSlot adapts one voice's 16-byte port slot to portDevice.
type audioSlot struct {
	a *Audio
	i int
}

func (s *audioSlot) base() uint8 { return uint8(audioBase + s.i*audioSlotSize) }

func (s *audioSlot) dei(cpu *uxn.CPU, target uint8) uint8 {
	base := s.base()
	off := target - base
	v := s.a.Voices[s.i]
	switch off {
	case audPosition:
		v.Mu.Lock()
		pos := uint16(v.pos)
		v.Mu.Unlock()
		writeShort(&s.a.bus.Ports, base+audPosition, pos)
	case audOutput:
		v.Mu.Lock()
		vol := v.vol * 255.0
		v.Mu.Unlock()
		s.a.bus.Ports[base+audOutput] = uint8(vol)
	}
	return s.a.bus.Ports[target]
}

func (s *audioSlot) deo(cpu *uxn.CPU, target uint8) bool {
	base := s.base()
	off := target - base
	if off != audPitch {
		return true
	}
	v := s.a.Voices[s.i]
	p := pitch(s.a.bus.Ports[base+audPitch])

	if p.isEmpty() {
		v.Mu.Lock()
		v.stage = stageRelease
		v.duration = s.computeDuration(cpu, base)
		v.Mu.Unlock()
		return true
	}

	// The reference formula's odd length-as-frequency branch, reproduced
	// verbatim (§9 open question 1); it is not rationalized here.
	length := readShort(&s.a.bus.Ports, base+audLength)
	effRate := float64(length)
	if length > 256 {
		effRate = sampleRate / middleC
	}

	v.Mu.Lock()
	// Sample the outgoing voice's tail for crossfade before retriggering.
	tail := make([]float32, crossfadeLen)
	v.samplesLocked(tail)
	v.crossfade = tail

	addr := readShort(&s.a.bus.Ports, base+audAddr)
	samples := make([]byte, length)
	for i := uint16(0); i < length; i++ {
		samples[i] = cpu.Ram[addr+i]
	}
	v.samples = samples
	v.loop = p.loopSample()
	v.pos = 0

	env := envelope{raw: readShort(&s.a.bus.Ports, base+audADSR)}
	v.env = env
	rate, enabled := env.attackRate()
	if enabled {
		v.stage, v.attackRate = stageAttack, rate
	} else {
		v.stage = stageDecay
	}
	if enabled {
		v.vol = 0
	} else {
		v.vol = 1
	}

	v.inc = tuning[p.note()] * effRate
	vol := s.a.bus.Ports[base+audVolume]
	v.left = float64((vol>>4)&0xF) / 15.0
	v.right = float64(vol&0xF) / 15.0

	v.duration = s.computeDurationLocked(cpu, base, p)
	v.done.Store(false)
	v.Mu.Unlock()
	return true
}

// samplesLocked renders out into buf the voice's next len(buf) mono
// crossfade-source samples without touching shared mute/stage fields
// used by Next; called with v.Mu already held.
func (v *Voice) samplesLocked(buf []float32) {
	frames := len(buf)
	for i := 0; i < frames; i++ {
		wrap := float64(len(v.samples))
		var d float64
		if wrap > 0 {
			idx := v.pos
			if idx >= wrap {
				if v.loop {
					idx = mod(idx, wrap)
				} else {
					idx = -1
				}
			}
			if idx >= 0 {
				lo := v.getSample(int(idx))
				hi := v.getSample(int(mod(math.Ceil(idx), wrap)))
				frac := idx - math.Floor(idx)
				d = hi*frac + lo*(1-frac)
				d *= v.vol
				if d > 255 {
					d = 255
				}
				d -= 128
				d /= 512
			}
		}
		buf[i] = float32(d)
		v.pos += v.inc
	}
}

// computeDuration is used by the release path, which reads the port's
// `duration` field the same way the trigger path does.
func (s *audioSlot) computeDuration(cpu *uxn.CPU, base uint8) float64 {
	return s.computeDurationLocked(cpu, base, pitch(s.a.bus.Ports[base+audPitch]))
}

// computeDurationLocked implements §4.H point 5: explicit duration port
// if nonzero, else derive milliseconds from sample length and pitch as
// length * (tuning[0x28] / tuning[note]) / 44.1.
func (s *audioSlot) computeDurationLocked(cpu *uxn.CPU, base uint8, p pitch) float64 {
	dur := readShort(&s.a.bus.Ports, base+audDuration)
	if dur > 0 {
		return float64(dur)
	}
	length := readShort(&s.a.bus.Ports, base+audLength)
	scale := tuning[p.note()] / tuning[0x28]
	if scale == 0 {
		return 0
	}
	return float64(length) / (scale * 44.1)
}
