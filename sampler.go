// sampler.go - Polyphonic pitched sample playback

/*
(c) 2025 - 2026 Quartz Audio
https://github.com/quartzaudio/QuartzEngine
License: GPLv3 or later
*/

package main

import "math"

// Sampler parameter indices beyond the shared block.
const (
	PARAM_SAMPLER_ROOT_NOTE = PARAM_INSTRUMENT_BASE + iota
)

const SAMPLER_MAX_VOICES = 16

// Sampler plays a loaded sample polyphonically, repitched by MIDI note
// relative to a root note, with linear interpolation, optional loop
// points, per-note velocity and a shared ADSR.
type Sampler struct {
	name       string
	sampleRate uint32

	pool     *VoicePool
	envelope EnvelopeParams

	sample   *SampleData
	rootNote int
	volume   float32

	loopStart uint32
	loopEnd   uint32 // 0 means no loop
	looping   bool

	out blockOutput
}

// NewSampler creates an empty sampler; call SetSample or LoadSample
// before audio starts.
func NewSampler(name string, sampleRate uint32) *Sampler {
	if sampleRate == 0 {
		sampleRate = SAMPLE_RATE
	}
	return &Sampler{
		name:       name,
		sampleRate: sampleRate,
		pool:       NewVoicePool(SAMPLER_MAX_VOICES, STEAL_OLDEST),
		envelope: EnvelopeParams{
			Attack:  0.005,
			Decay:   0.1,
			Sustain: 1.0,
			Release: 0.2,
		},
		rootNote: 60, // middle C
		volume:   0.8,
		out:      newBlockOutput(),
	}
}

func (s *Sampler) Name() string            { return s.name }
func (s *Sampler) OutputBuffer() []float32 { return s.out.samples }
func (s *Sampler) Inputs() []AudioOperator { return nil }

// LoadSample decodes a WAV file into the sampler. Control thread,
// audio stopped.
func (s *Sampler) LoadSample(path string) error {
	data, err := LoadWAVFile(path)
	if err != nil {
		return err
	}
	s.SetSample(data)
	return nil
}

// SetSample installs an in-memory sample.
func (s *Sampler) SetSample(data *SampleData) {
	s.sample = data
	s.loopStart = 0
	s.loopEnd = 0
	s.looping = false
}

func (s *Sampler) Sample() *SampleData { return s.sample }

// SetLoopPoints enables looping between start and end seconds. An end
// of 0 loops to the sample end.
func (s *Sampler) SetLoopPoints(startSec, endSec float32) {
	if s.sample == nil {
		return
	}
	start := uint32(startSec * float32(s.sampleRate))
	end := s.sample.FrameCount
	if endSec > 0 {
		end = uint32(endSec * float32(s.sampleRate))
	}
	if start >= s.sample.FrameCount {
		start = 0
	}
	if end > s.sample.FrameCount {
		end = s.sample.FrameCount
	}
	if end <= start {
		end = s.sample.FrameCount
	}
	s.loopStart = start
	s.loopEnd = end
	s.looping = true
}

func (s *Sampler) SetRootNote(note int)         { s.rootNote = note }
func (s *Sampler) SetVolume(v float32)          { s.volume = clampf(v, 0, 1) }
func (s *Sampler) SetEnvelope(e EnvelopeParams) { s.envelope = e.Clamped() }
func (s *Sampler) SetStealPolicy(p int)         { s.pool.SetPolicy(p) }

// ----------------------------------------------------------------------------
// Playback API

// NoteOnMidi starts playback repitched from the root note. Returns the
// voice index or -1.
func (s *Sampler) NoteOnMidi(midiNote int, velocity float32) int {
	if s.sample == nil {
		return -1
	}
	return s.pool.NoteOnMidi(midiNote, MidiToFreq(midiNote), velocity)
}

// NoteOffMidi releases the voice playing midiNote.
func (s *Sampler) NoteOffMidi(midiNote int) {
	s.pool.NoteOffMidi(midiNote)
}

// NoteOn starts a note by frequency, repitching relative to the root
// note's frequency.
func (s *Sampler) NoteOn(freq, velocity float32) int {
	if s.sample == nil {
		return -1
	}
	return s.pool.NoteOn(freq, velocity)
}

// NoteOff releases the voice playing freq.
func (s *Sampler) NoteOff(freq float32) {
	s.pool.NoteOff(freq)
}

func (s *Sampler) AllNotesOff()          { s.pool.AllNotesOff() }
func (s *Sampler) Panic()                { s.pool.Panic() }
func (s *Sampler) ActiveVoiceCount() int { return s.pool.ActiveVoiceCount() }

// Reset silences all voices and clears the output.
func (s *Sampler) Reset() {
	s.pool.Panic()
	s.out.clear()
}

// HandleEvent applies a control event. Audio thread, block boundary.
func (s *Sampler) HandleEvent(ev AudioEvent) {
	switch ev.Kind {
	case EVENT_NOTE_ON:
		s.NoteOn(ev.Value1, ev.Value2)
	case EVENT_NOTE_OFF:
		s.NoteOff(ev.Value1)
	case EVENT_TRIGGER:
		// One-shot hit at the root pitch.
		if s.sample != nil {
			s.pool.NoteOnMidi(s.rootNote, MidiToFreq(s.rootNote), 1)
		}
	case EVENT_PARAM_CHANGE:
		s.setParam(ev.ParamID, ev.Value1)
	case EVENT_RESET:
		s.Reset()
	}
}

func (s *Sampler) setParam(id uint32, value float32) {
	switch id {
	case PARAM_VOLUME:
		s.volume = clampf(value, 0, 1)
	case PARAM_ATTACK:
		s.envelope.Attack = value
	case PARAM_DECAY:
		s.envelope.Decay = value
	case PARAM_SUSTAIN:
		s.envelope.Sustain = clampf(value, 0, 1)
	case PARAM_RELEASE:
		s.envelope.Release = value
	case PARAM_SAMPLER_ROOT_NOTE:
		s.rootNote = int(value)
	}
}

// ParamIndex maps a parameter name to its event index.
func (s *Sampler) ParamIndex(name string) (uint32, bool) {
	switch name {
	case "volume":
		return PARAM_VOLUME, true
	case "attack":
		return PARAM_ATTACK, true
	case "decay":
		return PARAM_DECAY, true
	case "sustain":
		return PARAM_SUSTAIN, true
	case "release":
		return PARAM_RELEASE, true
	case "rootNote":
		return PARAM_SAMPLER_ROOT_NOTE, true
	}
	return 0, false
}

// ----------------------------------------------------------------------------
// Generation

// GenerateBlock mixes all active voices into the output buffer.
func (s *Sampler) GenerateBlock(frameCount uint32) {
	out := s.out.frame(frameCount)
	for i := range out {
		out[i] = 0
	}
	if s.sample == nil || s.sample.FrameCount == 0 {
		return
	}

	rootFreq := MidiToFreq(s.rootNote)
	// Compensate for a sample recorded at a different rate than the
	// engine runs at.
	rateRatio := float64(s.sample.SampleRate) / float64(s.sampleRate)

	for vi := 0; vi < s.pool.Size(); vi++ {
		v := s.pool.Voice(vi)
		if !v.Active() {
			continue
		}

		pitch := float64(v.Frequency/rootFreq) * rateRatio

		for i := uint32(0); i < frameCount; i++ {
			if v.Position >= float64(s.sample.FrameCount) {
				if s.looping && s.loopEnd > s.loopStart {
					v.Position = float64(s.loopStart)
				} else {
					v.env.kill()
					break
				}
			}
			if s.looping && s.loopEnd > s.loopStart && v.Position >= float64(s.loopEnd) {
				v.Position = float64(s.loopStart) + math.Mod(v.Position-float64(s.loopEnd), float64(s.loopEnd-s.loopStart))
			}

			v.env.advance(s.envelope, 1, s.sampleRate)
			if !v.Active() {
				break
			}

			left, right := s.interpolate(v.Position)
			gain := v.env.value * v.Velocity * s.volume
			out[i*2] += left * gain
			out[i*2+1] += right * gain

			v.Position += pitch
		}
	}
}

// interpolate reads the sample at a fractional frame position with
// linear interpolation.
func (s *Sampler) interpolate(pos float64) (float32, float32) {
	p0 := uint32(pos)
	if p0 >= s.sample.FrameCount {
		return 0, 0
	}
	p1 := p0 + 1
	if p1 >= s.sample.FrameCount {
		p1 = p0
	}
	frac := float32(pos - float64(p0))

	data := s.sample.Samples
	left := data[p0*2] + (data[p1*2]-data[p0*2])*frac
	right := data[p0*2+1] + (data[p1*2+1]-data[p0*2+1])*frac
	return left, right
}
