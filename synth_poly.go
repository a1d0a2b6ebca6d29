// synth_poly.go - Polyphonic oscillator synthesizer

/*
(c) 2025 - 2026 Quartz Audio
https://github.com/quartzaudio/QuartzEngine
License: GPLv3 or later
*/

package main

import "math"

// PolySynth parameter indices beyond the shared block.
const (
	PARAM_POLY_DETUNE = PARAM_INSTRUMENT_BASE + iota
	PARAM_POLY_UNISON_DETUNE
	PARAM_POLY_PULSE_WIDTH
	PARAM_POLY_WAVEFORM
)

const (
	POLY_DEFAULT_VOICES = 8
	POLY_MAX_VOICES     = 16
)

// PolySynth is a polyphonic subtractive-style synthesizer: up to 16
// voices sharing one waveform, one ADSR and global/unison detune.
// Unison detune spreads each voice's left and right phase accumulators
// by +-half the spread in cents for stereo width.
type PolySynth struct {
	name       string
	sampleRate uint32

	pool     *VoicePool
	envelope EnvelopeParams

	waveform     int
	volume       float32
	detune       float32 // cents
	unisonDetune float32 // cents, stereo spread
	pulseWidth   float32

	lastFreq float32 // Trigger events re-strike this

	out  blockOutput
	mixL []float32
	mixR []float32
}

// NewPolySynth creates a synth with the default 8-voice pool and
// oldest-note stealing.
func NewPolySynth(name string, sampleRate uint32) *PolySynth {
	return NewPolySynthVoices(name, sampleRate, POLY_DEFAULT_VOICES)
}

// NewPolySynthVoices creates a synth with a specific pool size (1..16).
func NewPolySynthVoices(name string, sampleRate uint32, voices int) *PolySynth {
	if voices < 1 {
		voices = 1
	}
	if voices > POLY_MAX_VOICES {
		voices = POLY_MAX_VOICES
	}
	if sampleRate == 0 {
		sampleRate = SAMPLE_RATE
	}
	return &PolySynth{
		name:       name,
		sampleRate: sampleRate,
		pool:       NewVoicePool(voices, STEAL_OLDEST),
		envelope: EnvelopeParams{
			Attack:  0.01,
			Decay:   0.1,
			Sustain: 0.7,
			Release: 0.3,
		},
		waveform:   WAVE_SAW,
		volume:     0.5,
		pulseWidth: 0.5,
		lastFreq:   FREQ_A4,
		out:        newBlockOutput(),
		mixL:       make([]float32, MAX_BLOCK_FRAMES),
		mixR:       make([]float32, MAX_BLOCK_FRAMES),
	}
}

func (s *PolySynth) Name() string            { return s.name }
func (s *PolySynth) OutputBuffer() []float32 { return s.out.samples }
func (s *PolySynth) Inputs() []AudioOperator { return nil }

func (s *PolySynth) SetWaveform(w int)            { s.waveform = w }
func (s *PolySynth) SetStealPolicy(p int)         { s.pool.SetPolicy(p) }
func (s *PolySynth) SetEnvelope(e EnvelopeParams) { s.envelope = e.Clamped() }
func (s *PolySynth) SetVolume(v float32)          { s.volume = clampf(v, 0, 1) }

// ----------------------------------------------------------------------------
// Playback API

// NoteOn starts a note at freq and returns the voice index, or -1 when
// the pool is full and stealing is disabled.
func (s *PolySynth) NoteOn(freq, velocity float32) int {
	s.lastFreq = freq
	return s.pool.NoteOn(freq, velocity)
}

// NoteOff releases the voice playing freq; silent no-op on no match.
func (s *PolySynth) NoteOff(freq float32) {
	s.pool.NoteOff(freq)
}

// NoteOnMidi starts a note by MIDI number.
func (s *PolySynth) NoteOnMidi(midiNote int, velocity float32) int {
	freq := MidiToFreq(midiNote)
	s.lastFreq = freq
	return s.pool.NoteOnMidi(midiNote, freq, velocity)
}

// NoteOffMidi releases a note by MIDI number.
func (s *PolySynth) NoteOffMidi(midiNote int) {
	s.pool.NoteOffMidi(midiNote)
}

func (s *PolySynth) AllNotesOff()          { s.pool.AllNotesOff() }
func (s *PolySynth) Panic()                { s.pool.Panic() }
func (s *PolySynth) ActiveVoiceCount() int { return s.pool.ActiveVoiceCount() }
func (s *PolySynth) IsPlaying() bool       { return s.pool.ActiveVoiceCount() > 0 }

// Reset silences and reinitialises the synth.
func (s *PolySynth) Reset() {
	s.pool.Panic()
	s.out.clear()
}

// HandleEvent applies a control event. Audio thread, block boundary.
func (s *PolySynth) HandleEvent(ev AudioEvent) {
	switch ev.Kind {
	case EVENT_NOTE_ON:
		s.NoteOn(ev.Value1, ev.Value2)
	case EVENT_NOTE_OFF:
		s.NoteOff(ev.Value1)
	case EVENT_TRIGGER:
		s.NoteOn(s.lastFreq, 1)
	case EVENT_PARAM_CHANGE:
		s.setParam(ev.ParamID, ev.Value1)
	case EVENT_RESET:
		s.Reset()
	}
}

func (s *PolySynth) setParam(id uint32, value float32) {
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
	case PARAM_POLY_DETUNE:
		s.detune = clampf(value, -100, 100)
	case PARAM_POLY_UNISON_DETUNE:
		s.unisonDetune = clampf(value, 0, 50)
	case PARAM_POLY_PULSE_WIDTH:
		s.pulseWidth = clampf(value, 0.01, 0.99)
	case PARAM_POLY_WAVEFORM:
		w := int(value)
		if w >= WAVE_SINE && w <= WAVE_PULSE {
			s.waveform = w
		}
	}
}

// ParamIndex maps a parameter name to its event index.
func (s *PolySynth) ParamIndex(name string) (uint32, bool) {
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
	case "detune":
		return PARAM_POLY_DETUNE, true
	case "unisonDetune":
		return PARAM_POLY_UNISON_DETUNE, true
	case "pulseWidth":
		return PARAM_POLY_PULSE_WIDTH, true
	case "waveform":
		return PARAM_POLY_WAVEFORM, true
	}
	return 0, false
}

// ----------------------------------------------------------------------------
// Generation

// GenerateBlock renders all active voices into the output buffer.
func (s *PolySynth) GenerateBlock(frameCount uint32) {
	out := s.out.frame(frameCount)

	mixL := s.mixL[:frameCount]
	mixR := s.mixR[:frameCount]
	for i := range mixL {
		mixL[i] = 0
		mixR[i] = 0
	}

	for i := 0; i < s.pool.Size(); i++ {
		s.renderVoice(s.pool.Voice(i), mixL, mixR, frameCount)
	}

	// Normalise by sqrt of pool size so full polyphony cannot clip.
	scale := s.volume / float32(math.Sqrt(float64(s.pool.Size())))
	for i := uint32(0); i < frameCount; i++ {
		out[i*2] = mixL[i] * scale
		out[i*2+1] = mixR[i] * scale
	}
}

func (s *PolySynth) renderVoice(v *Voice, mixL, mixR []float32, frames uint32) {
	if !v.Active() {
		return
	}

	freq := v.Frequency * CentsToRatio(s.detune)
	freqL := freq * CentsToRatio(-s.unisonDetune*0.5)
	freqR := freq * CentsToRatio(s.unisonDetune*0.5)

	incL := freqL / float32(s.sampleRate)
	incR := freqR / float32(s.sampleRate)

	for i := uint32(0); i < frames; i++ {
		v.env.advance(s.envelope, 1, s.sampleRate)
		if !v.Active() {
			break
		}

		env := v.env.value * v.Velocity
		mixL[i] += s.oscillator(v.PhaseL) * env
		mixR[i] += s.oscillator(v.PhaseR) * env

		v.PhaseL += incL
		if v.PhaseL >= 1 {
			v.PhaseL -= 1
		}
		v.PhaseR += incR
		if v.PhaseR >= 1 {
			v.PhaseR -= 1
		}
	}
}

// oscillator evaluates the selected waveform at a normalised phase in
// [0,1).
func (s *PolySynth) oscillator(phase float32) float32 {
	switch s.waveform {
	case WAVE_SINE:
		return fastSin(phase * TWO_PI)
	case WAVE_TRIANGLE:
		if phase < 0.5 {
			return 4*phase - 1
		}
		return 3 - 4*phase
	case WAVE_SQUARE:
		if phase < 0.5 {
			return 1
		}
		return -1
	case WAVE_SAW:
		return 2*phase - 1
	case WAVE_PULSE:
		if phase < s.pulseWidth {
			return 1
		}
		return -1
	default:
		return 0
	}
}
