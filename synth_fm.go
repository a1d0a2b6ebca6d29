// synth_fm.go - Four-operator FM synthesizer

/*
(c) 2025 - 2026 Quartz Audio
https://github.com/quartzaudio/QuartzEngine
License: GPLv3 or later
*/

package main

import (
	"fmt"
	"math"
)

// FM operator routing algorithms. Operator 4 is the feedback operator.
const (
	FM_ALGO_STACK4   = iota // 1>2>3>4 serial
	FM_ALGO_STACK3_1        // 1>2>3 serial, 4 parallel
	FM_ALGO_PARALLEL        // 1+2+3+4 additive
	FM_ALGO_PAIRS           // 1>2, 3>4
	FM_ALGO_BRANCH2         // 1>(2,3), 4 parallel
	FM_ALGO_BRANCH3         // 1>(2,3,4)
	FM_ALGO_Y               // 1>(2,3), 2+3>4
	FM_ALGO_DIAMOND         // 1>(2,3), 2+3>4 with feedback on 4
)

// FM presets.
const (
	FM_PRESET_EPIANO = iota
	FM_PRESET_BASS
	FM_PRESET_BELL
	FM_PRESET_BRASS
	FM_PRESET_ORGAN
	FM_PRESET_PAD
	FM_PRESET_PLUCK
	FM_PRESET_LEAD
)

// FMSynth parameter indices beyond the shared block. Per-operator
// envelope indices follow the fixed block: base + op*4 + (A,D,S,R).
const (
	PARAM_FM_RATIO1 = PARAM_INSTRUMENT_BASE + iota
	PARAM_FM_RATIO2
	PARAM_FM_RATIO3
	PARAM_FM_RATIO4
	PARAM_FM_LEVEL1
	PARAM_FM_LEVEL2
	PARAM_FM_LEVEL3
	PARAM_FM_LEVEL4
	PARAM_FM_FEEDBACK
	PARAM_FM_ALGORITHM
	PARAM_FM_OP_ENV_BASE
)

const (
	FM_NUM_OPS    = 4
	FM_MAX_VOICES = 8
)

// fmOperatorState is one sine operator within a voice.
type fmOperatorState struct {
	phase      float32
	output     float32
	prevOutput float32
	env        envelopeState
	params     EnvelopeParams // snapshot taken at note-on
}

// fmVoiceState is the algorithm-specific half of an FM voice, indexed in
// parallel with the shared voice pool.
type fmVoiceState struct {
	ops [FM_NUM_OPS]fmOperatorState
}

// FMSynth is a polyphonic 4-operator FM synthesizer in the classic DX
// mould: sine operators routed by one of eight algorithms, per-operator
// ADSR envelopes and levels, and self-feedback on the designated
// feedback operator. A voice frees once all four operator envelopes
// reach idle.
type FMSynth struct {
	name       string
	sampleRate uint32

	pool     *VoicePool
	fmVoices [FM_MAX_VOICES]fmVoiceState

	ratios    [FM_NUM_OPS]float32
	levels    [FM_NUM_OPS]float32
	opEnvs    [FM_NUM_OPS]EnvelopeParams
	feedback  float32
	algorithm int
	volume    float32

	lastFreq float32

	out blockOutput
}

// NewFMSynth creates an FM synth with default unity ratios and the
// Stack4 algorithm.
func NewFMSynth(name string, sampleRate uint32) *FMSynth {
	if sampleRate == 0 {
		sampleRate = SAMPLE_RATE
	}
	s := &FMSynth{
		name:       name,
		sampleRate: sampleRate,
		pool:       NewVoicePool(FM_MAX_VOICES, STEAL_OLDEST),
		algorithm:  FM_ALGO_STACK4,
		volume:     0.5,
		lastFreq:   FREQ_A4,
		out:        newBlockOutput(),
	}
	for i := 0; i < FM_NUM_OPS; i++ {
		s.ratios[i] = 1
		s.levels[i] = 1
		s.opEnvs[i] = EnvelopeParams{Attack: 0.01, Decay: 0.1, Sustain: 0.7, Release: 0.3}
	}
	return s
}

func (s *FMSynth) Name() string            { return s.name }
func (s *FMSynth) OutputBuffer() []float32 { return s.out.samples }
func (s *FMSynth) Inputs() []AudioOperator { return nil }

func (s *FMSynth) SetAlgorithm(algo int) {
	if algo >= FM_ALGO_STACK4 && algo <= FM_ALGO_DIAMOND {
		s.algorithm = algo
	}
}

func (s *FMSynth) Algorithm() int { return s.algorithm }

// SetOperatorEnvelope sets the ADSR for one operator (0..3). Applies to
// notes started after the call.
func (s *FMSynth) SetOperatorEnvelope(op int, e EnvelopeParams) error {
	if op < 0 || op >= FM_NUM_OPS {
		return fmt.Errorf("fm operator index %d out of range", op)
	}
	s.opEnvs[op] = e.Clamped()
	return nil
}

// SetRatio sets one operator's frequency ratio relative to the note.
func (s *FMSynth) SetRatio(op int, ratio float32) {
	if op >= 0 && op < FM_NUM_OPS {
		s.ratios[op] = clampf(ratio, 0.5, 16)
	}
}

// SetLevel sets one operator's output level.
func (s *FMSynth) SetLevel(op int, level float32) {
	if op >= 0 && op < FM_NUM_OPS {
		s.levels[op] = clampf(level, 0, 1)
	}
}

func (s *FMSynth) SetFeedback(fb float32) { s.feedback = clampf(fb, 0, 1) }
func (s *FMSynth) SetVolume(v float32)    { s.volume = clampf(v, 0, 1) }

// LoadPreset configures ratios, levels, envelopes, feedback and the
// algorithm for a named sound.
func (s *FMSynth) LoadPreset(preset int) {
	env := func(op int, a, d, su, r float32) {
		s.opEnvs[op] = EnvelopeParams{Attack: a, Decay: d, Sustain: su, Release: r}.Clamped()
	}
	switch preset {
	case FM_PRESET_EPIANO:
		s.algorithm = FM_ALGO_STACK4
		s.ratios = [4]float32{1, 14, 1, 1}
		s.levels = [4]float32{1, 0.5, 0.8, 1}
		s.feedback = 0.1
		env(0, 0.001, 0.5, 0, 0.3)
		env(1, 0.001, 0.1, 0, 0.1)
		env(2, 0.001, 0.3, 0, 0.2)
		env(3, 0.001, 1.0, 0, 0.5)
	case FM_PRESET_BASS:
		s.algorithm = FM_ALGO_STACK4
		s.ratios = [4]float32{1, 1, 1, 1}
		s.levels = [4]float32{0.8, 0.6, 0.4, 1}
		s.feedback = 0.4
		env(0, 0.001, 0.1, 0.3, 0.1)
		env(1, 0.001, 0.15, 0.2, 0.1)
		env(2, 0.001, 0.2, 0.5, 0.15)
		env(3, 0.001, 0.05, 0.8, 0.1)
	case FM_PRESET_BELL:
		s.algorithm = FM_ALGO_PAIRS
		s.ratios = [4]float32{1, 3.5, 1, 7}
		s.levels = [4]float32{0.9, 0.7, 0.6, 0.4}
		s.feedback = 0
		env(0, 0.001, 2.0, 0, 1.0)
		env(1, 0.001, 0.5, 0, 0.3)
		env(2, 0.001, 3.0, 0, 1.5)
		env(3, 0.001, 0.3, 0, 0.2)
	case FM_PRESET_BRASS:
		s.algorithm = FM_ALGO_STACK3_1
		s.ratios = [4]float32{1, 1, 1, 2}
		s.levels = [4]float32{0.9, 0.7, 1, 0.8}
		s.feedback = 0.3
		env(0, 0.05, 0.1, 0.8, 0.15)
		env(1, 0.03, 0.1, 0.6, 0.1)
		env(2, 0.08, 0.15, 0.9, 0.2)
		env(3, 0.06, 0.12, 0.7, 0.18)
	case FM_PRESET_ORGAN:
		s.algorithm = FM_ALGO_PARALLEL
		s.ratios = [4]float32{0.5, 1, 2, 4}
		s.levels = [4]float32{0.8, 1, 0.6, 0.3}
		s.feedback = 0.1
		for op := 0; op < FM_NUM_OPS; op++ {
			env(op, 0.01, 0.01, 1, 0.1)
		}
	case FM_PRESET_PAD:
		s.algorithm = FM_ALGO_BRANCH2
		s.ratios = [4]float32{1, 2, 3, 0.5}
		s.levels = [4]float32{0.4, 0.8, 0.7, 0.9}
		s.feedback = 0.2
		env(0, 0.5, 1.0, 0.6, 1.5)
		env(1, 0.3, 0.8, 0.5, 1.0)
		env(2, 0.4, 0.9, 0.55, 1.2)
		env(3, 0.6, 1.2, 0.7, 2.0)
	case FM_PRESET_PLUCK:
		s.algorithm = FM_ALGO_STACK4
		s.ratios = [4]float32{1, 3, 1, 1}
		s.levels = [4]float32{1, 0.9, 0.5, 1}
		s.feedback = 0.2
		env(0, 0.001, 0.05, 0, 0.05)
		env(1, 0.001, 0.02, 0, 0.02)
		env(2, 0.001, 0.1, 0, 0.08)
		env(3, 0.001, 0.15, 0, 0.1)
	case FM_PRESET_LEAD:
		s.algorithm = FM_ALGO_PAIRS
		s.ratios = [4]float32{1, 1, 2, 2}
		s.levels = [4]float32{0.8, 0.7, 0.6, 0.5}
		s.feedback = 0.35
		env(0, 0.01, 0.1, 0.7, 0.2)
		env(1, 0.01, 0.08, 0.5, 0.15)
		env(2, 0.01, 0.12, 0.6, 0.25)
		env(3, 0.01, 0.1, 0.4, 0.2)
	}
}

// ----------------------------------------------------------------------------
// Playback API

// NoteOn starts a note at freq. Every operator envelope restarts in
// Attack with the current per-operator settings snapshotted into the
// voice.
func (s *FMSynth) NoteOn(freq, velocity float32) int {
	s.lastFreq = freq
	idx := s.pool.NoteOn(freq, velocity)
	if idx < 0 {
		return -1
	}
	s.initVoice(idx)
	return idx
}

// NoteOnMidi starts a note by MIDI number.
func (s *FMSynth) NoteOnMidi(midiNote int, velocity float32) int {
	freq := MidiToFreq(midiNote)
	s.lastFreq = freq
	idx := s.pool.NoteOnMidi(midiNote, freq, velocity)
	if idx < 0 {
		return -1
	}
	s.initVoice(idx)
	return idx
}

func (s *FMSynth) initVoice(idx int) {
	fv := &s.fmVoices[idx]
	for op := 0; op < FM_NUM_OPS; op++ {
		fv.ops[op] = fmOperatorState{params: s.opEnvs[op]}
		fv.ops[op].env.trigger()
	}
}

// NoteOff releases the voice playing freq: all four operator envelopes
// enter Release.
func (s *FMSynth) NoteOff(freq float32) {
	if idx := s.pool.NoteOff(freq); idx >= 0 {
		s.releaseVoice(idx)
	}
}

// NoteOffMidi releases a note by MIDI number.
func (s *FMSynth) NoteOffMidi(midiNote int) {
	if idx := s.pool.NoteOffMidi(midiNote); idx >= 0 {
		s.releaseVoice(idx)
	}
}

func (s *FMSynth) releaseVoice(idx int) {
	fv := &s.fmVoices[idx]
	for op := 0; op < FM_NUM_OPS; op++ {
		fv.ops[op].env.release()
	}
}

// AllNotesOff releases every active voice.
func (s *FMSynth) AllNotesOff() {
	for i := 0; i < s.pool.Size(); i++ {
		if s.pool.Voice(i).Active() && !s.pool.Voice(i).Releasing() {
			s.releaseVoice(i)
		}
	}
	s.pool.AllNotesOff()
}

// Panic silences every voice immediately.
func (s *FMSynth) Panic() {
	s.pool.Panic()
	for i := range s.fmVoices {
		for op := range s.fmVoices[i].ops {
			s.fmVoices[i].ops[op].env.kill()
		}
	}
}

func (s *FMSynth) ActiveVoiceCount() int { return s.pool.ActiveVoiceCount() }

// Reset silences the synth and clears operator state.
func (s *FMSynth) Reset() {
	s.Panic()
	for i := range s.fmVoices {
		s.fmVoices[i] = fmVoiceState{}
	}
	s.out.clear()
}

// HandleEvent applies a control event. Audio thread, block boundary.
func (s *FMSynth) HandleEvent(ev AudioEvent) {
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

func (s *FMSynth) setParam(id uint32, value float32) {
	switch {
	case id == PARAM_VOLUME:
		s.volume = clampf(value, 0, 1)
	case id >= PARAM_ATTACK && id <= PARAM_RELEASE:
		// Shared ADSR touches every operator uniformly.
		for op := 0; op < FM_NUM_OPS; op++ {
			s.setOpEnvParam(op, id, value)
		}
	case id >= PARAM_FM_RATIO1 && id <= PARAM_FM_RATIO4:
		s.SetRatio(int(id-PARAM_FM_RATIO1), value)
	case id >= PARAM_FM_LEVEL1 && id <= PARAM_FM_LEVEL4:
		s.SetLevel(int(id-PARAM_FM_LEVEL1), value)
	case id == PARAM_FM_FEEDBACK:
		s.SetFeedback(value)
	case id == PARAM_FM_ALGORITHM:
		s.SetAlgorithm(int(value))
	case id >= PARAM_FM_OP_ENV_BASE && id < PARAM_FM_OP_ENV_BASE+FM_NUM_OPS*4:
		rel := id - PARAM_FM_OP_ENV_BASE
		s.setOpEnvParam(int(rel/4), PARAM_ATTACK+rel%4, value)
	}
}

func (s *FMSynth) setOpEnvParam(op int, which uint32, value float32) {
	e := &s.opEnvs[op]
	switch which {
	case PARAM_ATTACK:
		e.Attack = value
	case PARAM_DECAY:
		e.Decay = value
	case PARAM_SUSTAIN:
		e.Sustain = clampf(value, 0, 1)
	case PARAM_RELEASE:
		e.Release = value
	}
	*e = e.Clamped()
}

// ParamIndex maps a parameter name to its event index. Per-operator
// envelope names take the form attack1..release4.
func (s *FMSynth) ParamIndex(name string) (uint32, bool) {
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
	case "ratio1":
		return PARAM_FM_RATIO1, true
	case "ratio2":
		return PARAM_FM_RATIO2, true
	case "ratio3":
		return PARAM_FM_RATIO3, true
	case "ratio4":
		return PARAM_FM_RATIO4, true
	case "level1":
		return PARAM_FM_LEVEL1, true
	case "level2":
		return PARAM_FM_LEVEL2, true
	case "level3":
		return PARAM_FM_LEVEL3, true
	case "level4":
		return PARAM_FM_LEVEL4, true
	case "feedback":
		return PARAM_FM_FEEDBACK, true
	case "algorithm":
		return PARAM_FM_ALGORITHM, true
	}
	for op := 0; op < FM_NUM_OPS; op++ {
		suffix := byte('1' + op)
		switch name {
		case "attack" + string(suffix):
			return PARAM_FM_OP_ENV_BASE + uint32(op*4), true
		case "decay" + string(suffix):
			return PARAM_FM_OP_ENV_BASE + uint32(op*4+1), true
		case "sustain" + string(suffix):
			return PARAM_FM_OP_ENV_BASE + uint32(op*4+2), true
		case "release" + string(suffix):
			return PARAM_FM_OP_ENV_BASE + uint32(op*4+3), true
		}
	}
	return 0, false
}

// ----------------------------------------------------------------------------
// Generation

// GenerateBlock renders all active voices. Mono FM image duplicated to
// both channels.
func (s *FMSynth) GenerateBlock(frameCount uint32) {
	out := s.out.frame(frameCount)

	for i := uint32(0); i < frameCount; i++ {
		var sample float32

		for vi := 0; vi < s.pool.Size(); vi++ {
			v := s.pool.Voice(vi)
			if !v.Active() {
				continue
			}
			fv := &s.fmVoices[vi]

			sample += s.renderVoiceSample(v, fv) * v.Velocity

			allIdle := true
			for op := 0; op < FM_NUM_OPS; op++ {
				fv.ops[op].env.advance(fv.ops[op].params, 1, s.sampleRate)
				if fv.ops[op].env.active() {
					allIdle = false
				}
			}
			// Mirror the carrier amplitude into the pool voice so
			// quietest-stealing and metering see it.
			v.env.value = fv.ops[FM_NUM_OPS-1].env.value
			if allIdle {
				v.env.kill()
			}
		}

		sample *= s.volume
		out[i*2] = sample
		out[i*2+1] = sample
	}
}

// renderVoiceSample computes one mono sample for a voice under the
// current algorithm and advances the operator phases.
func (s *FMSynth) renderVoiceSample(v *Voice, fv *fmVoiceState) float32 {
	var phaseInc [FM_NUM_OPS]float32
	for op := 0; op < FM_NUM_OPS; op++ {
		phaseInc[op] = v.Frequency * s.ratios[op] / float32(s.sampleRate)
	}

	var env [FM_NUM_OPS]float32
	for op := 0; op < FM_NUM_OPS; op++ {
		env[op] = fv.ops[op].env.value
	}

	osc := func(op int, mod float32) float32 {
		return fastSin(TWO_PI*fv.ops[op].phase+mod) * s.levels[op] * env[op]
	}

	// Two-sample averaged self-feedback keeps the loop stable.
	fb := (fv.ops[3].output + fv.ops[3].prevOutput) * 0.5 * s.feedback

	var opOut [FM_NUM_OPS]float32
	var result float32

	switch s.algorithm {
	case FM_ALGO_STACK4:
		opOut[0] = osc(0, fb)
		opOut[1] = osc(1, opOut[0]*math.Pi)
		opOut[2] = osc(2, opOut[1]*math.Pi)
		opOut[3] = osc(3, opOut[2]*math.Pi)
		result = opOut[3]
	case FM_ALGO_STACK3_1:
		opOut[0] = osc(0, 0)
		opOut[1] = osc(1, opOut[0]*math.Pi)
		opOut[2] = osc(2, opOut[1]*math.Pi)
		opOut[3] = osc(3, fb)
		result = (opOut[2] + opOut[3]) * 0.5
	case FM_ALGO_PARALLEL:
		for op := 0; op < FM_NUM_OPS; op++ {
			opOut[op] = osc(op, 0)
			result += opOut[op]
		}
		result *= 0.25
	case FM_ALGO_PAIRS:
		opOut[0] = osc(0, 0)
		opOut[1] = osc(1, opOut[0]*math.Pi)
		opOut[2] = osc(2, fb)
		opOut[3] = osc(3, opOut[2]*math.Pi)
		result = (opOut[1] + opOut[3]) * 0.5
	case FM_ALGO_BRANCH2:
		opOut[0] = osc(0, 0)
		opOut[1] = osc(1, opOut[0]*math.Pi)
		opOut[2] = osc(2, opOut[0]*math.Pi)
		opOut[3] = osc(3, fb)
		result = (opOut[1] + opOut[2] + opOut[3]) / 3
	case FM_ALGO_BRANCH3:
		opOut[0] = osc(0, fb)
		opOut[1] = osc(1, opOut[0]*math.Pi)
		opOut[2] = osc(2, opOut[0]*math.Pi)
		opOut[3] = osc(3, opOut[0]*math.Pi)
		result = (opOut[1] + opOut[2] + opOut[3]) / 3
	case FM_ALGO_Y, FM_ALGO_DIAMOND:
		opOut[0] = osc(0, 0)
		opOut[1] = osc(1, opOut[0]*math.Pi)
		opOut[2] = osc(2, opOut[0]*math.Pi)
		opOut[3] = osc(3, (opOut[1]+opOut[2])*0.5*math.Pi+fb)
		result = opOut[3]
	}

	for op := 0; op < FM_NUM_OPS; op++ {
		fv.ops[op].prevOutput = fv.ops[op].output
		fv.ops[op].output = opOut[op]
		fv.ops[op].phase += phaseInc[op]
		if fv.ops[op].phase >= 1 {
			fv.ops[op].phase -= 1
		}
	}

	return result
}
