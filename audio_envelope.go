// audio_envelope.go - ADSR envelope state machine shared by all voices

/*
(c) 2025 - 2026 Quartz Audio
https://github.com/quartzaudio/QuartzEngine
License: GPLv3 or later
*/

package main

// EnvelopeParams holds the four ADSR times/levels shared by every voice
// of an instrument. Times are seconds; Sustain is a level in [0,1].
type EnvelopeParams struct {
	Attack  float32
	Decay   float32
	Sustain float32
	Release float32
}

// Clamped returns the parameters with stage durations floored at
// MIN_STAGE_TIME and sustain bounded to [0,1]. Guarantees the audio
// thread never divides by zero and every stage ramps for at least one
// sample.
func (p EnvelopeParams) Clamped() EnvelopeParams {
	out := p
	if out.Attack < MIN_STAGE_TIME {
		out.Attack = MIN_STAGE_TIME
	}
	if out.Decay < MIN_STAGE_TIME {
		out.Decay = MIN_STAGE_TIME
	}
	if out.Release < MIN_STAGE_TIME {
		out.Release = MIN_STAGE_TIME
	}
	out.Sustain = clampf(out.Sustain, 0, 1)
	return out
}

// envelopeState is the per-voice runtime half of the envelope: current
// stage, progress through the stage normalised to [0,1], the cached
// amplitude, and the amplitude Release started from.
//
// Amplitude is continuous at every transition: Decay begins at the 1.0
// Attack reached, Release begins at whatever value the voice currently
// holds. Only kill() jumps, which is the point of kill().
type envelopeState struct {
	stage        int
	progress     float32
	value        float32
	releaseStart float32
}

func (e *envelopeState) active() bool    { return e.stage != ENV_IDLE }
func (e *envelopeState) releasing() bool { return e.stage == ENV_RELEASE }

// trigger starts the envelope from Attack. Progress restarts at zero.
func (e *envelopeState) trigger() {
	e.stage = ENV_ATTACK
	e.progress = 0
	e.value = 0
	e.releaseStart = 0
}

// release moves an active, non-releasing envelope into Release,
// capturing the current amplitude as the ramp start. No-op otherwise.
func (e *envelopeState) release() {
	if e.stage == ENV_IDLE || e.stage == ENV_RELEASE {
		return
	}
	e.releaseStart = e.value
	e.stage = ENV_RELEASE
	e.progress = 0
}

// kill forces the envelope to Idle with zero amplitude immediately.
// This clicks; it exists for panic stops.
func (e *envelopeState) kill() {
	e.stage = ENV_IDLE
	e.progress = 0
	e.value = 0
	e.releaseStart = 0
}

// compute returns the amplitude for the current stage and progress.
func (e *envelopeState) compute(p EnvelopeParams) float32 {
	switch e.stage {
	case ENV_ATTACK:
		return e.progress
	case ENV_DECAY:
		return 1 - e.progress*(1-p.Sustain)
	case ENV_SUSTAIN:
		return p.Sustain
	case ENV_RELEASE:
		return e.releaseStart * (1 - e.progress)
	default:
		return 0
	}
}

// advance moves the envelope forward by frames samples and refreshes the
// cached amplitude. Stage transitions happen when progress crosses 1.
func (e *envelopeState) advance(p EnvelopeParams, frames uint32, sampleRate uint32) {
	if e.stage == ENV_IDLE {
		e.value = 0
		return
	}

	p = p.Clamped()
	step := float32(frames) / float32(sampleRate)

	switch e.stage {
	case ENV_ATTACK:
		e.progress += step / p.Attack
		if e.progress >= 1 {
			e.progress = 0
			e.stage = ENV_DECAY
			e.value = 1
			return
		}
	case ENV_DECAY:
		e.progress += step / p.Decay
		if e.progress >= 1 {
			e.progress = 0
			e.stage = ENV_SUSTAIN
			e.value = p.Sustain
			return
		}
	case ENV_SUSTAIN:
		// Held until an external note-off.
	case ENV_RELEASE:
		e.progress += step / p.Release
		if e.progress >= 1 {
			e.stage = ENV_IDLE
			e.progress = 0
			e.value = 0
			return
		}
	}

	e.value = e.compute(p)
}
