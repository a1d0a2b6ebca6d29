// audio_envelope_test.go - ADSR state machine tests

/*
(c) 2025 - 2026 Quartz Audio
https://github.com/quartzaudio/QuartzEngine
License: GPLv3 or later
*/

package main

import (
	"math"
	"testing"
)

func approxEq(a, b, tol float32) bool {
	return float32(math.Abs(float64(a-b))) <= tol
}

// advanceSamples steps the envelope one sample at a time, the way the
// instruments drive it.
func advanceSamples(e *envelopeState, p EnvelopeParams, n int, sampleRate uint32) {
	for i := 0; i < n; i++ {
		e.advance(p, 1, sampleRate)
	}
}

func TestEnvelope_StageProgression(t *testing.T) {
	p := EnvelopeParams{Attack: 0.01, Decay: 0.01, Sustain: 0.5, Release: 0.01}
	var e envelopeState

	if e.active() {
		t.Fatal("fresh envelope should be idle")
	}

	e.trigger()
	if e.stage != ENV_ATTACK {
		t.Fatalf("trigger: stage = %d, want ENV_ATTACK", e.stage)
	}

	// 0.01s at 48kHz is 480 samples per stage.
	advanceSamples(&e, p, 481, SAMPLE_RATE)
	if e.stage != ENV_DECAY {
		t.Fatalf("after attack: stage = %d, want ENV_DECAY", e.stage)
	}

	advanceSamples(&e, p, 481, SAMPLE_RATE)
	if e.stage != ENV_SUSTAIN {
		t.Fatalf("after decay: stage = %d, want ENV_SUSTAIN", e.stage)
	}
	if !approxEq(e.value, 0.5, 1e-4) {
		t.Errorf("sustain value = %f, want 0.5", e.value)
	}

	// Sustain holds indefinitely.
	advanceSamples(&e, p, 10000, SAMPLE_RATE)
	if e.stage != ENV_SUSTAIN {
		t.Fatalf("sustain did not hold: stage = %d", e.stage)
	}

	e.release()
	if e.stage != ENV_RELEASE {
		t.Fatalf("release: stage = %d, want ENV_RELEASE", e.stage)
	}

	advanceSamples(&e, p, 481, SAMPLE_RATE)
	if e.stage != ENV_IDLE {
		t.Fatalf("after release: stage = %d, want ENV_IDLE", e.stage)
	}
	if e.value != 0 {
		t.Errorf("idle value = %f, want 0", e.value)
	}
}

func TestEnvelope_AmplitudeContinuity(t *testing.T) {
	p := EnvelopeParams{Attack: 0.01, Decay: 0.02, Sustain: 0.6, Release: 0.05}
	var e envelopeState
	e.trigger()

	// One sample per step: the amplitude must never jump by more than
	// one stage increment.
	prev := e.value
	maxStep := float32(1.0) / (0.01 * SAMPLE_RATE) * 2
	for i := 0; i < 3*SAMPLE_RATE/100; i++ {
		e.advance(p, 1, SAMPLE_RATE)
		if diff := e.value - prev; diff > maxStep || diff < -maxStep {
			t.Fatalf("sample %d: amplitude jumped from %f to %f (stage %d)",
				i, prev, e.value, e.stage)
		}
		prev = e.value
	}
}

func TestEnvelope_EarlyReleaseStartsFromCurrentValue(t *testing.T) {
	p := EnvelopeParams{Attack: 0.1, Decay: 0.1, Sustain: 0.5, Release: 0.1}
	var e envelopeState
	e.trigger()

	// Release halfway through the attack ramp.
	advanceSamples(&e, p, int(0.05*SAMPLE_RATE), SAMPLE_RATE)
	if e.stage != ENV_ATTACK {
		t.Fatalf("stage = %d, want still ENV_ATTACK", e.stage)
	}
	atRelease := e.value
	if atRelease < 0.4 || atRelease > 0.6 {
		t.Fatalf("mid-attack value = %f, want around 0.5", atRelease)
	}

	e.release()
	e.advance(p, 1, SAMPLE_RATE)
	if !approxEq(e.value, atRelease, 0.01) {
		t.Errorf("release start = %f, want continuity with %f", e.value, atRelease)
	}

	// The ramp must fall from there, not from 1.0.
	advanceSamples(&e, p, int(0.05*SAMPLE_RATE), SAMPLE_RATE)
	if e.value > atRelease/2+0.02 {
		t.Errorf("half-way release value = %f, want <= %f", e.value, atRelease/2+0.02)
	}
}

func TestEnvelope_ReleaseIsIdempotent(t *testing.T) {
	p := EnvelopeParams{Attack: 0.01, Decay: 0.01, Sustain: 0.8, Release: 0.1}
	var e envelopeState
	e.trigger()
	advanceSamples(&e, p, 2000, SAMPLE_RATE)

	e.release()
	advanceSamples(&e, p, 100, SAMPLE_RATE)
	mid := e.value
	start := e.releaseStart

	// A second release must not re-capture the ramp start.
	e.release()
	if e.releaseStart != start {
		t.Errorf("second release re-captured start: %f, want %f", e.releaseStart, start)
	}
	e.advance(p, 1, SAMPLE_RATE)
	if e.value > mid {
		t.Errorf("second release raised amplitude: %f > %f", e.value, mid)
	}

	// Release on an idle envelope is a no-op.
	e.kill()
	e.release()
	if e.stage != ENV_IDLE {
		t.Errorf("release on idle: stage = %d, want ENV_IDLE", e.stage)
	}
}

func TestEnvelope_RetriggerRestartsAttack(t *testing.T) {
	p := EnvelopeParams{Attack: 0.01, Decay: 0.01, Sustain: 0.5, Release: 0.1}
	var e envelopeState
	e.trigger()
	advanceSamples(&e, p, 2000, SAMPLE_RATE)

	e.release()
	advanceSamples(&e, p, 100, SAMPLE_RATE)

	e.trigger()
	if e.stage != ENV_ATTACK || e.progress != 0 {
		t.Errorf("retrigger: stage = %d progress = %f, want fresh attack", e.stage, e.progress)
	}
}

func TestEnvelope_ZeroTimesAreClamped(t *testing.T) {
	p := EnvelopeParams{Attack: 0, Decay: 0, Sustain: 2, Release: -1}.Clamped()

	if p.Attack < MIN_STAGE_TIME || p.Decay < MIN_STAGE_TIME || p.Release < MIN_STAGE_TIME {
		t.Errorf("clamped times = %+v, want at least %f each", p, float32(MIN_STAGE_TIME))
	}
	if p.Sustain != 1 {
		t.Errorf("clamped sustain = %f, want 1", p.Sustain)
	}

	// Zero-time envelope must still pass through every stage without
	// dividing by zero.
	var e envelopeState
	e.trigger()
	advanceSamples(&e, EnvelopeParams{}, 200, SAMPLE_RATE)
	if e.stage != ENV_SUSTAIN && e.stage != ENV_IDLE {
		t.Errorf("zero-time envelope stuck in stage %d", e.stage)
	}
}

func TestEnvelope_KillSilencesImmediately(t *testing.T) {
	p := EnvelopeParams{Attack: 0.01, Decay: 0.1, Sustain: 0.7, Release: 0.3}
	var e envelopeState
	e.trigger()
	advanceSamples(&e, p, 1000, SAMPLE_RATE)

	e.kill()
	if e.active() || e.value != 0 {
		t.Errorf("kill left stage %d value %f", e.stage, e.value)
	}
}
