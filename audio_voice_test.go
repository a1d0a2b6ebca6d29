// audio_voice_test.go - Voice pool allocation and stealing tests

/*
(c) 2025 - 2026 Quartz Audio
https://github.com/quartzaudio/QuartzEngine
License: GPLv3 or later
*/

package main

import "testing"

func TestVoicePool_AllocatesFreeVoicesFirst(t *testing.T) {
	p := NewVoicePool(4, STEAL_OLDEST)

	for i := 0; i < 4; i++ {
		idx := p.NoteOn(220*float32(i+1), 1)
		if idx != i {
			t.Errorf("note %d landed in voice %d, want %d", i, idx, i)
		}
	}
	if p.ActiveVoiceCount() != 4 {
		t.Errorf("active = %d, want 4", p.ActiveVoiceCount())
	}
}

func TestVoicePool_StealOldest(t *testing.T) {
	p := NewVoicePool(2, STEAL_OLDEST)

	p.NoteOn(100, 1) // note-id 1, oldest
	p.NoteOn(200, 1) // note-id 2

	idx := p.NoteOn(300, 1)
	if idx != 0 {
		t.Fatalf("stole voice %d, want 0 (smallest note-id)", idx)
	}
	if p.Voice(0).Frequency != 300 {
		t.Errorf("stolen voice frequency = %f, want 300", p.Voice(0).Frequency)
	}
	// The stolen voice restarts its envelope from Attack.
	if p.Voice(0).Stage() != ENV_ATTACK {
		t.Errorf("stolen voice stage = %d, want ENV_ATTACK", p.Voice(0).Stage())
	}
}

func TestVoicePool_StealQuietest(t *testing.T) {
	p := NewVoicePool(3, STEAL_QUIETEST)
	env := EnvelopeParams{Attack: 0.001, Decay: 0.001, Sustain: 0.8, Release: 0.5}

	p.NoteOn(100, 1)
	p.NoteOn(200, 1)
	p.NoteOn(300, 1)

	// Run all three to sustain, then release the middle one and let it
	// fade until it is clearly the quietest.
	for i := 0; i < 200; i++ {
		for vi := 0; vi < 3; vi++ {
			p.Voice(vi).env.advance(env, 1, SAMPLE_RATE)
		}
	}
	p.NoteOff(200)
	for i := 0; i < 10000; i++ {
		p.Voice(1).env.advance(env, 1, SAMPLE_RATE)
	}
	if !p.Voice(1).Active() {
		t.Fatal("released voice fully decayed; retune test timings")
	}

	idx := p.NoteOn(400, 1)
	if idx != 1 {
		t.Errorf("stole voice %d, want 1 (lowest envelope)", idx)
	}
}

func TestVoicePool_StealNoneDropsNotes(t *testing.T) {
	p := NewVoicePool(2, STEAL_NONE)

	p.NoteOn(100, 1)
	p.NoteOn(200, 1)

	if idx := p.NoteOn(300, 1); idx != -1 {
		t.Errorf("full pool with STEAL_NONE allocated voice %d, want -1", idx)
	}
	// Existing notes are untouched.
	if p.Voice(0).Frequency != 100 || p.Voice(1).Frequency != 200 {
		t.Error("dropped note disturbed existing voices")
	}
}

func TestVoicePool_NoteOffMatchesWithinTolerance(t *testing.T) {
	p := NewVoicePool(4, STEAL_OLDEST)
	p.NoteOn(440, 1)

	// 440.3 Hz is within the 0.5 Hz window.
	if idx := p.NoteOff(440.3); idx != 0 {
		t.Errorf("note-off at 440.3 matched voice %d, want 0", idx)
	}
	if !p.Voice(0).Releasing() {
		t.Error("matched voice is not releasing")
	}
}

func TestVoicePool_NoteOffNoMatchIsNoop(t *testing.T) {
	p := NewVoicePool(4, STEAL_OLDEST)
	p.NoteOn(440, 1)

	if idx := p.NoteOff(441); idx != -1 {
		t.Errorf("note-off 1 Hz away matched voice %d, want -1", idx)
	}
	if p.Voice(0).Releasing() {
		t.Error("unmatched note-off released a voice")
	}

	// Double note-off: the second call finds nothing to release.
	p.NoteOff(440)
	if idx := p.NoteOff(440); idx != -1 {
		t.Errorf("second note-off matched voice %d, want -1", idx)
	}
}

func TestVoicePool_NoteOffSkipsReleasingVoices(t *testing.T) {
	p := NewVoicePool(4, STEAL_OLDEST)

	// Two voices at the same frequency: note-off must release them one
	// at a time, oldest non-releasing first.
	p.NoteOn(440, 1)
	p.NoteOn(440, 1)

	first := p.NoteOff(440)
	second := p.NoteOff(440)
	if first == second {
		t.Errorf("both note-offs released voice %d", first)
	}
	if first != 0 || second != 1 {
		t.Errorf("release order = %d,%d, want 0,1", first, second)
	}
}

func TestVoicePool_MidiIdentityMatching(t *testing.T) {
	p := NewVoicePool(4, STEAL_OLDEST)

	p.NoteOnMidi(60, MidiToFreq(60), 1)
	p.NoteOnMidi(61, MidiToFreq(61), 1)

	if idx := p.NoteOffMidi(61); idx != 1 {
		t.Errorf("midi note-off matched voice %d, want 1", idx)
	}
	if idx := p.NoteOffMidi(72); idx != -1 {
		t.Errorf("midi note-off for silent note matched voice %d, want -1", idx)
	}

	// Frequency-started voices never match a MIDI note-off.
	p.NoteOn(MidiToFreq(64), 1)
	if idx := p.NoteOffMidi(64); idx != -1 {
		t.Errorf("frequency-started voice matched midi note-off: %d", idx)
	}
}

func TestVoicePool_AllNotesOffAndPanic(t *testing.T) {
	p := NewVoicePool(4, STEAL_OLDEST)
	for i := 0; i < 4; i++ {
		p.NoteOn(100*float32(i+1), 1)
	}

	p.AllNotesOff()
	for i := 0; i < 4; i++ {
		if !p.Voice(i).Releasing() {
			t.Errorf("voice %d not releasing after AllNotesOff", i)
		}
	}
	// Releasing voices still count as active.
	if p.ActiveVoiceCount() != 4 {
		t.Errorf("active = %d, want 4 during release", p.ActiveVoiceCount())
	}

	p.Panic()
	if p.ActiveVoiceCount() != 0 {
		t.Errorf("active = %d after Panic, want 0", p.ActiveVoiceCount())
	}
	for i := 0; i < 4; i++ {
		if p.Voice(i).EnvValue() != 0 {
			t.Errorf("voice %d amplitude %f after Panic", i, p.Voice(i).EnvValue())
		}
	}
}

func TestVoicePool_NoteIDsAreMonotonic(t *testing.T) {
	p := NewVoicePool(2, STEAL_OLDEST)

	var last uint64
	for i := 0; i < 10; i++ {
		idx := p.NoteOn(float32(100+i), 1)
		id := p.Voice(idx).NoteID
		if id <= last {
			t.Fatalf("note %d got id %d, not greater than %d", i, id, last)
		}
		last = id
	}
}
