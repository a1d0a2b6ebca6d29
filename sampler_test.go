// sampler_test.go - Pitched sample playback tests

/*
(c) 2025 - 2026 Quartz Audio
https://github.com/quartzaudio/QuartzEngine
License: GPLv3 or later
*/

package main

import (
	"math"
	"path/filepath"
	"testing"
)

// testTone builds an in-memory stereo sample: a sine on the left, its
// inverse on the right, so channel routing mistakes show up.
func testTone(frames int, freq float32, sampleRate uint32) *SampleData {
	samples := make([]float32, frames*AUDIO_CHANNELS)
	for i := 0; i < frames; i++ {
		v := float32(math.Sin(2 * math.Pi * float64(freq) * float64(i) / float64(sampleRate)))
		samples[i*2] = v
		samples[i*2+1] = -v
	}
	return &SampleData{
		Samples:    samples,
		FrameCount: uint32(frames),
		SampleRate: sampleRate,
	}
}

func TestSampler_RequiresSample(t *testing.T) {
	s := NewSampler("smp", SAMPLE_RATE)

	if idx := s.NoteOnMidi(60, 1); idx != -1 {
		t.Errorf("note without a sample allocated voice %d", idx)
	}
	s.GenerateBlock(BLOCK_SIZE)
	if blockRMS(s.OutputBuffer()) != 0 {
		t.Error("empty sampler produced audio")
	}
}

func TestSampler_RootNotePlaysAtUnityPitch(t *testing.T) {
	s := NewSampler("smp", SAMPLE_RATE)
	s.SetEnvelope(EnvelopeParams{Attack: 0.001, Decay: 0.01, Sustain: 1, Release: 0.1})
	s.SetSample(testTone(SAMPLE_RATE, 440, SAMPLE_RATE))

	idx := s.NoteOnMidi(60, 1) // root note: pitch ratio 1.0
	if idx < 0 {
		t.Fatal("note-on failed")
	}
	s.GenerateBlock(BLOCK_SIZE)

	v := s.pool.Voice(idx)
	// At unity pitch the cursor advances one source frame per output
	// frame.
	if !approxEq(float32(v.Position), BLOCK_SIZE, 1.5) {
		t.Errorf("position = %f after one block, want ~%d", v.Position, BLOCK_SIZE)
	}
	if blockRMS(s.OutputBuffer()) == 0 {
		t.Error("root note produced no audio")
	}
}

func TestSampler_OctaveDoublesPlaybackRate(t *testing.T) {
	s := NewSampler("smp", SAMPLE_RATE)
	s.SetEnvelope(EnvelopeParams{Attack: 0.001, Decay: 0.01, Sustain: 1, Release: 0.1})
	s.SetSample(testTone(SAMPLE_RATE, 440, SAMPLE_RATE))

	idx := s.NoteOnMidi(72, 1) // one octave above root 60
	s.GenerateBlock(BLOCK_SIZE)

	v := s.pool.Voice(idx)
	if !approxEq(float32(v.Position), 2*BLOCK_SIZE, 3) {
		t.Errorf("position = %f, want ~%d at double rate", v.Position, 2*BLOCK_SIZE)
	}
}

func TestSampler_SampleRateCompensation(t *testing.T) {
	s := NewSampler("smp", SAMPLE_RATE)
	s.SetEnvelope(EnvelopeParams{Attack: 0.001, Decay: 0.01, Sustain: 1, Release: 0.1})
	// Sample recorded at half the engine rate plays back at half speed
	// through the source data.
	s.SetSample(testTone(SAMPLE_RATE, 440, SAMPLE_RATE/2))

	idx := s.NoteOnMidi(60, 1)
	s.GenerateBlock(BLOCK_SIZE)

	v := s.pool.Voice(idx)
	if !approxEq(float32(v.Position), BLOCK_SIZE/2, 2) {
		t.Errorf("position = %f, want ~%d with rate compensation", v.Position, BLOCK_SIZE/2)
	}
}

func TestSampler_OneShotEndsVoice(t *testing.T) {
	s := NewSampler("smp", SAMPLE_RATE)
	s.SetEnvelope(EnvelopeParams{Attack: 0.001, Decay: 0.01, Sustain: 1, Release: 0.1})
	s.SetSample(testTone(100, 440, SAMPLE_RATE)) // ~2ms sample

	s.NoteOnMidi(60, 1)
	s.GenerateBlock(BLOCK_SIZE)
	if s.ActiveVoiceCount() != 0 {
		t.Error("voice survived past the end of a one-shot sample")
	}
}

func TestSampler_LoopSustains(t *testing.T) {
	s := NewSampler("smp", SAMPLE_RATE)
	s.SetEnvelope(EnvelopeParams{Attack: 0.001, Decay: 0.01, Sustain: 1, Release: 0.1})
	s.SetSample(testTone(4800, 440, SAMPLE_RATE)) // 0.1s
	s.SetLoopPoints(0.02, 0.08)

	s.NoteOnMidi(60, 1)
	// Render well past the raw sample length.
	for i := 0; i < 20; i++ {
		s.GenerateBlock(BLOCK_SIZE)
	}
	if s.ActiveVoiceCount() != 1 {
		t.Error("looped voice died")
	}
	v := s.pool.Voice(0)
	if v.Position < float64(s.loopStart) || v.Position >= float64(s.loopEnd) {
		t.Errorf("loop cursor %f escaped [%d,%d)", v.Position, s.loopStart, s.loopEnd)
	}

	s.NoteOffMidi(60)
	for i := 0; i < 20; i++ {
		s.GenerateBlock(BLOCK_SIZE)
	}
	if s.ActiveVoiceCount() != 0 {
		t.Error("looped voice did not release")
	}
}

func TestSampler_TriggerFiresRootNote(t *testing.T) {
	s := NewSampler("smp", SAMPLE_RATE)
	s.SetSample(testTone(4800, 440, SAMPLE_RATE))
	s.SetRootNote(48)

	s.HandleEvent(AudioEvent{Kind: EVENT_TRIGGER})
	if s.ActiveVoiceCount() != 1 {
		t.Fatal("trigger event spawned no voice")
	}
	if s.pool.Voice(0).MidiNote != 48 {
		t.Errorf("trigger note = %d, want root 48", s.pool.Voice(0).MidiNote)
	}
}

func TestWAVFile_WriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")

	src := testTone(1000, 440, SAMPLE_RATE)
	if err := WriteWAVFile(path, src.Samples, SAMPLE_RATE); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := LoadWAVFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.FrameCount != 1000 {
		t.Fatalf("frame count = %d, want 1000", got.FrameCount)
	}
	if got.SampleRate != SAMPLE_RATE {
		t.Fatalf("sample rate = %d, want %d", got.SampleRate, SAMPLE_RATE)
	}
	// 16-bit quantisation allows ~1/32767 error.
	for i := 0; i < len(src.Samples); i++ {
		if !approxEq(got.Samples[i], src.Samples[i], 0.001) {
			t.Fatalf("sample %d = %f, want %f", i, got.Samples[i], src.Samples[i])
		}
	}
}

func TestRenderBlocks_ProducesRequestedDuration(t *testing.T) {
	g := NewAudioGraph(SAMPLE_RATE)
	s := NewPolySynth("poly", SAMPLE_RATE)
	id, _ := g.AddOperator("poly", s)
	g.SetOutput(s)
	if err := g.BuildExecutionOrder(); err != nil {
		t.Fatal(err)
	}

	g.QueueNoteOn(id, 440, 1)
	out := RenderBlocks(g, 0.25, BLOCK_SIZE)

	wantSamples := int(0.25*SAMPLE_RATE) * AUDIO_CHANNELS
	if len(out) != wantSamples {
		t.Fatalf("rendered %d samples, want %d", len(out), wantSamples)
	}
	if blockRMS(out) == 0 {
		t.Error("offline render is silent despite a queued note")
	}
}
