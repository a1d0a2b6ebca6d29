// audio_benchmark_test.go - Hot-path benchmarks

/*
(c) 2025 - 2026 Quartz Audio
https://github.com/quartzaudio/QuartzEngine
License: GPLv3 or later
*/

package main

import "testing"

func BenchmarkEventQueuePushPop(b *testing.B) {
	q := NewEventQueue(EVENT_QUEUE_CAPACITY)
	ev := AudioEvent{Kind: EVENT_NOTE_ON, Value1: 440, Value2: 1}
	var out AudioEvent

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		q.Push(ev)
		q.Pop(&out)
	}
}

func BenchmarkRingBufferBlock(b *testing.B) {
	rb := NewRingBuffer(RING_BUFFER_FRAMES * AUDIO_CHANNELS)
	block := make([]float32, BLOCK_SIZE*AUDIO_CHANNELS)

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		rb.Write(block)
		rb.Read(block)
	}
}

func BenchmarkPolySynthBlock(b *testing.B) {
	s := NewPolySynth("poly", SAMPLE_RATE)
	s.SetEnvelope(EnvelopeParams{Attack: 0.01, Decay: 0.1, Sustain: 0.7, Release: 10})
	for i := 0; i < POLY_DEFAULT_VOICES; i++ {
		s.NoteOn(110*float32(i+1), 1)
	}

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		s.GenerateBlock(BLOCK_SIZE)
	}
}

func BenchmarkFMSynthBlock(b *testing.B) {
	s := NewFMSynth("fm", SAMPLE_RATE)
	s.LoadPreset(FM_PRESET_ORGAN) // full-sustain envelopes stay active
	for i := 0; i < FM_MAX_VOICES; i++ {
		s.NoteOn(110*float32(i+1), 1)
	}

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		s.GenerateBlock(BLOCK_SIZE)
	}
}

func BenchmarkGranularBlock(b *testing.B) {
	g := NewGranular("gran", SAMPLE_RATE)
	g.SetSample(testTone(SAMPLE_RATE, 220, SAMPLE_RATE))
	g.setParam(PARAM_GRAIN_DENSITY, 100)

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		g.GenerateBlock(BLOCK_SIZE)
	}
}

// The full graph path the audio callback takes every period.
func BenchmarkGraphProcessBlock(b *testing.B) {
	g := NewAudioGraph(SAMPLE_RATE)

	poly := NewPolySynth("poly", SAMPLE_RATE)
	poly.SetEnvelope(EnvelopeParams{Attack: 0.01, Decay: 0.1, Sustain: 0.7, Release: 10})
	fm := NewFMSynth("fm", SAMPLE_RATE)
	fm.LoadPreset(FM_PRESET_ORGAN)
	m := NewMixer("mix")
	m.AddInput(poly, 0.6)
	m.AddInput(fm, 0.6)

	g.AddOperator("poly", poly)
	g.AddOperator("fm", fm)
	g.AddOperator("mix", m)
	g.SetOutput(m)
	if err := g.BuildExecutionOrder(); err != nil {
		b.Fatal(err)
	}

	for i := 0; i < 4; i++ {
		poly.NoteOn(110*float32(i+1), 1)
		fm.NoteOn(110*float32(i+1), 1)
	}

	out := make([]float32, BLOCK_SIZE*AUDIO_CHANNELS)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		g.ProcessBlock(out, BLOCK_SIZE)
	}
}
