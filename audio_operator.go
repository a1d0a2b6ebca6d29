// audio_operator.go - Operator contract and shared block buffer handling

/*
(c) 2025 - 2026 Quartz Audio
https://github.com/quartzaudio/QuartzEngine
License: GPLv3 or later
*/

package main

// AudioOperator is a named unit that produces one block of interleaved
// stereo float samples per GenerateBlock call. Operators are registered
// with an AudioGraph at setup time; the graph holds references but never
// owns operator memory.
//
// GenerateBlock and HandleEvent run on the audio thread and must not
// allocate, lock, or block. Everything else is control-thread territory.
type AudioOperator interface {
	Name() string

	// GenerateBlock renders frameCount frames into the operator's output
	// buffer. Called once per block in dependency order.
	GenerateBlock(frameCount uint32)

	// OutputBuffer returns the interleaved stereo samples produced by the
	// most recent GenerateBlock call.
	OutputBuffer() []float32

	// HandleEvent applies a control event at a block boundary.
	HandleEvent(ev AudioEvent)

	// Inputs lists upstream operators whose blocks must be generated
	// before this one. Nil or empty for pure sources.
	Inputs() []AudioOperator

	// Reset returns the operator to its initial silent state.
	Reset()
}

// blockOutput is the output buffer every operator embeds. Storage is
// sized once for MAX_BLOCK_FRAMES so reslicing on the audio thread never
// allocates.
type blockOutput struct {
	samples []float32
}

func newBlockOutput() blockOutput {
	return blockOutput{samples: make([]float32, 0, MAX_BLOCK_FRAMES*AUDIO_CHANNELS)}
}

// frame resizes the buffer for frameCount frames and returns it. Growth
// past the pre-allocated capacity only happens if a caller exceeds
// MAX_BLOCK_FRAMES, which the graph clamps against.
func (b *blockOutput) frame(frameCount uint32) []float32 {
	n := int(frameCount) * AUDIO_CHANNELS
	if cap(b.samples) < n {
		b.samples = make([]float32, n)
	}
	b.samples = b.samples[:n]
	return b.samples
}

func (b *blockOutput) clear() {
	for i := range b.samples {
		b.samples[i] = 0
	}
}

func clampf(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
