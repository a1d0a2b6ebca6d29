// wav_file.go - WAV sample loading and offline block rendering

/*
(c) 2025 - 2026 Quartz Audio
https://github.com/quartzaudio/QuartzEngine
License: GPLv3 or later
*/

package main

import (
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// SampleData is a decoded audio sample held in memory as interleaved
// stereo float32, the engine's native format. Mono sources are
// duplicated to both channels; extra channels are dropped.
type SampleData struct {
	Samples    []float32
	FrameCount uint32
	SampleRate uint32
}

// Duration returns the sample length in seconds.
func (s *SampleData) Duration() float32 {
	if s.SampleRate == 0 {
		return 0
	}
	return float32(s.FrameCount) / float32(s.SampleRate)
}

// LoadWAVFile decodes a PCM WAV file into engine format. Control thread
// only; instruments swap the loaded sample in before audio starts.
func LoadWAVFile(path string) (*SampleData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open wav %s: %w", path, err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%s is not a valid wav file", path)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode wav %s: %w", path, err)
	}
	if buf.Format == nil || buf.Format.NumChannels == 0 {
		return nil, fmt.Errorf("wav %s has no channel format", path)
	}

	channels := buf.Format.NumChannels
	frames := len(buf.Data) / channels
	bitDepth := int(dec.BitDepth)
	if bitDepth == 0 {
		bitDepth = 16
	}
	scale := float32(int64(1) << (bitDepth - 1))

	out := make([]float32, frames*AUDIO_CHANNELS)
	for i := 0; i < frames; i++ {
		left := float32(buf.Data[i*channels]) / scale
		right := left
		if channels > 1 {
			right = float32(buf.Data[i*channels+1]) / scale
		}
		out[i*2] = left
		out[i*2+1] = right
	}

	return &SampleData{
		Samples:    out,
		FrameCount: uint32(frames),
		SampleRate: uint32(buf.Format.SampleRate),
	}, nil
}

// WriteWAVFile encodes interleaved stereo float32 samples as a 16-bit
// PCM WAV file.
func WriteWAVFile(path string, samples []float32, sampleRate uint32) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create wav %s: %w", path, err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, int(sampleRate), 16, AUDIO_CHANNELS, 1)

	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: AUDIO_CHANNELS, SampleRate: int(sampleRate)},
		Data:           make([]int, len(samples)),
		SourceBitDepth: 16,
	}
	for i, s := range samples {
		s = clampf(s, MIN_SAMPLE, MAX_SAMPLE)
		buf.Data[i] = int(s * 32767)
	}

	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("encode wav %s: %w", path, err)
	}
	return enc.Close()
}

// RenderBlocks drives the graph offline for the given duration and
// returns the rendered interleaved samples. The graph must be built.
// Useful for non-real-time export and testing; the same ProcessBlock
// path the live backend pulls.
func RenderBlocks(graph *AudioGraph, seconds float32, blockFrames uint32) []float32 {
	if blockFrames == 0 || blockFrames > MAX_BLOCK_FRAMES {
		blockFrames = BLOCK_SIZE
	}
	totalFrames := uint32(seconds * float32(graph.SampleRate()))
	out := make([]float32, 0, int(totalFrames)*AUDIO_CHANNELS)
	block := make([]float32, int(blockFrames)*AUDIO_CHANNELS)

	for rendered := uint32(0); rendered < totalFrames; rendered += blockFrames {
		frames := blockFrames
		if rendered+frames > totalFrames {
			frames = totalFrames - rendered
		}
		graph.ProcessBlock(block[:frames*AUDIO_CHANNELS], frames)
		out = append(out, block[:frames*AUDIO_CHANNELS]...)
	}
	return out
}

// RenderToWAV renders the graph offline and writes the result to path.
func RenderToWAV(graph *AudioGraph, path string, seconds float32, blockFrames uint32) error {
	samples := RenderBlocks(graph, seconds, blockFrames)
	return WriteWAVFile(path, samples, graph.SampleRate())
}
