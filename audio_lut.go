// audio_lut.go - Sine lookup table for the per-sample oscillator paths

/*
(c) 2025 - 2026 Quartz Audio
https://github.com/quartzaudio/QuartzEngine
License: GPLv3 or later
*/

package main

import "math"

const TWO_PI = float32(2 * math.Pi)

const (
	sinLUTSize = 8192           // ~0.00077 radian resolution
	sinLUTMask = sinLUTSize - 1 // power-of-2 size keeps the wrap a mask
)

const sinLUTScale = float32(sinLUTSize) / (2 * math.Pi)

// sinLUT holds one cycle of sine sampled at sinLUTSize points.
var sinLUT [sinLUTSize]float32

func init() {
	for i := 0; i < sinLUTSize; i++ {
		sinLUT[i] = float32(math.Sin(float64(i) * 2 * math.Pi / float64(sinLUTSize)))
	}
}

// fastSin returns sin(phase) via table lookup with linear interpolation.
// Phase is in radians; values outside [0, 2π) are wrapped.
//
//go:nosplit
func fastSin(phase float32) float32 {
	if phase < 0 {
		phase += TWO_PI
		if phase < 0 {
			phase = phase - TWO_PI*float32(int(phase/TWO_PI)-1)
		}
	} else if phase >= TWO_PI {
		phase = phase - TWO_PI*float32(int(phase/TWO_PI))
	}

	indexF := phase * sinLUTScale
	index := int(indexF)
	frac := indexF - float32(index)

	index &= sinLUTMask
	nextIndex := (index + 1) & sinLUTMask

	return sinLUT[index] + frac*(sinLUT[nextIndex]-sinLUT[index])
}
