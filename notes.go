// notes.go - Musical note and frequency helpers

/*
(c) 2025 - 2026 Quartz Audio
https://github.com/quartzaudio/QuartzEngine
License: GPLv3 or later
*/

package main

import (
	"fmt"
	"math"
	"strings"
)

// MidiToFreq converts a MIDI note number to its frequency in Hz using
// A4 = 440 Hz equal temperament (MIDI 69).
func MidiToFreq(midiNote int) float32 {
	return 440.0 * float32(math.Pow(2, float64(midiNote-69)/12.0))
}

// FreqToMidi returns the nearest MIDI note number for a frequency.
func FreqToMidi(freq float32) int {
	if freq <= 0 {
		return 0
	}
	return int(math.Round(69 + 12*math.Log2(float64(freq)/440.0)))
}

// CentsToRatio converts a detune amount in cents to a frequency ratio.
func CentsToRatio(cents float32) float32 {
	return float32(math.Pow(2, float64(cents)/1200.0))
}

// semitone offsets from C within an octave
var noteSemitones = map[byte]int{
	'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11,
}

// NoteFreq converts a note name like "C4", "F#3" or "Bb2" to a frequency.
// Octaves 0 through 8 are accepted, with C4 = MIDI 60.
func NoteFreq(name string) (float32, error) {
	s := strings.ToUpper(strings.TrimSpace(name))
	if len(s) < 2 {
		return 0, fmt.Errorf("invalid note name %q", name)
	}
	semi, ok := noteSemitones[s[0]]
	if !ok {
		return 0, fmt.Errorf("invalid note name %q", name)
	}
	rest := s[1:]
	switch rest[0] {
	case '#':
		semi++
		rest = rest[1:]
	case 'B':
		// flat; only when followed by an octave digit ("Bb3" upper-cased)
		if len(rest) > 1 {
			semi--
			rest = rest[1:]
		}
	}
	if len(rest) != 1 || rest[0] < '0' || rest[0] > '8' {
		return 0, fmt.Errorf("invalid octave in note name %q", name)
	}
	octave := int(rest[0] - '0')
	return MidiToFreq((octave+1)*12 + semi), nil
}

// Common note frequencies, octave 2 through 5 (A4 = 440 Hz).
const (
	FREQ_C2 = 65.41
	FREQ_E2 = 82.41
	FREQ_G2 = 98.00
	FREQ_A2 = 110.00
	FREQ_C3 = 130.81
	FREQ_E3 = 164.81
	FREQ_G3 = 196.00
	FREQ_A3 = 220.00
	FREQ_C4 = 261.63
	FREQ_D4 = 293.66
	FREQ_E4 = 329.63
	FREQ_F4 = 349.23
	FREQ_G4 = 392.00
	FREQ_A4 = 440.00
	FREQ_B4 = 493.88
	FREQ_C5 = 523.25
	FREQ_E5 = 659.26
	FREQ_G5 = 783.99
	FREQ_A5 = 880.00
)
