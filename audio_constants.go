// audio_constants.go - Engine-wide audio configuration defaults

/*
(c) 2025 - 2026 Quartz Audio
https://github.com/quartzaudio/QuartzEngine
License: GPLv3 or later
*/

package main

const (
	SAMPLE_RATE    = 48000 // Default sample rate in Hz
	AUDIO_CHANNELS = 2     // Interleaved stereo throughout the engine
	BLOCK_SIZE     = 512   // Default frames per processing block

	// Upper bound for a single block; operators pre-allocate against this
	// so the audio thread never grows a buffer.
	MAX_BLOCK_FRAMES = 4096
)

const (
	EVENT_QUEUE_CAPACITY = 1024  // Event records per graph
	RING_BUFFER_FRAMES   = 48000 // ~1 second of stereo at 48kHz
)

// Envelope stages. A voice whose envelope is ENV_IDLE is free.
const (
	ENV_IDLE = iota
	ENV_ATTACK
	ENV_DECAY
	ENV_SUSTAIN
	ENV_RELEASE
)

const (
	MIN_STAGE_TIME = 0.001 // Seconds; floor for ADSR stage durations
	FREQ_TOLERANCE = 0.5   // Hz tolerance when matching note-off to a voice
)

// Waveform selectors shared by oscillator-based instruments.
const (
	WAVE_SINE = iota
	WAVE_TRIANGLE
	WAVE_SQUARE
	WAVE_SAW
	WAVE_PULSE
)

const (
	MAX_SAMPLE = 1.0
	MIN_SAMPLE = -1.0
)

// DSP load smoothing: exponential moving average weights.
const (
	DSP_LOAD_SMOOTHING = 0.9
	DSP_LOAD_CURRENT   = 0.1
)
