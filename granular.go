// granular.go - Granular synthesis over a loaded sample

/*
(c) 2025 - 2026 Quartz Audio
https://github.com/quartzaudio/QuartzEngine
License: GPLv3 or later
*/

package main

import (
	"math"
	"math/rand"
)

// Grain window shapes.
const (
	GRAIN_WINDOW_HANN = iota
	GRAIN_WINDOW_TRIANGLE
	GRAIN_WINDOW_RECTANGLE
	GRAIN_WINDOW_GAUSSIAN
	GRAIN_WINDOW_TUKEY
)

// Granular parameter indices beyond the shared block.
const (
	PARAM_GRAIN_SIZE = PARAM_INSTRUMENT_BASE + iota
	PARAM_GRAIN_DENSITY
	PARAM_GRAIN_POSITION
	PARAM_GRAIN_POSITION_SPRAY
	PARAM_GRAIN_PITCH
	PARAM_GRAIN_PITCH_SPRAY
	PARAM_GRAIN_PAN_SPRAY
	PARAM_GRAIN_WINDOW
)

const MAX_GRAINS = 64

// grain is one playing fragment of the source sample.
type grain struct {
	active    bool
	samplePos float64
	pitch     float32
	panL      float32
	panR      float32
	age       uint32
	duration  uint32
}

// Granular scatters short windowed grains across a loaded sample. Grain
// spawning follows the density parameter with 20% timing jitter; spray
// parameters randomise position, pitch and pan per grain. When the pool
// of 64 grains is exhausted the oldest grain is recycled.
type Granular struct {
	name       string
	sampleRate uint32

	sample *SampleData
	grains [MAX_GRAINS]grain
	rng    *rand.Rand

	grainSizeMs   float32 // grain length in milliseconds
	density       float32 // grains per second
	position      float32 // normalised 0..1 read position
	positionSpray float32
	pitch         float32
	pitchSpray    float32 // 0..1, scaled to +-12 semitones
	panSpray      float32
	window        int
	volume        float32

	freeze      bool
	autoAdvance bool

	grainTimer    float32
	positionPhase float32

	out blockOutput
}

// NewGranular creates a granular synth with sensible cloud defaults.
func NewGranular(name string, sampleRate uint32) *Granular {
	if sampleRate == 0 {
		sampleRate = SAMPLE_RATE
	}
	return &Granular{
		name:        name,
		sampleRate:  sampleRate,
		rng:         rand.New(rand.NewSource(0x9E3779B9)),
		grainSizeMs: 80,
		density:     20,
		position:    0,
		pitch:       1,
		window:      GRAIN_WINDOW_HANN,
		volume:      0.7,
		out:         newBlockOutput(),
	}
}

func (g *Granular) Name() string            { return g.name }
func (g *Granular) OutputBuffer() []float32 { return g.out.samples }
func (g *Granular) Inputs() []AudioOperator { return nil }

// LoadSample decodes a WAV file as grain source material. Control
// thread, audio stopped.
func (g *Granular) LoadSample(path string) error {
	data, err := LoadWAVFile(path)
	if err != nil {
		return err
	}
	g.SetSample(data)
	return nil
}

// SetSample installs an in-memory sample as grain source.
func (g *Granular) SetSample(data *SampleData) {
	g.sample = data
	g.positionPhase = g.position
}

func (g *Granular) SetWindow(w int) {
	if w >= GRAIN_WINDOW_HANN && w <= GRAIN_WINDOW_TUKEY {
		g.window = w
	}
}

func (g *Granular) SetFreeze(f bool)      { g.freeze = f }
func (g *Granular) SetAutoAdvance(a bool) { g.autoAdvance = a }
func (g *Granular) SetVolume(v float32)   { g.volume = clampf(v, 0, 1) }

// ActiveGrainCount reports how many grains are currently sounding.
func (g *Granular) ActiveGrainCount() int {
	n := 0
	for i := range g.grains {
		if g.grains[i].active {
			n++
		}
	}
	return n
}

// Reset stops all grains and clears the output.
func (g *Granular) Reset() {
	for i := range g.grains {
		g.grains[i] = grain{}
	}
	g.grainTimer = 0
	g.positionPhase = g.position
	g.out.clear()
}

// HandleEvent applies a control event. NoteOn retunes the cloud pitch
// relative to A4 and jumps the read position; Trigger spawns one grain.
func (g *Granular) HandleEvent(ev AudioEvent) {
	switch ev.Kind {
	case EVENT_NOTE_ON:
		if ev.Value1 > 0 {
			g.pitch = ev.Value1 / FREQ_A4
		}
	case EVENT_NOTE_OFF:
		// Grains decay on their own; nothing to release.
	case EVENT_TRIGGER:
		g.spawnGrain()
	case EVENT_PARAM_CHANGE:
		g.setParam(ev.ParamID, ev.Value1)
	case EVENT_RESET:
		g.Reset()
	}
}

func (g *Granular) setParam(id uint32, value float32) {
	switch id {
	case PARAM_VOLUME:
		g.volume = clampf(value, 0, 1)
	case PARAM_GRAIN_SIZE:
		g.grainSizeMs = clampf(value, 5, 1000)
	case PARAM_GRAIN_DENSITY:
		g.density = clampf(value, 0.5, 500)
	case PARAM_GRAIN_POSITION:
		g.position = clampf(value, 0, 1)
		g.positionPhase = g.position
	case PARAM_GRAIN_POSITION_SPRAY:
		g.positionSpray = clampf(value, 0, 1)
	case PARAM_GRAIN_PITCH:
		g.pitch = clampf(value, 0.25, 4)
	case PARAM_GRAIN_PITCH_SPRAY:
		g.pitchSpray = clampf(value, 0, 1)
	case PARAM_GRAIN_PAN_SPRAY:
		g.panSpray = clampf(value, 0, 1)
	case PARAM_GRAIN_WINDOW:
		g.SetWindow(int(value))
	}
}

// ParamIndex maps a parameter name to its event index.
func (g *Granular) ParamIndex(name string) (uint32, bool) {
	switch name {
	case "volume":
		return PARAM_VOLUME, true
	case "grainSize":
		return PARAM_GRAIN_SIZE, true
	case "density":
		return PARAM_GRAIN_DENSITY, true
	case "position":
		return PARAM_GRAIN_POSITION, true
	case "positionSpray":
		return PARAM_GRAIN_POSITION_SPRAY, true
	case "pitch":
		return PARAM_GRAIN_PITCH, true
	case "pitchSpray":
		return PARAM_GRAIN_PITCH_SPRAY, true
	case "panSpray":
		return PARAM_GRAIN_PAN_SPRAY, true
	case "window":
		return PARAM_GRAIN_WINDOW, true
	}
	return 0, false
}

// ----------------------------------------------------------------------------
// Generation

// GenerateBlock spawns grains on the density clock and mixes all active
// grains into the output buffer.
func (g *Granular) GenerateBlock(frameCount uint32) {
	out := g.out.frame(frameCount)
	for i := range out {
		out[i] = 0
	}
	if g.sample == nil || g.sample.FrameCount == 0 {
		return
	}

	grainInterval := float32(g.sampleRate) / g.density

	for i := uint32(0); i < frameCount; i++ {
		g.grainTimer -= 1
		if g.grainTimer <= 0 {
			g.spawnGrain()
			// Jitter the next spawn 0.8x-1.2x around the interval.
			g.grainTimer = grainInterval * (0.8 + g.randomUnipolar()*0.4)
		}

		if g.autoAdvance && !g.freeze {
			g.positionPhase += 1 / float32(g.sample.FrameCount)
			if g.positionPhase >= 1 {
				g.positionPhase -= 1
			}
		} else if !g.freeze {
			g.positionPhase = g.position
		}

		var outL, outR float32
		for gi := range g.grains {
			gr := &g.grains[gi]
			if !gr.active {
				continue
			}

			t := float32(gr.age) / float32(gr.duration)
			env := g.windowValue(t)

			sl := g.sampleAt(gr.samplePos, 0)
			sr := g.sampleAt(gr.samplePos, 1)
			outL += sl * env * gr.panL
			outR += sr * env * gr.panR

			gr.samplePos += float64(gr.pitch)
			gr.age++
			if gr.age >= gr.duration ||
				gr.samplePos < 0 ||
				gr.samplePos >= float64(g.sample.FrameCount) {
				gr.active = false
			}
		}

		out[i*2] = outL * g.volume
		out[i*2+1] = outR * g.volume
	}
}

// spawnGrain starts a new grain at the current position with the spray
// parameters applied; recycles the oldest grain when none is free.
func (g *Granular) spawnGrain() {
	if g.sample == nil || g.sample.FrameCount == 0 {
		return
	}

	startPos := g.positionPhase
	if g.freeze {
		startPos = g.position
	}
	startPos = clampf(startPos+g.randomBipolar()*g.positionSpray, 0, 1)

	grainPitch := g.pitch
	if g.pitchSpray > 0 {
		semitones := g.randomBipolar() * g.pitchSpray * 12
		grainPitch *= float32(math.Pow(2, float64(semitones)/12))
	}

	// Equal-power pan.
	pan := g.randomBipolar() * g.panSpray
	panL := float32(math.Cos(float64(pan+1) * 0.25 * math.Pi))
	panR := float32(math.Sin(float64(pan+1) * 0.25 * math.Pi))

	var target *grain
	for i := range g.grains {
		if !g.grains[i].active {
			target = &g.grains[i]
			break
		}
	}
	if target == nil {
		var maxAge uint32
		for i := range g.grains {
			if g.grains[i].age >= maxAge {
				maxAge = g.grains[i].age
				target = &g.grains[i]
			}
		}
	}

	durationSamples := uint32(g.grainSizeMs / 1000 * float32(g.sampleRate))
	if durationSamples == 0 {
		durationSamples = 1
	}

	*target = grain{
		active:    true,
		samplePos: float64(startPos) * float64(g.sample.FrameCount),
		pitch:     grainPitch,
		panL:      panL,
		panR:      panR,
		duration:  durationSamples,
	}
}

// windowValue evaluates the grain envelope at normalised time t.
func (g *Granular) windowValue(t float32) float32 {
	t = clampf(t, 0, 1)
	switch g.window {
	case GRAIN_WINDOW_HANN:
		return 0.5 * (1 - float32(math.Cos(2*math.Pi*float64(t))))
	case GRAIN_WINDOW_TRIANGLE:
		if t < 0.5 {
			return 2 * t
		}
		return 2 * (1 - t)
	case GRAIN_WINDOW_RECTANGLE:
		// Short edge fades keep clicks out.
		if t < 0.01 {
			return t / 0.01
		}
		if t > 0.99 {
			return (1 - t) / 0.01
		}
		return 1
	case GRAIN_WINDOW_GAUSSIAN:
		x := (t - 0.5) * 4
		return float32(math.Exp(float64(-x * x)))
	case GRAIN_WINDOW_TUKEY:
		const alpha = 0.5
		if t < alpha/2 {
			return 0.5 * (1 + float32(math.Cos(2*math.Pi/alpha*float64(t-alpha/2))))
		}
		if t > 1-alpha/2 {
			return 0.5 * (1 + float32(math.Cos(2*math.Pi/alpha*float64(t-1+alpha/2))))
		}
		return 1
	default:
		return 1
	}
}

// sampleAt reads one channel at a fractional frame position with linear
// interpolation.
func (g *Granular) sampleAt(pos float64, channel int) float32 {
	p0 := int64(pos)
	if p0 < 0 || p0 >= int64(g.sample.FrameCount) {
		return 0
	}
	p1 := p0 + 1
	if p1 >= int64(g.sample.FrameCount) {
		p1 = p0
	}
	frac := float32(pos - float64(p0))

	s0 := g.sample.Samples[p0*2+int64(channel)]
	s1 := g.sample.Samples[p1*2+int64(channel)]
	return s0 + (s1-s0)*frac
}

func (g *Granular) randomBipolar() float32  { return g.rng.Float32()*2 - 1 }
func (g *Granular) randomUnipolar() float32 { return g.rng.Float32() }
