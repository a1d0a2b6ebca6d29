// audio_mixer.go - Multi-input summing mixer operator

/*
(c) 2025 - 2026 Quartz Audio
https://github.com/quartzaudio/QuartzEngine
License: GPLv3 or later
*/

package main

// Mixer parameter indices. Per-channel gain events address the channel
// by registration order: PARAM_MIXER_GAIN_BASE + channel.
const (
	PARAM_MIXER_MASTER = PARAM_INSTRUMENT_BASE + iota
	PARAM_MIXER_GAIN_BASE
)

type mixerChannel struct {
	source AudioOperator
	gain   float32
}

// Mixer sums the output buffers of its input operators, each through a
// per-channel gain, then a master gain. The graph guarantees inputs have
// generated their blocks before the mixer runs.
type Mixer struct {
	name     string
	channels []mixerChannel
	inputs   []AudioOperator
	master   float32
	out      blockOutput
}

func NewMixer(name string) *Mixer {
	return &Mixer{
		name:   name,
		master: 1.0,
		out:    newBlockOutput(),
	}
}

func (m *Mixer) Name() string            { return m.name }
func (m *Mixer) OutputBuffer() []float32 { return m.out.samples }
func (m *Mixer) Inputs() []AudioOperator { return m.inputs }

// AddInput registers a source with an initial gain. Control thread,
// before BuildExecutionOrder.
func (m *Mixer) AddInput(src AudioOperator, gain float32) {
	m.channels = append(m.channels, mixerChannel{source: src, gain: gain})
	m.inputs = append(m.inputs, src)
}

// SetGain adjusts one channel's gain by index.
func (m *Mixer) SetGain(channel int, gain float32) {
	if channel >= 0 && channel < len(m.channels) {
		m.channels[channel].gain = gain
	}
}

// SetMaster adjusts the post-sum master gain.
func (m *Mixer) SetMaster(gain float32) { m.master = gain }

func (m *Mixer) Reset() {
	m.out.clear()
}

func (m *Mixer) HandleEvent(ev AudioEvent) {
	switch ev.Kind {
	case EVENT_PARAM_CHANGE:
		switch {
		case ev.ParamID == PARAM_VOLUME || ev.ParamID == PARAM_MIXER_MASTER:
			m.master = ev.Value1
		case ev.ParamID >= PARAM_MIXER_GAIN_BASE:
			m.SetGain(int(ev.ParamID-PARAM_MIXER_GAIN_BASE), ev.Value1)
		}
	case EVENT_RESET:
		m.Reset()
	}
}

// ParamIndex maps a parameter name to its event index.
func (m *Mixer) ParamIndex(name string) (uint32, bool) {
	switch name {
	case "volume", "master":
		return PARAM_MIXER_MASTER, true
	}
	return 0, false
}

// GenerateBlock sums input blocks with per-channel and master gains,
// clamping the result to the legal sample range.
func (m *Mixer) GenerateBlock(frameCount uint32) {
	out := m.out.frame(frameCount)
	for i := range out {
		out[i] = 0
	}

	for c := range m.channels {
		ch := &m.channels[c]
		if ch.gain == 0 {
			continue
		}
		src := ch.source.OutputBuffer()
		n := len(out)
		if len(src) < n {
			n = len(src)
		}
		for i := 0; i < n; i++ {
			out[i] += src[i] * ch.gain
		}
	}

	if m.master != 1.0 {
		for i := range out {
			out[i] *= m.master
		}
	}
	for i := range out {
		out[i] = clampf(out[i], MIN_SAMPLE, MAX_SAMPLE)
	}
}
