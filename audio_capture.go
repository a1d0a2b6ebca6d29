// audio_capture.go - Ring-buffer fed capture source operator

/*
(c) 2025 - 2026 Quartz Audio
https://github.com/quartzaudio/QuartzEngine
License: GPLv3 or later
*/

package main

// CaptureSource bridges an external producer thread into the graph. The
// producer pushes interleaved stereo samples through PushSamples; the
// audio thread drains the ring buffer one block at a time. Underruns
// come out as silence, overruns drop the oldest samples.
type CaptureSource struct {
	name string
	ring *RingBuffer
	gain float32
	out  blockOutput
}

// NewCaptureSource creates a capture operator backed by a ring buffer
// holding capacityFrames stereo frames.
func NewCaptureSource(name string, capacityFrames uint32) *CaptureSource {
	if capacityFrames == 0 {
		capacityFrames = RING_BUFFER_FRAMES
	}
	return &CaptureSource{
		name: name,
		ring: NewRingBuffer(int(capacityFrames) * AUDIO_CHANNELS),
		gain: 1.0,
		out:  newBlockOutput(),
	}
}

func (c *CaptureSource) Name() string            { return c.name }
func (c *CaptureSource) OutputBuffer() []float32 { return c.out.samples }
func (c *CaptureSource) Inputs() []AudioOperator { return nil }

// PushSamples feeds interleaved stereo samples from the producer thread.
func (c *CaptureSource) PushSamples(samples []float32) {
	c.ring.Write(samples)
}

// BufferedFrames reports how many whole stereo frames are waiting.
func (c *CaptureSource) BufferedFrames() int {
	return c.ring.Available() / AUDIO_CHANNELS
}

func (c *CaptureSource) SetGain(g float32) { c.gain = g }

func (c *CaptureSource) Reset() {
	// Drain whatever the producer left behind.
	for c.ring.Available() > 0 {
		c.ring.Read(c.out.samples[:cap(c.out.samples)])
	}
	c.out.clear()
}

func (c *CaptureSource) HandleEvent(ev AudioEvent) {
	switch ev.Kind {
	case EVENT_PARAM_CHANGE:
		if ev.ParamID == PARAM_VOLUME {
			c.gain = ev.Value1
		}
	case EVENT_RESET:
		c.Reset()
	}
}

// GenerateBlock pulls one block from the ring buffer; Read zero-fills
// any shortfall so underruns are silent rather than stale.
func (c *CaptureSource) GenerateBlock(frameCount uint32) {
	out := c.out.frame(frameCount)
	c.ring.Read(out)
	if c.gain != 1.0 {
		for i := range out {
			out[i] *= c.gain
		}
	}
}
