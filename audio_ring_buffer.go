// audio_ring_buffer.go - SPSC float ring buffer for sample transport

/*
(c) 2025 - 2026 Quartz Audio
https://github.com/quartzaudio/QuartzEngine
License: GPLv3 or later
*/

package main

import "sync/atomic"

// RingBuffer moves interleaved float samples between one producer (a
// capture callback) and one consumer (the audio-generation thread)
// without locks. Cursors are array positions advanced modulo the size;
// one slot stays empty so a full buffer is distinguishable from an empty
// one. On overflow the producer discards the oldest samples - a live
// source favours fresh data over complete data and must never block.
type RingBuffer struct {
	data  []float32
	size  uint32
	write atomic.Uint32
	read  atomic.Uint32
}

// NewRingBuffer creates a buffer that can hold capacity-1 samples.
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity < 2 {
		capacity = 2
	}
	return &RingBuffer{
		data: make([]float32, capacity),
		size: uint32(capacity),
	}
}

func (rb *RingBuffer) Capacity() int { return int(rb.size) - 1 }

// Available reports how many samples are buffered for reading.
func (rb *RingBuffer) Available() int {
	w := rb.write.Load()
	r := rb.read.Load()
	return int((w + rb.size - r) % rb.size)
}

// Free reports how many samples can be written without overwriting.
func (rb *RingBuffer) Free() int {
	return rb.Capacity() - rb.Available()
}

// Write copies samples into the buffer. If there is not enough free
// space the oldest buffered samples are dropped to make room. Producer
// side only.
func (rb *RingBuffer) Write(samples []float32) {
	count := uint32(len(samples))
	if count == 0 {
		return
	}
	if count > rb.size-1 {
		// Larger than the whole buffer: only the newest samples survive.
		samples = samples[count-(rb.size-1):]
		count = rb.size - 1
	}

	w := rb.write.Load()
	for {
		r := rb.read.Load()
		used := (w + rb.size - r) % rb.size
		free := rb.size - used - 1
		if count <= free {
			break
		}
		// Drop the oldest samples by advancing the read cursor. CAS
		// because the consumer advances it too.
		toDrop := count - free
		if rb.read.CompareAndSwap(r, (r+toDrop)%rb.size) {
			break
		}
	}

	for _, s := range samples {
		rb.data[w] = s
		w = (w + 1) % rb.size
	}
	rb.write.Store(w)
}

// Read copies up to len(out) samples into out, zero-filling any
// shortfall so an underrun yields silence rather than stale data.
// Returns the number of samples actually read. Consumer side only.
func (rb *RingBuffer) Read(out []float32) int {
	want := uint32(len(out))
	if want == 0 {
		return 0
	}

	w := rb.write.Load()
	r := rb.read.Load()
	available := (w + rb.size - r) % rb.size

	toRead := want
	if toRead > available {
		toRead = available
	}

	for i := uint32(0); i < toRead; i++ {
		out[i] = rb.data[r]
		r = (r + 1) % rb.size
	}
	for i := toRead; i < want; i++ {
		out[i] = 0
	}

	rb.read.Store(r)
	return int(toRead)
}
