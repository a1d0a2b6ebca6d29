// audio_event.go - Control events and the lock-free SPSC event queue

/*
(c) 2025 - 2026 Quartz Audio
https://github.com/quartzaudio/QuartzEngine
License: GPLv3 or later
*/

package main

import "sync/atomic"

// Event kinds delivered from the control thread to the audio thread.
const (
	EVENT_NOTE_ON = iota
	EVENT_NOTE_OFF
	EVENT_TRIGGER
	EVENT_PARAM_CHANGE
	EVENT_RESET
)

// Parameter indices shared by every instrument. Instrument-specific
// parameters start at PARAM_INSTRUMENT_BASE.
const (
	PARAM_VOLUME = iota
	PARAM_ATTACK
	PARAM_DECAY
	PARAM_SUSTAIN
	PARAM_RELEASE
	PARAM_INSTRUMENT_BASE
)

// AudioEvent is a small fixed-size command record. Value1/Value2 carry
// frequency+velocity for notes, or the new value for parameter changes.
type AudioEvent struct {
	Kind       int
	OperatorID uint32
	ParamID    uint32
	Value1     float32
	Value2     float32
}

// EventQueue is a single-producer/single-consumer ring of AudioEvent
// records. The control thread pushes, the audio thread pops at block
// boundaries. Cursors are monotonically increasing; the record is
// published before the write cursor advances, so the consumer never
// observes a partially written event. When full, events are dropped and
// counted rather than blocked on.
type EventQueue struct {
	buf     []AudioEvent
	mask    uint64
	head    atomic.Uint64 // next write, producer-owned
	tail    atomic.Uint64 // next read, consumer-owned
	dropped atomic.Uint64
}

// NewEventQueue creates a queue holding up to capacity events. Capacity
// is rounded up to a power of two so cursor wrapping is a mask.
func NewEventQueue(capacity int) *EventQueue {
	if capacity < 1 {
		capacity = 1
	}
	size := 1
	for size < capacity {
		size <<= 1
	}
	return &EventQueue{
		buf:  make([]AudioEvent, size),
		mask: uint64(size - 1),
	}
}

// Push enqueues ev from the control thread. Returns false and increments
// the dropped counter when the queue is full.
func (q *EventQueue) Push(ev AudioEvent) bool {
	head := q.head.Load()
	tail := q.tail.Load()
	if head-tail == uint64(len(q.buf)) {
		q.dropped.Add(1)
		return false
	}
	q.buf[head&q.mask] = ev
	q.head.Store(head + 1)
	return true
}

// Pop dequeues the next event on the audio thread. Returns false when
// the queue is empty.
func (q *EventQueue) Pop(ev *AudioEvent) bool {
	tail := q.tail.Load()
	if tail == q.head.Load() {
		return false
	}
	*ev = q.buf[tail&q.mask]
	q.tail.Store(tail + 1)
	return true
}

// Size reports the number of queued events. Approximate when read
// concurrently with Push/Pop; intended for monitoring.
func (q *EventQueue) Size() int {
	head := q.head.Load()
	tail := q.tail.Load()
	if head < tail {
		return 0
	}
	return int(head - tail)
}

func (q *EventQueue) Capacity() int { return len(q.buf) }

// FillLevel reports queue pressure as 0..1.
func (q *EventQueue) FillLevel() float32 {
	return float32(q.Size()) / float32(len(q.buf))
}

func (q *EventQueue) DroppedCount() uint64 { return q.dropped.Load() }

func (q *EventQueue) ResetDroppedCount() { q.dropped.Store(0) }
