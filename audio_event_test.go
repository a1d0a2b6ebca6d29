// audio_event_test.go - Lock-free event queue tests

/*
(c) 2025 - 2026 Quartz Audio
https://github.com/quartzaudio/QuartzEngine
License: GPLv3 or later
*/

package main

import (
	"sync"
	"testing"
)

func TestEventQueue_FIFO(t *testing.T) {
	q := NewEventQueue(16)

	for i := 0; i < 10; i++ {
		if !q.Push(AudioEvent{Kind: EVENT_NOTE_ON, OperatorID: uint32(i)}) {
			t.Fatalf("push %d failed on a non-full queue", i)
		}
	}
	if q.Size() != 10 {
		t.Fatalf("size = %d, want 10", q.Size())
	}

	var ev AudioEvent
	for i := 0; i < 10; i++ {
		if !q.Pop(&ev) {
			t.Fatalf("pop %d failed with events queued", i)
		}
		if ev.OperatorID != uint32(i) {
			t.Errorf("pop %d: operator id %d, want %d (FIFO order)", i, ev.OperatorID, i)
		}
	}
	if q.Pop(&ev) {
		t.Error("pop succeeded on an empty queue")
	}
}

func TestEventQueue_CapacityRounding(t *testing.T) {
	cases := []struct {
		requested int
		want      int
	}{
		{1, 1},
		{2, 2},
		{3, 4},
		{1000, 1024},
		{EVENT_QUEUE_CAPACITY, 1024},
	}
	for _, c := range cases {
		q := NewEventQueue(c.requested)
		if q.Capacity() != c.want {
			t.Errorf("NewEventQueue(%d).Capacity() = %d, want %d", c.requested, q.Capacity(), c.want)
		}
	}
}

func TestEventQueue_DropOnOverflow(t *testing.T) {
	q := NewEventQueue(8)

	pushed := 0
	for i := 0; i < 20; i++ {
		if q.Push(AudioEvent{OperatorID: uint32(i)}) {
			pushed++
		}
	}
	if pushed != 8 {
		t.Errorf("accepted %d events, want 8", pushed)
	}
	if q.DroppedCount() != 12 {
		t.Errorf("dropped = %d, want 12", q.DroppedCount())
	}

	// Every attempt is accounted for: dequeued + dropped == attempts.
	var ev AudioEvent
	popped := 0
	for q.Pop(&ev) {
		popped++
	}
	if popped+int(q.DroppedCount()) != 20 {
		t.Errorf("popped %d + dropped %d != 20 attempts", popped, q.DroppedCount())
	}

	q.ResetDroppedCount()
	if q.DroppedCount() != 0 {
		t.Error("dropped counter did not reset")
	}

	// The queue keeps working after an overflow episode.
	if !q.Push(AudioEvent{OperatorID: 99}) {
		t.Error("push failed after drain")
	}
	if !q.Pop(&ev) || ev.OperatorID != 99 {
		t.Errorf("post-overflow pop = %+v, want operator 99", ev)
	}
}

func TestEventQueue_FillLevel(t *testing.T) {
	q := NewEventQueue(8)
	if q.FillLevel() != 0 {
		t.Errorf("empty fill level = %f, want 0", q.FillLevel())
	}
	for i := 0; i < 4; i++ {
		q.Push(AudioEvent{})
	}
	if q.FillLevel() != 0.5 {
		t.Errorf("half-full fill level = %f, want 0.5", q.FillLevel())
	}
}

// One producer, one consumer, no locks: every pushed event arrives
// exactly once and in order.
func TestEventQueue_SPSCStress(t *testing.T) {
	const total = 200000
	q := NewEventQueue(EVENT_QUEUE_CAPACITY)

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := uint32(0); i < total; i++ {
			for !q.Push(AudioEvent{OperatorID: i}) {
			}
		}
	}()

	var bad int
	go func() {
		defer wg.Done()
		var ev AudioEvent
		next := uint32(0)
		for next < total {
			if q.Pop(&ev) {
				if ev.OperatorID != next {
					bad++
				}
				next++
			}
		}
	}()

	wg.Wait()
	if bad != 0 {
		t.Errorf("%d events arrived out of order or corrupted", bad)
	}
}
