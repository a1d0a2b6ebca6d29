// terminal_keys_test.go - Keyboard host event plumbing tests

/*
(c) 2025 - 2026 Quartz Audio
https://github.com/quartzaudio/QuartzEngine
License: GPLv3 or later
*/

package main

import (
	"testing"
	"time"
)

func newKeyboardFixture(t *testing.T) (*AudioGraph, *stubOperator, *KeyboardHost) {
	t.Helper()
	g := NewAudioGraph(SAMPLE_RATE)
	op := newStubOperator("keys", 0, nil)
	id, err := g.AddOperator("keys", op)
	if err != nil {
		t.Fatal(err)
	}
	if err := g.SetOutput(op); err != nil {
		t.Fatal(err)
	}
	if err := g.BuildExecutionOrder(); err != nil {
		t.Fatal(err)
	}
	return g, op, NewKeyboardHost(g, id)
}

func drainEvents(g *AudioGraph) {
	out := make([]float32, BLOCK_SIZE*AUDIO_CHANNELS)
	g.ProcessBlock(out, BLOCK_SIZE)
}

func TestKeyboard_NoteOffQueuedAfterGate(t *testing.T) {
	g, op, h := newKeyboardFixture(t)

	if !h.handleKey('z') {
		t.Fatal("note key should not stop the reader")
	}
	h.flushNoteOffs(time.Now())
	drainEvents(g)
	if len(op.events) != 1 || op.events[0].Kind != EVENT_NOTE_ON {
		t.Fatalf("before the gate elapsed: events = %v, want one note-on", op.events)
	}

	h.flushNoteOffs(time.Now().Add(h.gate + time.Millisecond))
	drainEvents(g)
	if len(op.events) != 2 || op.events[1].Kind != EVENT_NOTE_OFF {
		t.Fatalf("after the gate elapsed: events = %v, want note-on then note-off", op.events)
	}
	if op.events[0].Value1 != op.events[1].Value1 {
		t.Errorf("note-off frequency %f does not match note-on %f",
			op.events[1].Value1, op.events[0].Value1)
	}
	want := MidiToFreq(KEYBOARD_BASE_NOTE)
	if !approxEq(op.events[0].Value1, want, 0.01) {
		t.Errorf("'z' played %f Hz, want %f", op.events[0].Value1, want)
	}
}

// A burst of key presses and gate expiries is all submitted from the one
// reader goroutine; nothing may be lost or misaccounted on the queue.
func TestKeyboard_BurstLosesNoEvents(t *testing.T) {
	g, op, h := newKeyboardFixture(t)

	for key := range keyboardLayout {
		h.handleKey(key)
	}
	h.flushNoteOffs(time.Now().Add(h.gate + time.Millisecond))
	drainEvents(g)

	want := 2 * len(keyboardLayout)
	if len(op.events) != want {
		t.Fatalf("received %d events, want %d", len(op.events), want)
	}
	if n := g.DroppedEventCount(); n != 0 {
		t.Errorf("dropped counter = %d, want 0", n)
	}

	offs := make(map[float32]int)
	for _, ev := range op.events {
		switch ev.Kind {
		case EVENT_NOTE_ON:
			offs[ev.Value1]++
		case EVENT_NOTE_OFF:
			offs[ev.Value1]--
		default:
			t.Fatalf("unexpected event kind %d", ev.Kind)
		}
	}
	for freq, balance := range offs {
		if balance != 0 {
			t.Errorf("note at %f Hz has unbalanced on/off count %d", freq, balance)
		}
	}
}

func TestKeyboard_ReleaseHeldNotesOnExit(t *testing.T) {
	g, op, h := newKeyboardFixture(t)

	h.handleKey('z')
	h.handleKey('x')
	h.releaseHeldNotes()
	drainEvents(g)

	if len(op.events) != 4 {
		t.Fatalf("received %d events, want 2 note-ons + 2 note-offs", len(op.events))
	}
	for _, ev := range op.events[2:] {
		if ev.Kind != EVENT_NOTE_OFF {
			t.Errorf("event after release has kind %d, want note-off", ev.Kind)
		}
	}
	if len(h.pending) != 0 {
		t.Errorf("%d note-offs still pending after release", len(h.pending))
	}
}

func TestKeyboard_OctaveShift(t *testing.T) {
	g, op, h := newKeyboardFixture(t)

	h.handleKey(']')
	h.handleKey('z')
	h.handleKey('[')
	h.handleKey('[')
	h.handleKey('z')
	drainEvents(g)

	if len(op.events) != 2 {
		t.Fatalf("received %d events, want 2 note-ons", len(op.events))
	}
	up := MidiToFreq(KEYBOARD_BASE_NOTE + 12)
	down := MidiToFreq(KEYBOARD_BASE_NOTE - 12)
	if !approxEq(op.events[0].Value1, up, 0.01) {
		t.Errorf("']' then 'z' played %f Hz, want %f", op.events[0].Value1, up)
	}
	if !approxEq(op.events[1].Value1, down, 0.01) {
		t.Errorf("'[' x2 then 'z' played %f Hz, want %f", op.events[1].Value1, down)
	}
}
