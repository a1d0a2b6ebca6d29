package main

import (
	"fmt"
	"os"
	"sync"
	"syscall"
	"time"

	"golang.org/x/term"
)

// keyboardLayout maps the two QWERTY letter rows onto a chromatic
// scale: 'z' is the base note, 'q' starts an octave above.
var keyboardLayout = map[byte]int{
	'z': 0, 's': 1, 'x': 2, 'd': 3, 'c': 4,
	'v': 5, 'g': 6, 'b': 7, 'h': 8, 'n': 9, 'j': 10, 'm': 11,
	'q': 12, '2': 13, 'w': 14, '3': 15, 'e': 16,
	'r': 17, '5': 18, 't': 19, '6': 20, 'y': 21, '7': 22, 'u': 23,
	'i': 24,
}

const KEYBOARD_BASE_NOTE = 48 // C3

// KeyboardHost reads raw stdin and turns key rows into note events on a
// target operator. Terminals report no key-up, so each press records a
// note-off deadline; the read loop queues expired note-offs itself, so
// the single-producer event queue only ever sees the reader goroutine.
type KeyboardHost struct {
	graph        *AudioGraph
	operatorID   uint32
	octave       int
	gate         time.Duration
	pending      []pendingNoteOff
	stopCh       chan struct{}
	done         chan struct{}
	stopped      sync.Once
	fd           int
	nonblockSet  bool
	oldTermState *term.State
}

// pendingNoteOff is a note waiting for its gate time to elapse. Owned by
// the reader goroutine.
type pendingNoteOff struct {
	freq float32
	at   time.Time
}

// NewKeyboardHost creates a host adapter that plays the given operator.
func NewKeyboardHost(graph *AudioGraph, operatorID uint32) *KeyboardHost {
	return &KeyboardHost{
		graph:      graph,
		operatorID: operatorID,
		gate:       250 * time.Millisecond,
		stopCh:     make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start sets stdin to raw non-blocking mode and begins reading in a
// goroutine. '['/']' shift the octave, space sends all-notes-off, ESC
// stops the reader. Call Stop() to restore stdin.
func (h *KeyboardHost) Start() {
	h.fd = int(os.Stdin.Fd())

	oldState, err := term.MakeRaw(h.fd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "keyboard: failed to set raw mode: %v\n", err)
		close(h.done)
		return
	}
	h.oldTermState = oldState

	if err := syscall.SetNonblock(h.fd, true); err != nil {
		fmt.Fprintf(os.Stderr, "keyboard: failed to set nonblocking stdin: %v\n", err)
		_ = term.Restore(h.fd, h.oldTermState)
		h.oldTermState = nil
		close(h.done)
		return
	}
	h.nonblockSet = true

	go func() {
		defer close(h.done)
		defer h.releaseHeldNotes()
		buf := make([]byte, 1)

		for {
			select {
			case <-h.stopCh:
				return
			default:
			}

			n, err := syscall.Read(h.fd, buf)
			if n > 0 {
				if !h.handleKey(buf[0]) {
					return
				}
			}
			h.flushNoteOffs(time.Now())
			if err == syscall.EAGAIN || err == syscall.EWOULDBLOCK {
				time.Sleep(5 * time.Millisecond)
				continue
			}
			if err != nil {
				return
			}
			if n == 0 {
				time.Sleep(5 * time.Millisecond)
			}
		}
	}()
}

// handleKey processes one key press; returns false on ESC or Ctrl-C.
func (h *KeyboardHost) handleKey(b byte) bool {
	switch b {
	case 0x1B, 0x03: // ESC, Ctrl-C
		return false
	case '[':
		if h.octave > -3 {
			h.octave--
		}
		return true
	case ']':
		if h.octave < 4 {
			h.octave++
		}
		return true
	case ' ':
		h.graph.QueueReset(h.operatorID)
		return true
	}

	offset, ok := keyboardLayout[b]
	if !ok {
		return true
	}
	note := KEYBOARD_BASE_NOTE + h.octave*12 + offset
	if note < 0 || note > 127 {
		return true
	}
	freq := MidiToFreq(note)
	h.graph.QueueNoteOn(h.operatorID, freq, 1.0)
	h.pending = append(h.pending, pendingNoteOff{freq: freq, at: time.Now().Add(h.gate)})
	return true
}

// flushNoteOffs queues note-offs whose gate time has elapsed.
func (h *KeyboardHost) flushNoteOffs(now time.Time) {
	kept := h.pending[:0]
	for _, p := range h.pending {
		if now.Before(p.at) {
			kept = append(kept, p)
			continue
		}
		h.graph.QueueNoteOff(h.operatorID, p.freq)
	}
	h.pending = kept
}

// releaseHeldNotes queues note-offs for everything still gated, so no
// note is left stuck when the reader exits.
func (h *KeyboardHost) releaseHeldNotes() {
	for _, p := range h.pending {
		h.graph.QueueNoteOff(h.operatorID, p.freq)
	}
	h.pending = h.pending[:0]
}

// Stop terminates the reading goroutine and restores stdin.
func (h *KeyboardHost) Stop() {
	h.stopped.Do(func() {
		close(h.stopCh)
	})
	<-h.done
	if h.nonblockSet {
		_ = syscall.SetNonblock(h.fd, false)
		h.nonblockSet = false
	}
	if h.oldTermState != nil {
		_ = term.Restore(h.fd, h.oldTermState)
		h.oldTermState = nil
	}
}

// Wait blocks until the reader goroutine exits (ESC pressed or Stop).
func (h *KeyboardHost) Wait() {
	<-h.done
}
