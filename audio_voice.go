// audio_voice.go - Fixed-arena voice pool with allocation and stealing

/*
(c) 2025 - 2026 Quartz Audio
https://github.com/quartzaudio/QuartzEngine
License: GPLv3 or later
*/

package main

import "math"

// Voice stealing policies.
const (
	STEAL_OLDEST   = iota // Reassign the voice with the smallest note-id
	STEAL_QUIETEST        // Reassign the voice with the lowest envelope amplitude
	STEAL_NONE            // Drop new notes when the pool is full
)

// Voice is one slot of polyphony. Voices live in a fixed arena owned by
// their instrument and are never allocated per note; indices into the
// pool identify them. Instruments keep algorithm-specific per-voice
// state (FM operator phases, grain state) in parallel arrays indexed the
// same way.
type Voice struct {
	Frequency float32
	MidiNote  int // -1 when the note was started by raw frequency
	Velocity  float32
	NoteID    uint64 // Monotonic allocation stamp; smallest = oldest

	// Oscillator state used by the simple synths. PhaseL/PhaseR are
	// normalised phase in [0,1); Position is a sample playback cursor.
	PhaseL   float32
	PhaseR   float32
	Position float64

	env envelopeState
}

func (v *Voice) Active() bool      { return v.env.active() }
func (v *Voice) Releasing() bool   { return v.env.releasing() }
func (v *Voice) EnvValue() float32 { return v.env.value }
func (v *Voice) Stage() int        { return v.env.stage }

// VoicePool performs voice allocation, stealing and note matching for a
// polyphonic instrument. All methods run on the audio thread; the pool
// is owned exclusively by its instrument.
type VoicePool struct {
	voices      []Voice
	policy      int
	noteCounter uint64
}

// NewVoicePool creates a pool of size voices using the given stealing
// policy.
func NewVoicePool(size int, policy int) *VoicePool {
	if size < 1 {
		size = 1
	}
	return &VoicePool{
		voices: make([]Voice, size),
		policy: policy,
	}
}

func (p *VoicePool) Size() int            { return len(p.voices) }
func (p *VoicePool) Policy() int          { return p.policy }
func (p *VoicePool) SetPolicy(policy int) { p.policy = policy }

// Voice returns the voice at idx for direct state access during
// generation.
func (p *VoicePool) Voice(idx int) *Voice { return &p.voices[idx] }

// FindFreeVoice returns the index of the first idle voice, or -1.
func (p *VoicePool) FindFreeVoice() int {
	for i := range p.voices {
		if !p.voices[i].Active() {
			return i
		}
	}
	return -1
}

// FindVoiceToSteal picks an active voice to reassign under the pool's
// policy, or -1 when stealing is disabled.
func (p *VoicePool) FindVoiceToSteal() int {
	switch p.policy {
	case STEAL_OLDEST:
		oldest := uint64(math.MaxUint64)
		idx := -1
		for i := range p.voices {
			if p.voices[i].Active() && p.voices[i].NoteID < oldest {
				oldest = p.voices[i].NoteID
				idx = i
			}
		}
		return idx
	case STEAL_QUIETEST:
		quietest := float32(math.MaxFloat32)
		idx := -1
		for i := range p.voices {
			if p.voices[i].Active() && p.voices[i].env.value < quietest {
				quietest = p.voices[i].env.value
				idx = i
			}
		}
		return idx
	default:
		return -1
	}
}

// NoteOn allocates a voice for the note: free voice first, then a stolen
// one. The chosen voice gets a fresh note-id, cleared oscillator state
// and an envelope in Attack. Returns the voice index, or -1 when the
// pool is full and stealing is disabled - a normal outcome the caller
// handles by ignoring the note.
func (p *VoicePool) NoteOn(freq, velocity float32) int {
	return p.noteOn(freq, -1, velocity)
}

// NoteOnMidi is NoteOn with the MIDI note number recorded so note-off
// can match by identity instead of frequency.
func (p *VoicePool) NoteOnMidi(midiNote int, freq, velocity float32) int {
	return p.noteOn(freq, midiNote, velocity)
}

func (p *VoicePool) noteOn(freq float32, midiNote int, velocity float32) int {
	idx := p.FindFreeVoice()
	if idx < 0 {
		idx = p.FindVoiceToSteal()
	}
	if idx < 0 {
		return -1
	}

	p.noteCounter++
	v := &p.voices[idx]
	v.Frequency = freq
	v.MidiNote = midiNote
	v.Velocity = velocity
	v.NoteID = p.noteCounter
	v.PhaseL = 0
	v.PhaseR = 0
	v.Position = 0
	v.env.trigger()
	return idx
}

// NoteOff releases the first active, non-releasing voice whose frequency
// matches within FREQ_TOLERANCE. Returns the released voice index, or -1
// when no voice matched (already released, stolen, or never played) -
// which is a silent no-op, not an error.
func (p *VoicePool) NoteOff(freq float32) int {
	for i := range p.voices {
		v := &p.voices[i]
		if v.Active() && !v.Releasing() && absf(v.Frequency-freq) < FREQ_TOLERANCE {
			v.env.release()
			return i
		}
	}
	return -1
}

// NoteOffMidi releases by MIDI note number. Matching by identity avoids
// the frequency-tolerance ambiguity under dense unison.
func (p *VoicePool) NoteOffMidi(midiNote int) int {
	for i := range p.voices {
		v := &p.voices[i]
		if v.Active() && !v.Releasing() && v.MidiNote == midiNote {
			v.env.release()
			return i
		}
	}
	return -1
}

// AllNotesOff moves every active, non-releasing voice into Release.
func (p *VoicePool) AllNotesOff() {
	for i := range p.voices {
		p.voices[i].env.release()
	}
}

// Panic forces every voice idle with zero amplitude, bypassing the
// release ramp. Clicks by design of an emergency stop.
func (p *VoicePool) Panic() {
	for i := range p.voices {
		p.voices[i].env.kill()
	}
}

// ActiveVoiceCount reports how many voices are sounding or releasing.
func (p *VoicePool) ActiveVoiceCount() int {
	n := 0
	for i := range p.voices {
		if p.voices[i].Active() {
			n++
		}
	}
	return n
}

// MaxEnvelope returns the highest current envelope amplitude across
// active voices; used for metering.
func (p *VoicePool) MaxEnvelope() float32 {
	var max float32
	for i := range p.voices {
		if p.voices[i].Active() && p.voices[i].env.value > max {
			max = p.voices[i].env.value
		}
	}
	return max
}

func absf(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
