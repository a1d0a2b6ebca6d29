// audio_graph.go - Pull-based audio graph and block scheduler

/*
(c) 2025 - 2026 Quartz Audio
https://github.com/quartzaudio/QuartzEngine
License: GPLv3 or later
*/

package main

import (
	"fmt"
	"math"
	"sync/atomic"
	"time"
)

// AudioGraph owns a set of named operators, a precomputed execution
// order and the event queue that bridges the control thread to the
// audio thread.
//
// Thread model:
//   - Control thread: AddOperator, SetOutput, BuildExecutionOrder,
//     Clear, Queue* event submission.
//   - Audio thread: ProcessBlock, called once per hardware period.
//
// Topology changes must finish before the first ProcessBlock call and
// must never run concurrently with it. The two threads meet only at the
// lock-free event queue and at atomic monitoring counters.
type AudioGraph struct {
	sampleRate uint32

	operators []operatorEntry
	nameToID  map[string]uint32
	execOrder []AudioOperator
	output    AudioOperator
	built     bool

	events *EventQueue

	dspLoad       atomic.Uint32 // float32 bits, EMA of block load
	peakLoad      atomic.Uint32 // float32 bits, running peak
	unbuiltBlocks atomic.Uint64 // blocks rendered without a current execution order
}

type operatorEntry struct {
	name string
	op   AudioOperator
}

// NewAudioGraph creates an empty graph for the given sample rate.
func NewAudioGraph(sampleRate uint32) *AudioGraph {
	if sampleRate == 0 {
		sampleRate = SAMPLE_RATE
	}
	return &AudioGraph{
		sampleRate: sampleRate,
		nameToID:   make(map[string]uint32),
		events:     NewEventQueue(EVENT_QUEUE_CAPACITY),
	}
}

func (g *AudioGraph) SampleRate() uint32 { return g.sampleRate }

// AddOperator registers op under name and returns its id. Registering a
// duplicate name returns the existing id and an error. Control thread,
// audio stopped.
func (g *AudioGraph) AddOperator(name string, op AudioOperator) (uint32, error) {
	if id, ok := g.nameToID[name]; ok {
		return id, fmt.Errorf("operator %q already registered", name)
	}
	id := uint32(len(g.operators))
	g.operators = append(g.operators, operatorEntry{name: name, op: op})
	g.nameToID[name] = id
	g.built = false
	return id, nil
}

// Operator returns the operator registered under name, or nil.
func (g *AudioGraph) Operator(name string) AudioOperator {
	if id, ok := g.nameToID[name]; ok {
		return g.operators[id].op
	}
	return nil
}

// OperatorID returns the id for name. ok is false when unknown.
func (g *AudioGraph) OperatorID(name string) (uint32, bool) {
	id, ok := g.nameToID[name]
	return id, ok
}

func (g *AudioGraph) OperatorCount() int { return len(g.operators) }

// Output returns the designated output operator, or nil.
func (g *AudioGraph) Output() AudioOperator { return g.output }

// SetOutput marks the operator whose generated block becomes the graph
// output. It must already be registered.
func (g *AudioGraph) SetOutput(op AudioOperator) error {
	for i := range g.operators {
		if g.operators[i].op == op {
			g.output = op
			return nil
		}
	}
	return fmt.Errorf("output operator %q is not registered", op.Name())
}

// BuildExecutionOrder computes a dependency-respecting order over the
// registered operators (an operator runs after all of its Inputs).
// Ties between independent operators break by registration order.
// Must be called after the topology is final and before the first
// ProcessBlock; returns an error on a dependency cycle or on an input
// that was never registered.
func (g *AudioGraph) BuildExecutionOrder() error {
	g.execOrder = g.execOrder[:0]
	g.built = false

	emitted := make(map[AudioOperator]bool, len(g.operators))
	registered := make(map[AudioOperator]bool, len(g.operators))
	for i := range g.operators {
		registered[g.operators[i].op] = true
	}

	for i := range g.operators {
		for _, in := range g.operators[i].op.Inputs() {
			if in != nil && !registered[in] {
				return fmt.Errorf("operator %q depends on unregistered operator %q",
					g.operators[i].name, in.Name())
			}
		}
	}

	for len(g.execOrder) < len(g.operators) {
		progressed := false
		for i := range g.operators {
			op := g.operators[i].op
			if emitted[op] {
				continue
			}
			ready := true
			for _, in := range op.Inputs() {
				if in != nil && !emitted[in] {
					ready = false
					break
				}
			}
			if ready {
				g.execOrder = append(g.execOrder, op)
				emitted[op] = true
				progressed = true
			}
		}
		if !progressed {
			return fmt.Errorf("dependency cycle among operators")
		}
	}

	g.built = true
	return nil
}

// Clear removes every operator. Control thread, audio stopped.
func (g *AudioGraph) Clear() {
	g.operators = g.operators[:0]
	g.execOrder = g.execOrder[:0]
	g.nameToID = make(map[string]uint32)
	g.output = nil
	g.built = false
}

// ProcessBlock generates frameCount frames of interleaved stereo into
// out. Audio thread entry point: drains the event queue so every
// control change lands at the block boundary, runs the operators in
// execution order, copies the output operator's block (silence when no
// output is configured or the order was never built), then updates the
// DSP load estimate. Never allocates, locks or blocks.
func (g *AudioGraph) ProcessBlock(out []float32, frameCount uint32) {
	if frameCount == 0 {
		return
	}
	if frameCount > MAX_BLOCK_FRAMES {
		frameCount = MAX_BLOCK_FRAMES
	}
	start := time.Now()

	g.processEvents()

	want := int(frameCount) * AUDIO_CHANNELS
	if want > len(out) {
		want = len(out)
	}

	if !g.built || g.output == nil {
		if !g.built {
			// Stale or missing execution order: render silence but make
			// the setup error visible to the control thread.
			g.unbuiltBlocks.Add(1)
		}
		for i := range out {
			out[i] = 0
		}
		g.updateLoad(start, frameCount)
		return
	}

	for _, op := range g.execOrder {
		op.GenerateBlock(frameCount)
	}

	src := g.output.OutputBuffer()
	n := copy(out[:want], src)
	for i := n; i < len(out); i++ {
		out[i] = 0
	}

	g.updateLoad(start, frameCount)
}

// processEvents drains the queue completely - bounded by queue capacity
// - and routes each event to its target operator.
func (g *AudioGraph) processEvents() {
	var ev AudioEvent
	for g.events.Pop(&ev) {
		if int(ev.OperatorID) < len(g.operators) {
			if op := g.operators[ev.OperatorID].op; op != nil {
				op.HandleEvent(ev)
			}
		}
	}
}

func (g *AudioGraph) updateLoad(start time.Time, frameCount uint32) {
	elapsed := time.Since(start).Seconds()
	budget := float64(frameCount) / float64(g.sampleRate)
	load := float32(elapsed / budget)

	current := math.Float32frombits(g.dspLoad.Load())
	smoothed := current*DSP_LOAD_SMOOTHING + load*DSP_LOAD_CURRENT
	g.dspLoad.Store(math.Float32bits(smoothed))

	if load > math.Float32frombits(g.peakLoad.Load()) {
		g.peakLoad.Store(math.Float32bits(load))
	}
}

// ----------------------------------------------------------------------------
// Event submission (control thread, non-blocking)

// QueueNoteOn schedules a note-on for the operator. Queue-full drops are
// counted, never blocked on.
func (g *AudioGraph) QueueNoteOn(operatorID uint32, freq, velocity float32) {
	g.events.Push(AudioEvent{Kind: EVENT_NOTE_ON, OperatorID: operatorID, Value1: freq, Value2: velocity})
}

// QueueNoteOff schedules a note-off matching freq.
func (g *AudioGraph) QueueNoteOff(operatorID uint32, freq float32) {
	g.events.Push(AudioEvent{Kind: EVENT_NOTE_OFF, OperatorID: operatorID, Value1: freq})
}

// QueueTrigger schedules a one-shot trigger (drum hits, grain spawns).
func (g *AudioGraph) QueueTrigger(operatorID uint32) {
	g.events.Push(AudioEvent{Kind: EVENT_TRIGGER, OperatorID: operatorID})
}

// QueueParamChange schedules a parameter update.
func (g *AudioGraph) QueueParamChange(operatorID uint32, paramID uint32, value float32) {
	g.events.Push(AudioEvent{Kind: EVENT_PARAM_CHANGE, OperatorID: operatorID, ParamID: paramID, Value1: value})
}

// QueueReset schedules a state reset for the operator.
func (g *AudioGraph) QueueReset(operatorID uint32) {
	g.events.Push(AudioEvent{Kind: EVENT_RESET, OperatorID: operatorID})
}

// ----------------------------------------------------------------------------
// Monitoring (either thread, lock-free)

func (g *AudioGraph) DroppedEventCount() uint64    { return g.events.DroppedCount() }
func (g *AudioGraph) ResetDroppedEventCount()      { g.events.ResetDroppedCount() }
func (g *AudioGraph) EventQueueFillLevel() float32 { return g.events.FillLevel() }

// UnbuiltBlockCount reports how many blocks were rendered while the
// execution order was stale or never built. Nonzero means ProcessBlock
// ran before BuildExecutionOrder caught up with a topology change.
func (g *AudioGraph) UnbuiltBlockCount() uint64 { return g.unbuiltBlocks.Load() }

func (g *AudioGraph) ResetUnbuiltBlockCount() { g.unbuiltBlocks.Store(0) }

// DSPLoad reports the smoothed ratio of processing time to the block's
// real-time budget. Values above 1.0 mean the graph cannot keep up.
func (g *AudioGraph) DSPLoad() float32 {
	return math.Float32frombits(g.dspLoad.Load())
}

// PeakDSPLoad reports the highest single-block load since the last reset.
func (g *AudioGraph) PeakDSPLoad() float32 {
	return math.Float32frombits(g.peakLoad.Load())
}

func (g *AudioGraph) ResetPeakDSPLoad() { g.peakLoad.Store(0) }
