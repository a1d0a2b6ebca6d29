// chain_script.go - Lua patch scripting for graph construction

/*
(c) 2025 - 2026 Quartz Audio
https://github.com/quartzaudio/QuartzEngine
License: GPLv3 or later
*/

package main

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// paramResolver lets an operator translate parameter names into event
// indices for scripted setParam calls.
type paramResolver interface {
	ParamIndex(name string) (uint32, bool)
}

// ScriptHost runs Lua patch scripts against an AudioGraph. Scripts
// build the graph with polysynth/fmsynth/sampler/granular/mixer calls,
// wire it with setOutput, and drive it with noteOn/noteOff/setParam.
// Script execution happens on the control thread; the exposed note and
// param functions go through the graph's event queue.
type ScriptHost struct {
	graph      *AudioGraph
	state      *lua.LState
	sampleRate uint32
}

func NewScriptHost(graph *AudioGraph) *ScriptHost {
	h := &ScriptHost{
		graph:      graph,
		state:      lua.NewState(),
		sampleRate: graph.SampleRate(),
	}
	h.register()
	return h
}

// Close releases the Lua state.
func (h *ScriptHost) Close() {
	h.state.Close()
}

// RunFile executes a patch script from disk.
func (h *ScriptHost) RunFile(path string) error {
	if err := h.state.DoFile(path); err != nil {
		return fmt.Errorf("script %s: %w", path, err)
	}
	return nil
}

// RunString executes patch script source directly. Used by tests and
// the inline -eval flag.
func (h *ScriptHost) RunString(src string) error {
	return h.state.DoString(src)
}

func (h *ScriptHost) register() {
	L := h.state

	L.SetGlobal("polysynth", L.NewFunction(h.luaPolySynth))
	L.SetGlobal("fmsynth", L.NewFunction(h.luaFMSynth))
	L.SetGlobal("sampler", L.NewFunction(h.luaSampler))
	L.SetGlobal("granular", L.NewFunction(h.luaGranular))
	L.SetGlobal("mixer", L.NewFunction(h.luaMixer))
	L.SetGlobal("setOutput", L.NewFunction(h.luaSetOutput))
	L.SetGlobal("setParam", L.NewFunction(h.luaSetParam))
	L.SetGlobal("loadSample", L.NewFunction(h.luaLoadSample))
	L.SetGlobal("loadPreset", L.NewFunction(h.luaLoadPreset))
	L.SetGlobal("noteOn", L.NewFunction(h.luaNoteOn))
	L.SetGlobal("noteOff", L.NewFunction(h.luaNoteOff))
	L.SetGlobal("midiOn", L.NewFunction(h.luaMidiOn))
	L.SetGlobal("midiOff", L.NewFunction(h.luaMidiOff))
	L.SetGlobal("freq", L.NewFunction(h.luaFreq))
	L.SetGlobal("note", L.NewFunction(h.luaNote))
	L.SetGlobal("sampleRate", L.NewFunction(h.luaSampleRate))
}

func (h *ScriptHost) addOperator(L *lua.LState, op AudioOperator) int {
	if _, err := h.graph.AddOperator(op.Name(), op); err != nil {
		L.RaiseError("%s", err.Error())
		return 0
	}
	L.Push(lua.LString(op.Name()))
	return 1
}

// polysynth(name [, voices]) -> name
func (h *ScriptHost) luaPolySynth(L *lua.LState) int {
	name := L.CheckString(1)
	voices := POLY_DEFAULT_VOICES
	if L.GetTop() >= 2 {
		voices = int(L.CheckNumber(2))
	}
	return h.addOperator(L, NewPolySynthVoices(name, h.sampleRate, voices))
}

// fmsynth(name [, preset]) -> name
func (h *ScriptHost) luaFMSynth(L *lua.LState) int {
	name := L.CheckString(1)
	fm := NewFMSynth(name, h.sampleRate)
	if L.GetTop() >= 2 {
		fm.LoadPreset(int(L.CheckNumber(2)))
	}
	return h.addOperator(L, fm)
}

// sampler(name [, wavPath]) -> name
func (h *ScriptHost) luaSampler(L *lua.LState) int {
	name := L.CheckString(1)
	s := NewSampler(name, h.sampleRate)
	if L.GetTop() >= 2 {
		if err := s.LoadSample(L.CheckString(2)); err != nil {
			L.RaiseError("%s", err.Error())
			return 0
		}
	}
	return h.addOperator(L, s)
}

// granular(name [, wavPath]) -> name
func (h *ScriptHost) luaGranular(L *lua.LState) int {
	name := L.CheckString(1)
	g := NewGranular(name, h.sampleRate)
	if L.GetTop() >= 2 {
		if err := g.LoadSample(L.CheckString(2)); err != nil {
			L.RaiseError("%s", err.Error())
			return 0
		}
	}
	return h.addOperator(L, g)
}

// mixer(name, source1 [, gain1, source2, gain2, ...]) -> name
func (h *ScriptHost) luaMixer(L *lua.LState) int {
	name := L.CheckString(1)
	m := NewMixer(name)
	arg := 2
	for arg <= L.GetTop() {
		srcName := L.CheckString(arg)
		src := h.graph.Operator(srcName)
		if src == nil {
			L.RaiseError("mixer input %q not found", srcName)
			return 0
		}
		gain := float32(1.0)
		if arg+1 <= L.GetTop() {
			gain = float32(L.CheckNumber(arg + 1))
		}
		m.AddInput(src, gain)
		arg += 2
	}
	return h.addOperator(L, m)
}

// setOutput(name) finalises the graph.
func (h *ScriptHost) luaSetOutput(L *lua.LState) int {
	name := L.CheckString(1)
	op := h.graph.Operator(name)
	if op == nil {
		L.RaiseError("operator %q not found", name)
		return 0
	}
	if err := h.graph.SetOutput(op); err != nil {
		L.RaiseError("%s", err.Error())
		return 0
	}
	if err := h.graph.BuildExecutionOrder(); err != nil {
		L.RaiseError("%s", err.Error())
		return 0
	}
	return 0
}

// setParam(opName, paramName, value)
func (h *ScriptHost) luaSetParam(L *lua.LState) int {
	name := L.CheckString(1)
	param := L.CheckString(2)
	value := float32(L.CheckNumber(3))

	op := h.graph.Operator(name)
	if op == nil {
		L.RaiseError("operator %q not found", name)
		return 0
	}
	res, ok := op.(paramResolver)
	if !ok {
		L.RaiseError("operator %q has no parameters", name)
		return 0
	}
	id, ok := res.ParamIndex(param)
	if !ok {
		L.RaiseError("operator %q: unknown parameter %q", name, param)
		return 0
	}
	opID, _ := h.graph.OperatorID(name)
	h.graph.QueueParamChange(opID, id, value)
	return 0
}

// loadSample(opName, wavPath) for sampler and granular operators.
func (h *ScriptHost) luaLoadSample(L *lua.LState) int {
	name := L.CheckString(1)
	path := L.CheckString(2)

	op := h.graph.Operator(name)
	if op == nil {
		L.RaiseError("operator %q not found", name)
		return 0
	}
	type sampleLoader interface{ LoadSample(path string) error }
	loader, ok := op.(sampleLoader)
	if !ok {
		L.RaiseError("operator %q cannot load samples", name)
		return 0
	}
	if err := loader.LoadSample(path); err != nil {
		L.RaiseError("%s", err.Error())
	}
	return 0
}

// loadPreset(opName, preset) for FM synths.
func (h *ScriptHost) luaLoadPreset(L *lua.LState) int {
	name := L.CheckString(1)
	preset := int(L.CheckNumber(2))

	op := h.graph.Operator(name)
	if op == nil {
		L.RaiseError("operator %q not found", name)
		return 0
	}
	fm, ok := op.(*FMSynth)
	if !ok {
		L.RaiseError("operator %q is not an FM synth", name)
		return 0
	}
	fm.LoadPreset(preset)
	return 0
}

// noteOn(opName, frequency [, velocity])
func (h *ScriptHost) luaNoteOn(L *lua.LState) int {
	name := L.CheckString(1)
	frequency := float32(L.CheckNumber(2))
	velocity := float32(1.0)
	if L.GetTop() >= 3 {
		velocity = float32(L.CheckNumber(3))
	}
	id, ok := h.graph.OperatorID(name)
	if !ok {
		L.RaiseError("operator %q not found", name)
		return 0
	}
	h.graph.QueueNoteOn(id, frequency, velocity)
	return 0
}

// noteOff(opName, frequency)
func (h *ScriptHost) luaNoteOff(L *lua.LState) int {
	name := L.CheckString(1)
	frequency := float32(L.CheckNumber(2))
	id, ok := h.graph.OperatorID(name)
	if !ok {
		L.RaiseError("operator %q not found", name)
		return 0
	}
	h.graph.QueueNoteOff(id, frequency)
	return 0
}

// midiOn(opName, note [, velocity]) - note number form of noteOn.
func (h *ScriptHost) luaMidiOn(L *lua.LState) int {
	name := L.CheckString(1)
	note := int(L.CheckNumber(2))
	velocity := float32(1.0)
	if L.GetTop() >= 3 {
		velocity = float32(L.CheckNumber(3))
	}
	id, ok := h.graph.OperatorID(name)
	if !ok {
		L.RaiseError("operator %q not found", name)
		return 0
	}
	h.graph.QueueNoteOn(id, MidiToFreq(note), velocity)
	return 0
}

// midiOff(opName, note)
func (h *ScriptHost) luaMidiOff(L *lua.LState) int {
	name := L.CheckString(1)
	note := int(L.CheckNumber(2))
	id, ok := h.graph.OperatorID(name)
	if !ok {
		L.RaiseError("operator %q not found", name)
		return 0
	}
	h.graph.QueueNoteOff(id, MidiToFreq(note))
	return 0
}

// freq(midiNote) -> Hz
func (h *ScriptHost) luaFreq(L *lua.LState) int {
	note := int(L.CheckNumber(1))
	L.Push(lua.LNumber(MidiToFreq(note)))
	return 1
}

// note("C#4") -> Hz
func (h *ScriptHost) luaNote(L *lua.LState) int {
	name := L.CheckString(1)
	f, err := NoteFreq(name)
	if err != nil {
		L.RaiseError("%v", err)
		return 0
	}
	L.Push(lua.LNumber(f))
	return 1
}

// sampleRate() -> Hz
func (h *ScriptHost) luaSampleRate(L *lua.LState) int {
	L.Push(lua.LNumber(h.sampleRate))
	return 1
}
