//go:build !headless

// audio_backend_oto.go - OTO v3 audio output implementation

/*
(c) 2025 - 2026 Quartz Audio
https://github.com/quartzaudio/QuartzEngine
License: GPLv3 or later
*/

package main

import (
	"fmt"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/ebitengine/oto/v3"
)

type GraphPlayer struct {
	ctx      *oto.Context
	player   *oto.Player
	graph    atomic.Pointer[AudioGraph] // Atomic for lock-free Read()
	blockBuf []float32                  // Pre-allocated block buffer
	started  bool
	mutex    sync.Mutex // Only for setup/control operations
}

func NewGraphPlayer(sampleRate int) (*GraphPlayer, error) {
	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: AUDIO_CHANNELS,
		Format:       oto.FormatFloat32LE,
		BufferSize:   0,
	}

	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, err
	}
	<-ready

	return &GraphPlayer{
		ctx:     ctx,
		started: false,
	}, nil
}

func (gp *GraphPlayer) SetupPlayer(graph *AudioGraph) {
	gp.mutex.Lock()
	defer gp.mutex.Unlock()

	gp.graph.Store(graph)
	gp.player = gp.ctx.NewPlayer(gp)
	// Pre-allocate for the largest block the graph will ever produce.
	gp.blockBuf = make([]float32, MAX_BLOCK_FRAMES*AUDIO_CHANNELS)
}

func (gp *GraphPlayer) Read(p []byte) (n int, err error) {
	// Load graph pointer atomically - no lock needed for the hot path
	graph := gp.graph.Load()
	if graph == nil {
		for i := range p {
			p[i] = 0
		}
		return len(p), nil
	}

	numSamples := len(p) / 4

	// Ensure our pre-allocated buffer is large enough
	// This should rarely happen after initial SetupPlayer
	if len(gp.blockBuf) < numSamples {
		gp.blockBuf = make([]float32, numSamples)
	}
	samples := gp.blockBuf[:numSamples]

	remaining := samples
	for len(remaining) > 0 {
		frames := uint32(len(remaining) / AUDIO_CHANNELS)
		if frames > MAX_BLOCK_FRAMES {
			frames = MAX_BLOCK_FRAMES
		}
		if frames == 0 {
			break
		}
		graph.ProcessBlock(remaining[:frames*AUDIO_CHANNELS], frames)
		remaining = remaining[frames*AUDIO_CHANNELS:]
	}

	copy(p, (*[1 << 30]byte)(unsafe.Pointer(&samples[0]))[:len(p)])
	return len(p), nil
}

func (gp *GraphPlayer) Start() {
	gp.mutex.Lock()
	defer gp.mutex.Unlock()

	if !gp.started && gp.player != nil {
		gp.player.Play()
		gp.started = true
	}
}

func (gp *GraphPlayer) Stop() {
	gp.mutex.Lock()
	defer gp.mutex.Unlock()

	if gp.started && gp.player != nil {
		gp.player.Close()
		gp.started = false
	}
}

func (gp *GraphPlayer) Close() {
	gp.Stop()
	gp.mutex.Lock()
	defer gp.mutex.Unlock()

	if gp.player != nil {
		gp.player = nil
	}
}

func (gp *GraphPlayer) IsStarted() bool {
	gp.mutex.Lock()
	defer gp.mutex.Unlock()
	return gp.started
}

// NewAudioOutput opens the requested playback backend. "auto" means oto.
func NewAudioOutput(backend string, sampleRate int) (AudioOutput, error) {
	switch backend {
	case AUDIO_BACKEND_AUTO, AUDIO_BACKEND_OTO, "":
		return NewGraphPlayer(sampleRate)
	case AUDIO_BACKEND_ALSA:
		return NewALSAPlayer(sampleRate)
	default:
		return nil, fmt.Errorf("unknown audio backend %q", backend)
	}
}
