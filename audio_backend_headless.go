//go:build headless

package main

type GraphPlayer struct {
	started bool
	graph   *AudioGraph
}

func NewGraphPlayer(sampleRate int) (*GraphPlayer, error) {
	return &GraphPlayer{}, nil
}

func (gp *GraphPlayer) SetupPlayer(graph *AudioGraph) {
	gp.graph = graph
}

func (gp *GraphPlayer) Read(p []byte) (n int, err error) {
	return len(p), nil
}

func (gp *GraphPlayer) Start() {
	gp.started = true
}

func (gp *GraphPlayer) Stop() {
	gp.started = false
}

func (gp *GraphPlayer) Close() {
	gp.started = false
}

func (gp *GraphPlayer) IsStarted() bool {
	return gp.started
}

// NewAudioOutput returns the silent stub player in headless builds.
func NewAudioOutput(backend string, sampleRate int) (AudioOutput, error) {
	return NewGraphPlayer(sampleRate)
}
