// audio_backend.go - Audio output backend selection

/*
(c) 2025 - 2026 Quartz Audio
https://github.com/quartzaudio/QuartzEngine
License: GPLv3 or later
*/

package main

const (
	AUDIO_BACKEND_AUTO = "auto"
	AUDIO_BACKEND_OTO  = "oto"
	AUDIO_BACKEND_ALSA = "alsa"
)

// AudioOutput is the common surface of the playback backends. The
// backend pulls (oto) or pushes (ALSA) blocks out of the graph once
// Start is called.
type AudioOutput interface {
	SetupPlayer(graph *AudioGraph)
	Start()
	Stop()
	Close()
	IsStarted() bool
}
