// main.go - Main entry point for the QuartzEngine synthesizer

/*
(c) 2025 - 2026 Quartz Audio
https://github.com/quartzaudio/QuartzEngine
License: GPLv3 or later
*/

package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

func boilerPlate() {
	fmt.Println("\nQuartzEngine - a real-time polyphonic synthesis core.")
	fmt.Println("(c) 2025 - 2026 Quartz Audio")
	fmt.Println("https://github.com/quartzaudio/QuartzEngine")
	fmt.Println("License: GPLv3 or later")
}

// envSampleRate reads QUARTZ_SAMPLE_RATE, falling back to the default.
func envSampleRate() uint32 {
	if v := os.Getenv("QUARTZ_SAMPLE_RATE"); v != "" {
		if rate, err := strconv.Atoi(v); err == nil && rate > 0 {
			return uint32(rate)
		}
	}
	return SAMPLE_RATE
}

func envBackend(fallback string) string {
	if v := os.Getenv("QUARTZ_BACKEND"); v != "" {
		return v
	}
	return fallback
}

func main() {
	boilerPlate()

	// .env is optional; environment beats defaults, flags beat both.
	_ = godotenv.Load()

	var (
		scriptPath string
		evalSrc    string
		renderPath string
		seconds    float64
		live       bool
		backend    string
		preset     int
	)

	flagSet := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.StringVar(&scriptPath, "script", "", "Lua patch script to run")
	flagSet.StringVar(&evalSrc, "eval", "", "Inline Lua patch source")
	flagSet.StringVar(&renderPath, "render", "", "Render offline to a WAV file instead of playing")
	flagSet.Float64Var(&seconds, "seconds", 5, "Duration for offline rendering")
	flagSet.BoolVar(&live, "live", false, "Play the patch from the computer keyboard")
	flagSet.StringVar(&backend, "backend", AUDIO_BACKEND_AUTO, "Audio backend: auto, oto or alsa")
	flagSet.IntVar(&preset, "preset", FM_PRESET_EPIANO, "FM preset for the default patch")

	flagSet.Usage = func() {
		flagSet.SetOutput(os.Stdout)
		fmt.Println("Usage: ./quartz_engine [-script patch.lua] [-render out.wav -seconds 5] [-live] [-backend oto|alsa]")
		flagSet.PrintDefaults()
	}

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	backend = envBackend(backend)
	sampleRate := envSampleRate()

	graph := NewAudioGraph(sampleRate)
	host := NewScriptHost(graph)
	defer host.Close()

	switch {
	case scriptPath != "":
		if err := host.RunFile(scriptPath); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	case evalSrc != "":
		if err := host.RunString(evalSrc); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	default:
		if err := buildDefaultPatch(graph, sampleRate, preset); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	}

	if graph.Output() == nil {
		fmt.Println("Error: patch script never called setOutput")
		os.Exit(1)
	}

	if renderPath != "" {
		if err := RenderToWAV(graph, renderPath, float32(seconds), BLOCK_SIZE); err != nil {
			fmt.Printf("Error rendering: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Rendered %.2fs to %s\n", seconds, renderPath)
		return
	}

	output, err := NewAudioOutput(backend, int(sampleRate))
	if err != nil {
		fmt.Printf("Failed to initialize audio: %v\n", err)
		os.Exit(1)
	}
	defer output.Close()

	output.SetupPlayer(graph)
	output.Start()

	if live {
		target := graph.Output()
		id, _ := graph.OperatorID(target.Name())
		// Point the keyboard at the first instrument when the output is
		// a mixer.
		if m, ok := target.(*Mixer); ok && len(m.Inputs()) > 0 {
			id, _ = graph.OperatorID(m.Inputs()[0].Name())
		}
		kb := NewKeyboardHost(graph, id)
		fmt.Println("\nKeys z-m and q-i play notes, [ ] shift octave, space kills notes, ESC quits.")
		kb.Start()
		kb.Wait()
		kb.Stop()
		return
	}

	fmt.Println("\nPlaying. Press Enter to quit.")
	fmt.Scanln()
}

// buildDefaultPatch wires an FM synth straight to the output so the
// engine makes sound with no script at all.
func buildDefaultPatch(graph *AudioGraph, sampleRate uint32, preset int) error {
	fm := NewFMSynth("fm", sampleRate)
	fm.LoadPreset(preset)
	if _, err := graph.AddOperator(fm.Name(), fm); err != nil {
		return err
	}
	if err := graph.SetOutput(fm); err != nil {
		return err
	}
	return graph.BuildExecutionOrder()
}
