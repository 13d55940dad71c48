// Package main provides the entry point for the Defect Synth editor.
package main

import (
	"flag"
	"log"

	fyneapp "fyne.io/fyne/v2/app"

	"defect-synth/internal/app"
	"defect-synth/internal/config"
	"defect-synth/internal/cvbridge"
	"defect-synth/internal/version"
	"defect-synth/ui/mainwindow"
	"defect-synth/ui/prefs"
)

const appID = "io.github.defectsynth"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	configPath := flag.String("config", config.DefaultPath(), "Path to config.toml")
	source := flag.String("source", "", "NG image to open")
	target := flag.String("target", "", "OK image to open")
	flag.Parse()

	log.Printf("Starting %s", version.String())

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Printf("Config %s: %v (using defaults)", *configPath, err)
	}

	opts := []app.Option{app.WithConfig(cfg)}
	if cfg.Engine == config.EngineOpenCV {
		log.Printf("Using OpenCV engine")
		opts = append(opts, cvbridge.StateOptions()...)
	}
	appState := app.NewState(opts...)

	fyneApp := fyneapp.NewWithID(appID)
	fyneApp.Settings().SetTheme(mainwindow.NewTheme())

	win := mainwindow.New(fyneApp, appState, prefs.Load())

	if *source != "" {
		if err := appState.LoadSourceFile(*source); err != nil {
			log.Printf("Failed to load %s: %v", *source, err)
		}
	}
	if *target != "" {
		if err := appState.LoadTargetFile(*target); err != nil {
			log.Printf("Failed to load %s: %v", *target, err)
		}
	}

	win.ShowAndRun()
}
