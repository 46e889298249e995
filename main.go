// Package main provides the entry point for the Invoice Annotator application.
package main

import (
	"errors"
	"fmt"
	"log"

	fyneapp "fyne.io/fyne/v2/app"
	"github.com/spf13/pflag"

	"invoice-annotator/internal/app"
	"invoice-annotator/internal/config"
	"invoice-annotator/internal/logging"
	"invoice-annotator/internal/version"
	"invoice-annotator/ui/mainwindow"
	"invoice-annotator/ui/prefs"
)

const (
	appID    = "io.invoice-annotator.desktop"
	appTitle = "Invoice Annotator"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg, err := config.LoadFromFlags()
	switch {
	case errors.Is(err, config.ErrVersionRequested):
		fmt.Println(version.Info(appTitle))
		return
	case errors.Is(err, pflag.ErrHelp):
		return
	case err != nil:
		log.Fatalf("configuration: %v", err)
	}

	logger := logging.NewLogger("annotator")
	logger.SetLevel(cfg.Level())
	logger.Info("starting", "version", version.Version, "config", cfg)

	appPrefs, err := prefs.LoadFrom(prefs.DefaultPath())
	if err != nil {
		logger.Warn("preferences ignored", "err", err)
	}

	fyneApp := fyneapp.NewWithID(appID)
	fyneApp.Settings().SetTheme(&app.AnnotatorTheme{})

	state := app.NewState(logger)
	win := mainwindow.New(fyneApp, state, appPrefs, cfg, logger.With("ui"))

	zoom := cfg.Zoom
	if !cfg.ZoomExplicit {
		zoom = appPrefs.Zoom(cfg.Zoom)
	}
	win.SetZoom(zoom)

	path := cfg.ExtractionPath
	if path == "" {
		path = appPrefs.LastExtraction()
	}
	if path != "" {
		win.Open(path)
	}

	win.ShowAndRun()
	logger.Info("exiting", "session", state.SessionID)
}
