package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"presentat/internal/config"
	"presentat/internal/controllers"
	"presentat/internal/eventloop"
	"presentat/internal/logger"
	"presentat/internal/models"
	"presentat/internal/pipeline"
	"presentat/internal/preview"
	"presentat/internal/services"
	"presentat/internal/shutdown"
	"presentat/internal/views"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/dialog"
)

const (
	AppID      = "io.github.presentat"
	AppVersion = "0.3.0"

	statsInterval = 30 * time.Second
)

// Application owns the window, the MVC components and their lifecycle
type Application struct {
	fyneApp fyne.App
	window  fyne.Window
	logger  logger.Logger

	controller *controllers.MainController
	view       *views.MainView

	pipeline *pipeline.PreviewPipeline
	preview  *preview.Server
	watcher  *services.FileWatcher

	shutdown *shutdown.Manager
	initial  string
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration invalid: %v", err)
	}

	var initial string
	if len(os.Args) > 1 {
		initial = os.Args[1]
	}

	application, err := NewApplication(cfg, initial)
	if err != nil {
		log.Fatalf("Application initialization failed: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("Application execution failed: %v", err)
	}
}

// NewApplication builds every component and wires them together
func NewApplication(cfg config.Config, initial string) (*Application, error) {
	appLogger := cfg.NewLogger()

	fyneApp := app.NewWithID(AppID)
	window := fyneApp.NewWindow(controllers.AppName)
	window.Resize(fyne.NewSize(1280, 800))
	window.CenterOnScreen()

	appLogger.Info("Application", "application starting", map[string]interface{}{
		"version":     AppVersion,
		"go_version":  runtime.Version(),
		"log_level":   cfg.LogLevel().String(),
		"config_file": config.FilePath(),
	})

	manager := shutdown.NewManager(appLogger)
	ctx := manager.Context()
	poster := eventloop.FynePoster{}

	var converter services.Converter
	marp, err := services.NewMarpConverter(cfg.Converter, appLogger)
	if err != nil {
		// the editor still works; every preview shows why conversion is unavailable
		appLogger.Error("Application", err, map[string]interface{}{"kind": models.KindOf(err).String()})
		converter = services.UnavailableConverter{Err: err}
	} else {
		converter = marp
	}

	previewPipeline := pipeline.NewPreviewPipeline(converter, poster, appLogger)
	previewServer := preview.NewServer(cfg.Preview.Addr, appLogger)
	if err := previewServer.Start(ctx); err != nil {
		appLogger.Error("Application", err, map[string]interface{}{"addr": cfg.Preview.Addr})
	}

	tree := models.NewFileTree(services.NewDirectoryService(appLogger))
	controller := controllers.NewMainController(ctx, controllers.Options{
		Files:         services.NewFileService(poster, appLogger),
		Pipeline:      previewPipeline,
		Renderer:      previewServer,
		Tree:          tree,
		Poster:        poster,
		Logger:        appLogger,
		DebounceDelay: cfg.Editor.DebounceDelay.Duration,
	})

	view := views.NewMainView(fyneApp, window, tree)
	controller.SetMainView(view)
	view.SetPreviewURL(previewServer.URL())

	var watcher *services.FileWatcher
	if cfg.Editor.WatchOpenFile {
		watcher, err = services.NewFileWatcher(poster, appLogger, controller.OnFileChangedOnDisk)
		if err != nil {
			appLogger.Warning("Application", "file watching disabled", map[string]interface{}{"error": err.Error()})
		} else {
			controller.SetWatcher(watcher)
		}
	}

	application := &Application{
		fyneApp:    fyneApp,
		window:     window,
		logger:     appLogger,
		controller: controller,
		view:       view,
		pipeline:   previewPipeline,
		preview:    previewServer,
		watcher:    watcher,
		shutdown:   manager,
		initial:    initial,
	}
	application.registerShutdownSteps()
	application.setupWindowEvents()

	return application, nil
}

// registerShutdownSteps orders teardown so nothing posts into a stopped loop:
// edits stop first, then conversions, then the watcher and the server
func (a *Application) registerShutdownSteps() {
	a.shutdown.Register("preview server", a.preview.Shutdown)
	if a.watcher != nil {
		a.shutdown.RegisterFunc("file watcher", a.watcher.Shutdown)
	}
	a.shutdown.RegisterFunc("preview pipeline", a.pipeline.Shutdown)
	a.shutdown.RegisterFunc("view", a.view.Shutdown)
	a.shutdown.RegisterFunc("controller", a.controller.Shutdown)
}

// Run shows the window and blocks until the application quits
func (a *Application) Run() error {
	a.fyneApp.Lifecycle().SetOnStarted(func() {
		a.openInitial()
	})

	a.shutdown.Listen(func(os.Signal) {
		fyne.Do(a.fyneApp.Quit)
	})
	go a.startStatsMonitoring()

	a.window.ShowAndRun()

	if err := a.shutdown.Shutdown(); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	a.logger.Info("Application", "application terminated", nil)
	return nil
}

// openInitial handles a file or folder given on the command line; without one
// the empty buffer is rendered so the preview page is not blank
func (a *Application) openInitial() {
	if a.initial == "" {
		a.controller.ConvertNow()
		return
	}
	path, err := filepath.Abs(a.initial)
	if err != nil {
		a.logger.Warning("Application", "ignoring start path", map[string]interface{}{"path": a.initial})
		return
	}
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		a.view.ShowToast("Unable to open file: " + path + " does not exist")
		return
	}
	if err == nil && info.IsDir() {
		a.controller.OpenFolder(path)
		return
	}
	a.controller.OpenFile(path)
}

func (a *Application) setupWindowEvents() {
	a.window.SetCloseIntercept(func() {
		a.logger.Info("Application", "window close requested", nil)
		if !a.controller.Document().Modified {
			a.window.Close()
			return
		}
		dialog.ShowConfirm(
			"Unsaved changes",
			"Close without saving your changes?",
			func(confirmed bool) {
				if confirmed {
					a.window.Close()
				}
			},
			a.window,
		)
	})
}

// startStatsMonitoring logs conversion statistics until shutdown starts
func (a *Application) startStatsMonitoring() {
	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()

	ctx := a.shutdown.Context()
	for {
		select {
		case <-ticker.C:
			a.logStats()
		case <-ctx.Done():
			return
		}
	}
}

func (a *Application) logStats() {
	stats := a.pipeline.Stats()
	a.logger.Debug("Application", "conversion statistics", map[string]interface{}{
		"dispatched":      stats.Dispatched,
		"delivered":       stats.Delivered,
		"superseded":      stats.Superseded,
		"failed":          stats.Failed,
		"last_ms":         stats.LastDuration.Milliseconds(),
		"avg_ms":          stats.AverageTime.Milliseconds(),
		"renders":         a.preview.Renders(),
		"goroutine_count": runtime.NumGoroutine(),
	})
}
