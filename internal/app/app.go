package app

import (
	"context"
	"encoding/base64"
	"os/exec"
	"runtime"
	"sync"

	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"

	"pagebuilder/internal/bridge"
	"pagebuilder/internal/config"
	"pagebuilder/internal/service"
	"pagebuilder/internal/terminal"
)

const (
	EventTerminalData = "terminal:data"
	EventTerminalExit = "terminal:exit"
	EventAppError     = "app:error"
)

// App is the main Wails application struct.
// All exported methods are available as Wails bindings.
type App struct {
	ctx context.Context
	cfg *config.Config

	rt        *Runtime
	window    *service.WindowSettingsService
	scheduler *service.Scheduler
	watcher   *pageWatcher
	bridge    *bridge.Bridge
	term      *terminal.Manager

	// node open in the external editor
	editMu  sync.Mutex
	editing *editSession
}

// New creates a new App.
func New(cfg *config.Config) *App {
	return &App{cfg: cfg}
}

// wailsEmitter forwards service events to the frontend. Wails needs the
// context it handed to Startup, not the caller's.
type wailsEmitter struct {
	ctx context.Context
}

func (e wailsEmitter) Emit(_ context.Context, event string, data any) {
	wailsRuntime.EventsEmit(e.ctx, event, data)
}

// Startup is called when the app starts.
func (a *App) Startup(ctx context.Context) {
	a.ctx = ctx

	if runtime.GOOS == "darwin" {
		// key repeat inside the embedded editor instead of the accent popup
		exec.Command("defaults", "write", "com.wails.pagebuilder", "ApplePressAndHoldEnabled", "-bool", "false").Run()
	}

	emitter := wailsEmitter{ctx: ctx}
	rt, err := Open(ctx, a.cfg, "", emitter)
	if err != nil {
		wailsRuntime.LogFatalf(ctx, "Failed to open page: %v", err)
		return
	}
	a.rt = rt
	a.window = service.NewWindowSettingsService(rt.Local)

	a.scheduler = service.NewScheduler(rt.Pages, a.cfg.Schedule, a.cfg.Storage.Timeout)
	if err := a.scheduler.Start(ctx); err != nil {
		wailsRuntime.LogErrorf(ctx, "Failed to start scheduler: %v", err)
	}

	// Embedded terminal: PTY output → base64 → frontend event
	a.term = terminal.New("",
		func(data []byte) {
			wailsRuntime.EventsEmit(ctx, EventTerminalData, base64.StdEncoding.EncodeToString(data))
		},
		func(err error) {
			a.onEditorExit()
			exit := map[string]string{}
			if err != nil {
				exit["error"] = err.Error()
			}
			wailsRuntime.EventsEmit(ctx, EventTerminalExit, exit)
		},
	)

	b, err := bridge.New(a.onNodeFileChanged)
	if err != nil {
		wailsRuntime.LogErrorf(ctx, "Failed to create file bridge: %v", err)
	}
	a.bridge = b

	a.watcher = newPageWatcher(rt.Pages, rt.Local, emitter)
	a.watcher.Start(ctx)
}

// Shutdown is called when the app is closing.
func (a *App) Shutdown(ctx context.Context) {
	if a.term != nil {
		a.term.Close()
	}
	a.onEditorExit()
	if a.bridge != nil {
		a.bridge.Close()
	}
	if a.watcher != nil {
		a.watcher.Stop()
	}
	if a.scheduler != nil {
		a.scheduler.Stop()
	}
	if a.rt != nil {
		if err := a.rt.Close(ctx); err != nil {
			wailsRuntime.LogErrorf(ctx, "Failed to close page: %v", err)
		}
	}
}

// BeforeClose saves the window size while the window still exists.
func (a *App) BeforeClose(ctx context.Context) bool {
	if a.window != nil {
		w, h := wailsRuntime.WindowGetSize(ctx)
		if err := a.window.SaveWindowSize(ctx, w, h); err != nil {
			wailsRuntime.LogErrorf(ctx, "Failed to save window size: %v", err)
		}
	}
	return false
}

// WindowSize is read before the window opens, so it goes straight to the
// app database.
func WindowSize(ctx context.Context, cfg *config.Config) service.WindowSize {
	db, err := openLocal(cfg)
	if err != nil {
		return service.NewWindowSettingsService(nil).LoadWindowSize(ctx)
	}
	defer db.Close()
	return service.NewWindowSettingsService(db).LoadWindowSize(ctx)
}
