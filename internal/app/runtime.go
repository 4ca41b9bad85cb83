package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"

	"pagebuilder/internal/config"
	"pagebuilder/internal/editor"
	"pagebuilder/internal/secret"
	"pagebuilder/internal/service"
	"pagebuilder/internal/staging"
	"pagebuilder/internal/storage"
)

// Runtime is what every front end (desktop window, MCP server, CLI)
// needs to work on one page: the configured backend, a local database for
// app settings and approvals, and the page service.
type Runtime struct {
	Config  *config.Config
	Secrets secret.SecretStore
	Backend service.Backend
	Local   *storage.DB
	Pages   *service.PageService
}

// LocalDBPath is the app database shared by the desktop app and the
// standalone MCP server.
func LocalDBPath(cfg *config.Config) string {
	return filepath.Join(cfg.DataDir, "app.db")
}

func openLocal(cfg *config.Config) (*storage.DB, error) {
	return storage.OpenSQLite(LocalDBPath(cfg))
}

// Open connects the backend and loads slug (the configured slug when
// empty) into a new page service.
func Open(ctx context.Context, cfg *config.Config, slug string, emitter service.EventEmitter) (*Runtime, error) {
	if slug == "" {
		slug = cfg.Slug
	}
	secrets := secret.Default()

	local, err := openLocal(cfg)
	if err != nil {
		return nil, fmt.Errorf("open app database: %w", err)
	}
	backend, err := service.OpenBackend(ctx, cfg.Storage, secrets)
	if err != nil {
		local.Close()
		return nil, err
	}

	opts, err := pageOptions(cfg, secrets)
	if err != nil {
		local.Close()
		backend.Close()
		return nil, err
	}
	pages := service.NewPageService(backend, slug, emitter, opts)

	loadCtx, cancel := context.WithTimeout(ctx, cfg.Storage.Timeout)
	defer cancel()
	if err := pages.Load(loadCtx); err != nil {
		// the editor keeps a fresh draft; saves retry on the next edit
		log.Printf("app: %v", err)
	}

	return &Runtime{
		Config:  cfg,
		Secrets: secrets,
		Backend: backend,
		Local:   local,
		Pages:   pages,
	}, nil
}

// pageOptions maps the config onto the page service options.
func pageOptions(cfg *config.Config, secrets secret.SecretStore) (service.PageOptions, error) {
	presets, err := service.LoadPresets(cfg.Editor.PresetsDir)
	if err != nil {
		return service.PageOptions{}, err
	}
	opts := service.PageOptions{
		Editor: editor.Options{
			HistoryLimit: cfg.Editor.HistoryLimit,
			Presets:      presets,
			AssetBaseURL: cfg.Editor.AssetBaseURL,
		},
		Sync: staging.Options{
			Delay:        cfg.Editor.AutosaveDelay,
			StatusWindow: cfg.Editor.StatusWindow,
			Timeout:      cfg.Storage.Timeout,
		},
		Translator: service.Translator(cfg.Storage, secrets),
	}
	if cfg.Editor.SystemClipboard {
		opts.Editor.Clipboard = editor.OSClipboard{}
	}
	return opts, nil
}

// Close flushes pending edits and releases the backend and app database.
func (r *Runtime) Close(ctx context.Context) error {
	var errs []error
	if r.Pages != nil {
		if err := r.Pages.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("flush page: %w", err))
		}
	}
	if r.Backend != nil {
		if err := r.Backend.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close backend: %w", err))
		}
	}
	if r.Local != nil {
		if err := r.Local.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close app database: %w", err))
		}
	}
	return errors.Join(errs...)
}
