package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"pagebuilder/internal/config"
	"pagebuilder/internal/domain"
	"pagebuilder/internal/secret"
	"pagebuilder/internal/service"
)

// PageStatus is what `pagebuilder status` prints.
type PageStatus struct {
	Slug     string   `json:"slug"`
	Title    string   `json:"title"`
	Sections int      `json:"sections"`
	Locales  []string `json:"locales"`
	Live     bool     `json:"live"`
	InSync   bool     `json:"inSync"`
}

func withBackend(ctx context.Context, cfg *config.Config, fn func(service.Backend) error) error {
	backend, err := service.OpenBackend(ctx, cfg.Storage, secret.Default())
	if err != nil {
		return err
	}
	defer backend.Close()
	return fn(backend)
}

// PublishPage promotes the stored staging copy of slug to live.
func PublishPage(ctx context.Context, cfg *config.Config, slug string) error {
	ctx, cancel := context.WithTimeout(ctx, cfg.Storage.Timeout)
	defer cancel()
	return withBackend(ctx, cfg, func(b service.Backend) error {
		if err := b.Publish(ctx, slug); err != nil {
			return fmt.Errorf("publish %s: %w", slug, err)
		}
		return nil
	})
}

// Status compares the staging and live copies of slug.
func Status(ctx context.Context, cfg *config.Config, slug string) (PageStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.Storage.Timeout)
	defer cancel()

	st := PageStatus{Slug: slug}
	err := withBackend(ctx, cfg, func(b service.Backend) error {
		staged, err := b.FetchStaging(ctx, slug)
		if err != nil {
			return fmt.Errorf("status %s: %w", slug, err)
		}
		st.Title = staged.Title
		st.Sections = len(staged.Sections)
		st.Locales = staged.Locales

		live, err := b.FetchLive(ctx, slug)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			return nil
		case err != nil:
			return fmt.Errorf("status %s: %w", slug, err)
		}
		st.Live = true
		st.InSync = domain.InSync(staged, live)
		return nil
	})
	return st, err
}

// Export writes the staging copy of slug to w as indented JSON.
func Export(ctx context.Context, cfg *config.Config, slug string, w io.Writer) error {
	ctx, cancel := context.WithTimeout(ctx, cfg.Storage.Timeout)
	defer cancel()
	return withBackend(ctx, cfg, func(b service.Backend) error {
		p, err := b.FetchStaging(ctx, slug)
		if err != nil {
			return fmt.Errorf("export %s: %w", slug, err)
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	})
}
