package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/editor"
	"pagebuilder/internal/staging"
)

// ─────────────────────────────────────────────────────────────
// PageService: one page open in the builder
// ─────────────────────────────────────────────────────────────

// PageService owns the editor for one slug and keeps it persisted: every
// document change schedules an autosave, and state changes are emitted to
// the frontend. The desktop shell, the MCP server and the CLI all drive
// the builder through it.
type PageService struct {
	slug       string
	editor     *editor.Editor
	syncer     *staging.Syncer
	backend    staging.Backend
	translator editor.Translator
	emitter    EventEmitter
	publishing publishGuard

	loading     atomic.Bool
	unsubscribe func()
}

// PageOptions configures a PageService.
type PageOptions struct {
	Editor     editor.Options
	Sync       staging.Options
	Translator editor.Translator // nil adds locales unseeded
}

// HistoryInfo is the payload of history:changed.
type HistoryInfo struct {
	CanUndo bool     `json:"canUndo"`
	CanRedo bool     `json:"canRedo"`
	Undo    []string `json:"undo"`
	Redo    []string `json:"redo"`
}

// NewPageService creates the service. Call Load before editing.
func NewPageService(backend staging.Backend, slug string, emitter EventEmitter, opts PageOptions) *PageService {
	if emitter == nil {
		emitter = NoopEmitter{}
	}
	if opts.Editor.NewID == nil {
		opts.Editor.NewID = domain.NewID
	}
	if opts.Sync.NewID == nil {
		opts.Sync.NewID = opts.Editor.NewID
	}
	onStatus := opts.Sync.OnStatus
	opts.Sync.OnStatus = func(st staging.Status) {
		emitter.Emit(context.Background(), EventSyncStatus, st)
		if onStatus != nil {
			onStatus(st)
		}
	}

	s := &PageService{
		slug:       slug,
		backend:    backend,
		translator: opts.Translator,
		emitter:    emitter,
		editor:     editor.New(domain.NewPage(slug, opts.Editor.NewID), opts.Editor),
		syncer:     staging.New(backend, slug, opts.Sync),
	}
	s.unsubscribe = s.editor.Subscribe(s.onChange)
	return s
}

func (s *PageService) Slug() string             { return s.slug }
func (s *PageService) Editor() *editor.Editor   { return s.editor }
func (s *PageService) Status() staging.Status   { return s.syncer.Status() }
func (s *PageService) Backend() staging.Backend { return s.backend }

// History summarizes the undo and redo stacks.
func (s *PageService) History() HistoryInfo {
	undo, redo := s.editor.HistoryLabels()
	return HistoryInfo{
		CanUndo: s.editor.CanUndo(),
		CanRedo: s.editor.CanRedo(),
		Undo:    undo,
		Redo:    redo,
	}
}

// Load fetches the page and replaces the editor document. Loading does not
// schedule an autosave.
func (s *PageService) Load(ctx context.Context) error {
	p, err := s.syncer.Load(ctx)
	if err != nil {
		return fmt.Errorf("load page %s: %w", s.slug, err)
	}
	s.loading.Store(true)
	s.editor.Replace(p)
	s.loading.Store(false)
	s.emitter.Emit(ctx, EventSyncStatus, s.syncer.Status())
	return nil
}

// Reload picks up a change made outside this process. A local edit still
// waiting to be saved wins, so nothing is reloaded then.
func (s *PageService) Reload(ctx context.Context) (bool, error) {
	if s.syncer.Pending() {
		log.Printf("page service: skip reload of %s, local edits pending", s.slug)
		return false, nil
	}
	if err := s.Load(ctx); err != nil {
		return false, err
	}
	s.emitter.Emit(ctx, EventExternalChange, map[string]string{"slug": s.slug})
	return true, nil
}

// CheckExternal compares the stored staging copy with the open document
// and reloads when another writer changed it. Our own saves compare equal
// and are ignored.
func (s *PageService) CheckExternal(ctx context.Context) (bool, error) {
	if s.syncer.Pending() {
		return false, nil
	}
	stored, err := s.backend.FetchStaging(ctx, s.slug)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check external %s: %w", s.slug, err)
	}
	if domain.SameDocument(s.editor.Page(), stored) {
		return false, nil
	}
	return s.Reload(ctx)
}

// Flush saves a pending change immediately.
func (s *PageService) Flush(ctx context.Context) error {
	return s.syncer.Flush(ctx)
}

// Publish saves the current document and promotes it to live.
func (s *PageService) Publish(ctx context.Context) error {
	if !s.publishing.TryLock(s.slug) {
		return fmt.Errorf("publish %s: already in progress", s.slug)
	}
	defer s.publishing.Unlock(s.slug)

	err := s.syncer.Publish(ctx, s.editor.Page())
	s.emitPublished(ctx, s.slug, err)
	return err
}

// PublishSlug publishes any slug. The open page goes through Publish so
// its latest edits are included; other slugs promote their stored
// staging copy.
func (s *PageService) PublishSlug(ctx context.Context, slug string) error {
	if slug == s.slug {
		return s.Publish(ctx)
	}
	if !s.publishing.TryLock(slug) {
		return fmt.Errorf("publish %s: already in progress", slug)
	}
	defer s.publishing.Unlock(slug)

	err := s.backend.Publish(ctx, slug)
	if err != nil {
		err = fmt.Errorf("publish %s: %w", slug, err)
	}
	s.emitPublished(ctx, slug, err)
	return err
}

func (s *PageService) emitPublished(ctx context.Context, slug string, err error) {
	payload := map[string]string{"slug": slug}
	if err != nil {
		payload["error"] = err.Error()
	}
	s.emitter.Emit(ctx, EventPublishFinished, payload)
}

// RefreshLive refetches the live page and recomputes the in-sync flag.
func (s *PageService) RefreshLive(ctx context.Context) error {
	return s.syncer.RefreshLive(ctx, s.editor.Page())
}

// AddLocale enables a locale, seeding it through the configured
// translator when there is one.
func (s *PageService) AddLocale(ctx context.Context, code string) error {
	return s.editor.AddLocale(ctx, code, s.translator)
}

// WaitPublishing blocks until in-flight publishes finish or ctx is done.
func (s *PageService) WaitPublishing(ctx context.Context) {
	s.publishing.WaitAll(ctx)
}

// Close flushes pending edits and stops listening to the editor.
func (s *PageService) Close(ctx context.Context) error {
	s.WaitPublishing(ctx)
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	return s.syncer.Flush(ctx)
}

func (s *PageService) onChange(c editor.Change) {
	ctx := context.Background()
	if c.Has(editor.ChangeDocument) {
		if !s.loading.Load() {
			s.syncer.Schedule(s.editor.Page)
		}
		s.emitter.Emit(ctx, EventPageChanged, map[string]string{"slug": s.slug})
	}
	if c.Has(editor.ChangeHistory) {
		s.emitter.Emit(ctx, EventHistoryChanged, s.History())
	}
	if c.Has(editor.ChangeState) {
		s.emitter.Emit(ctx, EventStateChanged, map[string]string{"slug": s.slug})
	}
}
