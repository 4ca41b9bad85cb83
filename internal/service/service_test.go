package service_test

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagebuilder/internal/config"
	"pagebuilder/internal/domain"
	"pagebuilder/internal/editor"
	"pagebuilder/internal/service"
	"pagebuilder/internal/staging"
	"pagebuilder/internal/storage"
)

// ─────────────────────────────────────────────────────────────
// publishGuard tests
// ─────────────────────────────────────────────────────────────

func TestPublishGuard_TryLock(t *testing.T) {
	var g service.ExportedPublishGuard

	require.True(t, g.TryLock("home"))
	assert.False(t, g.TryLock("home"), "second publish of the same slug")
	assert.True(t, g.TryLock("about"))
	assert.True(t, g.Running("home"))
	g.Unlock("home")
	g.Unlock("about")

	assert.False(t, g.Running("home"))
	require.True(t, g.TryLock("home"))
	g.Unlock("home")
}

func TestPublishGuard_WaitAll(t *testing.T) {
	var g service.ExportedPublishGuard
	require.True(t, g.TryLock("home"))

	done := make(chan struct{})
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		g.WaitAll(ctx)
		close(done)
	}()
	go func() {
		time.Sleep(20 * time.Millisecond)
		g.Unlock("home")
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("WaitAll timed out")
	}
}

func TestMockEmitter_RecordsEvents(t *testing.T) {
	m := &service.MockEmitter{}
	ctx := context.Background()

	m.Emit(ctx, "a", "first")
	m.Emit(ctx, "b", nil)
	m.Emit(ctx, "a", "second")

	assert.Len(t, m.Events, 3)
	assert.Equal(t, []any{"first", "second"}, m.Named("a"))
	assert.Equal(t, 1, m.Count("b"))
}

// ─────────────────────────────────────────────────────────────
// PageService tests (SQLite store in a temp dir)
// ─────────────────────────────────────────────────────────────

func setupPages(t *testing.T, delay time.Duration) (*service.PageService, *storage.PageStore, *service.MockEmitter) {
	t.Helper()
	db, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "pages.db"))
	require.NoError(t, err)
	store := storage.NewPageStore(db)
	t.Cleanup(func() { store.Close() })

	emitter := &service.MockEmitter{}
	svc := service.NewPageService(store, "home", emitter, service.PageOptions{
		Editor: editor.Options{NewID: domain.SequentialIDs("id")},
		Sync:   staging.Options{Delay: delay, StatusWindow: 30 * time.Millisecond},
	})
	require.NoError(t, svc.Load(context.Background()))
	t.Cleanup(func() { svc.Close(context.Background()) })
	return svc, store, emitter
}

func stagedSections(store *storage.PageStore) int {
	p, err := store.FetchStaging(context.Background(), "home")
	if err != nil {
		return -1
	}
	return len(p.Sections)
}

func TestPageService_LoadDoesNotAutosave(t *testing.T) {
	svc, store, _ := setupPages(t, 20*time.Millisecond)

	require.Len(t, svc.Editor().Page().Sections, 1)
	time.Sleep(60 * time.Millisecond)
	_, err := store.FetchStaging(context.Background(), "home")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPageService_EditAutosaves(t *testing.T) {
	svc, store, emitter := setupPages(t, 20*time.Millisecond)

	_, err := svc.Editor().AddSection()
	require.NoError(t, err)
	require.Eventually(t, func() bool { return stagedSections(store) == 2 }, time.Second, 5*time.Millisecond)

	assert.Positive(t, emitter.Count(service.EventPageChanged))
	history := emitter.Named(service.EventHistoryChanged)
	require.NotEmpty(t, history)
	last := history[len(history)-1].(service.HistoryInfo)
	assert.True(t, last.CanUndo)
	require.NotEmpty(t, last.Undo)
	assert.Equal(t, "Add section", last.Undo[0])
	assert.Positive(t, emitter.Count(service.EventSyncStatus))
}

func TestPageService_PublishAndSync(t *testing.T) {
	svc, store, emitter := setupPages(t, 20*time.Millisecond)
	ctx := context.Background()

	_, err := svc.Editor().AddSection()
	require.NoError(t, err)
	assert.False(t, svc.Status().InSync)

	require.NoError(t, svc.Publish(ctx))
	st := svc.Status()
	assert.True(t, st.InSync)
	assert.True(t, st.LiveVisible)

	live, err := store.FetchLive(ctx, "home")
	require.NoError(t, err)
	assert.Len(t, live.Sections, 2)
	assert.Equal(t, []any{map[string]string{"slug": "home"}}, emitter.Named(service.EventPublishFinished))

	require.NoError(t, svc.Editor().SetPageTitle("Changed"))
	assert.False(t, svc.Status().InSync)
	require.NoError(t, svc.RefreshLive(ctx))
	assert.False(t, svc.Status().InSync)
}

func TestPageService_PublishOtherSlug(t *testing.T) {
	svc, store, emitter := setupPages(t, 20*time.Millisecond)
	ctx := context.Background()

	err := svc.PublishSlug(ctx, "about")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	finished := emitter.Named(service.EventPublishFinished)
	require.Len(t, finished, 1)
	assert.Contains(t, finished[0].(map[string]string)["error"], "about")

	require.NoError(t, store.SaveStaging(ctx, domain.NewPage("about", domain.SequentialIDs("a"))))
	require.NoError(t, svc.PublishSlug(ctx, "about"))
	_, err = store.FetchLive(ctx, "about")
	assert.NoError(t, err)
}

func TestPageService_Reload(t *testing.T) {
	svc, store, emitter := setupPages(t, time.Hour)
	ctx := context.Background()

	external := domain.NewPage("home", domain.SequentialIDs("x"))
	external.Title = "From elsewhere"
	require.NoError(t, store.SaveStaging(ctx, external))

	reloaded, err := svc.Reload(ctx)
	require.NoError(t, err)
	assert.True(t, reloaded)
	assert.Equal(t, "From elsewhere", svc.Editor().Page().Title)
	assert.Equal(t, 1, emitter.Count(service.EventExternalChange))
	assert.False(t, svc.Editor().CanUndo(), "reload resets history")

	require.NoError(t, svc.Editor().SetPageTitle("Local"))
	reloaded, err = svc.Reload(ctx)
	require.NoError(t, err)
	assert.False(t, reloaded, "pending local edits win")
	assert.Equal(t, "Local", svc.Editor().Page().Title)
}

func TestPageService_CheckExternal(t *testing.T) {
	svc, store, emitter := setupPages(t, time.Hour)
	ctx := context.Background()

	changed, err := svc.CheckExternal(ctx)
	require.NoError(t, err)
	assert.False(t, changed, "nothing stored yet")

	require.NoError(t, svc.Editor().SetPageTitle("Mine"))
	require.NoError(t, svc.Flush(ctx))
	changed, err = svc.CheckExternal(ctx)
	require.NoError(t, err)
	assert.False(t, changed, "own save")

	other := svc.Editor().Page()
	other.Title = "Theirs"
	require.NoError(t, store.SaveStaging(ctx, other))
	changed, err = svc.CheckExternal(ctx)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "Theirs", svc.Editor().Page().Title)
	assert.Equal(t, 1, emitter.Count(service.EventExternalChange))
}

func TestPageService_CheckExternalSeesStyleOnlyChange(t *testing.T) {
	svc, store, emitter := setupPages(t, time.Hour)
	ctx := context.Background()
	require.NoError(t, svc.Editor().SetPageTitle("Mine"))
	require.NoError(t, svc.Flush(ctx))

	other := svc.Editor().Page()
	node := other.Sections[0].Children[0]
	node.Style = map[string]any{"borderRadius": "12px"}
	require.NoError(t, store.SaveStaging(ctx, other))

	changed, err := svc.CheckExternal(ctx)
	require.NoError(t, err)
	assert.True(t, changed)
	_, got := svc.Editor().Page().FindNode(node.ID)
	require.NotNil(t, got)
	assert.Equal(t, "12px", got.Style["borderRadius"])
	assert.Equal(t, 1, emitter.Count(service.EventExternalChange))
}

func TestPageService_AddLocaleWithoutTranslator(t *testing.T) {
	svc, _, _ := setupPages(t, 20*time.Millisecond)

	require.NoError(t, svc.AddLocale(context.Background(), "es"))
	assert.Equal(t, []string{"en", "es"}, svc.Editor().Page().Locales)
}

func TestPageService_CloseFlushes(t *testing.T) {
	db, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "pages.db"))
	require.NoError(t, err)
	store := storage.NewPageStore(db)
	defer store.Close()

	svc := service.NewPageService(store, "home", nil, service.PageOptions{
		Sync: staging.Options{Delay: time.Hour},
	})
	require.NoError(t, svc.Load(context.Background()))
	require.NoError(t, svc.Editor().SetPageTitle("Saved on close"))
	require.NoError(t, svc.Close(context.Background()))

	p, err := store.FetchStaging(context.Background(), "home")
	require.NoError(t, err)
	assert.Equal(t, "Saved on close", p.Title)
}

// ─────────────────────────────────────────────────────────────
// Scheduler, presets, backend, window settings
// ─────────────────────────────────────────────────────────────

type countingPublisher struct {
	published atomic.Int32
	refreshed atomic.Int32
}

func (c *countingPublisher) PublishSlug(context.Context, string) error {
	c.published.Add(1)
	return nil
}

func (c *countingPublisher) RefreshLive(context.Context) error {
	c.refreshed.Add(1)
	return nil
}

func TestScheduler_RunsJobs(t *testing.T) {
	pub := &countingPublisher{}
	s := service.NewScheduler(pub, config.ScheduleConfig{
		LiveRefresh: "@every 1s",
		Publish:     []config.ScheduledPublish{{Slug: "home", Cron: "@every 1s"}},
	}, time.Second)
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	assert.Equal(t, 2, s.Entries())
	require.Eventually(t, func() bool {
		return pub.published.Load() > 0 && pub.refreshed.Load() > 0
	}, 3*time.Second, 50*time.Millisecond)
}

func TestScheduler_InvalidExpression(t *testing.T) {
	s := service.NewScheduler(&countingPublisher{}, config.ScheduleConfig{
		LiveRefresh: "@every 30s",
		Publish:     []config.ScheduledPublish{{Slug: "home", Cron: "not a cron"}},
	}, 0)
	err := s.Start(context.Background())
	defer s.Stop()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "home")
	assert.Equal(t, 1, s.Entries(), "valid entries still run")

	s.Stop()
	s.Stop()
	assert.Zero(t, s.Entries())
}

func TestLoadPresets(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "banner.yaml"), []byte(`
name: Banner
section:
  builderGrid: {cols: 64, aspect: {num: 4, den: 1}, showGrid: true}
  children:
    - type: text
      props: {html: "<h2>Sale</h2>"}
      layout: {units: {xu: 2, yu: 2, wu: 30, hu: 6}}
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("section: [unclosed"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	presets, err := service.LoadPresets(dir)
	require.NoError(t, err)
	assert.Contains(t, presets, "hero", "built-ins are kept")
	require.Contains(t, presets, "banner")
	assert.NotContains(t, presets, "broken")

	sec := presets["banner"].Instantiate(domain.SequentialIDs("p"))
	assert.Equal(t, "Banner", sec.Name())
	require.Len(t, sec.Children, 1)
	assert.Equal(t, domain.NodeText, sec.Children[0].Type)
	assert.Equal(t, domain.Units{XU: 2, YU: 2, WU: 30, HU: 6}, sec.Children[0].Units())

	presets, err = service.LoadPresets(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.Equal(t, len(domain.BuiltinPresets()), len(presets))
}

func TestOpenBackend(t *testing.T) {
	ctx := context.Background()
	cfg := config.StorageConfig{Driver: config.DriverSQLite, Path: filepath.Join(t.TempDir(), "nested", "pages.db")}

	b, err := service.OpenBackend(ctx, cfg, nil)
	require.NoError(t, err)
	defer b.Close()
	_, ok := b.(service.Fingerprinter)
	assert.True(t, ok)

	b2, err := service.OpenBackend(ctx, config.StorageConfig{Driver: config.DriverHTTP, BaseURL: "http://localhost:1"}, nil)
	require.NoError(t, err)
	assert.NoError(t, b2.Close())
	assert.NotNil(t, service.Translator(config.StorageConfig{Driver: config.DriverHTTP, BaseURL: "http://localhost:1"}, nil))
	assert.Nil(t, service.Translator(cfg, nil))

	_, err = service.OpenBackend(ctx, config.StorageConfig{Driver: "redis"}, nil)
	assert.Error(t, err)
}

func TestWindowSettings(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, service.WindowSize{Width: 1440, Height: 900},
		service.NewWindowSettingsService(nil).LoadWindowSize(ctx))

	db, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "pages.db"))
	require.NoError(t, err)
	defer db.Close()
	ws := service.NewWindowSettingsService(db)

	require.NoError(t, ws.SaveWindowSize(ctx, 1600, 1000))
	assert.Equal(t, service.WindowSize{Width: 1600, Height: 1000}, ws.LoadWindowSize(ctx))

	require.NoError(t, ws.SaveWindowSize(ctx, 300, 200))
	assert.Equal(t, service.WindowSize{Width: 1440, Height: 900}, ws.LoadWindowSize(ctx), "too small falls back")
}
