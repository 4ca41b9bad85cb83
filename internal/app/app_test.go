package app

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagebuilder/internal/config"
	"pagebuilder/internal/domain"
	mcpserver "pagebuilder/internal/mcp"
	"pagebuilder/internal/service"
	"pagebuilder/internal/storage"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.Storage.Path = ""
	cfg.Editor.AutosaveDelay = time.Hour
	cfg.Editor.SystemClipboard = false
	require.NoError(t, cfg.Validate())
	return cfg
}

func openRuntime(t *testing.T, cfg *config.Config) (*Runtime, *service.MockEmitter) {
	t.Helper()
	emitter := &service.MockEmitter{}
	rt, err := Open(context.Background(), cfg, "", emitter)
	require.NoError(t, err)
	t.Cleanup(func() { rt.Close(context.Background()) })
	return rt, emitter
}

// ─────────────────────────────────────────────────────────────
// Runtime
// ─────────────────────────────────────────────────────────────

func TestOpen_FreshPage(t *testing.T) {
	cfg := testConfig(t)
	rt, _ := openRuntime(t, cfg)

	assert.Equal(t, "home", rt.Pages.Slug())
	assert.Len(t, rt.Pages.Editor().Page().Sections, 1)
	assert.FileExists(t, LocalDBPath(cfg))
	assert.FileExists(t, cfg.Storage.Path)
}

func TestRuntime_CloseFlushesEdits(t *testing.T) {
	cfg := testConfig(t)
	rt, err := Open(context.Background(), cfg, "", service.NoopEmitter{})
	require.NoError(t, err)
	require.NoError(t, rt.Pages.Editor().SetPageTitle("Launch"))
	require.NoError(t, rt.Close(context.Background()))

	st, err := Status(context.Background(), cfg, "home")
	require.NoError(t, err)
	assert.Equal(t, "Launch", st.Title)
	assert.False(t, st.Live)
}

// ─────────────────────────────────────────────────────────────
// CLI helpers
// ─────────────────────────────────────────────────────────────

func TestPublishAndStatus(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	rt, err := Open(ctx, cfg, "", service.NoopEmitter{})
	require.NoError(t, err)
	_, err = rt.Pages.Editor().AddSection()
	require.NoError(t, err)
	require.NoError(t, rt.Close(ctx))

	require.NoError(t, PublishPage(ctx, cfg, "home"))
	st, err := Status(ctx, cfg, "home")
	require.NoError(t, err)
	assert.Equal(t, 2, st.Sections)
	assert.True(t, st.Live)
	assert.True(t, st.InSync)
}

func TestStatus_MissingPage(t *testing.T) {
	cfg := testConfig(t)
	_, err := Status(context.Background(), cfg, "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestExport(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	rt, err := Open(ctx, cfg, "", service.NoopEmitter{})
	require.NoError(t, err)
	require.NoError(t, rt.Pages.Editor().SetPageTitle("Export me"))
	require.NoError(t, rt.Close(ctx))

	var buf bytes.Buffer
	require.NoError(t, Export(ctx, cfg, "home", &buf))
	var p domain.Page
	require.NoError(t, json.Unmarshal(buf.Bytes(), &p))
	assert.Equal(t, "Export me", p.Title)
	assert.Equal(t, "home", p.Slug)
}

// ─────────────────────────────────────────────────────────────
// Page watcher
// ─────────────────────────────────────────────────────────────

func TestPageWatcher_ReloadsExternalChange(t *testing.T) {
	cfg := testConfig(t)
	rt, emitter := openRuntime(t, cfg)
	ctx := context.Background()
	w := newPageWatcher(rt.Pages, rt.Local, emitter)
	require.NotNil(t, w.prints)

	w.check(ctx)
	assert.Equal(t, 0, emitter.Count(service.EventExternalChange))

	// another process writes the same slug
	other := rt.Pages.Editor().Page()
	other.Title = "From elsewhere"
	require.NoError(t, rt.Pages.Backend().SaveStaging(ctx, other))

	w.check(ctx)
	assert.Equal(t, "From elsewhere", rt.Pages.Editor().Page().Title)
	assert.Equal(t, 1, emitter.Count(service.EventExternalChange))

	w.check(ctx)
	assert.Equal(t, 1, emitter.Count(service.EventExternalChange), "no change since last tick")
}

func TestPageWatcher_EmitsApprovalsOnce(t *testing.T) {
	cfg := testConfig(t)
	rt, emitter := openRuntime(t, cfg)
	ctx := context.Background()
	w := newPageWatcher(rt.Pages, rt.Local, emitter)

	require.NoError(t, rt.Local.CreateApproval(ctx, storage.Approval{
		ID: "a1", Tool: "delete_node", Description: "Delete text",
	}))
	w.check(ctx)
	w.check(ctx)
	require.Equal(t, 1, emitter.Count(mcpserver.EventApprovalRequired))
	got := emitter.Named(mcpserver.EventApprovalRequired)[0].(storage.Approval)
	assert.Equal(t, "delete_node", got.Tool)
	assert.Equal(t, 1, emitter.Count(EventMCPActivity))

	// resolved rows are forgotten, so a reused id is announced again
	require.NoError(t, rt.Local.ResolveApproval(ctx, "a1", true))
	w.check(ctx)
	assert.Empty(t, w.emittedApprovals)
}

func TestPageWatcher_StartStop(t *testing.T) {
	cfg := testConfig(t)
	rt, emitter := openRuntime(t, cfg)
	w := newPageWatcher(rt.Pages, rt.Local, emitter)
	w.interval = 10 * time.Millisecond

	require.NoError(t, rt.Local.CreateApproval(context.Background(), storage.Approval{ID: "a2", Tool: "publish"}))
	w.Start(context.Background())
	assert.Eventually(t, func() bool {
		return emitter.Count(mcpserver.EventApprovalRequired) == 1
	}, time.Second, 10*time.Millisecond)
	w.Stop()
	w.Stop()
}

// ─────────────────────────────────────────────────────────────
// External editor files
// ─────────────────────────────────────────────────────────────

func TestEditableKey(t *testing.T) {
	key, ok := editableKey(&domain.Node{Type: domain.NodeText})
	assert.True(t, ok)
	assert.Equal(t, "html", key)

	key, ok = editableKey(&domain.Node{Type: domain.NodeButton})
	assert.True(t, ok)
	assert.Equal(t, "label", key)

	_, ok = editableKey(&domain.Node{Type: domain.NodeContainer})
	assert.False(t, ok)
}

func TestEditFilePath(t *testing.T) {
	assert.Equal(t, filepath.Join("/data", "edit", "n1.html"), editFilePath("/data", "n1", "html"))
	assert.Equal(t, filepath.Join("/data", "edit", "n2.txt"), editFilePath("/data", "n2", "label"))
}
