package bridge_test

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagebuilder/internal/bridge"
)

type recorder struct {
	mu      sync.Mutex
	changes []string
}

func (r *recorder) record(id, content string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, id+"="+content)
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.changes...)
}

func TestBridge_ReportsChangedContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "n1.html")
	require.NoError(t, os.WriteFile(path, []byte("<p>old</p>\n"), 0o644))

	rec := &recorder{}
	b, err := bridge.New(rec.record)
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	require.NoError(t, b.WatchFile("n1", path))

	require.NoError(t, os.WriteFile(path, []byte("<p>old</p>\n"), 0o644))
	require.NoError(t, os.WriteFile(path, []byte("<p>new</p>\n"), 0o644))

	require.Eventually(t, func() bool { return len(rec.snapshot()) > 0 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, []string{"n1=<p>new</p>"}, rec.snapshot(), "baseline and duplicate writes are skipped")
}

func TestBridge_RenameSaveCounts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "n2.html")
	require.NoError(t, os.WriteFile(path, []byte("a"), 0o644))

	rec := &recorder{}
	b, err := bridge.New(rec.record)
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	require.NoError(t, b.WatchFile("n2", path))

	tmp := filepath.Join(dir, ".n2.html.swp")
	require.NoError(t, os.WriteFile(tmp, []byte("b"), 0o644))
	require.NoError(t, os.Rename(tmp, path))

	require.Eventually(t, func() bool {
		got := rec.snapshot()
		return len(got) == 1 && got[0] == "n2=b"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestBridge_StopWatching(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "n3.html")
	require.NoError(t, os.WriteFile(path, []byte("a"), 0o644))

	rec := &recorder{}
	b, err := bridge.New(rec.record)
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	require.NoError(t, b.WatchFile("n3", path))
	b.StopWatching("n3")

	require.NoError(t, os.WriteFile(path, []byte("b"), 0o644))
	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, rec.snapshot())
}
