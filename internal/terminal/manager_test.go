package terminal

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEditorCommand(t *testing.T) {
	name, args := editorCommand("code --wait")
	assert.Equal(t, "code", name)
	assert.Equal(t, []string{"--wait"}, args)

	name, args = editorCommand("  ")
	assert.Equal(t, "nvim", name)
	assert.Empty(t, args)
}

func TestBuildEnv(t *testing.T) {
	base := []string{"HOME=/home/u", "PATH=/usr/bin"}
	env := buildEnv(base, "/opt/homebrew/bin:/usr/bin")
	assert.Contains(t, env, "PATH=/opt/homebrew/bin:/usr/bin")
	assert.NotContains(t, env, "PATH=/usr/bin")
	assert.Contains(t, env, "TERM=xterm-256color")
	assert.Equal(t, "PATH=/usr/bin", base[1], "base is not modified")

	env = buildEnv([]string{"HOME=/home/u"}, "")
	assert.Equal(t, []string{"HOME=/home/u", "TERM=xterm-256color", "COLORTERM=truecolor"}, env)
}

func TestResolveEditor_AbsolutePath(t *testing.T) {
	assert.Equal(t, "/custom/bin/vim", resolveEditor("/custom/bin/vim"))
	assert.Equal(t, "definitely-not-an-editor-xyz", resolveEditor("definitely-not-an-editor-xyz"))
}

func TestManager_RunsEditorInPTY(t *testing.T) {
	path := filepath.Join(t.TempDir(), "node.html")
	require.NoError(t, os.WriteFile(path, []byte("<p>hello pty</p>"), 0o644))

	var mu sync.Mutex
	var out strings.Builder
	exited := make(chan error, 1)
	m := New("cat",
		func(data []byte) {
			mu.Lock()
			out.Write(data)
			mu.Unlock()
		},
		func(err error) { exited <- err },
	)
	require.NoError(t, m.Resize(120, 40))
	require.NoError(t, m.OpenFile(path))

	select {
	case err := <-exited:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("editor did not exit")
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, out.String(), "hello pty")
	assert.False(t, m.IsRunning())
	assert.Error(t, m.Write("x"))
}
