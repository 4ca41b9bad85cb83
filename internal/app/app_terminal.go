package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"

	"pagebuilder/internal/domain"
)

// ============================================================
// Embedded Terminal ($EDITOR)
// ============================================================

// editSession is a node whose copy is open in the embedded editor.
type editSession struct {
	sectionID string
	nodeID    string
	key       string
	path      string
}

// TerminalWrite sends input from xterm.js to the PTY.
func (a *App) TerminalWrite(data string) error {
	return a.term.Write(data)
}

// TerminalResize resizes the PTY.
func (a *App) TerminalResize(cols, rows int) error {
	return a.term.Resize(uint16(cols), uint16(rows))
}

// editableKey is the prop of n edited as a file, if any.
func editableKey(n *domain.Node) (string, bool) {
	keys := domain.TranslatableKeys[n.Type]
	if len(keys) == 0 {
		return "", false
	}
	return keys[0], true
}

func editFilePath(dataDir, nodeID, key string) string {
	ext := ".txt"
	if key == "html" {
		ext = ".html"
	}
	return filepath.Join(dataDir, "edit", nodeID+ext)
}

// OpenNodeInEditor writes the node's copy in the active locale to a file
// and opens it in the embedded terminal. Saves update the canvas live and
// the whole session is one undo step.
func (a *App) OpenNodeInEditor(sectionID, nodeID string) error {
	ed := a.rt.Pages.Editor()
	page := ed.Page()
	sec := page.Section(sectionID)
	if sec == nil {
		return domain.Errorf(domain.KindNotFound, "open node", "section %s", sectionID)
	}
	_, n := page.FindNode(nodeID)
	if n == nil {
		return domain.Errorf(domain.KindUnknownNode, "open node", "node %s", nodeID)
	}
	key, ok := editableKey(n)
	if !ok {
		return domain.Errorf(domain.KindInvalidInput, "open node", "%s has no text to edit", n.Type)
	}
	value, _ := domain.ResolveProp(n, key, ed.State().ActiveLocale, page.DefaultLocale).(string)

	path := editFilePath(a.cfg.DataDir, nodeID, key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create edit dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(value+"\n"), 0o644); err != nil {
		return fmt.Errorf("write edit file: %w", err)
	}

	a.onEditorExit()
	if err := ed.BeginNodeEdit(sectionID, nodeID); err != nil {
		return err
	}
	a.editMu.Lock()
	a.editing = &editSession{sectionID: sectionID, nodeID: nodeID, key: key, path: path}
	a.editMu.Unlock()

	// Start file watching for live preview
	if a.bridge != nil {
		if err := a.bridge.WatchFile(nodeID, path); err != nil {
			wailsRuntime.LogErrorf(a.ctx, "Failed to watch %s: %v", path, err)
		}
	}
	return a.term.OpenFile(path)
}

// CloseEditor closes the embedded terminal session, keeping what was
// saved so far.
func (a *App) CloseEditor() {
	a.term.Close()
	a.onEditorExit()
}

// onNodeFileChanged applies a save from the editor to the canvas.
func (a *App) onNodeFileChanged(nodeID, content string) {
	a.editMu.Lock()
	defer a.editMu.Unlock()

	s := a.editing
	if s == nil || s.nodeID != nodeID {
		return
	}
	if err := a.rt.Pages.Editor().SetProp(s.sectionID, s.nodeID, s.key, content); err != nil {
		wailsRuntime.EventsEmit(a.ctx, EventAppError, err.Error())
	}
}

// onEditorExit reads the final file content, closes the edit session and
// cleans up the file.
func (a *App) onEditorExit() {
	a.editMu.Lock()
	s := a.editing
	a.editing = nil
	a.editMu.Unlock()
	if s == nil {
		return
	}
	if a.bridge != nil {
		a.bridge.StopWatching(s.nodeID)
	}

	ed := a.rt.Pages.Editor()
	if data, err := os.ReadFile(s.path); err == nil {
		content := strings.TrimSpace(string(data))
		if err := ed.SetProp(s.sectionID, s.nodeID, s.key, content); err != nil {
			wailsRuntime.LogErrorf(a.ctx, "Failed to apply %s: %v", s.path, err)
		}
	}
	ed.EndNodeEdit()
	os.Remove(s.path)
}
