package editor

import (
	"log"
	"strings"
)

// Focus says where keyboard focus is when a key is pressed.
type Focus int

const (
	FocusCanvas Focus = iota
	FocusTextField
	FocusContentEditable
)

// KeyEvent is a key press forwarded by the renderer. Mod is Cmd on macOS
// and Ctrl elsewhere.
type KeyEvent struct {
	Key   string `json:"key"`
	Mod   bool   `json:"mod"`
	Shift bool   `json:"shift"`
	Focus Focus  `json:"focus"`
}

// HandleKey runs the builder shortcut for ev and reports whether it was
// consumed. Keys pressed in text inputs or editable content are never
// consumed so the input keeps its native behavior. Failures are logged
// and leave the document unchanged.
func (e *Editor) HandleKey(ev KeyEvent) bool {
	if ev.Focus != FocusCanvas {
		return false
	}
	if e.State().Editing {
		return false
	}
	key := ev.Key
	if len(key) == 1 {
		key = strings.ToLower(key)
	}
	switch {
	case ev.Mod && key == "c":
		logKeyErr("copy", e.CopySelected())
		return true
	case ev.Mod && key == "v":
		_, err := e.PasteClipboard()
		logKeyErr("paste", err)
		return true
	case ev.Mod && key == "z" && ev.Shift, ev.Mod && key == "y":
		logKeyErr("redo", e.Redo())
		return true
	case ev.Mod && key == "z":
		logKeyErr("undo", e.Undo())
		return true
	case !ev.Mod && (key == "Delete" || key == "Backspace"):
		sel := e.Selection()
		if sel == nil || sel.NodeID == "" {
			return false
		}
		logKeyErr("delete", e.DeleteNode(sel.SectionID, sel.NodeID))
		return true
	}
	return false
}

func logKeyErr(op string, err error) {
	if err != nil {
		log.Printf("editor: shortcut %s: %v", op, err)
	}
}
