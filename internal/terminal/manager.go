package terminal

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/creack/pty"
)

var errNoSession = errors.New("no active terminal session")

// fallbackDirs are probed when the editor is not on PATH. GUI apps on
// macOS start with a minimal PATH.
func fallbackDirs() []string {
	dirs := []string{
		"/opt/homebrew/bin",
		"/usr/local/bin",
		"/run/current-system/sw/bin",
	}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".local", "bin"), filepath.Join(home, ".nix-profile", "bin"))
	}
	return dirs
}

// resolveEditor returns an absolute path for name when one can be found,
// otherwise name itself so exec reports the failure.
func resolveEditor(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	if p, err := exec.LookPath(name); err == nil {
		return p
	}
	for _, dir := range fallbackDirs() {
		p := filepath.Join(dir, name)
		if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
			return p
		}
	}
	return name
}

// resolveShellPath asks the login shell for its PATH so editor plugins
// find their tools. Empty when the shell cannot be run.
func resolveShellPath() string {
	sh := os.Getenv("SHELL")
	if sh == "" {
		sh = "/bin/zsh"
	}
	out, err := exec.Command(sh, "-lc", "echo $PATH").Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

// editorCommand splits an $EDITOR value such as "code --wait" into the
// binary and its leading arguments.
func editorCommand(value string) (string, []string) {
	fields := strings.Fields(value)
	if len(fields) == 0 {
		return "nvim", nil
	}
	return fields[0], fields[1:]
}

// buildEnv returns a copy of base with PATH set to shellPath (when known)
// and the terminal capabilities xterm.js supports.
func buildEnv(base []string, shellPath string) []string {
	env := slices.Clone(base)
	if shellPath != "" {
		i := slices.IndexFunc(env, func(e string) bool { return strings.HasPrefix(e, "PATH=") })
		if i >= 0 {
			env[i] = "PATH=" + shellPath
		} else {
			env = append(env, "PATH="+shellPath)
		}
	}
	return append(env, "TERM=xterm-256color", "COLORTERM=truecolor")
}

// session is one editor process attached to a PTY.
type session struct {
	pty *os.File
	cmd *exec.Cmd
}

func (s *session) kill() {
	if s.cmd.Process != nil {
		s.cmd.Process.Kill()
	}
}

// Manager runs the user's $EDITOR in a PTY so node copy can be edited
// outside the canvas. One session at a time.
type Manager struct {
	mu        sync.Mutex
	cur       *session
	editor    string
	shellPath string
	size      pty.Winsize // applied to the next session too

	onData func(data []byte)
	onExit func(err error)
}

// New creates a terminal manager for the editor named by $EDITOR, or
// nvim when unset. editorOverride takes precedence when non-empty.
func New(editorOverride string, onData func(data []byte), onExit func(err error)) *Manager {
	editor := editorOverride
	if editor == "" {
		editor = os.Getenv("EDITOR")
	}
	return &Manager{
		editor:    editor,
		shellPath: resolveShellPath(),
		size:      pty.Winsize{Cols: 80, Rows: 24},
		onData:    onData,
		onExit:    onExit,
	}
}

// OpenFile starts the editor on filePath, replacing a running session.
func (m *Manager) OpenFile(filePath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopLocked()

	name, args := editorCommand(m.editor)
	cmd := exec.Command(resolveEditor(name), append(args, filePath)...)
	cmd.Env = buildEnv(os.Environ(), m.shellPath)

	size := m.size
	f, err := pty.StartWithSize(cmd, &size)
	if err != nil {
		return fmt.Errorf("start pty: %w", err)
	}
	s := &session{pty: f, cmd: cmd}
	m.cur = s
	go m.pump(s)
	return nil
}

// pump forwards PTY output until the editor exits.
func (m *Manager) pump(s *session) {
	buf := make([]byte, 32*1024)
	for {
		n, err := s.pty.Read(buf)
		if n > 0 && m.onData != nil {
			m.onData(slices.Clone(buf[:n]))
		}
		if err != nil {
			break
		}
	}
	waitErr := s.cmd.Wait()
	s.pty.Close()

	m.mu.Lock()
	current := m.cur == s
	if current {
		m.cur = nil
	}
	m.mu.Unlock()

	// a session replaced by OpenFile or killed by Close reports nothing
	if current && m.onExit != nil {
		m.onExit(waitErr)
	}
}

// Write sends keystrokes from xterm.js to the editor.
func (m *Manager) Write(data string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cur == nil {
		return errNoSession
	}
	_, err := io.WriteString(m.cur.pty, data)
	return err
}

// Resize sets the PTY window size, now and for later sessions.
func (m *Manager) Resize(cols, rows uint16) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.size = pty.Winsize{Cols: cols, Rows: rows}
	if m.cur == nil {
		return nil
	}
	size := m.size
	return pty.Setsize(m.cur.pty, &size)
}

func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cur != nil
}

// Close kills the current session.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
}

func (m *Manager) stopLocked() {
	if m.cur != nil {
		m.cur.kill()
		m.cur = nil
	}
}
