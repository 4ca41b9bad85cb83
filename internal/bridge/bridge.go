package bridge

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// ContentChangedHandler is called when a watched file changes on disk.
type ContentChangedHandler func(id string, content string)

// Bridge streams edits made in an external editor back into the app by
// watching the files it writes. Editors that save through a temp file
// and rename show up as Create events, so both Write and Create count.
type Bridge struct {
	watcher  *fsnotify.Watcher
	onChange ContentChangedHandler

	mu       sync.RWMutex
	watching map[string]string // filePath -> id
	last     map[string]string // filePath -> last content delivered
	dirs     map[string]int    // watched dir -> files in it
	done     chan struct{}
}

// New creates a bridge and starts its watch loop.
func New(onChange ContentChangedHandler) (*Bridge, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	b := &Bridge{
		watcher:  watcher,
		onChange: onChange,
		watching: make(map[string]string),
		last:     make(map[string]string),
		dirs:     make(map[string]int),
		done:     make(chan struct{}),
	}
	go b.watchLoop()
	return b, nil
}

// WatchFile starts watching filePath on behalf of id. The current content
// is taken as the baseline and is not reported.
func (b *Bridge) WatchFile(id, filePath string) error {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return err
	}
	baseline, _ := os.ReadFile(absPath)
	dir := filepath.Dir(absPath)

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.watching[absPath]; !ok {
		// fsnotify watches dirs for file events
		if b.dirs[dir] == 0 {
			if err := b.watcher.Add(dir); err != nil {
				return fmt.Errorf("watch %s: %w", dir, err)
			}
		}
		b.dirs[dir]++
	}
	b.watching[absPath] = id
	b.last[absPath] = strings.TrimSpace(string(baseline))
	return nil
}

// StopWatching stops watching the files registered for id.
func (b *Bridge) StopWatching(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for path, watched := range b.watching {
		if watched != id {
			continue
		}
		delete(b.watching, path)
		delete(b.last, path)
		dir := filepath.Dir(path)
		if b.dirs[dir]--; b.dirs[dir] <= 0 {
			delete(b.dirs, dir)
			if err := b.watcher.Remove(dir); err != nil {
				log.Printf("bridge: unwatch %s: %v", dir, err)
			}
		}
	}
}

// Close stops the watcher.
func (b *Bridge) Close() error {
	err := b.watcher.Close()
	<-b.done
	return err
}

func (b *Bridge) watchLoop() {
	defer close(b.done)
	for {
		select {
		case event, ok := <-b.watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				b.deliver(event.Name)
			}
		case err, ok := <-b.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("bridge: watcher error: %v", err)
		}
	}
}

func (b *Bridge) deliver(name string) {
	absPath, _ := filepath.Abs(name)
	b.mu.RLock()
	id, watched := b.watching[absPath]
	b.mu.RUnlock()
	if !watched {
		return
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		log.Printf("bridge: read file %s: %v", absPath, err)
		return
	}
	content := strings.TrimSpace(string(data))
	if content == "" {
		// a truncate seen before the write lands; the final read on
		// editor exit still picks up a file that was really emptied
		return
	}

	b.mu.Lock()
	if _, still := b.watching[absPath]; !still || b.last[absPath] == content {
		b.mu.Unlock()
		return
	}
	b.last[absPath] = content
	b.mu.Unlock()

	if b.onChange != nil {
		b.onChange(id, content)
	}
}
