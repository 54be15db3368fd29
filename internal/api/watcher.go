package api

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FileChangeType indicates what type of change occurred.
type FileChangeType string

const (
	FileChangeCreated  FileChangeType = "created"
	FileChangeModified FileChangeType = "modified"
	FileChangeDeleted  FileChangeType = "deleted"
)

// FileChangeKind indicates what the watched tree holds.
type FileChangeKind string

const (
	// FileChangeKindContent is a site file in a local directory source.
	FileChangeKindContent FileChangeKind = "content"
	// FileChangeKindRef is a branch ref in a local git clone.
	FileChangeKindRef     FileChangeKind = "ref"
	FileChangeKindUnknown FileChangeKind = "unknown"
)

// FileChange represents a file system change notification.
type FileChange struct {
	Type FileChangeType `json:"type"`
	Kind FileChangeKind `json:"kind"`
	Path string         `json:"path"` // Relative to the watched root
}

// FileWatcherSubscriber receives file change notifications.
type FileWatcherSubscriber interface {
	OnFileChange(change FileChange)
}

// FileWatcher watches a directory tree and notifies subscribers.
type FileWatcher struct {
	watcher     *fsnotify.Watcher
	root        string
	kind        FileChangeKind
	mu          sync.RWMutex
	subscribers []FileWatcherSubscriber
	debounce    map[string]*time.Timer
	debounceMu  sync.Mutex
	stopCh      chan struct{}
	stopped     bool // Once stopped, cannot restart
	running     bool
}

// NewFileWatcher creates a watcher for root whose changes are reported as kind.
func NewFileWatcher(root string, kind FileChangeKind) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &FileWatcher{
		watcher:  watcher,
		root:     root,
		kind:     kind,
		debounce: make(map[string]*time.Timer),
		stopCh:   make(chan struct{}),
	}, nil
}

// Root returns the watched directory.
func (fw *FileWatcher) Root() string {
	return fw.root
}

// Subscribe adds a subscriber to receive file change notifications.
func (fw *FileWatcher) Subscribe(sub FileWatcherSubscriber) {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	fw.subscribers = append(fw.subscribers, sub)
}

// Unsubscribe removes a subscriber.
func (fw *FileWatcher) Unsubscribe(sub FileWatcherSubscriber) {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	for i, s := range fw.subscribers {
		if s == sub {
			fw.subscribers = append(fw.subscribers[:i], fw.subscribers[i+1:]...)
			return
		}
	}
}

// Start begins watching.
func (fw *FileWatcher) Start() error {
	fw.mu.Lock()
	if fw.running {
		fw.mu.Unlock()
		return nil
	}
	if fw.stopped {
		fw.mu.Unlock()
		return fmt.Errorf("file watcher cannot be restarted after stop")
	}
	fw.running = true
	fw.mu.Unlock()

	if err := fw.addWatchesRecursive(fw.root); err != nil {
		return err
	}

	go fw.run()
	return nil
}

// Stop stops watching for changes.
func (fw *FileWatcher) Stop() error {
	fw.mu.Lock()
	if !fw.running || fw.stopped {
		fw.mu.Unlock()
		return nil
	}
	fw.running = false
	fw.stopped = true
	fw.mu.Unlock()

	// Pending timers must not fire after stop
	fw.debounceMu.Lock()
	for path, timer := range fw.debounce {
		timer.Stop()
		delete(fw.debounce, path)
	}
	fw.debounceMu.Unlock()

	close(fw.stopCh)
	return fw.watcher.Close()
}

// addWatchesRecursive adds watches to a directory and its subdirectories,
// skipping hidden ones below the root.
func (fw *FileWatcher) addWatchesRecursive(dir string) error {
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("cannot watch %s: %w", dir, err)
	}

	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // Vanished mid-walk
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && isIgnored(d.Name()) {
			return filepath.SkipDir
		}
		if err := fw.watcher.Add(path); err != nil {
			log.Printf("Warning: failed to watch %s: %v", path, err)
		}
		return nil
	})
}

func (fw *FileWatcher) run() {
	for {
		select {
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			fw.handleEvent(event)

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("File watcher error: %v", err)

		case <-fw.stopCh:
			return
		}
	}
}

// isIgnored reports whether a file or directory name is editor or git scratch.
func isIgnored(name string) bool {
	return strings.HasPrefix(name, ".") ||
		strings.HasSuffix(name, "~") ||
		strings.HasSuffix(name, ".lock") ||
		strings.HasSuffix(name, ".swp")
}

func (fw *FileWatcher) handleEvent(event fsnotify.Event) {
	if isIgnored(filepath.Base(event.Name)) {
		return
	}

	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			fw.addWatchesRecursive(event.Name)
		}
	}

	// Debounce: wait 100ms before emitting to coalesce rapid changes
	fw.debounceMu.Lock()
	if timer, exists := fw.debounce[event.Name]; exists {
		timer.Stop()
	}
	fw.debounce[event.Name] = time.AfterFunc(100*time.Millisecond, func() {
		fw.emitChange(event)
		fw.debounceMu.Lock()
		delete(fw.debounce, event.Name)
		fw.debounceMu.Unlock()
	})
	fw.debounceMu.Unlock()
}

func (fw *FileWatcher) emitChange(event fsnotify.Event) {
	// Debounce timer may fire after Stop
	fw.mu.RLock()
	if fw.stopped {
		fw.mu.RUnlock()
		return
	}
	subs := make([]FileWatcherSubscriber, len(fw.subscribers))
	copy(subs, fw.subscribers)
	fw.mu.RUnlock()

	change := fw.classifyChange(event)
	if change.Kind == FileChangeKindUnknown {
		return
	}

	for _, sub := range subs {
		sub.OnFileChange(change)
	}
}

func (fw *FileWatcher) classifyChange(event fsnotify.Event) FileChange {
	relPath, err := filepath.Rel(fw.root, event.Name)
	if err != nil || relPath == "." || strings.HasPrefix(relPath, "..") {
		return FileChange{Kind: FileChangeKindUnknown}
	}

	change := FileChange{
		Kind: fw.kind,
		Path: filepath.ToSlash(relPath),
	}

	switch {
	case event.Op&fsnotify.Create != 0:
		change.Type = FileChangeCreated
	case event.Op&fsnotify.Write != 0:
		change.Type = FileChangeModified
	case event.Op&fsnotify.Remove != 0:
		change.Type = FileChangeDeleted
	case event.Op&fsnotify.Rename != 0:
		change.Type = FileChangeDeleted // Rename source is effectively deleted
	default:
		return FileChange{Kind: FileChangeKindUnknown}
	}

	return change
}
