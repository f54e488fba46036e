package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ritzau/mindmesh/pkg/logging"
)

// ChangeKind says which watched file changed.
type ChangeKind int

const (
	ChangePreferences ChangeKind = iota
	ChangeConfig
)

func (k ChangeKind) String() string {
	switch k {
	case ChangePreferences:
		return "preferences"
	case ChangeConfig:
		return "config"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ChangeEvent is a batch of changes to files of one kind.
type ChangeEvent struct {
	Kind      ChangeKind
	Paths     []string
	Timestamp time.Time
}

// Target is a file to watch.
type Target struct {
	Path string
	Kind ChangeKind
}

// FileWatcher watches individual files. It watches their directories so
// that editors replacing a file by rename are noticed too.
type FileWatcher struct {
	watcher *fsnotify.Watcher
	targets map[string]ChangeKind // cleaned path -> kind
	events  chan ChangeEvent
	once    sync.Once
}

// NewFileWatcher creates a watcher for targets. Nothing is watched until
// Start.
func NewFileWatcher(targets ...Target) (*FileWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	fw := &FileWatcher{
		watcher: w,
		targets: make(map[string]ChangeKind, len(targets)),
		events:  make(chan ChangeEvent, 100),
	}
	for _, t := range targets {
		abs, err := filepath.Abs(t.Path)
		if err != nil {
			abs = t.Path
		}
		fw.targets[filepath.Clean(abs)] = t.Kind
	}
	return fw, nil
}

// Start watches the target directories, creating missing ones, and
// forwards matching events until ctx is done.
func (fw *FileWatcher) Start(ctx context.Context) error {
	dirs := make(map[string]bool)
	for path := range fw.targets {
		dirs[filepath.Dir(path)] = true
	}
	for dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
		if err := fw.watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		logging.Debug("watching directory", "path", dir)
	}

	go fw.processEvents(ctx)
	return nil
}

func (fw *FileWatcher) processEvents(ctx context.Context) {
	defer close(fw.events)
	defer fw.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			kind, watched := fw.targets[filepath.Clean(event.Name)]
			if !watched {
				continue
			}
			logging.Trace("file changed", "path", event.Name, "op", event.Op.String())

			select {
			case fw.events <- ChangeEvent{Kind: kind, Paths: []string{event.Name}, Timestamp: time.Now()}:
			case <-ctx.Done():
				return
			}

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			logging.Error("watcher error", "error", err)
		}
	}
}

// Events returns the raw change events. It is closed when the watcher stops.
func (fw *FileWatcher) Events() <-chan ChangeEvent {
	return fw.events
}

// Stop releases the underlying watcher. It is safe to call more than once.
func (fw *FileWatcher) Stop() error {
	var err error
	fw.once.Do(func() { err = fw.watcher.Close() })
	return err
}
