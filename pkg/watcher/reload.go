package watcher

import (
	"context"
	"time"

	"github.com/ritzau/mindmesh/pkg/logging"
)

// Reloader re-reads state after its backing file changed.
type Reloader interface {
	Reload() error
}

// Handlers maps each change kind to what reloads it.
type Handlers map[ChangeKind]Reloader

// Dispatch runs the handler of every debounced event until events closes.
func Dispatch(events <-chan ChangeEvent, handlers Handlers) {
	for event := range events {
		h, ok := handlers[event.Kind]
		if !ok {
			continue
		}
		if err := h.Reload(); err != nil {
			logging.Warn("reload failed", "kind", event.Kind, "paths", len(event.Paths), "error", err)
			continue
		}
		logging.Debug("reloaded", "kind", event.Kind)
	}
}

// WatchFile reloads r whenever path changes, until ctx is done.
func WatchFile(ctx context.Context, path string, kind ChangeKind, r Reloader) error {
	fw, err := NewFileWatcher(Target{Path: path, Kind: kind})
	if err != nil {
		return err
	}
	if err := fw.Start(ctx); err != nil {
		fw.Stop()
		return err
	}

	d := NewDebouncer(fw.Events(), 100*time.Millisecond, time.Second)
	d.Start(ctx)
	go Dispatch(d.Output(), Handlers{kind: r})

	logging.Info("watching for changes", "path", path, "kind", kind)
	return nil
}
