package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ritzau/mindmesh/pkg/preferences"
)

func TestFileWatcherFiltersTargets(t *testing.T) {
	dir := t.TempDir()
	prefs := filepath.Join(dir, "preferences.toml")
	other := filepath.Join(dir, "notes.txt")

	fw, err := NewFileWatcher(Target{Path: prefs, Kind: ChangePreferences})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := fw.Start(ctx); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(other, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(prefs, []byte("dark_mode = true\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case event := <-fw.Events():
		if event.Kind != ChangePreferences {
			t.Errorf("kind = %v", event.Kind)
		}
		if len(event.Paths) != 1 || filepath.Base(event.Paths[0]) != "preferences.toml" {
			t.Errorf("paths = %v", event.Paths)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no event for watched file")
	}
}

func TestFileWatcherCreatesMissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mindmesh", "preferences.toml")
	fw, err := NewFileWatcher(Target{Path: path, Kind: ChangePreferences})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := fw.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Dir(path)); err != nil {
		t.Errorf("directory not created: %v", err)
	}
}

func TestDebouncerMergesBurst(t *testing.T) {
	input := make(chan ChangeEvent)
	d := NewDebouncer(input, 30*time.Millisecond, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	for i := 0; i < 5; i++ {
		input <- ChangeEvent{Kind: ChangePreferences, Paths: []string{"p"}}
	}
	input <- ChangeEvent{Kind: ChangeConfig, Paths: []string{"c"}}

	var got []ChangeEvent
	timeout := time.After(time.Second)
	for len(got) < 2 {
		select {
		case event := <-d.Output():
			got = append(got, event)
		case <-timeout:
			t.Fatalf("got %d batches, want 2", len(got))
		}
	}
	if got[0].Kind != ChangePreferences || len(got[0].Paths) != 5 {
		t.Errorf("first batch = %+v", got[0])
	}
	if got[1].Kind != ChangeConfig || len(got[1].Paths) != 1 {
		t.Errorf("second batch = %+v", got[1])
	}

	select {
	case event := <-d.Output():
		t.Errorf("unexpected extra batch %+v", event)
	case <-time.After(80 * time.Millisecond):
	}
}

func TestDebouncerMaxWait(t *testing.T) {
	input := make(chan ChangeEvent)
	d := NewDebouncer(input, 50*time.Millisecond, 120*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	// Keep the quiet period from ever elapsing.
	stop := time.After(400 * time.Millisecond)
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case event := <-d.Output():
			if len(event.Paths) == 0 {
				t.Error("empty batch")
			}
			return
		case <-ticker.C:
			input <- ChangeEvent{Kind: ChangePreferences, Paths: []string{"p"}}
		case <-stop:
			t.Fatal("max wait never flushed")
		}
	}
}

func TestDebouncerFlushesOnClose(t *testing.T) {
	input := make(chan ChangeEvent, 1)
	d := NewDebouncer(input, time.Hour, time.Hour)
	d.Start(context.Background())

	input <- ChangeEvent{Kind: ChangePreferences, Paths: []string{"p"}}
	close(input)

	event, ok := <-d.Output()
	if !ok || event.Kind != ChangePreferences {
		t.Fatalf("event = %+v, ok = %v", event, ok)
	}
	if _, ok := <-d.Output(); ok {
		t.Error("output not closed")
	}
}

type countingReloader struct {
	calls chan struct{}
}

func (r *countingReloader) Reload() error {
	r.calls <- struct{}{}
	return nil
}

func TestDispatchRoutesByKind(t *testing.T) {
	events := make(chan ChangeEvent, 3)
	prefs := &countingReloader{calls: make(chan struct{}, 3)}

	events <- ChangeEvent{Kind: ChangePreferences}
	events <- ChangeEvent{Kind: ChangeConfig}
	events <- ChangeEvent{Kind: ChangePreferences}
	close(events)

	Dispatch(events, Handlers{ChangePreferences: prefs})

	if got := len(prefs.calls); got != 2 {
		t.Errorf("reloads = %d, want 2", got)
	}
}

func TestWatchFileReloadsTheme(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preferences.toml")
	store := preferences.NewFileStore(path)
	theme := preferences.NewTheme(store)

	changed := make(chan bool, 4)
	theme.Subscribe(func(dark bool) { changed <- dark })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := WatchFile(ctx, path, ChangePreferences, theme); err != nil {
		t.Fatal(err)
	}

	// Another process flips the preference.
	if err := preferences.NewFileStore(path).Save(preferences.Preferences{DarkMode: true}); err != nil {
		t.Fatal(err)
	}

	select {
	case dark := <-changed:
		if !dark {
			t.Error("theme not switched to dark")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("theme not reloaded")
	}
}
