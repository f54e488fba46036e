package preferences

import (
	"sync"

	"github.com/ritzau/mindmesh/pkg/logging"
)

// Theme is the current dark-mode flag, loaded from and saved to a Store.
// Listeners are told about every change.
type Theme struct {
	store Store

	mu        sync.Mutex
	dark      bool
	listeners []func(dark bool)
}

// NewTheme loads the initial value from store. A store that fails to load
// leaves the theme light.
func NewTheme(store Store) *Theme {
	t := &Theme{store: store}
	p, err := store.Load()
	if err != nil {
		logging.Warn("failed to load preferences, using defaults", "error", err)
	}
	t.dark = p.DarkMode
	return t
}

// Dark reports whether dark mode is on.
func (t *Theme) Dark() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dark
}

// Subscribe registers fn for theme changes.
func (t *Theme) Subscribe(fn func(dark bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.listeners = append(t.listeners, fn)
}

// SetDark saves and applies dark.
func (t *Theme) SetDark(dark bool) error {
	if err := t.store.Save(Preferences{DarkMode: dark}); err != nil {
		return err
	}
	t.apply(dark)
	return nil
}

// Toggle flips dark mode and returns the new value.
func (t *Theme) Toggle() (bool, error) {
	dark := !t.Dark()
	return dark, t.SetDark(dark)
}

// Reload re-reads the store, for edits made outside the program.
func (t *Theme) Reload() error {
	p, err := t.store.Load()
	if err != nil {
		return err
	}
	t.apply(p.DarkMode)
	return nil
}

func (t *Theme) apply(dark bool) {
	t.mu.Lock()
	if t.dark == dark {
		t.mu.Unlock()
		return
	}
	t.dark = dark
	listeners := append([]func(bool){}, t.listeners...)
	t.mu.Unlock()

	logging.Info("theme changed", "dark", dark)
	for _, fn := range listeners {
		fn(dark)
	}
}
