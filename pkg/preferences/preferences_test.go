package preferences

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mindmesh", "preferences.toml")
	s := NewFileStore(path)

	p, err := s.Load()
	if err != nil {
		t.Fatalf("Load of missing file: %v", err)
	}
	if p.DarkMode {
		t.Error("missing file should default to light")
	}

	if err := s.Save(Preferences{DarkMode: true}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), "dark_mode = true") {
		t.Errorf("file content = %q", data)
	}

	p, err = s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !p.DarkMode {
		t.Error("dark mode not persisted")
	}
}

func TestFileStoreRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preferences.toml")
	if err := os.WriteFile(path, []byte("dark_mode = [oops"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFileStore(path).Load(); err == nil {
		t.Error("expected parse error")
	}
}

func TestThemeNotifiesOnChangeOnly(t *testing.T) {
	store := &MemoryStore{}
	theme := NewTheme(store)

	var got []bool
	theme.Subscribe(func(dark bool) { got = append(got, dark) })

	if err := theme.SetDark(false); err != nil {
		t.Fatal(err)
	}
	dark, err := theme.Toggle()
	if err != nil {
		t.Fatal(err)
	}
	if !dark || !theme.Dark() {
		t.Error("toggle did not turn dark mode on")
	}

	if len(got) != 1 || !got[0] {
		t.Errorf("notifications = %v, want [true]", got)
	}
	if store.Saves() != 2 {
		t.Errorf("saves = %d, want 2", store.Saves())
	}
}

func TestThemeReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preferences.toml")
	store := NewFileStore(path)
	theme := NewTheme(store)

	if err := os.WriteFile(path, []byte("dark_mode = true\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := theme.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if !theme.Dark() {
		t.Error("reload did not pick up external edit")
	}
}
