package export

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/ritzau/mindmesh/pkg/logging"
)

// Printer hands a document to whatever prints it.
type Printer interface {
	Print(ctx context.Context, doc Document) error
}

// PrinterFunc adapts a function to Printer.
type PrinterFunc func(ctx context.Context, doc Document) error

// Print calls f.
func (f PrinterFunc) Print(ctx context.Context, doc Document) error {
	return f(ctx, doc)
}

// BrowserPrinter writes the document to a temporary page that prints itself
// on load and opens it in the system browser.
type BrowserPrinter struct {
	// Dir holds the page, os.TempDir() when empty.
	Dir string
	// Open shows the page, OpenBrowser when nil.
	Open func(url string) error
}

// Print implements Printer.
func (p BrowserPrinter) Print(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f, err := os.CreateTemp(p.Dir, "cognitive-map-*.html")
	if err != nil {
		return fmt.Errorf("failed to create print page: %w", err)
	}
	if err := doc.WriteHTML(f, true); err != nil {
		f.Close()
		return fmt.Errorf("failed to render print page: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write print page: %w", err)
	}

	open := p.Open
	if open == nil {
		open = OpenBrowser
	}
	url := "file://" + filepath.ToSlash(f.Name())
	logging.InfoContext(ctx, "opening print page", "url", url)
	return open(url)
}

// FilePrinter writes the printable page to Path.
type FilePrinter struct {
	Path string
}

// Print implements Printer.
func (p FilePrinter) Print(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if dir := filepath.Dir(p.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	f, err := os.Create(p.Path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", p.Path, err)
	}
	defer f.Close()
	if err := doc.WriteHTML(f, false); err != nil {
		return fmt.Errorf("failed to render document: %w", err)
	}
	logging.InfoContext(ctx, "saved printable document", "path", p.Path)
	return nil
}

// OpenBrowser opens url with the platform's default handler.
func OpenBrowser(url string) error {
	var cmd string
	var args []string

	switch runtime.GOOS {
	case "darwin":
		cmd = "open"
		args = []string{url}
	case "linux":
		cmd = "xdg-open"
		args = []string{url}
	case "windows":
		cmd = "cmd"
		args = []string{"/c", "start", url}
	default:
		return fmt.Errorf("cannot open browser on platform: %s", runtime.GOOS)
	}

	if err := exec.Command(cmd, args...).Start(); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	return nil
}
