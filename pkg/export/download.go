package export

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ritzau/mindmesh/pkg/logging"
)

// Downloader delivers exported bytes under a filename.
type Downloader interface {
	Download(filename string, data []byte) error
}

// DownloaderFunc adapts a function to Downloader.
type DownloaderFunc func(filename string, data []byte) error

// Download calls f.
func (f DownloaderFunc) Download(filename string, data []byte) error {
	return f(filename, data)
}

// FileDownloader saves downloads into Dir.
type FileDownloader struct {
	Dir string
}

// Download writes data to Dir/filename. Only the base of filename is used.
func (d FileDownloader) Download(filename string, data []byte) error {
	dir := d.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create download directory: %w", err)
	}
	path := filepath.Join(dir, filepath.Base(filename))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	logging.Info("saved export", "path", path, "bytes", len(data))
	return nil
}
