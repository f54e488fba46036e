package controller

import (
	"bytes"
	"context"
	"fmt"

	"github.com/ritzau/mindmesh/pkg/export"
	"github.com/ritzau/mindmesh/pkg/logging"
)

// ImageFilename is the download name for the current request.
func (c *Controller) ImageFilename() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.v.image(c.request)
}

// ExportImage rasterises the drawn graph on white and hands it to d, or to
// the page's downloader when d is nil.
func (c *Controller) ExportImage(d export.Downloader) error {
	c.mu.Lock()
	ok := c.state == Success && c.current != nil
	name := c.v.image(c.request)
	c.mu.Unlock()
	if !ok {
		return ErrNoMap
	}

	frame, drawn := c.renderer.Frame()
	if !drawn {
		return ErrNoMap
	}

	var buf bytes.Buffer
	if err := export.RenderPNG(&buf, frame, c.png); err != nil {
		return fmt.Errorf("failed to render image: %w", err)
	}
	if d == nil {
		d = c.downloader
	}
	if err := d.Download(name, buf.Bytes()); err != nil {
		return err
	}
	logging.Debug("image exported", "filename", name, "bytes", buf.Len())
	return nil
}

// ExportDocument builds the printable document of the current map and
// hands it to p, or to the page's printer when p is nil.
func (c *Controller) ExportDocument(ctx context.Context, p export.Printer) error {
	c.mu.Lock()
	m := c.current
	ok := c.state == Success && m != nil
	c.mu.Unlock()
	if !ok {
		return ErrNoMap
	}

	if p == nil {
		p = c.printer
	}
	return p.Print(ctx, export.BuildDocument(m))
}
