package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/ritzau/mindmesh/pkg/controller"
	"github.com/ritzau/mindmesh/pkg/export"
	"github.com/ritzau/mindmesh/pkg/output"
	"github.com/ritzau/mindmesh/pkg/render"
)

type exportFlags struct {
	png   bool
	doc   string
	print bool
}

func (f *exportFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.png, "png", false, "Save the laid out graph as a PNG in out-dir")
	cmd.Flags().StringVar(&f.doc, "doc", "", "Save the printable document to this path")
	cmd.Flags().BoolVar(&f.print, "print", false, "Open the printable document in a browser")
}

func mapCmd() *cobra.Command {
	var ef exportFlags
	cmd := &cobra.Command{
		Use:   "map <topic>",
		Short: "Generate the cognitive map of a topic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, false, controller.Request{Topic: args[0]}, ef)
		},
	}
	ef.register(cmd)
	return cmd
}

func fuseCmd() *cobra.Command {
	var ef exportFlags
	cmd := &cobra.Command{
		Use:   "fuse <topic-a> <topic-b>",
		Short: "Generate a fusion map of two topics",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, true, controller.Request{TopicA: args[0], TopicB: args[1]}, ef)
		},
	}
	ef.register(cmd)
	return cmd
}

func runGenerate(cmd *cobra.Command, fusion bool, req controller.Request, ef exportFlags) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	a := newApp(cfg)
	req.Complexity = cfg.Complexity

	r := a.newRenderer()
	defer r.Close()

	var c *controller.Controller
	if fusion {
		c = controller.NewFusion(a.client, r, a.controllerOptions()...)
	} else {
		c = controller.NewSingle(a.client, r, a.controllerOptions()...)
	}

	ctx := cmd.Context()
	snap, err := c.Generate(ctx, req)
	if err != nil {
		if snap.Error != "" {
			return errors.New(snap.Error)
		}
		return err
	}
	output.PrintMapReport(os.Stdout, snap.Map)

	if ef.png {
		waitForLayout(ctx, r, 10*time.Second)
		if err := c.ExportImage(nil); err != nil {
			return err
		}
		output.PrintSaved(os.Stdout, "Image", filepath.Join(cfg.OutDir, c.ImageFilename()))
	}
	if ef.doc != "" {
		if err := c.ExportDocument(ctx, export.FilePrinter{Path: ef.doc}); err != nil {
			return err
		}
		output.PrintSaved(os.Stdout, "Document", ef.doc)
	}
	if ef.print {
		if err := c.ExportDocument(ctx, nil); err != nil {
			return err
		}
	}
	return nil
}

// waitForLayout blocks until the simulation cools down or timeout passes.
func waitForLayout(ctx context.Context, r *render.Renderer, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for r.Simulating() {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
