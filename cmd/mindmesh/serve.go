package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ritzau/mindmesh/pkg/config"
	"github.com/ritzau/mindmesh/pkg/controller"
	"github.com/ritzau/mindmesh/pkg/export"
	"github.com/ritzau/mindmesh/pkg/logging"
	"github.com/ritzau/mindmesh/pkg/watcher"
	"github.com/ritzau/mindmesh/pkg/web"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the interactive viewer",
		Long: `Serve the viewer with its single-topic and fusion pages.

  mindmesh serve                 # http://localhost:8080, opens a browser
  mindmesh serve --port 9000 --open=false`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			a := newApp(cfg)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			homeRenderer := a.newRenderer()
			fusionRenderer := a.newRenderer()
			defer homeRenderer.Close()
			defer fusionRenderer.Close()

			server := web.NewServer(a.theme, a.metrics,
				web.NewPage(web.PageHome, controller.NewSingle(a.client, homeRenderer, a.controllerOptions()...), homeRenderer),
				web.NewPage(web.PageFusion, controller.NewFusion(a.client, fusionRenderer, a.controllerOptions()...), fusionRenderer),
			)

			// Edits to the preferences file from elsewhere switch the theme live.
			if err := watcher.WatchFile(ctx, cfg.Preferences, watcher.ChangePreferences, a.theme); err != nil {
				logging.Warn("not watching preferences", "path", cfg.Preferences, "error", err)
			}
			configPath, _ := cmd.Flags().GetString("config")
			reloader := &configReloader{path: configPath, flags: cmd.Flags()}
			if err := watcher.WatchFile(ctx, configPath, watcher.ChangeConfig, reloader); err != nil {
				logging.Warn("not watching config", "path", configPath, "error", err)
			}

			if cfg.OpenBrowser {
				url := fmt.Sprintf("http://localhost:%d", cfg.Port)
				go func() {
					time.Sleep(500 * time.Millisecond)
					if err := export.OpenBrowser(url); err != nil {
						logging.Warn("could not open browser", "url", url, "error", err)
					}
				}()
			}

			return server.ListenAndServe(ctx, cfg.Port)
		},
	}

	cmd.Flags().Int("port", 0, "Port for the web server")
	cmd.Flags().Bool("open", true, "Open the viewer in a browser")
	return cmd
}


// configReloader re-applies the logging settings when the config file
// changes. Everything else needs a restart.
type configReloader struct {
	path  string
	flags *pflag.FlagSet
}

func (r *configReloader) Reload() error {
	cfg, err := config.LoadFile(r.path, r.flags)
	if err != nil {
		return err
	}
	setupLogging(cfg)
	logging.Info("config reloaded", "path", r.path, "verbosity", cfg.Verbosity)
	return nil
}
