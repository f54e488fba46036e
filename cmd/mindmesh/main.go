package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ritzau/mindmesh/pkg/config"
	"github.com/ritzau/mindmesh/pkg/controller"
	"github.com/ritzau/mindmesh/pkg/export"
	"github.com/ritzau/mindmesh/pkg/forcegraph"
	"github.com/ritzau/mindmesh/pkg/generate"
	"github.com/ritzau/mindmesh/pkg/logging"
	"github.com/ritzau/mindmesh/pkg/metrics"
	"github.com/ritzau/mindmesh/pkg/output"
	"github.com/ritzau/mindmesh/pkg/preferences"
	"github.com/ritzau/mindmesh/pkg/render"
)

var version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		output.PrintError(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "mindmesh",
		Short:         "Explore cognitive maps of any topic",
		Long:          "mindmesh asks a generation service for a cognitive map of a topic, or a fusion\nof two topics, and shows it as an interactive force-directed graph.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.String("config", config.FileName, "Path to the config file")
	flags.String("api-url", "", "Base URL of the generation service")
	flags.String("complexity", "", "Complexity: beginner, intermediate or expert")
	flags.Duration("request-timeout", 0, "Timeout for generation requests")
	flags.String("preferences", "", "Path to the preferences file")
	flags.String("out-dir", "", "Directory for exported images")
	flags.Int("width", 0, "Graph viewport width")
	flags.Int("height", 0, "Graph viewport height")
	flags.CountP("verbose", "v", "Increase log verbosity (-v debug, -vv trace)")
	flags.String("verbosity", "", "Log level: trace, debug, info, warn or error")
	flags.Bool("json-logs", false, "Log as JSON")

	cmd.AddCommand(
		serveCmd(),
		mapCmd(),
		fuseCmd(),
		themeCmd(),
	)
	return cmd
}

// loadConfig layers the config file, environment and the command's flags,
// then sets up logging.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadFile(path, cmd.Flags())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	setupLogging(cfg)
	logging.Debug("config loaded", "api_url", cfg.APIURL, "preferences", cfg.Preferences)
	return cfg, nil
}

func setupLogging(cfg *config.Config) {
	level := logging.LevelFromVerbosity(cfg.Verbosity, cfg.VerboseCnt)
	if cfg.JSONLogs {
		logging.SetJSONOutput(level)
	} else {
		logging.SetLevel(level)
	}
}

// app holds the components shared by every command.
type app struct {
	cfg     *config.Config
	metrics *metrics.Collector
	client  *generate.Client
	theme   *preferences.Theme
}

func newApp(cfg *config.Config) *app {
	collector := metrics.NewCollector("mindmesh")
	return &app{
		cfg:     cfg,
		metrics: collector,
		client: generate.NewClient(cfg.APIURL,
			generate.WithTimeout(cfg.RequestTimeout),
			generate.WithObserver(collector),
		),
		theme: preferences.NewTheme(preferences.NewFileStore(cfg.Preferences)),
	}
}

func (a *app) newRenderer() *render.Renderer {
	opts := forcegraph.DefaultOptions()
	opts.Width = float64(a.cfg.Width)
	opts.Height = float64(a.cfg.Height)
	return render.NewRenderer(opts, forcegraph.WithTickObserver(a.metrics))
}

func (a *app) controllerOptions() []controller.Option {
	return []controller.Option{
		controller.WithDarkMode(a.theme.Dark()),
		controller.WithDownloader(export.FileDownloader{Dir: a.cfg.OutDir}),
	}
}
