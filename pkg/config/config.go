package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix prefixes every environment override (e.g. MINDMESH_API_URL).
const EnvPrefix = "MINDMESH_"

// FileName is the optional config file looked up in the working directory.
const FileName = "mindmesh.toml"

// Config holds all configuration for the application
type Config struct {
	APIURL         string        `koanf:"api_url"`
	Port           int           `koanf:"port"`
	OpenBrowser    bool          `koanf:"open"`
	Complexity     string        `koanf:"complexity"`
	Width          int           `koanf:"width"`
	Height         int           `koanf:"height"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
	Preferences    string        `koanf:"preferences"`
	OutDir         string        `koanf:"out_dir"`
	Verbosity      string        `koanf:"verbosity"`
	VerboseCnt     int           `koanf:"verbose"`
	JSONLogs       bool          `koanf:"json_logs"`
}

// Defaults returns the built-in configuration values.
func Defaults() map[string]interface{} {
	return map[string]interface{}{
		"api_url":         "http://localhost:8000",
		"port":            8080,
		"open":            true,
		"complexity":      "intermediate",
		"width":           1100,
		"height":          700,
		"request_timeout": "120s",
		"preferences":     DefaultPreferencesPath(),
		"out_dir":         ".",
		"verbosity":       "",
		"verbose":         0,
		"json_logs":       false,
	}
}

// Load loads configuration from defaults, config file, environment variables, and flags.
// Priority: Flags > Env > Config File > Defaults
func Load(f *pflag.FlagSet) (*Config, error) {
	return LoadFile(FileName, f)
}

// LoadFile is Load with an explicit config file path.
func LoadFile(path string, f *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(makeMapProvider(Defaults()), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// The file is optional; only a present but broken file is an error.
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
	}

	// MINDMESH_API_URL -> api_url. Keys are flat, so underscores are kept.
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if f != nil {
		if err := k.Load(posflag.ProviderWithFlag(f, ".", k, flagKey(f)), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// flagKey maps dashed flag names (--api-url) onto the snake_case config
// keys (api_url).
func flagKey(f *pflag.FlagSet) func(*pflag.Flag) (string, interface{}) {
	return func(fl *pflag.Flag) (string, interface{}) {
		return strings.ReplaceAll(fl.Name, "-", "_"), posflag.FlagVal(f, fl)
	}
}

// Validate rejects values no component can work with.
func (c *Config) Validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("api_url must not be empty")
	}
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("viewport must be positive, got %dx%d", c.Width, c.Height)
	}
	switch c.Complexity {
	case "beginner", "intermediate", "expert":
	default:
		return fmt.Errorf("complexity must be one of beginner, intermediate, expert, got %q", c.Complexity)
	}
	return nil
}

// DefaultPreferencesPath is preferences.toml under the XDG config dir.
func DefaultPreferencesPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "mindmesh", "preferences.toml")
}

// Helper to use map as a provider
type mapProvider struct {
	m map[string]interface{}
}

func makeMapProvider(m map[string]interface{}) *mapProvider {
	return &mapProvider{m: m}
}

func (p *mapProvider) Read() (map[string]interface{}, error) {
	return p.m, nil
}

func (p *mapProvider) ReadBytes() ([]byte, error) {
	return nil, fmt.Errorf("not implemented")
}
