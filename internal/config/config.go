package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const appName = "bargain-timeline"

// Source values for DataConfig.Source.
const (
	SourceCSV   = "csv"
	SourceStore = "store"
)

// Config holds all bargain-timeline configuration.
type Config struct {
	Data     DataConfig     `toml:"data"`
	Timeline TimelineConfig `toml:"timeline"`
	Store    StoreConfig    `toml:"store"`
	Archive  ArchiveConfig  `toml:"archive"`
	Server   ServerConfig   `toml:"server"`
}

type DataConfig struct {
	Events    string `toml:"events"`    // change log CSV (may be .zst)
	Summaries string `toml:"summaries"` // optional Article,Topic,Summary table
	Groups    string `toml:"groups"`    // optional YAML classification
	Source    string `toml:"source"`    // "csv" or "store"
}

type TimelineConfig struct {
	PresentCutoff   string  `toml:"present_cutoff"`
	IntensityOffset float64 `toml:"intensity_offset"`
	IntensityFloor  float64 `toml:"intensity_floor"`
	WrapWidth       int     `toml:"wrap_width"`
}

type StoreConfig struct {
	Path string `toml:"path"`
}

type ArchiveConfig struct {
	Dir      string `toml:"dir"`
	OnImport bool   `toml:"on_import"`
}

type ServerConfig struct {
	BindAddr            string `toml:"bind_addr"`
	ReadTimeoutSeconds  int    `toml:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `toml:"write_timeout_seconds"`
	Watch               bool   `toml:"watch"`
}

// DefaultConfig returns config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Data: DataConfig{
			Events: "data/contract_negotiations.csv",
			Source: SourceCSV,
		},
		Timeline: TimelineConfig{
			PresentCutoff:   "2025-05-30",
			IntensityOffset: 0.2,
			IntensityFloor:  0.15,
			WrapWidth:       70,
		},
		Store: StoreConfig{
			Path: "~/.local/share/bargain-timeline/events.db",
		},
		Archive: ArchiveConfig{
			Dir:      "~/.local/share/bargain-timeline/archive",
			OnImport: true,
		},
		Server: ServerConfig{
			BindAddr:            "127.0.0.1:8050",
			ReadTimeoutSeconds:  10,
			WriteTimeoutSeconds: 15,
			Watch:               true,
		},
	}
}

// Load reads config from the standard path, falling back to defaults.
func Load() (Config, error) {
	cfg := DefaultConfig()

	for _, p := range configPaths() {
		if _, err := os.Stat(p); err == nil {
			if _, err := toml.DecodeFile(p, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", p, err)
			}
			break
		}
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	cfg.Data.Events = expandHome(cfg.Data.Events)
	cfg.Data.Summaries = expandHome(cfg.Data.Summaries)
	cfg.Data.Groups = expandHome(cfg.Data.Groups)
	cfg.Store.Path = expandHome(cfg.Store.Path)
	cfg.Archive.Dir = expandHome(cfg.Archive.Dir)

	return cfg, nil
}

// Validate checks values that would otherwise fail later in confusing ways.
func (c Config) Validate() error {
	if _, err := c.Cutoff(); err != nil {
		return err
	}
	switch c.Data.Source {
	case SourceCSV, SourceStore:
	default:
		return fmt.Errorf("data.source must be %q or %q, got %q", SourceCSV, SourceStore, c.Data.Source)
	}
	if c.Timeline.WrapWidth <= 0 {
		return fmt.Errorf("timeline.wrap_width must be positive")
	}
	if c.Timeline.IntensityFloor < 0 || c.Timeline.IntensityFloor > 1 {
		return fmt.Errorf("timeline.intensity_floor must be within [0, 1]")
	}
	return nil
}

// Cutoff parses the present cutoff date.
func (c Config) Cutoff() (time.Time, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(c.Timeline.PresentCutoff))
	if err != nil {
		return time.Time{}, fmt.Errorf("timeline.present_cutoff %q: want YYYY-MM-DD", c.Timeline.PresentCutoff)
	}
	return t, nil
}

// ReadTimeout returns the HTTP read timeout.
func (s ServerConfig) ReadTimeout() time.Duration {
	return time.Duration(s.ReadTimeoutSeconds) * time.Second
}

// WriteTimeout returns the HTTP write timeout.
func (s ServerConfig) WriteTimeout() time.Duration {
	return time.Duration(s.WriteTimeoutSeconds) * time.Second
}

func configPaths() []string {
	var paths []string

	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		paths = append(paths, filepath.Join(xdg, appName, "config.toml"))
	}

	home, _ := os.UserHomeDir()
	if home != "" {
		paths = append(paths, filepath.Join(home, ".config", appName, "config.toml"))
	}

	return paths
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
