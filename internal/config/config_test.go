package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Data.Events != "data/contract_negotiations.csv" {
		t.Errorf("Data.Events = %q", cfg.Data.Events)
	}
	if cfg.Data.Source != SourceCSV {
		t.Errorf("Data.Source = %q", cfg.Data.Source)
	}
	if cfg.Timeline.PresentCutoff != "2025-05-30" {
		t.Errorf("Timeline.PresentCutoff = %q", cfg.Timeline.PresentCutoff)
	}
	if cfg.Timeline.IntensityOffset != 0.2 {
		t.Errorf("Timeline.IntensityOffset = %v", cfg.Timeline.IntensityOffset)
	}
	if cfg.Timeline.IntensityFloor != 0.15 {
		t.Errorf("Timeline.IntensityFloor = %v", cfg.Timeline.IntensityFloor)
	}
	if cfg.Timeline.WrapWidth != 70 {
		t.Errorf("Timeline.WrapWidth = %d", cfg.Timeline.WrapWidth)
	}
	if !cfg.Server.Watch {
		t.Error("Server.Watch should default to true")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestCutoff(t *testing.T) {
	cfg := DefaultConfig()
	got, err := cfg.Cutoff()
	if err != nil {
		t.Fatalf("Cutoff: %v", err)
	}
	want := time.Date(2025, 5, 30, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("Cutoff = %v, want %v", got, want)
	}

	cfg.Timeline.PresentCutoff = "today"
	if _, err := cfg.Cutoff(); err == nil {
		t.Error("expected error for non-date cutoff")
	}
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Data.Source = "postgres"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown source")
	}

	cfg = DefaultConfig()
	cfg.Timeline.WrapWidth = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for zero wrap width")
	}

	cfg = DefaultConfig()
	cfg.Timeline.IntensityFloor = 2
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for floor > 1")
	}
}

func TestServerTimeouts(t *testing.T) {
	s := DefaultConfig().Server
	if s.ReadTimeout() != 10*time.Second || s.WriteTimeout() != 15*time.Second {
		t.Errorf("timeouts = %v / %v", s.ReadTimeout(), s.WriteTimeout())
	}
}

func TestLoad_NoConfig(t *testing.T) {
	// Point XDG to an empty dir so no config file is found
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if strings.HasPrefix(cfg.Store.Path, "~/") {
		t.Errorf("Store.Path not expanded: %q", cfg.Store.Path)
	}
	if cfg.Store.Path != filepath.Join(home, ".local/share/bargain-timeline/events.db") {
		t.Errorf("Store.Path = %q", cfg.Store.Path)
	}
	// Relative paths are left alone.
	if cfg.Data.Events != "data/contract_negotiations.csv" {
		t.Errorf("Data.Events = %q", cfg.Data.Events)
	}
}

func writeConfig(t *testing.T, xdg, content string) {
	t.Helper()
	dir := filepath.Join(xdg, "bargain-timeline")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoad_ValidConfig(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	t.Setenv("HOME", t.TempDir())

	writeConfig(t, xdg, `[data]
events = "/srv/log.csv.zst"
groups = "/srv/groups.yaml"
source = "store"

[timeline]
present_cutoff = "2025-09-01"
wrap_width = 50

[server]
bind_addr = ":9000"
watch = false
`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Data.Events != "/srv/log.csv.zst" {
		t.Errorf("Data.Events = %q", cfg.Data.Events)
	}
	if cfg.Data.Groups != "/srv/groups.yaml" {
		t.Errorf("Data.Groups = %q", cfg.Data.Groups)
	}
	if cfg.Data.Source != SourceStore {
		t.Errorf("Data.Source = %q", cfg.Data.Source)
	}
	if cfg.Timeline.PresentCutoff != "2025-09-01" {
		t.Errorf("PresentCutoff = %q", cfg.Timeline.PresentCutoff)
	}
	if cfg.Timeline.WrapWidth != 50 {
		t.Errorf("WrapWidth = %d", cfg.Timeline.WrapWidth)
	}
	// Unset keys keep their defaults.
	if cfg.Timeline.IntensityFloor != 0.15 {
		t.Errorf("IntensityFloor = %v", cfg.Timeline.IntensityFloor)
	}
	if cfg.Server.BindAddr != ":9000" || cfg.Server.Watch {
		t.Errorf("Server = %+v", cfg.Server)
	}
}

func TestLoad_ExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)

	writeConfig(t, xdg, "[data]\nevents = \"~/data/log.csv\"\n")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	want := filepath.Join(home, "data/log.csv")
	if cfg.Data.Events != want {
		t.Errorf("Data.Events = %q, want %q", cfg.Data.Events, want)
	}
}

func TestLoad_XDGPriority(t *testing.T) {
	xdg := t.TempDir()
	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	t.Setenv("HOME", home)

	writeConfig(t, xdg, "[data]\nevents = \"/from-xdg\"\n")

	homeDir := filepath.Join(home, ".config", "bargain-timeline")
	os.MkdirAll(homeDir, 0o755)
	os.WriteFile(filepath.Join(homeDir, "config.toml"), []byte("[data]\nevents = \"/from-home\"\n"), 0o644)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Data.Events != "/from-xdg" {
		t.Errorf("Data.Events = %q, want /from-xdg (XDG should take priority)", cfg.Data.Events)
	}
}

func TestLoad_InvalidTOML(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	t.Setenv("HOME", t.TempDir())

	writeConfig(t, xdg, `[data
events = [broken`)

	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid TOML")
	}
}

func TestLoad_InvalidCutoff(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	t.Setenv("HOME", t.TempDir())

	writeConfig(t, xdg, "[timeline]\npresent_cutoff = \"May 30\"\n")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "present_cutoff") {
		t.Fatalf("expected cutoff error, got %v", err)
	}
}
