package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ConfigDir returns the bargain-timeline config directory path.
// Uses $XDG_CONFIG_HOME/bargain-timeline if set, otherwise ~/.config/bargain-timeline.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", appName)
}

// WriteDefault writes a default config.toml pointing at eventsPath.
// Returns the config file path. Skips if config.toml already exists.
func WriteDefault(eventsPath string) (string, error) {
	dir := ConfigDir()
	path := filepath.Join(dir, "config.toml")

	if _, err := os.Stat(path); err == nil {
		return path, nil // already exists
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}

	d := DefaultConfig()
	content := fmt.Sprintf(`[data]
events = %q
summaries = ""
groups = ""
source = %q

[timeline]
present_cutoff = %q
intensity_offset = %g
intensity_floor = %g
wrap_width = %d

[store]
path = %q

[archive]
dir = %q
on_import = %t

[server]
bind_addr = %q
read_timeout_seconds = %d
write_timeout_seconds = %d
watch = %t
`, CompressHome(eventsPath), d.Data.Source,
		d.Timeline.PresentCutoff, d.Timeline.IntensityOffset, d.Timeline.IntensityFloor, d.Timeline.WrapWidth,
		d.Store.Path, d.Archive.Dir, d.Archive.OnImport,
		d.Server.BindAddr, d.Server.ReadTimeoutSeconds, d.Server.WriteTimeoutSeconds, d.Server.Watch)

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write config: %w", err)
	}

	return path, nil
}

// CompressHome replaces $HOME prefix with ~/ for portable config values.
func CompressHome(path string) string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return path
	}
	if strings.HasPrefix(path, home+"/") {
		return "~/" + path[len(home)+1:]
	}
	if path == home {
		return "~"
	}
	return path
}
