// Package config loads patchwork.toml and the PATCHWORK_* environment
// overlay. Command-line flags are applied on top by the CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"

	"github.com/valoeghese/patchwork-patcher/internal/trace"
)

// FileName is the config file looked up from the working directory upward.
const FileName = "patchwork.toml"

// UI modes.
const (
	UIAuto = "auto"
	UIOn   = "on"
	UIOff  = "off"
)

// Config is the merged configuration.
type Config struct {
	Transform Transform `toml:"transform"`
	Trace     Trace     `toml:"trace"`
	UI        UI        `toml:"ui"`

	// Path is the file the config was read from, empty when none was found.
	Path string `toml:"-"`
}

type Transform struct {
	Jobs             int      `toml:"jobs" env:"PATCHWORK_JOBS"`
	ReservedPrefixes []string `toml:"reserved_prefixes" env:"PATCHWORK_RESERVED_PREFIXES" envSeparator:","`
	Cache            bool     `toml:"cache" env:"PATCHWORK_CACHE"`
	CacheDir         string   `toml:"cache_dir" env:"PATCHWORK_CACHE_DIR"`
}

type Trace struct {
	Level  string `toml:"level" env:"PATCHWORK_TRACE_LEVEL"`
	Mode   string `toml:"mode" env:"PATCHWORK_TRACE_MODE"`
	Output string `toml:"output" env:"PATCHWORK_TRACE_OUTPUT"`
}

type UI struct {
	Mode string `toml:"mode" env:"PATCHWORK_UI"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Transform: Transform{
			ReservedPrefixes: []string{"java", "net/minecraft"},
			Cache:            true,
		},
		Trace: Trace{Level: "off", Mode: "stream", Output: "-"},
		UI:    UI{Mode: UIAuto},
	}
}

// Find walks up from startDir to locate patchwork.toml.
func Find(startDir string) (path string, ok bool, err error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Load builds the configuration: defaults, then the file (explicit path, or
// the one found from startDir), then the environment.
func Load(startDir, explicit string) (Config, error) {
	cfg := Default()

	path := explicit
	if path == "" {
		found, ok, err := Find(startDir)
		if err != nil {
			return cfg, err
		}
		if ok {
			path = found
		}
	}
	if path != "" {
		if err := decodeFile(path, &cfg); err != nil {
			return cfg, err
		}
		cfg.Path = path
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		if cfg.Path != "" {
			return cfg, fmt.Errorf("%s: %w", cfg.Path, err)
		}
		return cfg, err
	}
	return cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		return fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	return nil
}

// Validate checks values that the decoders cannot.
func (c Config) Validate() error {
	if c.Transform.Jobs < 0 {
		return fmt.Errorf("transform.jobs must not be negative, got %d", c.Transform.Jobs)
	}
	for _, p := range c.Transform.ReservedPrefixes {
		if strings.TrimSpace(p) == "" {
			return errors.New("transform.reserved_prefixes must not contain empty entries")
		}
	}
	if _, err := trace.ParseLevel(c.Trace.Level); err != nil {
		return err
	}
	if _, err := trace.ParseMode(c.Trace.Mode); err != nil {
		return err
	}
	switch c.UI.Mode {
	case UIAuto, UIOn, UIOff:
	default:
		return fmt.Errorf("invalid ui mode: %q (expected: auto|on|off)", c.UI.Mode)
	}
	return nil
}
