package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"

	"presentat/internal/logger"
)

const (
	DefaultDebounceDelay     = 500 * time.Millisecond
	DefaultConversionTimeout = 60 * time.Second
	DefaultPreviewAddr       = "127.0.0.1:0"
)

// Config holds every tunable of the application
type Config struct {
	Converter ConverterConfig `toml:"converter"`
	Preview   PreviewConfig   `toml:"preview"`
	Editor    EditorConfig    `toml:"editor"`
	Log       LogConfig       `toml:"log"`
}

type ConverterConfig struct {
	// Path to the marp executable; empty means search PATH
	Path            string   `toml:"path"`
	AllowLocalFiles bool     `toml:"allow_local_files"`
	Timeout         Duration `toml:"timeout"`
}

type PreviewConfig struct {
	Addr string `toml:"addr"`
}

type EditorConfig struct {
	DebounceDelay Duration `toml:"debounce_delay"`
	WatchOpenFile bool     `toml:"watch_open_file"`
}

type LogConfig struct {
	Level string `toml:"level"`
	JSON  bool   `toml:"json"`
}

// Duration lets TOML files spell durations as "500ms"
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		Converter: ConverterConfig{
			AllowLocalFiles: true,
			Timeout:         Duration{DefaultConversionTimeout},
		},
		Preview: PreviewConfig{Addr: DefaultPreviewAddr},
		Editor: EditorConfig{
			DebounceDelay: Duration{DefaultDebounceDelay},
			WatchOpenFile: true,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load resolves defaults, then the TOML file, then environment overrides.
// A missing config file is not an error.
func Load() (Config, error) {
	cfg := Default()

	path := FilePath()
	if path != "" {
		if err := cfg.MergeFile(path); err != nil {
			return cfg, err
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// FilePath returns PRESENTAT_CONFIG or <user config dir>/presentat/config.toml
func FilePath() string {
	if p := os.Getenv("PRESENTAT_CONFIG"); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "presentat", "config.toml")
}

// MergeFile overlays values present in the TOML file at path
func (c *Config) MergeFile(path string) error {
	_, err := toml.DecodeFile(path, c)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays environment variables using lookup
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("PRESENTAT_MARP"); ok && v != "" {
		c.Converter.Path = v
	}
	if v, ok := lookup("PRESENTAT_ALLOW_LOCAL_FILES"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("PRESENTAT_ALLOW_LOCAL_FILES: %w", err)
		}
		c.Converter.AllowLocalFiles = b
	}
	if v, ok := lookup("PRESENTAT_DEBOUNCE"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("PRESENTAT_DEBOUNCE: %w", err)
		}
		c.Editor.DebounceDelay = Duration{d}
	}
	if v, ok := lookup("PRESENTAT_PREVIEW_ADDR"); ok && v != "" {
		c.Preview.Addr = v
	}
	if v, ok := lookup("LOG_LEVEL"); ok && v != "" {
		c.Log.Level = v
	} else if v, ok := lookup("DEBUG"); ok && v == "1" {
		c.Log.Level = "debug"
	}
	if v, ok := lookup("PRESENTAT_JSON_LOGS"); ok {
		c.Log.JSON = v == "true"
	}
	return nil
}

// Validate rejects values the application cannot run with
func (c Config) Validate() error {
	if c.Editor.DebounceDelay.Duration <= 0 {
		return fmt.Errorf("debounce delay must be positive, got %s", c.Editor.DebounceDelay)
	}
	if c.Converter.Timeout.Duration <= 0 {
		return fmt.Errorf("conversion timeout must be positive, got %s", c.Converter.Timeout)
	}
	if c.Preview.Addr == "" {
		return errors.New("preview address must not be empty")
	}
	return nil
}

// LogLevel returns the configured level for the logger package
func (c Config) LogLevel() logger.LogLevel {
	return logger.ParseLevel(c.Log.Level)
}

// NewLogger builds the logger selected by the configuration
func (c Config) NewLogger() logger.Logger {
	if c.Log.JSON {
		return logger.NewJSONLogger(c.LogLevel())
	}
	return logger.NewConsoleLogger(c.LogLevel())
}
