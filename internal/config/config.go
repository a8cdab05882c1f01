// Package config loads reconciler settings: built-in defaults, then an
// optional YAML file, then environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ctpnav/reconciler/internal/calendar"
	"github.com/ctpnav/reconciler/internal/domain"
	"github.com/ctpnav/reconciler/internal/ingestion"
)

// EnvConfigPath names the variable holding the YAML file path.
const EnvConfigPath = "RECONCILER_CONFIG"

// Config defines a reconciler run and the HTTP server.
type Config struct {
	Layout ingestion.Layout `yaml:"layout"`

	RawDir       string `yaml:"raw_dir"`
	Extension    string `yaml:"extension"`
	Workers      int    `yaml:"workers"`
	Start        string `yaml:"start"`
	End          string `yaml:"end"`
	CalendarFile string `yaml:"calendar_file"`
	RebateFile   string `yaml:"rebate_file"`

	OutputDir string `yaml:"output_dir"`
	PDF       bool   `yaml:"pdf"`

	DBPath   string `yaml:"db_path"`
	Persist  bool   `yaml:"persist"`
	HTTPAddr string `yaml:"http_addr"`
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		Layout:    ingestion.DefaultLayout(),
		RawDir:    filepath.FromSlash("data/raw"),
		Extension: ".txt",
		Workers:   runtime.NumCPU(),
		OutputDir: filepath.FromSlash("data/output"),
		DBPath:    "reconciler.db",
		HTTPAddr:  ":8080",
	}
}

// Load builds the configuration. path overrides RECONCILER_CONFIG; when both
// are empty only defaults and environment apply.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.RawDir = getenvDefault("RECONCILER_RAW_DIR", cfg.RawDir)
	cfg.Extension = getenvDefault("RECONCILER_EXTENSION", cfg.Extension)
	cfg.Workers = getenvIntDefault("RECONCILER_WORKERS", cfg.Workers)
	cfg.Start = getenvDefault("RECONCILER_START", cfg.Start)
	cfg.End = getenvDefault("RECONCILER_END", cfg.End)
	cfg.CalendarFile = getenvDefault("RECONCILER_CALENDAR", cfg.CalendarFile)
	cfg.RebateFile = getenvDefault("RECONCILER_REBATES", cfg.RebateFile)
	cfg.OutputDir = getenvDefault("RECONCILER_OUTPUT_DIR", cfg.OutputDir)
	cfg.PDF = getenvBoolDefault("RECONCILER_PDF", cfg.PDF)
	cfg.DBPath = getenvDefault("DB_PATH", cfg.DBPath)
	cfg.Persist = getenvBoolDefault("RECONCILER_PERSIST", cfg.Persist)
	cfg.Layout.Tolerance = getenvFloatDefault("RECONCILER_TOLERANCE", cfg.Layout.Tolerance)
	if port := os.Getenv("PORT"); port != "" {
		cfg.HTTPAddr = ":" + port
	}
	cfg.HTTPAddr = getenvDefault("RECONCILER_HTTP_ADDR", cfg.HTTPAddr)

	if !strings.HasPrefix(cfg.Extension, ".") {
		cfg.Extension = "." + cfg.Extension
	}
	return cfg, cfg.Validate()
}

// Validate checks the combined settings.
func (c Config) Validate() error {
	var errs []error
	if err := c.Layout.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Workers < 1 {
		errs = append(errs, errors.New("config: workers must be positive"))
	}
	if _, err := c.Range(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Tolerance is the reconciliation epsilon.
func (c Config) Tolerance() float64 { return c.Layout.Tolerance }

// Range returns the configured date range; empty bounds are open.
func (c Config) Range() (calendar.Range, error) {
	var r calendar.Range
	var err error
	if r.Start, err = optionalDate(c.Start); err != nil {
		return r, fmt.Errorf("config: start: %w", err)
	}
	if r.End, err = optionalDate(c.End); err != nil {
		return r, fmt.Errorf("config: end: %w", err)
	}
	if !r.Start.IsZero() && !r.End.IsZero() && r.End.Before(r.Start) {
		return r, fmt.Errorf("config: end %s before start %s", c.End, c.Start)
	}
	return r, nil
}

func optionalDate(s string) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return time.Time{}, nil
	}
	return domain.ParseDate(s)
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvFloatDefault(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvBoolDefault(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
