/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are read-only overrides at runtime; command line flags win over both.
//
// config_version: bump when the structure changes in a backward-incompatible way.

type SampleConfig struct {
	Text               string  `yaml:"text"`
	FontSize           int     `yaml:"font_size"`
	Width              int     `yaml:"width"`
	Height             int     `yaml:"height"`
	Background         string  `yaml:"background"`
	Foreground         string  `yaml:"foreground"`
	Padding            int     `yaml:"padding"`
	LineSpacing        float64 `yaml:"line_spacing"`
	CollapseBlankLines bool    `yaml:"collapse_blank_lines"`
}

type BatchConfig struct {
	FontsDir   string   `yaml:"fonts_dir"`
	OutputDir  string   `yaml:"output_dir"`
	Extensions []string `yaml:"extensions"`
	Workers    int      `yaml:"workers"` // 0 = one per CPU
}

type CatalogConfig struct {
	Enabled bool `yaml:"enabled"`
	// DSN is a SQLite file path or a postgres:// URL. Empty means <output_dir>/.fontsamples/catalog.sqlite.
	// The Postgres password is not stored here; it lives in the OS keychain.
	DSN string `yaml:"dsn"`
}

type ContactSheetConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
	Columns int    `yaml:"columns"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type TelemetryConfig struct {
	OptIn     bool   `yaml:"opt_in"`
	EventsURL string `yaml:"events_url"`
	CrashURL  string `yaml:"crash_url"`
}

type AppConfig struct {
	ConfigVersion int                `yaml:"config_version"`
	Sample        SampleConfig       `yaml:"sample"`
	Batch         BatchConfig        `yaml:"batch"`
	Catalog       CatalogConfig      `yaml:"catalog"`
	ContactSheet  ContactSheetConfig `yaml:"contact_sheet"`
	Logging       LoggingConfig      `yaml:"logging"`
	Telemetry     TelemetryConfig    `yaml:"telemetry"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		Sample: SampleConfig{
			Text:        "ABCDEFGHIJKLMNOPQRSTUVWXYZ",
			FontSize:    35,
			Width:       250,
			Height:      250,
			Background:  "#F8F5F0",
			Foreground:  "#000000",
			Padding:     20,
			LineSpacing: 0.2,
		},
		Batch:        BatchConfig{FontsDir: "./fonts/", OutputDir: "./output_files/", Extensions: []string{".ttf"}},
		ContactSheet: ContactSheetConfig{Columns: 3},
		Logging:      LoggingConfig{Level: "warn", Format: "auto"},
	}
}

// Env var names used as overrides.
const (
	EnvText           = "FONTSAMPLES_TEXT"
	EnvFontSize       = "FONTSAMPLES_FONT_SIZE"
	EnvFontsDir       = "FONTSAMPLES_FONTS_DIR"
	EnvOutputDir      = "FONTSAMPLES_OUTPUT_DIR"
	EnvWorkers        = "FONTSAMPLES_WORKERS"
	EnvCatalogDSN     = "FONTSAMPLES_CATALOG_DSN"
	EnvTelemetryOptIn = "FONTSAMPLES_TELEMETRY_OPT_IN"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "FONTSAMPLES_LOG_LEVEL"
	EnvLogFormat = "FONTSAMPLES_LOG_FORMAT"
	EnvLogSource = "FONTSAMPLES_LOG_SOURCE"
	EnvLogFile   = "FONTSAMPLES_LOG_FILE"
)

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "FontSamples")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "FontSamples")
	default:
		if x := os.Getenv("XDG_CONFIG_HOME"); x != "" {
			base = filepath.Join(x, "fontsamples")
		} else {
			base = filepath.Join(os.Getenv("HOME"), ".config", "fontsamples")
		}
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load applies defaults, merges the YAML file and then environment overrides.
// With path empty the per-user file is used and may be absent; an explicit path must exist.
// Syntax errors and schema violations are returned, not ignored.
func Load(path string) (AppConfig, error) {
	cfg := Defaults()
	explicit := path != ""
	if !explicit {
		p, err := ConfigPath()
		if err != nil {
			return cfg, err
		}
		path = p
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := mergeFile(&cfg, data); err != nil {
			return cfg, fmt.Errorf("config %s: %w", path, err)
		}
	case explicit || !errors.Is(err, os.ErrNotExist):
		return cfg, fmt.Errorf("read config: %w", err)
	}
	applyEnvOverrides(&cfg)
	normalize(&cfg)
	return cfg, nil
}

// Save writes the user config YAML.
func Save(path string, cfg AppConfig) error {
	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// mergeFile validates data against the schema and decodes it over cfg.
// Keys absent from the file keep their current values.
func mergeFile(cfg *AppConfig, data []byte) error {
	if err := Validate(data); err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("decode yaml: %w", err)
	}
	return nil
}

func normalize(cfg *AppConfig) {
	cfg.Logging.Level = strings.ToLower(strings.TrimSpace(cfg.Logging.Level))
	cfg.Logging.Format = strings.ToLower(strings.TrimSpace(cfg.Logging.Format))
	cfg.Logging.File = strings.TrimSpace(cfg.Logging.File)
	for i, e := range cfg.Batch.Extensions {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" && !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		cfg.Batch.Extensions[i] = e
	}
}

func parseBool(v string) bool {
	lv := strings.ToLower(strings.TrimSpace(v))
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := os.Getenv(EnvText); v != "" {
		cfg.Sample.Text = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvFontSize)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Sample.FontSize = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvFontsDir)); v != "" {
		cfg.Batch.FontsDir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvOutputDir)); v != "" {
		cfg.Batch.OutputDir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvWorkers)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Batch.Workers = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvCatalogDSN)); v != "" {
		cfg.Catalog.Enabled = true
		cfg.Catalog.DSN = v
	}
	if v := os.Getenv(EnvTelemetryOptIn); strings.TrimSpace(v) != "" {
		cfg.Telemetry.OptIn = parseBool(v)
	}
	// logging overrides
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv(EnvLogSource); strings.TrimSpace(v) != "" {
		cfg.Logging.Source = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

var envKeys = map[string]string{
	"sample.text":      EnvText,
	"sample.font_size": EnvFontSize,
	"batch.fonts_dir":  EnvFontsDir,
	"batch.output_dir": EnvOutputDir,
	"batch.workers":    EnvWorkers,
	"catalog.dsn":      EnvCatalogDSN,
	"telemetry.opt_in": EnvTelemetryOptIn,
	"logging.level":    EnvLogLevel,
	"logging.format":   EnvLogFormat,
	"logging.source":   EnvLogSource,
	"logging.file":     EnvLogFile,
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	name, ok := envKeys[key]
	if !ok || os.Getenv(name) == "" {
		return "", false
	}
	return name, true
}
