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
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/zalando/go-keyring"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestLoad_DefaultsWhenUserFileMissing(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", "")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if diff := cmp.Diff(Defaults(), cfg); diff != "" {
		t.Fatalf("defaults mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing explicit config")
	}
}

func TestLoad_MergesFileOverDefaults(t *testing.T) {
	p := writeConfig(t, `
config_version: 1
sample:
  text: "Hamburgefonstiv"
  font_size: 48
  background: "#fff"
batch:
  extensions: ["TTF", ".otf"]
  workers: 2
catalog:
  enabled: true
contact_sheet:
  enabled: true
  columns: 4
logging:
  level: DEBUG
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	want := Defaults()
	want.Sample.Text = "Hamburgefonstiv"
	want.Sample.FontSize = 48
	want.Sample.Background = "#fff"
	want.Batch.Extensions = []string{".ttf", ".otf"}
	want.Batch.Workers = 2
	want.Catalog.Enabled = true
	want.ContactSheet = ContactSheetConfig{Enabled: true, Columns: 4}
	want.Logging.Level = "debug"
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("merged config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_SchemaViolation(t *testing.T) {
	p := writeConfig(t, "sample:\n  font_size: 4\n  colour: red\n")
	_, err := Load(p)
	var se *SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
	if len(se.Problems) < 2 {
		t.Fatalf("expected both problems reported, got %v", se.Problems)
	}
}

func TestLoad_YAMLSyntaxError(t *testing.T) {
	p := writeConfig(t, "sample: [unclosed\n")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected yaml error")
	}
}

func TestValidate_EmptyDocument(t *testing.T) {
	if err := Validate([]byte("\n# nothing here\n")); err != nil {
		t.Fatalf("empty document should be valid: %v", err)
	}
}

func TestValidate_BadColor(t *testing.T) {
	if err := Validate([]byte("sample:\n  foreground: chartreuse\n")); err == nil {
		t.Fatalf("expected color pattern violation")
	}
}

func TestEnvOverrides(t *testing.T) {
	p := writeConfig(t, "batch:\n  output_dir: from-file\n")
	t.Setenv(EnvOutputDir, "from-env")
	t.Setenv(EnvWorkers, "3")
	t.Setenv(EnvCatalogDSN, "postgres://u@h/db")
	t.Setenv(EnvTelemetryOptIn, "yes")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Batch.OutputDir != "from-env" || cfg.Batch.Workers != 3 {
		t.Fatalf("batch overrides not applied: %#v", cfg.Batch)
	}
	if !cfg.Catalog.Enabled || cfg.Catalog.DSN != "postgres://u@h/db" {
		t.Fatalf("catalog override not applied: %#v", cfg.Catalog)
	}
	if !cfg.Telemetry.OptIn {
		t.Fatalf("telemetry opt-in expected from env")
	}
	if name, ok := EnvOverrideFor("batch.output_dir"); !ok || name != EnvOutputDir {
		t.Fatalf("EnvOverrideFor = %q, %v", name, ok)
	}
	if _, ok := EnvOverrideFor("sample.width"); ok {
		t.Fatalf("sample.width has no env override")
	}
}

func TestEnvOverridesLogging(t *testing.T) {
	t.Setenv(EnvLogLevel, "ERROR")
	t.Setenv(EnvLogFormat, "json")
	t.Setenv(EnvLogSource, "1")
	t.Setenv(EnvLogFile, "X:/fontsamples.log")
	cfg, err := Load(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Logging.Level != "error" || cfg.Logging.Format != "json" || !cfg.Logging.Source || cfg.Logging.File != "X:/fontsamples.log" {
		t.Fatalf("env overrides not applied to logging: %#v", cfg.Logging)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	p := filepath.Join(t.TempDir(), "sub", "config.yaml")
	cfg := Defaults()
	cfg.Sample.Text = "Quick brown fox"
	cfg.ContactSheet.Enabled = true
	if err := Save(p, cfg); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	got, err := Load(p)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if diff := cmp.Diff(cfg, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestCatalogPassword_Keyring(t *testing.T) {
	keyring.MockInit()
	if pw, err := CatalogPassword(); err != nil || pw != "" {
		t.Fatalf("missing entry: pw=%q err=%v", pw, err)
	}
	if err := SetCatalogPassword("s3cret"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if pw, err := CatalogPassword(); err != nil || pw != "s3cret" {
		t.Fatalf("pw=%q err=%v", pw, err)
	}
	if err := SetCatalogPassword(""); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := SetCatalogPassword(""); err != nil {
		t.Fatalf("second delete should be a no-op: %v", err)
	}
}

type failingStore struct{ err error }

func (f failingStore) Get(string, string) (string, error) { return "", f.err }
func (f failingStore) Set(string, string, string) error   { return f.err }
func (f failingStore) Delete(string, string) error        { return f.err }

func TestCatalogPassword_StoreError(t *testing.T) {
	old := tokenStore
	tokenStore = failingStore{err: errors.New("no secret service")}
	t.Cleanup(func() { tokenStore = old })
	if _, err := CatalogPassword(); err == nil {
		t.Fatalf("expected keyring error to surface")
	}
}
