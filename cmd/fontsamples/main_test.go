/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/image/font/gofont/goregular"
)

type env struct {
	fonts string
	out   string
}

// newEnv isolates the user config and prepares a fonts dir with one good and optionally one broken font.
func newEnv(t *testing.T, broken bool) env {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("AppData", home)
	root := t.TempDir()
	e := env{fonts: filepath.Join(root, "fonts"), out: filepath.Join(root, "out")}
	if err := os.MkdirAll(e.fonts, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(e.fonts, "GoRegular.ttf"), goregular.TTF, 0o644); err != nil {
		t.Fatal(err)
	}
	if broken {
		if err := os.WriteFile(filepath.Join(e.fonts, "Broken.ttf"), []byte("nope"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return e
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_GeneratesSamples(t *testing.T) {
	e := newEnv(t, false)
	code, out, errOut := runCLI(t, "-f", e.fonts, "-o", e.out, "-v", "-i", "300x200", "--contact-sheet")
	if code != exitOK {
		t.Fatalf("exit %d\nstdout:\n%s\nstderr:\n%s", code, out, errOut)
	}
	for _, want := range []string{"Image size: 300x200", "Processing 1 font files...", "✓ Generated:", "Successfully generated: 1 samples", "Contact sheet:"} {
		if !strings.Contains(out, want) {
			t.Fatalf("stdout missing %q:\n%s", want, out)
		}
	}
	if _, err := os.Stat(filepath.Join(e.out, "GoRegular.png")); err != nil {
		t.Fatalf("sample missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(e.out, "contact_sheet.pdf")); err != nil {
		t.Fatalf("contact sheet missing: %v", err)
	}
}

func TestRun_FailingFontExitsOne(t *testing.T) {
	e := newEnv(t, true)
	code, out, _ := runCLI(t, "--fonts-dir", e.fonts, "--output-dir", e.out)
	if code != exitFail {
		t.Fatalf("exit %d, want %d\n%s", code, exitFail, out)
	}
	if !strings.Contains(out, "✗ Error processing Broken.ttf") || !strings.Contains(out, "Failed: 1 files") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if _, err := os.Stat(filepath.Join(e.out, "GoRegular.png")); err != nil {
		t.Fatalf("good font should still render: %v", err)
	}
}

func TestRun_NoFontsIsSuccess(t *testing.T) {
	e := newEnv(t, false)
	empty := t.TempDir()
	code, out, _ := runCLI(t, "-f", empty, "-o", e.out)
	if code != exitOK || !strings.Contains(out, "Warning: No .ttf files found") {
		t.Fatalf("exit %d\n%s", code, out)
	}
}

func TestRun_UsageErrors(t *testing.T) {
	e := newEnv(t, false)
	cases := [][]string{
		{"-f", e.fonts, "-o", e.out, "-s", "7"},
		{"-f", e.fonts, "-o", e.out, "-s", "501"},
		{"-f", filepath.Join(e.fonts, "missing"), "-o", e.out},
		{"--no-such-flag"},
		{"-s", "big"},
	}
	for _, args := range cases {
		code, _, errOut := runCLI(t, args...)
		if code != exitUsage {
			t.Fatalf("%v: exit %d, want %d\n%s", args, code, exitUsage, errOut)
		}
		if !strings.Contains(errOut, "error:") {
			t.Fatalf("%v: missing usage error:\n%s", args, errOut)
		}
	}
}

func TestRun_BadImageSize(t *testing.T) {
	e := newEnv(t, false)
	code, _, errOut := runCLI(t, "-f", e.fonts, "-o", e.out, "-i", "250by250")
	if code != exitFail || !strings.Contains(errOut, "WIDTHxHEIGHT") {
		t.Fatalf("exit %d\n%s", code, errOut)
	}
}

func TestRun_HelpAndVersion(t *testing.T) {
	newEnv(t, false)
	code, out, _ := runCLI(t, "--help")
	if code != exitOK || !strings.Contains(out, "--font-size") {
		t.Fatalf("help: exit %d\n%s", code, out)
	}
	code, out, _ = runCLI(t, "--version")
	if code != exitOK || !strings.HasPrefix(out, "fontsamples ") {
		t.Fatalf("version: exit %d\n%s", code, out)
	}
}

func TestRun_ConfigFileAndFlagPrecedence(t *testing.T) {
	e := newEnv(t, false)
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	body := "sample:\n  width: 320\n  height: 90\n  font_size: 60\nbatch:\n  fonts_dir: " + e.fonts + "\n  output_dir: " + e.out + "\n"
	if err := os.WriteFile(cfgPath, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	code, out, errOut := runCLI(t, "--config", cfgPath, "-v", "-s", "40")
	if code != exitOK {
		t.Fatalf("exit %d\n%s\n%s", code, out, errOut)
	}
	if !strings.Contains(out, "Image size: 320x90") || !strings.Contains(out, "Font size: 40") {
		t.Fatalf("config or flag not applied:\n%s", out)
	}
}

func TestRun_InvalidConfigFile(t *testing.T) {
	newEnv(t, false)
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("sample:\n  font_size: \"large\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if code, _, errOut := runCLI(t, "--config", cfgPath); code != exitFail {
		t.Fatalf("exit %d\n%s", code, errOut)
	}
}

func TestRun_CatalogAndHistory(t *testing.T) {
	e := newEnv(t, true)
	code, out, _ := runCLI(t, "history", "-o", e.out)
	if code != exitOK || !strings.Contains(out, "No catalog") {
		t.Fatalf("history before any run: exit %d\n%s", code, out)
	}

	if code, out, errOut := runCLI(t, "-f", e.fonts, "-o", e.out, "--catalog"); code != exitFail {
		t.Fatalf("run: exit %d\n%s\n%s", code, out, errOut)
	}
	code, out, errOut := runCLI(t, "-o", e.out, "history", "--limit", "5")
	if code != exitOK {
		t.Fatalf("history: exit %d\n%s", code, errOut)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "ID") || !strings.Contains(lines[1], "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		t.Fatalf("unexpected history:\n%s", out)
	}

	code, out, _ = runCLI(t, "-o", e.out, "history", "--run", "1")
	if code != exitOK || !strings.Contains(out, "Broken.ttf") || !strings.Contains(out, "GoRegular.ttf") {
		t.Fatalf("run samples: exit %d\n%s", code, out)
	}
}

func TestParseImageSize(t *testing.T) {
	w, h, err := parseImageSize("640X480")
	if err != nil || w != 640 || h != 480 {
		t.Fatalf("got %d %d %v", w, h, err)
	}
	for _, bad := range []string{"", "250", "0x10", "10x-1", "1x2x3", "axb"} {
		if _, _, err := parseImageSize(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}
