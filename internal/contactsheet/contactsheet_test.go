/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package contactsheet

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"fontsamples/internal/batch"
	"fontsamples/internal/canvas"
	"fontsamples/internal/sample"

	"github.com/google/go-cmp/cmp"
)

func writePNG(t *testing.T, path string) {
	t.Helper()
	if err := canvas.New(50, 50, color.White).Save(path); err != nil {
		t.Fatalf("save png: %v", err)
	}
}

func TestBuild_WritesPDF(t *testing.T) {
	dir := t.TempDir()
	var entries []Entry
	for i := 0; i < 14; i++ {
		p := filepath.Join(dir, fmt.Sprintf("s%02d.png", i))
		writePNG(t, p)
		entries = append(entries, Entry{Image: p, Caption: fmt.Sprintf("Font Ä %d", i)})
	}
	entries = append(entries, Entry{Image: filepath.Join(dir, "missing.png"), Caption: "gone"})

	out := filepath.Join(dir, "sheets", DefaultFileName)
	if err := Build(out, entries, Options{Title: "ABCDEFGHIJKLMNOPQRSTUVWXYZ", TileWidth: 50, TileHeight: 50}); err != nil {
		t.Fatalf("build: %v", err)
	}
	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read pdf: %v", err)
	}
	if !bytes.HasPrefix(b, []byte("%PDF-")) {
		t.Fatalf("not a pdf: %q", b[:8])
	}
	// 14 square tiles in 3 columns need more than one A4 page.
	if n := bytes.Count(b, []byte("/Type /Page\n")); n < 2 {
		t.Fatalf("expected at least 2 pages, got %d", n)
	}
}

func TestBuild_NoImages(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "sheet.pdf")
	err := Build(out, []Entry{{Image: filepath.Join(dir, "nope.png")}}, Options{})
	if !errors.Is(err, ErrNoEntries) {
		t.Fatalf("expected ErrNoEntries, got %v", err)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Fatalf("pdf should not be written, stat err=%v", err)
	}
}

func TestFromReport(t *testing.T) {
	rep := batch.Report{Results: []batch.Outcome{
		{Font: "fonts/GoRegular.ttf", Output: "out/GoRegular.png", Result: sample.Result{Family: "Go"}},
		{Font: "fonts/Bad.ttf", Output: "out/Bad.png", Err: errors.New("x")},
		{Font: "fonts/Mono.ttf", Output: "out/Mono.png", Result: sample.Result{Family: "Mono"}},
	}}
	want := []Entry{
		{Image: "out/GoRegular.png", Caption: "Go (GoRegular)"},
		{Image: "out/Mono.png", Caption: "Mono"},
	}
	if diff := cmp.Diff(want, FromReport(rep)); diff != "" {
		t.Fatalf("FromReport mismatch (-want +got):\n%s", diff)
	}
}
