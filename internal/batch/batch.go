/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package batch discovers font files and renders one sample per font with a bounded
// worker pool.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	applog "fontsamples/internal/log"
	"fontsamples/internal/sample"

	"golang.org/x/sync/errgroup"
)

var DefaultExtensions = []string{".ttf"}

// Discover lists the regular files in dir whose extension matches one of exts
// (case-insensitive). It does not recurse. The result is sorted by name.
func Discover(dir string, exts []string) ([]string, error) {
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	want := make(map[string]bool, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		want[e] = true
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read fonts dir: %w", err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !want[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}

// Generator renders a single sample. *sample.Generator implements it.
type Generator interface {
	Generate(ctx context.Context, fontPath, outputPath string) (sample.Result, error)
}

// Recorder persists a finished batch.
type Recorder interface {
	Record(ctx context.Context, rep Report) error
}

// Outcome is the result of one font.
type Outcome struct {
	Font   string
	Output string
	Result sample.Result
	Err    error
}

func (o Outcome) OK() bool { return o.Err == nil }

// Report summarizes a batch. Results keep the order of the input fonts.
type Report struct {
	Started   time.Time
	Finished  time.Time
	Results   []Outcome
	Succeeded int
	Failed    int
}

func (r Report) OK() bool                { return r.Failed == 0 }
func (r Report) Duration() time.Duration { return r.Finished.Sub(r.Started) }

type Runner struct {
	Generator Generator
	OutputDir string
	// Workers bounds the number of fonts rendered at once. Zero means runtime.NumCPU().
	Workers  int
	Recorder Recorder
}

// Run renders every font. A failing font never stops the others. Once ctx is done no
// further fonts are started; those are reported as failed with the context error.
func (r *Runner) Run(ctx context.Context, fonts []string) Report {
	l := applog.WithOperation(applog.WithComponent("batch"), "run")
	rep := Report{Started: time.Now(), Results: make([]Outcome, len(fonts))}

	workers := r.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	l.Info("batch started", slog.Int("fonts", len(fonts)), slog.Int("workers", workers), slog.String("output_dir", r.OutputDir))

	// Workers never return an error, so the group context is never canceled by a sibling.
	var g errgroup.Group
	g.SetLimit(workers)
	for i, font := range fonts {
		out := sample.OutputPath(r.OutputDir, font)
		rep.Results[i] = Outcome{Font: font, Output: out}
		if err := ctx.Err(); err != nil {
			rep.Results[i].Err = err
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				rep.Results[i].Err = err
				return nil
			}
			res, err := r.Generator.Generate(ctx, font, out)
			if err != nil {
				l.Error("font failed", slog.String("font", filepath.Base(font)), slog.Any("err", err))
				rep.Results[i].Err = err
				return nil
			}
			rep.Results[i].Result = res
			return nil
		})
	}
	_ = g.Wait()

	for _, o := range rep.Results {
		if o.OK() {
			rep.Succeeded++
		} else {
			rep.Failed++
		}
	}
	rep.Finished = time.Now()
	l.Info("batch finished",
		slog.Int("succeeded", rep.Succeeded),
		slog.Int("failed", rep.Failed),
		slog.Duration("dur", rep.Duration()))

	if r.Recorder != nil {
		if err := r.Recorder.Record(ctx, rep); err != nil {
			l.Warn("recording batch failed", slog.Any("err", err))
		}
	}
	return rep
}
