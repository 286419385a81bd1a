/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package catalog

import (
	"context"
	"fmt"
	"time"

	"fontsamples/internal/batch"
	"fontsamples/internal/version"
)

// Settings are the sample parameters shared by every font of a run.
type Settings struct {
	Text      string
	FontSize  int
	Width     int
	Height    int
	OutputDir string
}

// Run is one recorded batch.
type Run struct {
	ID        int64
	Started   time.Time
	Finished  time.Time
	App       string
	Settings  Settings
	Succeeded int
	Failed    int
}

// Sample is one font of a run.
type Sample struct {
	ID       int64
	RunID    int64
	Font     string
	Family   string
	Output   string
	FontSize int
	Lines    int
	Duration time.Duration
	Error    string
}

func (s Sample) OK() bool { return s.Error == "" }

// FromReport converts a batch report into catalog rows.
func FromReport(rep batch.Report, s Settings) (Run, []Sample) {
	run := Run{
		Started:   rep.Started,
		Finished:  rep.Finished,
		App:       version.String(),
		Settings:  s,
		Succeeded: rep.Succeeded,
		Failed:    rep.Failed,
	}
	samples := make([]Sample, 0, len(rep.Results))
	for _, o := range rep.Results {
		smp := Sample{Font: o.Font, Output: o.Output}
		if o.Err != nil {
			smp.Error = o.Err.Error()
		} else {
			smp.Family = o.Result.Family
			smp.FontSize = o.Result.FontSize
			smp.Lines = o.Result.Lines
			smp.Duration = o.Result.Duration
		}
		samples = append(samples, smp)
	}
	return run, samples
}

// Insert stores a run and its samples in one transaction and returns the run id.
func (c *Catalog) Insert(ctx context.Context, run Run, samples []Sample) (int64, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var id int64
	err = tx.QueryRowContext(ctx, c.d.rebind(`INSERT INTO runs
		(started_at, finished_at, app, text, font_size, width, height, output_dir, succeeded, failed)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`),
		formatTime(run.Started), formatTime(run.Finished), run.App, run.Settings.Text, run.Settings.FontSize,
		run.Settings.Width, run.Settings.Height, run.Settings.OutputDir, run.Succeeded, run.Failed,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, c.d.rebind(`INSERT INTO samples
		(run_id, font, family, output, font_size, lines, duration_ms, error)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return 0, fmt.Errorf("prepare sample insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()
	for _, s := range samples {
		if _, err := stmt.ExecContext(ctx, id, s.Font, s.Family, s.Output, s.FontSize, s.Lines, s.Duration.Milliseconds(), s.Error); err != nil {
			return 0, fmt.Errorf("insert sample %s: %w", s.Font, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit run: %w", err)
	}
	return id, nil
}

// Runs returns the most recent runs, newest first. limit <= 0 means 20.
func (c *Catalog) Runs(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := c.db.QueryContext(ctx, c.d.rebind(`SELECT id, started_at, finished_at, app, text, font_size, width, height, output_dir, succeeded, failed
		FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []Run
	for rows.Next() {
		var (
			r                 Run
			started, finished string
		)
		if err := rows.Scan(&r.ID, &started, &finished, &r.App, &r.Settings.Text, &r.Settings.FontSize,
			&r.Settings.Width, &r.Settings.Height, &r.Settings.OutputDir, &r.Succeeded, &r.Failed); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Started = parseTime(started)
		r.Finished = parseTime(finished)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Samples returns the samples of a run in insertion order.
func (c *Catalog) Samples(ctx context.Context, runID int64) ([]Sample, error) {
	rows, err := c.db.QueryContext(ctx, c.d.rebind(`SELECT id, run_id, font, family, output, font_size, lines, duration_ms, error
		FROM samples WHERE run_id=? ORDER BY id`), runID)
	if err != nil {
		return nil, fmt.Errorf("query samples: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []Sample
	for rows.Next() {
		var (
			s  Sample
			ms int64
		)
		if err := rows.Scan(&s.ID, &s.RunID, &s.Font, &s.Family, &s.Output, &s.FontSize, &s.Lines, &ms, &s.Error); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		s.Duration = time.Duration(ms) * time.Millisecond
		out = append(out, s)
	}
	return out, rows.Err()
}

// Recorder adapts the catalog to batch.Recorder for a fixed set of settings.
func (c *Catalog) Recorder(s Settings) batch.Recorder {
	return recorder{c: c, s: s}
}

type recorder struct {
	c *Catalog
	s Settings
}

func (r recorder) Record(ctx context.Context, rep batch.Report) error {
	run, samples := FromReport(rep, r.s)
	// The batch context may already be canceled; the history should still be written.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	_, err := r.c.Insert(ctx, run, samples)
	return err
}

// timeLayout has a fixed-width fraction so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
