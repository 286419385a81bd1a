/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"fontsamples/internal/catalog"
	"fontsamples/internal/config"
)

func history(ctx context.Context, cfg config.AppConfig, h *HistoryCmd, stdout, stderr io.Writer) int {
	dsn, err := catalogDSN(cfg)
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return exitFail
	}
	if !catalog.IsPostgres(dsn) {
		if _, err := os.Stat(dsn); errors.Is(err, fs.ErrNotExist) {
			fmt.Fprintf(stdout, "No catalog at %s yet. Run with --catalog to record runs.\n", dsn)
			return exitOK
		}
	}
	cat, err := catalog.Open(ctx, dsn)
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return exitFail
	}
	defer func() { _ = cat.Close() }()

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	defer func() { _ = tw.Flush() }()

	if h.Run != 0 {
		samples, err := cat.Samples(ctx, h.Run)
		if err != nil {
			fmt.Fprintln(stderr, "Error:", err)
			return exitFail
		}
		if len(samples) == 0 {
			fmt.Fprintf(stdout, "No samples recorded for run %d.\n", h.Run)
			return exitOK
		}
		fmt.Fprintln(tw, "FONT\tFAMILY\tSIZE\tLINES\tTIME\tRESULT")
		for _, s := range samples {
			result := "ok"
			if !s.OK() {
				result = "error: " + s.Error
			}
			fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\n", filepath.Base(s.Font), s.Family, s.FontSize, s.Lines, s.Duration, result)
		}
		return exitOK
	}

	runs, err := cat.Runs(ctx, h.Limit)
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return exitFail
	}
	if len(runs) == 0 {
		fmt.Fprintln(stdout, "No runs recorded yet.")
		return exitOK
	}
	fmt.Fprintln(tw, "ID\tSTARTED\tOK\tFAILED\tSIZE\tIMAGE\tDURATION\tTEXT")
	for _, r := range runs {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%d\t%dx%d\t%s\t%s\n",
			r.ID, r.Started.Local().Format(time.DateTime), r.Succeeded, r.Failed, r.Settings.FontSize,
			r.Settings.Width, r.Settings.Height, r.Finished.Sub(r.Started).Round(time.Millisecond), abbreviate(r.Settings.Text, 32))
	}
	return exitOK
}

func abbreviate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
