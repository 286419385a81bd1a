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
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"fontsamples/internal/batch"
	"fontsamples/internal/canvas"
	"fontsamples/internal/catalog"
	"fontsamples/internal/config"
	"fontsamples/internal/contactsheet"
	"fontsamples/internal/crash"
	applog "fontsamples/internal/log"
	"fontsamples/internal/sample"
	"fontsamples/internal/telemetry"
	"fontsamples/internal/textfit"

	"github.com/alexflint/go-arg"
)

const (
	exitOK    = 0
	exitFail  = 1
	exitUsage = 2
)

func main() {
	defer crash.Recover("")
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(argv []string, stdout, stderr io.Writer) int {
	var a Args
	p, err := arg.NewParser(arg.Config{Program: "fontsamples", IgnoreEnv: true, Out: stderr, Exit: func(int) {}}, &a)
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return exitFail
	}
	switch err := p.Parse(argv); {
	case errors.Is(err, arg.ErrHelp):
		_ = p.WriteHelpForSubcommand(stdout, p.SubcommandNames()...)
		return exitOK
	case errors.Is(err, arg.ErrVersion):
		fmt.Fprintln(stdout, a.Version())
		return exitOK
	case err != nil:
		return usageError(p, stderr, err.Error())
	}

	cfg, err := config.Load(a.Config)
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return exitFail
	}
	if err := a.apply(&cfg); err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return exitFail
	}

	applog.Init(applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
		Writer:    stderr,
	})
	defer func() { _ = applog.Close() }()
	l := applog.WithComponent("cli")

	tc := telemetry.SetDefault(telemetry.FromEnv().Overlay(cfg.Telemetry.OptIn, cfg.Telemetry.EventsURL, cfg.Telemetry.CrashURL))
	defer tc.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if a.History != nil {
		return history(ctx, cfg, a.History, stdout, stderr)
	}

	if n := cfg.Sample.FontSize; n < 8 || n > 500 {
		return usageError(p, stderr, fmt.Sprintf("font size %d is not in the range 8-500", n))
	}
	if fi, err := os.Stat(cfg.Batch.FontsDir); err != nil || !fi.IsDir() {
		return usageError(p, stderr, fmt.Sprintf("fonts directory '%s' does not exist or is not a directory", cfg.Batch.FontsDir))
	}
	bg, err := canvas.ParseHexColor(cfg.Sample.Background)
	if err != nil {
		fmt.Fprintln(stderr, "Error: background:", err)
		return exitFail
	}
	fg, err := canvas.ParseHexColor(cfg.Sample.Foreground)
	if err != nil {
		fmt.Fprintln(stderr, "Error: foreground:", err)
		return exitFail
	}

	outDir := cfg.Batch.OutputDir
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		fmt.Fprintln(stderr, "Error: create output directory:", err)
		return exitFail
	}

	if a.Verbose {
		fmt.Fprintf(stdout, "Output directory: %s\n", outDir)
		fmt.Fprintf(stdout, "Fonts directory: %s\n", cfg.Batch.FontsDir)
		fmt.Fprintf(stdout, "Image size: %dx%d\n", cfg.Sample.Width, cfg.Sample.Height)
		fmt.Fprintf(stdout, "Font size: %d\n", cfg.Sample.FontSize)
		fmt.Fprintf(stdout, "Text: '%s'\n", cfg.Sample.Text)
	}

	fonts, err := batch.Discover(cfg.Batch.FontsDir, cfg.Batch.Extensions)
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return exitFail
	}
	if len(fonts) == 0 {
		exts := cfg.Batch.Extensions
		if len(exts) == 0 {
			exts = batch.DefaultExtensions
		}
		fmt.Fprintf(stdout, "Warning: No %s files found in %s\n", strings.Join(exts, "/"), cfg.Batch.FontsDir)
		return exitOK
	}
	fmt.Fprintf(stdout, "Processing %d font files...\n", len(fonts))

	gen := &sample.Generator{
		Text:       cfg.Sample.Text,
		Width:      cfg.Sample.Width,
		Height:     cfg.Sample.Height,
		FontSize:   cfg.Sample.FontSize,
		Background: bg,
		Foreground: fg,
		Options:    layoutOptions(cfg.Sample),
	}
	runner := &batch.Runner{Generator: gen, OutputDir: outDir, Workers: cfg.Batch.Workers}

	if cfg.Catalog.Enabled {
		cat, err := openCatalog(ctx, cfg)
		if err != nil {
			l.Warn("catalog unavailable; run is not recorded", slog.Any("err", err))
			fmt.Fprintf(stderr, "Warning: catalog unavailable: %v\n", err)
		} else {
			defer func() { _ = cat.Close() }()
			runner.Recorder = cat.Recorder(catalog.Settings{
				Text:      cfg.Sample.Text,
				FontSize:  cfg.Sample.FontSize,
				Width:     cfg.Sample.Width,
				Height:    cfg.Sample.Height,
				OutputDir: outDir,
			})
		}
	}

	rep := runner.Run(ctx, fonts)
	for _, o := range rep.Results {
		switch {
		case o.OK() && a.Verbose:
			fmt.Fprintf(stdout, "✓ Generated: %s\n", o.Output)
		case !o.OK():
			fmt.Fprintf(stdout, "✗ Error processing %s: %v\n", filepath.Base(o.Font), o.Err)
		}
	}

	if cfg.ContactSheet.Enabled && rep.Succeeded > 0 {
		path := cfg.ContactSheet.Path
		if path == "" {
			path = filepath.Join(outDir, contactsheet.DefaultFileName)
		}
		err := contactsheet.Build(path, contactsheet.FromReport(rep), contactsheet.Options{
			Title:      cfg.Sample.Text,
			Columns:    cfg.ContactSheet.Columns,
			TileWidth:  cfg.Sample.Width,
			TileHeight: cfg.Sample.Height,
		})
		if err != nil {
			l.Error("contact sheet failed", slog.Any("err", err))
			fmt.Fprintf(stdout, "Warning: contact sheet not written: %v\n", err)
		} else {
			fmt.Fprintf(stdout, "Contact sheet: %s\n", path)
		}
	}

	tc.BatchCompleted(len(fonts), rep.Succeeded, rep.Failed, cfg.Batch.Workers, rep.Duration())
	fctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	tc.Flush(fctx)
	cancel()

	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, "Summary:")
	fmt.Fprintf(stdout, "  Successfully generated: %d samples\n", rep.Succeeded)
	if rep.Failed > 0 {
		fmt.Fprintf(stdout, "  Failed: %d files\n", rep.Failed)
		fmt.Fprintln(stdout, "  Check error messages above for details.")
	}
	if ctx.Err() != nil {
		fmt.Fprintln(stdout, "  Interrupted before all fonts were processed.")
	}
	if !rep.OK() {
		return exitFail
	}
	return exitOK
}

func usageError(p *arg.Parser, w io.Writer, msg string) int {
	p.WriteUsage(w)
	fmt.Fprintln(w, "error:", msg)
	return exitUsage
}

func layoutOptions(s config.SampleConfig) textfit.Options {
	opts := textfit.Options{Padding: s.Padding, LineSpacingRatio: s.LineSpacing, BlankLines: textfit.BlankLinesAdvance}
	if s.CollapseBlankLines {
		opts.BlankLines = textfit.BlankLinesCollapse
	}
	return opts
}

// catalogDSN resolves the configured DSN, falling back to the SQLite file in the output dir.
// A postgres DSN without password gets the one stored in the OS keychain.
func catalogDSN(cfg config.AppConfig) (string, error) {
	dsn := strings.TrimSpace(cfg.Catalog.DSN)
	if dsn == "" {
		return catalog.DefaultPath(cfg.Batch.OutputDir), nil
	}
	if !catalog.IsPostgres(dsn) {
		return dsn, nil
	}
	pw, err := config.CatalogPassword()
	if err != nil {
		applog.WithComponent("cli").Warn("keyring lookup failed", slog.Any("err", err))
	}
	return catalog.WithPassword(dsn, pw)
}

func openCatalog(ctx context.Context, cfg config.AppConfig) (*catalog.Catalog, error) {
	dsn, err := catalogDSN(cfg)
	if err != nil {
		return nil, err
	}
	return catalog.Open(ctx, dsn)
}
