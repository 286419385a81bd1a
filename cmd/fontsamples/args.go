/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"fmt"
	"strconv"
	"strings"

	"fontsamples/internal/config"
	"fontsamples/internal/version"
)

// Args is the command line. Pointer fields are nil when the flag is absent, so
// config file values survive unless a flag is given explicitly.
type Args struct {
	Text         *string     `arg:"-t,--text" help:"text to render in font samples [default: ABCDEFGHIJKLMNOPQRSTUVWXYZ]"`
	FontSize     *int        `arg:"-s,--font-size" placeholder:"N" help:"font size for rendering, 8-500 [default: 35]"`
	ImageSize    *string     `arg:"-i,--image-size" placeholder:"WxH" help:"image size as WIDTHxHEIGHT [default: 250x250]"`
	FontsDir     *string     `arg:"-f,--fonts-dir" placeholder:"DIR" help:"directory containing font files [default: ./fonts/]"`
	OutputDir    *string     `arg:"-o,--output-dir" placeholder:"DIR" help:"directory to save generated samples [default: ./output_files/]"`
	Verbose      bool        `arg:"-v,--verbose" help:"enable verbose output"`
	Config       string      `arg:"--config" placeholder:"PATH" help:"config file (default: per-user config.yaml)"`
	Workers      *int        `arg:"-w,--workers" placeholder:"N" help:"fonts rendered in parallel [default: number of CPUs]"`
	Ext          []string    `arg:"--ext" placeholder:"EXT" help:"font file extensions to pick up [default: .ttf]"`
	ContactSheet bool        `arg:"--contact-sheet" help:"also write a PDF contact sheet of all samples"`
	Catalog      bool        `arg:"--catalog" help:"record the run in the sample catalog"`
	CatalogDSN   *string     `arg:"--catalog-dsn" placeholder:"DSN" help:"catalog SQLite path or postgres:// URL (implies --catalog)"`
	History      *HistoryCmd `arg:"subcommand:history" help:"list recent runs from the catalog"`
}

type HistoryCmd struct {
	Limit int   `arg:"-n,--limit" default:"10" help:"number of runs to show"`
	Run   int64 `arg:"--run" placeholder:"ID" help:"show the samples of one run"`
}

func (Args) Version() string { return "fontsamples " + version.String() }

func (Args) Description() string { return "Generate visual samples of fonts as images" }

// parseImageSize parses WIDTHxHEIGHT.
func parseImageSize(s string) (int, int, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "x")
	if len(parts) == 2 {
		w, errW := strconv.Atoi(parts[0])
		h, errH := strconv.Atoi(parts[1])
		if errW == nil && errH == nil && w > 0 && h > 0 {
			return w, h, nil
		}
	}
	return 0, 0, fmt.Errorf("invalid image size format: %s. Use WIDTHxHEIGHT", s)
}

// apply lays explicit flags over the loaded configuration.
func (a *Args) apply(cfg *config.AppConfig) error {
	if a.Text != nil {
		cfg.Sample.Text = *a.Text
	}
	if a.FontSize != nil {
		cfg.Sample.FontSize = *a.FontSize
	}
	if a.ImageSize != nil {
		w, h, err := parseImageSize(*a.ImageSize)
		if err != nil {
			return err
		}
		cfg.Sample.Width, cfg.Sample.Height = w, h
	}
	if a.FontsDir != nil {
		cfg.Batch.FontsDir = *a.FontsDir
	}
	if a.OutputDir != nil {
		cfg.Batch.OutputDir = *a.OutputDir
	}
	if a.Workers != nil {
		cfg.Batch.Workers = *a.Workers
	}
	if len(a.Ext) > 0 {
		cfg.Batch.Extensions = a.Ext
	}
	if a.ContactSheet {
		cfg.ContactSheet.Enabled = true
	}
	if a.Catalog {
		cfg.Catalog.Enabled = true
	}
	if a.CatalogDSN != nil {
		cfg.Catalog.Enabled = true
		cfg.Catalog.DSN = *a.CatalogDSN
	}
	if a.Verbose {
		cfg.Logging.Level = "debug"
	}
	return nil
}
