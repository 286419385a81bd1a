/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package contactsheet lays out the rendered samples of a batch on A4 PDF pages.
package contactsheet

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"fontsamples/internal/batch"
	"fontsamples/internal/fontface"
	applog "fontsamples/internal/log"

	"github.com/jung-kurt/gofpdf"
)

// ErrNoEntries is returned when none of the entries has an image on disk.
var ErrNoEntries = errors.New("contact sheet: no sample images")

const DefaultFileName = "contact_sheet.pdf"

// Entry is one tile: a PNG and the caption printed below it.
type Entry struct {
	Image   string
	Caption string
}

// Options controls the page layout. Units are points.
//
// Pages are A4 portrait. Tiles keep the aspect ratio of TileWidth x TileHeight,
// which should match the sample image size.
type Options struct {
	Title      string
	Columns    int
	Margin     float64
	Gap        float64
	TileWidth  int
	TileHeight int
}

func (o Options) withDefaults() Options {
	if o.Columns <= 0 {
		o.Columns = 3
	}
	if o.Margin <= 0 {
		o.Margin = 36
	}
	if o.Gap <= 0 {
		o.Gap = 12
	}
	if o.TileWidth <= 0 || o.TileHeight <= 0 {
		o.TileWidth, o.TileHeight = 1, 1
	}
	return o
}

// FromReport builds entries for the successful fonts of a batch, in batch order.
func FromReport(rep batch.Report) []Entry {
	var out []Entry
	for _, o := range rep.Results {
		if !o.OK() {
			continue
		}
		out = append(out, Entry{Image: o.Output, Caption: caption(o.Result.Family, fontface.Stem(o.Font))})
	}
	return out
}

func caption(family, stem string) string {
	if family == "" || family == stem {
		return stem
	}
	return fmt.Sprintf("%s (%s)", family, stem)
}

const (
	titleSize   = 14.0
	captionSize = 8.0
	captionGap  = 4.0
)

// Build writes the contact sheet to path. Entries whose image is missing are skipped;
// if none remain, no file is written and ErrNoEntries is returned.
func Build(path string, entries []Entry, opt Options) error {
	l := applog.WithOperation(applog.WithComponent("contactsheet"), "build").With(slog.String("path", path))
	opt = opt.withDefaults()

	var tiles []Entry
	for _, e := range entries {
		if fi, err := os.Stat(e.Image); err != nil || fi.IsDir() {
			l.Warn("skipping missing sample image", slog.String("image", e.Image))
			continue
		}
		tiles = append(tiles, e)
	}
	if len(tiles) == 0 {
		return ErrNoEntries
	}

	pdf := gofpdf.NewCustom(&gofpdf.InitType{UnitStr: "pt", Size: gofpdf.SizeType{Wd: 595.28, Ht: 841.89}})
	pdf.SetTitle("Font samples", true)
	pdf.SetCreator("fontsamples", false)
	pdf.SetAutoPageBreak(false, 0)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, pageH := pdf.GetPageSize()
	cols := float64(opt.Columns)
	tileW := (pageW - 2*opt.Margin - (cols-1)*opt.Gap) / cols
	tileH := tileW * float64(opt.TileHeight) / float64(opt.TileWidth)
	rowH := tileH + captionGap + captionSize*1.2 + opt.Gap

	var y float64
	newPage := func(first bool) {
		pdf.AddPage()
		y = opt.Margin
		if first && opt.Title != "" {
			pdf.SetFont("Helvetica", "B", titleSize)
			pdf.SetXY(opt.Margin, y)
			pdf.CellFormat(pageW-2*opt.Margin, titleSize*1.2, tr(opt.Title), "", 0, "L", false, 0, "")
			y += titleSize*1.2 + opt.Gap
		}
	}
	newPage(true)

	imgOpt := gofpdf.ImageOptions{ImageType: "PNG"}
	for i, e := range tiles {
		col := i % opt.Columns
		if col == 0 && i > 0 {
			y += rowH
		}
		if col == 0 && y+tileH > pageH-opt.Margin {
			newPage(false)
		}
		x := opt.Margin + float64(col)*(tileW+opt.Gap)
		pdf.ImageOptions(e.Image, x, y, tileW, tileH, false, imgOpt, 0, "")
		pdf.SetDrawColor(200, 200, 200)
		pdf.SetLineWidth(0.5)
		pdf.Rect(x, y, tileW, tileH, "D")

		pdf.SetFont("Helvetica", "", captionSize)
		pdf.SetXY(x, y+tileH+captionGap)
		pdf.CellFormat(tileW, captionSize*1.2, tr(e.Caption), "", 0, "C", false, 0, "")
		if err := pdf.Error(); err != nil {
			return fmt.Errorf("contact sheet tile %s: %w", e.Image, err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	pages := pdf.PageCount()
	if err := pdf.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	l.Info("contact sheet written", slog.Int("tiles", len(tiles)), slog.Int("pages", pages))
	return nil
}
