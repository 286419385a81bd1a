/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package sample renders one font sample image: fit the text, draw it centered, save the PNG.
package sample

import (
	"context"
	"fmt"
	"image/color"
	"log/slog"
	"path/filepath"
	"time"

	"fontsamples/internal/canvas"
	"fontsamples/internal/fontface"
	applog "fontsamples/internal/log"
	"fontsamples/internal/textfit"
)

const DefaultText = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

var (
	DefaultBackground = color.RGBA{R: 0xF8, G: 0xF5, B: 0xF0, A: 0xFF}
	DefaultForeground = color.RGBA{A: 0xFF}
)

// Generator holds the settings shared by every sample of a batch. It has no mutable
// state, so one Generator may be used from several goroutines.
type Generator struct {
	Text       string
	Width      int
	Height     int
	FontSize   int
	Background color.Color
	Foreground color.Color
	Options    textfit.Options
}

// New returns a Generator with the default text, colors and layout options.
func New(width, height, fontSize int) *Generator {
	return &Generator{
		Text:       DefaultText,
		Width:      width,
		Height:     height,
		FontSize:   fontSize,
		Background: DefaultBackground,
		Foreground: DefaultForeground,
		Options:    textfit.DefaultOptions(),
	}
}

// Result describes a rendered sample.
type Result struct {
	Font     string
	Family   string
	Output   string
	FontSize int
	Lines    int
	Duration time.Duration
}

func (g *Generator) request() textfit.Request {
	return textfit.Request{Text: g.Text, Width: g.Width, Height: g.Height, FontSize: g.FontSize}
}

// Generate renders the sample of the font at fontPath into outputPath.
// The request is validated before the font is touched.
func (g *Generator) Generate(ctx context.Context, fontPath, outputPath string) (Result, error) {
	start := time.Now()
	l := applog.WithOperation(applog.WithComponent("sample"), "generate").With(
		slog.String("font", filepath.Base(fontPath)),
		slog.String("output", outputPath),
	)
	req := g.request()
	if err := req.Validate(); err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	l.Info("generating font sample",
		slog.Int("size", g.FontSize),
		slog.String("dimensions", fmt.Sprintf("%dx%d", g.Width, g.Height)))

	src, err := fontface.Open(fontPath)
	if err != nil {
		return Result{}, err
	}
	plan, err := textfit.FitWith(req, src, g.Options)
	if err != nil {
		return Result{}, err
	}
	if plan.FontSize < g.FontSize {
		l.Debug("font size reduced to fit", slog.Int("from", g.FontSize), slog.Int("to", plan.FontSize))
	}
	face, err := src.Face(plan.FontSize)
	if err != nil {
		return Result{}, err
	}
	defer func() { _ = face.Close() }()

	c := canvas.New(g.Width, g.Height, colorOr(g.Background, DefaultBackground))
	fg := colorOr(g.Foreground, DefaultForeground)
	for _, line := range plan.Lines {
		c.DrawText(line.X, line.Y, line.Text, face, fg)
	}
	if err := c.Save(outputPath); err != nil {
		return Result{}, err
	}

	res := Result{
		Font:     fontPath,
		Family:   src.Family(),
		Output:   outputPath,
		FontSize: plan.FontSize,
		Lines:    len(plan.Lines),
		Duration: time.Since(start),
	}
	l.Info("font sample saved", slog.Int("size", res.FontSize), slog.Int("lines", res.Lines), applog.Since(start))
	return res, nil
}

// OutputPath is where the sample of fontPath goes: <outDir>/<stem>.png.
func OutputPath(outDir, fontPath string) string {
	return filepath.Join(outDir, fontface.Stem(fontPath)+".png")
}

func colorOr(c, def color.Color) color.Color {
	if c == nil {
		return def
	}
	return c
}
