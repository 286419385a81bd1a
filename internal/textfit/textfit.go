/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package textfit fits a text onto a fixed size canvas. It wraps the text into lines,
// shrinks the font until the first line fits the usable width and centers the block.
//
// Measurement is delegated to a Measurer so the algorithm stays independent of the
// font engine; internal/fontface provides the OpenType implementation.
package textfit

import (
	"errors"
	"math"
)

const (
	// MinFontSize is the floor of the shrink loop and the smallest accepted request size.
	MinFontSize = 10
	// Padding is the horizontal margin kept free on each side of the canvas.
	Padding = 20
	// LineSpacingRatio is the gap between lines relative to the line height.
	LineSpacingRatio = 0.2
	// ReferenceGlyph drives the characters-per-line estimate and the line height.
	ReferenceGlyph = "A"
)

// Box is a pixel rectangle. The origin is the pen position on the horizontal axis and
// the top of the line box on the vertical axis.
type Box struct {
	Left, Top, Right, Bottom float64
}

func (b Box) Width() float64  { return b.Right - b.Left }
func (b Box) Height() float64 { return b.Bottom - b.Top }

// Face measures strings at one fixed font size.
type Face interface {
	BoundingBox(s string) Box
}

// Measurer loads a Face of the bound font at a given size.
type Measurer interface {
	LoadFont(size int) (Face, error)
}

// Request is the input of a single fit.
type Request struct {
	Text     string
	Width    int
	Height   int
	FontSize int
}

// Validate checks the request invariants. It never touches a font.
func (r Request) Validate() error {
	if r.Width <= 0 || r.Height <= 0 {
		return &ValidationError{Field: "canvas", Reason: "dimensions must be positive"}
	}
	if r.FontSize < MinFontSize {
		return &ValidationError{Field: "font size", Reason: "must be at least 10"}
	}
	if !hasVisible(Clean(r.Text)) {
		return &ValidationError{Field: "text", Reason: "cannot be empty"}
	}
	return nil
}

// Placement is one line of text positioned on the canvas. Y is the top of the line box.
type Placement struct {
	Text string
	X, Y float64
}

// Plan is the result of Fit.
type Plan struct {
	Lines       []Placement
	FontSize    int
	LineHeight  float64
	LineSpacing float64
	TextHeight  float64
}

// BlankLinePolicy decides how whitespace-only wrapped lines are placed.
type BlankLinePolicy int

const (
	// BlankLinesAdvance skips drawing a blank line but keeps its vertical slot.
	BlankLinesAdvance BlankLinePolicy = iota
	// BlankLinesCollapse skips a blank line entirely, without moving down.
	BlankLinesCollapse
)

// Options tunes the layout. DefaultOptions matches Fit.
type Options struct {
	Padding          int
	LineSpacingRatio float64
	BlankLines       BlankLinePolicy
}

func DefaultOptions() Options {
	return Options{Padding: Padding, LineSpacingRatio: LineSpacingRatio, BlankLines: BlankLinesAdvance}
}

// Fit computes the render plan for req using the default options.
func Fit(req Request, m Measurer) (Plan, error) { return FitWith(req, m, DefaultOptions()) }

// FitWith computes the render plan for req. The returned FontSize lies in
// [MinFontSize, req.FontSize]; text may still overflow horizontally at the floor.
func FitWith(req Request, m Measurer, opts Options) (Plan, error) {
	if err := req.Validate(); err != nil {
		return Plan{}, err
	}
	if m == nil {
		return Plan{}, &ValidationError{Field: "measurer", Reason: "is required"}
	}
	if opts.Padding < 0 {
		opts.Padding = 0
	}
	if opts.LineSpacingRatio < 0 {
		opts.LineSpacingRatio = 0
	}
	text := Clean(req.Text)
	usable := req.Width - 2*opts.Padding
	if usable < 1 {
		usable = 1
	}

	size := req.FontSize
	face, err := load(m, size)
	if err != nil {
		return Plan{}, err
	}
	lines := wrapFor(text, face, usable)
	for len(lines) > 0 && face.BoundingBox(lines[0]).Width() > float64(usable) && size > MinFontSize {
		size--
		if face, err = load(m, size); err != nil {
			return Plan{}, err
		}
		lines = wrapFor(text, face, usable)
	}

	plan := place(face, lines, req.Width, req.Height, opts)
	plan.FontSize = size
	return plan, nil
}

func load(m Measurer, size int) (Face, error) {
	face, err := m.LoadFont(size)
	if err != nil {
		var fle *FontLoadError
		if errors.As(err, &fle) {
			return nil, err
		}
		return nil, &FontLoadError{Size: size, Err: err}
	}
	return face, nil
}

// place centers lines vertically as a block and each line horizontally.
func place(face Face, lines []string, width, height int, opts Options) Plan {
	lineHeight := face.BoundingBox(ReferenceGlyph).Height()
	spacing := lineHeight * opts.LineSpacingRatio
	total := 0.0
	if len(lines) > 0 {
		total = float64(len(lines))*(lineHeight+spacing) - spacing
	}
	plan := Plan{
		Lines:       make([]Placement, 0, len(lines)),
		LineHeight:  lineHeight,
		LineSpacing: spacing,
		TextHeight:  total,
	}
	y := math.Max(0, (float64(height)-total)/2)
	for _, line := range lines {
		if !hasVisible(line) {
			if opts.BlankLines == BlankLinesAdvance {
				y += lineHeight + spacing
			}
			continue
		}
		w := face.BoundingBox(line).Width()
		x := math.Max(0, (float64(width)-w)/2)
		plan.Lines = append(plan.Lines, Placement{Text: line, X: x, Y: y})
		y += lineHeight + spacing
	}
	return plan
}
