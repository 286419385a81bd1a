/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package fontface binds an OpenType/TrueType font file to the textfit measuring
// contract and exposes the x/image faces needed for drawing.
package fontface

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	applog "fontsamples/internal/log"
	"fontsamples/internal/textfit"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
)

// DefaultDPI makes one point equal one pixel.
const DefaultDPI = 72

// Source is a parsed font file. It is cheap to create faces from and is not shared
// between batch workers.
type Source struct {
	Path string
	DPI  float64
	font *opentype.Font
}

// Open reads and parses the font at path. Failures are reported as *textfit.FontLoadError.
func Open(path string) (*Source, error) {
	l := applog.WithOperation(applog.WithComponent("fontface"), "open").With(slog.String("font", path))
	if !strings.EqualFold(filepath.Ext(path), ".ttf") {
		l.Warn("font file may not be TTF format")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		l.Error("read font failed", slog.Any("err", err))
		return nil, &textfit.FontLoadError{Path: path, Err: err}
	}
	return Bytes(data, path)
}

// Bytes parses an in-memory font. name is used for error messages and as the
// fallback display name.
func Bytes(data []byte, name string) (*Source, error) {
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, &textfit.FontLoadError{Path: name, Err: fmt.Errorf("parse font: %w", err)}
	}
	return &Source{Path: name, DPI: DefaultDPI, font: f}, nil
}

// LoadFont implements textfit.Measurer.
func (s *Source) LoadFont(size int) (textfit.Face, error) {
	return s.Face(size)
}

// Face rasterizes the font at size points.
func (s *Source) Face(size int) (*Face, error) {
	if size <= 0 {
		return nil, &textfit.FontLoadError{Path: s.Path, Size: size, Err: errors.New("font size must be positive")}
	}
	dpi := s.DPI
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	ff, err := opentype.NewFace(s.font, &opentype.FaceOptions{Size: float64(size), DPI: dpi, Hinting: font.HintingFull})
	if err != nil {
		return nil, &textfit.FontLoadError{Path: s.Path, Size: size, Err: err}
	}
	return &Face{face: ff, size: size, ascent: ff.Metrics().Ascent}, nil
}

// Family returns the family name from the font's name table, or the file stem.
func (s *Source) Family() string {
	var buf sfnt.Buffer
	for _, id := range []sfnt.NameID{sfnt.NameIDTypographicFamily, sfnt.NameIDFamily} {
		if name, err := s.font.Name(&buf, id); err == nil && strings.TrimSpace(name) != "" {
			return name
		}
	}
	return Stem(s.Path)
}

// Stem returns the file name of path without directory and extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Face is a font rasterized at one size.
type Face struct {
	face   font.Face
	size   int
	ascent fixed.Int26_6
}

// BoundingBox implements textfit.Face. Coordinates are relative to the pen position
// and the ascent line, so Top is usually slightly positive for capitals.
func (f *Face) BoundingBox(s string) textfit.Box {
	if s == "" {
		return textfit.Box{}
	}
	b, _ := font.BoundString(f.face, s)
	return textfit.Box{
		Left:   px(b.Min.X),
		Top:    px(b.Min.Y + f.ascent),
		Right:  px(b.Max.X),
		Bottom: px(b.Max.Y + f.ascent),
	}
}

func (f *Face) Font() font.Face { return f.face }
func (f *Face) Size() int       { return f.size }
func (f *Face) Ascent() float64 { return px(f.ascent) }
func (f *Face) Close() error    { return f.face.Close() }

func px(v fixed.Int26_6) float64 { return float64(v) / 64 }
