/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package canvas is the raster target of a font sample: an RGB pixel buffer with a
// solid background, text drawing at top-left anchored positions and PNG output.
package canvas

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// FontFace is what DrawText needs from a rasterized font.
type FontFace interface {
	Font() font.Face
	Ascent() float64
}

// ImageError reports a failure while drawing or writing an image.
type ImageError struct {
	Op   string
	Path string
	Err  error
}

func (e *ImageError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("failed to generate image: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("failed to generate image %s: %s: %v", e.Path, e.Op, e.Err)
}

func (e *ImageError) Unwrap() error { return e.Err }

type Canvas struct {
	img *image.RGBA
}

// New allocates a width x height canvas filled with bg.
func New(width, height int, bg color.Color) *Canvas {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: bg}, image.Point{}, draw.Src)
	return &Canvas{img: img}
}

func (c *Canvas) Image() *image.RGBA { return c.img }

// DrawText draws text with its line box top-left corner at (x, y).
// The baseline sits one ascent below y.
func (c *Canvas) DrawText(x, y float64, text string, face FontFace, col color.Color) {
	d := &font.Drawer{
		Dst:  c.img,
		Src:  image.NewUniform(col),
		Face: face.Font(),
		Dot:  fixed.Point26_6{X: toFixed(x), Y: toFixed(y + face.Ascent())},
	}
	d.DrawString(text)
}

// Save writes the canvas as PNG. The image is encoded into a temporary file next to
// path and renamed into place, so a failed write never leaves a partial PNG behind.
func (c *Canvas) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &ImageError{Op: "ensure out dir", Path: path, Err: err}
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return &ImageError{Op: "create png", Path: path, Err: err}
	}
	tmp := f.Name()
	fail := func(op string, err error) error {
		_ = f.Close()
		_ = os.Remove(tmp)
		return &ImageError{Op: op, Path: path, Err: err}
	}
	if err := png.Encode(f, c.img); err != nil {
		return fail("encode png", err)
	}
	if err := f.Sync(); err != nil {
		return fail("sync png", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return &ImageError{Op: "close png", Path: path, Err: err}
	}
	if err := os.Chmod(tmp, 0o644); err != nil {
		_ = os.Remove(tmp)
		return &ImageError{Op: "chmod png", Path: path, Err: err}
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return &ImageError{Op: "rename png", Path: path, Err: err}
	}
	return nil
}

func toFixed(v float64) fixed.Int26_6 { return fixed.Int26_6(math.Round(v * 64)) }
