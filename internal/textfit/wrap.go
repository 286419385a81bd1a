/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textfit

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Wrap greedily packs whitespace separated words into lines of at most width runes.
// Runs of whitespace collapse to a single space. A word longer than width is kept
// whole on a line of its own.
func Wrap(text string, width int) []string {
	if width < 1 {
		width = 1
	}
	var (
		lines []string
		cur   strings.Builder
		n     int
	)
	for _, word := range strings.Fields(text) {
		wn := utf8.RuneCountInString(word)
		if n > 0 && n+1+wn > width {
			lines = append(lines, cur.String())
			cur.Reset()
			n = 0
		}
		if n > 0 {
			cur.WriteByte(' ')
			n++
		}
		cur.WriteString(word)
		n += wn
	}
	if n > 0 {
		lines = append(lines, cur.String())
	}
	return lines
}

// Clean NFC-normalizes text and removes control characters other than whitespace.
func Clean(text string) string {
	text = norm.NFC.String(text)
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && !unicode.IsSpace(r) {
			return -1
		}
		return r
	}, text)
}

func hasVisible(text string) bool {
	for _, r := range text {
		if !unicode.IsSpace(r) && !unicode.IsControl(r) {
			return true
		}
	}
	return false
}

// wrapFor estimates the characters per line from the reference glyph of face.
func wrapFor(text string, face Face, usableWidth int) []string {
	cw := face.BoundingBox(ReferenceGlyph).Width()
	if cw <= 0 {
		return []string{strings.Join(strings.Fields(text), " ")}
	}
	perLine := int(float64(usableWidth) / cw)
	if perLine < 1 {
		perLine = 1
	}
	return Wrap(text, perLine)
}
