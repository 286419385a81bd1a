/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textfit

import "fmt"

// ValidationError reports a malformed Request. It is returned before any font is loaded.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid render request: %s %s", e.Field, e.Reason)
}

// FontLoadError reports a font that could not be opened, parsed or rasterized.
// Size is zero when the failure happened before a size was chosen.
type FontLoadError struct {
	Path string
	Size int
	Err  error
}

func (e *FontLoadError) Error() string {
	where := "font"
	if e.Path != "" {
		where = "font at " + e.Path
	}
	if e.Size > 0 {
		return fmt.Sprintf("unable to load %s (size %d): %v", where, e.Size, e.Err)
	}
	return fmt.Sprintf("unable to load %s: %v", where, e.Err)
}

func (e *FontLoadError) Unwrap() error { return e.Err }
