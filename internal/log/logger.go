/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package log provides centralized slog-based logging for fontsamples.
// Console output is either a compact human readable line format or JSON; an
// optional rotating JSON file log is written through lumberjack.
package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"fontsamples/internal/version"

	lj "gopkg.in/natefinch/lumberjack.v2"
	"golang.org/x/term"
)

// Options controls logger initialization.
// Values can be provided directly or via environment variables:
//   - FONTSAMPLES_LOG_LEVEL=debug|info|warn|error
//   - FONTSAMPLES_LOG_FORMAT=auto|console|json
//   - FONTSAMPLES_LOG_FILE=<path> (enables file logging with rotation)
//   - FONTSAMPLES_LOG_SOURCE=true|false (include source)
//
// Format "auto" uses the console format when stderr is a terminal and JSON otherwise.
type Options struct {
	Level     string
	Format    string
	AddSource bool
	File      string
	// Writer overrides the console destination (stderr when nil).
	Writer io.Writer
}

const (
	EnvLevel  = "FONTSAMPLES_LOG_LEVEL"
	EnvFormat = "FONTSAMPLES_LOG_FORMAT"
	EnvSource = "FONTSAMPLES_LOG_SOURCE"
	EnvFile   = "FONTSAMPLES_LOG_FILE"
)

var (
	defaultLoggerMu sync.RWMutex
	defaultLogger   *slog.Logger
	fileWriter      *lj.Logger
)

// L returns the default application logger, initializing from env if needed.
func L() *slog.Logger {
	defaultLoggerMu.RLock()
	l := defaultLogger
	defaultLoggerMu.RUnlock()
	if l != nil {
		return l
	}
	Init(FromEnv())
	defaultLoggerMu.RLock()
	defer defaultLoggerMu.RUnlock()
	return defaultLogger
}

// Init configures the global logger and sets slog.Default as well.
// Calling Init again replaces the previous logger and closes its log file.
func Init(opts Options) {
	lvl := parseLevel(opts.Level)
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	var console slog.Handler
	switch resolveFormat(opts.Format, w) {
	case "json":
		console = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl, AddSource: opts.AddSource})
	default:
		console = &prettyTextHandler{opts: prettyOpts{Level: lvl, AddSource: opts.AddSource}, w: w, mu: &sync.Mutex{}}
	}
	handlers := []slog.Handler{console}

	var fw *lj.Logger
	if path := strings.TrimSpace(opts.File); path != "" {
		fw = &lj.Logger{Filename: path, MaxSize: 10, MaxBackups: 3, MaxAge: 28, Compress: true}
		handlers = append(handlers, slog.NewJSONHandler(fw, &slog.HandlerOptions{Level: lvl, AddSource: opts.AddSource}))
	}

	h := handlers[0]
	if len(handlers) > 1 {
		h = &multi{hs: handlers}
	}
	logger := slog.New(h).With(
		slog.String("app", "fontsamples"),
		slog.String("ver", version.Version),
	)

	defaultLoggerMu.Lock()
	prev := fileWriter
	defaultLogger = logger
	fileWriter = fw
	defaultLoggerMu.Unlock()
	if prev != nil {
		_ = prev.Close()
	}
	slog.SetDefault(logger)
}

// Close flushes and closes the rotating log file, if any.
func Close() error {
	defaultLoggerMu.Lock()
	fw := fileWriter
	fileWriter = nil
	defaultLoggerMu.Unlock()
	if fw == nil {
		return nil
	}
	return fw.Close()
}

// FromEnv builds Options from environment variables.
func FromEnv() Options {
	return Options{
		Level:     getenv(EnvLevel, "info"),
		Format:    getenv(EnvFormat, "auto"),
		AddSource: strings.EqualFold(getenv(EnvSource, "false"), "true"),
		File:      os.Getenv(EnvFile),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// WithComponent returns a logger with the component attribute pre-set.
func WithComponent(name string) *slog.Logger { return L().With(slog.String("component", name)) }

// WithOperation annotates the logger with an operation name.
func WithOperation(l *slog.Logger, op string) *slog.Logger { return l.With(slog.String("op", op)) }

// Since is a convenience attribute for elapsed time in milliseconds.
func Since(start time.Time) slog.Attr {
	return slog.Int64("ms", time.Since(start).Milliseconds())
}

func resolveFormat(format string, w io.Writer) string {
	format = strings.ToLower(strings.TrimSpace(format))
	switch format {
	case "json", "console":
		return format
	}
	if f, ok := w.(interface{ Fd() uintptr }); ok && term.IsTerminal(int(f.Fd())) {
		return "console"
	}
	return "json"
}

func parseLevel(s string) slog.Leveler {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
