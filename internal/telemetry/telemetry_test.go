/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package telemetry

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type sink struct {
	mu      sync.Mutex
	events  [][]byte
	crashes [][]byte
	srv     *httptest.Server
}

func newSink(t *testing.T) *sink {
	t.Helper()
	s := &sink{}
	mux := http.NewServeMux()
	record := func(dst *[][]byte) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			b, _ := io.ReadAll(r.Body)
			_ = r.Body.Close()
			s.mu.Lock()
			*dst = append(*dst, b)
			s.mu.Unlock()
			w.WriteHeader(http.StatusOK)
		}
	}
	mux.HandleFunc("/events", record(&s.events))
	mux.HandleFunc("/crash", record(&s.crashes))
	s.srv = httptest.NewServer(mux)
	t.Cleanup(s.srv.Close)
	return s
}

func TestClient_BatchCompletedAndUploadCrash(t *testing.T) {
	s := newSink(t)
	c := New(Config{OptIn: true, EventsURL: s.srv.URL + "/events", CrashURL: s.srv.URL + "/crash", Timeout: 2 * time.Second})
	defer c.Close()
	if !c.Enabled() {
		t.Fatalf("expected client to be enabled")
	}

	c.BatchCompleted(3, 2, 1, 4, 1500*time.Millisecond)
	c.Flush(context.Background())

	s.mu.Lock()
	events := append([][]byte(nil), s.events...)
	s.mu.Unlock()
	if len(events) != 1 {
		t.Fatalf("expected one event, got %d", len(events))
	}
	var m map[string]any
	if err := json.Unmarshal(events[0], &m); err != nil {
		t.Fatalf("bad event json: %v", err)
	}
	if m["name"] != "batch_completed" || m["failed"] != float64(1) || m["dur_ms"] != float64(1500) {
		t.Fatalf("unexpected event %v", m)
	}
	if _, ok := m["ts"].(string); !ok {
		t.Fatalf("missing ts field")
	}

	c.UploadCrash([]byte("STACKTRACE"))
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.crashes) != 1 || string(s.crashes[0]) != "STACKTRACE" {
		t.Fatalf("crash upload not received: %q", s.crashes)
	}
}

func TestClient_DisabledAndEmptyEventName(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(Config{OptIn: false, EventsURL: srv.URL, CrashURL: srv.URL, Timeout: time.Second})
	defer c.Close()
	if c.Enabled() {
		t.Fatalf("expected disabled client")
	}
	c.BatchCompleted(1, 1, 0, 1, time.Second)
	c.UploadCrash([]byte("ignored"))

	c2 := New(Config{OptIn: true, EventsURL: srv.URL, Timeout: time.Second})
	defer c2.Close()
	c2.Event("", nil)
	c2.Flush(context.Background())
	c.Flush(context.Background())
	if atomic.LoadInt32(&hits) != 0 {
		t.Fatalf("expected no requests, got %d", hits)
	}
}

// Unroutable address: sending fails, nothing panics, Flush still returns.
func TestClient_SendErrors(t *testing.T) {
	c := New(Config{OptIn: true, EventsURL: "http://127.0.0.1:1/events", CrashURL: "http://127.0.0.1:1/crash", Timeout: 50 * time.Millisecond, DebugLogging: true})
	defer c.Close()
	c.Event("err", map[string]any{"a": 1})
	c.Flush(context.Background())
	c.UploadCrash([]byte("oops"))
}

func TestFromEnvAndOverlay(t *testing.T) {
	t.Setenv("FONTSAMPLES_TELEMETRY_OPT_IN", "")
	t.Setenv("FONTSAMPLES_TELEMETRY_URL", "http://env.example/events")
	t.Setenv("FONTSAMPLES_CRASH_UPLOAD_URL", "")
	t.Setenv("FONTSAMPLES_TELEMETRY_TIMEOUT_MS", "100")

	cfg := FromEnv()
	if cfg.OptIn || cfg.Timeout != 100*time.Millisecond {
		t.Fatalf("FromEnv did not parse correctly: %+v", cfg)
	}
	cfg = cfg.Overlay(true, "http://file.example/events", "http://file.example/crash")
	if !cfg.OptIn || cfg.EventsURL != "http://env.example/events" || cfg.CrashURL != "http://file.example/crash" {
		t.Fatalf("Overlay mismatch: %+v", cfg)
	}

	c := SetDefault(cfg)
	t.Cleanup(c.Close)
	if Default() != c || !Default().Enabled() {
		t.Fatalf("default client not installed")
	}
}
