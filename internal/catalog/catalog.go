/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package catalog keeps a history of batch runs and the samples they produced.
// A local SQLite file is the default store; a postgres:// DSN selects PostgreSQL.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	applog "fontsamples/internal/log"
	"fontsamples/internal/version"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

const (
	DirName  = ".fontsamples"
	FileName = "catalog.sqlite"

	// schemaVersion is the catalog schema this build writes. Add a migration step when bumping it.
	schemaVersion = 2
)

// DefaultPath is the SQLite catalog location for an output directory.
func DefaultPath(outputDir string) string {
	return filepath.Join(outputDir, DirName, FileName)
}

// IsPostgres reports whether dsn selects the PostgreSQL backend.
func IsPostgres(dsn string) bool {
	d := strings.ToLower(strings.TrimSpace(dsn))
	return strings.HasPrefix(d, "postgres://") || strings.HasPrefix(d, "postgresql://")
}

// WithPassword fills in password for a postgres DSN that carries none.
// Other DSNs are returned unchanged.
func WithPassword(dsn, password string) (string, error) {
	if !IsPostgres(dsn) || password == "" {
		return dsn, nil
	}
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse dsn: %w", err)
	}
	if u.User == nil {
		return dsn, nil
	}
	if _, ok := u.User.Password(); ok {
		return dsn, nil
	}
	u.User = url.UserPassword(u.User.Username(), password)
	return u.String(), nil
}

type dialect struct {
	name   string
	driver string
	serial string
}

var (
	sqliteDialect   = dialect{name: "sqlite", driver: "sqlite", serial: "INTEGER PRIMARY KEY AUTOINCREMENT"}
	postgresDialect = dialect{name: "postgres", driver: "pgx", serial: "BIGSERIAL PRIMARY KEY"}
)

// rebind turns ? placeholders into $n for PostgreSQL. Queries never contain a literal '?'.
func (d dialect) rebind(q string) string {
	if d.name != "postgres" {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

type Catalog struct {
	db *sql.DB
	d  dialect
}

// Open connects to the catalog at dsn, creating the schema and running migrations.
// Non-postgres DSNs are SQLite file paths; the parent directory is created. An
// unreadable SQLite catalog is moved into a backups directory and recreated.
func Open(ctx context.Context, dsn string) (*Catalog, error) {
	l := applog.WithOperation(applog.WithComponent("catalog"), "open")
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("catalog dsn is required")
	}
	var (
		c   *Catalog
		err error
	)
	if IsPostgres(dsn) {
		if c, err = openPostgres(ctx, dsn); err == nil {
			err = c.init(ctx)
		}
	} else {
		c, err = openSQLiteChecked(ctx, dsn)
	}
	if err != nil {
		l.Error("open catalog failed", slog.String("dialect", dialectOf(dsn)), slog.Any("err", err))
		return nil, err
	}
	l.Debug("catalog ready", slog.String("dialect", c.d.name))
	return c, nil
}

// init creates the schema and migrates it. The connection is closed on failure.
func (c *Catalog) init(ctx context.Context) error {
	if err := c.ensureSchema(ctx); err != nil {
		_ = c.db.Close()
		return err
	}
	if err := c.migrate(ctx); err != nil {
		_ = c.db.Close()
		return err
	}
	return nil
}

func openSQLiteChecked(ctx context.Context, path string) (*Catalog, error) {
	c, err := openSQLite(ctx, path)
	if err == nil {
		err = c.init(ctx)
	}
	if err == nil {
		var chk string
		if qerr := c.db.QueryRowContext(ctx, `PRAGMA quick_check;`).Scan(&chk); qerr != nil || !strings.EqualFold(strings.TrimSpace(chk), "ok") {
			_ = c.db.Close()
			err = fmt.Errorf("catalog quick_check failed: %s %v", chk, qerr)
		}
	}
	if err == nil {
		return c, nil
	}
	if _, statErr := os.Stat(path); statErr != nil {
		return nil, err
	}
	bak, bErr := backupCatalogFile(path)
	if bErr != nil {
		return nil, fmt.Errorf("%w (backup failed: %v)", err, bErr)
	}
	applog.WithComponent("catalog").Warn("catalog unreadable; moved aside and recreated",
		slog.String("path", path), slog.String("backup", bak), slog.Any("err", err))
	c, err = openSQLite(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := c.init(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// backupCatalogFile moves the catalog and its WAL files into a timestamped backup in backups/.
func backupCatalogFile(path string) (string, error) {
	bdir := filepath.Join(filepath.Dir(path), "backups")
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return "", err
	}
	stamp := time.Now().Format("20060102-150405")
	bak := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", filepath.Base(path), stamp))
	if err := os.Rename(path, bak); err != nil {
		return "", err
	}
	for _, suffix := range []string{"-wal", "-shm"} {
		_ = os.Remove(path + suffix)
	}
	return bak, nil
}

func dialectOf(dsn string) string {
	if IsPostgres(dsn) {
		return postgresDialect.name
	}
	return sqliteDialect.name
}

func openSQLite(ctx context.Context, path string) (*Catalog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create catalog dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open(sqliteDialect.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return &Catalog{db: db, d: sqliteDialect}, nil
}

func openPostgres(ctx context.Context, dsn string) (*Catalog, error) {
	db, err := sql.Open(postgresDialect.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Catalog{db: db, d: postgresDialect}, nil
}

func (c *Catalog) Close() error { return c.db.Close() }

// Dialect is "sqlite" or "postgres".
func (c *Catalog) Dialect() string { return c.d.name }

func (c *Catalog) exec(ctx context.Context, q string, args ...any) (sql.Result, error) {
	return c.db.ExecContext(ctx, c.d.rebind(q), args...)
}

func (c *Catalog) ensureSchema(ctx context.Context) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS runs (
			id          ` + c.d.serial + `,
			started_at  TEXT NOT NULL,
			finished_at TEXT NOT NULL,
			app         TEXT NOT NULL,
			text        TEXT NOT NULL,
			font_size   INTEGER NOT NULL,
			width       INTEGER NOT NULL,
			height      INTEGER NOT NULL,
			output_dir  TEXT NOT NULL,
			succeeded   INTEGER NOT NULL,
			failed      INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS samples (
			id          ` + c.d.serial + `,
			run_id      BIGINT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			font        TEXT NOT NULL,
			family      TEXT NOT NULL DEFAULT '',
			output      TEXT NOT NULL,
			font_size   INTEGER NOT NULL DEFAULT 0,
			lines       INTEGER NOT NULL DEFAULT 0,
			duration_ms BIGINT NOT NULL DEFAULT 0,
			error       TEXT NOT NULL DEFAULT ''
		)`,
	}
	for _, q := range ddl {
		if _, err := c.exec(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	var cur int
	err := c.db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// Fresh catalogs start at schema 1 and reach schemaVersion through migrate.
		if _, err := c.exec(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, 1, ?, ?, ?)`, version.String(), now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		if _, err := c.exec(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, version.String(), now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

// migrate applies schema steps up to schemaVersion. Newer catalogs are left alone.
func (c *Catalog) migrate(ctx context.Context) error {
	var cur int
	if err := c.db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	for cur < schemaVersion {
		next := cur + 1
		var stmts []string
		switch next {
		case 2:
			stmts = []string{
				`CREATE INDEX IF NOT EXISTS idx_samples_run ON samples(run_id)`,
				`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at)`,
			}
		}
		tx, err := c.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", next, err)
		}
		for _, q := range stmts {
			if _, err := tx.ExecContext(ctx, q); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d stmt failed: %w", next, err)
			}
		}
		if _, err := tx.ExecContext(ctx, c.d.rebind(`UPDATE version SET schema=?, updated_at=? WHERE id=1`), next, time.Now().UTC().Format(time.RFC3339)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d update version: %w", next, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d commit: %w", next, err)
		}
		cur = next
	}
	return nil
}
