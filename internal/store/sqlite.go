// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/catalog-harvester/pkg/types"
)

// SQLite is a Store backed by a local SQLite database file. List columns
// hold JSON arrays and dates hold RFC 3339 text.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens or creates the database at path and creates the schema
// if it does not exist.
func NewSQLite(ctx context.Context, path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &SQLite{db: db}
	if err := s.createSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) createSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS datasets (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			keywords TEXT NOT NULL DEFAULT '[]',
			source_url TEXT NOT NULL UNIQUE,
			organization TEXT NOT NULL DEFAULT '',
			publication_date TEXT,
			last_modified_date TEXT,
			format TEXT NOT NULL DEFAULT '[]',
			license TEXT NOT NULL DEFAULT '',
			source_platform TEXT NOT NULL,
			raw_id TEXT NOT NULL DEFAULT '',
			author TEXT NOT NULL DEFAULT '',
			maintainer TEXT NOT NULL DEFAULT '',
			download_url TEXT NOT NULL DEFAULT '[]',
			"groups" TEXT NOT NULL DEFAULT '[]',
			code TEXT NOT NULL DEFAULT '',
			data_availability TEXT NOT NULL DEFAULT '',
			metadata_availability TEXT NOT NULL DEFAULT '',
			concepts TEXT,
			created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_datasets_source_platform ON datasets(source_platform)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// CountByPlatform returns the number of stored records for platform.
func (s *SQLite) CountByPlatform(ctx context.Context, platform string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM datasets WHERE source_platform = ?`, platform,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting %s records: %w", platform, err)
	}
	return n, nil
}

// KnownKeys returns every stored source_url for platform.
func (s *SQLite) KnownKeys(ctx context.Context, platform string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT source_url FROM datasets WHERE source_platform = ?`, platform)
	if err != nil {
		return nil, fmt.Errorf("loading %s keys: %w", platform, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scanning key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// InsertBatch writes records in a single transaction. Rows whose
// source_url already exists are skipped and not counted.
func (s *SQLite) InsertBatch(ctx context.Context, records []types.Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: beginning transaction: %w", ErrWriteFailed, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO datasets (`+insertColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(source_url) DO NOTHING`)
	if err != nil {
		return 0, fmt.Errorf("%w: preparing insert: %w", ErrWriteFailed, err)
	}
	defer stmt.Close()

	inserted := 0
	for _, r := range records {
		res, err := stmt.ExecContext(ctx, sqliteArgs(r)...)
		if err != nil {
			return 0, fmt.Errorf("%w: inserting %s: %w", ErrWriteFailed, r.SourceURL, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("%w: rows affected: %w", ErrWriteFailed, err)
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: committing: %w", ErrWriteFailed, err)
	}
	return inserted, nil
}

// PlatformCounts returns per-platform record counts, largest first.
func (s *SQLite) PlatformCounts(ctx context.Context) ([]PlatformCount, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT source_platform, COUNT(*) FROM datasets
		 GROUP BY source_platform ORDER BY COUNT(*) DESC, source_platform`)
	if err != nil {
		return nil, fmt.Errorf("counting platforms: %w", err)
	}
	defer rows.Close()

	var counts []PlatformCount
	for rows.Next() {
		var pc PlatformCount
		if err := rows.Scan(&pc.Platform, &pc.Count); err != nil {
			return nil, fmt.Errorf("scanning platform count: %w", err)
		}
		counts = append(counts, pc)
	}
	return counts, rows.Err()
}

func sqliteArgs(r types.Record) []any {
	return []any{
		r.Title, r.Description, jsonList(r.Keywords), r.SourceURL, r.Organization,
		sqliteTime(r.PublicationDate), sqliteTime(r.LastModifiedDate), jsonList(r.Formats),
		r.License, r.SourcePlatform, r.RawID, r.Author, r.Maintainer,
		jsonList(r.DownloadURLs), jsonList(r.Groups), r.Code,
		string(r.DataAvailability), string(r.MetadataAvailability), nullableJSON(r.Concepts),
	}
}

func jsonList(values []string) string {
	data, _ := json.Marshal(nonNil(values))
	return string(data)
}

func sqliteTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
