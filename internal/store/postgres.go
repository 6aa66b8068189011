// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pdiddy/catalog-harvester/pkg/types"
)

const defaultMaxConns = 4

// Postgres is a Store backed by a pgx connection pool. List columns are
// TEXT[] and concepts is JSONB.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to dsn, verifies the connection, and creates the
// schema if it does not exist.
func NewPostgres(ctx context.Context, dsn string, maxConns int) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing postgres DSN: %w", err)
	}
	if maxConns <= 0 {
		maxConns = defaultMaxConns
	}
	cfg.MaxConns = int32(maxConns)

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	p := &Postgres{pool: pool}
	if err := p.createSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return p, nil
}

// Close releases the pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func (p *Postgres) createSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS datasets (
			id BIGSERIAL PRIMARY KEY,
			title TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			keywords TEXT[] NOT NULL DEFAULT '{}',
			source_url TEXT NOT NULL UNIQUE,
			organization TEXT NOT NULL DEFAULT '',
			publication_date TIMESTAMPTZ,
			last_modified_date TIMESTAMPTZ,
			format TEXT[] NOT NULL DEFAULT '{}',
			license TEXT NOT NULL DEFAULT '',
			source_platform TEXT NOT NULL,
			raw_id TEXT NOT NULL DEFAULT '',
			author TEXT NOT NULL DEFAULT '',
			maintainer TEXT NOT NULL DEFAULT '',
			download_url TEXT[] NOT NULL DEFAULT '{}',
			"groups" TEXT[] NOT NULL DEFAULT '{}',
			code TEXT NOT NULL DEFAULT '',
			data_availability TEXT NOT NULL DEFAULT '',
			metadata_availability TEXT NOT NULL DEFAULT '',
			concepts JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_datasets_source_platform ON datasets(source_platform)`,
	}
	for _, stmt := range statements {
		if _, err := p.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// CountByPlatform returns the number of stored records for platform.
func (p *Postgres) CountByPlatform(ctx context.Context, platform string) (int, error) {
	var n int64
	err := p.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM datasets WHERE source_platform = $1`, platform,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting %s records: %w", platform, err)
	}
	return int(n), nil
}

// KnownKeys returns every stored source_url for platform.
func (p *Postgres) KnownKeys(ctx context.Context, platform string) ([]string, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT source_url FROM datasets WHERE source_platform = $1`, platform)
	if err != nil {
		return nil, fmt.Errorf("loading %s keys: %w", platform, err)
	}
	keys, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scanning keys: %w", err)
	}
	return keys, nil
}

// InsertBatch queues one insert per record on a pgx.Batch inside a single
// transaction. Conflicting source_urls affect zero rows and are not counted.
func (p *Postgres) InsertBatch(ctx context.Context, records []types.Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: beginning transaction: %w", ErrWriteFailed, err)
	}
	defer tx.Rollback(ctx)

	b := &pgx.Batch{}
	for _, r := range records {
		b.Queue(
			`INSERT INTO datasets (`+insertColumns+`)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
			 ON CONFLICT (source_url) DO NOTHING`,
			r.Title, r.Description, nonNil(r.Keywords), r.SourceURL, r.Organization,
			r.PublicationDate, r.LastModifiedDate, nonNil(r.Formats), r.License, r.SourcePlatform,
			r.RawID, r.Author, r.Maintainer, nonNil(r.DownloadURLs), nonNil(r.Groups), r.Code,
			string(r.DataAvailability), string(r.MetadataAvailability), nullableJSON(r.Concepts),
		)
	}

	br := tx.SendBatch(ctx, b)
	inserted := 0
	for _, r := range records {
		tag, err := br.Exec()
		if err != nil {
			_ = br.Close()
			return 0, fmt.Errorf("%w: inserting %s: %w", ErrWriteFailed, r.SourceURL, err)
		}
		inserted += int(tag.RowsAffected())
	}
	if err := br.Close(); err != nil {
		return 0, fmt.Errorf("%w: closing batch: %w", ErrWriteFailed, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("%w: committing: %w", ErrWriteFailed, err)
	}
	return inserted, nil
}

// PlatformCounts returns per-platform record counts, largest first.
func (p *Postgres) PlatformCounts(ctx context.Context) ([]PlatformCount, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT source_platform, COUNT(*) FROM datasets
		 GROUP BY source_platform ORDER BY COUNT(*) DESC, source_platform`)
	if err != nil {
		return nil, fmt.Errorf("counting platforms: %w", err)
	}
	defer rows.Close()

	var counts []PlatformCount
	for rows.Next() {
		var pc PlatformCount
		var n int64
		if err := rows.Scan(&pc.Platform, &n); err != nil {
			return nil, fmt.Errorf("scanning platform count: %w", err)
		}
		pc.Count = int(n)
		counts = append(counts, pc)
	}
	return counts, rows.Err()
}
