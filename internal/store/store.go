// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists canonical records in an append-only datasets
// table keyed uniquely on source_url. Writes are batched, transactional,
// and skip records whose key already exists, so replaying a batch is safe.
package store

import (
	"context"
	"fmt"

	"github.com/pdiddy/catalog-harvester/pkg/types"
)

// DefaultSQLitePath is used when the sqlite driver is selected without a DSN.
const DefaultSQLitePath = "data/catalog.db"

// Store is the persistent record store used by the harvester.
type Store interface {
	// CountByPlatform returns the number of stored records for platform.
	CountByPlatform(ctx context.Context, platform string) (int, error)

	// KnownKeys returns every stored source_url for platform.
	KnownKeys(ctx context.Context, platform string) ([]string, error)

	// InsertBatch writes records in one transaction, skipping any whose
	// source_url already exists, and returns the number of rows inserted.
	// On error nothing from the batch is persisted.
	InsertBatch(ctx context.Context, records []types.Record) (int, error)

	// PlatformCounts returns per-platform record counts, largest first.
	PlatformCounts(ctx context.Context) ([]PlatformCount, error)

	Close() error
}

// PlatformCount is one row of the per-platform statistics.
type PlatformCount struct {
	Platform string `json:"platform" yaml:"platform"`
	Count    int    `json:"count" yaml:"count"`
}

// Open connects to the store selected by cfg and ensures the schema exists.
func Open(ctx context.Context, cfg types.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case types.DriverSQLite, "":
		path := cfg.DSN
		if path == "" {
			path = DefaultSQLitePath
		}
		s, err := NewSQLite(ctx, path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case types.DriverPostgres:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("postgres: %w", ErrDSNRequired)
		}
		p, err := NewPostgres(ctx, cfg.DSN, cfg.MaxConns)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("%w: %q (use sqlite or postgres)", ErrUnknownDriver, cfg.Driver)
	}
}

// insertColumns is the column list shared by both backends' insert statements.
const insertColumns = `title, description, keywords, source_url, organization,
	publication_date, last_modified_date, format, license, source_platform,
	raw_id, author, maintainer, download_url, "groups", code,
	data_availability, metadata_availability, concepts`

// nonNil keeps NOT NULL list columns populated when a record leaves a list unset.
func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
