// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/catalog-harvester/pkg/types"
)

// --- test helpers ---

func testSQLite(t *testing.T) *SQLite {
	t.Helper()
	s, err := NewSQLite(context.Background(), filepath.Join(t.TempDir(), "index", "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// testStores returns the SQLite store and, when CATALOG_HARVESTER_TEST_PG_DSN
// is set, a Postgres store with an emptied datasets table.
func testStores(t *testing.T) map[string]Store {
	t.Helper()
	stores := map[string]Store{"sqlite": testSQLite(t)}

	dsn := os.Getenv("CATALOG_HARVESTER_TEST_PG_DSN")
	if dsn == "" {
		return stores
	}
	p, err := NewPostgres(context.Background(), dsn, 2)
	require.NoError(t, err)
	_, err = p.pool.Exec(context.Background(), `TRUNCATE datasets`)
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	stores["postgres"] = p
	return stores
}

func sampleRecord(platform, id string) types.Record {
	issued := time.Date(2022, 3, 4, 0, 0, 0, 0, time.UTC)
	return types.Record{
		SourceURL:            fmt.Sprintf("https://%s/datasets/%s", platform, id),
		Title:                "Dataset " + id,
		Keywords:             []string{"open data"},
		Organization:         "Portal",
		PublicationDate:      &issued,
		Formats:              []string{"CSV"},
		DownloadURLs:         []string{"https://example.org/" + id + ".csv"},
		SourcePlatform:       platform,
		RawID:                id,
		Code:                 id,
		DataAvailability:     types.AvailabilityAvailable,
		MetadataAvailability: types.AvailabilityAvailable,
		Concepts:             json.RawMessage(`{"id":"` + id + `"}`),
	}
}

func sampleRecords(platform string, ids ...string) []types.Record {
	records := make([]types.Record, len(ids))
	for i, id := range ids {
		records[i] = sampleRecord(platform, id)
	}
	return records
}

// --- InsertBatch ---

func TestInsertBatch(t *testing.T) {
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			n, err := s.InsertBatch(ctx, nil)
			require.NoError(t, err)
			assert.Equal(t, 0, n, "empty batch is a no-op")

			n, err = s.InsertBatch(ctx, sampleRecords("portal.example", "aaa", "bbb", "ccc"))
			require.NoError(t, err)
			assert.Equal(t, 3, n)

			// Replaying the batch inserts nothing and is not an error.
			n, err = s.InsertBatch(ctx, sampleRecords("portal.example", "aaa", "bbb", "ccc"))
			require.NoError(t, err)
			assert.Equal(t, 0, n)

			// A mixed batch counts only the new rows.
			n, err = s.InsertBatch(ctx, sampleRecords("portal.example", "bbb", "ddd"))
			require.NoError(t, err)
			assert.Equal(t, 1, n)

			count, err := s.CountByPlatform(ctx, "portal.example")
			require.NoError(t, err)
			assert.Equal(t, 4, count)
		})
	}
}

func TestInsertBatchDuplicateWithinBatch(t *testing.T) {
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			n, err := s.InsertBatch(context.Background(), sampleRecords("portal.example", "dup", "dup", "one"))
			require.NoError(t, err)
			assert.Equal(t, 2, n)
		})
	}
}

func TestInsertBatchUnsetListsAndDates(t *testing.T) {
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			rec := types.Record{SourceURL: "https://portal.example/bare", SourcePlatform: "portal.example", RawID: "bare"}
			n, err := s.InsertBatch(context.Background(), []types.Record{rec})
			require.NoError(t, err)
			assert.Equal(t, 1, n)
		})
	}
}

func TestSQLiteInsertBatchRollsBack(t *testing.T) {
	s := testSQLite(t)
	ctx := context.Background()

	_, err := s.db.ExecContext(ctx, `CREATE TRIGGER reject_poison BEFORE INSERT ON datasets
		WHEN NEW.raw_id = 'poison'
		BEGIN SELECT RAISE(ABORT, 'poisoned record'); END`)
	require.NoError(t, err)

	n, err := s.InsertBatch(ctx, sampleRecords("portal.example", "good-1", "poison", "good-2"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrWriteFailed), "error = %v", err)
	assert.Equal(t, 0, n)

	count, err := s.CountByPlatform(ctx, "portal.example")
	require.NoError(t, err)
	assert.Equal(t, 0, count, "the rows before the failure are rolled back")
}

func TestSQLiteStoredColumns(t *testing.T) {
	s := testSQLite(t)
	ctx := context.Background()

	rec := sampleRecord("portal.example", "cols")
	_, err := s.InsertBatch(ctx, []types.Record{rec})
	require.NoError(t, err)

	var keywords, formats, published, concepts string
	var modified *string
	err = s.db.QueryRowContext(ctx,
		`SELECT keywords, format, publication_date, last_modified_date, concepts FROM datasets WHERE source_url = ?`,
		rec.SourceURL,
	).Scan(&keywords, &formats, &published, &modified, &concepts)
	require.NoError(t, err)

	assert.JSONEq(t, `["open data"]`, keywords)
	assert.JSONEq(t, `["CSV"]`, formats)
	assert.Equal(t, "2022-03-04T00:00:00Z", published)
	assert.Nil(t, modified, "absent dates are stored as NULL")
	assert.JSONEq(t, `{"id":"cols"}`, concepts)
}

// --- KnownKeys / counts ---

func TestKnownKeysAndCounts(t *testing.T) {
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_, err := s.InsertBatch(ctx, sampleRecords("alpha.example", "a01", "a02", "a03"))
			require.NoError(t, err)
			_, err = s.InsertBatch(ctx, sampleRecords("beta.example", "b01"))
			require.NoError(t, err)

			keys, err := s.KnownKeys(ctx, "alpha.example")
			require.NoError(t, err)
			assert.ElementsMatch(t, []string{
				"https://alpha.example/datasets/a01",
				"https://alpha.example/datasets/a02",
				"https://alpha.example/datasets/a03",
			}, keys)

			keys, err = s.KnownKeys(ctx, "gamma.example")
			require.NoError(t, err)
			assert.Empty(t, keys)

			counts, err := s.PlatformCounts(ctx)
			require.NoError(t, err)
			assert.Equal(t, []PlatformCount{
				{Platform: "alpha.example", Count: 3},
				{Platform: "beta.example", Count: 1},
			}, counts)
		})
	}
}

// --- Open ---

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, types.StoreConfig{Driver: types.DriverSQLite, DSN: filepath.Join(t.TempDir(), "c.db")})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = Open(ctx, types.StoreConfig{Driver: types.DriverPostgres})
	assert.ErrorIs(t, err, ErrDSNRequired)

	_, err = Open(ctx, types.StoreConfig{Driver: "mysql"})
	assert.ErrorIs(t, err, ErrUnknownDriver)
}

func TestNewSQLiteReopensExistingSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")
	ctx := context.Background()

	s, err := NewSQLite(ctx, path)
	require.NoError(t, err)
	_, err = s.InsertBatch(ctx, sampleRecords("portal.example", "keep"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = NewSQLite(ctx, path)
	require.NoError(t, err)
	defer s.Close()
	count, err := s.CountByPlatform(ctx, "portal.example")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
