package harvest

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/catalog-harvester/pkg/types"
)

func sampleReport() *Report {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r := &Report{
		RunID:            "run-1",
		Platform:         "data.europa.eu",
		ResumeOffset:     100,
		ChunksPlanned:    3,
		ChunksAttempted:  3,
		ChunksSucceeded:  1,
		RecordsFetched:   5,
		RecordsRejected:  1,
		RecordsNew:       4,
		RecordsDuplicate: 1,
		StartedAt:        start,
		FinishedAt:       start.Add(1500 * time.Millisecond),
	}
	r.fail(types.ChunkJob{Offset: 110, Limit: 5}, StageWrite, errors.New("disk full"))
	r.fail(types.ChunkJob{Offset: 105, Limit: 5}, StageFetch, errors.New("HTTP 500"))
	return r
}

func TestReportAccessors(t *testing.T) {
	r := sampleReport()
	assert.True(t, r.HasFailures())
	assert.Equal(t, []int{105, 110}, r.FailedOffsets())
	assert.Equal(t, 1500*time.Millisecond, r.Duration())

	assert.Zero(t, (&Report{StartedAt: time.Now()}).Duration())
	assert.False(t, (&Report{}).HasFailures())
}

func TestFormatTable(t *testing.T) {
	var buf bytes.Buffer
	FormatTable(sampleReport(), &buf)

	out := buf.String()
	assert.Contains(t, out, "Harvest run-1 (data.europa.eu) from offset 100")
	assert.Contains(t, out, "3 planned, 3 attempted, 1 succeeded, 2 failed")
	assert.Contains(t, out, "5 fetched, 4 new, 1 duplicate, 1 rejected")
	assert.Contains(t, out, "Failed chunks:")
	assert.Contains(t, out, "disk full")
}

func TestFormatTableTruncatesLongCause(t *testing.T) {
	r := &Report{}
	long := string(bytes.Repeat([]byte("x"), 200))
	r.fail(types.ChunkJob{Offset: 0, Limit: 1}, StageFetch, errors.New(long))

	var buf bytes.Buffer
	FormatTable(r, &buf)
	assert.Contains(t, buf.String(), "...")
	assert.NotContains(t, buf.String(), long)
}

func TestFormatTableTruncatesOnRuneBoundary(t *testing.T) {
	r := &Report{}
	cause := strings.Repeat("é", 100)
	r.fail(types.ChunkJob{Offset: 0, Limit: 1}, StageFetch, errors.New(cause))

	var buf bytes.Buffer
	FormatTable(r, &buf)
	assert.True(t, utf8.ValidString(buf.String()))
	assert.Contains(t, buf.String(), strings.Repeat("é", 77)+"...")

	assert.Equal(t, "short", truncate("short", 80))
	assert.Equal(t, "日本...", truncate("日本語のテキスト", 5))
}

func TestFormatJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, FormatJSON(sampleReport(), &buf))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "run-1", got["run_id"])
	assert.EqualValues(t, 4, got["records_new"])
	assert.EqualValues(t, 1, got["records_duplicate"])
	failed, ok := got["chunks_failed"].([]any)
	require.True(t, ok)
	assert.Len(t, failed, 2)
}

func TestFormatYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, FormatYAML(sampleReport(), &buf))

	var got map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "data.europa.eu", got["platform"])
	assert.Equal(t, 3, got["chunks_attempted"])
	assert.Contains(t, buf.String(), "stage: write")
}
