// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package harvest

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/catalog-harvester/pkg/types"
)

// Stage names the pipeline step at which a chunk failed.
type Stage string

const (
	StageDispatch Stage = "dispatch"
	StageFetch    Stage = "fetch"
	StageWrite    Stage = "write"
)

// ChunkFailure records why one chunk contributed no records.
type ChunkFailure struct {
	Offset int    `json:"offset" yaml:"offset"`
	Limit  int    `json:"limit" yaml:"limit"`
	Stage  Stage  `json:"stage" yaml:"stage"`
	Cause  string `json:"cause" yaml:"cause"`
}

// Report holds the counters of one harvest job. Only the harvester's
// control goroutine mutates it.
type Report struct {
	RunID        string `json:"run_id" yaml:"run_id"`
	Platform     string `json:"platform" yaml:"platform"`
	ResumeOffset int    `json:"resume_offset" yaml:"resume_offset"`

	// ChunksPlanned is the number of chunks the partitioner produced;
	// ChunksAttempted falls short of it only when the job is cancelled.
	ChunksPlanned   int            `json:"chunks_planned" yaml:"chunks_planned"`
	ChunksAttempted int            `json:"chunks_attempted" yaml:"chunks_attempted"`
	ChunksSucceeded int            `json:"chunks_succeeded" yaml:"chunks_succeeded"`
	ChunksFailed    []ChunkFailure `json:"chunks_failed" yaml:"chunks_failed"`

	RecordsFetched   int `json:"records_fetched" yaml:"records_fetched"`
	RecordsRejected  int `json:"records_rejected" yaml:"records_rejected"`
	RecordsNew       int `json:"records_new" yaml:"records_new"`
	RecordsDuplicate int `json:"records_duplicate" yaml:"records_duplicate"`

	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time `json:"finished_at" yaml:"finished_at"`
}

// HasFailures reports whether any chunk failed.
func (r *Report) HasFailures() bool {
	return len(r.ChunksFailed) > 0
}

// FailedOffsets returns the offsets of failed chunks in ascending order.
func (r *Report) FailedOffsets() []int {
	offsets := make([]int, len(r.ChunksFailed))
	for i, f := range r.ChunksFailed {
		offsets[i] = f.Offset
	}
	sort.Ints(offsets)
	return offsets
}

// Duration returns the wall time of the job.
func (r *Report) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

func (r *Report) fail(job types.ChunkJob, stage Stage, err error) {
	r.ChunksFailed = append(r.ChunksFailed, ChunkFailure{
		Offset: job.Offset,
		Limit:  job.Limit,
		Stage:  stage,
		Cause:  err.Error(),
	})
}

// FormatTable writes the report as a human-readable summary to w.
func FormatTable(r *Report, w io.Writer) {
	fmt.Fprintf(w, "Harvest %s (%s) from offset %d\n", r.RunID, r.Platform, r.ResumeOffset)
	fmt.Fprintln(w, strings.Repeat("-", 60))
	fmt.Fprintf(w, "%-20s %d planned, %d attempted, %d succeeded, %d failed\n",
		"Chunks:", r.ChunksPlanned, r.ChunksAttempted, r.ChunksSucceeded, len(r.ChunksFailed))
	fmt.Fprintf(w, "%-20s %d fetched, %d new, %d duplicate, %d rejected\n",
		"Records:", r.RecordsFetched, r.RecordsNew, r.RecordsDuplicate, r.RecordsRejected)
	fmt.Fprintf(w, "%-20s %s\n", "Duration:", r.Duration().Round(time.Millisecond))

	if !r.HasFailures() {
		return
	}
	fmt.Fprintf(w, "\nFailed chunks:\n")
	for _, f := range r.ChunksFailed {
		fmt.Fprintf(w, "  %-12d %-6s %s\n", f.Offset, f.Stage, truncate(f.Cause, 80))
	}
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n-3]) + "..."
}

// FormatJSON writes the report as indented JSON to w.
func FormatJSON(r *Report, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// FormatYAML writes the report as YAML to w.
func FormatYAML(r *Report, w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	return enc.Close()
}
