// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package harvest drives one ingestion job: it partitions the catalog
// window into chunks, fetches them on a bounded worker pool, drops records
// already known to the store, and writes the rest in one transaction per
// chunk. A failed chunk never affects the others.
package harvest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/pdiddy/catalog-harvester/internal/catalog"
	"github.com/pdiddy/catalog-harvester/internal/store"
	"github.com/pdiddy/catalog-harvester/pkg/types"
)

const (
	// DefaultPoolSize is the number of concurrent chunk fetches.
	DefaultPoolSize = 8

	// DefaultInterChunkDelay is the pause after each merged chunk.
	DefaultInterChunkDelay = 100 * time.Millisecond

	progressEvery = 10
)

// ChunkFetcher retrieves and normalizes one chunk. Implementations must be
// safe for concurrent use.
type ChunkFetcher interface {
	Fetch(ctx context.Context, job types.ChunkJob) (catalog.Chunk, error)
}

// Phase is a step of the job state machine.
type Phase string

const (
	PhaseInitializing Phase = "initializing"
	PhasePartitioning Phase = "partitioning"
	PhaseDispatching  Phase = "dispatching"
	PhaseDraining     Phase = "draining"
	PhaseReporting    Phase = "reporting"
	PhaseDone         Phase = "done"
)

// JobConfig describes one harvest run.
type JobConfig struct {
	Platform string
	Total    int
	PageSize int

	// Offset is the first catalog position to fetch. A negative value
	// resumes from the number of records already stored for Platform.
	Offset int
}

// Harvester runs ingestion jobs against one store.
type Harvester struct {
	store    store.Store
	fetcher  ChunkFetcher
	poolSize int
	delay    time.Duration
	metrics  *Metrics
	progress io.Writer
	logger   *slog.Logger
}

// Option configures a Harvester.
type Option func(*Harvester) error

// WithPoolSize sets the number of concurrent chunk fetches.
// Default is DefaultPoolSize.
func WithPoolSize(size int) Option {
	return func(h *Harvester) error {
		if size < 1 {
			size = 1
		}
		h.poolSize = size
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(h *Harvester) error {
		if logger == nil {
			logger = slog.Default()
		}
		h.logger = logger
		return nil
	}
}

// WithInterChunkDelay sets the pause after each merged chunk. Zero disables it.
func WithInterChunkDelay(d time.Duration) Option {
	return func(h *Harvester) error {
		if d < 0 {
			return fmt.Errorf("inter-chunk delay must not be negative: %s", d)
		}
		h.delay = d
		return nil
	}
}

// WithMetrics records job counters on m.
func WithMetrics(m *Metrics) Option {
	return func(h *Harvester) error {
		h.metrics = m
		return nil
	}
}

// WithProgress sets the writer that receives a progress line every ten
// completed chunks. Default discards progress.
func WithProgress(w io.Writer) Option {
	return func(h *Harvester) error {
		if w == nil {
			w = io.Discard
		}
		h.progress = w
		return nil
	}
}

// NewHarvester creates a Harvester writing to st with chunks from fetcher.
func NewHarvester(st store.Store, fetcher ChunkFetcher, opts ...Option) (*Harvester, error) {
	if st == nil {
		return nil, ErrStoreRequired
	}
	if fetcher == nil {
		return nil, ErrFetcherRequired
	}

	h := &Harvester{
		store:    st,
		fetcher:  fetcher,
		poolSize: DefaultPoolSize,
		delay:    DefaultInterChunkDelay,
		progress: io.Discard,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(h); err != nil {
			return nil, err
		}
	}
	h.logger = h.logger.With("component", "harvest")
	return h, nil
}

// chunkResult travels from a worker to the control goroutine.
type chunkResult struct {
	job     types.ChunkJob
	chunk   catalog.Chunk
	stage   Stage
	err     error
	elapsed time.Duration
}

// Run executes one job and returns its report. Chunk failures are recorded
// in the report and do not make Run fail; the only fatal errors are a bad
// job configuration and an unreadable store at start. When ctx is
// cancelled no further chunks are dispatched, chunks already fetched are
// still written, and Run returns the partial report with ctx.Err().
func (h *Harvester) Run(ctx context.Context, cfg JobConfig) (*Report, error) {
	report := &Report{
		RunID:        uuid.NewString(),
		Platform:     cfg.Platform,
		ChunksFailed: []ChunkFailure{},
		StartedAt:    time.Now().UTC(),
	}
	log := h.logger.With("run_id", report.RunID, "platform", cfg.Platform)

	enter(log, PhaseInitializing)
	offset := cfg.Offset
	if offset < 0 {
		n, err := h.store.CountByPlatform(ctx, cfg.Platform)
		if err != nil {
			return nil, fmt.Errorf("%w: counting stored records: %w", ErrInitialize, err)
		}
		offset = n
	}
	keys, err := h.store.KnownKeys(ctx, cfg.Platform)
	if err != nil {
		return nil, fmt.Errorf("%w: loading known keys: %w", ErrInitialize, err)
	}
	filter := NewFilter(keys)
	h.metrics.setKnownKeys(filter.Len())
	report.ResumeOffset = offset
	log.Info("store state loaded", "resume_offset", offset, "known_keys", filter.Len())

	enter(log, PhasePartitioning)
	jobs, err := Partition(offset, cfg.Total, cfg.PageSize)
	if err != nil {
		return nil, err
	}
	report.ChunksPlanned = len(jobs)
	log.Info("catalog window partitioned",
		"offset", offset, "total", cfg.Total, "page_size", cfg.PageSize, "chunks", len(jobs))

	pool, err := ants.NewPool(h.poolSize)
	if err != nil {
		return nil, fmt.Errorf("creating worker pool: %w", err)
	}
	defer pool.Release()

	enter(log, PhaseDispatching)
	results := make(chan chunkResult, len(jobs))
	go h.dispatch(ctx, pool, jobs, results)

	enter(log, PhaseDraining)
	for res := range results {
		report.ChunksAttempted++
		h.merge(ctx, log, filter, report, res)

		if report.ChunksAttempted%progressEvery == 0 {
			fmt.Fprintf(h.progress, "%d/%d chunks: %d new, %d duplicate, %d failed\n",
				report.ChunksAttempted, len(jobs), report.RecordsNew,
				report.RecordsDuplicate, len(report.ChunksFailed))
		}
		pause(ctx, h.delay)
	}

	enter(log, PhaseReporting)
	report.FinishedAt = time.Now().UTC()
	h.metrics.finished(report.FinishedAt)
	log.Info("harvest finished",
		"chunks_attempted", report.ChunksAttempted,
		"chunks_succeeded", report.ChunksSucceeded,
		"chunks_failed", len(report.ChunksFailed),
		"records_new", report.RecordsNew,
		"records_duplicate", report.RecordsDuplicate,
		"duration", report.Duration())
	enter(log, PhaseDone)

	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

// dispatch submits every job to pool and closes results once all submitted
// tasks have delivered. It stops submitting when ctx is cancelled.
func (h *Harvester) dispatch(ctx context.Context, pool *ants.Pool, jobs []types.ChunkJob, results chan<- chunkResult) {
	var wg sync.WaitGroup
	defer func() {
		wg.Wait()
		close(results)
	}()

	for _, job := range jobs {
		if ctx.Err() != nil {
			h.logger.Warn("dispatch stopped", "next_chunk", job.String(), "error", ctx.Err())
			return
		}
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			results <- h.fetch(ctx, job)
		})
		if err != nil {
			wg.Done()
			results <- chunkResult{
				job:   job,
				chunk: catalog.Chunk{Job: job},
				stage: StageDispatch,
				err:   fmt.Errorf("submitting chunk %s: %w", job, err),
			}
		}
	}
}

// fetch runs on a pool worker. A panic in the fetcher becomes a failed chunk.
func (h *Harvester) fetch(ctx context.Context, job types.ChunkJob) (res chunkResult) {
	res = chunkResult{job: job, stage: StageFetch}
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			res.chunk = catalog.Chunk{Job: job}
			res.err = fmt.Errorf("%w: chunk %s: %v", ErrWorkerPanic, job, r)
		}
		res.elapsed = time.Since(start)
	}()
	res.chunk, res.err = h.fetcher.Fetch(ctx, job)
	return res
}

// merge folds one chunk result into the report. It runs only on the
// control goroutine, which owns filter and report.
func (h *Harvester) merge(ctx context.Context, log *slog.Logger, filter *Filter, report *Report, res chunkResult) {
	log = log.With("chunk", res.job.String())
	if res.elapsed > 0 {
		h.metrics.observeFetch(res.elapsed)
	}

	if res.err != nil {
		report.fail(res.job, res.stage, res.err)
		h.metrics.chunk("failed")
		log.Warn("chunk failed", "stage", res.stage, "error", res.err)
		return
	}

	records := res.chunk.Records
	report.RecordsFetched += len(records)
	report.RecordsRejected += res.chunk.Rejected
	h.metrics.addRecords("fetched", len(records))
	h.metrics.addRecords("rejected", res.chunk.Rejected)

	kept, dups := filter.FilterNew(records)

	// Records already fetched are written even after cancellation; the
	// transaction is bounded by the store, not the job.
	inserted, err := h.store.InsertBatch(context.WithoutCancel(ctx), kept)
	if err != nil {
		filter.Forget(kept)
		report.RecordsDuplicate += dups
		report.fail(res.job, StageWrite, err)
		h.metrics.chunk("failed")
		h.metrics.addRecords("duplicate", dups)
		h.metrics.setKnownKeys(filter.Len())
		log.Error("chunk write failed", "records", len(kept), "error", err)
		return
	}

	// Keys the store already held that the filter did not know about.
	conflicts := len(kept) - inserted
	report.ChunksSucceeded++
	report.RecordsNew += inserted
	report.RecordsDuplicate += dups + conflicts
	h.metrics.chunk("succeeded")
	h.metrics.addRecords("new", inserted)
	h.metrics.addRecords("duplicate", dups+conflicts)
	h.metrics.setKnownKeys(filter.Len())
	log.Debug("chunk merged",
		"entries", res.chunk.Entries, "rejected", res.chunk.Rejected,
		"new", inserted, "duplicate", dups+conflicts)
}

func enter(log *slog.Logger, p Phase) {
	log.Debug("phase", "phase", string(p))
}

// pause waits d or until ctx is done.
func pause(ctx context.Context, d time.Duration) {
	if d <= 0 || ctx.Err() != nil {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
