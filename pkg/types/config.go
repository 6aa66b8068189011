package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the per-request timeout (default 30s).
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with every catalog request.
	UserAgent string `json:"user_agent" yaml:"user_agent"`

	// RequestsPerSecond caps the request rate against the remote catalog.
	// Zero disables the limiter.
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second"`

	// MaxRetries is the number of retries on HTTP 429 (default 5).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// HarvestConfig holds settings for one ingestion job.
type HarvestConfig struct {
	HTTPConfig `yaml:",inline"`

	// Platform is the catalog name as registered in internal/catalog
	// (e.g. "europa-repo").
	Platform string `json:"platform" yaml:"platform"`

	// Total is the number of catalog positions to harvest.
	Total int `json:"total" yaml:"total"`

	// PageSize is the number of entries requested per chunk (default 5000).
	PageSize int `json:"page_size" yaml:"page_size"`

	// Workers is the fetch worker pool size (default 8).
	Workers int `json:"workers" yaml:"workers"`

	// Offset is the first catalog position to harvest. A negative value
	// resumes from the number of records already stored for the platform.
	Offset int `json:"offset" yaml:"offset"`

	// InterChunkDelay is the pause after each merged chunk (default 100ms).
	InterChunkDelay time.Duration `json:"inter_chunk_delay" yaml:"inter_chunk_delay"`
}

// StoreDriver selects the persistent store backend.
type StoreDriver string

const (
	DriverSQLite   StoreDriver = "sqlite"
	DriverPostgres StoreDriver = "postgres"
)

// StoreConfig holds settings for the persistent store.
type StoreConfig struct {
	// Driver selects sqlite or postgres.
	Driver StoreDriver `json:"driver" yaml:"driver"`

	// DSN is the SQLite file path or the Postgres connection URL.
	DSN string `json:"dsn,omitempty" yaml:"dsn,omitempty"`

	// MaxConns bounds the Postgres connection pool (default 4).
	MaxConns int `json:"max_conns" yaml:"max_conns"`
}
