package harvest

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes harvest counters on a private Prometheus registry. A batch
// job has no scrape endpoint, so the registry is written to a node_exporter
// textfile once the job ends. A nil *Metrics records nothing.
type Metrics struct {
	registry     *prometheus.Registry
	chunks       *prometheus.CounterVec
	records      *prometheus.CounterVec
	fetchSeconds prometheus.Histogram
	knownKeys    prometheus.Gauge
	lastSuccess  prometheus.Gauge
}

// NewMetrics creates the harvest collectors labelled with platform.
func NewMetrics(platform string) *Metrics {
	labels := prometheus.Labels{"platform": platform}
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		chunks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "catalog_harvest_chunks_total",
			Help:        "Chunks processed, by outcome.",
			ConstLabels: labels,
		}, []string{"outcome"}),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "catalog_harvest_records_total",
			Help:        "Records seen, by outcome.",
			ConstLabels: labels,
		}, []string{"outcome"}),
		fetchSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "catalog_harvest_fetch_duration_seconds",
			Help:        "Wall time of one chunk fetch.",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		knownKeys: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "catalog_harvest_known_keys",
			Help:        "Source URLs held by the deduplication filter.",
			ConstLabels: labels,
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "catalog_harvest_last_run_timestamp_seconds",
			Help:        "Unix time the last harvest run finished.",
			ConstLabels: labels,
		}),
	}
	m.registry.MustRegister(m.chunks, m.records, m.fetchSeconds, m.knownKeys, m.lastSuccess)
	return m
}

// Registry returns the registry holding the harvest collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes the current metric values in the Prometheus text
// format to path, replacing the file atomically.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}

func (m *Metrics) observeFetch(d time.Duration) {
	if m == nil {
		return
	}
	m.fetchSeconds.Observe(d.Seconds())
}

func (m *Metrics) chunk(outcome string) {
	if m == nil {
		return
	}
	m.chunks.WithLabelValues(outcome).Inc()
}

func (m *Metrics) addRecords(outcome string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.records.WithLabelValues(outcome).Add(float64(n))
}

func (m *Metrics) setKnownKeys(n int) {
	if m == nil {
		return
	}
	m.knownKeys.Set(float64(n))
}

func (m *Metrics) finished(t time.Time) {
	if m == nil {
		return
	}
	m.lastSuccess.Set(float64(t.Unix()))
}
