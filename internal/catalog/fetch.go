// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/pdiddy/catalog-harvester/internal/httputil"
	"github.com/pdiddy/catalog-harvester/pkg/types"
)

// DefaultTimeout bounds a single page request.
const DefaultTimeout = 30 * time.Second

// Chunk is the normalized content of one fetched page.
type Chunk struct {
	Job types.ChunkJob

	// Records holds the entries that survived normalization, in catalog order.
	Records []types.Record

	// Entries is the number of raw entries on the page.
	Entries int

	// Rejected counts entries the Platform refused as malformed.
	Rejected int
}

// Fetcher retrieves one page of a remote catalog and normalizes it. A
// Fetcher holds only read-only configuration and may be shared by any
// number of concurrent workers.
type Fetcher struct {
	Client   *httputil.Client
	Platform Platform

	// Endpoint overrides Platform.Endpoint() when set.
	Endpoint string

	// Timeout bounds each page request (default 30s).
	Timeout time.Duration

	Logger *slog.Logger
}

// Fetch requests the page window described by job and normalizes every
// entry on it. On any failure the returned Chunk carries no records and
// the error explains the cause; Fetch never panics on remote input.
// Fetch does not deduplicate.
func (f *Fetcher) Fetch(ctx context.Context, job types.ChunkJob) (Chunk, error) {
	chunk := Chunk{Job: job}

	timeout := f.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	reqURL, err := f.pageURL(job)
	if err != nil {
		return chunk, err
	}

	resp, err := f.Client.Get(ctx, reqURL)
	if err != nil {
		return chunk, fmt.Errorf("chunk %s: catalog request: %w", job, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return chunk, fmt.Errorf("chunk %s: %w: HTTP %d", job, ErrHTTPStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return chunk, fmt.Errorf("chunk %s: reading body: %w", job, err)
	}

	entries, err := decodeEntries(body)
	if err != nil {
		return chunk, fmt.Errorf("chunk %s: %w", job, err)
	}

	chunk.Entries = len(entries)
	chunk.Records = make([]types.Record, 0, len(entries))
	for _, raw := range entries {
		rec, ok := f.Platform.Normalize(raw)
		if !ok {
			chunk.Rejected++
			continue
		}
		chunk.Records = append(chunk.Records, rec)
	}

	f.logger().Debug("chunk fetched", "chunk", job.String(), "entries", chunk.Entries,
		"records", len(chunk.Records), "rejected", chunk.Rejected)
	return chunk, nil
}

func (f *Fetcher) pageURL(job types.ChunkJob) (string, error) {
	endpoint := f.Endpoint
	if endpoint == "" {
		endpoint = f.Platform.Endpoint()
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parsing endpoint %q: %w", endpoint, err)
	}
	q := u.Query()
	for k, v := range pageParams(f.Platform, job) {
		q[k] = v
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (f *Fetcher) logger() *slog.Logger {
	if f.Logger != nil {
		return f.Logger
	}
	return slog.Default()
}

// decodeEntries extracts the raw entries from a page body. Accepted shapes
// are a bare JSON array, an object with a "results" array, and an object
// whose "result" object holds the "results" array.
func decodeEntries(body []byte) ([]json.RawMessage, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || !json.Valid(body) {
		return nil, ErrMalformedPayload
	}

	switch body[0] {
	case '[':
		var entries []json.RawMessage
		if err := json.Unmarshal(body, &entries); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		return entries, nil
	case '{':
		var envelope struct {
			Results json.RawMessage `json:"results"`
			Result  json.RawMessage `json:"result"`
		}
		if err := json.Unmarshal(body, &envelope); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnexpectedShape, err)
		}
		if entries, ok := asArray(envelope.Results); ok {
			return entries, nil
		}
		if len(envelope.Result) > 0 && envelope.Result[0] == '{' {
			return decodeEntries(envelope.Result)
		}
	}
	return nil, ErrUnexpectedShape
}

func asArray(raw json.RawMessage) ([]json.RawMessage, bool) {
	if len(raw) == 0 || raw[0] != '[' {
		return nil, false
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, false
	}
	return entries, true
}
