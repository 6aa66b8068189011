// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package catalog talks to remote data portals. A Platform turns one raw
// catalog entry into a canonical types.Record; a Fetcher retrieves one
// page of a catalog and runs every entry through its Platform.
package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/catalog-harvester/pkg/types"
)

// MinIDLength is the shortest platform identifier accepted by Normalize.
// Shorter identifiers are treated as malformed entries.
const MinIDLength = 3

// UnknownFormat is the placeholder format for entries that declare none.
const UnknownFormat = "Unknown"

// Platform normalizes entries from one remote catalog. Implementations
// are stateless; Normalize is a pure function of its input.
type Platform interface {
	// Name is the source platform recorded on every record (e.g. "data.europa.eu").
	Name() string

	// Endpoint is the paginated catalog URL. See Pager for the window parameters.
	Endpoint() string

	// Normalize converts one raw entry into a Record. It returns false when
	// the entry is malformed and must be skipped.
	Normalize(raw json.RawMessage) (types.Record, bool)
}

// Pager is implemented by platforms whose API names the page window
// parameters differently. Platforms without it are queried with limit and
// offset.
type Pager interface {
	PageParams(job types.ChunkJob) url.Values
}

// pageParams returns the query parameters selecting job's window on p.
func pageParams(p Platform, job types.ChunkJob) url.Values {
	if pager, ok := p.(Pager); ok {
		return pager.PageParams(job)
	}
	return url.Values{
		"limit":  {strconv.Itoa(job.Limit)},
		"offset": {strconv.Itoa(job.Offset)},
	}
}

// registry maps CLI names to platform constructors.
var registry = map[string]func() Platform{
	"europa-repo":   func() Platform { return EuropaRepo{} },
	"europa-search": func() Platform { return EuropaSearch{} },
	"datagov":       func() Platform { return DataGov{} },
}

// Lookup returns the platform registered under name.
func Lookup(name string) (Platform, error) {
	newPlatform, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %s)", ErrUnknownPlatform, name, strings.Join(Names(), ", "))
	}
	return newPlatform(), nil
}

// Names lists registered platform names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// validID trims id and reports whether it is long enough to be a real identifier.
func validID(id string) (string, bool) {
	id = strings.TrimSpace(id)
	return id, len(id) >= MinIDLength
}

// entryID reads an identifier given as a JSON string or number. Numbers
// keep their literal text, so 12345 becomes "12345".
func entryID(raw json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return validID(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return validID(n.String())
	}
	return "", false
}

// fields holds the members of one JSON object, decoded one at a time so a
// member of an unexpected type costs only that member.
type fields map[string]json.RawMessage

func decodeFields(raw json.RawMessage) (fields, bool) {
	var f fields
	if err := json.Unmarshal(raw, &f); err != nil || f == nil {
		return nil, false
	}
	return f, true
}

// field decodes member name of f into a T. A missing or ill-typed member
// yields the zero T.
func field[T any](f fields, name string) T {
	var v T
	raw, ok := f[name]
	if !ok {
		return v
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		var zero T
		return zero
	}
	return v
}

// many is a list that also accepts a single value in place of the array.
type many[T any] []T

func (m *many[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*m = nil
		return nil
	case len(data) > 0 && data[0] == '[':
		var list []T
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		*m = list
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*m = many[T]{v}
	return nil
}

// list decodes member name of f as a list of T, skipping elements that do
// not decode. A single value counts as a one-element list.
func list[T any](f fields, name string) []T {
	raws := field[many[json.RawMessage]](f, name)
	out := make([]T, 0, len(raws))
	for _, raw := range raws {
		var v T
		if err := json.Unmarshal(raw, &v); err == nil {
			out = append(out, v)
		}
	}
	return out
}

// nonEmpty trims values and drops the blank ones.
func nonEmpty(values []string) []string {
	out := values[:0:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// parseDate accepts the date layouts portals emit and returns nil for
// anything empty or unparseable.
func parseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

// orDefault returns values when non-empty, else a copy of fallback.
func orDefault(values []string, fallback ...string) []string {
	if len(values) > 0 {
		return values
	}
	return append([]string(nil), fallback...)
}

// mustJSON marshals v, which is always a map of plain values here.
func mustJSON(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("{}")
	}
	return data
}
