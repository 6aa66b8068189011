// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package catalog

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/catalog-harvester/pkg/types"
)

// --- Lookup ---

func TestLookup(t *testing.T) {
	want := map[string]string{
		"europa-repo":   europaPlatform,
		"europa-search": europaPlatform,
		"datagov":       dataGovPlatform,
	}
	assert.Len(t, Names(), len(want))
	for _, name := range Names() {
		p, err := Lookup(name)
		require.NoError(t, err, name)
		assert.Equal(t, want[name], p.Name())
		assert.NotEmpty(t, p.Endpoint())
	}

	_, err := Lookup("ckan")
	if !errors.Is(err, ErrUnknownPlatform) {
		t.Errorf("Lookup(ckan) error = %v, want ErrUnknownPlatform", err)
	}
}

// --- EuropaRepo ---

func TestEuropaRepoNormalize(t *testing.T) {
	rec, ok := EuropaRepo{}.Normalize(json.RawMessage(`"  abc-123  "`))
	require.True(t, ok)

	assert.Equal(t, "https://data.europa.eu/data/datasets/abc-123", rec.SourceURL)
	assert.Equal(t, "abc-123", rec.RawID)
	assert.Equal(t, "abc-123", rec.Code)
	assert.Equal(t, "data.europa.eu", rec.SourcePlatform)
	assert.Equal(t, "European Dataset abc-123", rec.Title)
	assert.Equal(t, []string{UnknownFormat}, rec.Formats)
	assert.Equal(t, []string{rec.SourceURL}, rec.DownloadURLs)
	assert.Equal(t, types.AvailabilityMetadataOnly, rec.DataAvailability)
	assert.Equal(t, types.AvailabilityAvailable, rec.MetadataAvailability)
	assert.Nil(t, rec.PublicationDate)
	assert.Nil(t, rec.LastModifiedDate)
	assert.JSONEq(t, `{"type":"european_dataset","id":"abc-123"}`, string(rec.Concepts))
}

func TestEuropaRepoNormalizeDeterministic(t *testing.T) {
	a, ok := EuropaRepo{}.Normalize(json.RawMessage(`"dataset-1"`))
	require.True(t, ok)
	b, ok := EuropaRepo{}.Normalize(json.RawMessage(`"dataset-1"`))
	require.True(t, ok)
	assert.Equal(t, a, b)
}

func TestEuropaRepoRejects(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty string", `""`},
		{"whitespace", `"   "`},
		{"one char", `"a"`},
		{"two chars", `"ab"`},
		{"two chars padded", `"  ab  "`},
		{"short number", `42`},
		{"bool", `true`},
		{"object", `{"id":"abcdef"}`},
		{"null", `null`},
		{"garbage", `not json`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := (EuropaRepo{}).Normalize(json.RawMessage(tt.raw)); ok {
				t.Errorf("Normalize(%s) accepted, want reject", tt.raw)
			}
		})
	}
}

func TestEuropaRepoAcceptsNumericID(t *testing.T) {
	rec, ok := EuropaRepo{}.Normalize(json.RawMessage(`1234567`))
	require.True(t, ok)
	assert.Equal(t, "1234567", rec.RawID)
	assert.Equal(t, "https://data.europa.eu/data/datasets/1234567", rec.SourceURL)
}

func TestEuropaRepoAcceptsMinimumLength(t *testing.T) {
	rec, ok := EuropaRepo{}.Normalize(json.RawMessage(`"abc"`))
	require.True(t, ok)
	assert.Equal(t, "abc", rec.RawID)
}

// --- EuropaSearch ---

const sampleSearchEntry = `{
  "id": "air-quality-2023",
  "title": {"de": "Luftqualität 2023", "en": "Air quality 2023"},
  "description": {"de": "Messwerte"},
  "publisher": {"name": "Umweltbundesamt", "type": "organization"},
  "contact_point": [{"name": "Data Office"}],
  "keywords": [{"id": "air", "label": "air"}, {"id": "q", "label": " quality "}, {"label": ""}],
  "categories": [{"id": "ENVI", "label": {"en": "Environment"}}],
  "distributions": [
    {"format": {"id": "CSV", "label": "CSV"}, "download_url": ["https://example.org/a.csv"],
     "license": {"id": "CC-BY-4.0", "label": "Creative Commons Attribution 4.0"}},
    {"format": {"id": "CSV", "label": "CSV"}, "access_url": ["https://example.org/portal"]},
    {"format": {"id": "JSON"}}
  ],
  "issued": "2023-04-01",
  "modified": "2023-05-02T10:11:12Z",
  "catalog": {"id": "govdata"},
  "country": {"id": "de"}
}`

func TestEuropaSearchNormalize(t *testing.T) {
	rec, ok := EuropaSearch{}.Normalize(json.RawMessage(sampleSearchEntry))
	require.True(t, ok)

	assert.Equal(t, "https://data.europa.eu/data/datasets/air-quality-2023", rec.SourceURL)
	assert.Equal(t, "Air quality 2023", rec.Title)
	assert.Equal(t, "Messwerte", rec.Description, "falls back to the only language present")
	assert.Equal(t, "Umweltbundesamt", rec.Organization)
	assert.Equal(t, "Data Office", rec.Maintainer)
	assert.Equal(t, []string{"air", "quality"}, rec.Keywords)
	assert.Equal(t, []string{"envi"}, rec.Groups)
	assert.Equal(t, []string{"CSV", "JSON"}, rec.Formats)
	assert.Equal(t, []string{"https://example.org/a.csv", "https://example.org/portal"}, rec.DownloadURLs)
	assert.Equal(t, "Creative Commons Attribution 4.0", rec.License)
	assert.Equal(t, types.AvailabilityAvailable, rec.DataAvailability)

	require.NotNil(t, rec.PublicationDate)
	assert.Equal(t, "2023-04-01", rec.PublicationDate.Format("2006-01-02"))
	require.NotNil(t, rec.LastModifiedDate)
	assert.Equal(t, 10, rec.LastModifiedDate.Hour())

	var concepts map[string]any
	require.NoError(t, json.Unmarshal(rec.Concepts, &concepts))
	assert.Equal(t, "govdata", concepts["catalog"])
	assert.Equal(t, "de", concepts["country"])
	assert.Equal(t, []any{"de", "en"}, concepts["languages"])
}

func TestEuropaSearchNormalizeDefaults(t *testing.T) {
	rec, ok := EuropaSearch{}.Normalize(json.RawMessage(`{"id": "bare-entry", "title": "Plain title"}`))
	require.True(t, ok)

	assert.Equal(t, "Plain title", rec.Title)
	assert.Equal(t, europaPublisher, rec.Organization)
	assert.Equal(t, []string{UnknownFormat}, rec.Formats)
	assert.Equal(t, []string{rec.SourceURL}, rec.DownloadURLs)
	assert.NotEmpty(t, rec.Groups)
	assert.NotEmpty(t, rec.Keywords)
	assert.Equal(t, types.AvailabilityMetadataOnly, rec.DataAvailability)
	assert.Nil(t, rec.PublicationDate, "absent dates stay nil")
	assert.Nil(t, rec.LastModifiedDate)
}

func TestEuropaSearchToleratesIllTypedFields(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		check func(t *testing.T, rec types.Record)
	}{
		{
			name: "download_url as a string",
			raw:  `{"id": "abcd", "distributions": [{"download_url": "http://x/y.csv"}]}`,
			check: func(t *testing.T, rec types.Record) {
				assert.Equal(t, []string{"http://x/y.csv"}, rec.DownloadURLs)
				assert.Equal(t, types.AvailabilityAvailable, rec.DataAvailability)
			},
		},
		{
			name: "contact_point as an object",
			raw:  `{"id": "abcd", "contact_point": {"name": "Help Desk"}}`,
			check: func(t *testing.T, rec types.Record) {
				assert.Equal(t, "Help Desk", rec.Maintainer)
			},
		},
		{
			name: "publisher as a string",
			raw:  `{"id": "abcd", "publisher": "Statistics Office"}`,
			check: func(t *testing.T, rec types.Record) {
				assert.Equal(t, "Statistics Office", rec.Organization)
			},
		},
		{
			name: "wrong types fall back to defaults",
			raw: `{"id": "abcd", "title": 12, "keywords": "air", "categories": 7,
			       "issued": false, "distributions": {"format": 3}}`,
			check: func(t *testing.T, rec types.Record) {
				assert.Empty(t, rec.Title)
				assert.Equal(t, []string{"european data", "open data"}, rec.Keywords)
				assert.Equal(t, []string{"european-data", "open-data"}, rec.Groups)
				assert.Nil(t, rec.PublicationDate)
				assert.Equal(t, []string{UnknownFormat}, rec.Formats)
			},
		},
		{
			name: "bad list element skipped",
			raw:  `{"id": "abcd", "keywords": [{"label": "water"}, 5, {"label": "soil"}]}`,
			check: func(t *testing.T, rec types.Record) {
				assert.Equal(t, []string{"water", "soil"}, rec.Keywords)
			},
		},
		{
			name: "numeric id",
			raw:  `{"id": 98765}`,
			check: func(t *testing.T, rec types.Record) {
				assert.Equal(t, "98765", rec.RawID)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, ok := EuropaSearch{}.Normalize(json.RawMessage(tt.raw))
			require.True(t, ok)
			tt.check(t, rec)
		})
	}
}

func TestEuropaSearchDistributionsWithoutURLs(t *testing.T) {
	rec, ok := EuropaSearch{}.Normalize(json.RawMessage(`{"id": "abcd", "distributions": [{"format": {"id": "PDF"}}]}`))
	require.True(t, ok)
	assert.Equal(t, types.AvailabilityUnavailable, rec.DataAvailability)
	assert.Equal(t, []string{"PDF"}, rec.Formats)
	assert.Equal(t, []string{rec.SourceURL}, rec.DownloadURLs)
}

func TestEuropaSearchRejects(t *testing.T) {
	for _, raw := range []string{`{"id": "x1"}`, `{"title": {"en": "no id"}}`, `"bare-string-id"`, `[]`} {
		if _, ok := (EuropaSearch{}).Normalize(json.RawMessage(raw)); ok {
			t.Errorf("Normalize(%s) accepted, want reject", raw)
		}
	}
}

// --- DataGov ---

const sampleCKANPackage = `{
  "id": "3f2b-aa10-44c1",
  "name": "crime-data-2022",
  "title": " Crime Data 2022 ",
  "notes": "Incidents reported to police.",
  "author": "",
  "maintainer": "Open Data Team",
  "organization": {"name": "city-of-x", "title": "City of X"},
  "tags": [{"name": "crime"}, {"name": "safety"}],
  "groups": [{"name": "Local"}],
  "license_title": "Public Domain",
  "metadata_created": "2022-01-02T03:04:05.123456",
  "metadata_modified": "2022-02-03T04:05:06.654321",
  "resources": [
    {"format": "csv", "url": "https://x.gov/crime.csv"},
    {"format": "CSV", "url": "https://x.gov/crime-2.csv"},
    {"format": "JSON", "url": ""}
  ]
}`

func TestDataGovNormalize(t *testing.T) {
	rec, ok := DataGov{}.Normalize(json.RawMessage(sampleCKANPackage))
	require.True(t, ok)

	assert.Equal(t, "https://catalog.data.gov/dataset/3f2b-aa10-44c1", rec.SourceURL)
	assert.Equal(t, "data.gov", rec.SourcePlatform)
	assert.Equal(t, "crime-data-2022", rec.Code)
	assert.Equal(t, "Crime Data 2022", rec.Title)
	assert.Equal(t, "Incidents reported to police.", rec.Description)
	assert.Equal(t, "City of X", rec.Organization)
	assert.Equal(t, "City of X", rec.Author, "empty author falls back to the organization")
	assert.Equal(t, "Open Data Team", rec.Maintainer)
	assert.Equal(t, []string{"crime", "safety"}, rec.Keywords)
	assert.Equal(t, []string{"local"}, rec.Groups)
	assert.Equal(t, []string{"CSV", "JSON"}, rec.Formats)
	assert.Equal(t, []string{"https://x.gov/crime.csv", "https://x.gov/crime-2.csv"}, rec.DownloadURLs)
	assert.Equal(t, "Public Domain", rec.License)
	assert.Equal(t, types.AvailabilityAvailable, rec.DataAvailability)
	require.NotNil(t, rec.PublicationDate)
	assert.Equal(t, "2022-01-02", rec.PublicationDate.Format("2006-01-02"))
}

func TestDataGovNormalizeTolerant(t *testing.T) {
	rec, ok := DataGov{}.Normalize(json.RawMessage(`{"id": "pkg-1", "organization": "oops", "tags": "x", "resources": [{"format": 1}]}`))
	require.True(t, ok)
	assert.Empty(t, rec.Organization)
	assert.Equal(t, "pkg-1", rec.Code)
	assert.Equal(t, []string{"open data", "government data"}, rec.Keywords)
	assert.Equal(t, types.AvailabilityUnavailable, rec.DataAvailability)

	for _, raw := range []string{`{"name": "no-id"}`, `{"id": "ab"}`, `"pkg-1"`} {
		_, ok := DataGov{}.Normalize(json.RawMessage(raw))
		assert.False(t, ok, raw)
	}
}

func TestDataGovPageParams(t *testing.T) {
	q := DataGov{}.PageParams(types.ChunkJob{Offset: 40, Limit: 20})
	assert.Equal(t, "20", q.Get("rows"))
	assert.Equal(t, "40", q.Get("start"))

	q = pageParams(EuropaRepo{}, types.ChunkJob{Offset: 40, Limit: 20})
	assert.Equal(t, "20", q.Get("limit"))
	assert.Equal(t, "40", q.Get("offset"))
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2021-03-04", "2021-03-04"},
		{"2021-03-04T05:06:07", "2021-03-04"},
		{"2021-03-04T05:06:07.123+02:00", "2021-03-04"},
		{"", ""},
		{"yesterday", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := parseDate(tt.in)
			if tt.want == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.Format("2006-01-02"))
		})
	}
}
