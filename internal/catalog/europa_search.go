// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package catalog

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/pdiddy/catalog-harvester/pkg/types"
)

// EuropaSearch reads the data.europa.eu search API, whose entries are
// structured DCAT-AP objects with multilingual text fields.
type EuropaSearch struct{}

// Name returns the source platform.
func (EuropaSearch) Name() string { return europaPlatform }

// Endpoint returns the search API URL.
func (EuropaSearch) Endpoint() string { return "https://data.europa.eu/api/hub/search/datasets" }

// Normalize maps one search result onto a Record. English text is preferred;
// otherwise the lowest language code present is used so output is stable.
// Only a missing or short id rejects the entry: any other member of an
// unexpected type falls back to its default.
func (EuropaSearch) Normalize(raw json.RawMessage) (types.Record, bool) {
	f, ok := decodeFields(raw)
	if !ok {
		return types.Record{}, false
	}
	id, ok := entryID(f["id"])
	if !ok {
		return types.Record{}, false
	}

	sourceURL := europaDatasetURL + id
	publisher := strings.TrimSpace(field[europaPublisherRef](f, "publisher").Name)
	if publisher == "" {
		publisher = europaPublisher
	}
	maintainer := publisher
	for _, cp := range list[europaPublisherRef](f, "contact_point") {
		if name := strings.TrimSpace(cp.Name); name != "" {
			maintainer = name
			break
		}
	}

	var keywords []string
	for _, kw := range list[europaLabel](f, "keywords") {
		if label := strings.TrimSpace(kw.Label); label != "" {
			keywords = append(keywords, label)
		}
	}

	var groups []string
	for _, c := range list[europaLabel](f, "categories") {
		if c.ID != "" {
			groups = append(groups, strings.ToLower(c.ID))
		}
	}

	var formats, downloads []string
	license := ""
	seenFormat := make(map[string]bool)
	distributions := list[json.RawMessage](f, "distributions")
	for _, raw := range distributions {
		d, ok := decodeFields(raw)
		if !ok {
			continue
		}
		format := field[europaLabel](d, "format")
		name := format.Label
		if name == "" {
			name = format.ID
		}
		if name != "" && !seenFormat[name] {
			seenFormat[name] = true
			formats = append(formats, name)
		}
		urls := nonEmpty(list[string](d, "download_url"))
		if len(urls) == 0 {
			urls = nonEmpty(list[string](d, "access_url"))
		}
		downloads = append(downloads, urls...)
		if license == "" {
			l := field[europaLabel](d, "license")
			license = l.Label
			if license == "" {
				license = l.ID
			}
		}
	}

	// Listed distributions without a single URL cannot be retrieved.
	dataAvailability := types.AvailabilityMetadataOnly
	switch {
	case len(downloads) > 0:
		dataAvailability = types.AvailabilityAvailable
	case len(distributions) > 0:
		dataAvailability = types.AvailabilityUnavailable
	}

	title := field[langText](f, "title")
	concepts := map[string]any{
		"type": "european_dataset",
		"id":   id,
	}
	if c := field[europaLabel](f, "catalog"); c.ID != "" {
		concepts["catalog"] = c.ID
	}
	if c := field[europaLabel](f, "country"); c.ID != "" {
		concepts["country"] = c.ID
	}
	if langs := title.languages(); len(langs) > 0 {
		concepts["languages"] = langs
	}

	return types.Record{
		SourceURL:            sourceURL,
		Title:                title.preferred(),
		Description:          field[langText](f, "description").preferred(),
		Keywords:             orDefault(keywords, "european data", "open data"),
		Organization:         publisher,
		Author:               publisher,
		Maintainer:           maintainer,
		PublicationDate:      parseDate(field[string](f, "issued")),
		LastModifiedDate:     parseDate(field[string](f, "modified")),
		Formats:              orDefault(formats, UnknownFormat),
		DownloadURLs:         orDefault(downloads, sourceURL),
		Groups:               orDefault(groups, "european-data", "open-data"),
		License:              license,
		SourcePlatform:       europaPlatform,
		RawID:                id,
		Code:                 id,
		DataAvailability:     dataAvailability,
		MetadataAvailability: types.AvailabilityAvailable,
		Concepts:             mustJSON(concepts),
	}, true
}

type europaPublisherRef struct {
	Name string `json:"name"`
}

// europaPublisherRef tolerates a bare name string.
func (p *europaPublisherRef) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		p.Name = name
		return nil
	}
	var raw struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.Name = raw.Name
	return nil
}

type europaLabel struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// europaLabel tolerates a bare id string and labels given as a language map.
func (l *europaLabel) UnmarshalJSON(data []byte) error {
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		l.ID = id
		return nil
	}
	var raw struct {
		ID    string   `json:"id"`
		Label langText `json:"label"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	l.ID = raw.ID
	l.Label = raw.Label.preferred()
	return nil
}

// langText is a multilingual text field. The portal sends either a plain
// string or an object keyed by language code.
type langText map[string]string

func (t *langText) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*t = langText{"": s}
		return nil
	}
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*t = m
	return nil
}

func (t langText) preferred() string {
	if s, ok := t["en"]; ok && strings.TrimSpace(s) != "" {
		return strings.TrimSpace(s)
	}
	for _, lang := range t.sortedKeys() {
		if s := strings.TrimSpace(t[lang]); s != "" {
			return s
		}
	}
	return ""
}

func (t langText) languages() []string {
	var langs []string
	for _, lang := range t.sortedKeys() {
		if lang != "" {
			langs = append(langs, lang)
		}
	}
	return langs
}

func (t langText) sortedKeys() []string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
