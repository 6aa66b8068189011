// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package catalog

import (
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"github.com/pdiddy/catalog-harvester/pkg/types"
)

const (
	dataGovPlatform   = "data.gov"
	dataGovDatasetURL = "https://catalog.data.gov/dataset/"
)

// DataGov reads the CKAN package_search action of catalog.data.gov. Pages
// are addressed with rows and start, and entries arrive wrapped in
// {"success": true, "result": {"results": [...]}}.
type DataGov struct{}

// Name returns the source platform.
func (DataGov) Name() string { return dataGovPlatform }

// Endpoint returns the package search URL.
func (DataGov) Endpoint() string { return "https://catalog.data.gov/api/3/action/package_search" }

// PageParams selects the window with CKAN's rows and start parameters.
func (DataGov) PageParams(job types.ChunkJob) url.Values {
	return url.Values{
		"rows":  {strconv.Itoa(job.Limit)},
		"start": {strconv.Itoa(job.Offset)},
	}
}

type ckanNamed struct {
	Name  string `json:"name"`
	Title string `json:"title"`
}

func (n ckanNamed) label() string {
	if s := strings.TrimSpace(n.Title); s != "" {
		return s
	}
	return strings.TrimSpace(n.Name)
}

// Normalize maps one CKAN package onto a Record. Only a missing or short
// id rejects the package.
func (DataGov) Normalize(raw json.RawMessage) (types.Record, bool) {
	f, ok := decodeFields(raw)
	if !ok {
		return types.Record{}, false
	}
	id, ok := entryID(f["id"])
	if !ok {
		return types.Record{}, false
	}
	sourceURL := dataGovDatasetURL + id

	organization := field[ckanNamed](f, "organization").label()
	author := strings.TrimSpace(field[string](f, "author"))
	if author == "" {
		author = organization
	}
	maintainer := strings.TrimSpace(field[string](f, "maintainer"))
	if maintainer == "" {
		maintainer = author
	}

	var keywords []string
	for _, tag := range list[ckanNamed](f, "tags") {
		if name := strings.TrimSpace(tag.Name); name != "" {
			keywords = append(keywords, name)
		}
	}
	var groups []string
	for _, g := range list[ckanNamed](f, "groups") {
		if name := strings.TrimSpace(g.Name); name != "" {
			groups = append(groups, strings.ToLower(name))
		}
	}

	var formats, downloads []string
	seenFormat := make(map[string]bool)
	resources := list[json.RawMessage](f, "resources")
	for _, raw := range resources {
		r, ok := decodeFields(raw)
		if !ok {
			continue
		}
		if format := strings.ToUpper(strings.TrimSpace(field[string](r, "format"))); format != "" && !seenFormat[format] {
			seenFormat[format] = true
			formats = append(formats, format)
		}
		if u := strings.TrimSpace(field[string](r, "url")); u != "" {
			downloads = append(downloads, u)
		}
	}

	dataAvailability := types.AvailabilityMetadataOnly
	switch {
	case len(downloads) > 0:
		dataAvailability = types.AvailabilityAvailable
	case len(resources) > 0:
		dataAvailability = types.AvailabilityUnavailable
	}

	license := strings.TrimSpace(field[string](f, "license_title"))
	if license == "" {
		license = strings.TrimSpace(field[string](f, "license_id"))
	}

	code := strings.TrimSpace(field[string](f, "name"))
	if code == "" {
		code = id
	}

	return types.Record{
		SourceURL:            sourceURL,
		Title:                strings.TrimSpace(field[string](f, "title")),
		Description:          strings.TrimSpace(field[string](f, "notes")),
		Keywords:             orDefault(keywords, "open data", "government data"),
		Organization:         organization,
		Author:               author,
		Maintainer:           maintainer,
		PublicationDate:      parseDate(field[string](f, "metadata_created")),
		LastModifiedDate:     parseDate(field[string](f, "metadata_modified")),
		Formats:              orDefault(formats, UnknownFormat),
		DownloadURLs:         orDefault(downloads, sourceURL),
		Groups:               orDefault(groups, "open-data"),
		License:              license,
		SourcePlatform:       dataGovPlatform,
		RawID:                id,
		Code:                 code,
		DataAvailability:     dataAvailability,
		MetadataAvailability: types.AvailabilityAvailable,
		Concepts:             mustJSON(map[string]string{"type": "ckan_package", "id": id}),
	}, true
}
