// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package catalog

import (
	"encoding/json"

	"github.com/pdiddy/catalog-harvester/pkg/types"
)

const (
	europaPlatform   = "data.europa.eu"
	europaDatasetURL = "https://data.europa.eu/data/datasets/"
	europaPublisher  = "European Data Portal"
)

// EuropaRepo reads the data.europa.eu repository listing, which returns a
// JSON array of bare dataset identifiers. Everything except the identifier
// is filled with portal-wide defaults.
type EuropaRepo struct{}

// Name returns the source platform.
func (EuropaRepo) Name() string { return europaPlatform }

// Endpoint returns the repository listing URL.
func (EuropaRepo) Endpoint() string { return "https://data.europa.eu/api/hub/repo/datasets" }

// Normalize builds a metadata-only record from a bare identifier, given as
// a JSON string or number.
func (EuropaRepo) Normalize(raw json.RawMessage) (types.Record, bool) {
	id, ok := entryID(raw)
	if !ok {
		return types.Record{}, false
	}

	sourceURL := europaDatasetURL + id
	return types.Record{
		SourceURL:            sourceURL,
		Title:                "European Dataset " + id,
		Description:          "Dataset from the European Data Portal with ID: " + id,
		Keywords:             []string{"european data", "open data", "government data"},
		Organization:         europaPublisher,
		Author:               europaPublisher,
		Maintainer:           europaPublisher,
		Formats:              []string{UnknownFormat},
		DownloadURLs:         []string{sourceURL},
		Groups:               []string{"european-data", "open-data"},
		License:              "Various European Licenses",
		SourcePlatform:       europaPlatform,
		RawID:                id,
		Code:                 id,
		DataAvailability:     types.AvailabilityMetadataOnly,
		MetadataAvailability: types.AvailabilityAvailable,
		Concepts:             mustJSON(map[string]string{"type": "european_dataset", "id": id}),
	}, true
}
