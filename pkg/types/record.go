// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the catalog-harvester pipeline:
// the canonical Record every platform normalizes into, the ChunkJob unit of
// fetch work, and the configuration structs for each stage.
package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// Availability is the availability status of a record's data or metadata.
type Availability string

const (
	AvailabilityMetadataOnly Availability = "metadata_only"
	AvailabilityAvailable    Availability = "available"
	AvailabilityUnavailable  Availability = "unavailable"
)

// Record is the canonical, platform-independent representation of one
// catalog entry. SourceURL is the sole deduplication key across the store.
type Record struct {
	// SourceURL is the globally unique key of the record.
	SourceURL string `json:"source_url" yaml:"source_url"`

	Title       string   `json:"title" yaml:"title"`
	Description string   `json:"description" yaml:"description"`
	Keywords    []string `json:"keywords" yaml:"keywords"`

	Organization string `json:"organization" yaml:"organization"`
	Author       string `json:"author" yaml:"author"`
	Maintainer   string `json:"maintainer" yaml:"maintainer"`

	// PublicationDate and LastModifiedDate are nil when the platform does
	// not report them.
	PublicationDate  *time.Time `json:"publication_date,omitempty" yaml:"publication_date,omitempty"`
	LastModifiedDate *time.Time `json:"last_modified_date,omitempty" yaml:"last_modified_date,omitempty"`

	Formats      []string `json:"formats" yaml:"formats"`
	DownloadURLs []string `json:"download_urls" yaml:"download_urls"`
	Groups       []string `json:"groups" yaml:"groups"`
	License      string   `json:"license" yaml:"license"`

	// SourcePlatform names the remote catalog that produced the record
	// (e.g. "data.europa.eu").
	SourcePlatform string `json:"source_platform" yaml:"source_platform"`

	// RawID is the platform-native identifier, kept for traceability.
	RawID string `json:"raw_id" yaml:"raw_id"`

	// Code is the platform short code for the entry.
	Code string `json:"code,omitempty" yaml:"code,omitempty"`

	DataAvailability     Availability `json:"data_availability" yaml:"data_availability"`
	MetadataAvailability Availability `json:"metadata_availability" yaml:"metadata_availability"`

	// Concepts carries platform-specific leftover metadata as serialized JSON.
	Concepts json.RawMessage `json:"concepts,omitempty" yaml:"-"`
}

// Key returns the deduplication key.
func (r Record) Key() string {
	return r.SourceURL
}

// ChunkJob describes one unit of fetch work: the page window
// [Offset, Offset+Limit) of the remote catalog.
type ChunkJob struct {
	Offset int `json:"offset" yaml:"offset"`
	Limit  int `json:"limit" yaml:"limit"`
}

// End returns the exclusive upper bound of the window.
func (j ChunkJob) End() int {
	return j.Offset + j.Limit
}

func (j ChunkJob) String() string {
	return fmt.Sprintf("[%d,%d)", j.Offset, j.End())
}
