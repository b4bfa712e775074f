package models

import (
	"time"

	"github.com/google/uuid"
)

type BrandStatistics struct {
	Stores        int     `json:"stores"`
	TotalQuantity int     `json:"total_quantity"`
	NearestStore  string  `json:"nearest_store,omitempty"`
	NearestMeters float64 `json:"nearest_meters,omitempty"`
}

type SearchStatistics struct {
	TotalStores        int                        `json:"total_stores"`
	TotalQuantity      int                        `json:"total_quantity"`
	Brands             map[string]BrandStatistics `json:"brands"`
	CategoryQuantities []Category                 `json:"category_quantities"`
	DistanceBuckets    map[string]int             `json:"distance_buckets"`
}

type SearchResponse struct {
	QueryID    uuid.UUID         `json:"query_id"`
	QueryTime  time.Time         `json:"query_time"`
	Location   Location          `json:"location"`
	Settings   SearchSettings    `json:"search_settings"`
	Sources    []SourceStatus    `json:"sources"`
	Stores     SearchResultSet   `json:"stores"`
	Statistics *SearchStatistics `json:"statistics,omitempty"`
}

// Failed returns the statuses of sources that were attempted but failed.
func (resp *SearchResponse) Failed() []SourceStatus {
	var failed []SourceStatus
	for _, s := range resp.Sources {
		if !s.OK {
			failed = append(failed, s)
		}
	}
	return failed
}

// StoresFor returns the stores reported by a single source, in result order.
func (resp *SearchResponse) StoresFor(source SourceID) SearchResultSet {
	out := SearchResultSet{}
	for _, s := range resp.Stores {
		if s.Source == source {
			out = append(out, s)
		}
	}
	return out
}
