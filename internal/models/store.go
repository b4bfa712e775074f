package models

import (
	"slices"
	"time"

	"github.com/rm-hull/near-expiry-food/internal/geo"
)

type SourceID string

const (
	SevenEleven SourceID = "seven_eleven"
	FamilyMart  SourceID = "family_mart"
)

type Category struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

type Item struct {
	Name        string `json:"name"`
	Quantity    int    `json:"quantity"`
	Category    string `json:"category"`
	SubCategory string `json:"sub_category,omitempty"`
}

// Store is a single store location with near-expiry stock, independent of
// the chain that reported it. Address and Phone are always serialised so an
// unsuccessful enrichment shows up as an empty string rather than vanishing.
type Store struct {
	Source         SourceID   `json:"source"`
	Brand          string     `json:"brand"`
	StoreID        string     `json:"store_id"`
	StoreName      string     `json:"store_name"`
	Address        string     `json:"address"`
	Phone          string     `json:"phone"`
	Latitude       *float64   `json:"latitude,omitempty"`
	Longitude      *float64   `json:"longitude,omitempty"`
	DistanceMeters float64    `json:"distance_meters"`
	TotalQuantity  int        `json:"total_quantity"`
	Categories     []Category `json:"categories"`
	Items          []Item     `json:"items"`
}

// SearchResultSet is ordered by ascending distance, ties kept in discovery order.
type SearchResultSet []Store

// SortByDistance stable-sorts in place and returns the receiver.
func (rs SearchResultSet) SortByDistance() SearchResultSet {
	slices.SortStableFunc(rs, func(a, b Store) int {
		switch {
		case a.DistanceMeters < b.DistanceMeters:
			return -1
		case a.DistanceMeters > b.DistanceMeters:
			return 1
		default:
			return 0
		}
	})
	return rs
}

func (rs SearchResultSet) IsSorted() bool {
	for i := 1; i < len(rs); i++ {
		if rs[i-1].DistanceMeters > rs[i].DistanceMeters {
			return false
		}
	}
	return true
}

type Location struct {
	geo.GeoPoint `koanf:",squash"`
	Description string `json:"description,omitempty" koanf:"description"`
}

type SearchSettings struct {
	RadiusMeters   float64 `json:"radius_meters"`
	LimitPerSource int     `json:"limit_per_source"`
}

// SourceStatus records how a single source fared during a search.
type SourceStatus struct {
	Source   SourceID      `json:"source"`
	Brand    string        `json:"brand"`
	OK       bool          `json:"ok"`
	Count    int           `json:"count"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}
