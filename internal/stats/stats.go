package stats

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/rm-hull/near-expiry-food/internal/models"
)

// Derive summarises a result set. Distance buckets are bucketMeters wide.
func Derive(results models.SearchResultSet, bucketMeters int) *models.SearchStatistics {
	if bucketMeters <= 0 {
		bucketMeters = 250
	}
	stats := &models.SearchStatistics{
		Brands:             make(map[string]models.BrandStatistics),
		CategoryQuantities: []models.Category{},
		DistanceBuckets:    make(map[string]int),
	}

	categoryTotals := make(map[string]int)
	var categoryOrder []string

	for _, result := range results {
		stats.TotalStores++
		stats.TotalQuantity += result.TotalQuantity

		brand := stats.Brands[result.Brand]
		brand.Stores++
		brand.TotalQuantity += result.TotalQuantity
		if brand.NearestStore == "" || result.DistanceMeters < brand.NearestMeters {
			brand.NearestStore = result.StoreName
			brand.NearestMeters = result.DistanceMeters
		}
		stats.Brands[result.Brand] = brand

		for _, cat := range result.Categories {
			if _, seen := categoryTotals[cat.Name]; !seen {
				categoryOrder = append(categoryOrder, cat.Name)
			}
			categoryTotals[cat.Name] += cat.Quantity
		}

		distance := int(math.Floor(result.DistanceMeters))
		bucketStart := (distance / bucketMeters) * bucketMeters
		bucketEnd := bucketStart + bucketMeters - 1
		bucketKey := fmt.Sprintf("%d-%d", bucketStart, bucketEnd)
		stats.DistanceBuckets[bucketKey]++
	}

	for _, name := range categoryOrder {
		stats.CategoryQuantities = append(stats.CategoryQuantities, models.Category{
			Name:     name,
			Quantity: categoryTotals[name],
		})
	}

	// Largest first; equal quantities keep first-seen order
	slices.SortStableFunc(stats.CategoryQuantities, func(a, b models.Category) int {
		return b.Quantity - a.Quantity
	})

	return stats
}

// BucketOrder returns the distance bucket keys in ascending order.
func BucketOrder(buckets map[string]int) []string {
	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b string) int {
		return bucketStart(a) - bucketStart(b)
	})
	return keys
}

func bucketStart(key string) int {
	var start int
	head, _, _ := strings.Cut(key, "-")
	_, _ = fmt.Sscanf(head, "%d", &start)
	return start
}
