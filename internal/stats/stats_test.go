package stats

import (
	"testing"

	"github.com/rm-hull/near-expiry-food/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDerive(t *testing.T) {
	results := models.SearchResultSet{
		{Brand: "7-11", StoreName: "7-11 信義門市", DistanceMeters: 120, TotalQuantity: 5,
			Categories: []models.Category{{Name: "便當", Quantity: 2}, {Name: "麵包", Quantity: 3}}},
		{Brand: "FamilyMart", StoreName: "全家信義店", DistanceMeters: 260, TotalQuantity: 3,
			Categories: []models.Category{{Name: "鮮食", Quantity: 3}}},
		{Brand: "7-11", StoreName: "7-11 松仁門市", DistanceMeters: 420.5, TotalQuantity: 3,
			Categories: []models.Category{{Name: "便當", Quantity: 3}}},
	}

	stats := Derive(results, 250)
	require.NotNil(t, stats)

	assert.Equal(t, 3, stats.TotalStores)
	assert.Equal(t, 11, stats.TotalQuantity)

	assert.Equal(t, models.BrandStatistics{
		Stores: 2, TotalQuantity: 8, NearestStore: "7-11 信義門市", NearestMeters: 120,
	}, stats.Brands["7-11"])
	assert.Equal(t, models.BrandStatistics{
		Stores: 1, TotalQuantity: 3, NearestStore: "全家信義店", NearestMeters: 260,
	}, stats.Brands["FamilyMart"])

	assert.Equal(t, []models.Category{
		{Name: "便當", Quantity: 5},
		{Name: "麵包", Quantity: 3},
		{Name: "鮮食", Quantity: 3},
	}, stats.CategoryQuantities)

	assert.Equal(t, map[string]int{"0-249": 1, "250-499": 2}, stats.DistanceBuckets)
	assert.Equal(t, []string{"0-249", "250-499"}, BucketOrder(stats.DistanceBuckets))
}

func TestDeriveEmpty(t *testing.T) {
	stats := Derive(nil, 0)
	assert.Equal(t, 0, stats.TotalStores)
	assert.Empty(t, stats.Brands)
	assert.NotNil(t, stats.CategoryQuantities)
}

func TestBucketOrderIsNumeric(t *testing.T) {
	buckets := map[string]int{"1000-1249": 1, "250-499": 1, "0-249": 1, "750-999": 1}
	assert.Equal(t, []string{"0-249", "250-499", "750-999", "1000-1249"}, BucketOrder(buckets))
}
