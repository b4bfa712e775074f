package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	jsoniter "github.com/json-iterator/go"
	"github.com/rm-hull/near-expiry-food/internal/geo"
	"github.com/rm-hull/near-expiry-food/internal/geocode"
	"github.com/rm-hull/near-expiry-food/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const familyMartListing = `{"data": [
	{"oldPKey": "FM-2", "name": "全家松仁店", "address": "台北市信義區松仁路2號", "tel": "02-1111",
	 "latitude": 25.0360, "longitude": 121.5680,
	 "info": [{"name": "鮮食", "qty": 4, "categories": [
		{"name": "飯糰", "products": [{"name": "鮭魚飯糰", "qty": 3}, {"name": "肉鬆飯糰", "qty": 1}]}
	 ]}]},
	{"oldPKey": "FM-1", "name": "全家信義店", "address": "台北市信義區信義路1號", "tel": "02-2222",
	 "latitude": 25.0331, "longitude": 121.5655,
	 "info": [
		{"name": "鮮食", "qty": 2, "categories": [{"name": "便當", "products": [{"name": "排骨便當", "qty": 2}]}]},
		{"name": "麵包", "qty": 1, "categories": [{"name": "甜麵包", "products": [{"name": "奶油<br>麵包", "qty": 1}]}]}
	 ]},
	{"oldPKey": "FM-0", "name": "沒有庫存", "latitude": 25.0330, "longitude": 121.5654, "info": []},
	{"oldPKey": "FM-X", "name": "沒有座標", "info": [{"name": "鮮食", "qty": 9}]},
	{"oldPKey": "FM-FAR", "name": "很遠", "latitude": 25.1, "longitude": 121.6,
	 "info": [{"name": "鮮食", "qty": 9}]}
]}`

func familyMartServer(t *testing.T, status int, body string, requests *[]models.FamilyMartRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "/MapProductInfo", req.URL.Path)
		assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
		var payload models.FamilyMartRequest
		assert.NoError(t, json.NewDecoder(req.Body).Decode(&payload))
		if requests != nil {
			*requests = append(*requests, payload)
		}
		writeJSON(w, status, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestFamilyMart(srv *httptest.Server, usePostcode bool, opts ...Option) *FamilyMart {
	return NewFamilyMart(FamilyMartConfig{
		BaseURL:     srv.URL + "/",
		Timeout:     2 * time.Second,
		UsePostcode: usePostcode,
	}, append([]Option{WithLogger(zap.NewNop())}, opts...)...)
}

func TestFamilyMartFetchNearby(t *testing.T) {
	var requests []models.FamilyMartRequest
	f := newTestFamilyMart(familyMartServer(t, http.StatusOK, familyMartListing, &requests), false)

	stores, err := f.FetchNearby(context.Background(), taipei, 1000, 10)
	require.NoError(t, err)
	require.Len(t, stores, 2)

	require.Len(t, requests, 1)
	assert.Equal(t, FamilyMartProjectCode, requests[0].ProjectCode)
	assert.Equal(t, taipei.Latitude, requests[0].Latitude)
	assert.Equal(t, taipei.Longitude, requests[0].Longitude)
	assert.Empty(t, requests[0].PostInfo)
	assert.NotNil(t, requests[0].OldPKeys)

	nearest := stores[0]
	assert.Equal(t, models.FamilyMart, nearest.Source)
	assert.Equal(t, "FamilyMart", nearest.Brand)
	assert.Equal(t, "FM-1", nearest.StoreID)
	assert.Equal(t, "全家信義店", nearest.StoreName)
	assert.Equal(t, "台北市信義區信義路1號", nearest.Address)
	assert.Equal(t, "02-2222", nearest.Phone)
	assert.Equal(t, 3, nearest.TotalQuantity)
	assert.Equal(t, []models.Category{{Name: "鮮食", Quantity: 2}, {Name: "麵包", Quantity: 1}}, nearest.Categories)
	assert.Equal(t, []models.Item{
		{Name: "排骨便當", Quantity: 2, Category: "鮮食", SubCategory: "便當"},
		{Name: "奶油 麵包", Quantity: 1, Category: "麵包", SubCategory: "甜麵包"},
	}, nearest.Items)
	assert.InDelta(t, geo.Distance(taipei, geo.GeoPoint{Latitude: 25.0331, Longitude: 121.5655}), nearest.DistanceMeters, 1e-9)

	assert.Equal(t, "FM-2", stores[1].StoreID)
	assert.Equal(t, 4, stores[1].TotalQuantity)
	assert.Less(t, nearest.DistanceMeters, stores[1].DistanceMeters)
	for _, s := range stores {
		assert.LessOrEqual(t, s.DistanceMeters, 1000.0)
	}
}

func TestFamilyMartLimit(t *testing.T) {
	f := newTestFamilyMart(familyMartServer(t, http.StatusOK, familyMartListing, nil), false)

	stores, err := f.FetchNearby(context.Background(), taipei, 1000, 1)
	require.NoError(t, err)
	require.Len(t, stores, 1)
	assert.Equal(t, "FM-1", stores[0].StoreID)
}

func TestFamilyMartEmptyRadius(t *testing.T) {
	f := newTestFamilyMart(familyMartServer(t, http.StatusOK, familyMartListing, nil), false)

	stores, err := f.FetchNearby(context.Background(), geo.GeoPoint{Latitude: 25.0, Longitude: 121.0}, 100, 10)
	require.NoError(t, err)
	assert.Empty(t, stores)
}

func TestFamilyMartFetchFailure(t *testing.T) {
	f := newTestFamilyMart(familyMartServer(t, http.StatusServiceUnavailable, `{}`, nil), false)

	_, err := f.FetchNearby(context.Background(), taipei, 1000, 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestFamilyMartTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		select {
		case <-req.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(srv.Close)

	f := NewFamilyMart(FamilyMartConfig{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	_, err := f.FetchNearby(context.Background(), taipei, 1000, 10)
	require.Error(t, err)
}

type stubGeocoder struct {
	addr *geocode.Address
	err  error
}

func (g stubGeocoder) ReverseGeocode(context.Context, geo.GeoPoint) (*geocode.Address, error) {
	return g.addr, g.err
}

func TestFamilyMartPostcodeMode(t *testing.T) {
	var requests []models.FamilyMartRequest
	srv := familyMartServer(t, http.StatusOK, familyMartListing, &requests)

	f := newTestFamilyMart(srv, true, WithGeocoder(stubGeocoder{addr: &geocode.Address{Postcode: "11049"}}))
	stores, err := f.FetchNearby(context.Background(), taipei, 1000, 10)
	require.NoError(t, err)
	assert.Len(t, stores, 2, "distances are still measured from the query point")

	require.Len(t, requests, 1)
	assert.Equal(t, "110", requests[0].PostInfo)
	assert.Equal(t, 0.0, requests[0].Latitude)
	assert.Equal(t, 0.0, requests[0].Longitude)
}

func TestFamilyMartPostcodeFallsBackToCoordinates(t *testing.T) {
	var requests []models.FamilyMartRequest
	srv := familyMartServer(t, http.StatusOK, familyMartListing, &requests)

	f := newTestFamilyMart(srv, true, WithGeocoder(stubGeocoder{err: errors.New("nominatim down")}))
	stores, err := f.FetchNearby(context.Background(), taipei, 1000, 10)
	require.NoError(t, err)
	assert.Len(t, stores, 2)

	require.Len(t, requests, 1)
	assert.Empty(t, requests[0].PostInfo)
	assert.Equal(t, taipei.Latitude, requests[0].Latitude)
}

func TestFamilyMartIgnoresNegativeCategoryQuantities(t *testing.T) {
	const listing = `{"data": [
		{"oldPKey": "FM-A", "name": "負數在前", "latitude": 25.0331, "longitude": 121.5655,
		 "info": [{"name": "鮮食", "qty": -3}, {"name": "麵包", "qty": 5}]},
		{"oldPKey": "FM-B", "name": "互相抵銷", "latitude": 25.0332, "longitude": 121.5656,
		 "info": [{"name": "鮮食", "qty": 5}, {"name": "麵包", "qty": -5}]}
	]}`
	f := newTestFamilyMart(familyMartServer(t, http.StatusOK, listing, nil), false)

	stores, err := f.FetchNearby(context.Background(), taipei, 1000, 10)
	require.NoError(t, err)
	require.Len(t, stores, 2)

	for _, store := range stores {
		sum := 0
		for _, cat := range store.Categories {
			assert.GreaterOrEqual(t, cat.Quantity, 0)
			sum += cat.Quantity
		}
		assert.Equal(t, 5, store.TotalQuantity, store.StoreName)
		assert.Equal(t, sum, store.TotalQuantity, store.StoreName)
	}
}
