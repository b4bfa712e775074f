package sources

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rm-hull/near-expiry-food/internal"
	"github.com/rm-hull/near-expiry-food/internal/brands"
	"github.com/rm-hull/near-expiry-food/internal/geo"
	"github.com/rm-hull/near-expiry-food/internal/geocode"
	"github.com/rm-hull/near-expiry-food/internal/metrics"
	"github.com/rm-hull/near-expiry-food/internal/models"
	"github.com/rm-hull/near-expiry-food/internal/textutil"
	"go.uber.org/zap"
)

const (
	FamilyMartBaseURL     = "https://stamp.family.com.tw/api/maps"
	FamilyMartProjectCode = "202106302"

	familyMartUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/142.0.0.0 Safari/537.36"
)

type FamilyMartConfig struct {
	BaseURL     string
	ProjectCode string
	Timeout     time.Duration
	// UsePostcode queries by the postal zone of the search point rather than
	// by coordinates. Needs a geocoder.
	UsePostcode bool
}

// FamilyMart queries the FamilyMart "友善食光" map API. No session is needed.
type FamilyMart struct {
	cfg    FamilyMartConfig
	client *internal.VendorClient
	opts   options
}

func NewFamilyMart(cfg FamilyMartConfig, opts ...Option) *FamilyMart {
	if cfg.BaseURL == "" {
		cfg.BaseURL = FamilyMartBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.ProjectCode == "" {
		cfg.ProjectCode = FamilyMartProjectCode
	}

	o := buildOptions(opts)
	return &FamilyMart{
		cfg: cfg,
		client: internal.NewVendorClient(cfg.Timeout, map[string]string{
			"User-Agent": familyMartUserAgent,
		}, o.logger),
		opts: o,
	}
}

func (f *FamilyMart) ID() models.SourceID { return models.FamilyMart }

func (f *FamilyMart) Brand() string { return brands.Label(models.FamilyMart) }

func (f *FamilyMart) FetchNearby(ctx context.Context, query geo.GeoPoint, radiusMeters float64, limit int) ([]models.Store, error) {
	listing, err := f.storesAround(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "FamilyMart store list failed")
	}

	locate := func(r models.FamilyMartStore) (float64, bool) {
		return distanceTo(query, r.Latitude, r.Longitude)
	}
	quantity := func(r models.FamilyMartStore) int {
		return r.TotalQuantity()
	}

	nearby := rankNearby(listing, locate, quantity, radiusMeters, limit)
	results := make([]models.Store, 0, len(nearby))
	for _, n := range nearby {
		results = append(results, f.normalize(n.raw, n.distance))
	}

	f.opts.logger.Debug("FamilyMart search complete",
		zap.Int("listed", len(listing)),
		zap.Int("returned", len(results)))
	return results, nil
}

func (f *FamilyMart) storesAround(ctx context.Context, query geo.GeoPoint) ([]models.FamilyMartStore, error) {
	req := models.FamilyMartRequest{
		ProjectCode: f.cfg.ProjectCode,
		OldPKeys:    []string{},
		Latitude:    query.Latitude,
		Longitude:   query.Longitude,
	}

	if postcode, ok := f.postcode(ctx, query); ok {
		req.PostInfo = postcode
		req.Latitude = 0
		req.Longitude = 0
	}

	var resp models.FamilyMartResponse
	if err := f.client.PostJSON(ctx, f.cfg.BaseURL+"/MapProductInfo", req, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// postcode is best-effort; on failure the request falls back to coordinates.
func (f *FamilyMart) postcode(ctx context.Context, query geo.GeoPoint) (string, bool) {
	if !f.cfg.UsePostcode {
		return "", false
	}
	if f.opts.geocoder == nil {
		f.opts.logger.Warn("postcode search requested without a geocoder, using coordinates")
		return "", false
	}

	postcode, err := geocode.Postcode(ctx, f.opts.geocoder, query)
	if err != nil {
		f.opts.logger.Warn("unable to determine postcode, using coordinates", zap.Error(err))
		f.opts.metrics.EnrichmentFailed(models.FamilyMart, metrics.EnrichmentGeocode)
		return "", false
	}
	return postcode, true
}

func (f *FamilyMart) normalize(r models.FamilyMartStore, distance float64) models.Store {
	store := models.Store{
		Source:         models.FamilyMart,
		Brand:          f.Brand(),
		StoreID:        r.OldPKey,
		StoreName:      textutil.CleanText(r.Name),
		Address:        textutil.CleanText(r.Address),
		Phone:          strings.TrimSpace(r.Tel),
		Latitude:       r.Latitude,
		Longitude:      r.Longitude,
		DistanceMeters: distance,
		TotalQuantity:  nonNegative(r.TotalQuantity()),
		Categories:     make([]models.Category, 0, len(r.Info)),
		Items:          []models.Item{},
	}

	for _, cat := range r.Info {
		catName := textutil.CleanText(cat.Name)
		store.Categories = append(store.Categories, models.Category{
			Name:     catName,
			Quantity: nonNegative(cat.Qty),
		})

		for _, sub := range cat.Categories {
			subName := textutil.CleanText(sub.Name)
			for _, product := range sub.Products {
				store.Items = append(store.Items, models.Item{
					Name:        textutil.CleanText(product.Name),
					Quantity:    nonNegative(product.Qty),
					Category:    catName,
					SubCategory: subName,
				})
			}
		}
	}
	return store
}
