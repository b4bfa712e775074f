// Package sources holds one adapter per convenience-store chain. Each adapter
// fetches its vendor's near-expiry listing, keeps the stores within the search
// radius that still have stock, and maps them onto models.Store.
package sources

import (
	"context"
	"math"
	"slices"

	"github.com/cockroachdb/errors"
	"github.com/rm-hull/near-expiry-food/internal"
	"github.com/rm-hull/near-expiry-food/internal/geo"
	"github.com/rm-hull/near-expiry-food/internal/geocode"
	"github.com/rm-hull/near-expiry-food/internal/metrics"
	"github.com/rm-hull/near-expiry-food/internal/models"
	"go.uber.org/zap"
)

// ErrVendor marks a well-formed response in which the vendor reported failure.
var ErrVendor = errors.New("vendor reported failure")

// Source fetches stores with near-expiry stock around a query point.
// Results are within radiusMeters, sorted by ascending distance and capped at
// limit. A returned error means the primary fetch failed; zero stores is not
// an error.
type Source interface {
	ID() models.SourceID
	Brand() string
	FetchNearby(ctx context.Context, query geo.GeoPoint, radiusMeters float64, limit int) ([]models.Store, error)
}

type options struct {
	logger    *zap.Logger
	metrics   *metrics.Registry
	directory internal.StoreDirectory
	geocoder  geocode.Geocoder
}

type Option func(*options)

func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func WithMetrics(m *metrics.Registry) Option {
	return func(o *options) { o.metrics = m }
}

// WithDirectory caches store address lookups in dir.
func WithDirectory(dir internal.StoreDirectory) Option {
	return func(o *options) { o.directory = dir }
}

// WithGeocoder is used by sources that query by postal zone.
func WithGeocoder(g geocode.Geocoder) Option {
	return func(o *options) { o.geocoder = g }
}

func buildOptions(opts []Option) options {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	return o
}

type ranked[T any] struct {
	raw      T
	distance float64
}

// rankNearby drops records without a usable location, beyond radiusMeters or
// without stock, then stable-sorts the rest by distance and keeps the first limit.
func rankNearby[T any](
	records []T,
	locate func(T) (float64, bool),
	quantity func(T) int,
	radiusMeters float64,
	limit int,
) []ranked[T] {
	if limit <= 0 {
		return nil
	}

	out := make([]ranked[T], 0, len(records))
	for _, r := range records {
		distance, ok := locate(r)
		if !ok || math.IsNaN(distance) || distance > radiusMeters {
			continue
		}
		if quantity(r) <= 0 {
			continue
		}
		out = append(out, ranked[T]{raw: r, distance: distance})
	}

	slices.SortStableFunc(out, func(a, b ranked[T]) int {
		switch {
		case a.distance < b.distance:
			return -1
		case a.distance > b.distance:
			return 1
		default:
			return 0
		}
	})

	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// distanceTo reports the distance from query to a vendor coordinate, or false
// when either component is missing. A 0.0 component is a real coordinate.
func distanceTo(query geo.GeoPoint, lat, lon *float64) (float64, bool) {
	if lat == nil || lon == nil {
		return 0, false
	}
	return geo.Distance(query, geo.GeoPoint{Latitude: *lat, Longitude: *lon}), true
}

func nonNegative(n int) int {
	return max(n, 0)
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
