// Package aggregator fans a search out to every enabled source and merges
// their results into a single distance-ordered response.
package aggregator

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/rm-hull/near-expiry-food/internal/metrics"
	"github.com/rm-hull/near-expiry-food/internal/models"
	"github.com/rm-hull/near-expiry-food/internal/sources"
	"github.com/rm-hull/near-expiry-food/internal/stats"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultSourceTimeout = 30 * time.Second
	DefaultBucketMeters  = 250
)

var ErrInvalidQuery = errors.New("invalid query")

type Query struct {
	Location       models.Location
	RadiusMeters   float64
	LimitPerSource int
	Enabled        map[models.SourceID]bool // nil: every registered source
}

func (q Query) Validate() error {
	if err := q.Location.Validate(); err != nil {
		return errors.Mark(errors.Wrap(err, "location"), ErrInvalidQuery)
	}
	if math.IsNaN(q.RadiusMeters) || math.IsInf(q.RadiusMeters, 0) || q.RadiusMeters < 0 {
		return errors.Mark(errors.Newf("radius must be a finite, non-negative number of meters, got %v", q.RadiusMeters), ErrInvalidQuery)
	}
	if q.LimitPerSource < 1 {
		return errors.Mark(errors.Newf("limit per source must be at least 1, got %d", q.LimitPerSource), ErrInvalidQuery)
	}
	return nil
}

type Aggregator struct {
	sources      []sources.Source
	timeout      time.Duration
	concurrency  int
	bucketMeters int
	logger       *zap.Logger
	metrics      *metrics.Registry
	tracer       trace.Tracer
	now          func() time.Time
}

type Option func(*Aggregator)

// WithTimeout bounds each source fetch independently.
func WithTimeout(d time.Duration) Option {
	return func(a *Aggregator) { a.timeout = d }
}

// WithConcurrency caps how many sources are fetched at once. Zero means no cap.
func WithConcurrency(n int) Option {
	return func(a *Aggregator) { a.concurrency = n }
}

func WithBucketMeters(m int) Option {
	return func(a *Aggregator) { a.bucketMeters = m }
}

func WithLogger(logger *zap.Logger) Option {
	return func(a *Aggregator) { a.logger = logger }
}

func WithMetrics(m *metrics.Registry) Option {
	return func(a *Aggregator) { a.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// New registers srcs in the order their results are concatenated before sorting.
func New(srcs []sources.Source, opts ...Option) *Aggregator {
	a := &Aggregator{
		sources:      srcs,
		timeout:      DefaultSourceTimeout,
		bucketMeters: DefaultBucketMeters,
		logger:       zap.NewNop(),
		tracer:       otel.Tracer("github.com/rm-hull/near-expiry-food/internal/aggregator"),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Aggregator) Sources() []sources.Source {
	return a.sources
}

type outcome struct {
	stores []models.Store
	status models.SourceStatus
}

// SearchAll queries every enabled source and merges their results.
// Source failures are reported in the response's Sources, never as an error;
// the only error is ErrInvalidQuery, returned before any source is contacted.
func (a *Aggregator) SearchAll(ctx context.Context, q Query) (*models.SearchResponse, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	ctx, span := a.tracer.Start(ctx, "aggregator.SearchAll", trace.WithAttributes(
		attribute.Float64("radius_meters", q.RadiusMeters),
		attribute.Int("limit_per_source", q.LimitPerSource),
	))
	defer span.End()

	queryID := uuid.New()
	queryTime := a.now()
	enabled := a.enabledSources(q.Enabled)
	outcomes := make([]outcome, len(enabled))

	var g errgroup.Group
	if a.concurrency > 0 {
		g.SetLimit(a.concurrency)
	}
	for i, src := range enabled {
		g.Go(func() error {
			outcomes[i] = a.fetch(ctx, src, q)
			return nil
		})
	}
	_ = g.Wait()

	merged := models.SearchResultSet{}
	statuses := make([]models.SourceStatus, 0, len(outcomes))
	for _, o := range outcomes {
		statuses = append(statuses, o.status)
		if o.status.OK {
			merged = append(merged, o.stores...)
		}
	}
	merged.SortByDistance()

	a.metrics.RunCompleted(a.now())
	a.logger.Info("search completed",
		zap.String("query_id", queryID.String()),
		zap.Int("sources", len(statuses)),
		zap.Int("stores", len(merged)))
	span.SetAttributes(attribute.Int("stores", len(merged)))

	return &models.SearchResponse{
		QueryID:   queryID,
		QueryTime: queryTime,
		Location:  q.Location,
		Settings: models.SearchSettings{
			RadiusMeters:   q.RadiusMeters,
			LimitPerSource: q.LimitPerSource,
		},
		Sources:    statuses,
		Stores:     merged,
		Statistics: stats.Derive(merged, a.bucketMeters),
	}, nil
}

func (a *Aggregator) enabledSources(enabled map[models.SourceID]bool) []sources.Source {
	if enabled == nil {
		return a.sources
	}
	var selected []sources.Source
	for _, src := range a.sources {
		if enabled[src.ID()] {
			selected = append(selected, src)
		}
	}
	return selected
}

func (a *Aggregator) fetch(ctx context.Context, src sources.Source, q Query) (o outcome) {
	ctx, span := a.tracer.Start(ctx, "source.FetchNearby", trace.WithAttributes(
		attribute.String("source", string(src.ID())),
	))
	defer span.End()

	start := a.now()
	o.status = models.SourceStatus{Source: src.ID(), Brand: src.Brand()}

	defer func() {
		if r := recover(); r != nil {
			o.stores = nil
			o.status.OK = false
			o.status.Count = 0
			o.status.Error = fmt.Sprintf("panic: %v", r)
			a.logger.Error("source panicked",
				zap.String("source", string(src.ID())),
				zap.Any("panic", r),
				zap.Stack("stack"))
		}
		o.status.Duration = a.now().Sub(start)
		if !o.status.OK {
			span.SetStatus(codes.Error, o.status.Error)
		}
		span.SetAttributes(attribute.Int("count", o.status.Count))
		a.metrics.ObserveFetch(o.status)
	}()

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	stores, err := src.FetchNearby(ctx, q.Location.GeoPoint, q.RadiusMeters, q.LimitPerSource)
	if err != nil {
		span.RecordError(err)
		o.status.Error = err.Error()
		a.logger.Warn("source fetch failed",
			zap.String("source", string(src.ID())),
			zap.Error(err))
		return o
	}

	if len(stores) > q.LimitPerSource {
		a.logger.Warn("source exceeded limit, truncating",
			zap.String("source", string(src.ID())),
			zap.Int("returned", len(stores)),
			zap.Int("limit", q.LimitPerSource))
		stores = stores[:q.LimitPerSource]
	}

	o.stores = stores
	o.status.OK = true
	o.status.Count = len(stores)
	a.logger.Debug("source fetch succeeded",
		zap.String("source", string(src.ID())),
		zap.Int("stores", len(stores)))
	return o
}
