// Package metrics collects per-run source metrics in a private Prometheus
// registry. A search is a batch job rather than a server, so the registry is
// exported at the end of a run to a node-exporter textfile and/or a Pushgateway.
package metrics

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/rm-hull/near-expiry-food/internal/models"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"

	EnrichmentDetail  = "detail"
	EnrichmentAddress = "address"
	EnrichmentGeocode = "geocode"
)

// Registry is safe to use through a nil pointer, in which case nothing is recorded.
type Registry struct {
	reg                *prometheus.Registry
	SourceFetches      *prometheus.CounterVec
	SourceDuration     *prometheus.HistogramVec
	SourceStores       *prometheus.GaugeVec
	EnrichmentFailures *prometheus.CounterVec
	LastRun            prometheus.Gauge
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	fetches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "near_expiry_source_fetch_total",
		Help: "Source fetches by outcome.",
	}, []string{"source", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "near_expiry_source_fetch_duration_seconds",
		Help:    "Wall time of a source fetch, including enrichment.",
		Buckets: prometheus.DefBuckets,
	}, []string{"source"})
	stores := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "near_expiry_source_stores",
		Help: "Stores returned by the most recent fetch of each source.",
	}, []string{"source"})
	enrichment := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "near_expiry_enrichment_failures_total",
		Help: "Best-effort lookups that failed and were skipped.",
	}, []string{"source", "kind"})
	lastRun := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "near_expiry_last_run_timestamp_seconds",
		Help: "Unix time the last search completed.",
	})

	r.MustRegister(fetches, duration, stores, enrichment, lastRun)
	return &Registry{
		reg:                r,
		SourceFetches:      fetches,
		SourceDuration:     duration,
		SourceStores:       stores,
		EnrichmentFailures: enrichment,
		LastRun:            lastRun,
	}
}

func (r *Registry) ObserveFetch(status models.SourceStatus) {
	if r == nil {
		return
	}
	source := string(status.Source)
	outcome := OutcomeSuccess
	if !status.OK {
		outcome = OutcomeFailure
	}
	r.SourceFetches.WithLabelValues(source, outcome).Inc()
	r.SourceDuration.WithLabelValues(source).Observe(status.Duration.Seconds())
	r.SourceStores.WithLabelValues(source).Set(float64(status.Count))
}

func (r *Registry) EnrichmentFailed(source models.SourceID, kind string) {
	if r == nil {
		return
	}
	r.EnrichmentFailures.WithLabelValues(string(source), kind).Inc()
}

func (r *Registry) RunCompleted(at time.Time) {
	if r == nil {
		return
	}
	r.LastRun.Set(float64(at.Unix()))
}

func (r *Registry) Gatherer() prometheus.Gatherer {
	if r == nil {
		return prometheus.NewRegistry()
	}
	return r.reg
}

// Export writes the registry to textfile and pushes it to pushgatewayURL;
// empty arguments are skipped.
func (r *Registry) Export(textfile, pushgatewayURL, job string) error {
	if r == nil {
		return nil
	}
	if textfile != "" {
		if err := prometheus.WriteToTextfile(textfile, r.reg); err != nil {
			return errors.Wrapf(err, "failed to write metrics to %s", textfile)
		}
	}
	if pushgatewayURL != "" {
		if err := push.New(pushgatewayURL, job).Gatherer(r.reg).Push(); err != nil {
			return errors.Wrapf(err, "failed to push metrics to %s", pushgatewayURL)
		}
	}
	return nil
}
