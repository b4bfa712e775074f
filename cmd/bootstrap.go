package cmd

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/rm-hull/godx"
	"go.uber.org/zap"

	"github.com/rm-hull/near-expiry-food/internal"
	"github.com/rm-hull/near-expiry-food/internal/aggregator"
	"github.com/rm-hull/near-expiry-food/internal/config"
	"github.com/rm-hull/near-expiry-food/internal/geocode"
	"github.com/rm-hull/near-expiry-food/internal/logging"
	"github.com/rm-hull/near-expiry-food/internal/metrics"
	"github.com/rm-hull/near-expiry-food/internal/models"
	"github.com/rm-hull/near-expiry-food/internal/report"
	"github.com/rm-hull/near-expiry-food/internal/sources"
)

// Overrides carries command-line values that take precedence over the config.
// Nil fields leave the configured value alone.
type Overrides struct {
	Latitude     *float64
	Longitude    *float64
	RadiusMeters *float64
	Limit        *int
	Sources      []string
}

type app struct {
	cfg        *config.Config
	logger     *zap.Logger
	metrics    *metrics.Registry
	directory  internal.StoreDirectory
	aggregator *aggregator.Aggregator
}

// bootstrap loads configuration and wires the sources, aggregator, store
// directory and metrics shared by every command.
func bootstrap(configPath string, overrides Overrides) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := overrides.apply(cfg); err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, errors.Mark(err, config.ErrInvalidConfig)
	}

	godx.GitVersion()
	godx.EnvironmentVars()
	godx.UserInfo()

	a := &app{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics.NewRegistry(),
	}
	a.directory = openDirectory(cfg.Cache, logger)
	a.aggregator = a.newAggregator()

	if cfg.SevenEleven.Enabled && cfg.SevenEleven.MidV == "" {
		logger.Warn("seven_eleven.mid_v is not set, 7-11 authentication is likely to fail")
	}
	return a, nil
}

// openDirectory returns nil (no caching) when the cache is disabled or unusable.
func openDirectory(cfg config.CacheConfig, logger *zap.Logger) internal.StoreDirectory {
	if cfg.DBPath == "" {
		return nil
	}
	if dir := filepath.Dir(cfg.DBPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logger.Warn("store directory cache disabled", zap.String("path", cfg.DBPath), zap.Error(err))
			return nil
		}
	}
	directory, err := internal.OpenStoreDirectory(cfg.DBPath, logger)
	if err != nil {
		logger.Warn("store directory cache disabled", zap.String("path", cfg.DBPath), zap.Error(err))
		return nil
	}
	return directory
}

// newAggregator builds fresh sources, so any cached vendor session starts over.
func (a *app) newAggregator() *aggregator.Aggregator {
	return aggregator.New(a.buildSources(),
		aggregator.WithTimeout(a.cfg.Search.Timeout),
		aggregator.WithBucketMeters(a.cfg.Search.BucketMeters),
		aggregator.WithLogger(a.logger),
		aggregator.WithMetrics(a.metrics),
	)
}

func (a *app) buildSources() []sources.Source {
	opts := []sources.Option{
		sources.WithLogger(a.logger),
		sources.WithMetrics(a.metrics),
	}
	if a.directory != nil {
		opts = append(opts, sources.WithDirectory(a.directory))
	}

	familyMartOpts := opts
	if a.cfg.FamilyMart.UsePostcode {
		g := a.cfg.Geocoder
		familyMartOpts = append(familyMartOpts[:len(opts):len(opts)],
			sources.WithGeocoder(geocode.NewNominatim(g.BaseURL, g.Timeout, g.CacheTTL, a.logger)))
	}

	return []sources.Source{
		sources.NewSevenEleven(sources.SevenElevenConfig{
			BaseURL:      a.cfg.SevenEleven.BaseURL,
			MidV:         a.cfg.SevenEleven.MidV,
			Timeout:      a.cfg.SevenEleven.Timeout,
			RateLimit:    a.cfg.SevenEleven.RateLimit,
			DirectoryTTL: a.cfg.Cache.TTL,
		}, opts...),
		sources.NewFamilyMart(sources.FamilyMartConfig{
			BaseURL:     a.cfg.FamilyMart.BaseURL,
			ProjectCode: a.cfg.FamilyMart.ProjectCode,
			Timeout:     a.cfg.FamilyMart.Timeout,
			UsePostcode: a.cfg.FamilyMart.UsePostcode,
		}, familyMartOpts...),
	}
}

func (a *app) query() aggregator.Query {
	return aggregator.Query{
		Location:       a.cfg.Location,
		RadiusMeters:   a.cfg.Search.RadiusMeters,
		LimitPerSource: a.cfg.Search.LimitPerSource,
		Enabled:        a.cfg.Enabled(),
	}
}

func (a *app) files() report.Files {
	out := a.cfg.Output
	return report.Files{
		Dir:      out.Dir,
		SaveJSON: out.SaveJSON,
		JSONFile: out.JSONFile,
		SaveText: out.SaveTxt,
		TextFile: out.TxtFile,
		SaveHTML: out.SaveHTML,
		HTMLFile: out.HTMLFile,
	}
}

func (a *app) Close() {
	if a.directory != nil {
		if err := a.directory.Close(); err != nil {
			a.logger.Warn("failed to close store directory", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}

func (o Overrides) apply(cfg *config.Config) error {
	if o.Latitude != nil {
		cfg.Location.Latitude = *o.Latitude
		cfg.Location.Description = ""
	}
	if o.Longitude != nil {
		cfg.Location.Longitude = *o.Longitude
		cfg.Location.Description = ""
	}
	if o.RadiusMeters != nil {
		cfg.Search.RadiusMeters = *o.RadiusMeters
	}
	if o.Limit != nil {
		cfg.Search.LimitPerSource = *o.Limit
	}
	if len(o.Sources) > 0 {
		selected := make(map[models.SourceID]bool, len(o.Sources))
		for _, name := range o.Sources {
			id := models.SourceID(strings.TrimSpace(name))
			if _, known := cfg.Enabled()[id]; !known {
				return errors.Mark(errors.Newf("unknown source %q", name), config.ErrInvalidConfig)
			}
			selected[id] = true
		}
		cfg.SevenEleven.Enabled = selected[models.SevenEleven]
		cfg.FamilyMart.Enabled = selected[models.FamilyMart]
	}
	return cfg.Validate()
}

// runOnce performs a single search, prints it and writes the configured outputs.
// Only an invalid query is returned as an error; output problems are logged.
func (a *app) runOnce(ctx context.Context, agg *aggregator.Aggregator, w io.Writer) error {
	resp, err := agg.SearchAll(ctx, a.query())
	if err != nil {
		return err
	}

	if err := report.Console(w, resp); err != nil {
		a.logger.Error("failed to print report", zap.Error(err))
	}
	if _, err := a.files().Write(resp, a.logger); err != nil {
		a.logger.Error("failed to save report", zap.Error(err))
	}
	if err := a.metrics.Export(a.cfg.Metrics.Textfile, a.cfg.Metrics.PushgatewayURL, a.cfg.Metrics.Job); err != nil {
		a.logger.Error("failed to export metrics", zap.Error(err))
	}
	return nil
}
