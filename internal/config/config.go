// Package config loads the search settings from defaults, an optional YAML
// file and NEF_ prefixed environment variables, in increasing precedence.
package config

import (
	"math"
	"net/url"
	"slices"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rm-hull/near-expiry-food/internal/models"
	"github.com/robfig/cron/v3"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	Location    models.Location   `koanf:"location"`
	Search      SearchConfig      `koanf:"search"`
	SevenEleven SevenElevenConfig `koanf:"seven_eleven"`
	FamilyMart  FamilyMartConfig  `koanf:"family_mart"`
	Geocoder    GeocoderConfig    `koanf:"geocoder"`
	Output      OutputConfig      `koanf:"output"`
	Cache       CacheConfig       `koanf:"cache"`
	Metrics     MetricsConfig     `koanf:"metrics"`
	Log         LogConfig         `koanf:"log"`
	Watch       WatchConfig       `koanf:"watch"`
}

type SearchConfig struct {
	RadiusMeters   float64       `koanf:"radius_meters"`
	LimitPerSource int           `koanf:"limit_per_source"`
	Timeout        time.Duration `koanf:"timeout"`
	BucketMeters   int           `koanf:"bucket_meters"`
}

type SevenElevenConfig struct {
	Enabled   bool          `koanf:"enabled"`
	MidV      string        `koanf:"mid_v"`
	BaseURL   string        `koanf:"base_url"`
	Timeout   time.Duration `koanf:"timeout"`
	RateLimit float64       `koanf:"rate_limit"`
}

type FamilyMartConfig struct {
	Enabled     bool          `koanf:"enabled"`
	ProjectCode string        `koanf:"project_code"`
	BaseURL     string        `koanf:"base_url"`
	Timeout     time.Duration `koanf:"timeout"`
	UsePostcode bool          `koanf:"use_postcode"`
}

type GeocoderConfig struct {
	BaseURL  string        `koanf:"base_url"`
	Timeout  time.Duration `koanf:"timeout"`
	CacheTTL time.Duration `koanf:"cache_ttl"`
}

type OutputConfig struct {
	Dir      string `koanf:"dir"`
	SaveJSON bool   `koanf:"save_json"`
	JSONFile string `koanf:"json_file"`
	SaveTxt  bool   `koanf:"save_txt"`
	TxtFile  string `koanf:"txt_file"`
	SaveHTML bool   `koanf:"save_html"`
	HTMLFile string `koanf:"html_file"`
}

// CacheConfig controls the store directory. An empty DBPath disables it.
type CacheConfig struct {
	DBPath string        `koanf:"db_path"`
	TTL    time.Duration `koanf:"ttl"`
}

type MetricsConfig struct {
	Textfile       string `koanf:"textfile"`
	PushgatewayURL string `koanf:"pushgateway_url"`
	Job            string `koanf:"job"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type WatchConfig struct {
	Schedule string `koanf:"schedule"`
}

// Enabled reports which sources should be queried.
func (c *Config) Enabled() map[models.SourceID]bool {
	return map[models.SourceID]bool{
		models.SevenEleven: c.SevenEleven.Enabled,
		models.FamilyMart:  c.FamilyMart.Enabled,
	}
}

func (c *Config) Validate() error {
	if err := c.Location.Validate(); err != nil {
		return errors.Mark(errors.Wrap(err, "location"), ErrInvalidConfig)
	}

	if math.IsNaN(c.Search.RadiusMeters) || math.IsInf(c.Search.RadiusMeters, 0) || c.Search.RadiusMeters < 0 {
		return errors.Mark(errors.Newf("search.radius_meters must be finite and non-negative, got %v", c.Search.RadiusMeters), ErrInvalidConfig)
	}
	if c.Search.LimitPerSource < 1 {
		return errors.Mark(errors.Newf("search.limit_per_source must be at least 1, got %d", c.Search.LimitPerSource), ErrInvalidConfig)
	}
	if c.Search.Timeout <= 0 {
		return errors.Mark(errors.New("search.timeout must be positive"), ErrInvalidConfig)
	}

	for name, raw := range map[string]string{
		"seven_eleven.base_url":   c.SevenEleven.BaseURL,
		"family_mart.base_url":    c.FamilyMart.BaseURL,
		"geocoder.base_url":       c.Geocoder.BaseURL,
		"metrics.pushgateway_url": c.Metrics.PushgatewayURL,
	} {
		if raw == "" {
			continue
		}
		if u, err := url.Parse(raw); err != nil || u.Scheme == "" || u.Host == "" {
			return errors.Mark(errors.Newf("%s is not an absolute URL: %q", name, raw), ErrInvalidConfig)
		}
	}

	if !slices.Contains([]string{"debug", "info", "warn", "error"}, c.Log.Level) {
		return errors.Mark(errors.Newf("log.level must be one of debug, info, warn, error, got %q", c.Log.Level), ErrInvalidConfig)
	}
	if !slices.Contains([]string{"json", "console"}, c.Log.Format) {
		return errors.Mark(errors.Newf("log.format must be json or console, got %q", c.Log.Format), ErrInvalidConfig)
	}

	if _, err := cron.ParseStandard(c.Watch.Schedule); err != nil {
		return errors.Mark(errors.Wrapf(err, "watch.schedule %q", c.Watch.Schedule), ErrInvalidConfig)
	}

	return nil
}
