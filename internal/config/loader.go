package config

import (
	_ "embed"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	EnvPrefix         = "NEF_"
	DefaultConfigPath = "config.yaml"
	maxConfigFileSize = 1024 * 1024
)

//go:embed defaults.yaml
var defaultsYAML []byte

// sections, longest first, so NEF_SEVEN_ELEVEN_MID_V splits after seven_eleven.
var sections = func() []string {
	s := []string{
		"location", "search", "seven_eleven", "family_mart", "geocoder",
		"output", "cache", "metrics", "log", "watch",
	}
	sort.Slice(s, func(i, j int) bool { return len(s[i]) > len(s[j]) })
	return s
}()

// Load reads .env (if present) into the environment, then layers the
// built-in defaults, the YAML file at configPath and NEF_ environment variables.
//
// A missing file at the default path is not an error; a missing file that was
// explicitly asked for is.
//
//	NEF_SEARCH_RADIUS_METERS  -> search.radius_meters
//	NEF_SEVEN_ELEVEN_MID_V    -> seven_eleven.mid_v
//	NEF_LOCATION_LATITUDE     -> location.latitude
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, errors.Wrap(err, "failed to load .env file")
	}

	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(defaultsYAML), yaml.Parser()); err != nil {
		return nil, errors.Wrap(err, "failed to load defaults")
	}

	explicit := configPath != ""
	if !explicit {
		configPath = DefaultConfigPath
	}
	content, err := readConfigFile(configPath)
	switch {
	case err == nil:
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, errors.Mark(errors.Wrapf(err, "failed to parse config file %s", configPath), ErrInvalidConfig)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, errors.Mark(err, ErrInvalidConfig)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, errors.Wrap(err, "failed to load environment variables")
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "failed to unmarshal config"), ErrInvalidConfig)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func readConfigFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to stat config file %s", path)
	}
	if info.Size() > maxConfigFileSize {
		return nil, errors.Newf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %s", path)
	}
	return content, nil
}

// envKey maps NEF_SECTION_FIELD_NAME to section.field_name.
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	for _, section := range sections {
		if field, ok := strings.CutPrefix(lower, section+"_"); ok {
			return section + "." + field
		}
	}
	return lower
}

// applyDefaults fills values that cannot be left empty even when a file
// or variable explicitly blanks them.
func applyDefaults(cfg *Config) {
	if cfg.Search.BucketMeters <= 0 {
		cfg.Search.BucketMeters = 250
	}
	if cfg.SevenEleven.RateLimit <= 0 {
		cfg.SevenEleven.RateLimit = 5
	}
	if cfg.FamilyMart.ProjectCode == "" {
		cfg.FamilyMart.ProjectCode = "202106302"
	}
	if cfg.Cache.TTL <= 0 {
		cfg.Cache.TTL = 7 * 24 * time.Hour
	}
	if cfg.Metrics.Job == "" {
		cfg.Metrics.Job = "near-expiry-food"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Watch.Schedule == "" {
		cfg.Watch.Schedule = "*/30 * * * *"
	}
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	cfg.Log.Format = strings.ToLower(cfg.Log.Format)
}
