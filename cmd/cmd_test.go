package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rm-hull/near-expiry-food/internal/config"
	"github.com/rm-hull/near-expiry-food/internal/models"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func offlineConfig(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir, writeConfig(t, dir, `
seven_eleven:
  enabled: false
family_mart:
  enabled: false
output:
  dir: out
  save_json: true
  save_txt: true
  save_html: true
cache:
  db_path: data/cache.db
metrics:
  textfile: metrics.prom
log:
  level: error
`)
}

func TestSearchWithEverySourceDisabled(t *testing.T) {
	dir, path := offlineConfig(t)

	var out bytes.Buffer
	require.NoError(t, Search(context.Background(), path, Overrides{}, &out))

	assert.Contains(t, out.String(), "No near-expiry food nearby")
	for _, name := range []string{"near_expiry_food.json", "near_expiry_food.txt", "near_expiry_food.html"} {
		assert.FileExists(t, filepath.Join(dir, "out", name))
	}
	assert.FileExists(t, filepath.Join(dir, "metrics.prom"))
	assert.FileExists(t, filepath.Join(dir, "data", "cache.db"))
}

func TestSearchRejectsInvalidOverrides(t *testing.T) {
	_, path := offlineConfig(t)

	lat := 95.0
	err := Search(context.Background(), path, Overrides{Latitude: &lat}, &bytes.Buffer{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, config.ErrInvalidConfig))

	err = Search(context.Background(), path, Overrides{Sources: []string{"lawson"}}, &bytes.Buffer{})
	require.Error(t, err)
	assert.ErrorContains(t, err, `unknown source "lawson"`)
}

func TestOverridesApply(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := config.Load("")
	require.NoError(t, err)

	lat, lon, radius, limit := 25.0478, 121.517, 500.0, 3
	err = Overrides{
		Latitude:     &lat,
		Longitude:    &lon,
		RadiusMeters: &radius,
		Limit:        &limit,
		Sources:      []string{" family_mart "},
	}.apply(cfg)
	require.NoError(t, err)

	assert.Equal(t, lat, cfg.Location.Latitude)
	assert.Equal(t, lon, cfg.Location.Longitude)
	assert.Empty(t, cfg.Location.Description)
	assert.Equal(t, radius, cfg.Search.RadiusMeters)
	assert.Equal(t, limit, cfg.Search.LimitPerSource)
	assert.Equal(t, map[models.SourceID]bool{
		models.SevenEleven: false,
		models.FamilyMart:  true,
	}, cfg.Enabled())
}

func TestSourcesListing(t *testing.T) {
	_, path := offlineConfig(t)

	var out bytes.Buffer
	require.NoError(t, Sources(path, &out))

	listing := out.String()
	assert.Contains(t, listing, "seven_eleven")
	assert.Contains(t, listing, "family_mart")
	assert.Contains(t, listing, "友善食光")
	assert.Contains(t, listing, "false")
}

func TestWatchRunsImmediatelyAndStopsOnCancel(t *testing.T) {
	_, path := offlineConfig(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	require.NoError(t, Watch(ctx, path, Overrides{}, &out))
	assert.Contains(t, out.String(), "No near-expiry food nearby")
}
