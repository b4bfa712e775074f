package metrics

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rm-hull/near-expiry-food/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveFetch(t *testing.T) {
	r := NewRegistry()

	r.ObserveFetch(models.SourceStatus{Source: models.SevenEleven, OK: true, Count: 4, Duration: 250 * time.Millisecond})
	r.ObserveFetch(models.SourceStatus{Source: models.FamilyMart, OK: false, Error: "boom"})
	r.ObserveFetch(models.SourceStatus{Source: models.SevenEleven, OK: true, Count: 2})

	assert.Equal(t, 2.0, testutil.ToFloat64(r.SourceFetches.WithLabelValues("seven_eleven", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.SourceFetches.WithLabelValues("family_mart", OutcomeFailure)))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.SourceStores.WithLabelValues("seven_eleven")))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.SourceStores.WithLabelValues("family_mart")))
}

func TestNilRegistryIsNoop(t *testing.T) {
	var r *Registry
	r.ObserveFetch(models.SourceStatus{Source: models.SevenEleven})
	r.EnrichmentFailed(models.SevenEleven, EnrichmentAddress)
	r.RunCompleted(time.Now())
	assert.NoError(t, r.Export("/nonexistent/path/metrics.prom", "http://127.0.0.1:1", "job"))
	assert.NotNil(t, r.Gatherer())
}

func TestExportTextfile(t *testing.T) {
	r := NewRegistry()
	r.EnrichmentFailed(models.SevenEleven, EnrichmentAddress)
	r.RunCompleted(time.Unix(1_700_000_000, 0))

	path := filepath.Join(t.TempDir(), "near_expiry.prom")
	require.NoError(t, r.Export(path, "", "near-expiry-food"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, `near_expiry_enrichment_failures_total{kind="address",source="seven_eleven"} 1`)
	assert.Contains(t, text, "near_expiry_last_run_timestamp_seconds 1.7e+09")
}

func TestExportPushgateway(t *testing.T) {
	var gotPath string
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		gotPath = req.URL.Path
		buf := new(bytes.Buffer)
		_, _ = buf.ReadFrom(req.Body)
		gotBody = buf.String()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	r := NewRegistry()
	r.RunCompleted(time.Now())
	require.NoError(t, r.Export("", srv.URL, "near-expiry-food"))

	assert.Equal(t, "/metrics/job/near-expiry-food", gotPath)
	assert.NotEmpty(t, gotBody)
}
