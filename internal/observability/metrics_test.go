package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordHelpers(t *testing.T) {
	before := testutil.ToFloat64(DefaultMetrics.SyncCycles.WithLabelValues("applied"))
	RecordSyncCycle("applied", 0.2)
	assert.Equal(t, before+1, testutil.ToFloat64(DefaultMetrics.SyncCycles.WithLabelValues("applied")))

	before = testutil.ToFloat64(DefaultMetrics.SyncFetchErrors.WithLabelValues("logo"))
	RecordFetchError("logo")
	assert.Equal(t, before+1, testutil.ToFloat64(DefaultMetrics.SyncFetchErrors.WithLabelValues("logo")))

	RecordCatalogRefresh("ok", 42)
	assert.Equal(t, float64(42), testutil.ToFloat64(DefaultMetrics.CatalogEntries))

	RecordCatalogRefresh("error", 0)
	assert.Equal(t, float64(42), testutil.ToFloat64(DefaultMetrics.CatalogEntries))

	SetHoldings(3)
	assert.Equal(t, float64(3), testutil.ToFloat64(DefaultMetrics.Holdings))

	RecordProviderRequest("markets", 0.1, nil)
	RecordProviderRequest("markets", 0.1, errors.New("boom"))
}

func TestHandlerExposesMetrics(t *testing.T) {
	SetHoldings(5)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "bagz_portfolio_holdings 5")
}
