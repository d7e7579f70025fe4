package telemetry

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderCounts(t *testing.T) {
	r := New()
	r.CheckoutCommitted("TEMPO", "PENDING", 400000)
	r.CheckoutCommitted("CASH", "PAID", 130000)
	r.CheckoutFailed("insufficient_stock")
	r.DebtSettled(300000)
	r.StockMoved(-500)
	r.StockMoved(20)
	r.SetOutstanding(0)

	assert.Equal(t, float64(1), testutil.ToFloat64(r.checkouts.WithLabelValues("TEMPO", "PENDING")))
	assert.Equal(t, float64(400000), testutil.ToFloat64(r.revenue.WithLabelValues("TEMPO")))
	assert.Equal(t, float64(300000), testutil.ToFloat64(r.settledAmount))
	assert.Equal(t, float64(500), testutil.ToFloat64(r.stockMovements.WithLabelValues("out")))
	assert.Equal(t, float64(20), testutil.ToFloat64(r.stockMovements.WithLabelValues("in")))
}

func TestRecordersAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.CartNoOp("add")
	assert.Equal(t, float64(1), testutil.ToFloat64(a.cartNoOps.WithLabelValues("add")))
	assert.Equal(t, float64(0), testutil.ToFloat64(b.cartNoOps.WithLabelValues("add")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	r := New()
	r.AdvisorAnswered("fallback")

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.True(t, strings.Contains(string(body), `bangunanpro_advisor_answers_total{outcome="fallback"} 1`))
}
