package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector(t *testing.T) {
	c := New()

	c.RunFinished(OutcomeSuccess)
	c.RunFinished(OutcomeSuccess)
	c.RunFinished(OutcomeNoModel)
	c.FitFinished("Trend: add, Seasonal: add", 10*time.Millisecond, nil)
	c.FitFinished("Trend: mul, Seasonal: mul", time.Millisecond, errors.New("boom"))
	c.CacheLookup(true)
	c.CacheLookup(false)
	c.CacheLookup(false)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.runs.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.runs.WithLabelValues(OutcomeNoModel)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.fits.WithLabelValues("Trend: mul, Seasonal: mul", OutcomeFailure)))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.changepointHits.WithLabelValues(CacheMiss)))
}

func TestNilCollector(t *testing.T) {
	var c *Collector

	assert.NotPanics(t, func() {
		c.RunFinished(OutcomeFailure)
		c.FitFinished("x", time.Second, nil)
		c.CacheLookup(true)
	})
	assert.Nil(t, c.Registry())
}

func TestHandler(t *testing.T) {
	c := New()
	c.RunFinished(OutcomeSuccess)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `salescast_runs_total{outcome="success"} 1`)
}
