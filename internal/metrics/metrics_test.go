package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordGeneration(t *testing.T) {
	m := New()

	m.RecordGeneration(OutcomeSuccess, false)
	m.RecordGeneration(OutcomeSuccess, false)
	m.RecordGeneration(OutcomeQuotaExceeded, false)
	m.RecordGeneration(OutcomeSuccess, true)

	assert.InDelta(t, 2, testutil.ToFloat64(m.generations.WithLabelValues(OutcomeSuccess, "false")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.generations.WithLabelValues(OutcomeQuotaExceeded, "false")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.generations.WithLabelValues(OutcomeSuccess, "true")), 0)
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordGeneration(OutcomeSuccess, true)
		m.ObserveProvider(OutcomeTimeout, time.Second)
		m.RecordRegistration()
	})
}

func TestMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New()

	router := gin.New()
	router.Use(m.Middleware())
	router.GET("/image/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	router.GET("/metrics", gin.WrapH(m.Handler()))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/image/42", nil))
	require.Equal(t, http.StatusNotFound, w.Code)

	assert.InDelta(t, 1, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/image/:id", "404")), 0)

	m.RecordRegistration()
	m.ObserveProvider(OutcomeSuccess, 3*time.Second)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "dreampixel_account_registrations_total 1")
	assert.Contains(t, w.Body.String(), "dreampixel_provider_request_duration_seconds_count{outcome=\"success\"} 1")
}
