package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"meetroom/config"
	"meetroom/shared/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordConflicts(t *testing.T) {
	m := metrics.New("meetroom-test")

	m.RecordConflicts([]string{"time_slot", "blocked_by_all_day", "time_slot"})

	expected := `
# HELP booking_conflicts_total Booking requests rejected by conflict kind.
# TYPE booking_conflicts_total counter
booking_conflicts_total{kind="blocked_by_all_day",service="meetroom-test"} 1
booking_conflicts_total{kind="time_slot",service="meetroom-test"} 2
`

	err := testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "booking_conflicts_total")
	assert.NoError(t, err)
}

func TestHandlerExposesRequests(t *testing.T) {
	m := metrics.New("meetroom-test")
	m.ObserveRequest(http.MethodGet, "/v1/bookings/{id}", http.StatusOK, 15*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `http_requests_total{method="GET",route="/v1/bookings/{id}",service="meetroom-test",status="200"} 1`)
}

func TestNilMetricsIsNoop(t *testing.T) {
	cfg := &config.Config{}

	m := metrics.NewFromConfig(cfg)
	require.Nil(t, m)

	assert.NotPanics(t, func() {
		m.RecordConflicts([]string{"all_day"})
		m.ObserveRequest(http.MethodGet, "/", http.StatusOK, time.Second)
	})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
