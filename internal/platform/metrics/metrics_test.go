package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryServesModuleMetrics(t *testing.T) {
	r := New("test")
	promauto.With(r.Registerer()).NewCounter(prometheus.CounterOpts{
		Name: "shiftguard_test_total",
		Help: "test counter",
	}).Inc()

	w := httptest.NewRecorder()
	r.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "shiftguard_test_total 1")
	assert.Contains(t, w.Body.String(), `shiftguard_build_info{version="test"} 1`)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}
