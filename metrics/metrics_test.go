package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewPrometheusCollector("test", reg)
	require.NoError(t, err)

	c.RecordLoad("ready", 10*time.Millisecond)
	c.RecordLoad("ready", 20*time.Millisecond)
	c.RecordResync("rejected", 0)
	c.RecordSectionDegraded("tenant")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.loads.WithLabelValues("ready")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.resyncs.WithLabelValues("rejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.degradedSection.WithLabelValues("tenant")))

	// second registration under the same namespace conflicts
	_, err = NewPrometheusCollector("test", reg)
	assert.Error(t, err)
}

func TestMetricsServer_Handler(t *testing.T) {
	srv, err := New("storagecfg", "127.0.0.1:0")
	require.NoError(t, err)

	srv.Collector.RecordLoad("error", time.Millisecond)

	w := httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	resp := w.Result()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `storagecfg_config_detail_loads_total{outcome="error"} 1`)
}
