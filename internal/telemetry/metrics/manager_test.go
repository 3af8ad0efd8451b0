package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManager(t *testing.T) {
	m, reg := NewTestManagerAndRegistry()
	require.NotNil(t, m)

	m.CounterOrders.Inc()
	m.CounterLoginAttempts.WithLabelValues("ok").Inc()
	m.CounterLoginAttempts.WithLabelValues("wrong-credentials").Add(2)
	m.GaugeSessions.Set(3)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.CounterOrders))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.CounterLoginAttempts.WithLabelValues("wrong-credentials")))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.GaugeSessions))

	count, err := testutil.GatherAndCount(reg, "orderbox_test_server_orders")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSetupPrometheus_Handler(t *testing.T) {
	reg := SetupPrometheus()
	m := NewManager("orderbox", "main", reg)
	m.GaugeLifeSignal.Set(1)

	rr := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rr.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "orderbox_main_life_signal 1")
	assert.Contains(t, string(body), "go_goroutines")
}
