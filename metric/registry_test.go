package metric

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsRegistry(t *testing.T) {
	r := NewMetricsRegistry()

	require.NotNil(t, r.PrometheusRegistry())
	require.NotNil(t, r.CoreMetrics())
}

func TestCoreMetricsRecorders(t *testing.T) {
	r := NewMetricsRegistry()
	m := r.CoreMetrics()

	m.RecordMessageReceived("zone_reading")
	m.RecordMessageReceived("zone_reading")
	m.RecordReadingIngested("kitchen")
	m.RecordReadingDropped("raw_aqi", "non_numeric")
	m.RecordBroadcastFailure("event.reading")
	m.RecordCommandDispatched("default", "ok")
	m.RecordError("ingest", "store")
	m.RecordHealthStatus("ingest", true)
	m.RecordMQTTStatus(true)
	m.RecordNATSStatus(false)
	m.SetWebsocketClients(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.MessagesReceived.WithLabelValues("zone_reading")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReadingsIngested.WithLabelValues("kitchen")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReadingsDropped.WithLabelValues("raw_aqi", "non_numeric")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BroadcastFailures.WithLabelValues("event.reading")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CommandsDispatched.WithLabelValues("default", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HealthCheckStatus.WithLabelValues("ingest")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MQTTConnected))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.NATSConnected))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.WebsocketClients))
}

func TestRegisterCounterDuplicate(t *testing.T) {
	r := NewMetricsRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "test_counter_total",
		Help: "test",
	})

	require.NoError(t, r.RegisterCounter("svc", "test_counter", counter))
	assert.Error(t, r.RegisterCounter("svc", "test_counter", counter))
}

func TestUnregister(t *testing.T) {
	r := NewMetricsRegistry()

	gauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "test_gauge",
		Help: "test",
	})

	require.NoError(t, r.RegisterGauge("svc", "test_gauge", gauge))
	assert.True(t, r.Unregister("svc", "test_gauge"))
	assert.False(t, r.Unregister("svc", "test_gauge"))

	// Re-register after unregister works.
	require.NoError(t, r.RegisterGauge("svc", "test_gauge", gauge))
}

func TestServerDefaults(t *testing.T) {
	s := NewServer(0, "", NewMetricsRegistry())
	assert.Equal(t, "http://localhost:9090/metrics", s.Address())
}
