package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains the platform-level metrics shared by all components
type Metrics struct {
	// Pipeline metrics
	MessagesReceived  *prometheus.CounterVec
	ReadingsIngested  *prometheus.CounterVec
	ReadingsDropped   *prometheus.CounterVec
	BroadcastFailures *prometheus.CounterVec
	CommandsDispatched *prometheus.CounterVec

	// Service metrics
	ErrorsTotal       *prometheus.CounterVec
	HealthCheckStatus *prometheus.GaugeVec

	// Connection metrics
	MQTTConnected prometheus.Gauge
	NATSConnected prometheus.Gauge

	// Websocket metrics
	WebsocketClients prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all platform metrics
func NewMetrics() *Metrics {
	return &Metrics{
		MessagesReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "hvacstream",
				Subsystem: "bus",
				Name:      "messages_received_total",
				Help:      "Total number of bus messages received",
			},
			[]string{"kind"},
		),

		ReadingsIngested: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "hvacstream",
				Subsystem: "ingest",
				Name:      "readings_total",
				Help:      "Total number of readings persisted",
			},
			[]string{"zone"},
		),

		ReadingsDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "hvacstream",
				Subsystem: "ingest",
				Name:      "dropped_total",
				Help:      "Total number of bus messages dropped before persistence",
			},
			[]string{"kind", "reason"},
		),

		BroadcastFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "hvacstream",
				Subsystem: "ingest",
				Name:      "broadcast_failures_total",
				Help:      "Total number of fan-out publish failures after persistence",
			},
			[]string{"subject"},
		),

		CommandsDispatched: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "hvacstream",
				Subsystem: "dispatch",
				Name:      "commands_total",
				Help:      "Total number of commands dispatched to the device bus",
			},
			[]string{"zone", "status"},
		),

		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "hvacstream",
				Subsystem: "errors",
				Name:      "total",
				Help:      "Total number of errors",
			},
			[]string{"service", "type"},
		),

		HealthCheckStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "hvacstream",
				Subsystem: "health",
				Name:      "status",
				Help:      "Health check status (0=unhealthy, 1=healthy)",
			},
			[]string{"service"},
		),

		MQTTConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "hvacstream",
				Subsystem: "mqtt",
				Name:      "connected",
				Help:      "MQTT connection status (0=disconnected, 1=connected)",
			},
		),

		NATSConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "hvacstream",
				Subsystem: "nats",
				Name:      "connected",
				Help:      "NATS connection status (0=disconnected, 1=connected)",
			},
		),

		WebsocketClients: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "hvacstream",
				Subsystem: "websocket",
				Name:      "clients",
				Help:      "Number of connected websocket clients",
			},
		),
	}
}

// RecordMessageReceived increments the received bus message counter
func (c *Metrics) RecordMessageReceived(kind string) {
	c.MessagesReceived.WithLabelValues(kind).Inc()
}

// RecordReadingIngested increments the persisted reading counter
func (c *Metrics) RecordReadingIngested(zone string) {
	c.ReadingsIngested.WithLabelValues(zone).Inc()
}

// RecordReadingDropped increments the dropped message counter
func (c *Metrics) RecordReadingDropped(kind, reason string) {
	c.ReadingsDropped.WithLabelValues(kind, reason).Inc()
}

// RecordBroadcastFailure increments the fan-out failure counter
func (c *Metrics) RecordBroadcastFailure(subject string) {
	c.BroadcastFailures.WithLabelValues(subject).Inc()
}

// RecordCommandDispatched increments the dispatched command counter
func (c *Metrics) RecordCommandDispatched(zone, status string) {
	c.CommandsDispatched.WithLabelValues(zone, status).Inc()
}

// RecordError increments the error counter
func (c *Metrics) RecordError(service, errorType string) {
	c.ErrorsTotal.WithLabelValues(service, errorType).Inc()
}

// RecordHealthStatus updates health check status
func (c *Metrics) RecordHealthStatus(service string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1.0
	}
	c.HealthCheckStatus.WithLabelValues(service).Set(value)
}

// RecordMQTTStatus updates MQTT connection status
func (c *Metrics) RecordMQTTStatus(connected bool) {
	value := 0.0
	if connected {
		value = 1.0
	}
	c.MQTTConnected.Set(value)
}

// RecordNATSStatus updates NATS connection status
func (c *Metrics) RecordNATSStatus(connected bool) {
	value := 0.0
	if connected {
		value = 1.0
	}
	c.NATSConnected.Set(value)
}

// SetWebsocketClients updates the connected client gauge
func (c *Metrics) SetWebsocketClients(n int) {
	c.WebsocketClients.Set(float64(n))
}
