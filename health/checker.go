package health

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Rithik-0617/HVAC-Project/metric"
)

// DefaultCheckInterval is how often the checker runs its probes.
const DefaultCheckInterval = 15 * time.Second

// Probe reports the current health of one component.
type Probe func() Status

// Checker periodically runs registered probes, feeds their results into
// a Monitor, and mirrors them to the metrics gauges.
type Checker struct {
	monitor  *Monitor
	metrics  *metric.Metrics
	logger   *slog.Logger
	interval time.Duration

	mu     sync.RWMutex
	probes map[string]Probe

	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// NewChecker creates a checker driving the given monitor.
func NewChecker(monitor *Monitor, metrics *metric.Metrics, logger *slog.Logger, interval time.Duration) *Checker {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = DefaultCheckInterval
	}
	return &Checker{
		monitor:  monitor,
		metrics:  metrics,
		logger:   logger.With("component", "health-checker"),
		interval: interval,
		probes:   make(map[string]Probe),
	}
}

// Register adds a named probe. Registering the same name twice replaces
// the previous probe.
func (c *Checker) Register(name string, probe Probe) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.probes[name] = probe
}

// RegisterConnection registers a probe for a broker connection exposing
// an IsHealthy method.
func (c *Checker) RegisterConnection(name string, conn interface{ IsHealthy() bool }) {
	c.Register(name, func() Status {
		if conn.IsHealthy() {
			return NewHealthy(name, "connected")
		}
		return NewUnhealthy(name, "not connected")
	})
}

// Name returns the component name
func (c *Checker) Name() string {
	return "health-checker"
}

// Initialize prepares the checker
func (c *Checker) Initialize() error {
	return nil
}

// Start begins the periodic probe loop
func (c *Checker) Start(ctx context.Context) error {
	if c.running {
		return nil
	}
	c.running = true

	ctx, c.cancel = context.WithCancel(ctx)
	c.done = make(chan struct{})

	go c.run(ctx)
	return nil
}

// Stop halts the probe loop
func (c *Checker) Stop(timeout time.Duration) error {
	if !c.running {
		return nil
	}
	c.running = false

	c.cancel()
	select {
	case <-c.done:
	case <-time.After(timeout):
		c.logger.Warn("health checker did not stop in time")
	}
	return nil
}

func (c *Checker) run(ctx context.Context) {
	defer close(c.done)

	// Probe once immediately so the monitor has data before the first
	// tick.
	c.CheckNow()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.CheckNow()
		}
	}
}

// CheckNow runs all registered probes once.
func (c *Checker) CheckNow() {
	c.mu.RLock()
	probes := make(map[string]Probe, len(c.probes))
	for name, probe := range c.probes {
		probes[name] = probe
	}
	c.mu.RUnlock()

	for name, probe := range probes {
		status := probe()
		c.monitor.Update(name, status)
		if c.metrics != nil {
			c.metrics.RecordHealthStatus(name, status.Healthy)
		}
		if !status.Healthy {
			c.logger.Warn("component unhealthy", "name", name, "message", status.Message)
		}
	}
}
