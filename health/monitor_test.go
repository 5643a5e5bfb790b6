package health

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonitorUpdateAndGet(t *testing.T) {
	m := NewMonitor()

	m.UpdateHealthy("mqtt", "connected")

	status, ok := m.Get("mqtt")
	require.True(t, ok)
	assert.Equal(t, "mqtt", status.Component)
	assert.True(t, status.Healthy)
	assert.Equal(t, "healthy", status.Status)
	assert.False(t, status.Timestamp.IsZero())
}

func TestMonitorGetMissing(t *testing.T) {
	m := NewMonitor()

	_, ok := m.Get("nats")
	assert.False(t, ok)
}

func TestMonitorUpdateOverridesComponentName(t *testing.T) {
	m := NewMonitor()

	// The status carries the wrong name; Update corrects it.
	m.Update("nats", NewHealthy("something-else", "connected"))

	status, ok := m.Get("nats")
	require.True(t, ok)
	assert.Equal(t, "nats", status.Component)
}

func TestMonitorGetAllReturnsCopy(t *testing.T) {
	m := NewMonitor()
	m.UpdateHealthy("mqtt", "connected")

	all := m.GetAll()
	delete(all, "mqtt")

	_, ok := m.Get("mqtt")
	assert.True(t, ok)
}

func TestMonitorRemove(t *testing.T) {
	m := NewMonitor()
	m.UpdateHealthy("mqtt", "connected")
	m.Remove("mqtt")

	_, ok := m.Get("mqtt")
	assert.False(t, ok)
	assert.Equal(t, 0, m.Count())
}

func TestAggregateHealthAllHealthy(t *testing.T) {
	m := NewMonitor()
	m.UpdateHealthy("mqtt", "connected")
	m.UpdateHealthy("nats", "connected")

	agg := m.AggregateHealth("hvacstream")
	assert.True(t, agg.IsHealthy())
	assert.Len(t, agg.SubStatuses, 2)
}

func TestAggregateHealthUnhealthyWins(t *testing.T) {
	m := NewMonitor()
	m.UpdateHealthy("mqtt", "connected")
	m.UpdateUnhealthy("nats", "connection refused")

	agg := m.AggregateHealth("hvacstream")
	assert.True(t, agg.IsUnhealthy())
}

func TestAggregateDegraded(t *testing.T) {
	subs := []Status{
		NewHealthy("mqtt", "connected"),
		NewDegraded("store", "slow responses"),
	}

	agg := Aggregate("hvacstream", subs)
	assert.True(t, agg.IsDegraded())
	assert.False(t, agg.Healthy)
}

func TestAggregateEmpty(t *testing.T) {
	agg := Aggregate("hvacstream", nil)
	assert.True(t, agg.IsHealthy())
	assert.Empty(t, agg.SubStatuses)
}

type fakeConn struct {
	healthy bool
}

func (f *fakeConn) IsHealthy() bool { return f.healthy }

func TestCheckerProbes(t *testing.T) {
	m := NewMonitor()
	c := NewChecker(m, nil, nil, time.Minute)

	conn := &fakeConn{healthy: true}
	c.RegisterConnection("mqtt", conn)
	c.Register("store", func() Status {
		return NewHealthy("store", "reachable")
	})

	c.CheckNow()

	status, ok := m.Get("mqtt")
	require.True(t, ok)
	assert.True(t, status.Healthy)

	conn.healthy = false
	c.CheckNow()

	status, _ = m.Get("mqtt")
	assert.True(t, status.IsUnhealthy())

	status, ok = m.Get("store")
	require.True(t, ok)
	assert.True(t, status.Healthy)
}
