package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingComponent struct {
	name     string
	initErr  error
	startErr error
	stopErr  error
	events   *[]string
}

func (c *recordingComponent) Name() string { return c.name }

func (c *recordingComponent) Initialize() error {
	*c.events = append(*c.events, "init:"+c.name)
	return c.initErr
}

func (c *recordingComponent) Start(_ context.Context) error {
	*c.events = append(*c.events, "start:"+c.name)
	return c.startErr
}

func (c *recordingComponent) Stop(_ time.Duration) error {
	*c.events = append(*c.events, "stop:"+c.name)
	return c.stopErr
}

func TestStartAllOrderAndReverseStop(t *testing.T) {
	var events []string
	m := NewManager(nil)
	m.Register(&recordingComponent{name: "a", events: &events})
	m.Register(&recordingComponent{name: "b", events: &events})
	m.Register(&recordingComponent{name: "c", events: &events})

	require.NoError(t, m.StartAll(context.Background()))
	require.NoError(t, m.StopAll())

	assert.Equal(t, []string{
		"init:a", "start:a",
		"init:b", "start:b",
		"init:c", "start:c",
		"stop:c", "stop:b", "stop:a",
	}, events)
}

func TestStartAllFailureRollsBack(t *testing.T) {
	var events []string
	m := NewManager(nil)
	m.Register(&recordingComponent{name: "a", events: &events})
	m.Register(&recordingComponent{name: "b", startErr: errors.New("boom"), events: &events})
	m.Register(&recordingComponent{name: "c", events: &events})

	err := m.StartAll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "component b")

	// Only "a" was started, so only "a" is stopped; "c" is never touched.
	assert.Equal(t, []string{
		"init:a", "start:a",
		"init:b", "start:b",
		"stop:a",
	}, events)
}

func TestInitializeFailureStopsNothingElse(t *testing.T) {
	var events []string
	m := NewManager(nil)
	m.Register(&recordingComponent{name: "a", initErr: errors.New("bad config"), events: &events})

	err := m.StartAll(context.Background())
	require.Error(t, err)
	assert.Equal(t, []string{"init:a"}, events)
}

func TestStopAllReturnsFirstErrorButStopsAll(t *testing.T) {
	var events []string
	m := NewManager(nil)
	m.Register(&recordingComponent{name: "a", events: &events})
	m.Register(&recordingComponent{name: "b", stopErr: errors.New("stuck"), events: &events})

	require.NoError(t, m.StartAll(context.Background()))

	err := m.StopAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "component b")
	assert.Contains(t, events, "stop:a")
}

func TestStopAllIdempotent(t *testing.T) {
	var events []string
	m := NewManager(nil)
	m.Register(&recordingComponent{name: "a", events: &events})

	require.NoError(t, m.StartAll(context.Background()))
	require.NoError(t, m.StopAll())
	require.NoError(t, m.StopAll())

	// Second StopAll is a no-op.
	count := 0
	for _, e := range events {
		if e == "stop:a" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestComponents(t *testing.T) {
	var events []string
	m := NewManager(nil)
	m.Register(&recordingComponent{name: "a", events: &events})
	m.Register(&recordingComponent{name: "b", events: &events})

	assert.Equal(t, []string{"a", "b"}, m.Components())
}
