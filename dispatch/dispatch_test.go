package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	hvacerrors "github.com/Rithik-0617/HVAC-Project/errors"
	"github.com/Rithik-0617/HVAC-Project/hvac"
	"github.com/Rithik-0617/HVAC-Project/store"
)

type captureBus struct {
	topics   []string
	payloads [][]byte
	err      error
}

func (b *captureBus) Publish(_ context.Context, topic string, payload []byte) error {
	if b.err != nil {
		return b.err
	}
	b.topics = append(b.topics, topic)
	b.payloads = append(b.payloads, payload)
	return nil
}

type captureEvents struct {
	subjects []string
	payloads [][]byte
}

func (e *captureEvents) Publish(_ context.Context, subject string, data []byte) error {
	e.subjects = append(e.subjects, subject)
	e.payloads = append(e.payloads, data)
	return nil
}

type logFailStore struct {
	*store.MemoryStore
}

func (s *logFailStore) AppendControlLog(context.Context, string, json.RawMessage) (hvac.ControlLogEntry, error) {
	return hvac.ControlLogEntry{}, hvacerrors.WrapStore(hvacerrors.ErrStoreUnavailable,
		"logFailStore", "AppendControlLog", "append entry")
}

func TestSetTargetPublishesThenPersists(t *testing.T) {
	s := store.NewMemoryStore()
	bus := &captureBus{}
	events := &captureEvents{}
	d := NewDispatcher(s, bus, events, nil, nil)
	ctx := context.Background()

	target, err := d.SetTarget(ctx, "kitchen", 71.5)
	require.NoError(t, err)
	assert.Equal(t, "kitchen", target.Zone)
	assert.Equal(t, 71.5, target.TargetTemp)

	// Command went to the zone topic with the canonical shape.
	require.Len(t, bus.topics, 1)
	assert.Equal(t, "hvac/command/kitchen", bus.topics[0])
	assert.JSONEq(t,
		`{"cmd":"set_target","target_temp":71.5,"zone":"kitchen"}`,
		string(bus.payloads[0]))

	// Target persisted and command logged.
	got, err := s.GetTarget(ctx, "kitchen")
	require.NoError(t, err)
	assert.Equal(t, 71.5, got.TargetTemp)

	log, err := s.ListControlLog(ctx, "kitchen", 10)
	require.NoError(t, err)
	require.Len(t, log, 1)

	// Target event broadcast.
	require.Len(t, events.subjects, 1)
	assert.Equal(t, hvac.SubjectEventTarget, events.subjects[0])
}

func TestSetTargetDefaultZone(t *testing.T) {
	s := store.NewMemoryStore()
	bus := &captureBus{}
	d := NewDispatcher(s, bus, nil, nil, nil)

	_, err := d.SetTarget(context.Background(), "", 68)
	require.NoError(t, err)
	assert.Equal(t, "hvac/command/default", bus.topics[0])
}

func TestSetTargetPublishFailureNoLogEntry(t *testing.T) {
	s := store.NewMemoryStore()
	bus := &captureBus{err: errors.New("broker down")}
	d := NewDispatcher(s, bus, nil, nil, nil)
	ctx := context.Background()

	_, err := d.SetTarget(ctx, "kitchen", 70)
	require.Error(t, err)
	assert.True(t, hvacerrors.IsPublish(err))

	// The target upsert precedes the publish attempt.
	got, err := s.GetTarget(ctx, "kitchen")
	require.NoError(t, err)
	assert.Equal(t, 70.0, got.TargetTemp)

	// But the command never made it out, so nothing was logged.
	log, err := s.ListControlLog(ctx, "kitchen", 10)
	require.NoError(t, err)
	assert.Empty(t, log)
}

func TestSetTargetLogFailureAfterPublish(t *testing.T) {
	s := &logFailStore{MemoryStore: store.NewMemoryStore()}
	bus := &captureBus{}
	d := NewDispatcher(s, bus, nil, nil, nil)
	ctx := context.Background()

	_, err := d.SetTarget(ctx, "kitchen", 70)
	require.Error(t, err)
	assert.True(t, hvacerrors.IsStore(err))

	// The command already left for the devices.
	assert.Len(t, bus.topics, 1)
	// And the target write happened before the log failure.
	got, err := s.GetTarget(ctx, "kitchen")
	require.NoError(t, err)
	assert.Equal(t, 70.0, got.TargetTemp)
}

func TestControlForwardsRawCommand(t *testing.T) {
	s := store.NewMemoryStore()
	bus := &captureBus{}
	events := &captureEvents{}
	d := NewDispatcher(s, bus, events, nil, nil)
	ctx := context.Background()

	cmd := json.RawMessage(`{"cmd":"fan_on","speed":2}`)
	entry, err := d.Control(ctx, "bedroom", cmd)
	require.NoError(t, err)
	assert.Equal(t, "bedroom", entry.Zone)

	require.Len(t, bus.topics, 1)
	assert.Equal(t, "hvac/command/bedroom", bus.topics[0])
	assert.Equal(t, []byte(cmd), bus.payloads[0])

	log, err := s.ListControlLog(ctx, "bedroom", 10)
	require.NoError(t, err)
	require.Len(t, log, 1)
	assert.JSONEq(t, string(cmd), string(log[0].Command))

	require.Len(t, events.subjects, 1)
	assert.Equal(t, hvac.SubjectEventControl, events.subjects[0])
}

func TestControlMissingCommand(t *testing.T) {
	s := store.NewMemoryStore()
	bus := &captureBus{}
	d := NewDispatcher(s, bus, nil, nil, nil)

	_, err := d.Control(context.Background(), "default", nil)
	require.Error(t, err)
	assert.True(t, hvacerrors.IsValidation(err))
	assert.Empty(t, bus.topics)

	_, err = d.Control(context.Background(), "default", json.RawMessage("  "))
	require.Error(t, err)
	assert.True(t, hvacerrors.IsValidation(err))
}

func TestControlPublishFailureNoLog(t *testing.T) {
	s := store.NewMemoryStore()
	bus := &captureBus{err: errors.New("broker down")}
	d := NewDispatcher(s, bus, nil, nil, nil)
	ctx := context.Background()

	_, err := d.Control(ctx, "default", json.RawMessage(`{"cmd":"off"}`))
	require.Error(t, err)
	assert.True(t, hvacerrors.IsPublish(err))

	log, err := s.ListControlLog(ctx, "default", 10)
	require.NoError(t, err)
	assert.Empty(t, log)
}
