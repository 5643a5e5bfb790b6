package ingest

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

type capturePublisher struct {
	subjects []string
	payloads [][]byte
	err      error
}

func (c *capturePublisher) Publish(_ context.Context, subject string, data []byte) error {
	if c.err != nil {
		return c.err
	}
	c.subjects = append(c.subjects, subject)
	c.payloads = append(c.payloads, data)
	return nil
}

type failingStore struct {
	store.Store
}

func (f *failingStore) InsertReading(context.Context, hvac.Reading) (hvac.Reading, error) {
	return hvac.Reading{}, hvacerrors.WrapStore(hvacerrors.ErrStoreUnavailable,
		"failingStore", "InsertReading", "append reading")
}

func TestIngestPersistsThenBroadcasts(t *testing.T) {
	s := store.NewMemoryStore()
	pub := &capturePublisher{}
	p := NewPipeline(s, pub, nil, nil)

	err := p.Ingest(context.Background(), hvac.Reading{
		Zone:        "kitchen",
		Temperature: hvac.Float64Ptr(70),
	})
	require.NoError(t, err)

	// Persisted.
	latest, err := s.LatestReadingForZone(context.Background(), "kitchen")
	require.NoError(t, err)

	// Broadcast with the store-assigned timestamp.
	require.Len(t, pub.subjects, 1)
	assert.Equal(t, hvac.SubjectEventReading, pub.subjects[0])

	var ev hvac.ReadingEvent
	require.NoError(t, json.Unmarshal(pub.payloads[0], &ev))
	assert.Equal(t, "kitchen", ev.Zone)
	assert.Equal(t, latest.CreatedAt, ev.Timestamp)
}

func TestIngestStoreFailureNoBroadcast(t *testing.T) {
	pub := &capturePublisher{}
	p := NewPipeline(&failingStore{}, pub, nil, nil)

	err := p.Ingest(context.Background(), hvac.Reading{Zone: "kitchen"})
	require.Error(t, err)
	assert.True(t, hvacerrors.IsStore(err))
	assert.Empty(t, pub.subjects)
}

func TestIngestBroadcastFailureStillPersists(t *testing.T) {
	s := store.NewMemoryStore()
	pub := &capturePublisher{err: errors.New("backbone down")}
	p := NewPipeline(s, pub, nil, nil)

	err := p.Ingest(context.Background(), hvac.Reading{
		Zone: "bedroom",
		AQI:  hvac.IntPtr(55),
	})
	require.NoError(t, err)

	latest, err := s.LatestReadingForZone(context.Background(), "bedroom")
	require.NoError(t, err)
	require.NotNil(t, latest.AQI)
	assert.Equal(t, 55, *latest.AQI)
}

func TestIngestNilPublisher(t *testing.T) {
	s := store.NewMemoryStore()
	p := NewPipeline(s, nil, nil, nil)

	err := p.Ingest(context.Background(), hvac.Reading{Zone: "default"})
	require.NoError(t, err)
}
