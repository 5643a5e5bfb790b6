package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rithik-0617/HVAC-Project/errors"
	"github.com/Rithik-0617/HVAC-Project/hvac"
)

func TestInsertReadingAssignsCreatedAt(t *testing.T) {
	s := NewMemoryStore()
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	stored, err := s.InsertReading(context.Background(), hvac.Reading{
		Zone:        "livingroom",
		Temperature: hvac.Float64Ptr(72),
	})
	require.NoError(t, err)

	assert.Equal(t, fixed, stored.CreatedAt)
	assert.Equal(t, "livingroom", stored.Zone)
}

func TestInsertReadingEmptyZone(t *testing.T) {
	s := NewMemoryStore()

	_, err := s.InsertReading(context.Background(), hvac.Reading{})
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestLatestReadingForZone(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.LatestReadingForZone(ctx, "kitchen")
	assert.True(t, errors.IsNotFound(err))

	_, err = s.InsertReading(ctx, hvac.Reading{Zone: "kitchen", Temperature: hvac.Float64Ptr(68)})
	require.NoError(t, err)
	_, err = s.InsertReading(ctx, hvac.Reading{Zone: "kitchen", Temperature: hvac.Float64Ptr(70)})
	require.NoError(t, err)

	latest, err := s.LatestReadingForZone(ctx, "kitchen")
	require.NoError(t, err)
	require.NotNil(t, latest.Temperature)
	assert.Equal(t, 70.0, *latest.Temperature)
}

func TestListReadingsNewestFirst(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := s.InsertReading(ctx, hvac.Reading{
			Zone:        "default",
			Temperature: hvac.Float64Ptr(float64(60 + i)),
		})
		require.NoError(t, err)
	}

	got, err := s.ListReadings(ctx, "default", 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, 64.0, *got[0].Temperature)
	assert.Equal(t, 63.0, *got[1].Temperature)
	assert.Equal(t, 62.0, *got[2].Temperature)
}

func TestListReadingsZoneIsolation(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.InsertReading(ctx, hvac.Reading{Zone: "kitchen", Temperature: hvac.Float64Ptr(68)})
	require.NoError(t, err)
	_, err = s.InsertReading(ctx, hvac.Reading{Zone: "bedroom", Temperature: hvac.Float64Ptr(65)})
	require.NoError(t, err)

	got, err := s.ListReadings(ctx, "kitchen", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "kitchen", got[0].Zone)
}

func TestListReadingsLimitClamped(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.InsertReading(ctx, hvac.Reading{Zone: "default", AQI: hvac.IntPtr(42)})
	require.NoError(t, err)

	got, err := s.ListReadings(ctx, "default", -1)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	got, err = s.ListReadings(ctx, "default", 10000)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestTargetRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.GetTarget(ctx, "default")
	assert.True(t, errors.IsNotFound(err))

	set, err := s.UpsertTarget(ctx, "default", 71.5)
	require.NoError(t, err)
	assert.Equal(t, 71.5, set.TargetTemp)
	assert.False(t, set.UpdatedAt.IsZero())

	got, err := s.GetTarget(ctx, "default")
	require.NoError(t, err)
	assert.Equal(t, set, got)

	// Upsert overwrites.
	_, err = s.UpsertTarget(ctx, "default", 68)
	require.NoError(t, err)
	got, err = s.GetTarget(ctx, "default")
	require.NoError(t, err)
	assert.Equal(t, 68.0, got.TargetTemp)
}

func TestUpsertTargetEmptyZone(t *testing.T) {
	s := NewMemoryStore()

	_, err := s.UpsertTarget(context.Background(), "", 70)
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestControlLogAppendAndList(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	cmd := json.RawMessage(`{"cmd":"set_target","target_temp":70,"zone":"default"}`)
	entry, err := s.AppendControlLog(ctx, "default", cmd)
	require.NoError(t, err)
	assert.JSONEq(t, string(cmd), string(entry.Command))
	assert.False(t, entry.CreatedAt.IsZero())

	got, err := s.ListControlLog(ctx, "default", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "default", got[0].Zone)
}

func TestControlLogCommandCopied(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	cmd := json.RawMessage(`{"cmd":"fan_on"}`)
	_, err := s.AppendControlLog(ctx, "default", cmd)
	require.NoError(t, err)

	// Mutating the caller's buffer must not change the stored entry.
	cmd[2] = 'X'
	got, err := s.ListControlLog(ctx, "default", 1)
	require.NoError(t, err)
	assert.JSONEq(t, `{"cmd":"fan_on"}`, string(got[0].Command))
}

func TestSchedules(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	got, err := s.ListSchedules(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)

	sched, err := s.InsertSchedule(ctx, hvac.Schedule{
		CronTime:   "07:00",
		Days:       "Everyday",
		TargetTemp: 70,
		Enabled:    true,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, sched.ID)
	assert.Equal(t, hvac.DefaultZone, sched.Zone)

	got, err = s.ListSchedules(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, sched.ID, got[0].ID)
}
