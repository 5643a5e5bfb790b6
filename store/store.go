// Package store defines the persistence layer for canonical readings,
// zone targets, control-log entries, and schedules, with a
// JetStream-backed implementation and an in-memory one for tests.
package store

import (
	"context"
	"encoding/json"

	"github.com/Rithik-0617/HVAC-Project/hvac"
)

// Store is the persistence contract used by the ingest pipeline, the
// dispatcher, and the HTTP gateway. Implementations assign CreatedAt on
// insert; callers must treat the returned records as authoritative.
type Store interface {
	// InsertReading persists a canonical reading and returns the stored
	// record with its assigned CreatedAt.
	InsertReading(ctx context.Context, r hvac.Reading) (hvac.Reading, error)

	// ListReadings returns up to limit readings for a zone, newest first.
	ListReadings(ctx context.Context, zone string, limit int) ([]hvac.Reading, error)

	// LatestReadingForZone returns the most recent reading for a zone.
	// Returns an error satisfying errors.IsNotFound when the zone has no
	// readings.
	LatestReadingForZone(ctx context.Context, zone string) (hvac.Reading, error)

	// UpsertTarget sets the target temperature for a zone.
	UpsertTarget(ctx context.Context, zone string, targetTemp float64) (hvac.Target, error)

	// GetTarget returns the target for a zone. Returns an error
	// satisfying errors.IsNotFound when no target has been set.
	GetTarget(ctx context.Context, zone string) (hvac.Target, error)

	// AppendControlLog records a dispatched command for audit.
	AppendControlLog(ctx context.Context, zone string, command json.RawMessage) (hvac.ControlLogEntry, error)

	// ListControlLog returns up to limit entries for a zone, newest first.
	ListControlLog(ctx context.Context, zone string, limit int) ([]hvac.ControlLogEntry, error)

	// ListSchedules returns all schedules ordered by ID.
	ListSchedules(ctx context.Context) ([]hvac.Schedule, error)

	// InsertSchedule persists a schedule and returns it with its
	// assigned ID.
	InsertSchedule(ctx context.Context, s hvac.Schedule) (hvac.Schedule, error)
}

// DefaultListLimit bounds list queries when the caller passes a
// non-positive limit.
const DefaultListLimit = 100

func clampLimit(limit int) int {
	if limit <= 0 || limit > DefaultListLimit {
		return DefaultListLimit
	}
	return limit
}
