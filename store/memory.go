package store

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Rithik-0617/HVAC-Project/errors"
	"github.com/Rithik-0617/HVAC-Project/hvac"
)

// MemoryStore is an in-memory Store used in tests and for running the
// service without a JetStream backend.
type MemoryStore struct {
	mu         sync.RWMutex
	readings   map[string][]hvac.Reading
	targets    map[string]hvac.Target
	controlLog map[string][]hvac.ControlLogEntry
	schedules  []hvac.Schedule

	// now is swappable for tests
	now func() time.Time
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		readings:   make(map[string][]hvac.Reading),
		targets:    make(map[string]hvac.Target),
		controlLog: make(map[string][]hvac.ControlLogEntry),
		now:        time.Now,
	}
}

// InsertReading persists a reading, assigning CreatedAt
func (s *MemoryStore) InsertReading(_ context.Context, r hvac.Reading) (hvac.Reading, error) {
	if r.Zone == "" {
		return hvac.Reading{}, errors.WrapValidation(errors.ErrEmptyZone,
			"MemoryStore", "InsertReading", "validate zone")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r.CreatedAt = s.now().UTC()
	s.readings[r.Zone] = append(s.readings[r.Zone], r)
	return r, nil
}

// ListReadings returns up to limit readings for a zone, newest first
func (s *MemoryStore) ListReadings(_ context.Context, zone string, limit int) ([]hvac.Reading, error) {
	limit = clampLimit(limit)

	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.readings[zone]
	out := make([]hvac.Reading, 0, limit)
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

// LatestReadingForZone returns the most recent reading for a zone
func (s *MemoryStore) LatestReadingForZone(_ context.Context, zone string) (hvac.Reading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.readings[zone]
	if len(all) == 0 {
		return hvac.Reading{}, errors.WrapStore(errors.ErrNotFound,
			"MemoryStore", "LatestReadingForZone", "lookup reading")
	}
	return all[len(all)-1], nil
}

// UpsertTarget sets the target temperature for a zone
func (s *MemoryStore) UpsertTarget(_ context.Context, zone string, targetTemp float64) (hvac.Target, error) {
	if zone == "" {
		return hvac.Target{}, errors.WrapValidation(errors.ErrEmptyZone,
			"MemoryStore", "UpsertTarget", "validate zone")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t := hvac.Target{
		Zone:       zone,
		TargetTemp: targetTemp,
		UpdatedAt:  s.now().UTC(),
	}
	s.targets[zone] = t
	return t, nil
}

// GetTarget returns the target for a zone
func (s *MemoryStore) GetTarget(_ context.Context, zone string) (hvac.Target, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.targets[zone]
	if !ok {
		return hvac.Target{}, errors.WrapStore(errors.ErrNotFound,
			"MemoryStore", "GetTarget", "lookup target")
	}
	return t, nil
}

// AppendControlLog records a dispatched command
func (s *MemoryStore) AppendControlLog(_ context.Context, zone string, command json.RawMessage) (hvac.ControlLogEntry, error) {
	if zone == "" {
		return hvac.ControlLogEntry{}, errors.WrapValidation(errors.ErrEmptyZone,
			"MemoryStore", "AppendControlLog", "validate zone")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry := hvac.ControlLogEntry{
		Zone:      zone,
		Command:   append(json.RawMessage(nil), command...),
		CreatedAt: s.now().UTC(),
	}
	s.controlLog[zone] = append(s.controlLog[zone], entry)
	return entry, nil
}

// ListControlLog returns up to limit entries for a zone, newest first
func (s *MemoryStore) ListControlLog(_ context.Context, zone string, limit int) ([]hvac.ControlLogEntry, error) {
	limit = clampLimit(limit)

	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.controlLog[zone]
	out := make([]hvac.ControlLogEntry, 0, limit)
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

// ListSchedules returns all schedules ordered by ID
func (s *MemoryStore) ListSchedules(_ context.Context) ([]hvac.Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]hvac.Schedule, len(s.schedules))
	copy(out, s.schedules)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// InsertSchedule persists a schedule, assigning an ID
func (s *MemoryStore) InsertSchedule(_ context.Context, sched hvac.Schedule) (hvac.Schedule, error) {
	if sched.Zone == "" {
		sched.Zone = hvac.DefaultZone
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sched.ID = uuid.NewString()
	s.schedules = append(s.schedules, sched)
	return sched, nil
}
