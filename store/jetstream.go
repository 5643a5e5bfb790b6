package store

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/Rithik-0617/HVAC-Project/errors"
	"github.com/Rithik-0617/HVAC-Project/hvac"
	"github.com/Rithik-0617/HVAC-Project/natsclient"
)

// JetStream resource names
const (
	StreamReadings = "HVAC_READINGS"
	StreamControl  = "HVAC_CONTROL"
	BucketTargets  = "hvac_targets"
	BucketSchedule = "hvac_schedules"

	subjectReadingsPrefix = "readings."
	subjectControlPrefix  = "control."

	listFetchBatch = 256
)

// JetStreamStore is a Store backed by JetStream streams for the two
// append-only datasets (readings, control log) and KV buckets for the
// keyed ones (targets, schedules).
type JetStreamStore struct {
	client *natsclient.Client
	logger *slog.Logger

	readings  jetstream.Stream
	control   jetstream.Stream
	targets   jetstream.KeyValue
	schedules jetstream.KeyValue

	maxReadingAge time.Duration
}

// NewJetStreamStore creates a store bound to a connected NATS client.
// Initialize must be called before use.
func NewJetStreamStore(client *natsclient.Client, logger *slog.Logger, maxReadingAge time.Duration) *JetStreamStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &JetStreamStore{
		client:        client,
		logger:        logger.With("component", "jetstream-store"),
		maxReadingAge: maxReadingAge,
	}
}

// Initialize creates the streams and KV buckets if they do not exist
func (s *JetStreamStore) Initialize(ctx context.Context) error {
	readings, err := s.client.CreateStream(ctx, jetstream.StreamConfig{
		Name:     StreamReadings,
		Subjects: []string{subjectReadingsPrefix + ">"},
		Storage:  jetstream.FileStorage,
		MaxAge:   s.maxReadingAge,
	})
	if err != nil {
		return errors.WrapStore(err, "JetStreamStore", "Initialize", "create readings stream")
	}
	s.readings = readings

	control, err := s.client.CreateStream(ctx, jetstream.StreamConfig{
		Name:     StreamControl,
		Subjects: []string{subjectControlPrefix + ">"},
		Storage:  jetstream.FileStorage,
	})
	if err != nil {
		return errors.WrapStore(err, "JetStreamStore", "Initialize", "create control stream")
	}
	s.control = control

	targets, err := s.client.CreateKeyValueBucket(ctx, jetstream.KeyValueConfig{
		Bucket: BucketTargets,
	})
	if err != nil {
		return errors.WrapStore(err, "JetStreamStore", "Initialize", "create targets bucket")
	}
	s.targets = targets

	schedules, err := s.client.CreateKeyValueBucket(ctx, jetstream.KeyValueConfig{
		Bucket: BucketSchedule,
	})
	if err != nil {
		return errors.WrapStore(err, "JetStreamStore", "Initialize", "create schedules bucket")
	}
	s.schedules = schedules

	s.logger.Info("store initialized",
		"readings_stream", StreamReadings,
		"control_stream", StreamControl)
	return nil
}

// InsertReading persists a reading, assigning CreatedAt
func (s *JetStreamStore) InsertReading(ctx context.Context, r hvac.Reading) (hvac.Reading, error) {
	if r.Zone == "" {
		return hvac.Reading{}, errors.WrapValidation(errors.ErrEmptyZone,
			"JetStreamStore", "InsertReading", "validate zone")
	}

	r.CreatedAt = time.Now().UTC()

	data, err := json.Marshal(r)
	if err != nil {
		return hvac.Reading{}, errors.WrapStore(err, "JetStreamStore", "InsertReading", "encode reading")
	}

	if err := s.client.PublishToStream(ctx, subjectReadingsPrefix+r.Zone, data); err != nil {
		return hvac.Reading{}, errors.WrapStore(err, "JetStreamStore", "InsertReading", "append reading")
	}

	return r, nil
}

// ListReadings returns up to limit readings for a zone, newest first
func (s *JetStreamStore) ListReadings(ctx context.Context, zone string, limit int) ([]hvac.Reading, error) {
	limit = clampLimit(limit)

	raw, err := s.tail(ctx, s.readings, subjectReadingsPrefix+zone, limit)
	if err != nil {
		return nil, errors.WrapStore(err, "JetStreamStore", "ListReadings", "read stream")
	}

	out := make([]hvac.Reading, 0, len(raw))
	for _, data := range raw {
		var r hvac.Reading
		if err := json.Unmarshal(data, &r); err != nil {
			s.logger.Warn("skipping undecodable reading", "zone", zone, "error", err)
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// LatestReadingForZone returns the most recent reading for a zone
func (s *JetStreamStore) LatestReadingForZone(ctx context.Context, zone string) (hvac.Reading, error) {
	msg, err := s.readings.GetLastMsgForSubject(ctx, subjectReadingsPrefix+zone)
	if err != nil {
		if stderrors.Is(err, jetstream.ErrMsgNotFound) {
			return hvac.Reading{}, errors.WrapStore(errors.ErrNotFound,
				"JetStreamStore", "LatestReadingForZone", "lookup reading")
		}
		return hvac.Reading{}, errors.WrapStore(err,
			"JetStreamStore", "LatestReadingForZone", "lookup reading")
	}

	var r hvac.Reading
	if err := json.Unmarshal(msg.Data, &r); err != nil {
		return hvac.Reading{}, errors.WrapStore(err,
			"JetStreamStore", "LatestReadingForZone", "decode reading")
	}
	return r, nil
}

// UpsertTarget sets the target temperature for a zone
func (s *JetStreamStore) UpsertTarget(ctx context.Context, zone string, targetTemp float64) (hvac.Target, error) {
	if zone == "" {
		return hvac.Target{}, errors.WrapValidation(errors.ErrEmptyZone,
			"JetStreamStore", "UpsertTarget", "validate zone")
	}

	t := hvac.Target{
		Zone:       zone,
		TargetTemp: targetTemp,
		UpdatedAt:  time.Now().UTC(),
	}

	data, err := json.Marshal(t)
	if err != nil {
		return hvac.Target{}, errors.WrapStore(err, "JetStreamStore", "UpsertTarget", "encode target")
	}

	if _, err := s.targets.Put(ctx, zone, data); err != nil {
		return hvac.Target{}, errors.WrapStore(err, "JetStreamStore", "UpsertTarget", "store target")
	}

	return t, nil
}

// GetTarget returns the target for a zone
func (s *JetStreamStore) GetTarget(ctx context.Context, zone string) (hvac.Target, error) {
	entry, err := s.targets.Get(ctx, zone)
	if err != nil {
		if stderrors.Is(err, jetstream.ErrKeyNotFound) {
			return hvac.Target{}, errors.WrapStore(errors.ErrNotFound,
				"JetStreamStore", "GetTarget", "lookup target")
		}
		return hvac.Target{}, errors.WrapStore(err, "JetStreamStore", "GetTarget", "lookup target")
	}

	var t hvac.Target
	if err := json.Unmarshal(entry.Value(), &t); err != nil {
		return hvac.Target{}, errors.WrapStore(err, "JetStreamStore", "GetTarget", "decode target")
	}
	return t, nil
}

// AppendControlLog records a dispatched command
func (s *JetStreamStore) AppendControlLog(ctx context.Context, zone string, command json.RawMessage) (hvac.ControlLogEntry, error) {
	if zone == "" {
		return hvac.ControlLogEntry{}, errors.WrapValidation(errors.ErrEmptyZone,
			"JetStreamStore", "AppendControlLog", "validate zone")
	}

	entry := hvac.ControlLogEntry{
		Zone:      zone,
		Command:   command,
		CreatedAt: time.Now().UTC(),
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return hvac.ControlLogEntry{}, errors.WrapStore(err,
			"JetStreamStore", "AppendControlLog", "encode entry")
	}

	if err := s.client.PublishToStream(ctx, subjectControlPrefix+zone, data); err != nil {
		return hvac.ControlLogEntry{}, errors.WrapStore(err,
			"JetStreamStore", "AppendControlLog", "append entry")
	}

	return entry, nil
}

// ListControlLog returns up to limit entries for a zone, newest first
func (s *JetStreamStore) ListControlLog(ctx context.Context, zone string, limit int) ([]hvac.ControlLogEntry, error) {
	limit = clampLimit(limit)

	raw, err := s.tail(ctx, s.control, subjectControlPrefix+zone, limit)
	if err != nil {
		return nil, errors.WrapStore(err, "JetStreamStore", "ListControlLog", "read stream")
	}

	out := make([]hvac.ControlLogEntry, 0, len(raw))
	for _, data := range raw {
		var e hvac.ControlLogEntry
		if err := json.Unmarshal(data, &e); err != nil {
			s.logger.Warn("skipping undecodable control entry", "zone", zone, "error", err)
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// ListSchedules returns all schedules ordered by ID
func (s *JetStreamStore) ListSchedules(ctx context.Context) ([]hvac.Schedule, error) {
	lister, err := s.schedules.ListKeys(ctx)
	if err != nil {
		if stderrors.Is(err, jetstream.ErrNoKeysFound) {
			return []hvac.Schedule{}, nil
		}
		return nil, errors.WrapStore(err, "JetStreamStore", "ListSchedules", "list keys")
	}

	var out []hvac.Schedule
	for key := range lister.Keys() {
		entry, err := s.schedules.Get(ctx, key)
		if err != nil {
			// Deleted between list and get.
			continue
		}
		var sched hvac.Schedule
		if err := json.Unmarshal(entry.Value(), &sched); err != nil {
			s.logger.Warn("skipping undecodable schedule", "key", key, "error", err)
			continue
		}
		out = append(out, sched)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// InsertSchedule persists a schedule, assigning an ID
func (s *JetStreamStore) InsertSchedule(ctx context.Context, sched hvac.Schedule) (hvac.Schedule, error) {
	if sched.Zone == "" {
		sched.Zone = hvac.DefaultZone
	}
	sched.ID = uuid.NewString()

	data, err := json.Marshal(sched)
	if err != nil {
		return hvac.Schedule{}, errors.WrapStore(err, "JetStreamStore", "InsertSchedule", "encode schedule")
	}

	if _, err := s.schedules.Put(ctx, sched.ID, data); err != nil {
		return hvac.Schedule{}, errors.WrapStore(err, "JetStreamStore", "InsertSchedule", "store schedule")
	}

	return sched, nil
}

// tail reads all messages on a filtered subject and returns the payloads
// of the last limit messages, newest first. Streams here are small
// (retention-bounded), so a full scan per query is acceptable.
func (s *JetStreamStore) tail(ctx context.Context, stream jetstream.Stream, subject string, limit int) ([][]byte, error) {
	if stream == nil {
		return nil, fmt.Errorf("store not initialized")
	}

	cons, err := stream.OrderedConsumer(ctx, jetstream.OrderedConsumerConfig{
		FilterSubjects: []string{subject},
	})
	if err != nil {
		return nil, err
	}

	var all [][]byte
	for {
		batch, err := cons.FetchNoWait(listFetchBatch)
		if err != nil {
			return nil, err
		}

		n := 0
		for msg := range batch.Messages() {
			all = append(all, msg.Data())
			n++
		}
		if err := batch.Error(); err != nil {
			return nil, err
		}
		if n < listFetchBatch {
			break
		}
	}

	if len(all) > limit {
		all = all[len(all)-limit:]
	}

	// Newest first.
	for i, j := 0, len(all)-1; i < j; i, j = i+1, j-1 {
		all[i], all[j] = all[j], all[i]
	}
	return all, nil
}
