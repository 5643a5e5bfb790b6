// Package ingest turns raw device-bus messages into persisted canonical
// readings and fans them out to live views.
package ingest

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/Rithik-0617/HVAC-Project/errors"
	"github.com/Rithik-0617/HVAC-Project/hvac"
	"github.com/Rithik-0617/HVAC-Project/metric"
	"github.com/Rithik-0617/HVAC-Project/store"
)

// EventPublisher publishes fan-out events to the internal backbone
type EventPublisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// Pipeline persists canonical readings and broadcasts them. Persistence
// is the commit point: a failed insert fails the whole operation, while
// a failed broadcast after insert is logged and counted but never
// returned to the caller.
type Pipeline struct {
	store   store.Store
	events  EventPublisher
	logger  *slog.Logger
	metrics *metric.Metrics
}

// NewPipeline creates an ingest pipeline. events and metrics may be nil;
// broadcasting and counting are then skipped.
func NewPipeline(s store.Store, events EventPublisher, logger *slog.Logger, metrics *metric.Metrics) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		store:   s,
		events:  events,
		logger:  logger.With("component", "ingest-pipeline"),
		metrics: metrics,
	}
}

// Ingest persists a reading and broadcasts the stored record
func (p *Pipeline) Ingest(ctx context.Context, r hvac.Reading) error {
	stored, err := p.store.InsertReading(ctx, r)
	if err != nil {
		if p.metrics != nil {
			p.metrics.RecordError("ingest", errors.Classify(err).String())
		}
		return errors.Wrap(err, "Pipeline", "Ingest", "persist reading")
	}

	if p.metrics != nil {
		p.metrics.RecordReadingIngested(stored.Zone)
	}

	p.broadcast(ctx, stored)
	return nil
}

// broadcast publishes the stored reading to the event backbone. The
// event carries the store-assigned timestamp so every live view sees
// the same record the persistence layer holds.
func (p *Pipeline) broadcast(ctx context.Context, stored hvac.Reading) {
	if p.events == nil {
		return
	}

	data, err := json.Marshal(hvac.ReadingEventFrom(stored))
	if err != nil {
		p.logger.Error("failed to encode reading event",
			"zone", stored.Zone, "error", err)
		return
	}

	if err := p.events.Publish(ctx, hvac.SubjectEventReading, data); err != nil {
		p.logger.Warn("reading persisted but broadcast failed",
			"zone", stored.Zone, "error", err)
		if p.metrics != nil {
			p.metrics.RecordBroadcastFailure(hvac.SubjectEventReading)
		}
	}
}
