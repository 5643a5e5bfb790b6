// Package dispatch delivers operator commands to the device bus and
// records them in the audit trail.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"

	"github.com/Rithik-0617/HVAC-Project/errors"
	"github.com/Rithik-0617/HVAC-Project/hvac"
	"github.com/Rithik-0617/HVAC-Project/metric"
	"github.com/Rithik-0617/HVAC-Project/store"
)

// TopicCommandPrefix is the device-bus topic prefix commands go out on.
// The zone name is appended, giving hvac/command/{zone}.
const TopicCommandPrefix = "hvac/command/"

// CommandPublisher publishes to the device bus
type CommandPublisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// EventPublisher publishes fan-out events to the internal backbone
type EventPublisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// Dispatcher sends commands to the device bus and records them in the
// audit trail. The control log is written only after the bus accepted
// the command: a failed publish leaves no log entry, while a log
// failure after a successful publish returns an error even though the
// command already reached the devices.
type Dispatcher struct {
	store   store.Store
	bus     CommandPublisher
	events  EventPublisher
	logger  *slog.Logger
	metrics *metric.Metrics
}

// NewDispatcher creates a dispatcher. events and metrics may be nil.
func NewDispatcher(s store.Store, bus CommandPublisher, events EventPublisher, logger *slog.Logger, metrics *metric.Metrics) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		store:   s,
		bus:     bus,
		events:  events,
		logger:  logger.With("component", "dispatcher"),
		metrics: metrics,
	}
}

// SetTarget publishes a set_target command for a zone, persists the new
// target, and appends the command to the control log.
func (d *Dispatcher) SetTarget(ctx context.Context, zone string, targetTemp float64) (hvac.Target, error) {
	zone = hvac.ZoneOrDefault(zone)

	cmd := hvac.NewSetTargetCommand(zone, targetTemp)
	payload, err := json.Marshal(cmd)
	if err != nil {
		return hvac.Target{}, errors.WrapValidation(err, "Dispatcher", "SetTarget", "encode command")
	}

	target, err := d.store.UpsertTarget(ctx, zone, targetTemp)
	if err != nil {
		d.recordOutcome(zone, "store_failed")
		return hvac.Target{}, errors.Wrap(err, "Dispatcher", "SetTarget", "persist target")
	}

	if err := d.publish(ctx, zone, payload); err != nil {
		return hvac.Target{}, err
	}

	if _, err := d.store.AppendControlLog(ctx, zone, payload); err != nil {
		d.recordOutcome(zone, "log_failed")
		return hvac.Target{}, errors.Wrap(err, "Dispatcher", "SetTarget", "append control log")
	}

	d.recordOutcome(zone, "ok")
	d.broadcastTarget(ctx, target)
	return target, nil
}

// Control publishes a raw operator command for a zone and appends it to
// the control log. The command payload is forwarded untouched.
func (d *Dispatcher) Control(ctx context.Context, zone string, command json.RawMessage) (hvac.ControlLogEntry, error) {
	zone = hvac.ZoneOrDefault(zone)

	if len(bytes.TrimSpace(command)) == 0 {
		return hvac.ControlLogEntry{}, errors.WrapValidation(errors.ErrMissingCommand,
			"Dispatcher", "Control", "validate command")
	}

	if err := d.publish(ctx, zone, command); err != nil {
		return hvac.ControlLogEntry{}, err
	}

	entry, err := d.store.AppendControlLog(ctx, zone, command)
	if err != nil {
		d.recordOutcome(zone, "log_failed")
		return hvac.ControlLogEntry{}, errors.Wrap(err, "Dispatcher", "Control", "append control log")
	}

	d.recordOutcome(zone, "ok")
	d.broadcastControl(ctx, entry)
	return entry, nil
}

func (d *Dispatcher) publish(ctx context.Context, zone string, payload []byte) error {
	if err := d.bus.Publish(ctx, TopicCommandPrefix+zone, payload); err != nil {
		d.recordOutcome(zone, "publish_failed")
		return errors.WrapPublish(err, "Dispatcher", "publish", "deliver command")
	}
	return nil
}

func (d *Dispatcher) recordOutcome(zone, status string) {
	if d.metrics != nil {
		d.metrics.RecordCommandDispatched(zone, status)
	}
}

func (d *Dispatcher) broadcastTarget(ctx context.Context, target hvac.Target) {
	if d.events == nil {
		return
	}

	data, err := json.Marshal(hvac.TargetEvent{
		Zone:       target.Zone,
		TargetTemp: target.TargetTemp,
	})
	if err != nil {
		d.logger.Error("failed to encode target event", "zone", target.Zone, "error", err)
		return
	}

	if err := d.events.Publish(ctx, hvac.SubjectEventTarget, data); err != nil {
		d.logger.Warn("target persisted but broadcast failed",
			"zone", target.Zone, "error", err)
		if d.metrics != nil {
			d.metrics.RecordBroadcastFailure(hvac.SubjectEventTarget)
		}
	}
}

func (d *Dispatcher) broadcastControl(ctx context.Context, entry hvac.ControlLogEntry) {
	if d.events == nil {
		return
	}

	data, err := json.Marshal(hvac.ControlEvent{
		Zone:      entry.Zone,
		Command:   entry.Command,
		Timestamp: entry.CreatedAt,
	})
	if err != nil {
		d.logger.Error("failed to encode control event", "zone", entry.Zone, "error", err)
		return
	}

	if err := d.events.Publish(ctx, hvac.SubjectEventControl, data); err != nil {
		d.logger.Warn("command logged but broadcast failed",
			"zone", entry.Zone, "error", err)
		if d.metrics != nil {
			d.metrics.RecordBroadcastFailure(hvac.SubjectEventControl)
		}
	}
}
