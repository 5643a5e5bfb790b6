package ingest

import (
	"context"
	"log/slog"
	"time"

	"github.com/Rithik-0617/HVAC-Project/metric"
	"github.com/Rithik-0617/HVAC-Project/mqttclient"
	"github.com/Rithik-0617/HVAC-Project/normalize"
)

// Bus is the device-bus surface the input consumes
type Bus interface {
	Subscribe(topic string, handler mqttclient.MessageHandler) error
}

// Input subscribes to the device-bus ingestion topics and feeds every
// decodable message through the pipeline. Undecodable messages are
// dropped with a counter bump; ingestion never stops on bad input.
type Input struct {
	bus      Bus
	pipeline *Pipeline
	logger   *slog.Logger
	metrics  *metric.Metrics

	cancel context.CancelFunc
}

// NewInput creates an ingestion input bound to a device bus
func NewInput(bus Bus, pipeline *Pipeline, logger *slog.Logger, metrics *metric.Metrics) *Input {
	if logger == nil {
		logger = slog.Default()
	}
	return &Input{
		bus:      bus,
		pipeline: pipeline,
		logger:   logger.With("component", "ingest-input"),
		metrics:  metrics,
	}
}

// Name returns the component name
func (i *Input) Name() string {
	return "ingest-input"
}

// Initialize validates the input configuration
func (i *Input) Initialize() error {
	return nil
}

// Start subscribes to the ingestion topics
func (i *Input) Start(ctx context.Context) error {
	ctx, i.cancel = context.WithCancel(ctx)

	topics := []string{
		normalize.TopicZoneReadingFilter,
		normalize.TopicCombined,
		normalize.TopicRawAQI,
	}

	for _, topic := range topics {
		topic := topic
		err := i.bus.Subscribe(topic, func(msgTopic string, payload []byte) {
			i.handleMessage(ctx, msgTopic, payload)
		})
		if err != nil {
			return err
		}
		i.logger.Info("subscribed to ingestion topic", "topic", topic)
	}

	return nil
}

// Stop cancels message handling
func (i *Input) Stop(_ time.Duration) error {
	if i.cancel != nil {
		i.cancel()
	}
	return nil
}

func (i *Input) handleMessage(ctx context.Context, topic string, payload []byte) {
	if ctx.Err() != nil {
		return
	}

	kind, _ := normalize.Classify(topic)
	if i.metrics != nil {
		i.metrics.RecordMessageReceived(kind.String())
	}

	reading, ok := normalize.Normalize(topic, payload)
	if !ok {
		i.logger.Debug("dropping undecodable bus message",
			"topic", topic, "kind", kind.String())
		if i.metrics != nil {
			i.metrics.RecordReadingDropped(kind.String(), "undecodable")
		}
		return
	}

	if err := i.pipeline.Ingest(ctx, reading); err != nil {
		i.logger.Error("failed to ingest reading",
			"topic", topic, "zone", reading.Zone, "error", err)
	}
}
