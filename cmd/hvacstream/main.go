// Package main implements the entry point for the hvacstream pipeline.
// It ingests sensor telemetry from the MQTT device bus, persists
// canonical readings, fans them out to websocket subscribers, and
// dispatches operator commands back to the devices.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/Rithik-0617/HVAC-Project/config"
	"github.com/Rithik-0617/HVAC-Project/dispatch"
	httpgateway "github.com/Rithik-0617/HVAC-Project/gateway/http"
	"github.com/Rithik-0617/HVAC-Project/health"
	"github.com/Rithik-0617/HVAC-Project/ingest"
	"github.com/Rithik-0617/HVAC-Project/metric"
	"github.com/Rithik-0617/HVAC-Project/mqttclient"
	"github.com/Rithik-0617/HVAC-Project/natsclient"
	"github.com/Rithik-0617/HVAC-Project/output/websocket"
	"github.com/Rithik-0617/HVAC-Project/service"
	"github.com/Rithik-0617/HVAC-Project/store"
)

// Build information constants
const (
	Version = "0.1.0"
	appName = "hvacstream"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("application failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cliCfg := parseFlags()
	if err := validateFlags(cliCfg); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil
	}
	if cliCfg.ShowHelp {
		printDetailedHelp()
		return nil
	}

	logger := setupLogger(cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	slog.Info("starting hvacstream",
		"version", Version,
		"config_path", cliCfg.ConfigPath)

	cfg, err := loadConfig(cliCfg.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if cliCfg.Validate {
		slog.Info("configuration is valid")
		return nil
	}

	ctx := context.Background()

	metricsRegistry := metric.NewMetricsRegistry()
	metrics := metricsRegistry.CoreMetrics()

	natsClient, err := connectNATS(ctx, cfg, logger, metrics)
	if err != nil {
		return err
	}
	defer func() {
		if err := natsClient.Close(ctx); err != nil {
			slog.Warn("nats close failed", "error", err)
		}
	}()

	mqttClient, err := connectMQTT(ctx, cfg, metrics)
	if err != nil {
		return err
	}
	defer mqttClient.Close()

	st, err := buildStore(ctx, cfg, natsClient, logger)
	if err != nil {
		return fmt.Errorf("build store: %w", err)
	}

	manager := buildComponents(cfg, st, mqttClient, natsClient, logger, metrics)

	var metricServer *metric.Server
	if cfg.Metrics.Enabled {
		metricServer = metric.NewServer(cfg.Metrics.Port, cfg.Metrics.Path, metricsRegistry)
		go func() {
			if err := metricServer.Start(); err != nil {
				slog.Error("metrics server failed", "error", err)
			}
		}()
		defer func() {
			if err := metricServer.Stop(); err != nil {
				slog.Warn("metrics server stop failed", "error", err)
			}
		}()
	}

	return runWithSignalHandling(ctx, manager, cliCfg.ShutdownTimeout)
}

// loadConfig loads configuration, falling back to built-in defaults when
// no file is given
func loadConfig(path string) (*config.Config, error) {
	loader := config.NewLoader()
	if path != "" {
		loader.AddLayer(path)
	}
	return loader.Load()
}

// connectNATS establishes the internal backbone connection
func connectNATS(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	metrics *metric.Metrics,
) (*natsclient.Client, error) {
	opts := []natsclient.ClientOption{
		natsclient.WithName(cfg.NATS.Name),
		natsclient.WithMaxReconnects(cfg.NATS.MaxReconnects),
		natsclient.WithReconnectWait(cfg.NATS.ReconnectWait),
		natsclient.WithDisconnectCallback(func(error) {
			metrics.RecordNATSStatus(false)
		}),
		natsclient.WithReconnectCallback(func() {
			metrics.RecordNATSStatus(true)
		}),
	}
	if cfg.NATS.Username != "" {
		opts = append(opts, natsclient.WithCredentials(cfg.NATS.Username, cfg.NATS.Password))
	}

	client, err := natsclient.NewClient(cfg.NATS.URLs[0], opts...)
	if err != nil {
		return nil, fmt.Errorf("create NATS client: %w", err)
	}

	slog.Info("connecting to NATS", "url", cfg.NATS.URLs[0])
	if err := client.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	metrics.RecordNATSStatus(true)

	return client, nil
}

// connectMQTT establishes the device bus connection
func connectMQTT(
	ctx context.Context,
	cfg *config.Config,
	metrics *metric.Metrics,
) (*mqttclient.Client, error) {
	opts := []mqttclient.ClientOption{
		mqttclient.WithClientID(cfg.MQTT.ClientID),
		mqttclient.WithConnectTimeout(cfg.MQTT.ConnectTimeout),
		mqttclient.WithReconnectWait(cfg.MQTT.ReconnectWait),
		mqttclient.WithKeepAlive(cfg.MQTT.KeepAlive),
		mqttclient.WithConnectHandler(func() {
			metrics.RecordMQTTStatus(true)
		}),
		mqttclient.WithDisconnectHandler(func(error) {
			metrics.RecordMQTTStatus(false)
		}),
	}
	if cfg.MQTT.Username != "" {
		opts = append(opts, mqttclient.WithCredentials(cfg.MQTT.Username, cfg.MQTT.Password))
	}

	client, err := mqttclient.NewClient(cfg.MQTT.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("create MQTT client: %w", err)
	}

	slog.Info("connecting to MQTT broker", "url", cfg.MQTT.URL)
	if err := client.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connect to MQTT broker: %w", err)
	}

	return client, nil
}

// buildStore selects the persistence backend
func buildStore(
	ctx context.Context,
	cfg *config.Config,
	natsClient *natsclient.Client,
	logger *slog.Logger,
) (store.Store, error) {
	switch cfg.Storage.Backend {
	case config.StorageModeMemory:
		slog.Warn("using in-memory storage, readings will not survive restarts")
		return store.NewMemoryStore(), nil
	default:
		js := store.NewJetStreamStore(natsClient, logger, cfg.Storage.MaxReadingAge)
		if err := js.Initialize(ctx); err != nil {
			return nil, err
		}
		return js, nil
	}
}

// buildComponents wires the pipeline and registers everything with the
// lifecycle manager
func buildComponents(
	cfg *config.Config,
	st store.Store,
	mqttClient *mqttclient.Client,
	natsClient *natsclient.Client,
	logger *slog.Logger,
	metrics *metric.Metrics,
) *service.Manager {
	pipeline := ingest.NewPipeline(st, natsClient, logger, metrics)
	input := ingest.NewInput(mqttClient, pipeline, logger, metrics)
	dispatcher := dispatch.NewDispatcher(st, mqttClient, natsClient, logger, metrics)

	wsOutput := websocket.NewOutput(cfg.Websocket.Port, cfg.Websocket.Path, natsClient, logger, metrics)

	gw := httpgateway.NewGateway(cfg.HTTP.Port, st, pipeline, dispatcher, logger)
	gw.SetCORSOrigins(cfg.HTTP.CORSOrigins)

	monitor := health.NewMonitor()
	gw.SetHealthMonitor(monitor)
	checker := health.NewChecker(monitor, metrics, logger, cfg.Health.CheckInterval)
	checker.RegisterConnection("mqtt", mqttClient)
	checker.RegisterConnection("nats", natsClient)

	manager := service.NewManager(logger)
	// Fan-out starts before ingestion so early readings reach
	// subscribers.
	manager.Register(wsOutput)
	manager.Register(input)
	manager.Register(gw)
	manager.Register(checker)

	return manager
}

// runWithSignalHandling starts components and waits for shutdown signals
func runWithSignalHandling(ctx context.Context, manager *service.Manager, shutdownTimeout time.Duration) error {
	signalCtx, signalCancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	if err := manager.StartAll(signalCtx); err != nil {
		return fmt.Errorf("start components: %w", err)
	}
	slog.Info("hvacstream started", "components", manager.Components())

	<-signalCtx.Done()
	slog.Info("received shutdown signal")

	manager.SetStopTimeout(shutdownTimeout)
	if err := manager.StopAll(); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	slog.Info("hvacstream shutdown complete")
	return nil
}
