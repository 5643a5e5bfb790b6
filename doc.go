// Package hvacstream ingests HVAC sensor telemetry from an MQTT device
// bus, normalizes it into canonical readings, persists it, fans it out
// to realtime websocket subscribers, and dispatches operator commands
// back to the devices with an audit trail.
//
// # Architecture
//
// Telemetry flows one way, commands flow the other:
//
//	┌─────────────┐   sensor/+/reading    ┌──────────────┐
//	│ MQTT broker │──── hvac/data ───────▶│ ingest.Input │
//	│ (devices)   │     sensor/aqi        └──────┬───────┘
//	└─────▲───────┘                              │ normalize
//	      │ hvac/command/{zone}                  ▼
//	      │                              ┌────────────────┐
//	┌─────┴──────────┐                   │ ingest.Pipeline│
//	│ dispatch.      │                   └──────┬─────────┘
//	│ Dispatcher     │                 persist  │  broadcast
//	└─────▲──────────┘                          ▼
//	      │                     ┌───────────┐  ┌─────────────────┐
//	┌─────┴──────────┐          │ JetStream │  │ NATS event.>    │
//	│ HTTP gateway   │          │ store     │  │ websocket fanout│
//	│ (operator API) │          └───────────┘  └─────────────────┘
//	└────────────────┘
//
// The MQTT broker is the device-facing bus. NATS core subjects carry
// internal events to the websocket output, and JetStream streams and KV
// buckets hold readings, targets, control logs, and schedules.
//
// # Packages
//
//   - normalize: topic classification and payload normalization
//   - ingest: the persist-then-broadcast pipeline and its MQTT input
//   - dispatch: operator command dispatch with ordering guarantees
//   - store: the Store interface with memory and JetStream backends
//   - gateway/http: the operator REST API
//   - output/websocket: realtime event fan-out
//   - mqttclient, natsclient: broker connection management
//   - config, health, metric, service, errors: ambient infrastructure
//
// The cmd/hvacstream binary wires everything together.
package hvacstream
