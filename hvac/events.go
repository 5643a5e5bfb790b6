package hvac

import (
	"encoding/json"
	"time"
)

// Internal NATS subjects carrying live-view events. The WebSocket output
// subscribes to SubjectEventAll and relays everything it receives.
const (
	SubjectEventReading = "event.reading"
	SubjectEventTarget  = "event.target"
	SubjectEventControl = "event.control"
	SubjectEventAll     = "event.>"
)

// ReadingEvent is broadcast to live views after a Reading has been
// persisted. Timestamp is the store-assigned created_at of the persisted
// record, so live views and queries agree on when a reading happened.
type ReadingEvent struct {
	Zone        string    `json:"zone"`
	Temperature *float64  `json:"temperature"`
	Humidity    *float64  `json:"humidity"`
	AQI         *int      `json:"aqi"`
	Timestamp   time.Time `json:"ts"`
}

// ReadingEventFrom builds the live-view event for a persisted reading.
func ReadingEventFrom(r Reading) ReadingEvent {
	return ReadingEvent{
		Zone:        r.Zone,
		Temperature: r.Temperature,
		Humidity:    r.Humidity,
		AQI:         r.AQI,
		Timestamp:   r.CreatedAt,
	}
}

// TargetEvent is broadcast to live views after a Target upsert.
type TargetEvent struct {
	Zone       string  `json:"zone"`
	TargetTemp float64 `json:"target_temp"`
}

// ControlEvent is broadcast to live views after a control command has been
// published and logged.
type ControlEvent struct {
	Zone      string          `json:"zone"`
	Command   json.RawMessage `json:"command"`
	Timestamp time.Time       `json:"ts"`
}
