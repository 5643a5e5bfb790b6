// Package hvac defines the canonical record model shared by the ingestion
// pipeline, the command dispatcher, and the state store: readings, targets,
// control log entries, and schedules, all partitioned by zone.
package hvac

import (
	"encoding/json"
	"time"
)

// DefaultZone is used when an inbound message or request does not name a zone.
const DefaultZone = "default"

// Reading is the normalized, topic-shape-independent measurement record.
// Zone is always populated. Each measurement is optional; a Reading with
// all three nil is a valid presence/heartbeat signal. Readings are
// immutable once persisted.
type Reading struct {
	Zone        string    `json:"zone"`
	Temperature *float64  `json:"temperature"`
	Humidity    *float64  `json:"humidity"`
	AQI         *int      `json:"aqi"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}

// Target is the desired temperature for a zone. At most one Target exists
// per zone; writes are an upsert keyed by zone.
type Target struct {
	Zone       string    `json:"zone"`
	TargetTemp float64   `json:"target_temp"`
	UpdatedAt  time.Time `json:"updated_at,omitempty"`
}

// ControlLogEntry is the append-only audit record of a dispatched command.
// One entry is written per accepted dispatch call, after the bus publish
// has been confirmed.
type ControlLogEntry struct {
	Zone      string          `json:"zone"`
	Command   json.RawMessage `json:"command"`
	CreatedAt time.Time       `json:"created_at,omitempty"`
}

// Schedule is a stored target-change schedule. The core only lists and
// creates schedules; trigger execution is out of scope.
type Schedule struct {
	ID         string  `json:"id,omitempty"`
	Zone       string  `json:"zone"`
	CronTime   string  `json:"cron_time"`
	Days       string  `json:"days"`
	TargetTemp float64 `json:"target_temp"`
	Enabled    bool    `json:"enabled"`
}

// SetTargetCommand is the command published to devices when an operator
// sets a zone target.
type SetTargetCommand struct {
	Cmd        string  `json:"cmd"`
	TargetTemp float64 `json:"target_temp"`
	Zone       string  `json:"zone"`
}

// NewSetTargetCommand builds the canonical set_target command for a zone.
func NewSetTargetCommand(zone string, targetTemp float64) SetTargetCommand {
	return SetTargetCommand{
		Cmd:        "set_target",
		TargetTemp: targetTemp,
		Zone:       zone,
	}
}

// ZoneOrDefault returns zone, or DefaultZone when zone is empty.
func ZoneOrDefault(zone string) string {
	if zone == "" {
		return DefaultZone
	}
	return zone
}

// Float64Ptr returns a pointer to v. Convenience for building readings
// with optional measurements.
func Float64Ptr(v float64) *float64 { return &v }

// IntPtr returns a pointer to v.
func IntPtr(v int) *int { return &v }
