// Package normalize maps message-bus topics and raw payload bytes into
// canonical readings. Each supported wire shape is a distinct topic kind
// resolved by explicit pattern matching on the topic structure; the
// kind-to-reading mapping functions are pure and never let a malformed
// payload escape as a panic or error.
package normalize

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/Rithik-0617/HVAC-Project/hvac"
)

// Bus topics consumed by the ingestion input. TopicZoneReadingFilter uses
// the single-segment wildcard so one subscription covers every zone.
const (
	TopicZoneReadingFilter = "sensor/+/reading"
	TopicCombined          = "hvac/data"
	TopicRawAQI            = "sensor/aqi"
)

// Kind identifies which wire shape a topic matched.
type Kind int

const (
	// KindUnknown is any topic outside the supported set; the message is dropped.
	KindUnknown Kind = iota
	// KindZoneReading matches sensor/{zone}/reading with a JSON object payload.
	KindZoneReading
	// KindCombined matches hvac/data with a JSON object payload carrying its own zone.
	KindCombined
	// KindRawAQI matches sensor/aqi with a bare decimal integer payload.
	KindRawAQI
)

// String returns the metric label for a topic kind.
func (k Kind) String() string {
	switch k {
	case KindZoneReading:
		return "zone_reading"
	case KindCombined:
		return "combined"
	case KindRawAQI:
		return "raw_aqi"
	default:
		return "unknown"
	}
}

// Classify resolves a topic name to its kind. For KindZoneReading the
// captured zone segment is also returned (empty when the segment between
// the fixed literals is empty). Precedence follows the matching order of
// the ingestion rules: the zone-reading pattern is checked first, then the
// fixed-name topics.
func Classify(topic string) (Kind, string) {
	if zone, ok := zoneReadingSegment(topic); ok {
		return KindZoneReading, zone
	}
	switch topic {
	case TopicCombined:
		return KindCombined, ""
	case TopicRawAQI:
		return KindRawAQI, ""
	}
	return KindUnknown, ""
}

// zoneReadingSegment extracts the zone from sensor/{zone}/reading topics.
// Exactly one path segment is allowed between the fixed literals.
func zoneReadingSegment(topic string) (string, bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[0] != "sensor" || parts[2] != "reading" {
		return "", false
	}
	return parts[1], true
}

// measurementPayload is the JSON object shape shared by the zone-reading
// and combined topics. Absent fields stay nil.
type measurementPayload struct {
	Zone        string   `json:"zone"`
	Temperature *float64 `json:"temperature"`
	Humidity    *float64 `json:"humidity"`
	AQI         *int     `json:"aqi"`
}

// Normalize maps a topic name plus raw payload bytes into a canonical
// Reading. The second return is false when the message does not produce a
// Reading: unrecognized topic, malformed JSON on a structured topic, or a
// non-numeric raw AQI payload. All of those are drops, never errors.
func Normalize(topic string, payload []byte) (hvac.Reading, bool) {
	kind, zone := Classify(topic)
	switch kind {
	case KindZoneReading:
		return fromObject(hvac.ZoneOrDefault(zone), payload, false)
	case KindCombined:
		return fromObject("", payload, true)
	case KindRawAQI:
		return fromRawAQI(payload)
	default:
		return hvac.Reading{}, false
	}
}

// fromObject parses a structured object payload. When zoneFromPayload is
// set, the zone comes from the object's zone field (defaulting when
// absent); otherwise the caller supplies it from the topic.
func fromObject(zone string, payload []byte, zoneFromPayload bool) (hvac.Reading, bool) {
	// A JSON null unmarshals into the struct without error but is not a
	// structured object; treat it as a drop like any other malformed payload.
	trimmed := strings.TrimSpace(string(payload))
	if trimmed == "" || trimmed == "null" {
		return hvac.Reading{}, false
	}
	var m measurementPayload
	if err := json.Unmarshal(payload, &m); err != nil {
		return hvac.Reading{}, false
	}
	if zoneFromPayload {
		zone = hvac.ZoneOrDefault(m.Zone)
	}
	return hvac.Reading{
		Zone:        zone,
		Temperature: m.Temperature,
		Humidity:    m.Humidity,
		AQI:         m.AQI,
	}, true
}

// fromRawAQI parses the legacy single-value topic: the payload is a bare
// decimal integer for the default zone. Anything that does not parse as an
// integer drops the message; no sentinel value is ever stored.
func fromRawAQI(payload []byte) (hvac.Reading, bool) {
	aqi, err := strconv.Atoi(strings.TrimSpace(string(payload)))
	if err != nil {
		return hvac.Reading{}, false
	}
	return hvac.Reading{
		Zone: hvac.DefaultZone,
		AQI:  &aqi,
	}, true
}
