package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rithik-0617/HVAC-Project/hvac"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		topic    string
		wantKind Kind
		wantZone string
	}{
		{"zone reading", "sensor/livingroom/reading", KindZoneReading, "livingroom"},
		{"zone reading with empty segment", "sensor//reading", KindZoneReading, ""},
		{"combined", "hvac/data", KindCombined, ""},
		{"raw aqi", "sensor/aqi", KindRawAQI, ""},
		{"extra segment is not a zone reading", "sensor/a/b/reading", KindUnknown, ""},
		{"missing suffix", "sensor/livingroom", KindUnknown, ""},
		{"command topic is not consumed", "hvac/command/kitchen", KindUnknown, ""},
		{"empty topic", "", KindUnknown, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, zone := Classify(tt.topic)
			assert.Equal(t, tt.wantKind, kind)
			assert.Equal(t, tt.wantZone, zone)
		})
	}
}

func TestNormalize_ZoneReading(t *testing.T) {
	reading, ok := Normalize("sensor/livingroom/reading", []byte(`{"temperature":72,"humidity":40}`))
	require.True(t, ok)

	assert.Equal(t, "livingroom", reading.Zone)
	require.NotNil(t, reading.Temperature)
	assert.Equal(t, 72.0, *reading.Temperature)
	require.NotNil(t, reading.Humidity)
	assert.Equal(t, 40.0, *reading.Humidity)
	assert.Nil(t, reading.AQI)
}

func TestNormalize_ZoneReading_EmptySegmentDefaults(t *testing.T) {
	reading, ok := Normalize("sensor//reading", []byte(`{"temperature":20.5}`))
	require.True(t, ok)
	assert.Equal(t, hvac.DefaultZone, reading.Zone)
}

func TestNormalize_ZoneReading_AllFieldsAbsent(t *testing.T) {
	// An empty object is a valid presence signal: zone populated, all
	// measurements nil.
	reading, ok := Normalize("sensor/attic/reading", []byte(`{}`))
	require.True(t, ok)
	assert.Equal(t, "attic", reading.Zone)
	assert.Nil(t, reading.Temperature)
	assert.Nil(t, reading.Humidity)
	assert.Nil(t, reading.AQI)
}

func TestNormalize_Combined(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		wantZone string
	}{
		{"zone from payload", `{"zone":"kitchen","temperature":68,"humidity":55,"aqi":12}`, "kitchen"},
		{"zone absent defaults", `{"temperature":68}`, hvac.DefaultZone},
		{"zone empty defaults", `{"zone":"","humidity":33}`, hvac.DefaultZone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reading, ok := Normalize(TopicCombined, []byte(tt.payload))
			require.True(t, ok)
			assert.Equal(t, tt.wantZone, reading.Zone)
		})
	}
}

func TestNormalize_RawAQI(t *testing.T) {
	reading, ok := Normalize(TopicRawAQI, []byte("123"))
	require.True(t, ok)

	assert.Equal(t, hvac.DefaultZone, reading.Zone)
	assert.Nil(t, reading.Temperature)
	assert.Nil(t, reading.Humidity)
	require.NotNil(t, reading.AQI)
	assert.Equal(t, 123, *reading.AQI)
}

func TestNormalize_RawAQI_Whitespace(t *testing.T) {
	reading, ok := Normalize(TopicRawAQI, []byte(" 42\n"))
	require.True(t, ok)
	require.NotNil(t, reading.AQI)
	assert.Equal(t, 42, *reading.AQI)
}

func TestNormalize_RawAQI_NonNumericDropsMessage(t *testing.T) {
	// Policy: a non-numeric raw AQI payload drops the message. No sentinel
	// value is inserted.
	for _, payload := range []string{"", "abc", "12abc", "4.5", "{\"aqi\":5}"} {
		_, ok := Normalize(TopicRawAQI, []byte(payload))
		assert.False(t, ok, "payload %q should be dropped", payload)
	}
}

func TestNormalize_MalformedJSONDropped(t *testing.T) {
	tests := []struct {
		name    string
		topic   string
		payload string
	}{
		{"truncated object", "sensor/livingroom/reading", `{"temperature":`},
		{"bare number on structured topic", "sensor/livingroom/reading", `123`},
		{"json null", "sensor/livingroom/reading", `null`},
		{"array payload", TopicCombined, `[1,2,3]`},
		{"empty payload", TopicCombined, ``},
		{"plain text", TopicCombined, `hello`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := Normalize(tt.topic, []byte(tt.payload))
			assert.False(t, ok)
		})
	}
}

func TestNormalize_UnknownTopicDropped(t *testing.T) {
	_, ok := Normalize("some/other/topic", []byte(`{"temperature":70}`))
	assert.False(t, ok)
}
