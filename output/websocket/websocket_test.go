package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rithik-0617/HVAC-Project/hvac"
)

func TestInitializeValidation(t *testing.T) {
	tests := []struct {
		name    string
		port    int
		wantErr bool
	}{
		{"valid port", 8081, false},
		{"privileged port", 80, true},
		{"port too high", 70000, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := NewOutput(tt.port, "/ws", nil, nil, nil)
			err := o.Initialize()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDefaultPath(t *testing.T) {
	o := NewOutput(8081, "", nil, nil, nil)
	assert.Equal(t, "/ws", o.path)
	assert.Equal(t, []string{hvac.SubjectEventAll}, o.subjects)
}

// dialTestClient connects a websocket client to an Output running behind
// an httptest server.
func dialTestClient(t *testing.T, o *Output) (*websocket.Conn, func()) {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", o.handleWebSocket)
	srv := httptest.NewServer(mux)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	return conn, func() {
		conn.Close()
		srv.Close()
	}
}

func TestBroadcastReachesClient(t *testing.T) {
	o := NewOutput(8081, "/ws", nil, nil, nil)
	o.shutdown = make(chan struct{})
	o.running = true

	conn, cleanup := dialTestClient(t, o)
	defer cleanup()

	// Wait for the connection to register.
	require.Eventually(t, func() bool { return o.ClientCount() == 1 },
		time.Second, 10*time.Millisecond)

	payload := []byte(`{"zone":"kitchen","temperature":71.5,"humidity":null,"aqi":null,"ts":"2026-03-01T12:00:00Z"}`)
	o.handleEvent(context.Background(), hvac.SubjectEventReading, payload)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, frame, err := conn.ReadMessage()
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(frame, &env))
	assert.Equal(t, hvac.SubjectEventReading, env.Subject)
	assert.JSONEq(t, string(payload), string(env.Payload))
	assert.NotZero(t, env.Timestamp)
}

func TestBroadcastSkippedWhenNotRunning(t *testing.T) {
	o := NewOutput(8081, "/ws", nil, nil, nil)
	o.shutdown = make(chan struct{})

	conn, cleanup := dialTestClient(t, o)
	defer cleanup()

	require.Eventually(t, func() bool { return o.ClientCount() == 1 },
		time.Second, 10*time.Millisecond)

	o.handleEvent(context.Background(), hvac.SubjectEventReading, []byte(`{}`))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

func TestClientDisconnectEvicted(t *testing.T) {
	o := NewOutput(8081, "/ws", nil, nil, nil)
	o.shutdown = make(chan struct{})
	o.running = true

	conn, cleanup := dialTestClient(t, o)

	require.Eventually(t, func() bool { return o.ClientCount() == 1 },
		time.Second, 10*time.Millisecond)

	conn.Close()
	cleanup()

	require.Eventually(t, func() bool { return o.ClientCount() == 0 },
		2*time.Second, 10*time.Millisecond)
}
