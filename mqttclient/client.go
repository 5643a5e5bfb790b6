// Package mqttclient provides a client for managing the MQTT broker
// connection used by the device-facing side of the service. It wraps the
// paho client with explicit connection status tracking, functional
// options, and context-aware publish/subscribe, so the rest of the
// pipeline never touches the paho API directly.
package mqttclient

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/Rithik-0617/HVAC-Project/errors"
)

// ConnectionStatus represents the state of the MQTT connection
type ConnectionStatus int

// Possible connection statuses
const (
	StatusDisconnected ConnectionStatus = iota
	StatusConnecting
	StatusConnected
	StatusReconnecting
)

// String returns the string representation of ConnectionStatus
func (s ConnectionStatus) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// Error messages
var (
	ErrNotConnected      = stderrors.New("not connected to MQTT broker")
	ErrConnectionTimeout = stderrors.New("connection timeout")
)

// MessageHandler receives an inbound bus message. Handlers run on paho's
// delivery goroutine; they must not block for long.
type MessageHandler func(topic string, payload []byte)

// Client manages the MQTT broker connection. Application messages are
// published at QoS 0 with no retry: delivery to the broker is at-most-once
// per call, matching the pipeline's no-replay semantics.
type Client struct {
	url    string
	status atomic.Value // stores ConnectionStatus
	logger Logger

	conn mqtt.Client

	// Connection options
	clientID       string
	username       string
	password       string
	connectTimeout time.Duration
	reconnectWait  time.Duration
	keepAlive      time.Duration

	// Callbacks
	onConnect    func()
	onDisconnect func(error)

	// Subscriptions replayed on reconnect
	subs   map[string]MessageHandler
	subsMu sync.RWMutex

	mu     sync.RWMutex
	closed atomic.Bool

	// Counters
	published atomic.Uint64
	received  atomic.Uint64
}

// NewClient creates a new MQTT client with optional configuration
func NewClient(url string, opts ...ClientOption) (*Client, error) {
	c := &Client{
		url:    url,
		logger: &defaultLogger{},
		// Sensible defaults
		clientID:       fmt.Sprintf("hvac-%d", time.Now().UnixNano()),
		connectTimeout: 5 * time.Second,
		reconnectWait:  2 * time.Second,
		keepAlive:      30 * time.Second,
		subs:           make(map[string]MessageHandler),
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, errors.WrapValidation(err, "Client", "NewClient", "apply option")
		}
	}

	c.status.Store(StatusDisconnected)
	c.logger.Debugf("Created MQTT client for %s", url)

	return c, nil
}

// URL returns the broker URL
func (c *Client) URL() string {
	return c.url
}

// Status returns the current connection status
func (c *Client) Status() ConnectionStatus {
	val := c.status.Load()
	if val == nil {
		return StatusDisconnected
	}
	return val.(ConnectionStatus)
}

// IsHealthy returns true if the connection is established
func (c *Client) IsHealthy() bool {
	return c.Status() == StatusConnected
}

func (c *Client) setStatus(status ConnectionStatus) {
	c.status.Store(status)
}

// Connect establishes the broker connection and resubscribes any handlers
// registered before the connection came up. Paho's auto-reconnect is
// enabled; resubscription on reconnect happens in the OnConnect handler.
func (c *Client) Connect(ctx context.Context) error {
	c.setStatus(StatusConnecting)
	c.logger.Printf("Connecting to MQTT broker at %s", c.url)

	opts := mqtt.NewClientOptions().
		AddBroker(c.url).
		SetClientID(c.clientID).
		SetConnectTimeout(c.connectTimeout).
		SetKeepAlive(c.keepAlive).
		SetAutoReconnect(true).
		SetMaxReconnectInterval(c.reconnectWait).
		SetOrderMatters(false)

	if c.username != "" {
		opts.SetUsername(c.username)
		opts.SetPassword(c.password)
	}

	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		c.setStatus(StatusConnected)
		c.resubscribe()
		c.mu.RLock()
		onConnect := c.onConnect
		c.mu.RUnlock()
		if onConnect != nil {
			go onConnect()
		}
	})

	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		c.setStatus(StatusReconnecting)
		c.logger.Errorf("MQTT connection lost: %v", err)
		c.mu.RLock()
		onDisconnect := c.onDisconnect
		c.mu.RUnlock()
		if onDisconnect != nil {
			go onDisconnect(err)
		}
	})

	conn := mqtt.NewClient(opts)

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	token := conn.Connect()
	if err := waitToken(ctx, token, c.connectTimeout); err != nil {
		c.setStatus(StatusDisconnected)
		return errors.WrapPublish(err, "Client", "Connect", "establish connection")
	}

	c.setStatus(StatusConnected)
	c.logger.Printf("Successfully connected to MQTT broker at %s", c.url)
	return nil
}

// Publish publishes a message at QoS 0. No retry is attempted; a failed
// publish is reported once and forgotten.
func (c *Client) Publish(ctx context.Context, topic string, payload []byte) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil || !conn.IsConnected() {
		return ErrNotConnected
	}

	token := conn.Publish(topic, 0, false, payload)
	if err := waitToken(ctx, token, c.connectTimeout); err != nil {
		return errors.WrapPublish(err, "Client", "Publish",
			fmt.Sprintf("publish to %s", topic))
	}

	c.published.Add(1)
	return nil
}

// Subscribe registers a handler for a topic filter. The subscription is
// replayed automatically on reconnect. Subscribing before Connect is
// allowed; the handler attaches once the connection comes up.
func (c *Client) Subscribe(topic string, handler MessageHandler) error {
	c.subsMu.Lock()
	c.subs[topic] = handler
	c.subsMu.Unlock()

	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil || !conn.IsConnected() {
		// Attached in resubscribe() once connected.
		return nil
	}

	return c.attach(conn, topic, handler)
}

func (c *Client) attach(conn mqtt.Client, topic string, handler MessageHandler) error {
	token := conn.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		c.received.Add(1)
		handler(msg.Topic(), msg.Payload())
	})
	if !token.WaitTimeout(c.connectTimeout) {
		return errors.WrapPublish(ErrConnectionTimeout, "Client", "Subscribe",
			fmt.Sprintf("subscribe to %s", topic))
	}
	if err := token.Error(); err != nil {
		return errors.WrapPublish(err, "Client", "Subscribe",
			fmt.Sprintf("subscribe to %s", topic))
	}
	return nil
}

// resubscribe reattaches all registered handlers after (re)connect.
func (c *Client) resubscribe() {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil {
		return
	}

	c.subsMu.RLock()
	defer c.subsMu.RUnlock()
	for topic, handler := range c.subs {
		if err := c.attach(conn, topic, handler); err != nil {
			c.logger.Errorf("Failed to resubscribe to %s: %v", topic, err)
		}
	}
}

// Close disconnects from the broker. Safe to call more than once.
func (c *Client) Close() {
	if c.closed.Swap(true) {
		return
	}

	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn != nil && conn.IsConnected() {
		conn.Disconnect(uint(c.connectTimeout.Milliseconds()))
	}
	c.setStatus(StatusDisconnected)
}

// Published returns the count of successfully published messages
func (c *Client) Published() uint64 {
	return c.published.Load()
}

// Received returns the count of delivered inbound messages
func (c *Client) Received() uint64 {
	return c.received.Load()
}

// waitToken waits for a paho token honoring context cancellation.
func waitToken(ctx context.Context, token mqtt.Token, timeout time.Duration) error {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	select {
	case <-token.Done():
		return token.Error()
	case <-deadline.C:
		return ErrConnectionTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}
