package mqttclient

import (
	"fmt"
	"log"
	"time"
)

// Logger interface for client logging
type Logger interface {
	Printf(format string, v ...interface{})
	Errorf(format string, v ...interface{})
	Debugf(format string, v ...interface{})
}

// defaultLogger implements Logger using the standard log package
type defaultLogger struct{}

func (l *defaultLogger) Printf(format string, v ...interface{}) {
	log.Printf("[MQTT] "+format, v...)
}

func (l *defaultLogger) Errorf(format string, v ...interface{}) {
	log.Printf("[MQTT ERROR] "+format, v...)
}

func (l *defaultLogger) Debugf(format string, v ...interface{}) {
	// Debug logging disabled by default
}

// ClientOption is a function that configures a Client
type ClientOption func(*Client) error

// WithLogger sets a custom logger for the client
func WithLogger(logger Logger) ClientOption {
	return func(c *Client) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		c.logger = logger
		return nil
	}
}

// WithClientID sets the MQTT client identifier
func WithClientID(id string) ClientOption {
	return func(c *Client) error {
		if id == "" {
			return fmt.Errorf("client ID cannot be empty")
		}
		c.clientID = id
		return nil
	}
}

// WithCredentials sets the username and password for broker authentication
func WithCredentials(username, password string) ClientOption {
	return func(c *Client) error {
		c.username = username
		c.password = password
		return nil
	}
}

// WithConnectTimeout sets the connection timeout
func WithConnectTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) error {
		if timeout <= 0 {
			return fmt.Errorf("connect timeout must be positive")
		}
		c.connectTimeout = timeout
		return nil
	}
}

// WithReconnectWait sets the maximum wait between reconnection attempts
func WithReconnectWait(wait time.Duration) ClientOption {
	return func(c *Client) error {
		if wait <= 0 {
			return fmt.Errorf("reconnect wait must be positive")
		}
		c.reconnectWait = wait
		return nil
	}
}

// WithKeepAlive sets the MQTT keep-alive interval
func WithKeepAlive(interval time.Duration) ClientOption {
	return func(c *Client) error {
		if interval <= 0 {
			return fmt.Errorf("keep-alive interval must be positive")
		}
		c.keepAlive = interval
		return nil
	}
}

// WithConnectHandler sets a callback invoked after each successful connect
func WithConnectHandler(handler func()) ClientOption {
	return func(c *Client) error {
		c.onConnect = handler
		return nil
	}
}

// WithDisconnectHandler sets a callback invoked when the connection drops
func WithDisconnectHandler(handler func(error)) ClientOption {
	return func(c *Client) error {
		c.onDisconnect = handler
		return nil
	}
}
