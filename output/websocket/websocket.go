// Package websocket provides a WebSocket server that broadcasts internal
// fan-out events to connected live views.
package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Rithik-0617/HVAC-Project/errors"
	"github.com/Rithik-0617/HVAC-Project/hvac"
	"github.com/Rithik-0617/HVAC-Project/metric"
	"github.com/Rithik-0617/HVAC-Project/natsclient"
)

// Envelope wraps every frame sent to clients with the backbone subject
// it originated from. Delivery is at-most-once: a frame that cannot be
// written to a client is dropped for that client, never retried.
type Envelope struct {
	Subject   string          `json:"subject"`
	Timestamp int64           `json:"ts"`
	Payload   json.RawMessage `json:"payload"`
}

// clientInfo holds per-connection state
type clientInfo struct {
	conn        *websocket.Conn
	connectedAt time.Time
	lastPing    atomic.Value // stores time.Time
	closed      atomic.Bool
	closeOnce   sync.Once
	writeMutex  sync.Mutex // gorilla/websocket panics on concurrent writes
}

// Output is a WebSocket server that subscribes to the event backbone and
// broadcasts every event to all connected clients.
type Output struct {
	port     int
	path     string
	subjects []string

	natsClient *natsclient.Client
	logger     *slog.Logger
	metrics    *metric.Metrics

	server    *http.Server
	upgrader  websocket.Upgrader
	clients   map[*websocket.Conn]*clientInfo
	clientsMu sync.RWMutex

	shutdown    chan struct{}
	running     bool
	mu          sync.RWMutex
	lifecycleMu sync.Mutex
	wg          *sync.WaitGroup
}

// NewOutput creates a WebSocket output. A nil natsClient skips the
// backbone subscription, which is useful in tests.
func NewOutput(port int, path string, natsClient *natsclient.Client, logger *slog.Logger, metrics *metric.Metrics) *Output {
	if path == "" {
		path = "/ws"
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Output{
		port:       port,
		path:       path,
		subjects:   []string{hvac.SubjectEventAll},
		natsClient: natsClient,
		logger:     logger.With("component", "websocket-output"),
		metrics:    metrics,
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(_ *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		clients: make(map[*websocket.Conn]*clientInfo),
	}
}

// Name returns the component name
func (w *Output) Name() string {
	return "websocket-output"
}

// ClientCount returns the number of connected clients
func (w *Output) ClientCount() int {
	w.clientsMu.RLock()
	defer w.clientsMu.RUnlock()
	return len(w.clients)
}

// Initialize validates the configuration
func (w *Output) Initialize() error {
	if w.port < 1024 || w.port > 65535 {
		return errors.WrapValidation(
			fmt.Errorf("invalid port %d (out of range 1024-65535)", w.port),
			"Output", "Initialize", "validate port")
	}
	if w.path == "" {
		return errors.WrapValidation(
			fmt.Errorf("path cannot be empty"),
			"Output", "Initialize", "validate path")
	}
	return nil
}

// Start begins the WebSocket server and the backbone subscription
func (w *Output) Start(ctx context.Context) error {
	w.lifecycleMu.Lock()
	defer w.lifecycleMu.Unlock()

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	w.shutdown = make(chan struct{})

	mux := http.NewServeMux()
	mux.HandleFunc(w.path, w.handleWebSocket)
	w.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", w.port),
		Handler: mux,
	}

	if err := w.subscribe(ctx); err != nil {
		close(w.shutdown)
		w.shutdown = nil
		w.server = nil
		return errors.Wrap(err, "Output", "Start", "subscribe to backbone")
	}

	w.running = true
	w.wg = &sync.WaitGroup{}
	w.wg.Add(2)
	go w.runServer()
	go w.maintainClients(ctx)

	w.logger.Info("websocket server starting", "port", w.port, "path", w.path)
	return nil
}

// Stop gracefully stops the server and closes all connections
func (w *Output) Stop(timeout time.Duration) error {
	w.lifecycleMu.Lock()
	defer w.lifecycleMu.Unlock()

	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	close(w.shutdown)
	wg := w.wg
	server := w.server
	w.mu.Unlock()

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			w.logger.Warn("websocket server shutdown error", "error", err)
		}
	}

	if wg != nil {
		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(timeout):
			w.logger.Warn("websocket goroutines did not exit within timeout")
		}
	}

	w.closeAllClients()

	w.mu.Lock()
	w.server = nil
	w.shutdown = nil
	w.wg = nil
	w.mu.Unlock()

	return nil
}

func (w *Output) subscribe(ctx context.Context) error {
	if w.natsClient == nil {
		return nil
	}

	for _, subject := range w.subjects {
		err := w.natsClient.Subscribe(ctx, subject, func(msgCtx context.Context, msgSubject string, data []byte) {
			w.handleEvent(msgCtx, msgSubject, data)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// handleEvent broadcasts a backbone event to all connected clients
func (w *Output) handleEvent(ctx context.Context, subject string, data []byte) {
	select {
	case <-ctx.Done():
		return
	case <-w.shutdown:
		return
	default:
	}

	w.mu.RLock()
	running := w.running
	w.mu.RUnlock()
	if !running {
		return
	}

	envelope, err := json.Marshal(Envelope{
		Subject:   subject,
		Timestamp: time.Now().UnixMilli(),
		Payload:   data,
	})
	if err != nil {
		w.recordError("envelope_marshal")
		return
	}

	w.broadcast(envelope)
}

// broadcast sends a frame to every connected client concurrently
func (w *Output) broadcast(frame []byte) {
	w.clientsMu.RLock()
	snapshot := make([]*clientInfo, 0, len(w.clients))
	for _, info := range w.clients {
		if !info.closed.Load() {
			snapshot = append(snapshot, info)
		}
	}
	w.clientsMu.RUnlock()

	var wg sync.WaitGroup
	for _, info := range snapshot {
		info := info
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := w.writeToClient(info, frame); err != nil {
				w.removeClient(info)
				w.recordError("client_send")
			}
		}()
	}
	wg.Wait()
}

func (w *Output) writeToClient(info *clientInfo, frame []byte) error {
	info.writeMutex.Lock()
	defer info.writeMutex.Unlock()

	_ = info.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return info.conn.WriteMessage(websocket.TextMessage, frame)
}

// handleWebSocket upgrades an HTTP request to a client connection
func (w *Output) handleWebSocket(wr http.ResponseWriter, r *http.Request) {
	conn, err := w.upgrader.Upgrade(wr, r, nil)
	if err != nil {
		w.recordError("connection_upgrade")
		return
	}

	info := &clientInfo{
		conn:        conn,
		connectedAt: time.Now(),
	}
	info.lastPing.Store(time.Now())

	w.clientsMu.Lock()
	w.clients[conn] = info
	count := len(w.clients)
	w.clientsMu.Unlock()

	if w.metrics != nil {
		w.metrics.SetWebsocketClients(count)
	}
	w.logger.Debug("websocket client connected", "remote", r.RemoteAddr, "clients", count)

	w.mu.RLock()
	wg := w.wg
	w.mu.RUnlock()
	if wg != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.readLoop(info)
		}()
	} else {
		go w.readLoop(info)
	}
}

// readLoop consumes control frames from a client. Live views never send
// application data; the loop exists to service pongs and detect closes.
func (w *Output) readLoop(info *clientInfo) {
	defer w.removeClient(info)

	info.conn.SetPongHandler(func(string) error {
		info.lastPing.Store(time.Now())
		return nil
	})

	for {
		select {
		case <-w.shutdown:
			return
		default:
		}

		_ = info.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		if _, _, err := info.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// removeClient evicts a client connection, at most once
func (w *Output) removeClient(info *clientInfo) {
	info.closeOnce.Do(func() {
		info.closed.Store(true)

		w.clientsMu.Lock()
		delete(w.clients, info.conn)
		count := len(w.clients)
		w.clientsMu.Unlock()

		if w.metrics != nil {
			w.metrics.SetWebsocketClients(count)
		}

		_ = info.conn.Close()
	})
}

func (w *Output) closeAllClients() {
	w.clientsMu.Lock()
	infos := make([]*clientInfo, 0, len(w.clients))
	for _, info := range w.clients {
		infos = append(infos, info)
	}
	w.clientsMu.Unlock()

	for _, info := range infos {
		w.removeClient(info)
	}

	if w.metrics != nil {
		w.metrics.SetWebsocketClients(0)
	}
}

func (w *Output) runServer() {
	defer w.wg.Done()

	w.mu.RLock()
	server := w.server
	w.mu.RUnlock()
	if server == nil {
		return
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		w.logger.Error("websocket server failed", "error", err)
		w.recordError("server")
	}
}

// maintainClients pings clients periodically and evicts dead ones
func (w *Output) maintainClients(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case <-ticker.C:
			w.pingClients()
		}
	}
}

func (w *Output) pingClients() {
	w.clientsMu.RLock()
	snapshot := make([]*clientInfo, 0, len(w.clients))
	for _, info := range w.clients {
		if !info.closed.Load() {
			snapshot = append(snapshot, info)
		}
	}
	w.clientsMu.RUnlock()

	for _, info := range snapshot {
		info.writeMutex.Lock()
		err := info.conn.WriteMessage(websocket.PingMessage, nil)
		info.writeMutex.Unlock()
		if err != nil {
			w.removeClient(info)
		}
	}
}

func (w *Output) recordError(errorType string) {
	if w.metrics != nil {
		w.metrics.RecordError("websocket", errorType)
	}
}
