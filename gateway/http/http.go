// Package http provides the operator-facing HTTP API gateway.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/Rithik-0617/HVAC-Project/dispatch"
	"github.com/Rithik-0617/HVAC-Project/errors"
	"github.com/Rithik-0617/HVAC-Project/health"
	"github.com/Rithik-0617/HVAC-Project/hvac"
	"github.com/Rithik-0617/HVAC-Project/ingest"
	"github.com/Rithik-0617/HVAC-Project/store"
)

const maxRequestSize = 1 << 20 // 1 MiB

// Gateway serves the operator API: health, latest readings, reading
// submission, targets, control commands, and schedules.
type Gateway struct {
	port       int
	store      store.Store
	pipeline   *ingest.Pipeline
	dispatcher *dispatch.Dispatcher
	logger     *slog.Logger

	corsOrigins []string
	health      *health.Monitor

	server  *http.Server
	running atomic.Bool

	requestsTotal  atomic.Uint64
	requestsFailed atomic.Uint64
}

// NewGateway creates an HTTP gateway
func NewGateway(port int, s store.Store, pipeline *ingest.Pipeline, dispatcher *dispatch.Dispatcher, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		port:        port,
		store:       s,
		pipeline:    pipeline,
		dispatcher:  dispatcher,
		logger:      logger.With("component", "http-gateway"),
		corsOrigins: []string{"*"},
	}
}

// Name returns the component name
func (g *Gateway) Name() string {
	return "http-gateway"
}

// SetCORSOrigins replaces the allowed CORS origins. The default allows
// any origin.
func (g *Gateway) SetCORSOrigins(origins []string) {
	if len(origins) > 0 {
		g.corsOrigins = origins
	}
}

// SetHealthMonitor attaches the component health monitor. When set,
// /api/health includes per-component statuses.
func (g *Gateway) SetHealthMonitor(m *health.Monitor) {
	g.health = m
}

// Initialize validates the gateway configuration
func (g *Gateway) Initialize() error {
	if g.port <= 0 || g.port > 65535 {
		return errors.WrapValidation(
			fmt.Errorf("invalid port %d", g.port),
			"Gateway", "Initialize", "validate port")
	}
	if g.store == nil {
		return errors.WrapValidation(
			fmt.Errorf("store is required"),
			"Gateway", "Initialize", "validate dependencies")
	}
	return nil
}

// Start begins serving the API
func (g *Gateway) Start(_ context.Context) error {
	if g.running.Swap(true) {
		return nil
	}

	g.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", g.port),
		Handler:           g.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		g.logger.Info("http gateway starting", "port", g.port)
		if err := g.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			g.logger.Error("http gateway failed", "error", err)
		}
	}()

	return nil
}

// Stop gracefully stops the gateway
func (g *Gateway) Stop(timeout time.Duration) error {
	if !g.running.Swap(false) {
		return nil
	}

	if g.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := g.server.Shutdown(ctx); err != nil {
			return errors.Wrap(err, "Gateway", "Stop", "shutdown server")
		}
		g.server = nil
	}
	return nil
}

// Handler returns the gateway's route mux
func (g *Gateway) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/health", g.withCommon(http.MethodGet, g.handleHealth))
	mux.HandleFunc("/api/hvac/status", g.withCommon(http.MethodGet, g.handleStatus))
	mux.HandleFunc("/api/hvac/readings", g.methodSwitch(map[string]http.HandlerFunc{
		http.MethodGet:  g.handleListReadings,
		http.MethodPost: g.handlePostReading,
	}))
	mux.HandleFunc("/api/hvac/target", g.methodSwitch(map[string]http.HandlerFunc{
		http.MethodGet:  g.handleGetTarget,
		http.MethodPost: g.handleSetTarget,
	}))
	mux.HandleFunc("/api/hvac/control", g.withCommon(http.MethodPost, g.handleControl))
	mux.HandleFunc("/api/hvac/control-log", g.withCommon(http.MethodGet, g.handleControlLog))
	mux.HandleFunc("/api/schedules", g.methodSwitch(map[string]http.HandlerFunc{
		http.MethodGet:  g.handleListSchedules,
		http.MethodPost: g.handlePostSchedule,
	}))

	return mux
}

func (g *Gateway) withCommon(method string, next http.HandlerFunc) http.HandlerFunc {
	return g.methodSwitch(map[string]http.HandlerFunc{method: next})
}

func (g *Gateway) methodSwitch(handlers map[string]http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g.requestsTotal.Add(1)
		g.applyCORS(w, r)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		handler, ok := handlers[r.Method]
		if !ok {
			g.writeError(w, http.StatusMethodNotAllowed,
				fmt.Sprintf("method %s not allowed", r.Method))
			return
		}

		handler(w, r)
	}
}

func (g *Gateway) applyCORS(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")
	for _, allowed := range g.corsOrigins {
		if allowed == "*" || allowed == origin {
			if origin != "" {
				w.Header().Set("Access-Control-Allow-Origin", origin)
			} else {
				w.Header().Set("Access-Control-Allow-Origin", "*")
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Max-Age", "3600")
			return
		}
	}
}

// handleHealth reports liveness and, when a monitor is attached, the
// per-component health statuses
func (g *Gateway) handleHealth(w http.ResponseWriter, _ *http.Request) {
	body := map[string]any{
		"ok": true,
		"ts": time.Now().UnixMilli(),
	}
	if g.health != nil {
		body["components"] = g.health.GetAll()
	}
	g.writeJSON(w, http.StatusOK, body)
}

// handleStatus returns the latest reading for a zone, or null
func (g *Gateway) handleStatus(w http.ResponseWriter, r *http.Request) {
	zone := hvac.ZoneOrDefault(r.URL.Query().Get("zone"))

	reading, err := g.store.LatestReadingForZone(r.Context(), zone)
	if err != nil {
		if errors.IsNotFound(err) {
			g.writeJSON(w, http.StatusOK, nil)
			return
		}
		g.writeStoreError(w, err)
		return
	}

	g.writeJSON(w, http.StatusOK, reading)
}

// handleListReadings returns recent readings for a zone, newest first
func (g *Gateway) handleListReadings(w http.ResponseWriter, r *http.Request) {
	zone := hvac.ZoneOrDefault(r.URL.Query().Get("zone"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	readings, err := g.store.ListReadings(r.Context(), zone, limit)
	if err != nil {
		g.writeStoreError(w, err)
		return
	}

	g.writeJSON(w, http.StatusOK, readings)
}

type readingRequest struct {
	Zone        string   `json:"zone"`
	Temperature *float64 `json:"temperature"`
	Humidity    *float64 `json:"humidity"`
	AQI         *int     `json:"aqi"`
}

// handlePostReading accepts a canonical reading directly, bypassing the
// device bus
func (g *Gateway) handlePostReading(w http.ResponseWriter, r *http.Request) {
	var req readingRequest
	if !g.readJSON(w, r, &req) {
		return
	}

	err := g.pipeline.Ingest(r.Context(), hvac.Reading{
		Zone:        hvac.ZoneOrDefault(req.Zone),
		Temperature: req.Temperature,
		Humidity:    req.Humidity,
		AQI:         req.AQI,
	})
	if err != nil {
		g.writeStoreError(w, err)
		return
	}

	g.writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// handleGetTarget returns the target for a zone, or null
func (g *Gateway) handleGetTarget(w http.ResponseWriter, r *http.Request) {
	zone := hvac.ZoneOrDefault(r.URL.Query().Get("zone"))

	target, err := g.store.GetTarget(r.Context(), zone)
	if err != nil {
		if errors.IsNotFound(err) {
			g.writeJSON(w, http.StatusOK, nil)
			return
		}
		g.writeStoreError(w, err)
		return
	}

	g.writeJSON(w, http.StatusOK, target)
}

type targetRequest struct {
	Zone       string   `json:"zone"`
	TargetTemp *float64 `json:"target_temp"`
}

// handleSetTarget upserts a zone target and dispatches the set_target
// command
func (g *Gateway) handleSetTarget(w http.ResponseWriter, r *http.Request) {
	var req targetRequest
	if !g.readJSON(w, r, &req) {
		return
	}

	if req.TargetTemp == nil {
		g.writeError(w, http.StatusBadRequest, "missing target_temp")
		return
	}

	target, err := g.dispatcher.SetTarget(r.Context(), req.Zone, *req.TargetTemp)
	if err != nil {
		g.writeDispatchError(w, err)
		return
	}

	g.writeJSON(w, http.StatusOK, map[string]any{
		"ok":  true,
		"cmd": hvac.NewSetTargetCommand(target.Zone, target.TargetTemp),
	})
}

type controlRequest struct {
	Zone    string          `json:"zone"`
	Command json.RawMessage `json:"command"`
}

// handleControl dispatches an arbitrary control command
func (g *Gateway) handleControl(w http.ResponseWriter, r *http.Request) {
	var req controlRequest
	if !g.readJSON(w, r, &req) {
		return
	}

	if len(req.Command) == 0 || string(req.Command) == "null" {
		g.writeError(w, http.StatusBadRequest, "missing command")
		return
	}

	entry, err := g.dispatcher.Control(r.Context(), req.Zone, req.Command)
	if err != nil {
		g.writeDispatchError(w, err)
		return
	}

	g.writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"topic":   dispatch.TopicCommandPrefix + entry.Zone,
		"command": entry.Command,
	})
}

// handleControlLog returns recent audit entries for a zone, newest first
func (g *Gateway) handleControlLog(w http.ResponseWriter, r *http.Request) {
	zone := hvac.ZoneOrDefault(r.URL.Query().Get("zone"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	entries, err := g.store.ListControlLog(r.Context(), zone, limit)
	if err != nil {
		g.writeStoreError(w, err)
		return
	}

	g.writeJSON(w, http.StatusOK, entries)
}

// handleListSchedules returns all stored schedules
func (g *Gateway) handleListSchedules(w http.ResponseWriter, r *http.Request) {
	schedules, err := g.store.ListSchedules(r.Context())
	if err != nil {
		g.writeStoreError(w, err)
		return
	}
	if schedules == nil {
		schedules = []hvac.Schedule{}
	}

	g.writeJSON(w, http.StatusOK, schedules)
}

type scheduleRequest struct {
	Zone       string  `json:"zone"`
	CronTime   string  `json:"cron_time"`
	Days       string  `json:"days"`
	TargetTemp float64 `json:"target_temp"`
	Enabled    *bool   `json:"enabled"`
}

// handlePostSchedule stores a new schedule
func (g *Gateway) handlePostSchedule(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	if !g.readJSON(w, r, &req) {
		return
	}

	if req.Days == "" {
		req.Days = "Everyday"
	}
	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	sched, err := g.store.InsertSchedule(r.Context(), hvac.Schedule{
		Zone:       hvac.ZoneOrDefault(req.Zone),
		CronTime:   req.CronTime,
		Days:       req.Days,
		TargetTemp: req.TargetTemp,
		Enabled:    enabled,
	})
	if err != nil {
		g.writeStoreError(w, err)
		return
	}

	g.writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"id": sched.ID,
	})
}

// readJSON decodes a request body, writing a 400 on failure
func (g *Gateway) readJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	defer r.Body.Close()

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestSize))
	if err := dec.Decode(dst); err != nil {
		g.writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// writeDispatchError distinguishes bus failures from store failures
func (g *Gateway) writeDispatchError(w http.ResponseWriter, err error) {
	switch {
	case errors.IsValidation(err):
		g.writeError(w, http.StatusBadRequest, "invalid request")
	case errors.IsPublish(err):
		g.writeError(w, http.StatusInternalServerError, "publish-failed")
	default:
		g.writeError(w, http.StatusInternalServerError, "db-error")
	}
}

func (g *Gateway) writeStoreError(w http.ResponseWriter, err error) {
	if errors.IsValidation(err) {
		g.writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	g.writeError(w, http.StatusInternalServerError, "db-error")
}

func (g *Gateway) writeError(w http.ResponseWriter, status int, message string) {
	g.requestsFailed.Add(1)
	g.writeJSON(w, status, map[string]string{"error": message})
}

func (g *Gateway) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		g.logger.Error("failed to write response", "error", err)
	}
}
