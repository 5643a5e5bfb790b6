// Package service manages the lifecycle of the pipeline's components.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Rithik-0617/HVAC-Project/errors"
)

// Component is the lifecycle contract every managed component follows:
//
//	Initialize() - validate configuration, create resources
//	Start(ctx)   - begin work; must not block
//	Stop(d)      - shut down within d
type Component interface {
	Name() string
	Initialize() error
	Start(ctx context.Context) error
	Stop(timeout time.Duration) error
}

// DefaultStopTimeout bounds how long each component gets to shut down.
const DefaultStopTimeout = 10 * time.Second

// Manager starts components in registration order and stops them in
// reverse order.
type Manager struct {
	logger      *slog.Logger
	stopTimeout time.Duration

	mu         sync.Mutex
	components []Component
	started    []Component
}

// NewManager creates a component manager
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		logger:      logger.With("component", "service-manager"),
		stopTimeout: DefaultStopTimeout,
	}
}

// SetStopTimeout overrides the per-component shutdown deadline.
func (m *Manager) SetStopTimeout(d time.Duration) {
	if d > 0 {
		m.stopTimeout = d
	}
}

// Register adds a component. Registration order is start order.
func (m *Manager) Register(c Component) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.components = append(m.components, c)
}

// Components returns the names of all registered components.
func (m *Manager) Components() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := make([]string, 0, len(m.components))
	for _, c := range m.components {
		names = append(names, c.Name())
	}
	return names
}

// StartAll initializes and starts every registered component in order.
// On failure it stops the components already started, in reverse order,
// and returns the failure.
func (m *Manager) StartAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range m.components {
		if err := c.Initialize(); err != nil {
			m.stopStartedLocked()
			return errors.Wrap(
				fmt.Errorf("component %s: %w", c.Name(), err),
				"Manager", "StartAll", "initialize component")
		}

		if err := c.Start(ctx); err != nil {
			m.stopStartedLocked()
			return errors.Wrap(
				fmt.Errorf("component %s: %w", c.Name(), err),
				"Manager", "StartAll", "start component")
		}

		m.started = append(m.started, c)
		m.logger.Info("component started", "name", c.Name())
	}

	return nil
}

// StopAll stops every started component in reverse start order. All
// components are given a chance to stop; the first error is returned.
func (m *Manager) StopAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopStartedLocked()
}

func (m *Manager) stopStartedLocked() error {
	var firstErr error

	for i := len(m.started) - 1; i >= 0; i-- {
		c := m.started[i]
		if err := c.Stop(m.stopTimeout); err != nil {
			m.logger.Error("component stop failed", "name", c.Name(), "error", err)
			if firstErr == nil {
				firstErr = errors.Wrap(
					fmt.Errorf("component %s: %w", c.Name(), err),
					"Manager", "StopAll", "stop component")
			}
			continue
		}
		m.logger.Info("component stopped", "name", c.Name())
	}

	m.started = nil
	return firstErr
}
