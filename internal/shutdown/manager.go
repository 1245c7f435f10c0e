// Package shutdown stops application components in reverse registration order.
package shutdown

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"presentat/internal/logger"
)

// DefaultStepTimeout bounds how long a single component may take to stop
const DefaultStepTimeout = 10 * time.Second

// Func stops one component
type Func func(ctx context.Context) error

type step struct {
	name string
	stop Func
}

// Manager runs registered shutdown steps once, last registered first
type Manager struct {
	logger      logger.Logger
	stepTimeout time.Duration

	mu    sync.Mutex
	steps []step
	err   error

	once   sync.Once
	done   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
}

// NewManager creates a manager; its Context is cancelled when shutdown starts
func NewManager(log logger.Logger) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		logger:      log,
		stepTimeout: DefaultStepTimeout,
		done:        make(chan struct{}),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// SetStepTimeout changes the per-component timeout
func (m *Manager) SetStepTimeout(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stepTimeout = d
}

// Register adds a named step
func (m *Manager) Register(name string, stop Func) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps = append(m.steps, step{name: name, stop: stop})
}

// RegisterFunc adds a step that cannot fail
func (m *Manager) RegisterFunc(name string, stop func()) {
	m.Register(name, func(context.Context) error {
		stop()
		return nil
	})
}

// Listen calls onSignal once SIGINT or SIGTERM arrives. Listening ends when
// shutdown starts by any route.
func (m *Manager) Listen(onSignal func(os.Signal)) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			m.logger.Info("ShutdownManager", "shutdown signal received", map[string]interface{}{
				"signal": sig.String(),
			})
			onSignal(sig)
		case <-m.ctx.Done():
		}
	}()
}

// Shutdown runs every step once and returns the joined step errors.
// Later calls wait for the first to finish and return the same result.
func (m *Manager) Shutdown() error {
	m.once.Do(m.run)
	<-m.done
	return m.err
}

func (m *Manager) run() {
	defer close(m.done)

	m.mu.Lock()
	steps := append([]step(nil), m.steps...)
	timeout := m.stepTimeout
	m.mu.Unlock()

	m.logger.Info("ShutdownManager", "shutdown sequence initiated", map[string]interface{}{
		"components": len(steps),
	})
	m.cancel()

	var errs []error
	for i := len(steps) - 1; i >= 0; i-- {
		if err := m.runStep(steps[i], timeout); err != nil {
			errs = append(errs, err)
		}
	}
	m.err = errors.Join(errs...)

	m.logger.Info("ShutdownManager", "shutdown sequence completed", map[string]interface{}{
		"failed": len(errs),
	})
}

func (m *Manager) runStep(s step, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	start := time.Now()
	result := make(chan error, 1)
	go func() {
		result <- s.stop(ctx)
	}()

	select {
	case err := <-result:
		if err != nil {
			m.logger.Error("ShutdownManager", err, map[string]interface{}{"component": s.name})
			return fmt.Errorf("%s: %w", s.name, err)
		}
		m.logger.Debug("ShutdownManager", "component stopped", map[string]interface{}{
			"component": s.name,
			"duration":  time.Since(start).String(),
		})
		return nil
	case <-ctx.Done():
		m.logger.Warning("ShutdownManager", "component shutdown timeout", map[string]interface{}{
			"component": s.name,
			"timeout":   timeout.String(),
		})
		return fmt.Errorf("%s: shutdown timed out after %s", s.name, timeout)
	}
}

// Context is cancelled as soon as shutdown starts
func (m *Manager) Context() context.Context {
	return m.ctx
}

// Done is closed once every step has run
func (m *Manager) Done() <-chan struct{} {
	return m.done
}
