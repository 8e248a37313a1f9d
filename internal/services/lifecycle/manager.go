package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// StopFunc releases one component of the scheduler process.
type StopFunc func(ctx context.Context) error

type component struct {
	name string
	stop StopFunc
}

// Manager owns the shutdown sequence of the process. Components are stopped
// last-registered first: the HTTP server and the cron jobs go before the
// buffer and the stores they write to.
type Manager struct {
	grace  time.Duration
	logger *zap.Logger

	mu         sync.Mutex
	components []component
	stopped    bool
}

func New(grace time.Duration, logger *zap.Logger) *Manager {
	if grace <= 0 {
		grace = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{grace: grace, logger: logger.Named("lifecycle")}
}

// OnStop adds a component to the shutdown sequence. Components added after
// Stop has run are ignored.
func (m *Manager) OnStop(name string, fn StopFunc) {
	if fn == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		m.logger.Warn("component registered after shutdown", zap.String("component", name))
		return
	}
	m.components = append(m.components, component{name: name, stop: fn})
}

// Wait blocks until SIGINT or SIGTERM arrives or ctx is done.
func (m *Manager) Wait(ctx context.Context) {
	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-sigCtx.Done()
	if ctx.Err() != nil {
		m.logger.Info("shutdown requested", zap.NamedError("cause", context.Cause(ctx)))
		return
	}
	m.logger.Info("shutdown signal received")
}

// Stop runs the shutdown sequence once within the grace period. Every
// component is given the chance to stop even when an earlier one failed or
// the deadline passed; failures come back joined and tagged with the
// component name.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return nil
	}
	m.stopped = true
	components := m.components
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, m.grace)
	defer cancel()

	started := time.Now()
	var errs []error
	for i := len(components) - 1; i >= 0; i-- {
		c := components[i]
		if ctx.Err() != nil {
			m.logger.Warn("grace period exhausted, stopping anyway", zap.String("component", c.name))
		}
		began := time.Now()
		if err := c.stop(ctx); err != nil {
			m.logger.Error("component failed to stop", zap.String("component", c.name), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", c.name, err))
			continue
		}
		m.logger.Debug("component stopped", zap.String("component", c.name), zap.Duration("took", time.Since(began)))
	}

	m.logger.Info("shutdown complete",
		zap.Int("components", len(components)),
		zap.Int("failed", len(errs)),
		zap.Duration("took", time.Since(started)))
	return errors.Join(errs...)
}
