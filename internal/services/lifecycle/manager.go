package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ShutdownFunc describes a graceful shutdown callback.
type ShutdownFunc func(ctx context.Context) error

// TaskFunc is a long-running component. It should return once ctx is done or its
// shutdown hook has run.
type TaskFunc func(ctx context.Context) error

type hook struct {
	name string
	fn   ShutdownFunc
}

// Manager runs background components and stops them in reverse registration order.
type Manager struct {
	timeout time.Duration
	logger  *zap.Logger

	group *errgroup.Group
	ctx   context.Context

	mu    sync.Mutex
	hooks []hook

	shutdownOnce sync.Once
	shutdownErr  error
}

// SignalContext is cancelled on SIGTERM or SIGINT.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// New returns a manager whose context ends when parent is cancelled or any task fails.
func New(parent context.Context, timeout time.Duration, logger *zap.Logger) *Manager {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	group, ctx := errgroup.WithContext(parent)
	return &Manager{
		timeout: timeout,
		logger:  logger,
		group:   group,
		ctx:     ctx,
	}
}

// Context is done once shutdown should begin.
func (m *Manager) Context() context.Context {
	return m.ctx
}

// Go starts task in the background. A task error triggers shutdown of everything else.
func (m *Manager) Go(name string, task TaskFunc) {
	m.group.Go(func() error {
		m.logger.Info("component started", zap.String("component", name))
		err := task(m.ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			m.logger.Error("component failed", zap.String("component", name), zap.Error(err))
			return fmt.Errorf("%s: %w", name, err)
		}
		return nil
	})
}

// Register adds a shutdown hook. Hooks are executed in reverse order.
func (m *Manager) Register(name string, fn ShutdownFunc) {
	if fn == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks = append(m.hooks, hook{name: name, fn: fn})
}

// Wait blocks until Context is done, runs the shutdown hooks and waits for every task to return.
func (m *Manager) Wait() error {
	<-m.ctx.Done()
	m.logger.Info("shutting down")
	shutdownErr := m.Shutdown(context.Background())
	return errors.Join(m.group.Wait(), shutdownErr)
}

// Shutdown executes all registered hooks once, respecting the configured timeout.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.shutdownOnce.Do(func() {
		ctx, cancel := context.WithTimeout(ctx, m.timeout)
		defer cancel()

		m.mu.Lock()
		hooks := append([]hook(nil), m.hooks...)
		m.mu.Unlock()

		for i := len(hooks) - 1; i >= 0; i-- {
			h := hooks[i]
			if err := h.fn(ctx); err != nil {
				m.logger.Error("shutdown hook failed", zap.String("component", h.name), zap.Error(err))
				m.shutdownErr = errors.Join(m.shutdownErr, fmt.Errorf("%s: %w", h.name, err))
				continue
			}
			m.logger.Info("component stopped", zap.String("component", h.name))
		}
	})
	return m.shutdownErr
}
