package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	redislib "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	DependencyPostgres = "postgresql"
	DependencyRedis    = "redis"
)

// Probe checks one dependency.
type Probe struct {
	Name    string
	Timeout time.Duration
	Check   func(ctx context.Context) error
}

// PostgresProbe pings the pool.
func PostgresProbe(pool *pgxpool.Pool) Probe {
	return Probe{
		Name:    DependencyPostgres,
		Timeout: 3 * time.Second,
		Check: func(ctx context.Context) error {
			return pool.Ping(ctx)
		},
	}
}

// RedisProbe pings the client.
func RedisProbe(client *redislib.Client) Probe {
	return Probe{
		Name:    DependencyRedis,
		Timeout: 2 * time.Second,
		Check: func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		},
	}
}

type Monitor struct {
	probes []Probe

	status   Status
	mu       sync.RWMutex
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
	logger   *zap.Logger
}

func New(interval time.Duration, logger *zap.Logger, probes ...Probe) *Monitor {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		probes:   probes,
		interval: interval,
		stopCh:   make(chan struct{}),
		logger:   logger,
	}
}

func (m *Monitor) Start() {
	m.refresh()
	go m.loop()
}

func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

func (m *Monitor) IsOnline() bool {
	return m.GetStatus().Healthy()
}

// Dependency reports the health of a single probe.
func (m *Monitor) Dependency(name string) DependencyHealth {
	return DependencyHealth{monitor: m, name: name}
}

// DependencyHealth is an IsOnline view over one probe of a Monitor.
type DependencyHealth struct {
	monitor *Monitor
	name    string
}

func (d DependencyHealth) IsOnline() bool {
	d.monitor.mu.RLock()
	defer d.monitor.mu.RUnlock()
	return d.monitor.status.Dependencies[d.name]
}

func (m *Monitor) GetStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	deps := make(map[string]bool, len(m.status.Dependencies))
	for name, ok := range m.status.Dependencies {
		deps[name] = ok
	}
	return Status{Dependencies: deps, LastCheck: m.status.LastCheck}
}

func (m *Monitor) loop() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.refresh()
		case <-m.stopCh:
			return
		}
	}
}

func (m *Monitor) refresh() {
	deps := make(map[string]bool, len(m.probes))
	for _, p := range m.probes {
		deps[p.Name] = m.run(p)
	}

	m.mu.Lock()
	previous := m.status.Dependencies
	m.status = Status{Dependencies: deps, LastCheck: time.Now()}
	m.mu.Unlock()

	for name, ok := range deps {
		if was, seen := previous[name]; seen && was != ok {
			m.logger.Warn("dependency state changed", zap.String("dependency", name), zap.Bool("online", ok))
		}
	}
}

func (m *Monitor) run(p Probe) bool {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := p.Check(ctx); err != nil {
		m.logger.Debug("probe failed", zap.String("dependency", p.Name), zap.Error(err))
		return false
	}
	return true
}
