package monitor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redislib "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestMonitorReportsProbeResults(t *testing.T) {
	var failing atomic.Bool
	probe := Probe{Name: "db", Check: func(context.Context) error {
		if failing.Load() {
			return errors.New("down")
		}
		return nil
	}}

	m := New(10*time.Millisecond, nil, probe)
	m.Start()
	defer m.Stop()

	assert.True(t, m.IsOnline())
	assert.Equal(t, map[string]bool{"db": true}, m.GetStatus().Dependencies)

	failing.Store(true)
	assert.Eventually(t, func() bool { return !m.IsOnline() }, time.Second, 5*time.Millisecond)
}

func TestMonitorWithoutProbesIsOffline(t *testing.T) {
	m := New(time.Second, nil)
	m.Start()
	defer m.Stop()

	assert.False(t, m.IsOnline())
}

func TestMonitorStopIsIdempotent(t *testing.T) {
	m := New(time.Second, nil)
	m.Start()
	m.Stop()
	assert.NotPanics(t, m.Stop)
}

func TestRedisProbe(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redislib.NewClient(&redislib.Options{Addr: mr.Addr()})
	defer client.Close()

	m := New(time.Hour, nil, RedisProbe(client))
	m.Start()
	defer m.Stop()

	assert.True(t, m.GetStatus().Dependencies["redis"])
}

func TestDependencyViewIgnoresOtherProbes(t *testing.T) {
	up := Probe{Name: DependencyPostgres, Check: func(context.Context) error { return nil }}
	down := Probe{Name: DependencyRedis, Check: func(context.Context) error { return errors.New("down") }}

	m := New(time.Hour, nil, up, down)
	m.Start()
	defer m.Stop()

	assert.False(t, m.IsOnline())
	assert.True(t, m.Dependency(DependencyPostgres).IsOnline())
	assert.False(t, m.Dependency(DependencyRedis).IsOnline())
	assert.False(t, m.Dependency("missing").IsOnline())
}
