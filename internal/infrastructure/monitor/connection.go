package monitor

import (
	"context"
	"sync"
	"time"

	redislib "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// RedisPinger wraps a go-redis client, whose Ping returns a command.
func RedisPinger(client *redislib.Client) Pinger {
	if client == nil {
		return nil
	}
	return PingFunc(func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
}

// SizeReporter is satisfied by *buffer.Store.
type SizeReporter interface {
	Size() (int, error)
}

type Monitor struct {
	pg     Pinger
	redis  Pinger
	buffer SizeReporter

	status   Status
	mu       sync.RWMutex
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
	logger   *zap.Logger
}

func New(pg Pinger, redis Pinger, buf SizeReporter, interval time.Duration, logger *zap.Logger) *Monitor {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		pg:       pg,
		redis:    redis,
		buffer:   buf,
		interval: interval,
		stopCh:   make(chan struct{}),
		logger:   logger,
	}
}

func (m *Monitor) Start() {
	go m.loop()
}

func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

func (m *Monitor) IsOnline() bool {
	return m.GetStatus().Online()
}

func (m *Monitor) GetStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// Refresh probes every dependency now and returns the new status.
func (m *Monitor) Refresh(ctx context.Context) Status {
	bufferOK, bufferSize := m.checkBuffer()
	status := Status{
		PostgreSQL: m.ping(ctx, m.pg, 3*time.Second),
		Redis:      m.ping(ctx, m.redis, 2*time.Second),
		Buffer:     bufferOK,
		BufferSize: bufferSize,
		LastCheck:  time.Now(),
	}

	m.mu.Lock()
	prev := m.status
	m.status = status
	m.mu.Unlock()

	if !prev.LastCheck.IsZero() && prev.Online() != status.Online() {
		m.logger.Warn("store connectivity changed",
			zap.Bool("online", status.Online()),
			zap.Bool("postgresql", status.PostgreSQL),
			zap.Bool("redis", status.Redis))
	}
	return status
}

func (m *Monitor) loop() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.Refresh(context.Background())
	for {
		select {
		case <-ticker.C:
			m.Refresh(context.Background())
		case <-m.stopCh:
			return
		}
	}
}

func (m *Monitor) ping(ctx context.Context, p Pinger, timeout time.Duration) bool {
	if p == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.Ping(ctx) == nil
}

func (m *Monitor) checkBuffer() (bool, int) {
	if m.buffer == nil {
		return false, 0
	}
	size, err := m.buffer.Size()
	if err != nil {
		m.logger.Warn("buffer size check failed", zap.Error(err))
		return false, size
	}
	return true, size
}
