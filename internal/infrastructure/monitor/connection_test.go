package monitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeBuffer struct {
	size int
	err  error
}

func (f fakeBuffer) Size() (int, error) { return f.size, f.err }

func up(context.Context) error   { return nil }
func down(context.Context) error { return errors.New("connection refused") }

func TestMonitor_Refresh(t *testing.T) {
	mon := New(PingFunc(up), PingFunc(up), fakeBuffer{size: 3}, time.Second, nil)
	assert.False(t, mon.IsOnline())

	status := mon.Refresh(context.Background())
	assert.True(t, status.Online())
	assert.True(t, status.Buffer)
	assert.Equal(t, 3, status.BufferSize)
	assert.True(t, mon.IsOnline())
	assert.Equal(t, status, mon.GetStatus())
}

func TestMonitor_Degraded(t *testing.T) {
	mon := New(PingFunc(up), PingFunc(down), fakeBuffer{err: errors.New("closed")}, 0, nil)

	status := mon.Refresh(context.Background())
	assert.True(t, status.PostgreSQL)
	assert.False(t, status.Redis)
	assert.False(t, status.Buffer)
	assert.False(t, mon.IsOnline())
}

func TestMonitor_MissingDependencies(t *testing.T) {
	mon := New(nil, RedisPinger(nil), nil, 0, nil)
	status := mon.Refresh(context.Background())
	assert.False(t, status.PostgreSQL)
	assert.False(t, status.Redis)
	assert.False(t, status.Buffer)
}

func TestMonitor_StartStop(t *testing.T) {
	mon := New(PingFunc(up), PingFunc(up), fakeBuffer{}, 10*time.Millisecond, nil)
	mon.Start()
	assert.Eventually(t, mon.IsOnline, time.Second, 5*time.Millisecond)
	mon.Stop()
	mon.Stop()
}
