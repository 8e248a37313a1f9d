package repository

import (
	"context"
	"time"

	"github.com/fastygo/scheduler/domain"
)

type RunFilter struct {
	Pool   string
	Status domain.RunStatus
	Limit  int
	Offset int
}

type RunRepository interface {
	Get(ctx context.Context, id string) (*domain.ScheduleRun, error)
	List(ctx context.Context, filter RunFilter) ([]domain.ScheduleRun, error)
	Save(ctx context.Context, run *domain.ScheduleRun) error
}

// Lease is a held run lock.
type Lease interface {
	Release(ctx context.Context) error
}

// RunLocker guarantees a single scheduling run per therapist pool. Acquire
// fails with domain.ErrRunInProgress while another lease is held.
type RunLocker interface {
	Acquire(ctx context.Context, pool string, ttl time.Duration) (Lease, error)
}
