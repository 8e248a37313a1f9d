package repository

import (
	"context"

	"github.com/fastygo/scheduler/domain"
)

// SnapshotReader loads sessions and therapists from a single consistent read.
type SnapshotReader interface {
	Snapshot(ctx context.Context, filter SessionFilter) (*domain.Snapshot, error)
}
