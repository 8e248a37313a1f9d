package repository

import (
	"context"

	"github.com/fastygo/scheduler/domain"
)

// SessionFilter narrows the set of unassigned sessions fetched for a run.
type SessionFilter struct {
	Statuses []domain.SessionStatus
	From     *domain.Date
	To       *domain.Date
}

type SessionRepository interface {
	ListUnassigned(ctx context.Context, filter SessionFilter) ([]domain.Session, error)
	// ApplyAssignment writes the whole batch or nothing. Sessions that gained a
	// therapist since the snapshot make the batch fail with domain.ErrStaleAssignment.
	ApplyAssignment(ctx context.Context, batch []domain.SessionAssignment) error
}
