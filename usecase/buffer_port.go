package usecase

import (
	"context"
	"time"

	"github.com/fastygo/scheduler/domain"
)

// AssignmentBuffer parks an assignment batch that could not be written so it
// can be retried later as a whole.
type AssignmentBuffer interface {
	BufferAssignment(ctx context.Context, runID string, batch []domain.SessionAssignment) error
}

// RunRecorder receives per-run measurements.
type RunRecorder interface {
	RecordRun(mode string, status domain.RunStatus, elapsed time.Duration, assigned, unplaced int)
}
