// Package scheduler assigns therapists to therapy sessions so that no
// therapist holds two sessions whose time windows overlap on the same day.
//
// The package is pure: it works on flattened value records (Task, Resource),
// performs no I/O and holds no shared state, so a Solver may be used from many
// goroutines at once.
package scheduler

import (
	"github.com/fastygo/scheduler/domain"
)

// Task is the temporal footprint of a session: a date and a half-open
// [Start, End) window on that date.
type Task struct {
	ID    string           `json:"id" yaml:"id"`
	Date  domain.Date      `json:"date" yaml:"date"`
	Start domain.TimeOfDay `json:"start" yaml:"start"`
	End   domain.TimeOfDay `json:"end" yaml:"end"`
}

// Resource is an interchangeable assignee.
type Resource struct {
	ID string `json:"id" yaml:"id"`
}

// Validate rejects tasks without an id and windows where Start >= End.
func (t Task) Validate() error {
	if t.ID == "" {
		return domain.Detail(domain.ErrInvalidPayload, "task without id")
	}
	if t.Date.IsZero() {
		return domain.Detail(domain.ErrMalformedDate, "task %s has no date", t.ID)
	}
	if !t.Start.Valid() || !t.End.Valid() || t.Start >= t.End {
		return domain.Detail(domain.ErrMalformedInterval, "task %s: %s-%s", t.ID, t.Start, t.End)
	}
	return nil
}

// Overlaps reports whether two tasks share a date and their half-open windows
// intersect. Touching windows (a.End == b.Start) do not overlap.
func Overlaps(a, b Task) (bool, error) {
	if err := a.Validate(); err != nil {
		return false, err
	}
	if err := b.Validate(); err != nil {
		return false, err
	}
	return overlaps(a, b), nil
}

// overlaps assumes both tasks are valid.
func overlaps(a, b Task) bool {
	return a.Date == b.Date && a.Start < b.End && b.Start < a.End
}
