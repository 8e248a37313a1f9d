package domain

import (
	"encoding/json"
	"time"
)

// RunStatus is the final state of a scheduling run.
type RunStatus string

const (
	RunPlanned    RunStatus = "planned"
	RunApplied    RunStatus = "applied"
	RunBuffered   RunStatus = "buffered"
	RunInfeasible RunStatus = "infeasible"
	RunFailed     RunStatus = "failed"
)

// ScheduleRun records the outcome of one scheduling run against the store.
type ScheduleRun struct {
	ID          string          `json:"id"`
	Pool        string          `json:"pool"`
	Mode        string          `json:"mode"`
	Status      RunStatus       `json:"status"`
	RequestedBy string          `json:"requested_by,omitempty"`
	Sessions    int             `json:"sessions"`
	Therapists  int             `json:"therapists"`
	Assigned    int             `json:"assigned"`
	Unplaced    int             `json:"unplaced"`
	Report      json.RawMessage `json:"report,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (r *ScheduleRun) Touch() {
	if r == nil {
		return
	}
	r.UpdatedAt = time.Now()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = r.UpdatedAt
	}
}
