package transport

import (
	"encoding/json"
	"sort"

	"github.com/fastygo/scheduler/domain"
	"github.com/fastygo/scheduler/internal/scheduler"
)

// Envelope is the standard API response wrapper used for both success and error payloads.
type Envelope struct {
	Status string      `json:"status"`
	Code   string      `json:"code,omitempty"`
	Data   interface{} `json:"data,omitempty"`
	Error  interface{} `json:"error,omitempty"`
	Meta   interface{} `json:"meta,omitempty"`
}

func NewSuccess(data interface{}, meta interface{}) Envelope {
	return Envelope{
		Status: "success",
		Data:   data,
		Meta:   meta,
	}
}

func NewError(code string, err interface{}, meta interface{}) Envelope {
	return Envelope{
		Status: "error",
		Code:   code,
		Error:  err,
		Meta:   meta,
	}
}

// String returns the JSON representation (best-effort) for logging purposes.
func (e Envelope) String() string {
	out, err := json.Marshal(e)
	if err != nil {
		return "{}"
	}
	return string(out)
}

// DateReason is one entry of an infeasibility report.
type DateReason struct {
	Date   domain.Date `json:"date"`
	Reason string      `json:"reason"`
}

// InfeasibleResponse lists the sessions left without a therapist.
type InfeasibleResponse struct {
	Unplaced []string     `json:"unplaced"`
	Dates    []DateReason `json:"dates"`
}

// SolveResponse is returned by the solve endpoint and by schedulectl solve.
// Assignments are ordered by session id and dates by calendar order.
type SolveResponse struct {
	Mode        string                     `json:"mode"`
	Feasible    bool                       `json:"feasible"`
	Assignments []domain.SessionAssignment `json:"assignments"`
	Infeasible  *InfeasibleResponse        `json:"infeasible,omitempty"`
	Depth       map[domain.Date]int        `json:"depth_by_date"`
	Conflicts   []scheduler.Pair           `json:"conflicts,omitempty"`
}

func NewSolveResponse(result *scheduler.Result, conflicts []scheduler.Pair) SolveResponse {
	pairs := result.Assignment.Pairs()
	resp := SolveResponse{
		Mode:        result.Mode.String(),
		Feasible:    result.Feasible(),
		Assignments: make([]domain.SessionAssignment, len(pairs)),
		Depth:       result.DepthByDate,
		Conflicts:   conflicts,
	}
	for i, p := range pairs {
		resp.Assignments[i] = domain.SessionAssignment{SessionID: p.TaskID, TherapistID: p.ResourceID}
	}
	if report := result.Infeasible; report != nil {
		out := &InfeasibleResponse{Unplaced: report.Unplaced}
		for date, reason := range report.ReasonByDate {
			out.Dates = append(out.Dates, DateReason{Date: date, Reason: reason})
		}
		sort.Slice(out.Dates, func(i, j int) bool { return out.Dates[i].Date.Before(out.Dates[j].Date) })
		resp.Infeasible = out
	}
	return resp
}

// RunResponse summarizes a run against the store.
type RunResponse struct {
	RunID      string        `json:"run_id"`
	Pool       string        `json:"pool"`
	Status     string        `json:"status"`
	Sessions   int           `json:"sessions"`
	Therapists int           `json:"therapists"`
	Result     SolveResponse `json:"result"`
}
