package scheduler

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fastygo/scheduler/domain"
)

// Mode selects what the solver does when some task cannot be placed.
type Mode int

const (
	// StrictAll either places every task or reports the run infeasible
	// without any assignment.
	StrictAll Mode = iota
	// BestEffort places as many tasks as possible and lists the rest.
	BestEffort
)

// ParseMode accepts "strict", "strict_all", "best_effort" and "best-effort".
// An empty string selects StrictAll.
func ParseMode(value string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "strict", "strict_all", "strict-all", "strictall":
		return StrictAll, nil
	case "best_effort", "best-effort", "besteffort":
		return BestEffort, nil
	default:
		return StrictAll, domain.Detail(domain.ErrInvalidPayload, "unknown mode %q", value)
	}
}

func (m Mode) String() string {
	if m == BestEffort {
		return "best_effort"
	}
	return "strict_all"
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Assignment maps a task id to the id of the resource it was given.
type Assignment map[string]string

// AssignmentPair is one entry of an Assignment.
type AssignmentPair struct {
	TaskID     string `json:"task_id"`
	ResourceID string `json:"resource_id"`
}

// Pairs returns the assignment sorted by task id.
func (a Assignment) Pairs() []AssignmentPair {
	out := make([]AssignmentPair, 0, len(a))
	for task, res := range a {
		out = append(out, AssignmentPair{TaskID: task, ResourceID: res})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TaskID < out[j].TaskID })
	return out
}

// ByResource groups assigned task ids per resource, each list sorted.
func (a Assignment) ByResource() map[string][]string {
	out := make(map[string][]string)
	for task, res := range a {
		out[res] = append(out[res], task)
	}
	for _, tasks := range out {
		sort.Strings(tasks)
	}
	return out
}

// InfeasibleReport lists the tasks left without a resource and why.
type InfeasibleReport struct {
	Unplaced     []string               `json:"unplaced"`
	ReasonByDate map[domain.Date]string `json:"reason_by_date"`
}

func (r *InfeasibleReport) Error() string {
	if r == nil {
		return ""
	}
	return fmt.Sprintf("infeasible: %d task(s) unplaced on %d date(s)", len(r.Unplaced), len(r.ReasonByDate))
}

// Result is the outcome of a solve. Infeasible is nil when every task was placed.
type Result struct {
	Mode        Mode                `json:"mode"`
	Assignment  Assignment          `json:"assignment"`
	Infeasible  *InfeasibleReport   `json:"infeasible,omitempty"`
	DepthByDate map[domain.Date]int `json:"depth_by_date"`
}

func (r *Result) Feasible() bool {
	return r != nil && r.Infeasible == nil
}

// Option configures a Solver.
type Option func(*Solver)

// WithWorkers solves up to n dates concurrently. Values below 1 mean sequential.
func WithWorkers(n int) Option {
	return func(s *Solver) {
		if n > 0 {
			s.workers = n
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Solver) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Solver assigns resources to tasks by interval partitioning per date.
type Solver struct {
	workers int
	logger  *zap.Logger
}

func New(opts ...Option) *Solver {
	s := &Solver{workers: 1, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Solve runs a sequential solver without logging.
func Solve(tasks []Task, resources []Resource, mode Mode) (*Result, error) {
	return New().Solve(context.Background(), tasks, resources, mode)
}

// dateOutcome is the solution of one date partition.
type dateOutcome struct {
	date     domain.Date
	depth    int
	placed   map[string]string
	unplaced []string
	reason   string
}

// Solve gives every task exactly one resource such that no resource holds two
// overlapping tasks. Only malformed input is returned as an error; an
// unsatisfiable batch is reported through Result.Infeasible.
//
// Tasks of each date are swept in (start, end, id) order and placed on the
// lowest-id resource that is free at the task's start. That greedy needs
// exactly depth(date) resources, so a date is infeasible iff its depth exceeds
// the pool size, which is checked before placing anything. In BestEffort mode
// a task arriving when every resource is busy competes with the running tasks:
// the one finishing last is dropped, which keeps the number of placed tasks
// maximal.
func (s *Solver) Solve(ctx context.Context, tasks []Task, resources []Resource, mode Mode) (*Result, error) {
	groups, err := partitionByDate(tasks)
	if err != nil {
		return nil, err
	}
	pool := normalizeResources(resources)

	outcomes := make([]dateOutcome, len(groups))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i := range groups {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i] = solveDate(groups[i], pool, mode)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := merge(outcomes, mode)
	s.logger.Debug("schedule solved",
		zap.String("mode", mode.String()),
		zap.Int("tasks", len(tasks)),
		zap.Int("resources", len(pool)),
		zap.Int("dates", len(groups)),
		zap.Int("assigned", len(result.Assignment)),
		zap.Bool("feasible", result.Feasible()),
	)
	return result, nil
}

func solveDate(g dateGroup, pool []Resource, mode Mode) dateOutcome {
	out := dateOutcome{date: g.date, depth: depth(g.tasks)}

	if len(pool) == 0 {
		out.unplaced = taskIDs(g.tasks)
		out.reason = "no resources available"
		return out
	}
	if mode == StrictAll && out.depth > len(pool) {
		out.unplaced = taskIDs(g.tasks)
		out.reason = fmt.Sprintf("depth %d exceeds %d available resources", out.depth, len(pool))
		return out
	}

	lastEnd := make([]domain.TimeOfDay, len(pool))
	holder := make([]int, len(pool))
	for r := range holder {
		holder[r] = -1
	}
	placedOn := make([]int, len(g.tasks))
	for i := range placedOn {
		placedOn[i] = -1
	}

	for i, t := range g.tasks {
		free := -1
		for r := range pool {
			if holder[r] < 0 || lastEnd[r] <= t.Start {
				free = r
				break
			}
		}
		if free >= 0 {
			placedOn[i], holder[free], lastEnd[free] = free, i, t.End
			continue
		}
		if mode == StrictAll {
			// unreachable when depth <= len(pool)
			continue
		}

		// Every resource is busy at t.Start: drop whichever of the running
		// tasks and t ends last, preferring to keep the lower id on ties.
		victim := 0
		for r := 1; r < len(pool); r++ {
			if lastEnd[r] > lastEnd[victim] ||
				(lastEnd[r] == lastEnd[victim] && g.tasks[holder[r]].ID > g.tasks[holder[victim]].ID) {
				victim = r
			}
		}
		running := g.tasks[holder[victim]]
		if running.End > t.End || (running.End == t.End && running.ID > t.ID) {
			placedOn[holder[victim]] = -1
			placedOn[i], holder[victim], lastEnd[victim] = victim, i, t.End
		}
	}

	out.placed = make(map[string]string, len(g.tasks))
	for i, r := range placedOn {
		if r < 0 {
			out.unplaced = append(out.unplaced, g.tasks[i].ID)
			continue
		}
		out.placed[g.tasks[i].ID] = pool[r].ID
	}
	if len(out.unplaced) > 0 {
		sort.Strings(out.unplaced)
		if mode == StrictAll {
			out.unplaced = taskIDs(g.tasks)
			out.placed = nil
		}
		out.reason = fmt.Sprintf("depth %d exceeds %d available resources; %d task(s) unplaced",
			out.depth, len(pool), len(out.unplaced))
	}
	return out
}

func merge(outcomes []dateOutcome, mode Mode) *Result {
	result := &Result{
		Mode:        mode,
		Assignment:  Assignment{},
		DepthByDate: make(map[domain.Date]int, len(outcomes)),
	}
	report := &InfeasibleReport{ReasonByDate: map[domain.Date]string{}}

	for _, o := range outcomes {
		result.DepthByDate[o.date] = o.depth
		for task, res := range o.placed {
			result.Assignment[task] = res
		}
		if o.reason != "" {
			report.ReasonByDate[o.date] = o.reason
			report.Unplaced = append(report.Unplaced, o.unplaced...)
		}
	}

	if len(report.ReasonByDate) == 0 {
		return result
	}
	sort.Strings(report.Unplaced)
	result.Infeasible = report
	if mode == StrictAll {
		result.Assignment = Assignment{}
	}
	return result
}

func taskIDs(tasks []Task) []string {
	ids := make([]string, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}
	sort.Strings(ids)
	return ids
}
