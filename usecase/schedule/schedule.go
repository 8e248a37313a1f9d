package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fastygo/scheduler/domain"
	"github.com/fastygo/scheduler/internal/scheduler"
	"github.com/fastygo/scheduler/pkg/logger"
	"github.com/fastygo/scheduler/repository"
	"github.com/fastygo/scheduler/usecase"
)

// Config tunes scheduling runs against the store.
type Config struct {
	Pool    string
	LockTTL time.Duration
}

// Deps groups the collaborators of the use case. Locker, Runs, Buffer and
// Recorder are optional.
type Deps struct {
	Snapshots repository.SnapshotReader
	Sessions  repository.SessionRepository
	Runs      repository.RunRepository
	Locker    repository.RunLocker
	Buffer    usecase.AssignmentBuffer
	Recorder  usecase.RunRecorder
	Solver    *scheduler.Solver
}

type UseCase struct {
	deps   Deps
	cfg    Config
	logger *zap.Logger
}

func New(deps Deps, cfg Config, log *zap.Logger) *UseCase {
	if log == nil {
		log = zap.NewNop()
	}
	if deps.Solver == nil {
		deps.Solver = scheduler.New(scheduler.WithLogger(log))
	}
	if cfg.Pool == "" {
		cfg.Pool = "default"
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = time.Minute
	}
	return &UseCase{
		deps:   deps,
		cfg:    cfg,
		logger: log,
	}
}

// Outcome is the result of planning one batch. It is computed without any
// write; Apply persists it.
type Outcome struct {
	RunID      string            `json:"run_id"`
	Pool       string            `json:"pool"`
	Mode       scheduler.Mode    `json:"mode"`
	Status     domain.RunStatus  `json:"status"`
	Sessions   int               `json:"sessions"`
	Therapists int               `json:"therapists"`
	Conflicts  []scheduler.Pair  `json:"conflicts"`
	Result     *scheduler.Result `json:"result"`
}

// Batch converts the assignment into store records ordered by session id.
func (o *Outcome) Batch() []domain.SessionAssignment {
	if o == nil || o.Result == nil {
		return nil
	}
	pairs := o.Result.Assignment.Pairs()
	batch := make([]domain.SessionAssignment, len(pairs))
	for i, p := range pairs {
		batch[i] = domain.SessionAssignment{SessionID: p.TaskID, TherapistID: p.ResourceID}
	}
	return batch
}

func (o *Outcome) unplaced() int {
	if o == nil || o.Result == nil || o.Result.Infeasible == nil {
		return 0
	}
	return len(o.Result.Infeasible.Unplaced)
}

// RunRequest describes a run against the store.
type RunRequest struct {
	Mode        scheduler.Mode
	Apply       bool
	From        *domain.Date
	To          *domain.Date
	RequestedBy string
}

// Snapshot reads the unassigned sessions in [from, to] and every therapist
// from one consistent read. Nil bounds are open.
func (uc *UseCase) Snapshot(ctx context.Context, from, to *domain.Date) (*domain.Snapshot, error) {
	if uc.deps.Snapshots == nil {
		return nil, domain.Detail(domain.ErrStoreUnavailable, "no snapshot source configured")
	}
	snap, err := uc.deps.Snapshots.Snapshot(ctx, repository.SessionFilter{From: from, To: to})
	if err != nil {
		return nil, domain.Detail(domain.ErrStoreUnavailable, "snapshot: %w", err)
	}
	return snap, nil
}

// Pending lists the sessions still waiting for a therapist.
func (uc *UseCase) Pending(ctx context.Context, filter repository.SessionFilter) ([]domain.Session, error) {
	if uc.deps.Sessions == nil {
		return nil, domain.Detail(domain.ErrStoreUnavailable, "no session store configured")
	}
	sessions, err := uc.deps.Sessions.ListUnassigned(ctx, filter)
	if err != nil {
		return nil, domain.Detail(domain.ErrStoreUnavailable, "pending sessions: %w", err)
	}
	return sessions, nil
}

// Plan builds the conflict graph and solves the snapshot. It never writes.
func (uc *UseCase) Plan(ctx context.Context, snap *domain.Snapshot, mode scheduler.Mode) (*Outcome, error) {
	if snap == nil {
		return nil, domain.ErrInvalidPayload
	}
	tasks := make([]scheduler.Task, len(snap.Sessions))
	for i, s := range snap.Sessions {
		tasks[i] = scheduler.Task{ID: s.ID, Date: s.Date, Start: s.Start, End: s.End}
	}
	resources := make([]scheduler.Resource, len(snap.Therapists))
	for i, t := range snap.Therapists {
		resources[i] = scheduler.Resource{ID: t.ID}
	}

	conflicts, err := scheduler.BuildConflicts(tasks)
	if err != nil {
		return nil, err
	}
	result, err := uc.deps.Solver.Solve(ctx, tasks, resources, mode)
	if err != nil {
		return nil, err
	}

	outcome := &Outcome{
		RunID:      uuid.NewString(),
		Pool:       uc.cfg.Pool,
		Mode:       mode,
		Status:     domain.RunPlanned,
		Sessions:   len(tasks),
		Therapists: len(resources),
		Conflicts:  conflicts.Pairs(),
		Result:     result,
	}
	if !result.Feasible() && mode == scheduler.StrictAll {
		outcome.Status = domain.RunInfeasible
	}
	return outcome, nil
}

// Apply writes the planned assignment as one batch. When the store rejects the
// write for a reason other than a stale snapshot, the batch is handed to the
// buffer for a later whole-batch retry and the outcome is marked buffered.
func (uc *UseCase) Apply(ctx context.Context, outcome *Outcome) error {
	if outcome == nil || outcome.Result == nil {
		return domain.ErrInvalidPayload
	}
	if outcome.Status == domain.RunInfeasible {
		return nil
	}
	batch := outcome.Batch()
	if len(batch) == 0 {
		outcome.Status = domain.RunApplied
		return nil
	}
	if uc.deps.Sessions == nil {
		outcome.Status = domain.RunFailed
		return domain.Detail(domain.ErrStoreUnavailable, "no session store configured")
	}

	log := logger.WithRequestID(ctx, uc.logger).With(zap.String("run_id", outcome.RunID))
	err := uc.deps.Sessions.ApplyAssignment(ctx, batch)
	if err == nil {
		outcome.Status = domain.RunApplied
		log.Info("assignment applied", zap.Int("sessions", len(batch)))
		return nil
	}
	if errors.Is(err, domain.ErrStaleAssignment) || uc.deps.Buffer == nil {
		outcome.Status = domain.RunFailed
		return err
	}
	if bufErr := uc.deps.Buffer.BufferAssignment(ctx, outcome.RunID, batch); bufErr != nil {
		log.Error("failed to buffer assignment", zap.Error(bufErr))
		outcome.Status = domain.RunFailed
		return err
	}
	log.Warn("assignment buffered due to store error", zap.Error(err))
	outcome.Status = domain.RunBuffered
	return nil
}

// Run takes the pool lock, reads a snapshot, plans it and, when requested and
// feasible, applies it. Every run that reaches planning is recorded.
func (uc *UseCase) Run(ctx context.Context, req RunRequest) (*Outcome, error) {
	started := time.Now()
	log := logger.WithRequestID(ctx, uc.logger).With(zap.String("pool", uc.cfg.Pool))

	if uc.deps.Locker != nil {
		lease, err := uc.deps.Locker.Acquire(ctx, uc.cfg.Pool, uc.cfg.LockTTL)
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
				log.Warn("failed to release run lock", zap.Error(err))
			}
		}()
	}

	snap, err := uc.Snapshot(ctx, req.From, req.To)
	if err != nil {
		return nil, err
	}

	outcome, err := uc.Plan(ctx, snap, req.Mode)
	if err != nil {
		return nil, err
	}

	var applyErr error
	if req.Apply {
		applyErr = uc.Apply(ctx, outcome)
	}

	uc.record(ctx, outcome, req.RequestedBy)
	if uc.deps.Recorder != nil {
		uc.deps.Recorder.RecordRun(req.Mode.String(), outcome.Status, time.Since(started), len(outcome.Result.Assignment), outcome.unplaced())
	}

	log.Info("schedule run finished",
		zap.String("run_id", outcome.RunID),
		zap.String("mode", req.Mode.String()),
		zap.String("status", string(outcome.Status)),
		zap.Int("sessions", outcome.Sessions),
		zap.Int("therapists", outcome.Therapists),
		zap.Int("assigned", len(outcome.Result.Assignment)),
		zap.Int("unplaced", outcome.unplaced()),
		zap.Duration("elapsed", time.Since(started)),
	)
	if applyErr != nil {
		return outcome, applyErr
	}
	return outcome, nil
}

func (uc *UseCase) GetRun(ctx context.Context, id string) (*domain.ScheduleRun, error) {
	if uc.deps.Runs == nil {
		return nil, domain.ErrRunNotFound
	}
	return uc.deps.Runs.Get(ctx, id)
}

func (uc *UseCase) ListRuns(ctx context.Context, filter repository.RunFilter) ([]domain.ScheduleRun, error) {
	if uc.deps.Runs == nil {
		return nil, nil
	}
	if filter.Pool == "" {
		filter.Pool = uc.cfg.Pool
	}
	return uc.deps.Runs.List(ctx, filter)
}

func (uc *UseCase) record(ctx context.Context, outcome *Outcome, requestedBy string) {
	if uc.deps.Runs == nil {
		return
	}
	run := &domain.ScheduleRun{
		ID:          outcome.RunID,
		Pool:        outcome.Pool,
		Mode:        outcome.Mode.String(),
		Status:      outcome.Status,
		RequestedBy: requestedBy,
		Sessions:    outcome.Sessions,
		Therapists:  outcome.Therapists,
		Assigned:    len(outcome.Result.Assignment),
		Unplaced:    outcome.unplaced(),
	}
	if outcome.Result.Infeasible != nil {
		report, err := json.Marshal(outcome.Result.Infeasible)
		if err != nil {
			uc.logger.Warn("failed to encode infeasibility report", zap.String("run_id", run.ID), zap.Error(err))
		}
		run.Report = report
	}
	run.Touch()
	if err := uc.deps.Runs.Save(context.WithoutCancel(ctx), run); err != nil {
		uc.logger.Warn("failed to record schedule run", zap.String("run_id", run.ID), zap.Error(err))
	}
}
