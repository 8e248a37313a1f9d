package services

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/fastygo/scheduler/domain"
	"github.com/fastygo/scheduler/internal/scheduler"
	"github.com/fastygo/scheduler/usecase/schedule"
)

// RunExecutor is satisfied by *schedule.UseCase.
type RunExecutor interface {
	Run(ctx context.Context, req schedule.RunRequest) (*schedule.Outcome, error)
}

// RunJobConfig describes the periodic scheduling run. Spec uses the standard
// five-field cron syntax or a descriptor such as "@daily".
type RunJobConfig struct {
	Spec    string
	Mode    scheduler.Mode
	Apply   bool
	Timeout time.Duration
}

// RunJob triggers scheduling runs on a cron schedule.
type RunJob struct {
	exec   RunExecutor
	cfg    RunJobConfig
	cron   *cron.Cron
	logger *zap.Logger
}

func NewRunJob(exec RunExecutor, cfg RunJobConfig, logger *zap.Logger) (*RunJob, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	job := &RunJob{
		exec:   exec,
		cfg:    cfg,
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		logger: logger.Named("run_job"),
	}
	if _, err := job.cron.AddFunc(cfg.Spec, job.Trigger); err != nil {
		return nil, domain.WrapError(domain.ErrCodeInvalid, "invalid SCHEDULER_CRON", err)
	}
	return job, nil
}

// Trigger performs one run. A run already in progress elsewhere is skipped.
func (j *RunJob) Trigger() {
	ctx, cancel := context.WithTimeout(context.Background(), j.cfg.Timeout)
	defer cancel()

	outcome, err := j.exec.Run(ctx, schedule.RunRequest{
		Mode:        j.cfg.Mode,
		Apply:       j.cfg.Apply,
		RequestedBy: "cron",
	})
	switch {
	case errors.Is(err, domain.ErrRunInProgress):
		j.logger.Info("scheduled run skipped, pool locked")
	case err != nil:
		j.logger.Error("scheduled run failed", zap.Error(err))
	default:
		j.logger.Info("scheduled run done", zap.String("run_id", outcome.RunID), zap.String("status", string(outcome.Status)))
	}
}

func (j *RunJob) Start() {
	j.cron.Start()
	j.logger.Info("scheduled runs enabled", zap.String("spec", j.cfg.Spec), zap.String("mode", j.cfg.Mode.String()))
}

func (j *RunJob) Stop(ctx context.Context) {
	stopCtx := j.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
}
