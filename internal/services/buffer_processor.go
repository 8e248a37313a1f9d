package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/fastygo/scheduler/domain"
	"github.com/fastygo/scheduler/internal/infrastructure/buffer"
	"github.com/fastygo/scheduler/repository"
)

// ConnectionHealth abstracts the connection monitor functionality.
type ConnectionHealth interface {
	IsOnline() bool
}

// ProcessorConfig controls how frequently the buffer is drained.
type ProcessorConfig struct {
	Interval   time.Duration
	BatchSize  int
	MaxRetries int
	Retention  time.Duration

	// Pool and LockTTL identify the run lock held while a batch is replayed.
	Pool    string
	LockTTL time.Duration
}

// BufferProcessor replays buffered assignment batches against the store.
// A batch is always written whole; a batch that went stale is dropped.
// Replays hold the pool's run lock, so they never interleave with a run.
type BufferProcessor struct {
	store    *buffer.Store
	monitor  ConnectionHealth
	sessions repository.SessionRepository
	runs     repository.RunRepository
	locker   repository.RunLocker
	logger   *zap.Logger
	cron     *cron.Cron
	cfg      ProcessorConfig
}

// NewBufferProcessor wires the drain and cleanup jobs. runs may be nil, in
// which case run records are not updated after a replay. locker may be nil
// only when nothing else writes assignments to the pool.
func NewBufferProcessor(
	store *buffer.Store,
	monitor ConnectionHealth,
	sessions repository.SessionRepository,
	runs repository.RunRepository,
	locker repository.RunLocker,
	logger *zap.Logger,
	cfg ProcessorConfig,
) (*BufferProcessor, error) {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 24 * time.Hour
	}
	if cfg.Pool == "" {
		cfg.Pool = "default"
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	bp := &BufferProcessor{
		store:    store,
		monitor:  monitor,
		sessions: sessions,
		runs:     runs,
		locker:   locker,
		logger:   logger.Named("buffer"),
		cfg:      cfg,
		cron:     cron.New(cron.WithSeconds()),
	}

	if _, err := bp.cron.AddFunc(fmt.Sprintf("@every %s", cfg.Interval), func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Interval)
		defer cancel()
		if err := bp.Drain(ctx); err != nil {
			bp.logger.Error("buffer drain failed", zap.Error(err))
		}
	}); err != nil {
		return nil, err
	}
	if _, err := bp.cron.AddFunc("@hourly", bp.cleanup); err != nil {
		return nil, err
	}
	return bp, nil
}

func (bp *BufferProcessor) Start() {
	if bp == nil || bp.cron == nil {
		return
	}
	bp.cron.Start()
	bp.logger.Info("buffer processor started", zap.Duration("interval", bp.cfg.Interval))
}

// Stop waits for a running drain to finish or for ctx to expire.
func (bp *BufferProcessor) Stop(ctx context.Context) {
	if bp == nil || bp.cron == nil {
		return
	}
	stopCtx := bp.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	bp.logger.Info("buffer processor stopped")
}

// Drain replays up to BatchSize buffered items while the store is online.
// The tick is skipped while a scheduling run holds the pool.
func (bp *BufferProcessor) Drain(ctx context.Context) error {
	if bp == nil || bp.store == nil {
		return nil
	}
	if bp.monitor != nil && !bp.monitor.IsOnline() {
		bp.logger.Debug("skipping buffer drain (offline)")
		return nil
	}

	items, err := bp.store.GetBatch(bp.cfg.BatchSize)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}

	if bp.locker != nil {
		lease, err := bp.locker.Acquire(ctx, bp.cfg.Pool, bp.cfg.LockTTL)
		if errors.Is(err, domain.ErrRunInProgress) {
			bp.logger.Debug("skipping buffer drain (run in progress)", zap.String("pool", bp.cfg.Pool))
			return nil
		}
		if err != nil {
			return err
		}
		defer func() {
			if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
				bp.logger.Warn("failed to release run lock", zap.Error(err))
			}
		}()
	}

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := bp.processItem(ctx, item)
		switch {
		case err == nil:
			if err := bp.store.Remove(item); err != nil {
				bp.logger.Warn("failed to purge processed buffer item", zap.Error(err))
			}
			bp.markRun(ctx, item.RunID, domain.RunApplied)

		case errors.Is(err, domain.ErrStaleAssignment):
			bp.logger.Warn("dropping stale assignment batch",
				zap.String("item_id", item.ID),
				zap.String("run_id", item.RunID),
				zap.Error(err))
			_ = bp.store.Remove(item)
			bp.markRun(ctx, item.RunID, domain.RunFailed)

		default:
			bp.logger.Error("failed to process buffer item",
				zap.String("item_id", item.ID),
				zap.String("entity", item.Entity),
				zap.Error(err))

			item.Retries++
			if item.Retries >= bp.cfg.MaxRetries {
				bp.logger.Warn("dropping buffer item (max retries reached)", zap.String("item_id", item.ID))
				_ = bp.store.Remove(item)
				bp.markRun(ctx, item.RunID, domain.RunFailed)
				continue
			}
			if err := bp.store.Requeue(item); err != nil {
				bp.logger.Error("failed to requeue buffer item", zap.Error(err))
			}
		}
	}
	return nil
}

// BufferOperation persists an item for a later Drain.
func (bp *BufferProcessor) BufferOperation(ctx context.Context, item buffer.Item) error {
	if bp == nil || bp.store == nil {
		return fmt.Errorf("buffer processor not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := bp.store.Enqueue(item); err != nil {
		return err
	}
	bp.logger.Info("buffered write", zap.String("entity", item.Entity), zap.String("run_id", item.RunID))
	return nil
}

// Size returns the number of buffered items.
func (bp *BufferProcessor) Size() int {
	if bp == nil || bp.store == nil {
		return 0
	}
	size, err := bp.store.Size()
	if err != nil {
		return 0
	}
	return size
}

func (bp *BufferProcessor) cleanup() {
	removed, err := bp.store.Cleanup(time.Now().Add(-bp.cfg.Retention))
	if err != nil {
		bp.logger.Error("buffer cleanup failed", zap.Error(err))
		return
	}
	if removed > 0 {
		bp.logger.Warn("expired buffer items removed", zap.Int("count", removed))
	}
}

func (bp *BufferProcessor) processItem(ctx context.Context, item buffer.Item) error {
	switch item.Entity {
	case buffer.EntityAssignment:
		if item.Operation != buffer.OperationApply {
			return fmt.Errorf("unsupported operation %s", item.Operation)
		}
		var batch []domain.SessionAssignment
		if err := json.Unmarshal(item.Data, &batch); err != nil {
			return err
		}
		return bp.sessions.ApplyAssignment(ctx, batch)
	default:
		return fmt.Errorf("unsupported entity %s", item.Entity)
	}
}

func (bp *BufferProcessor) markRun(ctx context.Context, runID string, status domain.RunStatus) {
	if bp.runs == nil || runID == "" {
		return
	}
	run, err := bp.runs.Get(ctx, runID)
	if err != nil {
		bp.logger.Warn("buffered run not found", zap.String("run_id", runID), zap.Error(err))
		return
	}
	run.Status = status
	run.Touch()
	if err := bp.runs.Save(ctx, run); err != nil {
		bp.logger.Warn("failed to update run status", zap.String("run_id", runID), zap.Error(err))
	}
}
