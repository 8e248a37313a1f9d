package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fastygo/scheduler/domain"
	"github.com/fastygo/scheduler/repository"
)

type runRepository struct {
	pool *pgxpool.Pool
}

// NewRunRepository creates a Postgres-backed RunRepository implementation.
func NewRunRepository(pool *pgxpool.Pool) repository.RunRepository {
	return &runRepository{pool: pool}
}

func (r *runRepository) Get(ctx context.Context, id string) (*domain.ScheduleRun, error) {
	const query = `
	SELECT id, pool, mode, status, requested_by, sessions, therapists, assigned, unplaced, report, created_at, updated_at
	FROM schedule_runs
	WHERE id = $1
	`
	return scanRun(r.pool.QueryRow(ctx, query, id))
}

func (r *runRepository) List(ctx context.Context, filter repository.RunFilter) ([]domain.ScheduleRun, error) {
	const query = `
	SELECT id, pool, mode, status, requested_by, sessions, therapists, assigned, unplaced, report, created_at, updated_at
	FROM schedule_runs
	WHERE ($1 = '' OR pool = $1)
	  AND ($2 = '' OR status = $2)
	ORDER BY created_at DESC
	LIMIT $3 OFFSET $4
	`
	rows, err := r.pool.Query(ctx, query, filter.Pool, string(filter.Status), clampLimit(filter.Limit), clampOffset(filter.Offset))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []domain.ScheduleRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

func (r *runRepository) Save(ctx context.Context, run *domain.ScheduleRun) error {
	if run == nil || run.ID == "" {
		return domain.ErrInvalidPayload
	}

	const query = `
	INSERT INTO schedule_runs (id, pool, mode, status, requested_by, sessions, therapists, assigned, unplaced, report, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, COALESCE($11, NOW()), NOW())
	ON CONFLICT (id) DO UPDATE
	SET status = EXCLUDED.status,
		assigned = EXCLUDED.assigned,
		unplaced = EXCLUDED.unplaced,
		report = EXCLUDED.report,
		updated_at = NOW()
	RETURNING created_at, updated_at
	`

	return r.pool.QueryRow(ctx, query,
		run.ID,
		run.Pool,
		run.Mode,
		string(run.Status),
		run.RequestedBy,
		run.Sessions,
		run.Therapists,
		run.Assigned,
		run.Unplaced,
		[]byte(run.Report),
		nullTime(run.CreatedAt),
	).Scan(&run.CreatedAt, &run.UpdatedAt)
}

func scanRun(row scanner) (*domain.ScheduleRun, error) {
	var run domain.ScheduleRun
	var (
		status string
		report []byte
	)

	if err := row.Scan(
		&run.ID,
		&run.Pool,
		&run.Mode,
		&status,
		&run.RequestedBy,
		&run.Sessions,
		&run.Therapists,
		&run.Assigned,
		&run.Unplaced,
		&report,
		&run.CreatedAt,
		&run.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRunNotFound
		}
		return nil, err
	}

	run.Status = domain.RunStatus(status)
	if len(report) > 0 {
		run.Report = make([]byte, len(report))
		copy(run.Report, report)
	}
	return &run, nil
}
