package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fastygo/scheduler/domain"
	"github.com/fastygo/scheduler/repository"
)

type sessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository returns a Postgres-backed implementation of SessionRepository.
func NewSessionRepository(pool *pgxpool.Pool) repository.SessionRepository {
	return &sessionRepository{pool: pool}
}

func (r *sessionRepository) ListUnassigned(ctx context.Context, filter repository.SessionFilter) ([]domain.Session, error) {
	return listUnassigned(ctx, r.pool, filter)
}

func (r *sessionRepository) ApplyAssignment(ctx context.Context, batch []domain.SessionAssignment) error {
	if len(batch) == 0 {
		return nil
	}

	const query = `
	UPDATE sessions
	SET therapist_id = $2,
		status = 'scheduled',
		updated_at = NOW()
	WHERE id = $1
	  AND therapist_id IS NULL
	  AND status IN ('unscheduled', 'scheduled')
	`

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		queued := &pgx.Batch{}
		for _, a := range batch {
			if a.SessionID == "" || a.TherapistID == "" {
				return domain.ErrInvalidPayload
			}
			queued.Queue(query, a.SessionID, a.TherapistID)
		}

		results := tx.SendBatch(ctx, queued)
		for _, a := range batch {
			tag, err := results.Exec()
			if err != nil {
				results.Close()
				return err
			}
			if tag.RowsAffected() == 0 {
				results.Close()
				return domain.Detail(domain.ErrStaleAssignment, "session %s", a.SessionID)
			}
		}
		return results.Close()
	})
}

func listUnassigned(ctx context.Context, q querier, filter repository.SessionFilter) ([]domain.Session, error) {
	const query = `
	SELECT id, child_id, therapist_id, date, start_time, end_time, status, created_at, updated_at
	FROM sessions
	WHERE therapist_id IS NULL
	  AND status = ANY($1)
	  AND ($2::date IS NULL OR date >= $2)
	  AND ($3::date IS NULL OR date <= $3)
	ORDER BY date, start_time, id
	`

	statuses := filter.Statuses
	if len(statuses) == 0 {
		statuses = []domain.SessionStatus{domain.SessionUnscheduled, domain.SessionScheduled}
	}
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}

	rows, err := q.Query(ctx, query, names, nullDate(filter.From), nullDate(filter.To))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []domain.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *session)
	}
	return sessions, rows.Err()
}

func scanSession(row scanner) (*domain.Session, error) {
	var session domain.Session
	var (
		childID     *string
		therapistID *string
		date        time.Time
		start, end  pgtype.Time
		status      string
	)

	if err := row.Scan(
		&session.ID,
		&childID,
		&therapistID,
		&date,
		&start,
		&end,
		&status,
		&session.CreatedAt,
		&session.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, err
	}

	if childID != nil {
		session.ChildID = *childID
	}
	session.TherapistID = therapistID
	session.Date = domain.DateOf(date)
	session.Start = fromPgTime(start)
	session.End = fromPgTime(end)
	session.Status = domain.SessionStatus(status)
	if !session.Status.Valid() {
		return nil, fmt.Errorf("session %s: unknown status %q", session.ID, status)
	}
	return &session, nil
}
