package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/fastygo/scheduler/domain"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func nullTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}

func nullDate(d *domain.Date) interface{} {
	if d == nil || d.IsZero() {
		return nil
	}
	return d.Time()
}

// fromPgTime truncates a TIME column to whole seconds. 24:00:00 maps to EndOfDay.
func fromPgTime(t pgtype.Time) domain.TimeOfDay {
	return domain.TimeOfDay(t.Microseconds / 1_000_000)
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 100 {
		return 100
	}
	return limit
}

func clampOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
