package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fastygo/scheduler/domain"
	"github.com/fastygo/scheduler/repository"
)

type snapshotReader struct {
	pool *pgxpool.Pool
}

// NewSnapshotReader reads sessions and therapists inside one read-only
// repeatable-read transaction so both lists come from the same point in time.
func NewSnapshotReader(pool *pgxpool.Pool) repository.SnapshotReader {
	return &snapshotReader{pool: pool}
}

func (r *snapshotReader) Snapshot(ctx context.Context, filter repository.SessionFilter) (*domain.Snapshot, error) {
	var snap domain.Snapshot
	err := pgx.BeginTxFunc(ctx, r.pool, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	}, func(tx pgx.Tx) error {
		sessions, err := listUnassigned(ctx, tx, filter)
		if err != nil {
			return err
		}
		therapists, err := listTherapists(ctx, tx)
		if err != nil {
			return err
		}
		snap.Sessions = sessions
		snap.Therapists = therapists
		return nil
	})
	if err != nil {
		return nil, err
	}
	snap.TakenAt = time.Now()
	return &snap, nil
}
