package postgres

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"

	"github.com/fastygo/scheduler/domain"
)

func TestFromPgTime(t *testing.T) {
	assert.Equal(t, domain.MustParseTimeOfDay("09:30"), fromPgTime(pgtype.Time{Microseconds: (9*3600 + 30*60) * 1_000_000, Valid: true}))
	assert.Equal(t, domain.EndOfDay, fromPgTime(pgtype.Time{Microseconds: 86_400_000_000, Valid: true}))
	assert.Equal(t, domain.NewTimeOfDay(10, 0, 1), fromPgTime(pgtype.Time{Microseconds: 36_001_999_999, Valid: true}))
}

func TestNullables(t *testing.T) {
	assert.Nil(t, nullTime(time.Time{}))
	assert.Nil(t, nullDate(nil))
	d := domain.MustParseDate("2024-03-01")
	assert.Equal(t, time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), nullDate(&d))
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, 100, clampLimit(0))
	assert.Equal(t, 100, clampLimit(500))
	assert.Equal(t, 20, clampLimit(20))
}

func TestClampOffset(t *testing.T) {
	assert.Equal(t, 0, clampOffset(-5))
	assert.Equal(t, 0, clampOffset(0))
	assert.Equal(t, 40, clampOffset(40))
}
