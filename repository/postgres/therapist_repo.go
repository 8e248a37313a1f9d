package postgres

import (
	"context"
	"encoding/json"

	"github.com/fastygo/scheduler/domain"
)

// listTherapists returns every therapist ordered by id.
func listTherapists(ctx context.Context, q querier) ([]domain.Therapist, error) {
	const query = `
		SELECT id, user_id, specialization, years_of_experience, availability, created_at, updated_at
		FROM therapists
		ORDER BY id
	`
	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var therapists []domain.Therapist
	for rows.Next() {
		var (
			t            domain.Therapist
			userID       *string
			availability []byte
		)
		if err := rows.Scan(&t.ID, &userID, &t.Specialization, &t.YearsOfExperience, &availability, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		if userID != nil {
			t.UserID = *userID
		}
		if len(availability) > 0 {
			_ = json.Unmarshal(availability, &t.Availability)
		}
		therapists = append(therapists, t)
	}
	return therapists, rows.Err()
}
