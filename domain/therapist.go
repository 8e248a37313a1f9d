package domain

import "time"

// WeeklyAvailability maps a lowercase weekday name to free-form time windows
// ("09:00-12:00"). It is carried through the system but not enforced by the
// scheduler.
type WeeklyAvailability map[string][]string

// Therapist is an assignable practitioner.
type Therapist struct {
	ID                string             `json:"id"`
	UserID            string             `json:"user_id,omitempty"`
	Specialization    string             `json:"specialization,omitempty"`
	YearsOfExperience int                `json:"years_of_experience"`
	Availability      WeeklyAvailability `json:"availability,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}
