package domain

import "time"

// Snapshot is a consistent read of the sessions waiting for a therapist and the
// therapist pool they may be assigned to.
type Snapshot struct {
	Sessions   []Session   `json:"sessions"`
	Therapists []Therapist `json:"therapists"`
	TakenAt    time.Time   `json:"taken_at"`
}

// SessionAssignment binds one session to one therapist.
type SessionAssignment struct {
	SessionID   string `json:"session_id"`
	TherapistID string `json:"therapist_id"`
}
