package domain

import "time"

// SessionStatus tracks a therapy session through its lifecycle.
type SessionStatus string

const (
	SessionUnscheduled SessionStatus = "unscheduled"
	SessionScheduled   SessionStatus = "scheduled"
	SessionInProgress  SessionStatus = "in_progress"
	SessionCompleted   SessionStatus = "completed"
	SessionCancelled   SessionStatus = "cancelled"
)

// Valid reports whether s is one of the known statuses.
func (s SessionStatus) Valid() bool {
	switch s {
	case SessionUnscheduled, SessionScheduled, SessionInProgress, SessionCompleted, SessionCancelled:
		return true
	}
	return false
}

// Schedulable reports whether a session in this status may receive a therapist.
func (s SessionStatus) Schedulable() bool {
	return s == SessionUnscheduled || s == SessionScheduled
}

// Session is a therapy session for a child on a fixed date and time window.
type Session struct {
	ID          string        `json:"id"`
	ChildID     string        `json:"child_id,omitempty"`
	TherapistID *string       `json:"therapist_id,omitempty"`
	Date        Date          `json:"date"`
	Start       TimeOfDay     `json:"start_time"`
	End         TimeOfDay     `json:"end_time"`
	Status      SessionStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

func (s *Session) IsAssigned() bool {
	return s != nil && s.TherapistID != nil && *s.TherapistID != ""
}

// Validate checks the time window of the session.
func (s *Session) Validate() error {
	if s == nil || s.ID == "" {
		return ErrInvalidPayload
	}
	if !s.Start.Valid() || !s.End.Valid() || s.Start >= s.End {
		return Detail(ErrMalformedInterval, "session %s: %s-%s", s.ID, s.Start, s.End)
	}
	return nil
}
