package domain

// Role is the caller's role carried in the access token.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleTherapist Role = "therapist"
	RoleParent    Role = "parent"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleTherapist, RoleParent:
		return true
	}
	return false
}
