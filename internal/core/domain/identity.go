package domain

type Role string

const (
	RolePassenger Role = "passenger"
	RoleAdmin     Role = "admin"
)

// AnonymousEmail is the owner sentinel for unauthenticated form submissions.
const AnonymousEmail = "anonymous@rail.local"

// Identity is what the session provider knows about the current caller.
type Identity struct {
	Email string
	Role  Role
}

// Anonymous is the identity used when no session is present.
func Anonymous() Identity {
	return Identity{Email: "", Role: RolePassenger}
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

func (i Identity) IsAuthenticated() bool {
	return i.Email != ""
}

// OwnerEmail resolves the email recorded on complaints this caller files.
func (i Identity) OwnerEmail() string {
	if i.Email == "" {
		return AnonymousEmail
	}
	return i.Email
}
