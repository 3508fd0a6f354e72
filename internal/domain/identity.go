package domain

// Role classifies what an authenticated subject may do.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Identity is the verified representation of the caller, derived strictly
// from validated token claims. It lives for a single request and is attached
// to the request context by the auth middleware.
type Identity struct {
	SubjectID string
	Role      Role
}
