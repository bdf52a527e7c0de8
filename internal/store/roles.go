// ABOUTME: Role names assigned to principals
// ABOUTME: A principal has exactly one role, set when it is created

package store

// Role represents the role held by a principal
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ValidRoles lists all valid role names
var ValidRoles = []Role{
	RoleUser,
	RoleAdmin,
}

// Satisfies reports whether a principal holding r may perform an operation
// that requires required. Roles match exactly; admin is not a superset of user.
func (r Role) Satisfies(required Role) bool {
	return r == required
}

// Valid reports whether r is one of ValidRoles.
func (r Role) Valid() bool {
	for _, v := range ValidRoles {
		if r == v {
			return true
		}
	}
	return false
}
