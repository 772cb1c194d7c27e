package constants

// Role is a closed set; permissions are derived from it in internal/authz.
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleManager Role = "MANAGER"
	RoleAgent   Role = "AGENT"
	RoleViewer  Role = "VIEWER"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleAgent, RoleViewer:
		return true
	}
	return false
}

// IsPrivileged reports whether the role sees and mutates every entity.
func (r Role) IsPrivileged() bool {
	return r == RoleAdmin || r == RoleManager
}
