package domain

import "fmt"

// Role is the closed set of user kinds. Values are case-sensitive.
type Role string

const (
	RoleFarmer Role = "farmer"
	RoleAdmin  Role = "admin"
)

// ErrUnknownRole is returned by ParseRole for values outside the Role set.
var ErrUnknownRole = fmt.Errorf("unknown role")

// ParseRole converts a claim or payload string into a Role.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleFarmer, RoleAdmin:
		return Role(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
}

// Valid reports whether r belongs to the Role set.
func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

// DashboardPath returns the landing dashboard for the role.
// The second value is false for roles outside the set.
func (r Role) DashboardPath() (string, bool) {
	switch r {
	case RoleFarmer:
		return "/farmer/dashboard", true
	case RoleAdmin:
		return "/admin/dashboard", true
	default:
		return "", false
	}
}

func (r Role) String() string {
	return string(r)
}
