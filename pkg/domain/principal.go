package domain

import (
	"strings"

	dErrors "bloodbank/pkg/domain-errors"
)

// Role is the account type selected at login.
type Role string

const (
	RoleDonor    Role = "Donor"
	RolePatient  Role = "Patient"
	RoleHospital Role = "Hospital"
	RoleAdmin    Role = "Admin"
)

// ParseRole accepts the role name case-insensitively.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "donor":
		return RoleDonor, nil
	case "patient":
		return RolePatient, nil
	case "hospital":
		return RoleHospital, nil
	case "admin":
		return RoleAdmin, nil
	case "":
		return "", dErrors.New(dErrors.CodeInvalidInput, "role is required")
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown role: "+s)
	}
}

// IsSelfRegistrable reports whether an account of this role can be created through registration.
func (r Role) IsSelfRegistrable() bool {
	return r == RoleDonor || r == RolePatient || r == RoleHospital
}

func (r Role) String() string { return string(r) }

// Principal is the authenticated caller as established at login.
type Principal struct {
	UserID   UserID `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
}

// Is reports whether the principal acts in the given role.
func (p *Principal) Is(role Role) bool {
	return p != nil && p.Role == role
}
