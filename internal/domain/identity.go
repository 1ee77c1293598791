package domain

// Role is the trust tier of an authenticated user. It selects the
// rate-limit tier and nothing else in this service.
type Role string

const (
	RolePatient      Role = "Patient"
	RoleProfessional Role = "Professional"
	RoleNGO          Role = "NGO"
	RoleAdmin        Role = "Admin"
)

// ParseRole maps a token claim to a Role, defaulting unknown values to
// Patient (the most restrictive tier).
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleProfessional, RoleNGO, RoleAdmin:
		return Role(s)
	default:
		return RolePatient
	}
}

// Identity is the decoded per-request caller, produced once by the auth
// middleware from the external identity service's token.
type Identity struct {
	UserID string
	Email  string
	Role   Role
}
