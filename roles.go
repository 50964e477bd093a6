package authcore

// Role is the coarse-grained access level carried in token claims and on
// the persisted identity record.
type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RolePartner   Role = "partner"
	RoleDeveloper Role = "developer"
	RoleDemo      Role = "demo"
	RoleAdmin     Role = "admin"
	RoleCreator   Role = "creator"
)

// AllRoles lists every recognized role.
var AllRoles = []Role{
	RoleUser,
	RoleModerator,
	RolePartner,
	RoleDeveloper,
	RoleDemo,
	RoleAdmin,
	RoleCreator,
}

// ParseRole maps a string onto a recognized Role. Anything outside the
// enumerated set is ErrInvalidRole; authorization never guesses.
func ParseRole(s string) (Role, error) {
	for _, r := range AllRoles {
		if string(r) == s {
			return r, nil
		}
	}
	return "", ErrInvalidRole
}

// Authorize reports whether the role held in claims is one of required.
// It is a pure check over already-validated claims: nil claims, an empty
// role, and an unrecognized role all deny. An empty required set only
// demands that the claims carry a recognized role.
func Authorize(claims *SessionClaims, required ...Role) bool {
	if claims == nil {
		return false
	}
	held, err := ParseRole(string(claims.Role))
	if err != nil {
		return false
	}
	if len(required) == 0 {
		return true
	}
	for _, r := range required {
		if held == r {
			return true
		}
	}
	return false
}
