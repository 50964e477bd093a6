package authcore

import (
	"errors"
	"testing"
)

func TestParseRole(t *testing.T) {
	for _, role := range AllRoles {
		parsed, err := ParseRole(string(role))
		if err != nil || parsed != role {
			t.Fatalf("role %q failed to parse: %v", role, err)
		}
	}

	for _, bad := range []string{"", "Admin", "root", "superuser"} {
		if _, err := ParseRole(bad); !errors.Is(err, ErrInvalidRole) {
			t.Fatalf("expected ErrInvalidRole for %q, got %v", bad, err)
		}
	}
}

func TestAuthorize(t *testing.T) {
	admin := &SessionClaims{SubjectID: "u1", Role: RoleAdmin}
	user := &SessionClaims{SubjectID: "u2", Role: RoleUser}
	unknown := &SessionClaims{SubjectID: "u3", Role: "emperor"}

	cases := []struct {
		name     string
		claims   *SessionClaims
		required []Role
		want     bool
	}{
		{"admin passes admin gate", admin, []Role{RoleAdmin, RoleCreator}, true},
		{"user denied admin gate", user, []Role{RoleAdmin, RoleCreator}, false},
		{"any recognized role passes open gate", user, nil, true},
		{"unknown role always denies", unknown, nil, false},
		{"unknown role denies gate", unknown, []Role{RoleAdmin}, false},
		{"nil claims deny", nil, nil, false},
		{"empty role denies", &SessionClaims{}, []Role{RoleUser}, false},
	}
	for _, tc := range cases {
		if got := Authorize(tc.claims, tc.required...); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}
