package authcore

import (
	"time"

	"github.com/maximsenn/authcore/internal/audit"
	"github.com/maximsenn/authcore/store"
)

// User aliases the persisted identity record.
type User = store.User

// Audit model re-exported so embedders only import the root package.
type (
	AuditEvent = audit.Event
	AuditSink  = audit.Sink
)

var NewAuditChannelSink = audit.NewChannelSink

// TokenPair is the result of a successful login or refresh. The refresh
// token is redeemable exactly once; redeeming it rotates the pair.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// SessionClaims is the identity attached to a validated access token.
type SessionClaims struct {
	SubjectID string    `json:"subject_id"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ValidationResult is the verdict of Validate. When Valid is false,
// Claims is nil and no reason is exposed.
type ValidationResult struct {
	Valid  bool           `json:"valid"`
	Claims *SessionClaims `json:"claims,omitempty"`
}

// Profile is the outbound representation of an identity. It carries no
// secret material.
type Profile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Role      Role      `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func profileOf(u *store.User) *Profile {
	if u == nil {
		return nil
	}
	return &Profile{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      Role(u.Role),
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// RegisterInput is the payload for creating an identity. Role may be
// empty, in which case the configured default role applies.
type RegisterInput struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role,omitempty"`
}

// UpdateUserInput is a partial account update. Nil fields are untouched.
type UpdateUserInput struct {
	Email     *string `json:"email,omitempty"`
	Password  *string `json:"password,omitempty"`
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Role      *string `json:"role,omitempty"`
	IsActive  *bool   `json:"is_active,omitempty"`
}
