// Package store defines the credential store contract consumed by the
// engine. Implementations own the persisted identity records; the engine
// never mutates them except through the operations declared here.
package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when no identity matches the lookup.
	ErrNotFound = errors.New("user not found")
	// ErrConflict is returned on a duplicate email.
	ErrConflict = errors.New("email already in use")
	// ErrRefreshHashMismatch is returned by RotateRefreshHash when the
	// stored fingerprint no longer matches the expected previous value.
	ErrRefreshHashMismatch = errors.New("refresh hash mismatch")
	// ErrUnavailable is returned when the backing store cannot be reached.
	ErrUnavailable = errors.New("store unavailable")
)

// User is the persisted identity record. PasswordHash and RefreshTokenHash
// are write-only secrets: they must never appear in any outbound
// representation.
type User struct {
	ID               string
	Email            string
	FirstName        string
	LastName         string
	PasswordHash     string
	Role             string
	IsActive         bool
	RefreshTokenHash *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Clone returns a deep copy so callers can hand records across goroutines
// without sharing the RefreshTokenHash pointer.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	out := *u
	if u.RefreshTokenHash != nil {
		h := *u.RefreshTokenHash
		out.RefreshTokenHash = &h
	}
	return &out
}

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	Email        *string
	FirstName    *string
	LastName     *string
	PasswordHash *string
	Role         *string
	IsActive     *bool
}

// Users is the credential store adapter. Every call honors ctx
// cancellation and deadlines; implementations surface ErrUnavailable
// rather than hanging.
type Users interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id string) (*User, error)
	Create(ctx context.Context, user *User) error
	Update(ctx context.Context, id string, patch Patch) (*User, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]User, error)

	// SetRefreshHash overwrites the stored refresh fingerprint
	// unconditionally. A nil hash clears it (logout).
	SetRefreshHash(ctx context.Context, id string, hash *string) error

	// RotateRefreshHash replaces the stored fingerprint only if the
	// current value equals previous (compare-and-swap). A lost race
	// returns ErrRefreshHashMismatch; the caller must not blind-retry.
	RotateRefreshHash(ctx context.Context, id, previous, next string) error
}
