// Package memstore is a mutex-guarded in-memory credential store used in
// tests and examples. It implements the same compare-and-swap rotation
// semantics as the Postgres adapter.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/maximsenn/authcore/store"
)

// Store implements store.Users in memory.
type Store struct {
	mu      sync.Mutex
	users   map[string]*store.User
	byEmail map[string]string
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		users:   make(map[string]*store.User),
		byEmail: make(map[string]string),
	}
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// FindByEmail implements store.Users.
func (s *Store) FindByEmail(ctx context.Context, email string) (*store.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byEmail[normalize(email)]
	if !ok {
		return nil, store.ErrNotFound
	}
	return s.users[id].Clone(), nil
}

// FindByID implements store.Users.
func (s *Store) FindByID(ctx context.Context, id string) (*store.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return user.Clone(), nil
}

// Create implements store.Users. It assigns ID and timestamps when unset.
func (s *Store) Create(ctx context.Context, user *store.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	email := normalize(user.Email)
	if _, exists := s.byEmail[email]; exists {
		return store.ErrConflict
	}

	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	user.Email = email

	s.users[user.ID] = user.Clone()
	s.byEmail[email] = user.ID
	return nil
}

// Update implements store.Users.
func (s *Store) Update(ctx context.Context, id string, patch store.Patch) (*store.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}

	if patch.Email != nil {
		email := normalize(*patch.Email)
		if owner, exists := s.byEmail[email]; exists && owner != id {
			return nil, store.ErrConflict
		}
		delete(s.byEmail, user.Email)
		user.Email = email
		s.byEmail[email] = id
	}
	if patch.FirstName != nil {
		user.FirstName = *patch.FirstName
	}
	if patch.LastName != nil {
		user.LastName = *patch.LastName
	}
	if patch.PasswordHash != nil {
		user.PasswordHash = *patch.PasswordHash
	}
	if patch.Role != nil {
		user.Role = *patch.Role
	}
	if patch.IsActive != nil {
		user.IsActive = *patch.IsActive
	}
	user.UpdatedAt = time.Now()

	return user.Clone(), nil
}

// Delete implements store.Users.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return store.ErrNotFound
	}
	delete(s.byEmail, user.Email)
	delete(s.users, id)
	return nil
}

// List implements store.Users. Results are ordered by creation time.
func (s *Store) List(ctx context.Context) ([]store.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]store.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, *u.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// SetRefreshHash implements store.Users.
func (s *Store) SetRefreshHash(ctx context.Context, id string, hash *string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return store.ErrNotFound
	}
	if hash == nil {
		user.RefreshTokenHash = nil
	} else {
		h := *hash
		user.RefreshTokenHash = &h
	}
	user.UpdatedAt = time.Now()
	return nil
}

// RotateRefreshHash implements store.Users with compare-and-swap
// semantics: the swap happens only while holding the store lock, so two
// concurrent rotations with the same previous value cannot both win.
func (s *Store) RotateRefreshHash(ctx context.Context, id, previous, next string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return store.ErrNotFound
	}
	if user.RefreshTokenHash == nil || *user.RefreshTokenHash != previous {
		return store.ErrRefreshHashMismatch
	}
	user.RefreshTokenHash = &next
	user.UpdatedAt = time.Now()
	return nil
}
