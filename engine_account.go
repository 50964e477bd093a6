package authcore

import (
	"context"
	"errors"
	"strings"

	"github.com/maximsenn/authcore/cache"
	"github.com/maximsenn/authcore/store"
)

// Register creates a new identity. The email must be unused, the
// password must meet the configured minimum length, and the role, when
// given, must be recognized. The new account starts active.
func (e *Engine) Register(ctx context.Context, input RegisterInput) (*Profile, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, ErrInvalidEmail
	}
	if len(input.Password) < e.config.Account.MinPasswordLength {
		return nil, ErrWeakPassword
	}

	role := e.config.Account.DefaultRole
	if input.Role != "" {
		parsed, err := ParseRole(input.Role)
		if err != nil {
			return nil, err
		}
		role = parsed
	}

	digest, err := e.hasher.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	user := &store.User{
		Email:        email,
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		PasswordHash: digest,
		Role:         string(role),
		IsActive:     true,
	}

	sctx, cancel := e.storeCtx(ctx)
	err = e.users.Create(sctx, user)
	cancel()
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			e.metrics.Inc(MetricAccountCreationDuplicate)
			e.emitAudit(ctx, AuditAccountCreated, "", false, err, nil)
			return nil, err
		}
		return nil, mapStoreErr(err)
	}

	e.evictUserList(ctx)
	e.metrics.Inc(MetricAccountCreationSuccess)
	e.emitAudit(ctx, AuditAccountCreated, user.ID, true, nil, nil)
	return profileOf(user), nil
}

// GetUser returns the profile for id, served from cache when possible.
func (e *Engine) GetUser(ctx context.Context, id string) (*Profile, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	load := func(ctx context.Context) (Profile, error) {
		sctx, cancel := e.storeCtx(ctx)
		defer cancel()
		user, err := e.users.FindByID(sctx, id)
		if err != nil {
			return Profile{}, err
		}
		return *profileOf(user), nil
	}

	if e.cache == nil || !e.config.Cache.Enabled {
		p, err := load(ctx)
		if err != nil {
			return nil, mapStoreErr(err)
		}
		return &p, nil
	}

	p, err := cache.GetOrSetJSON(ctx, e.cache, e.keys.User(id), e.keys.SubjectTag(id), e.config.Cache.UserTTL, load)
	if err != nil {
		if errors.Is(err, cache.ErrUnavailable) {
			p, err := load(ctx)
			if err != nil {
				return nil, mapStoreErr(err)
			}
			return &p, nil
		}
		return nil, mapStoreErr(err)
	}
	return &p, nil
}

// ListUsers returns every profile, served from cache when possible.
func (e *Engine) ListUsers(ctx context.Context) ([]Profile, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	load := func(ctx context.Context) ([]Profile, error) {
		sctx, cancel := e.storeCtx(ctx)
		defer cancel()
		users, err := e.users.List(sctx)
		if err != nil {
			return nil, err
		}
		profiles := make([]Profile, 0, len(users))
		for i := range users {
			profiles = append(profiles, *profileOf(&users[i]))
		}
		return profiles, nil
	}

	if e.cache == nil || !e.config.Cache.Enabled {
		profiles, err := load(ctx)
		return profiles, mapStoreErr(err)
	}

	profiles, err := cache.GetOrSetJSON(ctx, e.cache, e.keys.UserList(), "", e.config.Cache.UserListTTL, load)
	if err != nil {
		if errors.Is(err, cache.ErrUnavailable) {
			profiles, err := load(ctx)
			return profiles, mapStoreErr(err)
		}
		return nil, mapStoreErr(err)
	}
	return profiles, nil
}

// UpdateUser applies a partial update to the identity. A password or
// active-status change additionally terminates the refresh chain, so
// existing refresh tokens stop working. All cached state for the subject
// is evicted before returning.
func (e *Engine) UpdateUser(ctx context.Context, id string, input UpdateUserInput) (*Profile, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	patch := store.Patch{
		FirstName: input.FirstName,
		LastName:  input.LastName,
		IsActive:  input.IsActive,
	}
	if input.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*input.Email))
		if email == "" || !strings.Contains(email, "@") {
			return nil, ErrInvalidEmail
		}
		patch.Email = &email
	}
	if input.Role != nil {
		role, err := ParseRole(*input.Role)
		if err != nil {
			return nil, err
		}
		s := string(role)
		patch.Role = &s
	}
	if input.Password != nil {
		if len(*input.Password) < e.config.Account.MinPasswordLength {
			return nil, ErrWeakPassword
		}
		digest, err := e.hasher.Hash(*input.Password)
		if err != nil {
			return nil, err
		}
		patch.PasswordHash = &digest
	}

	sctx, cancel := e.storeCtx(ctx)
	user, err := e.users.Update(sctx, id, patch)
	cancel()
	if err != nil {
		return nil, mapStoreErr(err)
	}

	// A changed password or a deactivation must orphan any outstanding
	// refresh token.
	deactivated := input.IsActive != nil && !*input.IsActive
	if patch.PasswordHash != nil || deactivated {
		sctx, cancel := e.storeCtx(ctx)
		err := e.users.SetRefreshHash(sctx, id, nil)
		cancel()
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, mapStoreErr(err)
		}
	}

	if err := e.evictSubject(ctx, id); err != nil {
		return nil, err
	}
	e.evictUserList(ctx)

	e.metrics.Inc(MetricAccountUpdated)
	if deactivated {
		e.metrics.Inc(MetricAccountDeactivated)
		e.emitAudit(ctx, AuditAccountDeactivate, id, true, nil, nil)
	} else {
		e.emitAudit(ctx, AuditAccountUpdated, id, true, nil, nil)
	}
	return profileOf(user), nil
}

// DeactivateUser marks the identity inactive, terminates its refresh
// chain, and evicts its cached state. Validation for its outstanding
// access tokens fails from the next uncached check on.
func (e *Engine) DeactivateUser(ctx context.Context, id string) (*Profile, error) {
	inactive := false
	return e.UpdateUser(ctx, id, UpdateUserInput{IsActive: &inactive})
}

// DeleteUser removes the identity and evicts its cached state.
func (e *Engine) DeleteUser(ctx context.Context, id string) error {
	if err := e.ready(); err != nil {
		return err
	}

	sctx, cancel := e.storeCtx(ctx)
	err := e.users.Delete(sctx, id)
	cancel()
	if err != nil {
		return mapStoreErr(err)
	}

	if err := e.evictSubject(ctx, id); err != nil {
		return err
	}
	e.evictUserList(ctx)

	e.metrics.Inc(MetricAccountDeleted)
	e.emitAudit(ctx, AuditAccountDeleted, id, true, nil, nil)
	return nil
}

// evictUserList drops the cached all-users read. Best effort: the entry
// carries a short TTL and self-heals.
func (e *Engine) evictUserList(ctx context.Context) {
	if e.cache == nil {
		return
	}
	_ = e.cache.Evict(ctx, e.keys.UserList())
}
