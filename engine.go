package authcore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/maximsenn/authcore/cache"
	"github.com/maximsenn/authcore/password"
	"github.com/maximsenn/authcore/store"
	"github.com/maximsenn/authcore/token"
)

// Engine is the identity engine. It owns credential verification, token
// issuance, refresh rotation, validation, and account management, and is
// safe for concurrent use. Build one with a Builder.
type Engine struct {
	config  Config
	users   store.Users
	cache   *cache.Cache
	keys    cache.Keys
	codec   *token.Codec
	hasher  *password.Hasher
	audit   *auditDispatcher
	metrics *Metrics
}

// errVerdictNotCacheable marks a validation verdict that must not be
// stored (invalid verdicts are recomputed on every call so revocation is
// never masked by a cached negative).
var errVerdictNotCacheable = errors.New("verdict not cacheable")

func (e *Engine) ready() error {
	if e == nil || e.users == nil || e.codec == nil || e.hasher == nil {
		return ErrEngineNotReady
	}
	return nil
}

// storeCtx bounds a credential store call with the configured timeout.
func (e *Engine) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, e.config.Store.Timeout)
}

// mapStoreErr folds infrastructure failures into the timeout sentinel so
// callers can distinguish "slow backend" from a definitive verdict.
func mapStoreErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, store.ErrUnavailable) {
		return fmt.Errorf("%w: %v", ErrUpstreamTimeout, err)
	}
	return err
}

func (e *Engine) issuePair(u *store.User) (*TokenPair, error) {
	access, err := e.codec.SignAccess(u.ID, u.Email, u.Role)
	if err != nil {
		return nil, err
	}
	refresh, err := e.codec.SignRefresh(u.ID, u.Email, u.Role)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func sessionClaims(c *token.Claims) *SessionClaims {
	sc := &SessionClaims{
		SubjectID: c.Subject,
		Email:     c.Email,
		Role:      Role(c.Role),
	}
	if c.IssuedAt != nil {
		sc.IssuedAt = c.IssuedAt.Time
	}
	if c.ExpiresAt != nil {
		sc.ExpiresAt = c.ExpiresAt.Time
	}
	return sc
}

// Login verifies the credentials for email and, on success, issues a
// fresh token pair and stores the new refresh fingerprint. Any earlier
// refresh token for the identity stops working. Unknown email and wrong
// password are indistinguishable to the caller.
func (e *Engine) Login(ctx context.Context, email, plainPassword string) (*TokenPair, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if email == "" || plainPassword == "" {
		e.metrics.Inc(MetricLoginFailure)
		e.emitAudit(ctx, AuditLogin, "", false, ErrInvalidCredentials, nil)
		return nil, ErrInvalidCredentials
	}

	sctx, cancel := e.storeCtx(ctx)
	user, err := e.users.FindByEmail(sctx, email)
	cancel()
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			e.metrics.Inc(MetricLoginFailure)
			e.emitAudit(ctx, AuditLogin, "", false, ErrInvalidCredentials, nil)
			return nil, ErrInvalidCredentials
		}
		return nil, mapStoreErr(err)
	}

	ok, err := e.hasher.Verify(plainPassword, user.PasswordHash)
	if err != nil || !ok {
		e.metrics.Inc(MetricLoginFailure)
		e.emitAudit(ctx, AuditLogin, user.ID, false, ErrInvalidCredentials, nil)
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		e.metrics.Inc(MetricLoginFailure)
		e.emitAudit(ctx, AuditLogin, user.ID, false, ErrInactiveAccount, nil)
		return nil, ErrInactiveAccount
	}

	if e.config.Password.UpgradeOnLogin {
		if upgrade, err := e.hasher.NeedsUpgrade(user.PasswordHash); err == nil && upgrade {
			e.upgradePasswordHash(ctx, user.ID, plainPassword)
		}
	}

	pair, err := e.issuePair(user)
	if err != nil {
		return nil, err
	}
	fingerprint, err := e.hasher.Hash(pair.RefreshToken)
	if err != nil {
		return nil, err
	}

	sctx, cancel = e.storeCtx(ctx)
	err = e.users.SetRefreshHash(sctx, user.ID, &fingerprint)
	cancel()
	if err != nil {
		return nil, mapStoreErr(err)
	}

	e.metrics.Inc(MetricLoginSuccess)
	e.emitAudit(ctx, AuditLogin, user.ID, true, nil, nil)
	return pair, nil
}

// upgradePasswordHash rewrites the stored digest under the current work
// factor. Best effort: a failed upgrade never fails the login.
func (e *Engine) upgradePasswordHash(ctx context.Context, id, plainPassword string) {
	digest, err := e.hasher.Hash(plainPassword)
	if err != nil {
		return
	}
	sctx, cancel := e.storeCtx(ctx)
	defer cancel()
	_, _ = e.users.Update(sctx, id, store.Patch{PasswordHash: &digest})
}

// Refresh redeems refreshToken for a new token pair. The token is only a
// lookup hint until its fingerprint matches the one stored for the
// subject; rotation is a compare-and-swap, so of N concurrent redemptions
// of the same token exactly one wins and the rest fail.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	fail := func(subjectID string, reuse bool) (*TokenPair, error) {
		e.metrics.Inc(MetricRefreshFailure)
		if reuse {
			e.metrics.Inc(MetricRefreshReuseDetected)
			e.emitAudit(ctx, AuditRefreshReuse, subjectID, false, ErrInvalidRefreshToken, nil)
		} else {
			e.emitAudit(ctx, AuditRefresh, subjectID, false, ErrInvalidRefreshToken, nil)
		}
		return nil, ErrInvalidRefreshToken
	}

	hint, err := e.codec.DecodeUnverified(refreshToken)
	if err != nil {
		return fail("", false)
	}

	sctx, cancel := e.storeCtx(ctx)
	user, err := e.users.FindByID(sctx, hint.Subject)
	cancel()
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fail("", false)
		}
		return nil, mapStoreErr(err)
	}

	if user.RefreshTokenHash == nil {
		return fail(user.ID, false)
	}
	previous := *user.RefreshTokenHash
	ok, err := e.hasher.Verify(refreshToken, previous)
	if err != nil || !ok {
		// A well-formed token for this subject that no longer matches the
		// stored fingerprint was already rotated away: reuse.
		return fail(user.ID, true)
	}

	// The fingerprint established which token this is; signature and
	// expiry still have to hold.
	if _, err := e.codec.VerifyRefresh(refreshToken); err != nil {
		return fail(user.ID, false)
	}
	if !user.IsActive {
		e.metrics.Inc(MetricRefreshFailure)
		e.emitAudit(ctx, AuditRefresh, user.ID, false, ErrInactiveAccount, nil)
		return nil, ErrInactiveAccount
	}

	pair, err := e.issuePair(user)
	if err != nil {
		return nil, err
	}
	next, err := e.hasher.Hash(pair.RefreshToken)
	if err != nil {
		return nil, err
	}

	sctx, cancel = e.storeCtx(ctx)
	err = e.users.RotateRefreshHash(sctx, user.ID, previous, next)
	cancel()
	if err != nil {
		if errors.Is(err, store.ErrRefreshHashMismatch) {
			return fail(user.ID, true)
		}
		if errors.Is(err, store.ErrNotFound) {
			return fail(user.ID, false)
		}
		return nil, mapStoreErr(err)
	}

	e.metrics.Inc(MetricRefreshSuccess)
	e.emitAudit(ctx, AuditRefresh, user.ID, true, nil, nil)
	return pair, nil
}

// Validate reports whether accessToken grants an active session. It
// never returns an error: every failure mode, from a garbled token to an
// unreachable store, is the same invalid verdict. Valid verdicts are
// cached briefly under the subject's tag; invalid ones never are.
func (e *Engine) Validate(ctx context.Context, accessToken string) ValidationResult {
	if e == nil || e.ready() != nil {
		return ValidationResult{}
	}

	start := time.Now()
	defer func() {
		e.metrics.Observe(MetricValidateLatency, time.Since(start))
	}()

	result := e.validateCached(ctx, accessToken)
	if result.Valid {
		e.metrics.Inc(MetricValidateSuccess)
	} else {
		e.metrics.Inc(MetricValidateFailure)
	}
	return result
}

func (e *Engine) validateCached(ctx context.Context, accessToken string) ValidationResult {
	if e.cache == nil || !e.config.Cache.Enabled {
		return e.validateDirect(ctx, accessToken)
	}

	// The unverified subject only picks the tag set; a forged subject can
	// at worst group a worthless entry under someone else's tag. The
	// unverified exp only shortens the entry TTL: a verdict must never
	// outlive the token it vouches for, and for any token that verifies
	// the unverified exp is the real exp.
	tag := ""
	ttl := e.config.Cache.ValidateTTL
	if hint, err := e.codec.DecodeUnverified(accessToken); err == nil {
		tag = e.keys.SubjectTag(hint.Subject)
		if hint.ExpiresAt != nil {
			if remaining := time.Until(hint.ExpiresAt.Time); remaining < ttl {
				ttl = remaining
			}
		}
	}
	if ttl <= 0 {
		return e.validateDirect(ctx, accessToken)
	}

	result, err := cache.GetOrSetJSON(ctx, e.cache, e.keys.Validate(accessToken), tag, ttl,
		func(ctx context.Context) (ValidationResult, error) {
			r := e.validateDirect(ctx, accessToken)
			if !r.Valid {
				return r, errVerdictNotCacheable
			}
			return r, nil
		})
	if err != nil {
		if errors.Is(err, errVerdictNotCacheable) {
			return ValidationResult{}
		}
		// Cache trouble is not a verdict; fall back to the store.
		return e.validateDirect(ctx, accessToken)
	}
	return result
}

// validateDirect is the uncached verdict: signature, expiry, subject
// existence, and active status must all hold.
func (e *Engine) validateDirect(ctx context.Context, accessToken string) ValidationResult {
	claims, err := e.codec.VerifyAccess(accessToken)
	if err != nil {
		return ValidationResult{}
	}

	sctx, cancel := e.storeCtx(ctx)
	user, err := e.users.FindByID(sctx, claims.Subject)
	cancel()
	if err != nil || !user.IsActive {
		return ValidationResult{}
	}

	return ValidationResult{Valid: true, Claims: sessionClaims(claims)}
}

// Logout clears the stored refresh fingerprint for the subject and
// evicts the subject's cached entries. Logging out an already
// logged-out or unknown subject succeeds.
func (e *Engine) Logout(ctx context.Context, subjectID string) error {
	if err := e.ready(); err != nil {
		return err
	}

	sctx, cancel := e.storeCtx(ctx)
	err := e.users.SetRefreshHash(sctx, subjectID, nil)
	cancel()
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return mapStoreErr(err)
	}

	if err := e.evictSubject(ctx, subjectID); err != nil {
		return err
	}

	e.metrics.Inc(MetricLogout)
	e.emitAudit(ctx, AuditLogout, subjectID, true, nil, nil)
	return nil
}

// evictSubject drops every cached entry that a state transition for the
// subject invalidates. Eviction failure surfaces: the caller must know
// stale verdicts may linger.
func (e *Engine) evictSubject(ctx context.Context, subjectID string) error {
	if e.cache == nil {
		return nil
	}
	if err := e.cache.EvictTag(ctx, e.keys.SubjectTag(subjectID)); err != nil {
		return err
	}
	e.metrics.Inc(MetricCacheEviction)
	return nil
}

// Cache eviction kinds accepted by EvictCache.
const (
	CacheKindSubject  = "subject"
	CacheKindUser     = "user"
	CacheKindUserList = "users"
)

// EvictCache removes cached state by kind: "subject" drops everything
// tagged to subjectID (validation verdicts and the profile), "user"
// drops the single profile entry, "users" drops the list.
func (e *Engine) EvictCache(ctx context.Context, kind, subjectID string) error {
	if err := e.ready(); err != nil {
		return err
	}
	if e.cache == nil {
		return nil
	}

	var err error
	switch kind {
	case CacheKindSubject:
		err = e.cache.EvictTag(ctx, e.keys.SubjectTag(subjectID))
	case CacheKindUser:
		err = e.cache.Evict(ctx, e.keys.User(subjectID))
	case CacheKindUserList:
		err = e.cache.Evict(ctx, e.keys.UserList())
	default:
		return fmt.Errorf("unknown cache kind %q", kind)
	}
	if err != nil {
		return err
	}

	e.metrics.Inc(MetricCacheEviction)
	e.emitAudit(ctx, AuditCacheEvicted, subjectID, true, nil, map[string]string{"kind": kind})
	return nil
}

// MetricsSnapshot returns a copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil {
		return MetricsSnapshot{}
	}
	return e.metrics.Snapshot()
}

// AuditDropped returns how many audit events were dropped under
// backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// Close flushes the audit dispatcher. The engine must not be used after
// Close.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
}
