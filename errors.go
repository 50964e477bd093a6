package authcore

import "errors"

var (
	// ErrInvalidCredentials covers both an unknown email and a password
	// mismatch; callers must not be able to tell the two apart.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInactiveAccount is returned when the identity exists but has been
	// deactivated.
	ErrInactiveAccount = errors.New("account inactive")
	// ErrInvalidRefreshToken covers every refresh failure: malformed token,
	// unknown subject, missing or mismatched fingerprint, expired token,
	// and a rotation lost to a concurrent refresh.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	// ErrUnauthorized is returned when the role check denies an operation.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidRole is returned when a role outside the enumerated set is
	// requested.
	ErrInvalidRole = errors.New("invalid role")
	// ErrInvalidEmail is returned when an email fails shape validation.
	ErrInvalidEmail = errors.New("invalid email")
	// ErrWeakPassword is returned when a password does not meet the
	// configured minimum length.
	ErrWeakPassword = errors.New("password below minimum length")
	// ErrUpstreamTimeout is returned when the credential store or cache did
	// not answer within the configured deadline.
	ErrUpstreamTimeout = errors.New("upstream timeout")
	// ErrEngineNotReady is returned when the engine was not fully built.
	ErrEngineNotReady = errors.New("engine not initialized")
)
