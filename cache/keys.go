package cache

import (
	"crypto/sha256"
	"encoding/hex"
)

// Keys builds the deterministic cache key layout: operation name plus an
// identity-dependent component, under a fixed namespace prefix. Raw
// secrets never appear in keys; token-derived keys use a SHA-256
// fingerprint of the token.
type Keys struct {
	prefix string
}

// NewKeys returns a key builder under the given namespace prefix.
func NewKeys(prefix string) Keys {
	if prefix == "" {
		prefix = "authcore"
	}
	return Keys{prefix: prefix}
}

// User keys a single-user read by subject id.
func (k Keys) User(id string) string {
	return k.prefix + ":user:" + id
}

// UserList keys the all-users read.
func (k Keys) UserList() string {
	return k.prefix + ":users:all"
}

// Validate keys a token validation verdict by the token's fingerprint.
func (k Keys) Validate(token string) string {
	return k.prefix + ":validate:" + Fingerprint(token)
}

// SubjectTag names the tag set grouping every cache entry that a state
// transition for the subject must invalidate.
func (k Keys) SubjectTag(id string) string {
	return k.prefix + ":tag:subject:" + id
}

// Fingerprint is a one-way digest used in place of token material.
func Fingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
