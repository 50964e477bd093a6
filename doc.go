// Package authcore is an embeddable single-sign-on identity engine. It
// verifies credentials against a pluggable store, issues paired access
// and refresh tokens, rotates refresh tokens on use with single-winner
// semantics, validates access tokens fail-closed, and fronts its reads
// with a tag-aware Redis cache.
//
// Build an engine with a Builder:
//
//	engine, err := authcore.New().
//		WithConfig(cfg).
//		WithUsers(users).
//		WithRedis(rdb).
//		Build()
//
// The HTTP surface in package httpapi and the authcored binary wrap the
// engine; embedders can also call it directly.
package authcore
