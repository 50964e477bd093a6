package authcore

import (
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/maximsenn/authcore/cache"
	"github.com/maximsenn/authcore/password"
	"github.com/maximsenn/authcore/store"
	"github.com/maximsenn/authcore/token"
)

// Builder assembles an Engine. A zero Builder plus WithUsers and token
// secrets is the minimum viable configuration; everything else defaults.
type Builder struct {
	config    Config
	hasConfig bool
	redis     redis.UniversalClient
	users     store.Users
	auditSink AuditSink
}

func New() *Builder {
	return &Builder{}
}

// WithConfig replaces the default configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	b.hasConfig = true
	return b
}

// WithUsers sets the credential store. Required.
func (b *Builder) WithUsers(users store.Users) *Builder {
	b.users = users
	return b
}

// WithRedis sets the Redis client backing the cache. Without one the
// engine runs uncached.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithAuditSink sets the destination for audit events.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// Build validates the configuration and returns a ready Engine.
func (b *Builder) Build() (*Engine, error) {
	cfg := b.config
	if !b.hasConfig {
		cfg = DefaultConfig()
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if b.users == nil {
		return nil, errors.New("a credential store is required")
	}

	codec, err := token.NewCodec(token.Config{
		AccessSecret:  cfg.Token.AccessSecret,
		RefreshSecret: cfg.Token.RefreshSecret,
		AccessTTL:     cfg.Token.AccessTTL,
		RefreshTTL:    cfg.Token.RefreshTTL,
		Issuer:        cfg.Token.Issuer,
		Leeway:        cfg.Token.Leeway,
	})
	if err != nil {
		return nil, err
	}

	hasher, err := password.NewHasher(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:  cfg,
		users:   b.users,
		keys:    cache.NewKeys(cfg.Cache.Prefix),
		codec:   codec,
		hasher:  hasher,
		audit:   newAuditDispatcher(cfg.Audit, b.auditSink),
		metrics: NewMetrics(cfg.Metrics),
	}
	if cfg.Cache.Enabled && b.redis != nil {
		engine.cache = cache.New(b.redis, cfg.Cache.OpTimeout)
	}
	return engine, nil
}
