package authcore

import (
	"errors"
	"time"
)

// TokenConfig holds the signing secrets and lifetimes for both token
// kinds. The two secrets must differ.
type TokenConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	Leeway        time.Duration
}

// PasswordConfig tunes the argon2id work factor used for password and
// refresh fingerprint hashing.
type PasswordConfig struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32

	// UpgradeOnLogin rehashes a stored password when the work factor has
	// been raised since the digest was written.
	UpgradeOnLogin bool
}

// CacheConfig controls the read-through cache in front of validation and
// account reads. With Enabled false the engine works against the store
// directly.
type CacheConfig struct {
	Enabled     bool
	Prefix      string
	OpTimeout   time.Duration
	ValidateTTL time.Duration
	UserTTL     time.Duration
	UserListTTL time.Duration
}

// StoreConfig bounds every credential store call.
type StoreConfig struct {
	Timeout time.Duration
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int

	// DropIfFull drops events instead of blocking the calling operation
	// when the buffer is saturated.
	DropIfFull bool
}

// MetricsConfig controls the in-process counters.
type MetricsConfig struct {
	Enabled bool

	// EnableLatencyHistograms additionally tracks validation latency
	// buckets.
	EnableLatencyHistograms bool
}

// AccountConfig tunes account management behavior.
type AccountConfig struct {
	DefaultRole       Role
	MinPasswordLength int
}

// Config is the full engine configuration. Zero-value durations fall back
// to the defaults from DefaultConfig.
type Config struct {
	Token    TokenConfig
	Password PasswordConfig
	Cache    CacheConfig
	Store    StoreConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
	Account  AccountConfig
}

// DefaultConfig returns the baseline configuration. Secrets are not
// defaulted and must always be supplied by the embedder.
func DefaultConfig() Config {
	return Config{
		Token: TokenConfig{
			AccessTTL:  time.Hour,
			RefreshTTL: 7 * 24 * time.Hour,
			Issuer:     "authcore",
			Leeway:     30 * time.Second,
		},
		Password: PasswordConfig{
			Memory:         64 * 1024,
			Time:           3,
			Parallelism:    2,
			SaltLength:     16,
			KeyLength:      32,
			UpgradeOnLogin: true,
		},
		Cache: CacheConfig{
			Enabled:     true,
			Prefix:      "authcore",
			OpTimeout:   2 * time.Second,
			ValidateTTL: 30 * time.Second,
			UserTTL:     5 * time.Minute,
			UserListTTL: time.Minute,
		},
		Store: StoreConfig{
			Timeout: 3 * time.Second,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
		Account: AccountConfig{
			DefaultRole:       RoleUser,
			MinPasswordLength: 10,
		},
	}
}

func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.Token.AccessTTL <= 0 {
		c.Token.AccessTTL = def.Token.AccessTTL
	}
	if c.Token.RefreshTTL <= 0 {
		c.Token.RefreshTTL = def.Token.RefreshTTL
	}
	if c.Token.Issuer == "" {
		c.Token.Issuer = def.Token.Issuer
	}
	if c.Password.Memory == 0 {
		c.Password = def.Password
	}
	if c.Cache.Prefix == "" {
		c.Cache.Prefix = def.Cache.Prefix
	}
	if c.Cache.OpTimeout <= 0 {
		c.Cache.OpTimeout = def.Cache.OpTimeout
	}
	if c.Cache.ValidateTTL <= 0 {
		c.Cache.ValidateTTL = def.Cache.ValidateTTL
	}
	if c.Cache.UserTTL <= 0 {
		c.Cache.UserTTL = def.Cache.UserTTL
	}
	if c.Cache.UserListTTL <= 0 {
		c.Cache.UserListTTL = def.Cache.UserListTTL
	}
	if c.Store.Timeout <= 0 {
		c.Store.Timeout = def.Store.Timeout
	}
	if c.Audit.BufferSize <= 0 {
		c.Audit.BufferSize = def.Audit.BufferSize
	}
	if c.Account.DefaultRole == "" {
		c.Account.DefaultRole = def.Account.DefaultRole
	}
	if c.Account.MinPasswordLength <= 0 {
		c.Account.MinPasswordLength = def.Account.MinPasswordLength
	}
}

func (c *Config) validate() error {
	if len(c.Token.AccessSecret) == 0 || len(c.Token.RefreshSecret) == 0 {
		return errors.New("token secrets are required")
	}
	if string(c.Token.AccessSecret) == string(c.Token.RefreshSecret) {
		return errors.New("access and refresh secrets must differ")
	}
	if _, err := ParseRole(string(c.Account.DefaultRole)); err != nil {
		return errors.New("default role is not a recognized role")
	}
	return nil
}
