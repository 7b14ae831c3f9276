// Package redis provides the traced Redis client that backs the shared
// (multi-replica) public key cache. It wraps go-redis
// (github.com/redis/go-redis/v9), records an OpenTelemetry span per
// command, and converts failures into [*sserr.Error] values.
//
// # Configuration
//
//	cfg := redis.DefaultConfig()
//	cfg.Host = "redis.internal"
//	cfg.Password = redis.Secret(os.Getenv("ASAP_REDIS_PASSWORD"))
//	client, err := redis.NewClient(ctx, *cfg)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
// [Config] can also be loaded with the config package; its env tags are
// unprefixed so the loader prefix decides the namespace:
//
//	cfg := config.MustLoad[redis.Config](config.New().WithEnvPrefix("ASAP_REDIS"))
//
// For unit tests, use [NewFromClient] to inject a mock [Cmdable].
package redis

import (
	"net/url"
	"time"

	sserr "github.com/StricklySoft/stricklysoft-asap/pkg/errors"
)

// maxStatementTruncateLen bounds the statement recorded on spans.
const maxStatementTruncateLen = 100

// Default connection settings.
const (
	DefaultHost          = "localhost"
	DefaultPort          = 6379
	DefaultDB            = 0
	DefaultPoolSize      = 10
	DefaultMinIdleConns  = 2
	DefaultMaxRetries    = 3
	DefaultDialTimeout   = 5 * time.Second
	DefaultReadTimeout   = 3 * time.Second
	DefaultWriteTimeout  = 3 * time.Second
	DefaultHealthTimeout = 5 * time.Second
)

// Secret is a string that redacts itself when printed or serialized. Use
// [Secret.Value] to obtain the real value.
type Secret string

const redacted = "[REDACTED]"

// String returns "[REDACTED]".
func (s Secret) String() string {
	return redacted
}

// GoString returns "[REDACTED]" for %#v formatting.
func (s Secret) GoString() string {
	return redacted
}

// Value returns the actual secret string.
func (s Secret) Value() string {
	return string(s)
}

// MarshalText implements encoding.TextMarshaler and always yields
// "[REDACTED]".
func (s Secret) MarshalText() ([]byte, error) {
	return []byte(redacted), nil
}

// Config holds the Redis connection configuration. When URI is set it
// takes precedence over Host, Port, DB and Password.
type Config struct {
	// URI is a redis:// or rediss:// connection string.
	URI string `json:"uri,omitempty" yaml:"uri" env:"URI"`

	Host string `json:"host,omitempty" yaml:"host" env:"HOST" envDefault:"localhost"`
	Port int    `json:"port,omitempty" yaml:"port" env:"PORT" envDefault:"6379"`
	DB   int    `json:"db" yaml:"db" env:"DB"`

	// Password is never serialized.
	Password Secret `json:"-" yaml:"-" env:"PASSWORD"`

	PoolSize     int           `json:"poolSize,omitempty" yaml:"poolSize" env:"POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `json:"minIdleConns,omitempty" yaml:"minIdleConns" env:"MIN_IDLE_CONNS" envDefault:"2"`
	MaxRetries   int           `json:"maxRetries,omitempty" yaml:"maxRetries" env:"MAX_RETRIES" envDefault:"3"`
	DialTimeout  time.Duration `json:"dialTimeout,omitempty" yaml:"dialTimeout" env:"DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `json:"readTimeout,omitempty" yaml:"readTimeout" env:"READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `json:"writeTimeout,omitempty" yaml:"writeTimeout" env:"WRITE_TIMEOUT" envDefault:"3s"`

	// TLSEnabled turns on TLS for structured configs. A rediss:// URI
	// enables TLS on its own.
	TLSEnabled bool `json:"tlsEnabled,omitempty" yaml:"tlsEnabled" env:"TLS_ENABLED"`
}

// DefaultConfig returns a Config populated with the package defaults.
func DefaultConfig() *Config {
	return &Config{
		Host:         DefaultHost,
		Port:         DefaultPort,
		DB:           DefaultDB,
		PoolSize:     DefaultPoolSize,
		MinIdleConns: DefaultMinIdleConns,
		MaxRetries:   DefaultMaxRetries,
		DialTimeout:  DefaultDialTimeout,
		ReadTimeout:  DefaultReadTimeout,
		WriteTimeout: DefaultWriteTimeout,
	}
}

// Validate applies defaults to zero-valued fields and checks the rest.
// It returns a [sserr.CodeConfigInvalid] error for the first problem found.
func (c *Config) Validate() error {
	c.applyDefaults()

	if c.URI != "" {
		u, err := url.Parse(c.URI)
		if err != nil {
			return sserr.Wrap(err, sserr.CodeConfigInvalid, "redis: config URI is invalid")
		}
		if u.Scheme != "redis" && u.Scheme != "rediss" {
			return sserr.ConfigInvalidf("redis: config URI scheme must be redis:// or rediss://, got %q", u.Scheme)
		}
		return nil
	}

	if c.Port < 1 || c.Port > 65535 {
		return sserr.ConfigInvalidf("redis: config port must be between 1 and 65535, got %d", c.Port)
	}
	if c.DB < 0 {
		return sserr.ConfigInvalidf("redis: config db must be >= 0, got %d", c.DB)
	}
	if c.PoolSize < c.MinIdleConns {
		return sserr.ConfigInvalidf("redis: config poolSize (%d) must be >= minIdleConns (%d)", c.PoolSize, c.MinIdleConns)
	}
	for name, d := range map[string]time.Duration{
		"dialTimeout":  c.DialTimeout,
		"readTimeout":  c.ReadTimeout,
		"writeTimeout": c.WriteTimeout,
	} {
		if d < 0 {
			return sserr.ConfigInvalidf("redis: config %s must not be negative, got %v", name, d)
		}
	}

	return nil
}

func (c *Config) applyDefaults() {
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.PoolSize <= 0 {
		c.PoolSize = DefaultPoolSize
	}
	if c.MinIdleConns < 0 {
		c.MinIdleConns = 0
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = DefaultDialTimeout
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
}

// truncateStatement truncates s to [maxStatementTruncateLen] runes,
// appending "..." when it was shortened.
func truncateStatement(s string) string {
	runes := []rune(s)
	if len(runes) <= maxStatementTruncateLen {
		return s
	}
	return string(runes[:maxStatementTruncateLen]) + "..."
}
