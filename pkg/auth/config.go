package auth

import (
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/StricklySoft/stricklysoft-asap/pkg/config"
	sserr "github.com/StricklySoft/stricklysoft-asap/pkg/errors"
	"github.com/StricklySoft/stricklysoft-asap/pkg/keycache"
	"github.com/StricklySoft/stricklysoft-asap/pkg/keyfetch"
)

// EnvPrefix is the environment variable prefix used by
// [LoadValidatorConfig].
const EnvPrefix = "ASAP"

// LeewayEnvVar overrides [DefaultLeeway] in [DefaultValidatorConfig].
const LeewayEnvVar = "ASAP_SERVER_LEEWAY_SECONDS"

// ValidatorConfig holds the configuration for [Validator]. It is read
// once by [NewValidator] and never mutated afterwards.
//
// Start from [DefaultValidatorConfig] or [LoadValidatorConfig] rather than
// a zero value, since a zero LeewaySeconds means no leeway at all.
type ValidatorConfig struct {
	// PublicKeyBaseURL is the key server root. An issuer's key is fetched
	// from <PublicKeyBaseURL>/<iss>/public.pem.
	PublicKeyBaseURL string `json:"publicKeyBaseUrl" yaml:"publicKeyBaseUrl" env:"PUBLIC_KEY_BASE_URL" required:"true"`

	// ResourceServerAudience is this server's audience name.
	ResourceServerAudience string `json:"resourceServerAudience" yaml:"resourceServerAudience" env:"RESOURCE_SERVER_AUDIENCE" required:"true"`

	// IgnoreMaxLifeTime accepts tokens living longer than [MaxLifetime].
	IgnoreMaxLifeTime bool `json:"ignoreMaxLifeTime" yaml:"ignoreMaxLifeTime" env:"IGNORE_MAX_LIFETIME"`

	// LeewaySeconds is the clock skew tolerated for exp and nbf.
	LeewaySeconds int `json:"leewaySeconds" yaml:"leewaySeconds" env:"SERVER_LEEWAY_SECONDS" envDefault:"30"`

	// KeyFetchTimeout bounds one key server request. Zero means
	// [keyfetch.DefaultTimeout].
	KeyFetchTimeout time.Duration `json:"keyFetchTimeout" yaml:"keyFetchTimeout" env:"KEY_FETCH_TIMEOUT" envDefault:"2m"`

	// KeyCacheTTL and KeyCacheSweepInterval configure the in-memory key
	// cache the validator creates when none is injected. Zero means the
	// keycache defaults.
	KeyCacheTTL           time.Duration `json:"keyCacheTtl" yaml:"keyCacheTtl" env:"KEY_CACHE_TTL" envDefault:"24h"`
	KeyCacheSweepInterval time.Duration `json:"keyCacheSweepInterval" yaml:"keyCacheSweepInterval" env:"KEY_CACHE_SWEEP_INTERVAL" envDefault:"10s"`
}

// DefaultValidatorConfig returns a config with the default timings. The
// leeway honours [LeewayEnvVar] when it holds a non-negative integer.
// PublicKeyBaseURL and ResourceServerAudience are left for the caller.
func DefaultValidatorConfig() ValidatorConfig {
	cfg := ValidatorConfig{
		LeewaySeconds:         int(DefaultLeeway.Seconds()),
		KeyFetchTimeout:       keyfetch.DefaultTimeout,
		KeyCacheTTL:           keycache.DefaultTTL,
		KeyCacheSweepInterval: keycache.DefaultSweepInterval,
	}
	if v, ok := os.LookupEnv(LeewayEnvVar); ok {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.LeewaySeconds = n
		}
	}
	return cfg
}

// LoadValidatorConfig loads a ValidatorConfig from the optional YAML or
// JSON file at path and from ASAP_* environment variables, which take
// precedence. An empty path reads the environment only.
func LoadValidatorConfig(path string) (ValidatorConfig, error) {
	var cfg ValidatorConfig
	loader := config.New().WithEnvPrefix(EnvPrefix)
	if path != "" {
		loader = loader.WithFile(path)
	}
	if err := loader.Load(&cfg); err != nil {
		return ValidatorConfig{}, err
	}
	return cfg, nil
}

// Validate reports the first problem with the config:
//   - [sserr.CodeConfigMissing]: PublicKeyBaseURL or ResourceServerAudience is empty
//   - [sserr.CodeConfigInvalid]: a malformed base URL or a negative setting
func (c *ValidatorConfig) Validate() error {
	if c.PublicKeyBaseURL == "" {
		return sserr.ConfigMissing("publicKeyBaseUrl")
	}
	if c.ResourceServerAudience == "" {
		return sserr.ConfigMissing("resourceServerAudience")
	}

	u, err := url.Parse(c.PublicKeyBaseURL)
	if err != nil {
		return sserr.Wrap(err, sserr.CodeConfigInvalid, "auth: publicKeyBaseUrl is not a valid URL")
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return sserr.ConfigInvalidf("auth: publicKeyBaseUrl must be an absolute http(s) URL, got %q", c.PublicKeyBaseURL)
	}

	if c.LeewaySeconds < 0 {
		return sserr.ConfigInvalidf("auth: leewaySeconds must not be negative, got %d", c.LeewaySeconds)
	}
	for _, f := range []struct {
		name string
		d    time.Duration
	}{
		{"keyFetchTimeout", c.KeyFetchTimeout},
		{"keyCacheTtl", c.KeyCacheTTL},
		{"keyCacheSweepInterval", c.KeyCacheSweepInterval},
	} {
		if f.d < 0 {
			return sserr.ConfigInvalidf("auth: %s must not be negative, got %v", f.name, f.d)
		}
	}
	return nil
}

// Leeway returns LeewaySeconds as a duration.
func (c *ValidatorConfig) Leeway() time.Duration {
	return time.Duration(c.LeewaySeconds) * time.Second
}
