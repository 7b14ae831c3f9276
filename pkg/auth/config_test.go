package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StricklySoft/stricklysoft-asap/internal/testutil"
	sserr "github.com/StricklySoft/stricklysoft-asap/pkg/errors"
)

func validConfig() ValidatorConfig {
	cfg := ValidatorConfig{
		LeewaySeconds:         30,
		KeyFetchTimeout:       2 * time.Minute,
		KeyCacheTTL:           24 * time.Hour,
		KeyCacheSweepInterval: 10 * time.Second,
	}
	cfg.PublicKeyBaseURL = "https://keys.test/"
	cfg.ResourceServerAudience = "svc-b"
	return cfg
}

func TestValidatorConfig_Validate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		mutate  func(c *ValidatorConfig)
		want    sserr.Code
		message string
	}{
		{"missing base url", func(c *ValidatorConfig) { c.PublicKeyBaseURL = "" },
			sserr.CodeConfigMissing, "required config value publicKeyBaseUrl is missing"},
		{"missing audience", func(c *ValidatorConfig) { c.ResourceServerAudience = "" },
			sserr.CodeConfigMissing, "required config value resourceServerAudience is missing"},
		{"relative base url", func(c *ValidatorConfig) { c.PublicKeyBaseURL = "keys.test/path" },
			sserr.CodeConfigInvalid, "publicKeyBaseUrl"},
		{"non http scheme", func(c *ValidatorConfig) { c.PublicKeyBaseURL = "ftp://keys.test" },
			sserr.CodeConfigInvalid, "publicKeyBaseUrl"},
		{"unparseable url", func(c *ValidatorConfig) { c.PublicKeyBaseURL = "http://[::1" },
			sserr.CodeConfigInvalid, "publicKeyBaseUrl"},
		{"negative leeway", func(c *ValidatorConfig) { c.LeewaySeconds = -1 },
			sserr.CodeConfigInvalid, "leewaySeconds"},
		{"negative fetch timeout", func(c *ValidatorConfig) { c.KeyFetchTimeout = -time.Second },
			sserr.CodeConfigInvalid, "keyFetchTimeout"},
		{"negative cache ttl", func(c *ValidatorConfig) { c.KeyCacheTTL = -time.Second },
			sserr.CodeConfigInvalid, "keyCacheTtl"},
		{"negative sweep interval", func(c *ValidatorConfig) { c.KeyCacheSweepInterval = -time.Second },
			sserr.CodeConfigInvalid, "keyCacheSweepInterval"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if testutil.AssertErrorCode(t, err, tt.want) {
				assert.Contains(t, err.Error(), tt.message)
				assert.True(t, sserr.IsConfig(err))
			}
		})
	}
}

// With several negative durations the first field in declaration order
// is always the one reported.
func TestValidatorConfig_ValidateReportsDurationsInOrder(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.KeyFetchTimeout = -time.Second
	cfg.KeyCacheTTL = -time.Second
	cfg.KeyCacheSweepInterval = -time.Second

	for i := 0; i < 50; i++ {
		err := cfg.Validate()
		testutil.RequireErrorCode(t, err, sserr.CodeConfigInvalid)
		require.Contains(t, err.Error(), "keyFetchTimeout")
	}

	cfg.KeyFetchTimeout = 0
	for i := 0; i < 50; i++ {
		require.Contains(t, cfg.Validate().Error(), "keyCacheTtl")
	}
}

func TestValidatorConfig_ValidateAcceptsZeroDurations(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.LeewaySeconds = 0
	cfg.KeyFetchTimeout = 0
	cfg.KeyCacheTTL = 0
	cfg.KeyCacheSweepInterval = 0
	assert.NoError(t, cfg.Validate())
}

func TestValidatorConfig_Leeway(t *testing.T) {
	t.Parallel()
	cfg := ValidatorConfig{LeewaySeconds: 45}
	assert.Equal(t, 45*time.Second, cfg.Leeway())
}

// ===========================================================================
// Defaults and loading (these mutate the process environment)
// ===========================================================================

func TestDefaultValidatorConfig(t *testing.T) {
	t.Setenv(LeewayEnvVar, "")

	cfg := DefaultValidatorConfig()
	assert.Equal(t, 30, cfg.LeewaySeconds)
	assert.Equal(t, 2*time.Minute, cfg.KeyFetchTimeout)
	assert.Equal(t, 24*time.Hour, cfg.KeyCacheTTL)
	assert.Equal(t, 10*time.Second, cfg.KeyCacheSweepInterval)
	assert.Empty(t, cfg.PublicKeyBaseURL)
}

func TestDefaultValidatorConfig_LeewayFromEnv(t *testing.T) {
	t.Setenv(LeewayEnvVar, "5")
	assert.Equal(t, 5, DefaultValidatorConfig().LeewaySeconds)

	t.Setenv(LeewayEnvVar, "-3")
	assert.Equal(t, 30, DefaultValidatorConfig().LeewaySeconds, "negative override is ignored")

	t.Setenv(LeewayEnvVar, "lots")
	assert.Equal(t, 30, DefaultValidatorConfig().LeewaySeconds, "non-numeric override is ignored")
}

func TestLoadValidatorConfig_FileAndEnv(t *testing.T) {
	path := testutil.TempConfigFile(t, `publicKeyBaseUrl: https://keys.file.test
resourceServerAudience: svc-b
leewaySeconds: 10
keyCacheTtl: 1h
`, ".yaml")
	t.Setenv("ASAP_PUBLIC_KEY_BASE_URL", "https://keys.env.test")
	t.Setenv("ASAP_IGNORE_MAX_LIFETIME", "true")

	cfg, err := LoadValidatorConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "https://keys.env.test", cfg.PublicKeyBaseURL)
	assert.Equal(t, "svc-b", cfg.ResourceServerAudience)
	assert.True(t, cfg.IgnoreMaxLifeTime)
	assert.Equal(t, 10, cfg.LeewaySeconds)
	assert.Equal(t, time.Hour, cfg.KeyCacheTTL)
	assert.Equal(t, 2*time.Minute, cfg.KeyFetchTimeout)
}

func TestLoadValidatorConfig_EnvLeeway(t *testing.T) {
	t.Setenv("ASAP_PUBLIC_KEY_BASE_URL", "https://keys.test")
	t.Setenv("ASAP_RESOURCE_SERVER_AUDIENCE", "svc-b")
	t.Setenv(LeewayEnvVar, "90")

	cfg, err := LoadValidatorConfig("")
	require.NoError(t, err)
	assert.Equal(t, 90, cfg.LeewaySeconds)
	assert.Equal(t, 90*time.Second, cfg.Leeway())
}

func TestLoadValidatorConfig_MissingRequired(t *testing.T) {
	t.Setenv("ASAP_PUBLIC_KEY_BASE_URL", "")
	t.Setenv("ASAP_RESOURCE_SERVER_AUDIENCE", "svc-b")

	_, err := LoadValidatorConfig("")
	testutil.RequireErrorCode(t, err, sserr.CodeConfigMissing)
	assert.Contains(t, err.Error(), "publicKeyBaseUrl")
}
