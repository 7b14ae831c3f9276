package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sserr "github.com/StricklySoft/stricklysoft-asap/pkg/errors"
)

// ===========================================================================
// Test Types
// ===========================================================================

type testSecret string

func (s testSecret) String() string { return "[REDACTED]" }

type fetchConfig struct {
	BaseURL  string        `env:"BASE_URL" yaml:"baseUrl" json:"baseUrl"`
	Leeway   int           `env:"LEEWAY_SECONDS" envDefault:"30" yaml:"leewaySeconds" json:"leewaySeconds"`
	Strict   bool          `env:"STRICT" envDefault:"false" yaml:"strict" json:"strict"`
	Timeout  time.Duration `env:"TIMEOUT" envDefault:"2m" yaml:"timeout" json:"timeout"`
	Subjects []string      `env:"SUBJECTS" yaml:"subjects" json:"subjects"`
}

type requiredConfig struct {
	Audience string `env:"AUDIENCE" json:"resourceServerAudience" required:"true"`
	Other    string `env:"OTHER" required:"true"`
}

type nestedConfig struct {
	Name  string          `env:"NAME" json:"name"`
	Cache cacheSubConfig  `env:"CACHE" json:"cache" yaml:"cache"`
	Redis redisLikeConfig `env:"REDIS" json:"redis"`
}

type cacheSubConfig struct {
	TTL time.Duration `env:"TTL" envDefault:"24h" yaml:"ttl" json:"ttl"`
}

type redisLikeConfig struct {
	Addr     string     `env:"ADDR" json:"addr" required:"true"`
	Password testSecret `env:"PASSWORD" json:"password"`
	DB       int32      `env:"DB" envDefault:"0" json:"db"`
}

type validatableConfig struct {
	Leeway int `env:"LEEWAY"`
}

func (c *validatableConfig) Validate() error {
	if c.Leeway < 0 {
		return sserr.ConfigInvalidf("config: leeway must not be negative, got %d", c.Leeway)
	}
	return nil
}

type stdlibValidatableConfig struct {
	Name string `env:"NAME"`
}

func (c *stdlibValidatableConfig) Validate() error {
	if c.Name == "" {
		return errors.New("name is required")
	}
	return nil
}

func envMap(m map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func writeTestFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// ===========================================================================
// Argument checks
// ===========================================================================

func TestLoader_Load_RejectsNonStructPointers(t *testing.T) {
	t.Parallel()
	l := New().WithLookup(envMap(nil))

	var nilPtr *fetchConfig
	for name, arg := range map[string]any{
		"nil pointer":     nilPtr,
		"non pointer":     fetchConfig{},
		"pointer to int":  new(int),
		"untyped nil arg": nil,
	} {
		err := l.Load(arg)
		assert.True(t, sserr.HasCode(err, sserr.CodeConfigInvalid), "%s: got %v", name, err)
	}
}

// ===========================================================================
// Defaults, file, env layering
// ===========================================================================

func TestLoader_Load_Defaults(t *testing.T) {
	t.Parallel()
	var cfg fetchConfig
	require.NoError(t, New().WithLookup(envMap(nil)).Load(&cfg))

	assert.Equal(t, 30, cfg.Leeway)
	assert.False(t, cfg.Strict)
	assert.Equal(t, 2*time.Minute, cfg.Timeout)
	assert.Empty(t, cfg.BaseURL)
}

func TestLoader_Load_DefaultsDoNotOverwriteExisting(t *testing.T) {
	t.Parallel()
	cfg := fetchConfig{Leeway: 5}
	require.NoError(t, New().WithLookup(envMap(nil)).Load(&cfg))
	assert.Equal(t, 5, cfg.Leeway)
}

func TestLoader_Load_YAMLFile(t *testing.T) {
	t.Parallel()
	path := writeTestFile(t, "validator.yaml", `baseUrl: https://keys.test
leewaySeconds: 10
strict: true
subjects: [svc-a, svc-b]
`)
	var cfg fetchConfig
	require.NoError(t, New().WithLookup(envMap(nil)).WithFile(path).Load(&cfg))

	assert.Equal(t, "https://keys.test", cfg.BaseURL)
	assert.Equal(t, 10, cfg.Leeway)
	assert.True(t, cfg.Strict)
	assert.Equal(t, []string{"svc-a", "svc-b"}, cfg.Subjects)
	assert.Equal(t, 2*time.Minute, cfg.Timeout, "unset file value keeps default")
}

func TestLoader_Load_JSONFile(t *testing.T) {
	t.Parallel()
	path := writeTestFile(t, "validator.json", `{"baseUrl":"https://keys.test","leewaySeconds":0}`)
	var cfg fetchConfig
	require.NoError(t, New().WithLookup(envMap(nil)).WithFile(path).Load(&cfg))

	assert.Equal(t, "https://keys.test", cfg.BaseURL)
	assert.Equal(t, 0, cfg.Leeway, "explicit zero in file overrides default")
}

func TestLoader_Load_MissingFileIsNotAnError(t *testing.T) {
	t.Parallel()
	var cfg fetchConfig
	path := filepath.Join(t.TempDir(), "absent.yaml")
	require.NoError(t, New().WithLookup(envMap(nil)).WithFile(path).Load(&cfg))
	assert.Equal(t, 30, cfg.Leeway)
}

func TestLoader_Load_FileErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		path func(t *testing.T) string
	}{
		{"unsupported extension", func(t *testing.T) string { return writeTestFile(t, "cfg.toml", "a = 1") }},
		{"directory traversal", func(t *testing.T) string { return "../etc/asap.yaml" }},
		{"invalid yaml", func(t *testing.T) string { return writeTestFile(t, "cfg.yaml", "baseUrl: [unterminated") }},
		{"invalid json", func(t *testing.T) string { return writeTestFile(t, "cfg.json", "{") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var cfg fetchConfig
			err := New().WithLookup(envMap(nil)).WithFile(tt.path(t)).Load(&cfg)
			testCode(t, err, sserr.CodeConfigInvalid)
		})
	}
}

func TestLoader_Load_EnvOverridesFileAndDefaults(t *testing.T) {
	t.Parallel()
	path := writeTestFile(t, "validator.yaml", "baseUrl: https://file.test\nleewaySeconds: 10\n")
	env := envMap(map[string]string{
		"BASE_URL": "https://env.test",
		"TIMEOUT":  "5s",
		"SUBJECTS": " svc-a , ,svc-b ",
	})

	var cfg fetchConfig
	require.NoError(t, New().WithLookup(env).WithFile(path).Load(&cfg))

	assert.Equal(t, "https://env.test", cfg.BaseURL)
	assert.Equal(t, 10, cfg.Leeway, "file value survives when env is unset")
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, []string{"svc-a", "svc-b"}, cfg.Subjects)
}

func TestLoader_Load_EnvPrefix(t *testing.T) {
	t.Parallel()
	env := envMap(map[string]string{"ASAP_LEEWAY_SECONDS": "45", "LEEWAY_SECONDS": "99"})

	var cfg fetchConfig
	require.NoError(t, New().WithLookup(env).WithEnvPrefix("asap").Load(&cfg))
	assert.Equal(t, 45, cfg.Leeway)
}

func TestLoader_Load_ProcessEnvironment(t *testing.T) {
	t.Setenv("ASAP_CFGTEST_LEEWAY_SECONDS", "12")

	var cfg fetchConfig
	require.NoError(t, New().WithEnvPrefix("ASAP_CFGTEST").Load(&cfg))
	assert.Equal(t, 12, cfg.Leeway)
}

func TestLoader_Load_NestedStructs(t *testing.T) {
	t.Parallel()
	env := envMap(map[string]string{
		"APP_NAME":           "validator",
		"APP_CACHE_TTL":      "1h",
		"APP_REDIS_ADDR":     "localhost:6379",
		"APP_REDIS_PASSWORD": "s3cret",
		"APP_REDIS_DB":       "3",
	})

	var cfg nestedConfig
	require.NoError(t, New().WithLookup(env).WithEnvPrefix("APP").Load(&cfg))

	assert.Equal(t, "validator", cfg.Name)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, testSecret("s3cret"), cfg.Redis.Password)
	assert.Equal(t, int32(3), cfg.Redis.DB)
}

func TestLoader_Load_InvalidEnvValues(t *testing.T) {
	t.Parallel()
	for key, val := range map[string]string{
		"LEEWAY_SECONDS": "thirty",
		"STRICT":         "maybe",
		"TIMEOUT":        "2 minutes",
	} {
		var cfg fetchConfig
		err := New().WithLookup(envMap(map[string]string{key: val})).Load(&cfg)
		testCode(t, err, sserr.CodeConfigInvalid)
	}
}

// ===========================================================================
// Validation
// ===========================================================================

func TestLoader_Load_RequiredUsesJSONName(t *testing.T) {
	t.Parallel()
	var cfg requiredConfig
	err := New().WithLookup(envMap(map[string]string{"OTHER": "x"})).Load(&cfg)

	testCode(t, err, sserr.CodeConfigMissing)
	assert.Contains(t, err.Error(), "required config value resourceServerAudience is missing")
}

func TestLoader_Load_RequiredFallsBackToFieldName(t *testing.T) {
	t.Parallel()
	var cfg requiredConfig
	err := New().WithLookup(envMap(map[string]string{"AUDIENCE": "svc-b"})).Load(&cfg)

	testCode(t, err, sserr.CodeConfigMissing)
	assert.Contains(t, err.Error(), "Other")
}

func TestLoader_Load_NestedRequired(t *testing.T) {
	t.Parallel()
	var cfg nestedConfig
	err := New().WithLookup(envMap(nil)).Load(&cfg)

	testCode(t, err, sserr.CodeConfigMissing)
	assert.Contains(t, err.Error(), "redis.addr")
}

func TestLoader_Load_Validator(t *testing.T) {
	t.Parallel()

	var ok validatableConfig
	require.NoError(t, New().WithLookup(envMap(map[string]string{"LEEWAY": "1"})).Load(&ok))

	var bad validatableConfig
	err := New().WithLookup(envMap(map[string]string{"LEEWAY": "-1"})).Load(&bad)
	testCode(t, err, sserr.CodeConfigInvalid)
	assert.Contains(t, err.Error(), "-1")
}

func TestLoader_Load_ValidatorStdlibErrorIsWrapped(t *testing.T) {
	t.Parallel()
	var cfg stdlibValidatableConfig
	err := New().WithLookup(envMap(nil)).Load(&cfg)

	testCode(t, err, sserr.CodeConfigInvalid)
	assert.Contains(t, err.Error(), "name is required")
}

func TestMustLoad(t *testing.T) {
	t.Parallel()

	cfg := MustLoad[fetchConfig](New().WithLookup(envMap(map[string]string{"BASE_URL": "https://k"})))
	assert.Equal(t, "https://k", cfg.BaseURL)

	assert.Panics(t, func() {
		_ = MustLoad[requiredConfig](New().WithLookup(envMap(nil)))
	})
}

func testCode(t *testing.T, err error, code sserr.Code) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, code, sserr.GetCode(err), "unexpected error: %v", err)
}
