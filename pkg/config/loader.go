// Package config loads settings for the ASAP validator and its supporting
// clients from struct tag defaults, an optional YAML or JSON file, and
// environment variables. Values are resolved in priority order:
//
//	envDefault struct tags  (lowest priority)
//	YAML/JSON config file  (medium priority)
//	Environment variables  (highest priority)
//
// # Struct Tags
//
//   - `env:"VAR_NAME"` maps the field to an environment variable
//   - `envDefault:"value"` sets a default when the field is zero-valued
//   - `required:"true"` fails loading if the field remains zero
//
// Fields also need `yaml` or `json` tags for file-based loading. The json
// tag name is used when reporting a missing required value, so a field
// tagged `json:"publicKeyBaseUrl" required:"true"` fails with
// "required config value publicKeyBaseUrl is missing".
//
// # Usage
//
//	cfg := config.MustLoad[auth.ValidatorConfig](
//	    config.New().WithFile("/etc/asap/validator.yaml"),
//	)
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	sserr "github.com/StricklySoft/stricklysoft-asap/pkg/errors"
)

// durationType distinguishes time.Duration fields from plain int64 ones.
var durationType = reflect.TypeOf(time.Duration(0))

// LookupFunc resolves an environment variable. It has the signature of
// [os.LookupEnv], which is the default.
type LookupFunc func(key string) (string, bool)

// Loader builds and executes configuration loading. Use [New] to create a
// Loader and configure it with the With* methods before calling
// [Loader.Load].
//
// Loader is not safe for concurrent use.
type Loader struct {
	envPrefix string
	filePath  string
	lookup    LookupFunc
}

// New creates a new [Loader] that reads environment variables only (no
// file, no prefix).
func New() *Loader {
	return &Loader{lookup: os.LookupEnv}
}

// WithEnvPrefix sets a prefix that is prepended (with an underscore
// separator) to all environment variable names derived from the "env"
// struct tag. The prefix is uppercased. An empty prefix disables
// prefixing.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = strings.ToUpper(prefix)
	return l
}

// WithFile sets the path to a YAML (.yaml, .yml) or JSON (.json)
// configuration file. A missing file is not an error. The path must not
// contain ".." sequences.
func (l *Loader) WithFile(path string) *Loader {
	l.filePath = path
	return l
}

// WithLookup replaces the environment source. Tests use it to supply a
// fixed map instead of mutating the process environment.
func (l *Loader) WithLookup(fn LookupFunc) *Loader {
	if fn != nil {
		l.lookup = fn
	}
	return l
}

// Load populates the given struct pointer. After loading, fields tagged
// `required:"true"` must be non-zero ([sserr.CodeConfigMissing]) and, if
// the struct implements [Validator], its Validate method is called.
// Loading failures use [sserr.CodeConfigInvalid].
func (l *Loader) Load(cfg any) error {
	rv := reflect.ValueOf(cfg)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return sserr.New(sserr.CodeConfigInvalid,
			"config: Load requires a non-nil pointer to a struct")
	}

	rv = rv.Elem()
	if rv.Kind() != reflect.Struct {
		return sserr.New(sserr.CodeConfigInvalid,
			"config: Load requires a pointer to a struct")
	}

	if err := applyDefaults(rv); err != nil {
		return err
	}

	if l.filePath != "" {
		if err := l.loadFile(cfg); err != nil {
			return err
		}
	}

	if err := l.applyEnv(rv, l.envPrefix); err != nil {
		return err
	}

	return validate(cfg, rv)
}

// MustLoad creates a zero-valued T, loads configuration into it, and
// returns it. It panics if loading or validation fails, so it belongs in
// process startup code.
func MustLoad[T any](loader *Loader) T {
	var cfg T
	if err := loader.Load(&cfg); err != nil {
		panic(fmt.Sprintf("config: MustLoad failed: %v", err))
	}
	return cfg
}

func (l *Loader) loadFile(cfg any) error {
	if strings.Contains(l.filePath, "..") {
		return sserr.New(sserr.CodeConfigInvalid,
			"config: file path must not contain directory traversal (..) sequences")
	}

	data, err := os.ReadFile(l.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return sserr.Wrapf(err, sserr.CodeConfigInvalid,
			"config: failed to read file %q", l.filePath)
	}

	switch ext := strings.ToLower(filepath.Ext(l.filePath)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return sserr.Wrapf(err, sserr.CodeConfigInvalid,
				"config: failed to parse YAML file %q", l.filePath)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return sserr.Wrapf(err, sserr.CodeConfigInvalid,
				"config: failed to parse JSON file %q", l.filePath)
		}
	default:
		return sserr.Newf(sserr.CodeConfigInvalid,
			"config: unsupported file extension %q (use .yaml, .yml, or .json)", ext)
	}

	return nil
}

// isNested reports whether the field should be traversed rather than set.
func isNested(field reflect.Value, sf reflect.StructField) bool {
	return field.Kind() == reflect.Struct && sf.Type != durationType
}

func applyDefaults(rv reflect.Value) error {
	rt := rv.Type()

	for i := 0; i < rt.NumField(); i++ {
		field := rv.Field(i)
		sf := rt.Field(i)

		if !field.CanSet() {
			continue
		}

		if isNested(field, sf) {
			if err := applyDefaults(field); err != nil {
				return err
			}
			continue
		}

		tag := sf.Tag.Get("envDefault")
		if tag == "" || !field.IsZero() {
			continue
		}

		if err := setField(field, tag); err != nil {
			return sserr.Wrapf(err, sserr.CodeConfigInvalid,
				"config: failed to apply default for field %q", sf.Name)
		}
	}

	return nil
}

// applyEnv sets fields from the environment. For nested structs the
// parent's env tag is joined onto the prefix with "_".
func (l *Loader) applyEnv(rv reflect.Value, prefix string) error {
	rt := rv.Type()

	for i := 0; i < rt.NumField(); i++ {
		field := rv.Field(i)
		sf := rt.Field(i)

		if !field.CanSet() {
			continue
		}

		envTag := sf.Tag.Get("env")

		if isNested(field, sf) {
			if err := l.applyEnv(field, joinEnv(prefix, envTag)); err != nil {
				return err
			}
			continue
		}

		if envTag == "" {
			continue
		}

		envKey := joinEnv(prefix, envTag)
		val, ok := l.lookup(envKey)
		if !ok {
			continue
		}

		if err := setField(field, val); err != nil {
			return sserr.Wrapf(err, sserr.CodeConfigInvalid,
				"config: failed to set field %q from env var %q", sf.Name, envKey)
		}
	}

	return nil
}

func joinEnv(prefix, name string) string {
	switch {
	case prefix == "":
		return name
	case name == "":
		return prefix
	default:
		return prefix + "_" + name
	}
}

// setField parses value into field. Supported kinds are string (including
// named string types such as redis.Secret), bool, signed integers,
// time.Duration and []string (comma-separated).
func setField(field reflect.Value, value string) error {
	if field.Type() == durationType {
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("cannot parse duration %q: %w", value, err)
		}
		field.SetInt(int64(d))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("cannot parse bool %q: %w", value, err)
		}
		field.SetBool(b)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(strings.TrimSpace(value), 10, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("cannot parse integer %q: %w", value, err)
		}
		field.SetInt(n)

	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice element type %s", field.Type().Elem().Kind())
		}
		parts := strings.Split(value, ",")
		slice := reflect.MakeSlice(field.Type(), 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			slice = reflect.Append(slice, reflect.ValueOf(p).Convert(field.Type().Elem()))
		}
		field.Set(slice)

	default:
		return fmt.Errorf("unsupported field type %s", field.Kind())
	}

	return nil
}
