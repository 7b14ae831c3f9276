package config

import (
	"reflect"
	"strings"

	sserr "github.com/StricklySoft/stricklysoft-asap/pkg/errors"
)

// Validator is an optional interface that configuration structs may
// implement for checks the struct tags cannot express. It is called after
// the required-field check succeeds. Errors that are already
// [*sserr.Error] are returned unchanged; other errors are wrapped with
// [sserr.CodeConfigInvalid].
//
// Implementations must return a plain nil error on success, never a typed
// nil pointer.
type Validator interface {
	Validate() error
}

func validate(cfg any, rv reflect.Value) error {
	if err := validateRequired(rv, ""); err != nil {
		return err
	}

	if v, ok := cfg.(Validator); ok {
		if err := v.Validate(); err != nil {
			if _, isSSErr := sserr.AsError(err); isSSErr {
				return err
			}
			return sserr.Wrap(err, sserr.CodeConfigInvalid,
				"config: custom validation failed")
		}
	}

	return nil
}

// validateRequired checks every `required:"true"` field, recursing into
// nested structs. The reported name is the dotted path of json tag names
// (falling back to the Go field name).
func validateRequired(rv reflect.Value, path string) error {
	rt := rv.Type()

	for i := 0; i < rt.NumField(); i++ {
		field := rv.Field(i)
		sf := rt.Field(i)

		if !field.CanSet() {
			continue
		}

		fieldPath := fieldName(sf)
		if path != "" {
			fieldPath = path + "." + fieldPath
		}

		if isNested(field, sf) {
			if err := validateRequired(field, fieldPath); err != nil {
				return err
			}
			continue
		}

		if sf.Tag.Get("required") != "true" {
			continue
		}

		if field.IsZero() {
			return sserr.ConfigMissing(fieldPath)
		}
	}

	return nil
}

func fieldName(sf reflect.StructField) string {
	name, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return sf.Name
	}
	return name
}
