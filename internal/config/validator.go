// internal/config/validator.go
//
// Thin wrapper around go-playground/validator.
//
// Context
// -------
// `loader.go` validates twice: once for the defaults+file tree, where a
// failure only drops the file layer, and once after the environment
// overlay, where a failure aborts startup.  Field names are reported by
// their koanf tag so messages read like the config file
// (`server.port`, not `Config.Server.Port`).

package config

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

//
// validator instance (package-level singleton)
//

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New(validator.WithRequiredStructEnabled())
	val.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("koanf"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return val
}

//
// public API
//

// validateStruct returns the first validation error, or nil on success.
func validateStruct(c *Config) error {
	return v.Struct(c)
}

// invalidKey returns the dotted key of the first failing field, or
// fallback when err is not a validation error.
func invalidKey(err error, fallback string) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fallback
	}
	ns := verrs[0].Namespace() // "Config.server.port"
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}
