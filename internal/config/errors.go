package config

import "fmt"

// ConfigurationError aborts startup.  Key names the offending setting,
// either a dotted config key or an environment variable.
type ConfigurationError struct {
	Key string
	Err error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("config %s: %v", e.Key, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }
