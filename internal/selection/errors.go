package selection

import "fmt"

// ConfigurationError reports an invalid selector setting. It is returned
// before anything is fitted.
type ConfigurationError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration %s=%v: %s", e.Field, e.Value, e.Reason)
}
