package common

import (
	"errors"
	"fmt"
)

// ErrNotFound marks lookups for tickers or files that don't exist.
// Callers render an empty state rather than failing the whole view.
var ErrNotFound = errors.New("not found")

// ErrUpstreamUnavailable marks a quote host failure at every fallback.
// Quote service callers receive partial data alongside this sentinel.
var ErrUpstreamUnavailable = errors.New("upstream unavailable")

// ConfigurationError reports a missing or malformed input file.
// It is fatal to the view that needs the file; other views stay operable.
type ConfigurationError struct {
	File   string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error in %s: %s", e.File, e.Reason)
}

// NewConfigurationError creates a ConfigurationError for a file.
func NewConfigurationError(file, format string, args ...interface{}) *ConfigurationError {
	return &ConfigurationError{File: file, Reason: fmt.Sprintf(format, args...)}
}

// IsConfigurationError reports whether err wraps a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
