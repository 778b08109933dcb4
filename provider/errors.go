package provider

import (
	"errors"
	"fmt"
)

// ErrProviderNotFound is returned when a requested or default provider has no registration.
var ErrProviderNotFound = errors.New("provider not found")

// CallError wraps a failure raised by a backend while serving a call.
type CallError struct {
	Provider string
	Err      error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("provider %s failed: %v", e.Provider, e.Err)
}

func (e *CallError) Unwrap() error { return e.Err }

func notFound(kind, name string) error {
	if name == "" {
		return fmt.Errorf("%s %w: no default provider selected", kind, ErrProviderNotFound)
	}
	return fmt.Errorf("%s %w: %s", kind, ErrProviderNotFound, name)
}
