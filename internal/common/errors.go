// Package common defines shared constants and sentinel errors used across
// GPG Vault components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Validation errors (caller-correctable input problems).
	ErrorValidation    = errors.New("validation error")
	ErrorAlreadyExists = errors.New("already exists")

	// ErrorNoKeyMaterial is returned when an otherwise-valid account has no
	// stored key of the requested role.
	ErrorNoKeyMaterial = errors.New("no key material")

	// ErrorConfiguration marks a missing or unusable deployment setting.
	// Fatal at startup, never surfaced per-request.
	ErrorConfiguration = errors.New("configuration error")
)
