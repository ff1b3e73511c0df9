// Package common defines shared constants and sentinel errors used across
// the background service, the message bus and the control client. Callers
// should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	// Schema errors. ErrSchemaMismatch is returned for a write whose shape
	// disagrees with the static key schema, ErrCorrupt for a stored row that does.
	ErrSchemaMismatch = errors.New("config entry does not match schema")
	ErrCorrupt        = errors.New("stored config entry is corrupt")
	ErrUnknownKey     = errors.New("unknown config key")

	// Vault errors.
	ErrLocked = errors.New("vault is locked")

	// Token lifecycle and OAuth flow errors.
	ErrUnauthorized       = errors.New("unauthorized")
	ErrMissingCredentials = errors.New("missing oauth credentials")
	ErrOAuthFlow          = errors.New("oauth flow aborted")
	ErrStateMismatch      = errors.New("oauth state mismatch")

	// Transport errors.
	ErrUnavailable  = errors.New("service unavailable")
	ErrTypeMismatch = errors.New("payload type does not match action")
	ErrInvalidToken = errors.New("invalid token")
)
