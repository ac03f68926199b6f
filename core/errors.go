package core

import "errors"

// Precondition failures: the caller must resolve the condition and
// re-invoke, nothing is retried automatically.
var (
	ErrSecretMismatch = errors.New("station secret mismatch")
	ErrNotApproved    = errors.New("station not approved yet")
	ErrNoBuilding     = errors.New("station not linked to a building")
	ErrAlreadyActive  = errors.New("station already logged in elsewhere")
)

// Not-found conditions, distinct from precondition failures so callers can
// branch (an unknown visitor starts the enrollment flow, not a hard error).
var (
	ErrStationNotFound  = errors.New("station not found")
	ErrBuildingNotFound = errors.New("building not found")
	ErrAlarmNotFound    = errors.New("alarm not found")
	ErrVisitorUnknown   = errors.New("unknown visitor, registration required")
)

// Credential failures. A superseded credential must send the holder back to
// registration, never into a retry with the same token.
var (
	ErrTokenMalformed  = errors.New("malformed credential")
	ErrTokenExpired    = errors.New("expired credential")
	ErrTokenSuperseded = errors.New("superseded credential")
	ErrApprovalRevoked = errors.New("station approval revoked")
)
