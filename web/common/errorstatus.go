package common

import (
	"errors"
	"net/http"

	"visitrack.net/visitrack/core"
)

// StatusFor maps a core error to the HTTP status its caller should see:
// precondition failures are conflicts, lookups are 404s, credential
// problems are 401s, everything else is an infrastructure 500.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrStationNotFound),
		errors.Is(err, core.ErrBuildingNotFound),
		errors.Is(err, core.ErrAlarmNotFound),
		errors.Is(err, core.ErrVisitorUnknown):
		return http.StatusNotFound
	case errors.Is(err, core.ErrSecretMismatch),
		errors.Is(err, core.ErrTokenMalformed),
		errors.Is(err, core.ErrTokenExpired),
		errors.Is(err, core.ErrTokenSuperseded),
		errors.Is(err, core.ErrApprovalRevoked):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrNotApproved),
		errors.Is(err, core.ErrNoBuilding),
		errors.Is(err, core.ErrAlreadyActive):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// MessageFor keeps infrastructure detail out of responses while passing
// the actionable precondition and auth messages through.
func MessageFor(err error) string {
	if StatusFor(err) == http.StatusInternalServerError {
		return "internal error, please retry"
	}
	return err.Error()
}
