// Stable error codes for the API. The generic set mirrors HTTP status
// semantics; the domain set names the business failures the app branches on
// (a failed onboarding resolve, a failed notification send). Codes are
// lowercase snake_case and never change once shipped, because the mobile
// client matches on them.
package handlers

const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeForbidden    = "forbidden"
	ErrCodeNotFound     = "not_found"
	ErrCodeConflict     = "conflict"
	ErrCodeRateLimited  = "too_many_requests"
	ErrCodeInternal     = "internal_error"

	// Domain-specific:
	ErrCodeResolveFailed    = "resolve_failed"
	ErrCodeNotifyFailed     = "notify_failed"
	ErrCodeListFailed       = "list_failed"
	ErrCodeLogFailed        = "log_failed"
	ErrCodeMethodNotAllowed = "method_not_allowed"
)
