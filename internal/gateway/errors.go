package gateway

import "net/http"

// ErrorKind classifies caller-facing synthesis failures. Every kind resolves
// to a fixed HTTP status and a short text body at the boundary; nothing is
// retried inside the gateway.
type ErrorKind int

const (
	KindMissingField ErrorKind = iota
	KindRateLimited
	KindInvalidInvite
	KindPersonaMismatch
	KindRoleNotAllowed
	KindInviteInactive
	KindProvider
	KindInternal
)

// Error is a caller-facing synthesis failure. Message is safe to return to
// the caller: it never contains credentials or internal detail, except for
// KindProvider where the provider's response body is passed through verbatim
// for diagnostics.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// HTTPStatus maps the kind onto its fixed status code.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindMissingField:
		return http.StatusBadRequest
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindInvalidInvite, KindPersonaMismatch, KindRoleNotAllowed, KindInviteInactive:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Outcome is the metrics label for this kind.
func (e *Error) Outcome() string {
	switch e.Kind {
	case KindMissingField:
		return "missing_field"
	case KindRateLimited:
		return "rate_limited"
	case KindInvalidInvite, KindPersonaMismatch, KindRoleNotAllowed, KindInviteInactive:
		return "forbidden"
	case KindProvider:
		return "provider_error"
	default:
		return "internal_error"
	}
}
