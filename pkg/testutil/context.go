package testutil

import (
	"net/http"
	"time"

	id "tempora/pkg/domain"
	"tempora/pkg/requestcontext"
)

// WithTenant adds a tenant ID to the request context, simulating what the
// auth middleware does for authenticated requests. Invalid IDs are ignored.
func WithTenant(req *http.Request, tenantID string) *http.Request {
	if parsed, err := id.ParseTenantID(tenantID); err == nil {
		return req.WithContext(requestcontext.WithTenantID(req.Context(), parsed))
	}
	return req
}

// WithActor adds an actor ID to the request context.
func WithActor(req *http.Request, actorID string) *http.Request {
	return req.WithContext(requestcontext.WithActorID(req.Context(), actorID))
}

// WithRequestTime pins the request's wall clock, so as-of defaults are
// deterministic in tests.
func WithRequestTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}
