package testutil

import (
	"net/http"
	"time"

	"turnstile/pkg/requestcontext"
)

// WithIdentity adds an identity id to the request context, simulating what
// the auth middleware does for authenticated requests.
func WithIdentity(req *http.Request, identityID string) *http.Request {
	return req.WithContext(requestcontext.WithIdentityID(req.Context(), identityID))
}

// WithRequestTime pins the request-scoped clock so handlers and services
// observe a deterministic now.
func WithRequestTime(req *http.Request, now time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), now))
}

// WithClientMetadata sets the client network address and user agent on the
// request context.
func WithClientMetadata(req *http.Request, ip, userAgent string) *http.Request {
	return req.WithContext(requestcontext.WithClientMetadata(req.Context(), ip, userAgent))
}
