package testutil

import (
	"net/http"
	"time"

	id "registrar/pkg/domain"
	"registrar/pkg/requestcontext"
)

// WithRequester stamps an account identity on the request context, the way
// the auth middleware would for an authenticated request.
func WithRequester(req *http.Request, acct id.AccountID) *http.Request {
	return req.WithContext(requestcontext.WithRequester(req.Context(), acct))
}

// WithClock pins the request's logical time, so expiry-sensitive handlers
// can be tested deterministically.
func WithClock(req *http.Request, now time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), now))
}

// WithRequestID sets a request ID for log correlation assertions.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}
