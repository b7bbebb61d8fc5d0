package adminauth

import (
	"log/slog"
	"net/http"
	"strings"

	"registrar/pkg/requestcontext"
)

// Middleware rejects requests without a valid admin token and stamps the
// administrative identity into the request context as the requester.
func (s *Service) Middleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if raw == "" {
				logger.WarnContext(ctx, "admin request without token",
					"request_id", requestcontext.RequestID(ctx),
				)
				unauthorized(w)
				return
			}
			acct, err := s.ValidateToken(raw)
			if err != nil {
				logger.WarnContext(ctx, "admin token rejected",
					"request_id", requestcontext.RequestID(ctx),
					"error", err,
				)
				unauthorized(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(requestcontext.WithRequester(ctx, acct)))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"admin token required"}`))
}
