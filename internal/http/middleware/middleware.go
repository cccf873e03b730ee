// Package middleware holds the request-level plumbing wrapped around
// the route handlers: the bearer-token authorization gate and access
// logging.
//
// Middleware here follows the same closure pattern as the handlers —
// a factory takes dependencies and the next handler, and returns a
// plain http.HandlerFunc.
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"student-records-api/internal/auth"
	"student-records-api/internal/utils/response"

	"github.com/google/uuid"
)

// contextKey is unexported so no other package can collide with our
// context values.
type contextKey string

const claimsKey contextKey = "claims"

// RequireAuth gates a handler behind a bearer token.
//
// Contract:
//   - no Authorization header, or one without the "Bearer " scheme
//     → 401 "Authentication required"
//   - token present but unverifiable (bad signature, expired)
//     → 401 "Invalid or expired token"
//   - valid token → decoded claims attached to the request context
func RequireAuth(tokens *auth.Manager, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			response.WriteJSON(w, http.StatusUnauthorized,
				response.GeneralError(errors.New("Authentication required")))
			return
		}

		claims, err := tokens.Verify(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			response.WriteJSON(w, http.StatusUnauthorized,
				response.GeneralError(auth.ErrInvalidToken))
			return
		}

		next(w, r.WithContext(WithClaims(r.Context(), claims)))
	}
}

// WithClaims returns a child context carrying the decoded claim set.
func WithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// ClaimsFrom extracts the claim set attached by RequireAuth.
// The second return is false on routes that skipped the gate.
func ClaimsFrom(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*auth.Claims)
	return claims, ok
}

// statusRecorder captures the status code a handler writes so the
// access log can report it.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Logger writes one structured access-log line per request, tagged with
// a fresh request id so concurrent requests can be told apart in the
// output.
func Logger(log *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.NewString()
		w.Header().Set("X-Request-Id", requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		log.Info("request",
			slog.String("request_id", requestID),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Duration("duration", time.Since(start)),
		)
	})
}
