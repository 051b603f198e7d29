package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"chainalert/pkg/requestcontext"
)

// TokenValidator defines the interface for validating bearer tokens.
type TokenValidator interface {
	ValidateToken(tokenString string) (*TokenClaims, error)
}

// TokenClaims represents the claims we expect from the token validator.
// DeviceID is the caller's raw anonymous identifier; every domain hash is
// computed server-side from it, never accepted from the client.
type TokenClaims struct {
	DeviceID    string
	DisplayName string
}

// GetDeviceID retrieves the verified device ID from the context.
func GetDeviceID(ctx context.Context) string {
	return requestcontext.DeviceID(ctx)
}

// GetDisplayName retrieves the caller's display name from the context.
func GetDisplayName(ctx context.Context) string {
	return requestcontext.DisplayName(ctx)
}

// RequireAuth rejects requests without a valid bearer token and stores the
// verified caller identity in the request context.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			const bearerPrefix = "Bearer "
			token, ok := strings.CutPrefix(authHeader, bearerPrefix)
			if !ok {
				unauthorized(w, r, logger, "missing or malformed Authorization header")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(r.Context(), "unauthorized access - invalid token",
					"error", err,
					"request_id", GetRequestID(r.Context()),
				)
				unauthorized(w, r, logger, "invalid or expired token")
				return
			}

			ctx := requestcontext.WithDeviceID(r.Context(), claims.DeviceID)
			ctx = requestcontext.WithDisplayName(ctx, claims.DisplayName)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, r *http.Request, logger *slog.Logger, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	if _, err := w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`)); err != nil {
		logger.ErrorContext(r.Context(), "failed to write unauthorized response",
			"error", err,
			"request_id", GetRequestID(r.Context()),
		)
	}
}
