package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	id "organlink/pkg/domain"
	"organlink/pkg/requestcontext"
)

// HospitalClaims represents the claims we expect from the token validator.
type HospitalClaims struct {
	HospitalID id.HospitalID
}

// TokenValidator validates hospital bearer tokens.
type TokenValidator interface {
	ValidateToken(tokenString string) (*HospitalClaims, error)
}

// RequireHospital authenticates the acting hospital from a Bearer token, or
// from the X-API-Key fallback when a bcrypt hash is configured (the key-based
// path additionally requires an X-Hospital-ID header to scope the caller).
func RequireHospital(validator TokenValidator, apiKeyHash string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := requestcontext.RequestID(ctx)

			authHeader := r.Header.Get("Authorization")
			if token, ok := strings.CutPrefix(authHeader, "Bearer "); ok {
				claims, err := validator.ValidateToken(token)
				if err != nil {
					logger.WarnContext(ctx, "unauthorized access - invalid token",
						"error", err,
						"request_id", requestID,
					)
					writeUnauthorized(w, "Invalid or expired token")
					return
				}
				ctx = requestcontext.WithHospitalID(ctx, claims.HospitalID)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			if apiKey := r.Header.Get("X-API-Key"); apiKey != "" && apiKeyHash != "" {
				if err := bcrypt.CompareHashAndPassword([]byte(apiKeyHash), []byte(apiKey)); err != nil {
					logger.WarnContext(ctx, "unauthorized access - invalid api key",
						"request_id", requestID,
					)
					writeUnauthorized(w, "Invalid API key")
					return
				}
				hospitalID, err := id.ParseHospitalID(r.Header.Get("X-Hospital-ID"))
				if err != nil {
					writeUnauthorized(w, "X-Hospital-ID header required with API key auth")
					return
				}
				ctx = requestcontext.WithHospitalID(ctx, hospitalID)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			logger.WarnContext(ctx, "unauthorized access - missing credentials",
				"request_id", requestID,
			)
			writeUnauthorized(w, "Missing or invalid Authorization header")
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`))
}
