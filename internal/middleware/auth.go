package middleware

import (
	"net/http"
	"strings"

	"infinite-experiment/fmsuplink/internal/auth"
	"infinite-experiment/fmsuplink/internal/common"
	"infinite-experiment/fmsuplink/internal/logging"
)

// AuthMiddleware requires a bearer token signed by signer. A nil signer
// disables authentication and marks every caller as local.
func AuthMiddleware(signer *common.TokenSigner) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var claims auth.UserClaims

			authHeader := r.Header.Get("Authorization")
			switch {
			case signer == nil:
				claims = &auth.LocalClaims{Name: "local"}

			case strings.HasPrefix(authHeader, "Bearer "):
				token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
				apiClaims, err := signer.Validate(token)
				if err != nil {
					logging.Debug("Rejected bearer token", "error", err, "path", r.URL.Path)
					http.Error(w, "Unauthorized. Invalid token", http.StatusUnauthorized)
					return
				}
				claims = &auth.TokenClaims{Claims: apiClaims}

			default:
				http.Error(w, "Unauthorized. Missing bearer token", http.StatusUnauthorized)
				return
			}

			ctx := auth.SetUserClaims(r.Context(), claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireScope rejects callers whose claims lack scope
func RequireScope(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

			claims := auth.GetUserClaims(r.Context())

			if claims == nil || !claims.HasScope(scope) {
				http.Error(w, "Forbidden. Need "+scope+" scope", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
