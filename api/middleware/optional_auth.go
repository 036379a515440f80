package middleware

import (
	"context"
	"net/http"
	"strings"

	pkgAuth "github.com/agroconnect/agroconnect-backend/pkg/auth"
	"github.com/agroconnect/agroconnect-backend/pkg/auth/session"
	"github.com/agroconnect/agroconnect-backend/pkg/config"
	"github.com/agroconnect/agroconnect-backend/pkg/logger"
)

// OptionalAuth seeds the user context when a valid bearer token arrives but
// lets anonymous requests through untouched. Cart routes use it so one
// surface serves both the pre-login and the account slot.
func OptionalAuth(cfg config.JWTConfig, verifier session.AccessSessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil || claims.ID == "" {
				next.ServeHTTP(w, r)
				return
			}
			if verifier != nil {
				ok, checkErr := verifier.HasSession(r.Context(), claims.ID)
				if checkErr != nil || !ok {
					next.ServeHTTP(w, r)
					return
				}
			}

			ctx := context.WithValue(r.Context(), ctxUserID, claims.UserID.String())
			ctx = context.WithValue(ctx, ctxRole, string(claims.Role))
			ctx = context.WithValue(ctx, ctxAccessID, claims.ID)
			if logg != nil {
				ctx = logg.WithUserID(ctx, claims.UserID.String())
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
