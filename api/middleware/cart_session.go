package middleware

import (
	"net/http"
	"strings"
)

const cartSessionHeader = "X-Cart-Session"

// CartSession captures the anonymous cart session identifier so cart
// handlers can address the pre-login slot. The header is optional; logged
// in users without one still reach their account slot.
func CartSession() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := strings.TrimSpace(r.Header.Get(cartSessionHeader))
			if sessionID != "" {
				r = r.WithContext(WithCartSessionID(r.Context(), sessionID))
			}
			next.ServeHTTP(w, r)
		})
	}
}
