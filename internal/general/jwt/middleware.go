package jwt

import (
	"encoding/json"
	"net/http"

	"campus-carpool/internal/domain/user"
)

// AuthMiddlewareFunc validates the bearer token and injects claims into the
// request context. Every booking route wraps its handler with this, passing
// the roles the operation allows (ride creation and request decisions are
// driver-only; browsing is open to all roles).
func AuthMiddlewareFunc(mgr *Manager, allowedRoles ...user.Role) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			raw, err := FromAuthorization(r)
			if err != nil {
				authError(w, http.StatusUnauthorized, err.Error())
				return
			}

			claims, err := mgr.ParseAndValidate(raw)
			if err != nil {
				authError(w, http.StatusUnauthorized, err.Error())
				return
			}

			if err := RoleAllowed(claims, allowedRoles...); err != nil {
				authError(w, http.StatusForbidden, err.Error())
				return
			}

			ctx := InjectClaims(r.Context(), claims)
			next(w, r.WithContext(ctx))
		}
	}
}

// authError writes the same JSON error shape the booking handlers use, so
// clients see one format whether a request dies at auth or in the service.
func authError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	body, err := json.Marshal(map[string]string{"error": msg})
	if err != nil {
		body = []byte(`{"error":"authentication failed"}`)
	}
	_, _ = w.Write(body)
}

// RequireClaims extracts JWT claims from the request context.
func RequireClaims(r *http.Request) *Claims {
	c, _ := FromContext(r.Context())
	return c
}
