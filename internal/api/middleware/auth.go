// Bearer JWT AuthMiddleware and role guard.
// AuthMiddleware reads Authorization: Bearer <token>, validates it and injects
// user_id and role into the request context.
package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/matiasleandrokruk/shopwise/internal/api/ctxkeys"
	pkgauth "github.com/matiasleandrokruk/shopwise/pkg/auth"
)

// AuthMiddleware validates the Bearer JWT token and injects claims into context.
// Used on all /api/v1/* routes; /auth/* stays public.
//
// Flow:
//  1. Read "Authorization: Bearer <token>" header
//  2. Reject if missing or not Bearer scheme → 401
//  3. Parse + validate JWT → 401 on invalid/expired
//  4. Inject ctxkeys.UserID and ctxkeys.Role into context
//  5. Call next handler
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := extractBearerToken(r)
		if tokenString == "" {
			writeJSONError(w, http.StatusUnauthorized, "missing or invalid Authorization header")
			return
		}

		claims, err := pkgauth.ParseJWT(tokenString)
		if err != nil {
			writeJSONError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		ctx := r.Context()
		ctx = ctxkeys.WithValue(ctx, ctxkeys.UserID, claims.UserID)
		ctx = ctxkeys.WithValue(ctx, ctxkeys.Role, string(claims.Role))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole rejects requests whose role is not one of roles with 403.
// Must run after AuthMiddleware.
func RequireRole(roles ...pkgauth.Role) func(http.Handler) http.Handler {
	allowed := make(map[pkgauth.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := pkgauth.Role(ctxkeys.String(r.Context(), ctxkeys.Role))
			if !allowed[role] {
				writeJSONError(w, http.StatusForbidden, "insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// extractBearerToken extracts the token from "Authorization: Bearer <token>".
// Returns empty string if header is missing, wrong scheme, or token is empty.
func extractBearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}

	// Must start with "Bearer " (case-sensitive per RFC 7235)
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}

	return strings.TrimSpace(strings.TrimPrefix(header, prefix))
}

// writeJSONError writes a JSON error response.
// Uses the same format as writeError in the handlers package.
func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message}) //nolint:errcheck
}
