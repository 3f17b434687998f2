// HTTP audit middleware for protected routes.
package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/matiasleandrokruk/shopwise/internal/api/ctxkeys"
	domainaudit "github.com/matiasleandrokruk/shopwise/internal/domain/audit"
)

// AuditLogger is the minimal contract used by AuditMiddleware.
// domainaudit.AuditService satisfies this interface.
type AuditLogger interface {
	LogWithDetails(
		ctx context.Context,
		actorID string,
		actorType domainaudit.ActorType,
		action string,
		entityType *string,
		entityID *string,
		details *domainaudit.EventDetails,
		outcome domainaudit.Outcome,
	) error
}

// AuditMiddleware logs protected HTTP requests into audit_event.
// Expected order in router: AuthMiddleware -> AuditMiddleware -> handlers.
func AuditMiddleware(logger AuditLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if logger == nil {
				next.ServeHTTP(w, r)
				return
			}

			userID := ctxkeys.String(r.Context(), ctxkeys.UserID)
			if userID == "" {
				next.ServeHTTP(w, r)
				return
			}

			recorder := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(recorder, r)

			action, entityType, entityID := actionFromRequest(r.Method, r.URL.Path)
			// The request context may be cancelled by now (client gone mid-stream).
			_ = logger.LogWithDetails(
				context.WithoutCancel(r.Context()),
				userID,
				domainaudit.ActorTypeUser,
				action,
				entityType,
				entityID,
				&domainaudit.EventDetails{Metadata: map[string]any{
					"method":      r.Method,
					"path":        r.URL.Path,
					"role":        ctxkeys.String(r.Context(), ctxkeys.Role),
					"status_code": recorder.statusCode,
					"duration_ms": time.Since(start).Milliseconds(),
				}},
				outcomeFromStatus(recorder.statusCode),
			)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

// Unwrap lets http.ResponseController reach the underlying writer, so
// streaming handlers can still flush through the recorder.
func (w *statusRecorder) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// Flush serves handlers that type-assert http.Flusher instead of using a
// ResponseController.
func (w *statusRecorder) Flush() {
	_ = http.NewResponseController(w.ResponseWriter).Flush()
}

func outcomeFromStatus(statusCode int) domainaudit.Outcome {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return domainaudit.OutcomeSuccess
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return domainaudit.OutcomeDenied
	default:
		return domainaudit.OutcomeError
	}
}

func actionFromRequest(method, path string) (string, *string, *string) {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	fallback := strings.ToLower(method) + "_request"
	if len(segments) < 3 || segments[0] != "api" || segments[1] != "v1" {
		return fallback, nil, nil
	}

	switch segments[2] {
	case "search":
		if len(segments) < 4 {
			return fallback, nil, nil
		}
		return "search_" + segments[3], strPtr("search"), nil
	case "wishlists":
		return wishlistAction(method, segments[3:])
	case "a2a", "mcp":
		return segments[2] + "_" + strings.ToLower(method), strPtr("agent"), nil
	case "admin":
		return "admin_" + strings.Join(segments[3:], "_"), nil, nil
	default:
		return fallback, nil, nil
	}
}

// wishlistAction maps /api/v1/wishlists[/{id}[/{sub}]] to an action.
func wishlistAction(method string, rest []string) (string, *string, *string) {
	const entity = "wishlist"
	switch len(rest) {
	case 0:
		return actionForCollection(method, entity), strPtr(entity), nil
	case 1:
		return actionForEntity(method, entity), strPtr(entity), strPtr(rest[0])
	}

	id := strPtr(rest[0])
	switch rest[1] {
	case "messages":
		if method == http.MethodPost {
			return "append_message", strPtr(entity), id
		}
		return "list_messages", strPtr(entity), id
	case "products":
		return "list_products", strPtr(entity), id
	default:
		return strings.ToLower(method) + "_" + entity, strPtr(entity), id
	}
}

func actionForCollection(method, entity string) string {
	if method == http.MethodPost {
		return "create_" + entity
	}
	if method == http.MethodGet {
		return "list_" + entity
	}
	return strings.ToLower(method) + "_" + entity
}

func actionForEntity(method, entity string) string {
	if method == http.MethodGet {
		return "get_" + entity
	}
	if method == http.MethodPut || method == http.MethodPatch {
		return "update_" + entity
	}
	if method == http.MethodDelete {
		return "delete_" + entity
	}
	if method == http.MethodPost {
		return "create_" + entity
	}
	return strings.ToLower(method) + "_" + entity
}

func strPtr(v string) *string {
	return &v
}
