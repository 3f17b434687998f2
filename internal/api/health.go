package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/matiasleandrokruk/shopwise/internal/infra/llm"
)

const chatHealthTimeout = 3 * time.Second

// healthHandler reports the database and the chat provider. Unauthenticated,
// used by load balancers and orchestrators. A database that does not answer
// makes the service unavailable. An unreachable chat provider only degrades it.
func healthHandler(db *sql.DB, chat llm.ChatClient) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := map[string]string{"status": "ok", "database": "ok", "chat": "ok"}
		code := http.StatusOK

		if chat == nil {
			body["chat"], body["status"] = "unavailable", "degraded"
		} else {
			ctx, cancel := context.WithTimeout(r.Context(), chatHealthTimeout)
			if err := chat.HealthCheck(ctx); err != nil {
				body["chat"], body["status"] = "unavailable", "degraded"
			}
			cancel()
		}
		if err := db.PingContext(r.Context()); err != nil {
			body["database"], body["status"] = "unavailable", "unavailable"
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(body) //nolint:errcheck
	}
}
