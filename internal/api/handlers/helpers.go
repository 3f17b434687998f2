// Handler helpers: identity, pagination and JSON responses.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/matiasleandrokruk/shopwise/internal/api/ctxkeys"
	"github.com/matiasleandrokruk/shopwise/internal/domain/search"
	"github.com/matiasleandrokruk/shopwise/internal/domain/wishlist"
	"github.com/matiasleandrokruk/shopwise/internal/infra/llm"
	pkgauth "github.com/matiasleandrokruk/shopwise/pkg/auth"
)

const headerContentType = "Content-Type"

// paginationParams holds parsed limit and offset values.
type paginationParams struct {
	Limit  int
	Offset int
}

const (
	defaultPaginationLimit = 25
	maxPaginationLimit     = 100
)

// Meta contains pagination metadata.
type Meta struct {
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// requestError carries the status and message for a rejected request.
type requestError struct {
	status  int
	message string
}

func (e requestError) Error() string { return e.message }

// actorFromRequest builds the acting identity from the context injected by
// AuthMiddleware.
func actorFromRequest(r *http.Request) (wishlist.Actor, error) {
	ctx := r.Context()
	userID := ctxkeys.String(ctx, ctxkeys.UserID)
	if userID == "" {
		return wishlist.Actor{}, requestError{status: http.StatusUnauthorized, message: "missing user context"}
	}
	return wishlist.Actor{UserID: userID, Role: pkgauth.Role(ctxkeys.String(ctx, ctxkeys.Role))}, nil
}

// parsePaginationParams extracts and validates limit/offset from URL query params.
func parsePaginationParams(r *http.Request) paginationParams {
	limit := defaultPaginationLimit
	offset := 0

	if lim, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && lim > 0 {
		if lim > maxPaginationLimit {
			lim = maxPaginationLimit
		}
		limit = lim
	}

	if off, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && off >= 0 {
		offset = off
	}

	return paginationParams{Limit: limit, Offset: offset}
}

// writeDomainError maps a service error to a status code. fallback is the
// message used for unexpected failures.
func writeDomainError(w http.ResponseWriter, err error, fallback string) {
	var reqErr requestError
	var transportErr *llm.TransportError
	switch {
	case errors.As(err, &reqErr):
		writeError(w, reqErr.status, reqErr.message)
	case errors.Is(err, wishlist.ErrInvalidInput), errors.Is(err, search.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, wishlist.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, wishlist.ErrNotFound):
		writeError(w, http.StatusNotFound, "wishlist not found")
	case errors.As(err, &transportErr):
		writeError(w, http.StatusBadGateway, "chat model unavailable")
	default:
		writeError(w, http.StatusInternalServerError, fallback)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set(headerContentType, "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body) //nolint:errcheck
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set(headerContentType, "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		http.Error(w, `{"error":"failed to encode error response"}`, http.StatusInternalServerError)
	}
}
