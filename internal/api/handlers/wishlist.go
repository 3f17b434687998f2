// HTTP handlers for wishlists, their messages and their discovered products.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/matiasleandrokruk/shopwise/internal/domain/wishlist"
)

// WishlistService is the part of wishlist.Service the handlers need.
type WishlistService interface {
	CreateWishlist(ctx context.Context, in wishlist.CreateWishlistInput) (*wishlist.Wishlist, error)
	Get(ctx context.Context, actor wishlist.Actor, id string) (*wishlist.Wishlist, error)
	List(ctx context.Context, actor wishlist.Actor, in wishlist.ListInput) ([]*wishlist.Wishlist, int, error)
	Delete(ctx context.Context, actor wishlist.Actor, id string) error
	AppendMessage(ctx context.Context, in wishlist.AppendMessageInput) (*wishlist.Message, error)
	ListMessages(ctx context.Context, wishlistID string, limit int) ([]*wishlist.Message, error)
	ListProducts(ctx context.Context, wishlistID string) ([]*wishlist.Product, error)
}

// WishlistHandler handles wishlist HTTP requests.
type WishlistHandler struct {
	service WishlistService
}

// NewWishlistHandler creates a WishlistHandler.
func NewWishlistHandler(service WishlistService) *WishlistHandler {
	return &WishlistHandler{service: service}
}

// CreateWishlistRequest is the body for POST /api/v1/wishlists.
type CreateWishlistRequest struct {
	FirstMessage string `json:"firstMessage"`
	Kind         string `json:"kind,omitempty"`
}

// AppendMessageRequest is the body for POST /api/v1/wishlists/{id}/messages.
type AppendMessageRequest struct {
	Text string `json:"text"`
}

// ListWishlistsResponse is the paginated list body.
type ListWishlistsResponse struct {
	Data []*wishlist.Wishlist `json:"data"`
	Meta Meta                 `json:"meta"`
}

// CreateWishlist handles POST /api/v1/wishlists.
func (h *WishlistHandler) CreateWishlist(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		writeDomainError(w, err, "")
		return
	}
	var req CreateWishlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	wl, err := h.service.CreateWishlist(r.Context(), wishlist.CreateWishlistInput{
		UserID:       actor.UserID,
		FirstMessage: req.FirstMessage,
		Kind:         wishlist.Kind(req.Kind),
	})
	if err != nil {
		writeDomainError(w, err, "failed to create wishlist")
		return
	}
	writeJSON(w, http.StatusCreated, wl)
}

// ListWishlists handles GET /api/v1/wishlists.
func (h *WishlistHandler) ListWishlists(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		writeDomainError(w, err, "")
		return
	}
	page := parsePaginationParams(r)

	items, total, err := h.service.List(r.Context(), actor, wishlist.ListInput{Limit: page.Limit, Offset: page.Offset})
	if err != nil {
		writeDomainError(w, err, "failed to list wishlists")
		return
	}
	writeJSON(w, http.StatusOK, ListWishlistsResponse{
		Data: items,
		Meta: Meta{Total: total, Limit: page.Limit, Offset: page.Offset},
	})
}

// GetWishlist handles GET /api/v1/wishlists/{id}.
func (h *WishlistHandler) GetWishlist(w http.ResponseWriter, r *http.Request) {
	wl, ok := h.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, wl)
}

// DeleteWishlist handles DELETE /api/v1/wishlists/{id}.
func (h *WishlistHandler) DeleteWishlist(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		writeDomainError(w, err, "")
		return
	}
	if err := h.service.Delete(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err, "failed to delete wishlist")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListMessages handles GET /api/v1/wishlists/{id}/messages. limit bounds
// how many of the most recent messages are returned.
func (h *WishlistHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	wl, ok := h.load(w, r)
	if !ok {
		return
	}
	page := parsePaginationParams(r)
	msgs, err := h.service.ListMessages(r.Context(), wl.ID, page.Limit)
	if err != nil {
		writeDomainError(w, err, "failed to list messages")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": msgs})
}

// AppendMessage handles POST /api/v1/wishlists/{id}/messages.
func (h *WishlistHandler) AppendMessage(w http.ResponseWriter, r *http.Request) {
	wl, ok := h.load(w, r)
	if !ok {
		return
	}
	var req AppendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	actor, _ := actorFromRequest(r)
	msg, err := h.service.AppendMessage(r.Context(), wishlist.AppendMessageInput{
		WishlistID: wl.ID,
		UserID:     actor.UserID,
		Role:       wishlist.MessageRoleUser,
		Text:       req.Text,
	})
	if err != nil {
		writeDomainError(w, err, "failed to append message")
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

// ListProducts handles GET /api/v1/wishlists/{id}/products.
func (h *WishlistHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	wl, ok := h.load(w, r)
	if !ok {
		return
	}
	products, err := h.service.ListProducts(r.Context(), wl.ID)
	if err != nil {
		writeDomainError(w, err, "failed to list products")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": products})
}

// load resolves the {id} wishlist for the current actor and writes the error
// response when that fails.
func (h *WishlistHandler) load(w http.ResponseWriter, r *http.Request) (*wishlist.Wishlist, bool) {
	actor, err := actorFromRequest(r)
	if err != nil {
		writeDomainError(w, err, "")
		return nil, false
	}
	wl, err := h.service.Get(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "failed to get wishlist")
		return nil, false
	}
	return wl, true
}
