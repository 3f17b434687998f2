// HTTP handlers for the streaming product search: the SSE conversation
// endpoint and the NDJSON endpoints over the typed result streams.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/matiasleandrokruk/shopwise/internal/domain/search"
	"github.com/matiasleandrokruk/shopwise/internal/domain/wishlist"
	"github.com/matiasleandrokruk/shopwise/internal/infra/sse"
)

const contentTypeNDJSON = "application/x-ndjson"

// SearchService is the part of search.Service the handlers need.
type SearchService interface {
	Search(ctx context.Context, in search.SearchInput) (<-chan search.Result[sse.Event], error)
	GetProductFromSearch(ctx context.Context, text string) (<-chan search.Result[search.Item], error)
	GetRecommendationsForProductFromSearchStream(ctx context.Context, text string) (<-chan search.Result[search.Item], error)
	StartNewSearchAndReturnWishlist(ctx context.Context, in search.NewSearchInput) (<-chan search.Result[search.Batch], error)
}

// SearchHandler serves the search endpoints.
type SearchHandler struct {
	service SearchService
	log     logrus.FieldLogger
}

// NewSearchHandler creates a SearchHandler.
func NewSearchHandler(service SearchService, log logrus.FieldLogger) *SearchHandler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &SearchHandler{service: service, log: log.WithField("component", "search_handler")}
}

// SearchStreamRequest is the body for POST /api/v1/search/stream.
// WishlistID continues an existing conversation; empty starts a new search.
type SearchStreamRequest struct {
	Message    string `json:"message"`
	WishlistID string `json:"wishlistId,omitempty"`
}

// NewSearchRequest is the body for POST /api/v1/search/wishlists.
type NewSearchRequest struct {
	Message string `json:"message"`
}

// batchLine is one NDJSON line of POST /api/v1/search/wishlists.
type batchLine struct {
	Products []string           `json:"products"`
	Wishlist *wishlist.Wishlist `json:"wishlist"`
}

// Stream handles POST /api/v1/search/stream.
//
// Failures before the first event are answered with a JSON error. Once the
// event stream has started, a failure ends it after logging.
func (h *SearchHandler) Stream(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		writeDomainError(w, err, "")
		return
	}
	var req SearchStreamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	events, err := h.service.Search(ctx, search.SearchInput{Actor: actor, WishlistID: req.WishlistID, Message: req.Message})
	if err != nil {
		h.log.WithError(err).Warn("search stream rejected")
		writeDomainError(w, err, "search failed")
		return
	}

	enc := sse.PrepareStream(w)
	log := h.log.WithFields(logrus.Fields{"user_id": actor.UserID, "wishlist_id": req.WishlistID})
	for res := range events {
		if res.Err != nil {
			log.WithError(res.Err).Error("search stream failed")
			return
		}
		if err := enc.Encode(res.Value); err != nil {
			log.WithError(err).Debug("client went away")
			return
		}
	}
}

// Products handles GET /api/v1/search/products?q=. Each line is one JSON
// string: a product name or a clarifying question, in arrival order.
func (h *SearchHandler) Products(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	items, err := h.service.GetProductFromSearch(ctx, r.URL.Query().Get("q"))
	if err != nil {
		writeDomainError(w, err, "search failed")
		return
	}
	streamNDJSON(w, h.log.WithField("endpoint", "products"), items, itemText)
}

// Recommendations handles GET /api/v1/search/recommendations?q=. Each line is
// one recommendation as a JSON string.
func (h *SearchHandler) Recommendations(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	items, err := h.service.GetRecommendationsForProductFromSearchStream(ctx, r.URL.Query().Get("q"))
	if err != nil {
		writeDomainError(w, err, "recommendations failed")
		return
	}
	streamNDJSON(w, h.log.WithField("endpoint", "recommendations"), items, itemText)
}

// Wishlists handles POST /api/v1/search/wishlists. Each line pairs a product
// batch with the wishlist created for it.
func (h *SearchHandler) Wishlists(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		writeDomainError(w, err, "")
		return
	}
	var req NewSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	batches, err := h.service.StartNewSearchAndReturnWishlist(ctx, search.NewSearchInput{UserID: actor.UserID, Message: req.Message})
	if err != nil {
		writeDomainError(w, err, "search failed")
		return
	}
	streamNDJSON(w, h.log.WithField("endpoint", "wishlists"), batches, func(b search.Batch) any {
		return batchLine{Products: b.Names(), Wishlist: b.Wishlist}
	})
}

func itemText(it search.Item) any { return it.Text }

// streamNDJSON writes one JSON line per result and flushes after each. It
// returns at the first error; the caller's deferred cancel stops the producer.
func streamNDJSON[T any](w http.ResponseWriter, log logrus.FieldLogger, results <-chan search.Result[T], line func(T) any) {
	w.Header().Set(headerContentType, contentTypeNDJSON)
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	enc := json.NewEncoder(w)
	for res := range results {
		if res.Err != nil {
			log.WithError(res.Err).Error("result stream failed")
			return
		}
		if err := enc.Encode(line(res.Value)); err != nil {
			log.WithError(err).Debug("client went away")
			return
		}
		if err := rc.Flush(); err != nil {
			log.WithError(err).Debug("flush failed")
			return
		}
	}
}
