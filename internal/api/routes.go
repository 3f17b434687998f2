// Package api wires the HTTP surface: public auth routes, JWT-protected
// /api/v1 routes, and the agent transports.
package api

import (
	"context"
	"database/sql"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/matiasleandrokruk/shopwise/internal/api/a2aagent"
	"github.com/matiasleandrokruk/shopwise/internal/api/handlers"
	"github.com/matiasleandrokruk/shopwise/internal/api/mcptools"
	apmiddleware "github.com/matiasleandrokruk/shopwise/internal/api/middleware"
	domainaudit "github.com/matiasleandrokruk/shopwise/internal/domain/audit"
	domainauth "github.com/matiasleandrokruk/shopwise/internal/domain/auth"
	"github.com/matiasleandrokruk/shopwise/internal/domain/search"
	"github.com/matiasleandrokruk/shopwise/internal/domain/wishlist"
	"github.com/matiasleandrokruk/shopwise/internal/infra/eventbus"
	"github.com/matiasleandrokruk/shopwise/internal/infra/llm"
	pkgauth "github.com/matiasleandrokruk/shopwise/pkg/auth"
)

// Deps are the process-wide dependencies of the router.
type Deps struct {
	DB   *sql.DB
	Chat llm.ChatClient
	// Bus carries discovered products to the recorder. A new in-memory bus
	// is created when nil.
	Bus    eventbus.EventBus
	Log    logrus.FieldLogger
	Search search.Options
	// PublicURL is the externally visible base URL, used in the agent card.
	PublicURL string
}

// NewRouter creates the chi router with all routes. Background workers
// started here stop when ctx is done.
func NewRouter(ctx context.Context, deps Deps) *chi.Mux {
	log := deps.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	bus := deps.Bus
	if bus == nil {
		bus = eventbus.New(log)
	}

	auditService := domainaudit.NewAuditService(deps.DB)
	wishlistService := wishlist.NewService(deps.DB, log)
	searchService := search.NewService(deps.Chat, wishlistService, bus, log, deps.Search)
	discovered := bus.Subscribe(wishlist.TopicProductsDiscovered)
	go wishlist.NewProductRecorder(wishlistService, log).Run(ctx, discovered)

	r := chi.NewRouter()

	// Global middleware (runs on all routes)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(apmiddleware.RequestLogger(log))
	r.Use(middleware.Recoverer)

	// ===== PUBLIC ROUTES (no auth required) =====

	r.Get("/health", healthHandler(deps.DB, deps.Chat))

	agentCard := a2aagent.AgentCard(strings.TrimSuffix(deps.PublicURL, "/") + "/api/v1/a2a")
	r.Method(http.MethodGet, a2aagent.AgentCardPath, a2aagent.NewAgentCardHandler(agentCard))

	authHandler := handlers.NewAuthHandler(domainauth.NewAuthServiceWithAudit(deps.DB, auditService))
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register) // POST /auth/register
		r.Post("/login", authHandler.Login)       // POST /auth/login
		r.Post("/guest", authHandler.Guest)       // POST /auth/guest
	})

	// ===== PROTECTED ROUTES (JWT required via AuthMiddleware) =====

	wishlistHandler := handlers.NewWishlistHandler(wishlistService)
	searchHandler := handlers.NewSearchHandler(searchService, log)
	auditHandler := handlers.NewAuditHandler(auditService)
	a2aHandler := a2aagent.NewJSONRPCHandler(a2aagent.NewExecutor(searchService, log), agentCard)
	mcpHandler := mcptools.NewHandler(mcptools.NewServer(searchService, log))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(apmiddleware.AuthMiddleware)
		r.Use(apmiddleware.AuditMiddleware(auditService))

		r.Route("/wishlists", func(r chi.Router) {
			r.Post("/", wishlistHandler.CreateWishlist)             // POST /api/v1/wishlists
			r.Get("/", wishlistHandler.ListWishlists)               // GET /api/v1/wishlists
			r.Get("/{id}", wishlistHandler.GetWishlist)             // GET /api/v1/wishlists/{id}
			r.Delete("/{id}", wishlistHandler.DeleteWishlist)       // DELETE /api/v1/wishlists/{id}
			r.Get("/{id}/messages", wishlistHandler.ListMessages)   // GET /api/v1/wishlists/{id}/messages
			r.Post("/{id}/messages", wishlistHandler.AppendMessage) // POST /api/v1/wishlists/{id}/messages
			r.Get("/{id}/products", wishlistHandler.ListProducts)   // GET /api/v1/wishlists/{id}/products
		})

		r.Route("/search", func(r chi.Router) {
			r.Post("/stream", searchHandler.Stream)                  // POST /api/v1/search/stream (SSE)
			r.Get("/products", searchHandler.Products)               // GET /api/v1/search/products?q= (NDJSON)
			r.Get("/recommendations", searchHandler.Recommendations) // GET /api/v1/search/recommendations?q= (NDJSON)
			r.Post("/wishlists", searchHandler.Wishlists)            // POST /api/v1/search/wishlists (NDJSON)
		})

		r.Handle("/a2a", a2aHandler) // A2A JSON-RPC
		r.Handle("/mcp", mcpHandler) // MCP streamable HTTP

		r.Route("/admin", func(r chi.Router) {
			r.Use(apmiddleware.RequireRole(pkgauth.RoleAdmin))
			r.Get("/audit", auditHandler.ListEvents) // GET /api/v1/admin/audit
		})
	})

	return r
}
