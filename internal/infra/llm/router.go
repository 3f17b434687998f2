// Package llm: chat client router.
// Router selects a ChatClient at request time and itself satisfies ChatClient,
// so callers hold a single client regardless of the configured provider.
package llm

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Router selects a ChatClient for each request.
type Router struct {
	mu              sync.RWMutex
	clients         map[string]ChatClient
	defaultProvider string
}

// NewRouter creates a Router with an initial set of clients and a default key.
func NewRouter(clients map[string]ChatClient, defaultProvider string) *Router {
	cs := make(map[string]ChatClient, len(clients))
	for k, v := range clients {
		cs[k] = v
	}
	return &Router{clients: cs, defaultProvider: defaultProvider}
}

// Register adds (or replaces) a client under the given key.
func (r *Router) Register(key string, c ChatClient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[key] = c
}

// Route returns the client for the current request.
// Returns an error if the default provider is not registered.
func (r *Router) Route(_ context.Context) (ChatClient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[r.defaultProvider]
	if !ok {
		return nil, fmt.Errorf("llm router: provider %q not registered (available: %v)", r.defaultProvider, r.keys())
	}
	return c, nil
}

// CompleteOnce routes the request and delegates.
func (r *Router) CompleteOnce(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	c, err := r.Route(ctx)
	if err != nil {
		return nil, err
	}
	return c.CompleteOnce(ctx, req)
}

// CompleteStreamed routes the request and delegates.
func (r *Router) CompleteStreamed(ctx context.Context, req ChatRequest) (LineStream, error) {
	c, err := r.Route(ctx)
	if err != nil {
		return nil, err
	}
	return c.CompleteStreamed(ctx, req)
}

// ModelInfo reports the default client's metadata, or a bare provider name
// when it is not registered.
func (r *Router) ModelInfo() ModelMeta {
	c, err := r.Route(context.Background())
	if err != nil {
		return ModelMeta{Provider: r.defaultProvider}
	}
	return c.ModelInfo()
}

// HealthCheck checks the default client.
func (r *Router) HealthCheck(ctx context.Context) error {
	c, err := r.Route(ctx)
	if err != nil {
		return err
	}
	return c.HealthCheck(ctx)
}

// keys returns the registered provider names (for error messages).
func (r *Router) keys() []string {
	out := make([]string, 0, len(r.clients))
	for k := range r.clients {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
