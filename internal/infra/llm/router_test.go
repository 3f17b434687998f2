// Unit tests for Router.
// Uses stub ChatClient implementations.
package llm

import (
	"context"
	"errors"
	"testing"
)

var _ ChatClient = (*Router)(nil)

// stubClient is a minimal ChatClient stub for router testing.
type stubClient struct {
	id        string
	healthErr error
}

func (s *stubClient) CompleteOnce(_ context.Context, _ ChatRequest) (*ChatResponse, error) {
	return &ChatResponse{ID: s.id}, nil
}
func (s *stubClient) CompleteStreamed(_ context.Context, _ ChatRequest) (LineStream, error) {
	return newSliceLines("data: " + s.id), nil
}
func (s *stubClient) ModelInfo() ModelMeta               { return ModelMeta{ID: s.id, Provider: "stub"} }
func (s *stubClient) HealthCheck(_ context.Context) error { return s.healthErr }

// ============================================================================
// Router tests
// ============================================================================

func TestRouter_Route_ReturnsDefaultClient(t *testing.T) {
	t.Parallel()

	openai := &stubClient{id: "gpt-4o-mini"}
	r := NewRouter(map[string]ChatClient{"openai": openai}, "openai")

	c, err := r.Route(context.Background())
	if err != nil {
		t.Fatalf("Route failed: %v", err)
	}
	if c.ModelInfo().Provider != "stub" || c.ModelInfo().ID != "gpt-4o-mini" {
		t.Errorf("unexpected client returned: %v", c.ModelInfo())
	}
}

func TestRouter_Route_UnknownDefaultProvider_ReturnsError(t *testing.T) {
	t.Parallel()

	r := NewRouter(map[string]ChatClient{"ollama": &stubClient{id: "llama3.2:3b"}}, "openai")
	if _, err := r.Route(context.Background()); err == nil {
		t.Error("expected error for unknown defaultProvider, got nil")
	}
	if _, err := r.CompleteOnce(context.Background(), ChatRequest{}); err == nil {
		t.Error("expected CompleteOnce to fail without a default client")
	}
	if info := r.ModelInfo(); info.Provider != "openai" || info.ID != "" {
		t.Errorf("unexpected fallback model info: %+v", info)
	}
}

func TestRouter_RegisterAndRoute_NewClient(t *testing.T) {
	t.Parallel()

	r := NewRouter(map[string]ChatClient{}, "ollama")
	r.Register("ollama", &stubClient{id: "llama3.2:3b"})

	c, err := r.Route(context.Background())
	if err != nil {
		t.Fatalf("Route after Register failed: %v", err)
	}
	if c.ModelInfo().ID != "llama3.2:3b" {
		t.Errorf("expected llama3.2:3b, got %q", c.ModelInfo().ID)
	}
}

func TestRouter_DelegatesToDefaultClient(t *testing.T) {
	t.Parallel()

	down := errors.New("down")
	r := NewRouter(map[string]ChatClient{
		"openai": &stubClient{id: "a"},
		"ollama": &stubClient{id: "b", healthErr: down},
	}, "ollama")

	resp, err := r.CompleteOnce(context.Background(), ChatRequest{})
	if err != nil || resp.ID != "b" {
		t.Fatalf("CompleteOnce: resp=%+v err=%v", resp, err)
	}

	lines, err := r.CompleteStreamed(context.Background(), ChatRequest{})
	if err != nil {
		t.Fatalf("CompleteStreamed: %v", err)
	}
	if !lines.Next() || lines.Line() != "data: b" {
		t.Errorf("unexpected streamed line")
	}

	if err := r.HealthCheck(context.Background()); !errors.Is(err, down) {
		t.Errorf("expected health error from default client, got %v", err)
	}
}

func TestRouter_NewRouter_CopiesInputMap(t *testing.T) {
	t.Parallel()

	input := map[string]ChatClient{"openai": &stubClient{id: "a"}}
	r := NewRouter(input, "openai")
	delete(input, "openai")

	if _, err := r.Route(context.Background()); err != nil {
		t.Errorf("router must not observe caller map mutations: %v", err)
	}
}
