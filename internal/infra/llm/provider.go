// Package llm: ChatClient interface.
// Adapters implement this interface so the application is never coupled to a
// specific LLM vendor.
package llm

import "context"

// LineStream is a pull-based sequence of raw response lines.
// Nothing is read from the connection until Next is called, so a slow consumer
// holds the producer back. Close releases the underlying connection and is
// safe to call more than once.
type LineStream interface {
	Next() bool
	Line() string
	Err() error
	Close() error
}

// ChatClient is the model-agnostic interface for chat completions.
type ChatClient interface {
	// CompleteOnce performs a non-streaming completion and returns the last
	// decoded record of the response body, or nil when the body held none.
	CompleteOnce(ctx context.Context, req ChatRequest) (*ChatResponse, error)

	// CompleteStreamed starts a streaming completion and returns as soon as
	// the response headers arrive. Cancelling ctx closes the connection.
	CompleteStreamed(ctx context.Context, req ChatRequest) (LineStream, error)

	// ModelInfo returns static metadata about the provider/model.
	ModelInfo() ModelMeta

	// HealthCheck returns nil if the provider is reachable and operational.
	HealthCheck(ctx context.Context) error
}
