package search

import (
	"context"

	"github.com/matiasleandrokruk/shopwise/internal/infra/llm"
)

// pipeline holds the steps of one result stream.
type pipeline[T any] struct {
	// before runs once, ahead of the first payload. Optional.
	before func(ctx context.Context, emit func(T) bool) error
	// handle runs for every interpretation in arrival order.
	handle func(ctx context.Context, it Interpretation, emit func(T) bool) error
	// after runs once when the model stream ended cleanly. Optional.
	after func(ctx context.Context)
}

// run drains reader in a new goroutine and returns the unbuffered result
// channel. emit reports false once ctx is done.
func run[T any](ctx context.Context, reader *llm.PayloadReader, p pipeline[T]) <-chan Result[T] {
	out := make(chan Result[T])
	go func() {
		defer close(out)
		defer reader.Close() //nolint:errcheck

		emit := func(v T) bool {
			select {
			case out <- Result[T]{Value: v}:
				return true
			case <-ctx.Done():
				return false
			}
		}
		fail := func(err error) {
			if ctx.Err() != nil {
				return
			}
			select {
			case out <- Result[T]{Err: err}:
			case <-ctx.Done():
			}
		}

		if p.before != nil {
			if err := p.before(ctx, emit); err != nil {
				fail(err)
				return
			}
		}
		interp := NewInterpreter()
		for reader.Next() {
			results, err := interp.Feed(reader.Payload())
			if err != nil {
				fail(err)
				return
			}
			for _, it := range results {
				if err := p.handle(ctx, it, emit); err != nil {
					fail(err)
					return
				}
			}
			if ctx.Err() != nil {
				return
			}
		}
		if err := reader.Err(); err != nil {
			fail(err)
			return
		}
		if p.after != nil && ctx.Err() == nil {
			p.after(ctx)
		}
	}()
	return out
}
