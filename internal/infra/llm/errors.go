package llm

import (
	"errors"
	"fmt"
)

// ErrNoMessages is returned when a request carries no conversation turns.
var ErrNoMessages = errors.New("chat request has no messages")

// TransportError reports a network failure or a non-success HTTP status from
// the chat-completion endpoint. StatusCode is zero for network failures.
type TransportError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// MalformedPayloadError reports a record or stream payload that is not valid JSON.
type MalformedPayloadError struct {
	Payload string
	Err     error
}

func (e *MalformedPayloadError) Error() string {
	const maxShown = 120
	p := e.Payload
	if len(p) > maxShown {
		p = p[:maxShown] + "..."
	}
	return fmt.Sprintf("malformed payload %q: %v", p, e.Err)
}

func (e *MalformedPayloadError) Unwrap() error { return e.Err }
