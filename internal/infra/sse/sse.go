// Package sse renders typed server-sent events onto a long-lived HTTP response.
package sse

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// EventType is the name written on the "event:" line of a frame.
type EventType string

const (
	EventWishlist   EventType = "wishlist"
	EventMessage    EventType = "message"
	EventSuggestion EventType = "suggestion"
	EventProduct    EventType = "product"
)

// Valid reports whether t has a wire name.
func (t EventType) Valid() bool {
	switch t {
	case EventWishlist, EventMessage, EventSuggestion, EventProduct:
		return true
	}
	return false
}

// Event is one frame: a type and a JSON-encodable payload.
type Event struct {
	Type    EventType
	Payload any
}

// NewEvent builds an Event. An unknown type is a programming error and panics.
func NewEvent(t EventType, payload any) Event {
	if !t.Valid() {
		panic(fmt.Sprintf("sse: unknown event type %q", string(t)))
	}
	return Event{Type: t, Payload: payload}
}

// Flusher pushes buffered response bytes to the client.
// *http.ResponseController satisfies it.
type Flusher interface {
	Flush() error
}

// Encoder writes frames and flushes after each one.
type Encoder struct {
	bw      *bufio.Writer
	flusher Flusher
}

// NewEncoder creates an Encoder writing to w. flusher may be nil when w is
// not a network connection.
func NewEncoder(w io.Writer, flusher Flusher) *Encoder {
	return &Encoder{bw: bufio.NewWriter(w), flusher: flusher}
}

// Encode writes "event: <type>\ndata: <json>\n\n" and flushes it.
func (e *Encoder) Encode(ev Event) error {
	if !ev.Type.Valid() {
		panic(fmt.Sprintf("sse: unknown event type %q", string(ev.Type)))
	}
	data, err := json.Marshal(ev.Payload)
	if err != nil {
		return fmt.Errorf("sse encode %s: %w", ev.Type, err)
	}
	if _, err := fmt.Fprintf(e.bw, "event: %s\ndata: %s\n\n", ev.Type, data); err != nil {
		return fmt.Errorf("sse write %s: %w", ev.Type, err)
	}
	if err := e.bw.Flush(); err != nil {
		return fmt.Errorf("sse flush %s: %w", ev.Type, err)
	}
	if e.flusher != nil {
		if err := e.flusher.Flush(); err != nil {
			return fmt.Errorf("sse flush %s: %w", ev.Type, err)
		}
	}
	return nil
}

// PrepareStream sets the event-stream headers, lifts the server write
// deadline for this response and commits the 200 status.
func PrepareStream(w http.ResponseWriter) *Encoder {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	rc := http.NewResponseController(w)
	_ = rc.SetWriteDeadline(time.Time{}) // not every writer supports deadlines
	w.WriteHeader(http.StatusOK)
	return NewEncoder(w, rc)
}
