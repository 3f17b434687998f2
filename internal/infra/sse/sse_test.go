package sse

import (
	"bytes"
	"errors"
	"net/http/httptest"
	"testing"
)

type countingFlusher struct {
	flushes int
	err     error
}

func (f *countingFlusher) Flush() error {
	f.flushes++
	return f.err
}

func TestEncoder_ProductFrame(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	enc := NewEncoder(&buf, nil)
	if err := enc.Encode(NewEvent(EventProduct, []string{"Widget"})); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	want := "event: product\ndata: [\"Widget\"]\n\n"
	if buf.String() != want {
		t.Fatalf("got %q, want %q", buf.String(), want)
	}
}

func TestEncoder_FlushesAfterEachEvent(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	f := &countingFlusher{}
	enc := NewEncoder(&buf, f)

	events := []Event{
		NewEvent(EventWishlist, map[string]string{"id": "w1"}),
		NewEvent(EventMessage, map[string]string{"text": "hi"}),
		NewEvent(EventSuggestion, []string{"Which size?"}),
	}
	for i, ev := range events {
		if err := enc.Encode(ev); err != nil {
			t.Fatalf("Encode %d: %v", i, err)
		}
		if f.flushes != i+1 {
			t.Fatalf("after event %d: %d flushes", i, f.flushes)
		}
	}

	want := "event: wishlist\ndata: {\"id\":\"w1\"}\n\n" +
		"event: message\ndata: {\"text\":\"hi\"}\n\n" +
		"event: suggestion\ndata: [\"Which size?\"]\n\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestEncoder_FlushError(t *testing.T) {
	t.Parallel()

	enc := NewEncoder(&bytes.Buffer{}, &countingFlusher{err: errors.New("client gone")})
	if err := enc.Encode(NewEvent(EventProduct, []string{"x"})); err == nil {
		t.Fatal("expected flush error")
	}
}

func TestEncoder_UnencodablePayload(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	enc := NewEncoder(&buf, nil)
	if err := enc.Encode(NewEvent(EventProduct, make(chan int))); err == nil {
		t.Fatal("expected marshal error")
	}
	if buf.Len() != 0 {
		t.Errorf("nothing must be written on marshal failure, got %q", buf.String())
	}
}

func TestNewEvent_UnknownTypePanics(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for unknown event type")
		}
	}()
	NewEvent(EventType("bogus"), nil)
}

func TestPrepareStream_SetsHeaders(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	enc := PrepareStream(rec)
	if err := enc.Encode(NewEvent(EventProduct, []string{"Widget"})); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	headers := map[string]string{
		"Content-Type":  "text/event-stream",
		"Cache-Control": "no-cache",
		"Connection":    "keep-alive",
	}
	for k, v := range headers {
		if got := rec.Header().Get(k); got != v {
			t.Errorf("%s = %q, want %q", k, got, v)
		}
	}
	if rec.Code != 200 {
		t.Errorf("status %d", rec.Code)
	}
	if !rec.Flushed {
		t.Error("expected the recorder to be flushed")
	}
	if rec.Body.String() != "event: product\ndata: [\"Widget\"]\n\n" {
		t.Errorf("unexpected body %q", rec.Body.String())
	}
}
