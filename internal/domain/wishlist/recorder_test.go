package wishlist

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	logtest "github.com/sirupsen/logrus/hooks/test"

	"github.com/matiasleandrokruk/shopwise/internal/infra/eventbus"
)

type stubProductStore struct {
	mu    sync.Mutex
	calls []ProductsDiscovered
	errs  map[string]error
}

func (s *stubProductStore) AddProducts(_ context.Context, wishlistID string, names []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, ProductsDiscovered{WishlistID: wishlistID, Names: names})
	return len(names), s.errs[wishlistID]
}

func (s *stubProductStore) snapshot() []ProductsDiscovered {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ProductsDiscovered(nil), s.calls...)
}

func TestProductRecorder_RecordsPublishedProducts(t *testing.T) {
	t.Parallel()

	log, hook := logtest.NewNullLogger()
	store := &stubProductStore{errs: map[string]error{"w2": errors.New("disk full")}}
	events := make(chan eventbus.Event)
	recorder := NewProductRecorder(store, log)

	finished := make(chan struct{})
	go func() {
		recorder.Run(context.Background(), events)
		close(finished)
	}()

	events <- eventbus.Event{Topic: TopicProductsDiscovered, Payload: ProductsDiscovered{WishlistID: "w1", Names: []string{"Widget"}}}
	events <- eventbus.Event{Topic: TopicProductsDiscovered, Payload: ProductsDiscovered{WishlistID: "w2", Names: []string{"Gadget", "Gizmo"}}}
	close(events)

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("recorder did not stop when its channel closed")
	}

	calls := store.snapshot()
	if len(calls) != 2 {
		t.Fatalf("expected 2 store calls, got %d", len(calls))
	}
	if calls[0].WishlistID != "w1" || calls[1].WishlistID != "w2" || len(calls[1].Names) != 2 {
		t.Errorf("unexpected calls: %+v", calls)
	}
	if hook.LastEntry() == nil || hook.LastEntry().Message != "record products failed" {
		t.Error("expected the store failure to be logged")
	}
}

func TestProductRecorder_StopsOnCancel(t *testing.T) {
	t.Parallel()

	log, _ := logtest.NewNullLogger()
	recorder := NewProductRecorder(&stubProductStore{}, log)
	ctx, cancel := context.WithCancel(context.Background())

	finished := make(chan struct{})
	go func() {
		recorder.Run(ctx, make(chan eventbus.Event))
		close(finished)
	}()

	cancel()
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("recorder did not stop on cancel")
	}
}

func TestProductRecorder_StopsWhenBusCloses(t *testing.T) {
	t.Parallel()

	log, _ := logtest.NewNullLogger()
	bus := eventbus.New(log)
	recorder := NewProductRecorder(&stubProductStore{}, log)

	events := bus.Subscribe(TopicProductsDiscovered)
	finished := make(chan struct{})
	go func() {
		recorder.Run(context.Background(), events)
		close(finished)
	}()

	bus.Close()
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("recorder did not stop when the bus closed")
	}
}

func TestProductRecorder_SkipsUnexpectedPayload(t *testing.T) {
	t.Parallel()

	log, hook := logtest.NewNullLogger()
	store := &stubProductStore{}
	recorder := NewProductRecorder(store, log)

	recorder.handle(context.Background(), eventbus.Event{Topic: TopicProductsDiscovered, Payload: "oops"})
	if len(store.snapshot()) != 0 {
		t.Error("store must not be called for an unexpected payload")
	}
	if hook.LastEntry() == nil || hook.LastEntry().Message != "unexpected payload, skipped" {
		t.Error("expected a warning for the unexpected payload")
	}
}

func TestProductRecorder_KeepsEventsPublishedBeforeRun(t *testing.T) {
	t.Parallel()

	log, _ := logtest.NewNullLogger()
	bus := eventbus.New(log)
	store := &stubProductStore{}
	recorder := NewProductRecorder(store, log)

	events := bus.Subscribe(TopicProductsDiscovered)
	bus.Publish(TopicProductsDiscovered, ProductsDiscovered{WishlistID: "w1", Names: []string{"Widget"}})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go recorder.Run(ctx, events)

	deadline := time.Now().Add(2 * time.Second)
	for len(store.snapshot()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("event published before Run was not recorded")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
