// Unit tests for the in-memory event bus.
package eventbus

import (
	"testing"
	"time"

	logtest "github.com/sirupsen/logrus/hooks/test"
)

func TestEventBus_PublishAndSubscribe(t *testing.T) {
	bus := newTestBus()
	ch := bus.Subscribe("test.topic")

	bus.Publish("test.topic", "hello")

	select {
	case evt := <-ch:
		if evt.Topic != "test.topic" {
			t.Errorf("expected topic 'test.topic', got %q", evt.Topic)
		}
		if evt.Payload != "hello" {
			t.Errorf("expected payload 'hello', got %v", evt.Payload)
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("timeout: expected event to be received within 100ms")
	}
}

func TestEventBus_MultipleSubscribers_AllReceive(t *testing.T) {
	bus := newTestBus()
	ch1 := bus.Subscribe("multi.topic")
	ch2 := bus.Subscribe("multi.topic")

	bus.Publish("multi.topic", 42)

	for i, ch := range []<-chan Event{ch1, ch2} {
		select {
		case evt := <-ch:
			if evt.Payload != 42 {
				t.Errorf("subscriber %d: expected payload 42, got %v", i, evt.Payload)
			}
		case <-time.After(100 * time.Millisecond):
			t.Errorf("subscriber %d: timeout waiting for event", i)
		}
	}
}

func TestEventBus_DifferentTopics_NoInterference(t *testing.T) {
	bus := newTestBus()
	chA := bus.Subscribe("topic.a")
	chB := bus.Subscribe("topic.b")

	bus.Publish("topic.a", "for-a")

	select {
	case evt := <-chA:
		if evt.Payload != "for-a" {
			t.Errorf("topic.a: unexpected payload %v", evt.Payload)
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("topic.a: timeout waiting for event")
	}

	// topic.b should have received nothing
	select {
	case evt := <-chB:
		t.Errorf("topic.b: received unexpected event: %v", evt)
	default:
		// no event
	}
}

func TestEventBus_NonBlockingPublish_FullBuffer(t *testing.T) {
	bus := newTestBus()
	// Subscribe but never consume; the buffer fills up
	_ = bus.Subscribe("overflow.topic")

	// Publish more events than the buffer size; must not block
	done := make(chan struct{})
	go func() {
		for i := 0; i <= defaultBufferSize+10; i++ {
			bus.Publish("overflow.topic", i)
		}
		close(done)
	}()

	select {
	case <-done:
		// publish never blocked
	case <-time.After(500 * time.Millisecond):
		t.Error("Publish blocked when buffer was full (should be non-blocking)")
	}
	if bus.Dropped() != 11 {
		t.Errorf("expected 11 dropped deliveries, got %d", bus.Dropped())
	}
}

func TestEventBus_Close_EndsConsumers(t *testing.T) {
	bus := newTestBus()
	ch := bus.Subscribe("products.discovered")
	bus.Publish("products.discovered", "before")
	bus.Close()

	evt, ok := <-ch
	if !ok || evt.Payload != "before" {
		t.Fatalf("expected buffered event before close, got %v ok=%v", evt, ok)
	}
	if _, ok := <-ch; ok {
		t.Fatal("expected channel closed after Close")
	}

	// no panic on publish or double close
	bus.Publish("products.discovered", "after")
	bus.Close()

	late := bus.Subscribe("products.discovered")
	if _, ok := <-late; ok {
		t.Error("subscribing to a closed bus must return a closed channel")
	}
}

func newTestBus() *Bus {
	log, _ := logtest.NewNullLogger()
	return New(log)
}
