package bus

import (
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("merge.", 10)
	defer unsub()

	b.Publish(Event{Kind: "merge.scan.progress", Payload: "test"})

	select {
	case evt := <-ch:
		if evt.Kind != "merge.scan.progress" {
			t.Errorf("got kind %q, want merge.scan.progress", evt.Kind)
		}
		if evt.Timestamp.IsZero() {
			t.Error("zero timestamp not filled in on publish")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestNamespaceFiltering(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("merge.scan.", 10)
	defer unsub()

	b.Publish(Event{Kind: "merge.write.progress"})
	b.Publish(Event{Kind: "merge.scan.done"})

	select {
	case evt := <-ch:
		if evt.Kind != "merge.scan.done" {
			t.Errorf("got kind %q, want merge.scan.done", evt.Kind)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}

	// Ensure the write event was not delivered.
	select {
	case evt := <-ch:
		t.Errorf("unexpected event: %v", evt)
	case <-time.After(50 * time.Millisecond):
		// Expected: no more events.
	}
}

func TestUnsubscribe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("merge.", 10)
	unsub()

	b.Publish(Event{Kind: "merge.scan.progress"})

	select {
	case evt := <-ch:
		t.Errorf("received event after unsubscribe: %v", evt)
	case <-time.After(50 * time.Millisecond):
		// Expected.
	}
}

func TestDropOnFullBuffer(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("test.", 1)
	defer unsub()

	// Fill buffer.
	b.Publish(Event{Kind: "test.one"})
	// This should be dropped (non-blocking).
	b.Publish(Event{Kind: "test.two"})

	evt := <-ch
	if evt.Kind != "test.one" {
		t.Errorf("got %q, want test.one", evt.Kind)
	}
}
