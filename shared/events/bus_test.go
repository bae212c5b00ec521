package events

import "testing"

func TestPublishDeliversInSubscriptionOrder(t *testing.T) {
	bus := NewBus()
	var seen []string
	bus.Subscribe(func(event Event) { seen = append(seen, "first:"+event.Type) })
	bus.Subscribe(func(event Event) { seen = append(seen, "second:"+event.Type) })

	bus.Publish("a", nil)

	if len(seen) != 2 || seen[0] != "first:a" || seen[1] != "second:a" {
		t.Fatalf("delivery order = %v", seen)
	}
}

func TestStageFlushDeliversInPublishOrder(t *testing.T) {
	bus := NewBus()
	var seen []string
	bus.Subscribe(func(event Event) { seen = append(seen, event.Type) })

	bus.Stage()
	bus.Publish("a", nil)
	bus.Publish("b", nil)
	if len(seen) != 0 {
		t.Fatalf("staged publishes delivered early: %v", seen)
	}

	bus.Flush()
	if len(seen) != 2 || seen[0] != "a" || seen[1] != "b" {
		t.Fatalf("flushed events = %v, want [a b]", seen)
	}

	// Staging ended with the flush.
	bus.Publish("c", nil)
	if len(seen) != 3 || seen[2] != "c" {
		t.Fatalf("post-flush publish = %v", seen)
	}
}

func TestDiscardDropsStagedEvents(t *testing.T) {
	bus := NewBus()
	var seen []string
	bus.Subscribe(func(event Event) { seen = append(seen, event.Type) })

	bus.Stage()
	bus.Publish("a", nil)
	bus.Discard()

	bus.Publish("b", nil)
	if len(seen) != 1 || seen[0] != "b" {
		t.Fatalf("events after discard = %v, want [b]", seen)
	}
}

func TestNilBusIsNoOp(t *testing.T) {
	var bus *Bus
	bus.Publish("a", nil)
	bus.Stage()
	bus.Flush()
	bus.Discard()
}
