package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/schemaforge/registry-core/pkg/model"
)

func sampleEvent() model.UsageEvent {
	return model.UsageEvent{
		EventID:   uuid.New(),
		SchemaID:  uuid.New(),
		Operation: model.OpRead,
		Timestamp: time.Now(),
		Success:   true,
		LatencyMS: 10,
	}
}

func TestBus_PublishDeliversToSubscriber(t *testing.T) {
	bus := NewBus(8)
	defer bus.Close()

	events, unsubscribe := bus.Subscribe(8)
	defer unsubscribe()

	event := sampleEvent()
	if err := bus.Publish(context.Background(), event); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case got := <-events:
		if got.EventID != event.EventID {
			t.Fatalf("expected event %v, got %v", event.EventID, got.EventID)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestBus_TryPublishNeverBlocks(t *testing.T) {
	bus := NewBus(1)
	defer bus.Close()

	event := sampleEvent()
	if !bus.TryPublish(event) {
		t.Fatal("expected first publish to succeed")
	}
	// second may or may not succeed depending on dispatch timing; the
	// call must never block regardless.
	done := make(chan struct{})
	go func() {
		bus.TryPublish(event)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("TryPublish blocked")
	}
}

func TestBus_MultipleSubscribersEachReceive(t *testing.T) {
	bus := NewBus(8)
	defer bus.Close()

	a, unsubA := bus.Subscribe(8)
	defer unsubA()
	b, unsubB := bus.Subscribe(8)
	defer unsubB()

	event := sampleEvent()
	bus.PublishAsync(event)

	for _, ch := range []<-chan model.UsageEvent{a, b} {
		select {
		case got := <-ch:
			if got.EventID != event.EventID {
				t.Fatalf("unexpected event id %v", got.EventID)
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for subscriber delivery")
		}
	}
}

func TestBus_UnsubscribeStopsDelivery(t *testing.T) {
	bus := NewBus(8)
	defer bus.Close()

	events, unsubscribe := bus.Subscribe(8)
	unsubscribe()

	bus.PublishAsync(sampleEvent())

	select {
	case <-events:
		t.Fatal("did not expect delivery after unsubscribe")
	case <-time.After(100 * time.Millisecond):
	}
}
