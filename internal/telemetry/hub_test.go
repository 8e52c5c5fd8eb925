package telemetry

import (
	"testing"
	"time"
)

func TestHub_SubscribeReceivesBroadcast(t *testing.T) {
	hub := NewHub()
	ch := hub.Subscribe("db/password")

	hub.Broadcast(ChangeEvent{Op: OpPut, Name: "db/password", Version: 1, At: time.Now()})

	select {
	case event := <-ch:
		if event.Op != OpPut || event.Name != "db/password" || event.Version != 1 {
			t.Errorf("Received wrong event: %+v", event)
		}
	default:
		t.Fatal("Expected a buffered event, channel was empty")
	}
}

func TestHub_BroadcastSkipsOtherNames(t *testing.T) {
	hub := NewHub()
	ch := hub.Subscribe("api/token")

	hub.Broadcast(ChangeEvent{Op: OpPut, Name: "db/password", At: time.Now()})

	if len(ch) != 0 {
		t.Errorf("Expected no events for a foreign name, got %d", len(ch))
	}
}

func TestHub_WildcardReceivesEverything(t *testing.T) {
	hub := NewHub()
	ch := hub.Subscribe(AllSecrets)

	hub.Broadcast(ChangeEvent{Op: OpPut, Name: "db/password", At: time.Now()})
	hub.Broadcast(ChangeEvent{Op: OpDelete, Name: "api/token", At: time.Now()})

	if len(ch) != 2 {
		t.Fatalf("Expected 2 events on wildcard channel, got %d", len(ch))
	}
}

func TestHub_StoreWideEventDeliveredOnce(t *testing.T) {
	hub := NewHub()
	ch := hub.Subscribe(AllSecrets)

	// Rotation is addressed to AllSecrets itself; the wildcard listener
	// must not see it twice.
	hub.Broadcast(ChangeEvent{Op: OpRotate, Name: AllSecrets, At: time.Now()})

	if len(ch) != 1 {
		t.Errorf("Expected exactly 1 event, got %d", len(ch))
	}
}

func TestHub_DropsWhenBufferFull(t *testing.T) {
	hub := NewHub()
	ch := hub.Subscribe("db/password")

	for i := 0; i < 100; i++ {
		hub.Broadcast(ChangeEvent{Op: OpPut, Name: "db/password", Version: i + 1, At: time.Now()})
	}

	// The broadcast above must not have blocked; overflow is dropped.
	if len(ch) != cap(ch) {
		t.Errorf("Expected a full buffer of %d events, got %d", cap(ch), len(ch))
	}
}

func TestHub_UnsubscribeClosesChannel(t *testing.T) {
	hub := NewHub()
	ch := hub.Subscribe("db/password")

	hub.Unsubscribe("db/password", ch)

	if _, open := <-ch; open {
		t.Error("Expected channel to be closed after unsubscribe")
	}

	// Broadcasting after unsubscribe must not panic on the closed channel.
	hub.Broadcast(ChangeEvent{Op: OpPut, Name: "db/password", At: time.Now()})
}
