package events

import "testing"

func TestPublishSubscribe(t *testing.T) {
	h := NewEventHub()
	ch := h.Subscribe()

	h.Publish(RestorePhase, RestorePhaseEvent{From: "Reading", To: "Validating", Ts: 1})

	ev := <-ch
	if ev.Name != RestorePhase {
		t.Fatalf("Name = %q", ev.Name)
	}
	p, err := DecodeAs[RestorePhaseEvent](ev)
	if err != nil {
		t.Fatalf("DecodeAs: %v", err)
	}
	if p.From != "Reading" || p.To != "Validating" {
		t.Fatalf("payload = %+v", p)
	}

	h.Unsubscribe(ch)
	if _, ok := <-ch; ok {
		t.Fatalf("channel not closed after Unsubscribe")
	}
	// Publishing without subscribers must not block.
	h.Publish(ClpcRun, ClpcRunEvent{})
}

func TestPublishDropsWhenFull(t *testing.T) {
	h := NewEventHub()
	ch := h.Subscribe()
	for i := 0; i < cap(ch)+4; i++ {
		h.Publish(ClpcRun, ClpcRunEvent{Ts: int64(i)})
	}
	if len(ch) != cap(ch) {
		t.Fatalf("len = %d, want %d", len(ch), cap(ch))
	}
}

func TestNilHub(t *testing.T) {
	var h *EventHub
	h.Publish(ClpcRun, ClpcRunEvent{})
}

func TestDecodeAsEmpty(t *testing.T) {
	p, err := DecodeAs[ClpcRunEvent](Event{Name: ClpcRun})
	if err != nil || p != (ClpcRunEvent{}) {
		t.Fatalf("DecodeAs = %+v, %v", p, err)
	}
}

func TestSubscribeFiltered(t *testing.T) {
	h := NewEventHub()
	clpc := h.Subscribe(ClpcRun)
	all := h.Subscribe()

	h.Publish(RestorePhase, RestorePhaseEvent{From: "Idle", To: "Reading"})
	h.Publish(ClpcRun, ClpcRunEvent{Ts: 7})

	if len(clpc) != 1 {
		t.Fatalf("filtered subscriber got %d events, want 1", len(clpc))
	}
	if ev := <-clpc; ev.Name != ClpcRun {
		t.Fatalf("filtered subscriber got %q", ev.Name)
	}
	if len(all) != 2 {
		t.Fatalf("subscriber got %d events, want 2", len(all))
	}
}

func TestClose(t *testing.T) {
	h := NewEventHub()
	ch := h.Subscribe()
	h.Close()

	if _, ok := <-ch; ok {
		t.Fatalf("channel not closed after Close")
	}
	if _, ok := <-h.Subscribe(); ok {
		t.Fatalf("subscription after Close is open")
	}
	h.Publish(ClpcRun, ClpcRunEvent{})
	// Unsubscribing an already closed channel is a no-op.
	h.Unsubscribe(ch)
}
