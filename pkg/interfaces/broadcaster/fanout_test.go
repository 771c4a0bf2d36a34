package broadcaster

import (
	"context"
	"errors"
	"testing"
)

func TestHubBroadcast(t *testing.T) {
	var received []Event
	fn := Func(func(ctx context.Context, evt Event) error {
		received = append(received, evt)
		return nil
	})
	h := NewHub(fn, fn)
	if err := h.Broadcast(context.Background(), Event{Topic: "notifications.state", Payload: 2}); err != nil {
		t.Fatalf("broadcast: %v", err)
	}
	if len(received) != 2 {
		t.Fatalf("expected event fanout, got %d", len(received))
	}
}

func TestHubReturnsFirstError(t *testing.T) {
	calls := 0
	errExpected := errors.New("boom")
	fn := Func(func(ctx context.Context, evt Event) error {
		calls++
		if calls == 1 {
			return errExpected
		}
		return nil
	})
	h := NewHub(fn, fn)
	err := h.Broadcast(context.Background(), Event{})
	if !errors.Is(err, errExpected) {
		t.Fatalf("expected error %v, got %v", errExpected, err)
	}
	if calls != 2 {
		t.Fatalf("expected both sinks invoked, got %d", calls)
	}
}

func TestHubTopicsAndUnsubscribe(t *testing.T) {
	h := NewHub()
	var requests, all int
	unsubscribe := h.Subscribe(Func(func(ctx context.Context, evt Event) error {
		requests++
		return nil
	}), "requests.state")
	h.Subscribe(Func(func(ctx context.Context, evt Event) error {
		all++
		return nil
	}))

	_ = h.Broadcast(context.Background(), Event{Topic: "notifications.state"})
	_ = h.Broadcast(context.Background(), Event{Topic: "requests.state"})
	if requests != 1 || all != 2 {
		t.Fatalf("unexpected deliveries requests=%d all=%d", requests, all)
	}

	unsubscribe()
	if h.Len() != 1 {
		t.Fatalf("expected one subscription left, got %d", h.Len())
	}
	_ = h.Broadcast(context.Background(), Event{Topic: "requests.state"})
	if requests != 1 {
		t.Fatalf("expected no delivery after unsubscribe")
	}
}
