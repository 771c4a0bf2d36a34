package inbox

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/goliatone/go-timeoff/internal/storage/memory"
	"github.com/goliatone/go-timeoff/pkg/activity"
	"github.com/goliatone/go-timeoff/pkg/interfaces/broadcaster"
	"github.com/goliatone/go-timeoff/pkg/interfaces/logger"
	"github.com/goliatone/go-timeoff/pkg/interfaces/store"
)

func TestServiceCreateAndList(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewNotificationRepository()
	events := captureBroadcaster()
	svc := newTestService(t, repo, events, nil)

	first, err := svc.Create(ctx, CreateInput{UserID: "user-1", Title: "Submitted", Message: "Body"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if first.Read {
		t.Fatalf("expected new notification to be unread")
	}
	if _, err := svc.Create(ctx, CreateInput{UserID: "user-1", Title: "Approved"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Create(ctx, CreateInput{UserID: "user-2", Title: "Other"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(events.events) != 3 || events.events[0].Topic != TopicCreated {
		t.Fatalf("expected broadcast on create, got %+v", events.events)
	}

	items, err := svc.List(ctx, "user-1", false)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].CreatedAt.Before(items[1].CreatedAt) {
		t.Fatalf("expected newest first")
	}
}

func TestServiceCreateValidates(t *testing.T) {
	svc := newTestService(t, memory.NewNotificationRepository(), captureBroadcaster(), nil)
	if _, err := svc.Create(context.Background(), CreateInput{Title: "x"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := svc.Create(context.Background(), CreateInput{UserID: "u"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestServiceMarkReadAndCount(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewNotificationRepository()
	hook := &captureHook{}
	svc := newTestService(t, repo, captureBroadcaster(), hook)

	item, err := svc.Create(ctx, CreateInput{UserID: "user-2", Title: "Alert"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Create(ctx, CreateInput{UserID: "user-2", Title: "Second"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.MarkRead(ctx, "user-2", item.ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	count, err := svc.UnreadCount(ctx, "user-2")
	if err != nil {
		t.Fatalf("unread count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 unread, got %d", count)
	}
	if len(hook.events) != 1 || hook.events[0].Verb != activity.VerbInboxRead {
		t.Fatalf("expected read activity, got %+v", hook.events)
	}

	unread, err := svc.List(ctx, "user-2", true)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(unread) != 1 || unread[0].Title != "Second" {
		t.Fatalf("expected only the unread notification, got %+v", unread)
	}

	if err := svc.MarkRead(ctx, "user-2", item.ID); err != nil {
		t.Fatalf("mark read twice: %v", err)
	}
	if len(hook.events) != 1 {
		t.Fatalf("expected no activity for an already read notification")
	}
}

func TestServiceMarkReadChecksOwnership(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, memory.NewNotificationRepository(), captureBroadcaster(), nil)

	item, err := svc.Create(ctx, CreateInput{UserID: "owner", Title: "Private"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.MarkRead(ctx, "intruder", item.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	count, _ := svc.UnreadCount(ctx, "owner")
	if count != 1 {
		t.Fatalf("expected notification to stay unread, got %d", count)
	}
}

func TestServiceMarkAllRead(t *testing.T) {
	ctx := context.Background()
	events := captureBroadcaster()
	svc := newTestService(t, memory.NewNotificationRepository(), events, nil)

	for _, title := range []string{"a", "b", "c"} {
		if _, err := svc.Create(ctx, CreateInput{UserID: "user-3", Title: title}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	if _, err := svc.Create(ctx, CreateInput{UserID: "user-4", Title: "untouched"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := svc.MarkAllRead(ctx, "user-3")
	if err != nil {
		t.Fatalf("mark all read: %v", err)
	}
	if updated != 3 {
		t.Fatalf("expected 3 updated, got %d", updated)
	}
	if last := events.events[len(events.events)-1]; last.Topic != TopicReadAll {
		t.Fatalf("expected read_all broadcast, got %s", last.Topic)
	}
	if count, _ := svc.UnreadCount(ctx, "user-4"); count != 1 {
		t.Fatalf("expected other user untouched, got %d", count)
	}

	again, err := svc.MarkAllRead(ctx, "user-3")
	if err != nil || again != 0 {
		t.Fatalf("expected no-op second pass, got %d, %v", again, err)
	}
}

type capturedEvents struct {
	mu     sync.Mutex
	events []broadcaster.Event
}

func captureBroadcaster() *capturedEvents {
	sink := &capturedEvents{}
	return sink
}

func (c *capturedEvents) Broadcast(ctx context.Context, event broadcaster.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

type captureHook struct {
	events []activity.Event
}

func (c *captureHook) Notify(_ context.Context, evt activity.Event) {
	c.events = append(c.events, evt)
}

func newTestService(t *testing.T, repo store.NotificationRepository, br broadcaster.Broadcaster, hook activity.Hook) *Service {
	t.Helper()
	var hooks activity.Hooks
	if hook != nil {
		hooks = activity.Hooks{hook}
	}
	svc, err := NewService(Dependencies{
		Repository:  repo,
		Broadcaster: br,
		Logger:      &logger.Nop{},
		Activity:    hooks,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}
