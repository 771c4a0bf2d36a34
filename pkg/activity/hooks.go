package activity

import (
	"context"
	"time"

	"github.com/goliatone/go-timeoff/pkg/interfaces/logger"
)

// Verbs emitted by the workflow and inbox services.
const (
	VerbRequestSubmitted = "request.submitted"
	VerbRequestApproved  = "request.approved"
	VerbRequestRejected  = "request.rejected"
	VerbInboxRead        = "inbox.read"
	VerbInboxReadAll     = "inbox.read_all"
)

// Event captures the common fields consumers need to record activity/audit events.
type Event struct {
	Verb       string
	ActorID    string
	UserID     string
	ObjectType string
	ObjectID   string
	Metadata   map[string]any
	OccurredAt time.Time
}

// Hook observers receive activity events.
type Hook interface {
	Notify(ctx context.Context, evt Event)
}

// Hooks provides a convenient fan-out collection.
type Hooks []Hook

// Notify delivers the event to every hook, skipping nil entries.
func (h Hooks) Notify(ctx context.Context, evt Event) {
	if len(h) == 0 {
		return
	}
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now().UTC()
	}
	for _, hook := range h {
		if hook == nil {
			continue
		}
		hook.Notify(ctx, evt)
	}
}

// Nop is a no-op hook useful for defaults.
type Nop struct{}

func (Nop) Notify(_ context.Context, _ Event) {}

// LogHook writes every event to a logger at info level.
type LogHook struct {
	Logger logger.Logger
}

func (h LogHook) Notify(_ context.Context, evt Event) {
	if h.Logger == nil {
		return
	}
	fields := []logger.Field{
		{Key: "verb", Value: evt.Verb},
		{Key: "actor_id", Value: evt.ActorID},
		{Key: "user_id", Value: evt.UserID},
		{Key: "object_type", Value: evt.ObjectType},
		{Key: "object_id", Value: evt.ObjectID},
	}
	for k, v := range evt.Metadata {
		fields = append(fields, logger.Field{Key: k, Value: v})
	}
	h.Logger.Info("activity", fields...)
}

// CloneMetadata makes a shallow copy so hooks can mutate without affecting callers.
func CloneMetadata(src map[string]any) map[string]any {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
