package inbox

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/goliatone/go-timeoff/pkg/activity"
	"github.com/goliatone/go-timeoff/pkg/domain"
	"github.com/goliatone/go-timeoff/pkg/interfaces/broadcaster"
	"github.com/goliatone/go-timeoff/pkg/interfaces/logger"
	"github.com/goliatone/go-timeoff/pkg/interfaces/store"
	"github.com/google/uuid"
)

// Broadcast topics.
const (
	TopicCreated = "inbox.created"
	TopicUpdated = "inbox.updated"
	TopicReadAll = "inbox.read_all"
)

// CreateInput captures the fields required to insert a new notification.
type CreateInput struct {
	UserID    string
	RequestID string
	Title     string
	Message   string
}

// Dependencies wires repositories and realtime hooks into the service.
type Dependencies struct {
	Repository  store.NotificationRepository
	Broadcaster broadcaster.Broadcaster
	Logger      logger.Logger
	Activity    activity.Hooks
	Clock       func() time.Time
}

// Service manages a user's notifications and realtime fan-out.
type Service struct {
	repo        store.NotificationRepository
	broadcaster broadcaster.Broadcaster
	logger      logger.Logger
	activity    activity.Hooks
	now         func() time.Time
}

var (
	errRepositoryRequired = errors.New("inbox: repository is required")
	// ErrInvalidInput is returned for incomplete create requests.
	ErrInvalidInput = errors.New("inbox: invalid input")
)

// NewService constructs the inbox service.
func NewService(deps Dependencies) (*Service, error) {
	if deps.Repository == nil {
		return nil, errRepositoryRequired
	}
	if deps.Broadcaster == nil {
		deps.Broadcaster = &broadcaster.Nop{}
	}
	if deps.Logger == nil {
		deps.Logger = &logger.Nop{}
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	return &Service{
		repo:        deps.Repository,
		broadcaster: deps.Broadcaster,
		logger:      deps.Logger,
		activity:    deps.Activity,
		now:         deps.Clock,
	}, nil
}

// Create inserts a new unread notification.
func (s *Service) Create(ctx context.Context, input CreateInput) (*domain.Notification, error) {
	if err := validateCreateInput(input); err != nil {
		return nil, err
	}
	item := &domain.Notification{
		UserID:    strings.TrimSpace(input.UserID),
		RequestID: input.RequestID,
		Title:     input.Title,
		Message:   input.Message,
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, err
	}
	s.emit(ctx, TopicCreated, item)
	return item, nil
}

// List returns the user's notifications, newest first.
func (s *Service) List(ctx context.Context, userID string, unreadOnly bool) ([]domain.Notification, error) {
	result, err := s.repo.ListByUser(ctx, strings.TrimSpace(userID), store.ListOptions{})
	if err != nil {
		return nil, err
	}
	items := make([]domain.Notification, 0, len(result.Items))
	for _, item := range result.Items {
		if unreadOnly && item.Read {
			continue
		}
		items = append(items, item)
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return items, nil
}

// MarkRead flags one notification read. Notifications owned by someone else
// are reported as not found to avoid leaking existence checks.
func (s *Service) MarkRead(ctx context.Context, userID string, id uuid.UUID) error {
	userID = strings.TrimSpace(userID)
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if item.UserID != userID {
		return fmt.Errorf("inbox: notification %s: %w", id, store.ErrNotFound)
	}
	if item.Read {
		return nil
	}
	if err := s.repo.MarkRead(ctx, id); err != nil {
		return err
	}
	item.Read = true
	item.ReadAt = s.now().UTC()
	s.emit(ctx, TopicUpdated, item)
	s.activity.Notify(ctx, activity.Event{
		Verb:       activity.VerbInboxRead,
		ActorID:    userID,
		UserID:     item.UserID,
		ObjectType: "notification",
		ObjectID:   item.ID.String(),
	})
	return nil
}

// MarkAllRead flags every unread notification of the user read and returns
// how many changed.
func (s *Service) MarkAllRead(ctx context.Context, userID string) (int, error) {
	userID = strings.TrimSpace(userID)
	updated, err := s.repo.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, err
	}
	if updated == 0 {
		return 0, nil
	}
	evt := broadcaster.Event{
		Topic:   TopicReadAll,
		Payload: map[string]any{"user_id": userID, "updated": updated},
	}
	if err := s.broadcaster.Broadcast(ctx, evt); err != nil {
		s.logger.Warn("broadcast inbox event failed", logger.Err(err))
	}
	s.activity.Notify(ctx, activity.Event{
		Verb:       activity.VerbInboxReadAll,
		ActorID:    userID,
		UserID:     userID,
		ObjectType: "notification",
		Metadata:   map[string]any{"updated": updated},
	})
	return updated, nil
}

// UnreadCount returns the unread count for the given user.
func (s *Service) UnreadCount(ctx context.Context, userID string) (int, error) {
	return s.repo.CountUnread(ctx, strings.TrimSpace(userID))
}

func (s *Service) emit(ctx context.Context, topic string, item *domain.Notification) {
	if item == nil {
		return
	}
	payload := broadcaster.Event{
		Topic: topic,
		Payload: map[string]any{
			"id":         item.ID.String(),
			"user_id":    item.UserID,
			"request_id": item.RequestID,
			"title":      item.Title,
			"read":       item.Read,
		},
	}
	if err := s.broadcaster.Broadcast(ctx, payload); err != nil {
		s.logger.Warn("broadcast inbox event failed", logger.Err(err))
	}
}

func validateCreateInput(input CreateInput) error {
	if strings.TrimSpace(input.UserID) == "" {
		return fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}
	if strings.TrimSpace(input.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	return nil
}
