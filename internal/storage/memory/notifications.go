package memory

import (
	"context"

	"github.com/goliatone/go-timeoff/pkg/domain"
	"github.com/goliatone/go-timeoff/pkg/interfaces/store"
	"github.com/google/uuid"
)

type NotificationRepository struct {
	rows *table[domain.Notification]
}

func NewNotificationRepository() *NotificationRepository {
	return &NotificationRepository{
		rows: newTable(func(n *domain.Notification) *domain.RecordMeta { return &n.RecordMeta }),
	}
}

func (r *NotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	return r.rows.create(ctx, n)
}

func (r *NotificationRepository) Update(ctx context.Context, n *domain.Notification) error {
	return r.rows.update(ctx, n)
}

func (r *NotificationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Notification, error) {
	return r.rows.getByID(ctx, id)
}

func (r *NotificationRepository) List(ctx context.Context, opts store.ListOptions) (store.ListResult[domain.Notification], error) {
	return r.rows.list(ctx, opts, nil)
}

func (r *NotificationRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return r.rows.softDelete(ctx, id)
}

func (r *NotificationRepository) ListByUser(ctx context.Context, userID string, opts store.ListOptions) (store.ListResult[domain.Notification], error) {
	return r.rows.list(ctx, opts, func(n *domain.Notification) bool {
		return n.UserID == userID
	})
}

func (r *NotificationRepository) MarkRead(ctx context.Context, id uuid.UUID) error {
	n, err := r.rows.getByID(ctx, id)
	if err != nil {
		return err
	}
	if n.Read {
		return nil
	}
	n.Read = true
	n.ReadAt = r.rows.now()
	return r.rows.update(ctx, n)
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID string) (int, error) {
	now := r.rows.now()
	touched := r.rows.mutate(
		func(n *domain.Notification) bool { return n.UserID == userID && !n.Read },
		func(n *domain.Notification) {
			n.Read = true
			n.ReadAt = now
		},
	)
	return touched, nil
}

func (r *NotificationRepository) CountUnread(_ context.Context, userID string) (int, error) {
	return r.rows.count(func(n *domain.Notification) bool {
		return n.UserID == userID && !n.Read
	}), nil
}
