package bunrepo

import (
	"context"

	"github.com/goliatone/go-timeoff/pkg/domain"
	"github.com/goliatone/go-timeoff/pkg/interfaces/store"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type NotificationRepository struct {
	base baseRepository[domain.Notification]
}

func NewNotificationRepository(db *bun.DB) *NotificationRepository {
	return &NotificationRepository{
		base: newBaseRepository[domain.Notification](db, func(n *domain.Notification) *domain.RecordMeta { return &n.RecordMeta }),
	}
}

func (r *NotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	return r.base.create(ctx, n)
}

func (r *NotificationRepository) Update(ctx context.Context, n *domain.Notification) error {
	return r.base.update(ctx, n)
}

func (r *NotificationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Notification, error) {
	return r.base.getByID(ctx, id)
}

func (r *NotificationRepository) List(ctx context.Context, opts store.ListOptions) (store.ListResult[domain.Notification], error) {
	return r.base.list(ctx, opts)
}

func (r *NotificationRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return r.base.softDelete(ctx, id)
}

func (r *NotificationRepository) ListByUser(ctx context.Context, userID string, opts store.ListOptions) (store.ListResult[domain.Notification], error) {
	items, err := r.base.find(ctx, opts, ownedBy(userID))
	if err != nil {
		return store.ListResult[domain.Notification]{}, err
	}
	return store.ListResult[domain.Notification]{Items: items, Total: len(items)}, nil
}

func (r *NotificationRepository) MarkRead(ctx context.Context, id uuid.UUID) error {
	record, err := r.base.getByID(ctx, id)
	if err != nil {
		return err
	}
	if record.Read {
		return nil
	}
	record.Read = true
	record.ReadAt = r.base.now()
	return r.base.update(ctx, record)
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID string) (int, error) {
	now := r.base.now()
	res, err := r.base.db.
		NewUpdate().
		Model((*domain.Notification)(nil)).
		Set("? = ?", bun.Ident("read"), true).
		Set("read_at = ?", now).
		Set("updated_at = ?", now).
		Where("user_id = ?", userID).
		Where("deleted_at IS NULL").
		Where("? = ?", bun.Ident("read"), false).
		Exec(ctx)
	if err != nil {
		return 0, mapError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

func (r *NotificationRepository) CountUnread(ctx context.Context, userID string) (int, error) {
	return r.base.count(ctx, ownedBy(userID), unread())
}
