package bunrepo

import (
	"context"
	"errors"
	"strings"

	"github.com/goliatone/go-timeoff/pkg/domain"
	"github.com/goliatone/go-timeoff/pkg/interfaces/store"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type UserRepository struct {
	base baseRepository[domain.User]
}

func NewUserRepository(db *bun.DB) *UserRepository {
	return &UserRepository{
		base: newBaseRepository[domain.User](db, func(u *domain.User) *domain.RecordMeta { return &u.RecordMeta }),
	}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if _, err := r.GetByEmail(ctx, user.Email); err == nil {
		return store.ErrConflict
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}
	return r.base.create(ctx, user)
}

func (r *UserRepository) Update(ctx context.Context, user *domain.User) error {
	return r.base.update(ctx, user)
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return r.base.getByID(ctx, id)
}

func (r *UserRepository) List(ctx context.Context, opts store.ListOptions) (store.ListResult[domain.User], error) {
	return r.base.list(ctx, opts)
}

func (r *UserRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return r.base.softDelete(ctx, id)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.base.get(ctx, live(), byEmail(email))
}

func (r *UserRepository) ListByManager(ctx context.Context, managerID string) ([]domain.User, error) {
	return r.base.find(ctx, store.ListOptions{}, reportsTo(managerID))
}
