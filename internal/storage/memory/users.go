package memory

import (
	"context"
	"strings"

	"github.com/goliatone/go-timeoff/pkg/domain"
	"github.com/goliatone/go-timeoff/pkg/interfaces/store"
	"github.com/google/uuid"
)

type UserRepository struct {
	rows *table[domain.User]
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		rows: newTable(func(u *domain.User) *domain.RecordMeta { return &u.RecordMeta }),
	}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	if _, err := r.GetByEmail(ctx, user.Email); err == nil {
		return store.ErrConflict
	}
	return r.rows.create(ctx, user)
}

func (r *UserRepository) Update(ctx context.Context, user *domain.User) error {
	return r.rows.update(ctx, user)
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return r.rows.getByID(ctx, id)
}

func (r *UserRepository) List(ctx context.Context, opts store.ListOptions) (store.ListResult[domain.User], error) {
	return r.rows.list(ctx, opts, nil)
}

func (r *UserRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return r.rows.softDelete(ctx, id)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	result, err := r.rows.list(ctx, store.ListOptions{}, func(u *domain.User) bool {
		return strings.ToLower(u.Email) == email
	})
	if err != nil {
		return nil, err
	}
	if len(result.Items) == 0 {
		return nil, store.ErrNotFound
	}
	user := result.Items[0]
	return &user, nil
}

func (r *UserRepository) ListByManager(ctx context.Context, managerID string) ([]domain.User, error) {
	result, err := r.rows.list(ctx, store.ListOptions{}, func(u *domain.User) bool {
		return u.ManagerID == managerID
	})
	if err != nil {
		return nil, err
	}
	return result.Items, nil
}
