package bunrepo

import (
	"context"

	"github.com/goliatone/go-timeoff/pkg/domain"
	"github.com/goliatone/go-timeoff/pkg/interfaces/store"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type RequestRepository struct {
	base baseRepository[domain.Request]
}

func NewRequestRepository(db *bun.DB) *RequestRepository {
	return &RequestRepository{
		base: newBaseRepository[domain.Request](db, func(r *domain.Request) *domain.RecordMeta { return &r.RecordMeta }),
	}
}

func (r *RequestRepository) Create(ctx context.Context, req *domain.Request) error {
	return r.base.create(ctx, req)
}

func (r *RequestRepository) Update(ctx context.Context, req *domain.Request) error {
	return r.base.update(ctx, req)
}

func (r *RequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Request, error) {
	return r.base.getByID(ctx, id)
}

func (r *RequestRepository) List(ctx context.Context, opts store.ListOptions) (store.ListResult[domain.Request], error) {
	return r.base.list(ctx, opts)
}

func (r *RequestRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return r.base.softDelete(ctx, id)
}

func (r *RequestRepository) ListFiltered(ctx context.Context, filter store.RequestFilter, opts store.ListOptions) (store.ListResult[domain.Request], error) {
	if filter.UserIDs != nil && len(filter.UserIDs) == 0 {
		return store.ListResult[domain.Request]{}, nil
	}
	items, err := r.base.find(ctx, opts, matching(filter))
	if err != nil {
		return store.ListResult[domain.Request]{}, err
	}
	return store.ListResult[domain.Request]{Items: items, Total: len(items)}, nil
}
