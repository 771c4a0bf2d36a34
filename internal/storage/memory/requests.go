package memory

import (
	"context"

	"github.com/goliatone/go-timeoff/pkg/domain"
	"github.com/goliatone/go-timeoff/pkg/interfaces/store"
	"github.com/google/uuid"
)

type RequestRepository struct {
	rows *table[domain.Request]
}

func NewRequestRepository() *RequestRepository {
	return &RequestRepository{
		rows: newTable(func(r *domain.Request) *domain.RecordMeta { return &r.RecordMeta }),
	}
}

func (r *RequestRepository) Create(ctx context.Context, req *domain.Request) error {
	return r.rows.create(ctx, req)
}

func (r *RequestRepository) Update(ctx context.Context, req *domain.Request) error {
	return r.rows.update(ctx, req)
}

func (r *RequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Request, error) {
	return r.rows.getByID(ctx, id)
}

func (r *RequestRepository) List(ctx context.Context, opts store.ListOptions) (store.ListResult[domain.Request], error) {
	return r.rows.list(ctx, opts, nil)
}

func (r *RequestRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return r.rows.softDelete(ctx, id)
}

func (r *RequestRepository) ListFiltered(ctx context.Context, filter store.RequestFilter, opts store.ListOptions) (store.ListResult[domain.Request], error) {
	var users map[string]struct{}
	if filter.UserIDs != nil {
		users = make(map[string]struct{}, len(filter.UserIDs))
		for _, id := range filter.UserIDs {
			users[id] = struct{}{}
		}
	}
	return r.rows.list(ctx, opts, func(req *domain.Request) bool {
		if users != nil {
			if _, ok := users[req.UserID]; !ok {
				return false
			}
		}
		if filter.Status != "" && req.Status != filter.Status {
			return false
		}
		return true
	})
}
