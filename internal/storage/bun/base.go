package bunrepo

import (
	"context"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-timeoff/pkg/domain"
	"github.com/goliatone/go-timeoff/pkg/interfaces/store"
)

// baseRepository adapts go-repository-bun to the store contracts. Every
// entity embeds domain.RecordMeta, reached through meta.
type baseRepository[T any] struct {
	repo repository.Repository[*T]
	db   *bun.DB
	meta func(*T) *domain.RecordMeta
	now  func() time.Time
}

func newBaseRepository[T any](db *bun.DB, meta func(*T) *domain.RecordMeta) baseRepository[T] {
	handlers := repository.ModelHandlers[*T]{
		NewRecord:          func() *T { return new(T) },
		GetID:              func(rec *T) uuid.UUID { return meta(rec).ID },
		SetID:              func(rec *T, id uuid.UUID) { meta(rec).ID = id },
		GetIdentifier:      func() string { return "id" },
		GetIdentifierValue: func(rec *T) string { return meta(rec).ID.String() },
	}
	return baseRepository[T]{
		repo: repository.MustNewRepository[*T](db, handlers),
		db:   db,
		meta: meta,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (r baseRepository[T]) create(ctx context.Context, record *T) error {
	m := r.meta(record)
	m.EnsureID()
	now := r.now()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now
	_, err := r.repo.Create(ctx, record)
	return mapError(err)
}

func (r baseRepository[T]) update(ctx context.Context, record *T) error {
	r.meta(record).UpdatedAt = r.now()
	_, err := r.repo.Update(ctx, record)
	return mapError(err)
}

func (r baseRepository[T]) get(ctx context.Context, criteria ...repository.SelectCriteria) (*T, error) {
	record, err := r.repo.Get(ctx, criteria...)
	if err != nil {
		return nil, mapError(err)
	}
	return record, nil
}

func (r baseRepository[T]) getByID(ctx context.Context, id uuid.UUID) (*T, error) {
	return r.get(ctx, byID(id), live())
}

func (r baseRepository[T]) list(ctx context.Context, opts store.ListOptions) (store.ListResult[T], error) {
	records, total, err := r.repo.List(ctx, window(opts))
	if err != nil {
		return store.ListResult[T]{}, mapError(err)
	}
	return store.ListResult[T]{Items: collect(records), Total: total}, nil
}

// find lists the rows matching where within the opts window.
func (r baseRepository[T]) find(ctx context.Context, opts store.ListOptions, where ...repository.SelectCriteria) ([]T, error) {
	records, _, err := r.repo.List(ctx, append(where, window(opts))...)
	if err != nil {
		return nil, mapError(err)
	}
	return collect(records), nil
}

// count ignores soft-deleted rows.
func (r baseRepository[T]) count(ctx context.Context, where ...repository.SelectCriteria) (int, error) {
	q := live()(r.db.NewSelect().Model((*T)(nil)))
	for _, apply := range where {
		q = apply(q)
	}
	n, err := q.Count(ctx)
	return n, mapError(err)
}

func (r baseRepository[T]) softDelete(ctx context.Context, id uuid.UUID) error {
	record, err := r.get(ctx, byID(id))
	if err != nil {
		return err
	}
	r.meta(record).DeletedAt = r.now()
	_, err = r.repo.Update(ctx, record)
	return mapError(err)
}

func collect[T any](records []*T) []T {
	items := make([]T, len(records))
	for i, rec := range records {
		items[i] = *rec
	}
	return items
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if repository.IsRecordNotFound(err) {
		return store.ErrNotFound
	}
	return err
}
