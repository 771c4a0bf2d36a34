package store

import (
	"context"
	"errors"
	"time"

	"github.com/goliatone/go-timeoff/pkg/domain"
	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a record cannot be located.
	ErrNotFound = errors.New("store: not found")
	// ErrConflict is returned when a unique field is already taken.
	ErrConflict = errors.New("store: conflict")
)

// ListOptions capture pagination and filtering knobs common to repositories.
type ListOptions struct {
	Limit              int
	Offset             int
	Since              time.Time
	Until              time.Time
	IncludeSoftDeleted bool
}

// ListResult bundles records and totals.
type ListResult[T any] struct {
	Items []T
	Total int
}

// Repository defines base CRUD helpers reused by entity-specific interfaces.
type Repository[T any] interface {
	Create(ctx context.Context, record *T) error
	Update(ctx context.Context, record *T) error
	GetByID(ctx context.Context, id uuid.UUID) (*T, error)
	List(ctx context.Context, opts ListOptions) (ListResult[T], error)
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

type UserRepository interface {
	Repository[domain.User]
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	ListByManager(ctx context.Context, managerID string) ([]domain.User, error)
}

// RequestFilter narrows request listings. Zero values match everything.
type RequestFilter struct {
	UserIDs []string
	Status  domain.RequestStatus
}

type RequestRepository interface {
	Repository[domain.Request]
	ListFiltered(ctx context.Context, filter RequestFilter, opts ListOptions) (ListResult[domain.Request], error)
}

type NotificationRepository interface {
	Repository[domain.Notification]
	ListByUser(ctx context.Context, userID string, opts ListOptions) (ListResult[domain.Notification], error)
	MarkRead(ctx context.Context, id uuid.UUID) error
	MarkAllRead(ctx context.Context, userID string) (int, error)
	CountUnread(ctx context.Context, userID string) (int, error)
}
