package storage

import (
	"context"

	bunrepo "github.com/goliatone/go-timeoff/internal/storage/bun"
	"github.com/goliatone/go-timeoff/internal/storage/memory"
	"github.com/goliatone/go-timeoff/pkg/domain"
	"github.com/goliatone/go-timeoff/pkg/interfaces/store"
	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/uptrace/bun"
)

// Models lists every persisted entity, in creation order.
func Models() []any {
	return []any{
		(*domain.User)(nil),
		(*domain.Request)(nil),
		(*domain.Notification)(nil),
	}
}

// Providers exposes all repositories needed by services.
type Providers struct {
	Users         store.UserRepository
	Requests      store.RequestRepository
	Notifications store.NotificationRepository
	Transaction   store.TransactionManager
}

// NewMemoryProviders returns repositories backed by in-memory maps.
func NewMemoryProviders() Providers {
	return Providers{
		Users:         memory.NewUserRepository(),
		Requests:      memory.NewRequestRepository(),
		Notifications: memory.NewNotificationRepository(),
		Transaction:   &store.SerialTransactionManager{},
	}
}

// NewBunProviders wires Bun-backed repositories using go-repository-bun.
// The caller owns the *bun.DB lifecycle.
func NewBunProviders(db *bun.DB) Providers {
	if db == nil {
		panic("storage: bun DB is required")
	}

	// Register models so go-persistence-bun migrations can pick them up.
	persistence.RegisterModel(Models()...)

	// Repositories run on db directly. SQLite allows a single writer, so
	// units of work are serialized in process instead of wrapped in a bun.Tx
	// the repositories cannot see.
	return Providers{
		Users:         bunrepo.NewUserRepository(db),
		Requests:      bunrepo.NewRequestRepository(db),
		Notifications: bunrepo.NewNotificationRepository(db),
		Transaction:   &store.SerialTransactionManager{},
	}
}

// CreateSchema creates any missing tables for the registered models.
func CreateSchema(ctx context.Context, db *bun.DB) error {
	for _, model := range Models() {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}
