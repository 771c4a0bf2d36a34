package store

import (
	"context"
	"sync"
)

// TransactionManager coordinates repository work inside a single unit.
type TransactionManager interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// NopTransactionManager executes callbacks immediately without persistence.
type NopTransactionManager struct{}

var _ TransactionManager = (*NopTransactionManager)(nil)

func (n *NopTransactionManager) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

// SerialTransactionManager runs one callback at a time, so a
// read-check-write sequence cannot interleave with another. Nothing is
// rolled back on error.
type SerialTransactionManager struct {
	mu sync.Mutex
}

var _ TransactionManager = (*SerialTransactionManager)(nil)

func (m *SerialTransactionManager) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if fn == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx)
}
