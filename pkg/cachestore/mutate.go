package cachestore

import (
	"context"
	"fmt"

	"github.com/goliatone/go-timeoff/pkg/interfaces/logger"
)

// ResyncRecorder is implemented by recorders that also count resyncs
// triggered by failed mutations.
type ResyncRecorder interface {
	RecordResync(cache string)
}

// Mutation describes an optimistic change.
type Mutation struct {
	// Name labels the mutation in logs.
	Name string
	// Apply changes local state. It runs under the commit locker.
	Apply func()
	// Invalidate lists the keys whose cached values the change makes wrong.
	// They are dropped in the same critical section as Apply.
	Invalidate []string
	// Applied runs after the lock is released, typically to publish state.
	Applied func()
	// Remote performs the change against the source of truth.
	Remote func(ctx context.Context) error
	// Resync reloads state after Remote failed.
	Resync func(ctx context.Context)
}

// Mutate applies m locally, then calls m.Remote. Local changes are not
// reverted when the remote call fails; Resync is called exactly once instead
// and the remote error is returned. Resync runs even if ctx is cancelled.
func (c *Cache) Mutate(ctx context.Context, m Mutation) error {
	if m.Remote == nil {
		return fmt.Errorf("cachestore: mutation %q has no remote call", m.Name)
	}

	c.commit(func() {
		if m.Apply != nil {
			m.Apply()
		}
		if len(m.Invalidate) > 0 {
			c.Invalidate(m.Invalidate...)
		}
	})
	if m.Applied != nil {
		m.Applied()
	}

	err := m.Remote(ctx)
	if err == nil {
		return nil
	}

	c.logger.Warn("optimistic mutation failed, resyncing",
		logger.Field{Key: "cache", Value: c.name},
		logger.Field{Key: "mutation", Value: m.Name},
		logger.Err(err),
	)
	if r, ok := c.recorder.(ResyncRecorder); ok {
		r.RecordResync(c.name)
	}
	if m.Resync != nil {
		m.Resync(context.WithoutCancel(ctx))
	}
	return err
}
