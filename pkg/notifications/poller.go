package notifications

import (
	"context"
	"time"

	"github.com/goliatone/go-timeoff/pkg/cachestore"
	"github.com/goliatone/go-timeoff/pkg/interfaces/logger"
)

// Start launches the unread-count refresher. It refreshes every poll
// interval until ctx is done or Stop is called. Only one refresher runs per
// store; calling Start while it is running does nothing.
func (s *Store) Start(ctx context.Context) {
	s.pollMu.Lock()
	defer s.pollMu.Unlock()

	if s.cancel != nil || s.interval <= 0 {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done

	s.logger.Debug("unread count poller started", logger.Field{Key: "interval", Value: s.interval.String()})
	go s.poll(ctx, done)
}

// Stop cancels the refresher and waits for it to exit.
func (s *Store) Stop() {
	s.pollMu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.pollMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.logger.Debug("unread count poller stopped")
}

// Running reports whether the refresher is active.
func (s *Store) Running() bool {
	s.pollMu.Lock()
	defer s.pollMu.Unlock()
	return s.cancel != nil
}

func (s *Store) poll(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.refreshUnreadCount(ctx)
		}
	}
}

// refreshUnreadCount bypasses the TTL: ticks line up with the TTL, so a
// plain fetch would keep hitting an entry that is a few milliseconds short
// of stale.
func (s *Store) refreshUnreadCount(ctx context.Context) {
	_, _, err := cachestore.Refresh(ctx, s.cache, UnreadCountKey, s.loadUnreadCount, s.commitUnreadCount)
	if ctx.Err() != nil {
		// Stopped mid-tick: the loader already flagged Loading.
		s.settle(context.WithoutCancel(ctx), nil)
		return
	}
	s.settle(ctx, err)
}
