// Package notifications provides the client-side notification store: a TTL
// cached notification list, the unread count derived from it, optimistic
// mark-as-read and a periodic unread-count refresher.
package notifications

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/goliatone/go-timeoff/pkg/cachestore"
	"github.com/goliatone/go-timeoff/pkg/domain"
	"github.com/goliatone/go-timeoff/pkg/interfaces/broadcaster"
	"github.com/goliatone/go-timeoff/pkg/interfaces/logger"
)

// Cache keys owned by the store.
var (
	NotificationsKey = cachestore.NewKey[[]domain.Notification]("notifications")
	UnreadCountKey   = cachestore.NewKey[int]("unreadCount")
)

// TopicState is the broadcaster topic used for state snapshots.
const TopicState = "notifications.state"

// DefaultPollInterval is how often the unread count is refreshed.
const DefaultPollInterval = 30 * time.Second

// API is the subset of the API client the store needs.
type API interface {
	ListNotifications(ctx context.Context) ([]domain.Notification, error)
	UnreadCount(ctx context.Context) (int, error)
	MarkAsRead(ctx context.Context, id string) error
	MarkAllAsRead(ctx context.Context) error
}

// State is a read-only snapshot of the store.
type State struct {
	Notifications []domain.Notification
	UnreadCount   int
	Loading       bool
	LastError     error
}

// Dependencies wires the API and ambient collaborators into the store.
type Dependencies struct {
	API         API
	Logger      logger.Logger
	Broadcaster broadcaster.Broadcaster
	Recorder    cachestore.Recorder
	Clock       func() time.Time
}

// Config tunes cache and poller behaviour.
type Config struct {
	TTL          time.Duration
	PollInterval time.Duration
	Coalesce     bool
}

var errAPIRequired = errors.New("notifications: api is required")

// Store caches notifications for the signed-in user.
type Store struct {
	api         API
	cache       *cachestore.Cache
	logger      logger.Logger
	broadcaster broadcaster.Broadcaster
	now         func() time.Time
	interval    time.Duration

	mu    sync.Mutex
	state State

	pollMu sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New constructs the store. The poller is not started.
func New(deps Dependencies, cfg Config) (*Store, error) {
	if deps.API == nil {
		return nil, errAPIRequired
	}
	if deps.Logger == nil {
		deps.Logger = &logger.Nop{}
	}
	if deps.Broadcaster == nil {
		deps.Broadcaster = &broadcaster.Nop{}
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = DefaultPollInterval
	}

	s := &Store{
		api:         deps.API,
		logger:      deps.Logger.With(logger.Field{Key: "store", Value: "notifications"}),
		broadcaster: deps.Broadcaster,
		now:         deps.Clock,
		interval:    cfg.PollInterval,
	}
	s.cache = cachestore.New("notifications",
		cachestore.WithTTL(cfg.TTL),
		cachestore.WithClock(deps.Clock),
		cachestore.WithLogger(s.logger),
		cachestore.WithRecorder(deps.Recorder),
		cachestore.WithCoalescing(cfg.Coalesce),
		cachestore.WithCommitLocker(&s.mu),
	)
	return s, nil
}

// State returns a snapshot; callers may keep it but must not expect updates.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() State {
	out := s.state
	out.Notifications = cloneList(s.state.Notifications)
	return out
}

// FetchNotifications serves the cached list while fresh, otherwise loads it.
// Failures fall back to the stale list or leave the state empty; they are
// never returned, only recorded in State.LastError.
func (s *Store) FetchNotifications(ctx context.Context) []domain.Notification {
	items, _, err := cachestore.Fetch(ctx, s.cache, NotificationsKey, s.loadNotifications, s.commitNotifications)
	s.settle(ctx, err)
	return cloneList(items)
}

// FetchUnreadCount serves the cached count while fresh, otherwise loads it.
func (s *Store) FetchUnreadCount(ctx context.Context) int {
	count, _, err := cachestore.Fetch(ctx, s.cache, UnreadCountKey, s.loadUnreadCount, s.commitUnreadCount)
	s.settle(ctx, err)
	return count
}

// Fetch loads both the list and the unread count. When a list was served
// the aggregate is its recount; the count entry only stands in when no list
// could be served.
func (s *Store) Fetch(ctx context.Context) State {
	_, res, err := cachestore.Fetch(ctx, s.cache, NotificationsKey, s.loadNotifications, s.commitNotifications)
	s.settle(ctx, err)
	_, _, err = cachestore.Fetch(ctx, s.cache, UnreadCountKey, s.loadUnreadCount, s.countCommitter(res))
	s.settle(ctx, err)
	return s.State()
}

// ForceRefresh discards both entries and fetches them again.
func (s *Store) ForceRefresh(ctx context.Context) State {
	_, res, err := cachestore.Refresh(ctx, s.cache, NotificationsKey, s.loadNotifications, s.commitNotifications)
	s.settle(ctx, err)
	_, _, err = cachestore.Refresh(ctx, s.cache, UnreadCountKey, s.loadUnreadCount, s.countCommitter(res))
	s.settle(ctx, err)
	return s.State()
}

func (s *Store) countCommitter(list cachestore.Result) cachestore.Commit[int] {
	if list.Source == cachestore.SourceEmpty {
		return s.commitUnreadCount
	}
	return s.commitRecount
}

// Invalidate drops the named cache keys, or all of them, without fetching.
func (s *Store) Invalidate(keys ...string) {
	s.cache.Invalidate(keys...)
}

// CacheInfo reports age and freshness per live key.
func (s *Store) CacheInfo() []cachestore.Info {
	return s.cache.Info()
}

// MarkAsRead flags the notification read locally, then remotely. If the
// remote call fails the store resyncs from the API and returns the error.
func (s *Store) MarkAsRead(ctx context.Context, id string) error {
	return s.cache.Mutate(ctx, cachestore.Mutation{
		Name: "mark_as_read",
		Apply: func() {
			now := s.now().UTC()
			next := cloneList(s.state.Notifications)
			for i := range next {
				if next[i].ID.String() == id && !next[i].Read {
					next[i].Read = true
					next[i].ReadAt = now
					if s.state.UnreadCount > 0 {
						s.state.UnreadCount--
					}
				}
			}
			s.state.Notifications = next
		},
		Invalidate: []string{NotificationsKey.Name(), UnreadCountKey.Name()},
		Applied:    func() { s.publish(ctx) },
		Remote:     func(ctx context.Context) error { return s.api.MarkAsRead(ctx, id) },
		Resync:     func(ctx context.Context) { s.ForceRefresh(ctx) },
	})
}

// MarkAllAsRead flags every notification read locally, then remotely.
func (s *Store) MarkAllAsRead(ctx context.Context) error {
	return s.cache.Mutate(ctx, cachestore.Mutation{
		Name: "mark_all_as_read",
		Apply: func() {
			now := s.now().UTC()
			next := cloneList(s.state.Notifications)
			for i := range next {
				if !next[i].Read {
					next[i].Read = true
					next[i].ReadAt = now
				}
			}
			s.state.Notifications = next
			s.state.UnreadCount = 0
		},
		Invalidate: []string{NotificationsKey.Name(), UnreadCountKey.Name()},
		Applied:    func() { s.publish(ctx) },
		Remote:     s.api.MarkAllAsRead,
		Resync:     func(ctx context.Context) { s.ForceRefresh(ctx) },
	})
}

func (s *Store) loadNotifications(ctx context.Context) ([]domain.Notification, error) {
	s.setLoading(ctx)
	return s.api.ListNotifications(ctx)
}

func (s *Store) loadUnreadCount(ctx context.Context) (int, error) {
	s.setLoading(ctx)
	return s.api.UnreadCount(ctx)
}

// commitNotifications runs under s.mu.
func (s *Store) commitNotifications(items []domain.Notification, res cachestore.Result) {
	s.state.Notifications = items
	s.state.UnreadCount = domain.CountUnread(items)
	s.state.Loading = false
	s.state.LastError = res.Err
}

// commitUnreadCount runs under s.mu.
func (s *Store) commitUnreadCount(count int, res cachestore.Result) {
	s.state.UnreadCount = count
	s.state.Loading = false
	s.state.LastError = res.Err
}

// commitRecount runs under s.mu. The served count is ignored in favour of
// the list held in state.
func (s *Store) commitRecount(_ int, res cachestore.Result) {
	s.state.UnreadCount = domain.CountUnread(s.state.Notifications)
	s.state.Loading = false
	s.state.LastError = res.Err
}

func (s *Store) setLoading(ctx context.Context) {
	s.mu.Lock()
	s.state.Loading = true
	s.mu.Unlock()
	s.publish(ctx)
}

// settle clears the loading flag after a fetch and records err when nothing
// could be served.
func (s *Store) settle(ctx context.Context, err error) {
	s.mu.Lock()
	s.state.Loading = false
	if err != nil {
		s.state.LastError = err
	}
	s.mu.Unlock()
	s.publish(ctx)
}

func (s *Store) publish(ctx context.Context) {
	evt := broadcaster.Event{Topic: TopicState, Payload: s.State()}
	if err := s.broadcaster.Broadcast(ctx, evt); err != nil {
		s.logger.Warn("broadcast notification state failed", logger.Err(err))
	}
}

func cloneList(items []domain.Notification) []domain.Notification {
	if items == nil {
		return nil
	}
	out := make([]domain.Notification, len(items))
	copy(out, items)
	return out
}
