// Package requests provides the client-side request store. It keeps the
// last-fetched request list per filter, serves it from a TTL cache and
// applies approve/reject decisions optimistically.
package requests

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goliatone/go-timeoff/pkg/api"
	"github.com/goliatone/go-timeoff/pkg/apiclient"
	"github.com/goliatone/go-timeoff/pkg/cachestore"
	"github.com/goliatone/go-timeoff/pkg/domain"
	"github.com/goliatone/go-timeoff/pkg/interfaces/broadcaster"
	"github.com/goliatone/go-timeoff/pkg/interfaces/logger"
)

// TopicState is the broadcaster topic used for state snapshots.
const TopicState = "requests.state"

const keyPrefix = "requests"

// Filter selects which slice of the caller's requests to load. The server
// applies role filtering on top of it.
type Filter struct {
	Status domain.RequestStatus
}

// Key returns the cache key for the filter: "requests" for the default
// filter, "requests:<status>" otherwise.
func (f Filter) Key() cachestore.Key[[]domain.Request] {
	if f.Status == "" {
		return cachestore.NewKey[[]domain.Request](keyPrefix)
	}
	return cachestore.NewKey[[]domain.Request](keyPrefix + ":" + string(f.Status))
}

// API is the subset of the API client the store needs.
type API interface {
	ListRequests(ctx context.Context, filter apiclient.RequestFilter) ([]domain.Request, error)
	SubmitRequest(ctx context.Context, input api.SubmitRequest) (*domain.Request, error)
	ReviewRequest(ctx context.Context, id, decision, note string) error
}

var _ API = (*apiclient.Client)(nil)

// State is a read-only snapshot of the store.
type State struct {
	Requests  []domain.Request
	Filter    Filter
	Loading   bool
	LastError error
	UpdatedAt time.Time
}

type Dependencies struct {
	API         API
	Logger      logger.Logger
	Broadcaster broadcaster.Broadcaster
	Recorder    cachestore.Recorder
	Clock       func() time.Time
}

type Config struct {
	TTL      time.Duration
	Coalesce bool
}

var errAPIRequired = errors.New("requests: api is required")

// Store caches requests visible to the signed-in user.
type Store struct {
	api         API
	cache       *cachestore.Cache
	logger      logger.Logger
	broadcaster broadcaster.Broadcaster
	now         func() time.Time

	mu    sync.Mutex
	state State
}

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

	s := &Store{
		api:         deps.API,
		logger:      deps.Logger.With(logger.Field{Key: "store", Value: "requests"}),
		broadcaster: deps.Broadcaster,
		now:         deps.Clock,
	}
	s.cache = cachestore.New("requests",
		cachestore.WithTTL(cfg.TTL),
		cachestore.WithClock(deps.Clock),
		cachestore.WithLogger(s.logger),
		cachestore.WithRecorder(deps.Recorder),
		cachestore.WithCoalescing(cfg.Coalesce),
		cachestore.WithCommitLocker(&s.mu),
	)
	return s, nil
}

// State returns a snapshot; mutating it does not affect the store.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.state
	out.Requests = cloneList(s.state.Requests)
	return out
}

// Fetch serves the list for filter from cache while fresh, otherwise loads
// it. On failure the last list for that filter is served if there is one;
// otherwise the store keeps its current list and records the error.
func (s *Store) Fetch(ctx context.Context, filter Filter) []domain.Request {
	items, _, err := cachestore.Fetch(ctx, s.cache, filter.Key(), s.loader(filter), s.committer(filter))
	if err != nil {
		s.switchFilter(filter)
	}
	s.settle(ctx, err)
	return cloneList(items)
}

// switchFilter empties the list when a failed fetch moved to another filter,
// so the previous filter's rows are not shown under the new one.
func (s *Store) switchFilter(filter Filter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Filter != filter {
		s.state.Filter = filter
		s.state.Requests = nil
		s.state.UpdatedAt = time.Time{}
	}
}

// ForceRefresh reloads the list for the filter currently shown, ignoring
// any cached entry.
func (s *Store) ForceRefresh(ctx context.Context) []domain.Request {
	s.mu.Lock()
	filter := s.state.Filter
	s.mu.Unlock()

	items, _, err := cachestore.Refresh(ctx, s.cache, filter.Key(), s.loader(filter), s.committer(filter))
	s.settle(ctx, err)
	return cloneList(items)
}

// Invalidate drops the named cache keys, or all of them.
func (s *Store) Invalidate(keys ...string) {
	s.cache.Invalidate(keys...)
}

// CacheInfo reports age and freshness per live key.
func (s *Store) CacheInfo() []cachestore.Info {
	return s.cache.Info()
}

// Submit creates a request remotely. Every filtered list may now be wrong,
// so all entries are dropped and the current list reloaded.
func (s *Store) Submit(ctx context.Context, input api.SubmitRequest) (*domain.Request, error) {
	created, err := s.api.SubmitRequest(ctx, input)
	if err != nil {
		s.logger.Warn("submit request failed", logger.Err(err))
		return nil, err
	}
	s.Invalidate()
	s.ForceRefresh(ctx)
	return created, nil
}

// Approve marks the request approved locally and remotely.
func (s *Store) Approve(ctx context.Context, id, note string) error {
	return s.review(ctx, id, api.DecisionApprove, domain.StatusApproved, note)
}

// Reject marks the request rejected locally and remotely.
func (s *Store) Reject(ctx context.Context, id, note string) error {
	return s.review(ctx, id, api.DecisionReject, domain.StatusRejected, note)
}

func (s *Store) review(ctx context.Context, id, decision string, status domain.RequestStatus, note string) error {
	return s.cache.Mutate(ctx, cachestore.Mutation{
		Name: fmt.Sprintf("%s_request", decision),
		Apply: func() {
			now := s.now().UTC()
			next := cloneList(s.state.Requests)
			for i := range next {
				if next[i].ID.String() == id {
					next[i].Status = status
					next[i].ReviewNote = note
					next[i].ReviewedAt = now
				}
			}
			s.state.Requests = next
			// Status filtered lists change membership, so every entry goes.
			s.cache.Invalidate()
		},
		Applied:    func() { s.publish(ctx) },
		Remote: func(ctx context.Context) error {
			return s.api.ReviewRequest(ctx, id, decision, note)
		},
		Resync: func(ctx context.Context) { s.ForceRefresh(ctx) },
	})
}

func (s *Store) loader(filter Filter) cachestore.Loader[[]domain.Request] {
	return func(ctx context.Context) ([]domain.Request, error) {
		s.mu.Lock()
		s.state.Loading = true
		s.mu.Unlock()
		s.publish(ctx)
		return s.api.ListRequests(ctx, apiclient.RequestFilter{Status: filter.Status})
	}
}

// committer returns the commit callback for filter; it runs under s.mu.
func (s *Store) committer(filter Filter) cachestore.Commit[[]domain.Request] {
	return func(items []domain.Request, res cachestore.Result) {
		s.state.Requests = items
		s.state.Filter = filter
		s.state.Loading = false
		s.state.LastError = res.Err
		s.state.UpdatedAt = res.Timestamp
	}
}

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
		s.logger.Warn("broadcast request state failed", logger.Err(err))
	}
}

func cloneList(items []domain.Request) []domain.Request {
	if items == nil {
		return nil
	}
	out := make([]domain.Request, len(items))
	copy(out, items)
	return out
}
