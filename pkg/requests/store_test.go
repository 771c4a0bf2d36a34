package requests

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goliatone/go-timeoff/pkg/api"
	"github.com/goliatone/go-timeoff/pkg/apiclient"
	"github.com/goliatone/go-timeoff/pkg/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	mu        sync.Mutex
	items     []domain.Request
	listErr   error
	reviewErr error
	submitErr error
	gate      chan struct{}

	listCalls   atomic.Int32
	reviewCalls atomic.Int32
	filters     []apiclient.RequestFilter
}

func (f *fakeAPI) ListRequests(ctx context.Context, filter apiclient.RequestFilter) ([]domain.Request, error) {
	f.listCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filters = append(f.filters, filter)
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := []domain.Request{}
	for _, item := range f.items {
		if filter.Status == "" || item.Status == filter.Status {
			out = append(out, item)
		}
	}
	return out, nil
}

func (f *fakeAPI) SubmitRequest(ctx context.Context, input api.SubmitRequest) (*domain.Request, error) {
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	req := domain.Request{
		RecordMeta: domain.RecordMeta{ID: uuid.New()},
		Kind:       input.Kind,
		Status:     domain.StatusPending,
		StartDate:  input.StartDate,
		EndDate:    input.EndDate,
	}
	f.mu.Lock()
	f.items = append([]domain.Request{req}, f.items...)
	f.mu.Unlock()
	return &req, nil
}

func (f *fakeAPI) ReviewRequest(ctx context.Context, id, decision, note string) error {
	f.reviewCalls.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	if f.reviewErr != nil {
		return f.reviewErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.items {
		if f.items[i].ID.String() == id {
			f.items[i].Status = domain.StatusApproved
			if decision == api.DecisionReject {
				f.items[i].Status = domain.StatusRejected
			}
		}
	}
	return nil
}

func pending(reason string) domain.Request {
	return domain.Request{
		RecordMeta: domain.RecordMeta{ID: uuid.New()},
		UserID:     "employee-1",
		Kind:       domain.KindTimeOff,
		Status:     domain.StatusPending,
		Reason:     reason,
	}
}

func newTestStore(t *testing.T, fake *fakeAPI) (*Store, *time.Time) {
	t.Helper()
	now := time.Date(2026, 2, 9, 8, 0, 0, 0, time.UTC)
	store, err := New(Dependencies{API: fake, Clock: func() time.Time { return now }}, Config{})
	require.NoError(t, err)
	return store, &now
}

func TestFilterKey(t *testing.T) {
	assert.Equal(t, "requests", Filter{}.Key().Name())
	assert.Equal(t, "requests:pending", Filter{Status: domain.StatusPending}.Key().Name())
}

func TestFetchCachesPerFilter(t *testing.T) {
	fake := &fakeAPI{items: []domain.Request{pending("a"), pending("b")}}
	store, now := newTestStore(t, fake)
	ctx := context.Background()

	items := store.Fetch(ctx, Filter{})
	require.Len(t, items, 2)
	assert.Equal(t, "a", items[0].Reason, "server order is preserved")

	store.Fetch(ctx, Filter{})
	assert.Equal(t, int32(1), fake.listCalls.Load())

	store.Fetch(ctx, Filter{Status: domain.StatusPending})
	assert.Equal(t, int32(2), fake.listCalls.Load())
	assert.Equal(t, domain.StatusPending, fake.filters[1].Status)

	*now = now.Add(31 * time.Second)
	store.Fetch(ctx, Filter{})
	assert.Equal(t, int32(3), fake.listCalls.Load())

	state := store.State()
	assert.Equal(t, Filter{}, state.Filter)
	assert.False(t, state.Loading)
	assert.Equal(t, *now, state.UpdatedAt)
}

func TestFetchFailureServesStale(t *testing.T) {
	fake := &fakeAPI{items: []domain.Request{pending("a")}}
	store, now := newTestStore(t, fake)
	ctx := context.Background()

	store.Fetch(ctx, Filter{})
	*now = now.Add(time.Minute)
	fake.listErr = errors.New("offline")

	items := store.Fetch(ctx, Filter{})
	require.Len(t, items, 1)
	state := store.State()
	assert.Len(t, state.Requests, 1)
	assert.Error(t, state.LastError)
	assert.False(t, state.Loading)
}

func TestFetchFailureOnNewFilterShowsEmpty(t *testing.T) {
	fake := &fakeAPI{items: []domain.Request{pending("a")}}
	store, _ := newTestStore(t, fake)
	ctx := context.Background()

	store.Fetch(ctx, Filter{})
	fake.listErr = errors.New("offline")

	items := store.Fetch(ctx, Filter{Status: domain.StatusApproved})
	assert.Empty(t, items)
	state := store.State()
	assert.Empty(t, state.Requests)
	assert.Equal(t, domain.StatusApproved, state.Filter.Status)
	assert.Error(t, state.LastError)
}

func TestForceRefreshUsesCurrentFilter(t *testing.T) {
	fake := &fakeAPI{items: []domain.Request{pending("a")}}
	store, _ := newTestStore(t, fake)
	ctx := context.Background()

	store.Fetch(ctx, Filter{Status: domain.StatusPending})
	store.ForceRefresh(ctx)

	assert.Equal(t, int32(2), fake.listCalls.Load())
	assert.Equal(t, domain.StatusPending, fake.filters[1].Status)
	info := store.CacheInfo()
	require.Len(t, info, 1)
	assert.Equal(t, "requests:pending", info[0].Key)
}

func TestInvalidate(t *testing.T) {
	fake := &fakeAPI{items: []domain.Request{pending("a")}}
	store, _ := newTestStore(t, fake)
	ctx := context.Background()

	store.Fetch(ctx, Filter{})
	store.Fetch(ctx, Filter{Status: domain.StatusPending})
	require.Len(t, store.CacheInfo(), 2)

	store.Invalidate("requests")
	info := store.CacheInfo()
	require.Len(t, info, 1)
	assert.Equal(t, "requests:pending", info[0].Key)

	store.Invalidate()
	assert.Empty(t, store.CacheInfo())
}

func TestSubmitReloads(t *testing.T) {
	fake := &fakeAPI{items: []domain.Request{pending("a")}}
	store, _ := newTestStore(t, fake)
	ctx := context.Background()

	store.Fetch(ctx, Filter{})
	created, err := store.Submit(ctx, api.SubmitRequest{Kind: domain.KindTimeOff})
	require.NoError(t, err)

	state := store.State()
	require.Len(t, state.Requests, 2)
	assert.Equal(t, created.ID, state.Requests[0].ID)
	assert.Equal(t, int32(2), fake.listCalls.Load())
}

func TestSubmitFailureLeavesCache(t *testing.T) {
	fake := &fakeAPI{items: []domain.Request{pending("a")}, submitErr: errors.New("bad input")}
	store, _ := newTestStore(t, fake)
	ctx := context.Background()

	store.Fetch(ctx, Filter{})
	_, err := store.Submit(ctx, api.SubmitRequest{})
	require.Error(t, err)
	assert.Len(t, store.CacheInfo(), 1)
	assert.Equal(t, int32(1), fake.listCalls.Load())
}

func TestApproveIsOptimistic(t *testing.T) {
	target := pending("a")
	fake := &fakeAPI{items: []domain.Request{target}, gate: make(chan struct{})}
	store, _ := newTestStore(t, fake)
	ctx := context.Background()
	store.Fetch(ctx, Filter{})

	done := make(chan error, 1)
	go func() { done <- store.Approve(ctx, target.ID.String(), "enjoy") }()

	require.Eventually(t, func() bool { return fake.reviewCalls.Load() == 1 }, time.Second, time.Millisecond)
	state := store.State()
	assert.Equal(t, domain.StatusApproved, state.Requests[0].Status)
	assert.Equal(t, "enjoy", state.Requests[0].ReviewNote)
	assert.Empty(t, store.CacheInfo())

	close(fake.gate)
	require.NoError(t, <-done)
	assert.Equal(t, int32(1), fake.listCalls.Load())
}

func TestRejectFailureResyncsOnce(t *testing.T) {
	target := pending("a")
	fake := &fakeAPI{items: []domain.Request{target}, reviewErr: errors.New("not pending")}
	store, _ := newTestStore(t, fake)
	ctx := context.Background()
	store.Fetch(ctx, Filter{})

	err := store.Reject(ctx, target.ID.String(), "")
	require.Error(t, err)

	assert.Equal(t, int32(2), fake.listCalls.Load())
	state := store.State()
	assert.Equal(t, domain.StatusPending, state.Requests[0].Status)
}

func TestResyncSurvivesCancelledContext(t *testing.T) {
	target := pending("a")
	fake := &fakeAPI{items: []domain.Request{target}, reviewErr: context.Canceled}
	store, _ := newTestStore(t, fake)
	store.Fetch(context.Background(), Filter{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := store.Approve(ctx, target.ID.String(), "")
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(2), fake.listCalls.Load())
}
