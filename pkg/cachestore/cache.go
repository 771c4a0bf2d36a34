package cachestore

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/goliatone/go-timeoff/pkg/interfaces/logger"
	"golang.org/x/sync/singleflight"
)

// DefaultTTL is the staleness threshold used when no TTL is configured.
const DefaultTTL = 30 * time.Second

// Key addresses a cache entry holding values of type T.
type Key[T any] struct {
	name string
}

// NewKey returns a typed key for the given logical name.
func NewKey[T any](name string) Key[T] {
	return Key[T]{name: name}
}

// Name returns the string form of the key.
func (k Key[T]) Name() string { return k.name }

// Entry is a single timestamped payload. Entries are replaced wholesale and
// never mutated once stored.
type Entry struct {
	Key       string
	Data      any
	Timestamp time.Time
}

// Info describes a live entry for debugging views.
type Info struct {
	Key        string `json:"key"`
	AgeSeconds int    `json:"age_seconds"`
	Fresh      bool   `json:"fresh"`
}

// Recorder observes where fetched data came from.
type Recorder interface {
	Record(cache, key string, source Source)
}

// Cache holds the entries of one store.
type Cache struct {
	name     string
	ttl      time.Duration
	now      func() time.Time
	logger   logger.Logger
	recorder Recorder
	coalesce bool
	commitMu sync.Locker

	mu      sync.RWMutex
	entries map[string]Entry
	group   singleflight.Group
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL overrides DefaultTTL. Non-positive values are ignored.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger sets the logger used for fetch diagnostics.
func WithLogger(lgr logger.Logger) Option {
	return func(c *Cache) {
		if lgr != nil {
			c.logger = lgr
		}
	}
}

// WithRecorder registers a metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(c *Cache) {
		c.recorder = r
	}
}

// WithCoalescing makes concurrent misses on the same key share one loader call.
func WithCoalescing(enabled bool) Option {
	return func(c *Cache) {
		c.coalesce = enabled
	}
}

// WithCommitLocker sets the lock held while a fetched value is written to the
// cache and handed to the commit callback. Stores pass the mutex guarding
// their own state so both change together.
func WithCommitLocker(l sync.Locker) Option {
	return func(c *Cache) {
		if l != nil {
			c.commitMu = l
		}
	}
}

// New builds an empty cache.
func New(name string, opts ...Option) *Cache {
	c := &Cache{
		name:     name,
		ttl:      DefaultTTL,
		now:      time.Now,
		logger:   &logger.Nop{},
		commitMu: &sync.Mutex{},
		entries:  make(map[string]Entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the cache name used in logs and metrics.
func (c *Cache) Name() string { return c.name }

// TTL returns the staleness threshold.
func (c *Cache) TTL() time.Duration { return c.ttl }

// Now returns the cache clock reading.
func (c *Cache) Now() time.Time { return c.now() }

// Len reports the number of live entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Invalidate deletes the named keys, or every key when none are given.
func (c *Cache) Invalidate(keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(keys) == 0 {
		c.entries = make(map[string]Entry)
		return
	}
	for _, key := range keys {
		delete(c.entries, key)
	}
}

// Info reports the age and freshness of every live entry, sorted by key.
func (c *Cache) Info() []Info {
	now := c.now()
	c.mu.RLock()
	out := make([]Info, 0, len(c.entries))
	for key, entry := range c.entries {
		age := now.Sub(entry.Timestamp)
		out = append(out, Info{
			Key:        key,
			AgeSeconds: int(age / time.Second),
			Fresh:      age < c.ttl,
		})
	}
	c.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func (c *Cache) entry(key string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	return e, ok
}

func (c *Cache) put(key string, data any, ts time.Time) {
	c.mu.Lock()
	c.entries[key] = Entry{Key: key, Data: data, Timestamp: ts}
	c.mu.Unlock()
}

func (c *Cache) fresh(ts time.Time) bool {
	return c.now().Sub(ts) < c.ttl
}

func (c *Cache) record(key string, source Source) {
	if c.recorder != nil {
		c.recorder.Record(c.name, key, source)
	}
}

// Get returns the entry stored under key regardless of its age.
func Get[T any](c *Cache, key Key[T]) (T, time.Time, bool) {
	var zero T
	e, ok := c.entry(key.name)
	if !ok {
		return zero, time.Time{}, false
	}
	v, ok := e.Data.(T)
	if !ok {
		return zero, time.Time{}, false
	}
	return v, e.Timestamp, true
}

// Set stores value under key stamped with the current clock reading.
func Set[T any](c *Cache, key Key[T], value T) time.Time {
	ts := c.now()
	c.put(key.name, value, ts)
	return ts
}

// Loader fetches a fresh value from the source of truth.
type Loader[T any] func(ctx context.Context) (T, error)

// Commit receives the value that Fetch decided to serve. It runs while the
// commit locker is held, together with the cache write.
type Commit[T any] func(value T, res Result)

// ErrNoLoader is returned when Fetch is called without a loader.
var ErrNoLoader = errors.New("cachestore: loader is required")

// Fetch serves the entry under key when it is fresh. Otherwise it calls
// loader and stores the result. When loader fails and a stale entry exists
// the stale value is served and the error swallowed; when no entry exists
// the zero value is returned together with the loader error.
func Fetch[T any](ctx context.Context, c *Cache, key Key[T], loader Loader[T], commit Commit[T]) (T, Result, error) {
	var zero T
	if loader == nil {
		return zero, Result{Source: SourceEmpty}, ErrNoLoader
	}

	if v, ts, ok := Get(c, key); ok && c.fresh(ts) {
		res := Result{Source: SourceCache, Timestamp: ts}
		c.record(key.name, SourceCache)
		c.commit(func() {
			if commit != nil {
				commit(v, res)
			}
		})
		return v, res, nil
	}

	v, err := load(ctx, c, key, loader)
	if err == nil {
		var res Result
		c.commit(func() {
			res = Result{Source: SourceNetwork, Timestamp: Set(c, key, v)}
			if commit != nil {
				commit(v, res)
			}
		})
		c.record(key.name, SourceNetwork)
		return v, res, nil
	}

	if stale, ts, ok := Get(c, key); ok {
		c.logger.Warn("fetch failed, serving stale entry",
			logger.Field{Key: "cache", Value: c.name},
			logger.Field{Key: "key", Value: key.name},
			logger.Field{Key: "age", Value: c.now().Sub(ts).String()},
			logger.Err(err),
		)
		res := Result{Source: SourceStale, Timestamp: ts, Err: err}
		c.record(key.name, SourceStale)
		c.commit(func() {
			if commit != nil {
				commit(stale, res)
			}
		})
		return stale, res, nil
	}

	c.logger.Warn("fetch failed, no cached entry",
		logger.Field{Key: "cache", Value: c.name},
		logger.Field{Key: "key", Value: key.name},
		logger.Err(err),
	)
	c.record(key.name, SourceEmpty)
	return zero, Result{Source: SourceEmpty, Err: err}, err
}

// Refresh discards the entry under key and fetches it again.
func Refresh[T any](ctx context.Context, c *Cache, key Key[T], loader Loader[T], commit Commit[T]) (T, Result, error) {
	c.Invalidate(key.name)
	return Fetch(ctx, c, key, loader, commit)
}

func (c *Cache) commit(fn func()) {
	c.commitMu.Lock()
	defer c.commitMu.Unlock()
	fn()
}

func load[T any](ctx context.Context, c *Cache, key Key[T], loader Loader[T]) (T, error) {
	if !c.coalesce {
		return loader(ctx)
	}
	raw, err, _ := c.group.Do(key.name, func() (any, error) {
		return loader(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	v, _ := raw.(T)
	return v, nil
}
