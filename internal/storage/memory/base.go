package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-timeoff/pkg/domain"
	"github.com/goliatone/go-timeoff/pkg/interfaces/store"
)

// table is a map-backed stand-in for one SQL table. Records are stored by
// value so callers never share memory with the table.
type table[T any] struct {
	mu      sync.RWMutex
	records map[uuid.UUID]T
	meta    func(*T) *domain.RecordMeta
	now     func() time.Time
}

func newTable[T any](meta func(*T) *domain.RecordMeta) *table[T] {
	return &table[T]{
		records: make(map[uuid.UUID]T),
		meta:    meta,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (t *table[T]) live(record *T) bool {
	return t.meta(record).DeletedAt.IsZero()
}

func (t *table[T]) create(_ context.Context, record *T) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	m := t.meta(record)
	m.EnsureID()
	now := t.now()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now
	t.records[m.ID] = *record
	return nil
}

func (t *table[T]) update(_ context.Context, record *T) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	m := t.meta(record)
	if _, ok := t.records[m.ID]; m.ID == uuid.Nil || !ok {
		return store.ErrNotFound
	}
	m.UpdatedAt = t.now()
	t.records[m.ID] = *record
	return nil
}

// mutate applies fn to every live record that matches and returns how many
// were touched.
func (t *table[T]) mutate(match func(*T) bool, fn func(*T)) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	touched := 0
	now := t.now()
	for id, record := range t.records {
		if !t.live(&record) || !match(&record) {
			continue
		}
		fn(&record)
		t.meta(&record).UpdatedAt = now
		t.records[id] = record
		touched++
	}
	return touched
}

// count reports live records that match.
func (t *table[T]) count(match func(*T) bool) int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n := 0
	for _, record := range t.records {
		if t.live(&record) && match(&record) {
			n++
		}
	}
	return n
}

func (t *table[T]) getByID(_ context.Context, id uuid.UUID) (*T, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	record, ok := t.records[id]
	if !ok || !t.live(&record) {
		return nil, store.ErrNotFound
	}
	return &record, nil
}

// list returns matching records oldest first, then pages them.
func (t *table[T]) list(_ context.Context, opts store.ListOptions, match func(*T) bool) (store.ListResult[T], error) {
	t.mu.RLock()
	var rows []T
	for _, record := range t.records {
		m := t.meta(&record)
		switch {
		case !opts.IncludeSoftDeleted && !t.live(&record):
		case !opts.Since.IsZero() && m.CreatedAt.Before(opts.Since):
		case !opts.Until.IsZero() && m.CreatedAt.After(opts.Until):
		case match != nil && !match(&record):
		default:
			rows = append(rows, record)
		}
	}
	t.mu.RUnlock()

	sort.SliceStable(rows, func(i, j int) bool {
		return t.meta(&rows[i]).CreatedAt.Before(t.meta(&rows[j]).CreatedAt)
	})

	total := len(rows)
	start := min(opts.Offset, total)
	end := total
	if opts.Limit > 0 {
		end = min(start+opts.Limit, total)
	}
	return store.ListResult[T]{Items: rows[start:end], Total: total}, nil
}

func (t *table[T]) softDelete(_ context.Context, id uuid.UUID) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	record, ok := t.records[id]
	if !ok {
		return store.ErrNotFound
	}
	if m := t.meta(&record); m.DeletedAt.IsZero() {
		m.DeletedAt = t.now()
		t.records[id] = record
	}
	return nil
}
