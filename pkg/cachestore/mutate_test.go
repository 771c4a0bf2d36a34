package cachestore

import (
	"context"
	"errors"
	"testing"
)

func TestMutateSuccessSkipsResync(t *testing.T) {
	c := New("test")
	Set(c, countKey, 3)
	Set(c, listKey, []string{"a"})

	var order []string
	err := c.Mutate(context.Background(), Mutation{
		Name:       "mark",
		Apply:      func() { order = append(order, "apply") },
		Invalidate: []string{countKey.Name()},
		Applied:    func() { order = append(order, "applied") },
		Remote: func(ctx context.Context) error {
			if _, _, ok := Get(c, countKey); ok {
				t.Errorf("expected count invalidated before remote call")
			}
			order = append(order, "remote")
			return nil
		},
		Resync: func(ctx context.Context) { order = append(order, "resync") },
	})
	if err != nil {
		t.Fatalf("mutate: %v", err)
	}
	if len(order) != 3 || order[2] != "remote" {
		t.Fatalf("unexpected order %v", order)
	}
	if _, _, ok := Get(c, listKey); !ok {
		t.Fatalf("expected unrelated key to survive")
	}
}

type resyncCounter struct {
	sourceRecorder
	resyncs int
}

func (r *resyncCounter) RecordResync(cache string) { r.resyncs++ }

func TestMutateFailureResyncsOnce(t *testing.T) {
	rec := &resyncCounter{}
	c := New("test", WithRecorder(rec))
	boom := errors.New("boom")
	resyncs := 0

	ctx, cancel := context.WithCancel(context.Background())
	err := c.Mutate(ctx, Mutation{
		Name: "mark",
		Remote: func(ctx context.Context) error {
			cancel()
			return boom
		},
		Resync: func(ctx context.Context) {
			if ctx.Err() != nil {
				t.Errorf("resync must not inherit cancellation")
			}
			resyncs++
		},
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected remote error, got %v", err)
	}
	if resyncs != 1 || rec.resyncs != 1 {
		t.Fatalf("expected exactly one resync, got %d (recorded %d)", resyncs, rec.resyncs)
	}
}

func TestMutateRequiresRemote(t *testing.T) {
	c := New("test")
	if err := c.Mutate(context.Background(), Mutation{Name: "noop"}); err == nil {
		t.Fatalf("expected error for missing remote call")
	}
}
