package cachestore

import "time"

// Source tells where a fetched value came from.
type Source int

const (
	// SourceEmpty means nothing could be served.
	SourceEmpty Source = iota
	// SourceCache is a fresh cache hit; the loader was not called.
	SourceCache
	// SourceNetwork is a successful loader call.
	SourceNetwork
	// SourceStale is an expired entry served because the loader failed.
	SourceStale
)

func (s Source) String() string {
	switch s {
	case SourceCache:
		return "cache"
	case SourceNetwork:
		return "network"
	case SourceStale:
		return "stale"
	default:
		return "empty"
	}
}

// Result describes how Fetch produced its value. Err carries the loader
// error for stale and empty results.
type Result struct {
	Source    Source
	Timestamp time.Time
	Err       error
}

// FromNetwork reports whether the loader produced the value.
func (r Result) FromNetwork() bool { return r.Source == SourceNetwork }
