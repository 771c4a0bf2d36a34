// Package cachestore implements the timestamped entry cache shared by the
// client-side request and notification stores.
//
// Entries are addressed through typed keys so a key created with
// NewKey[[]domain.Notification] can only ever yield a notification list and a
// key created with NewKey[int] only a count. An entry is fresh while its age
// is below the cache TTL; stale entries are kept around so a failed fetch can
// fall back to them.
//
//	var unread = cachestore.NewKey[int]("unreadCount")
//
//	c := cachestore.New("notifications")
//	count, res, err := cachestore.Fetch(ctx, c, unread, api.UnreadCount, nil)
//
// Fetch never blocks other readers while the loader runs. When several
// callers miss on the same key at once each of them calls the loader unless
// WithCoalescing is enabled, and the last loader to resolve wins.
package cachestore
