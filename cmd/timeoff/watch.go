package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/goliatone/go-timeoff/internal/metrics"
	"github.com/goliatone/go-timeoff/pkg/apiclient"
	"github.com/goliatone/go-timeoff/pkg/cachestore"
	"github.com/goliatone/go-timeoff/pkg/interfaces/broadcaster"
	"github.com/goliatone/go-timeoff/pkg/interfaces/logger"
	"github.com/goliatone/go-timeoff/pkg/notifications"
	"github.com/goliatone/go-timeoff/pkg/requests"
)

func watchAction(ctx context.Context, cmd *cli.Command) error {
	rt, err := newEnv(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	cfg := rt.Config
	if base := cmd.String("base-url"); base != "" {
		cfg.Client.BaseURL = base
	}
	client, err := apiclient.New(cfg.Client.BaseURL,
		apiclient.WithHTTPClient(&http.Client{Timeout: cfg.Client.Timeout}),
		apiclient.WithRetries(cfg.Client.MaxRetries, nil),
		apiclient.WithLogger(rt.Logger),
	)
	if err != nil {
		return err
	}
	if _, err := client.Login(ctx, cmd.String("email")); err != nil {
		return fmt.Errorf("watch: sign in: %w", err)
	}

	hub := broadcaster.NewHub()
	unread := &unreadTracker{out: os.Stdout, last: -1}
	defer hub.Subscribe(broadcaster.Func(unread.observe), notifications.TopicState)()

	recorder := metrics.CacheRecorder{}
	reqStore, err := requests.New(requests.Dependencies{
		API:         client,
		Logger:      rt.Logger,
		Broadcaster: hub,
		Recorder:    recorder,
	}, requests.Config{TTL: cfg.Cache.TTL, Coalesce: cfg.Cache.Coalesce})
	if err != nil {
		return err
	}
	notes, err := notifications.New(notifications.Dependencies{
		API:         client,
		Logger:      rt.Logger,
		Broadcaster: hub,
		Recorder:    recorder,
	}, notifications.Config{
		TTL:          cfg.Cache.TTL,
		PollInterval: pollInterval(cfg.Poller.Enabled, cfg.Poller.Interval),
		Coalesce:     cfg.Cache.Coalesce,
	})
	if err != nil {
		return err
	}

	notes.Start(ctx)
	defer notes.Stop()
	rt.Logger.Info("watching", logger.Field{Key: "base_url", Value: cfg.Client.BaseURL})

	ticker := time.NewTicker(cmd.Duration("every"))
	defer ticker.Stop()
	for {
		reqStore.Fetch(ctx, requests.Filter{})
		notes.Fetch(ctx)
		render(os.Stdout, time.Now(), reqStore.State(), reqStore.CacheInfo(), notes.State(), notes.CacheInfo())

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// pollInterval maps a disabled poller to the negative interval the store
// treats as off.
func pollInterval(enabled bool, interval time.Duration) time.Duration {
	if !enabled {
		return -1
	}
	return interval
}

type unreadTracker struct {
	mu   sync.Mutex
	out  io.Writer
	last int
}

func (u *unreadTracker) observe(_ context.Context, evt broadcaster.Event) error {
	state, ok := evt.Payload.(notifications.State)
	if !ok || state.Loading {
		return nil
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.last >= 0 && state.UnreadCount != u.last {
		fmt.Fprintf(u.out, "unread: %d -> %d\n", u.last, state.UnreadCount)
	}
	u.last = state.UnreadCount
	return nil
}

func render(w io.Writer, now time.Time, reqs requests.State, reqInfo []cachestore.Info, notes notifications.State, noteInfo []cachestore.Info) {
	fmt.Fprintf(w, "requests: %s", humanize.Comma(int64(len(reqs.Requests))))
	if !reqs.UpdatedAt.IsZero() {
		fmt.Fprintf(w, " (updated %s)", humanize.RelTime(reqs.UpdatedAt, now, "ago", "from now"))
	}
	if reqs.LastError != nil {
		fmt.Fprintf(w, " error: %v", reqs.LastError)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "notifications: %s, unread %d", humanize.Comma(int64(len(notes.Notifications))), notes.UnreadCount)
	if notes.LastError != nil {
		fmt.Fprintf(w, " error: %v", notes.LastError)
	}
	fmt.Fprintln(w)

	for _, info := range append(append([]cachestore.Info{}, reqInfo...), noteInfo...) {
		fresh := "stale"
		if info.Fresh {
			fresh = "fresh"
		}
		stamped := now.Add(-time.Duration(info.AgeSeconds) * time.Second)
		fmt.Fprintf(w, "  %-20s %-5s %s\n", info.Key, fresh, humanize.RelTime(stamped, now, "ago", "from now"))
	}
}
