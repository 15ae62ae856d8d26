// Package fetch pulls time-windowed message history from source channels and
// assembles the per-run transcript.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"chandigest/internal/domain"
	"chandigest/internal/metrics"
	"chandigest/internal/ratelimit"
)

const (
	// pageSize is the source API's per-request maximum. The fetch loop is
	// driven by the time window, not by the user-facing --limit.
	pageSize = 100

	maxRateLimitRetries = 3
	defaultBackoff      = 2 * time.Second
)

// Fetcher pages backward through a channel's history until the window cutoff.
type Fetcher struct {
	source   domain.HistorySource
	pace     *ratelimit.Limiter
	counters *metrics.RunCounters
	logger   *slog.Logger
}

// Config configures a Fetcher.
type Config struct {
	Source   domain.HistorySource
	Pace     *ratelimit.Limiter
	Counters *metrics.RunCounters
	Logger   *slog.Logger
}

// New creates a Fetcher.
func New(cfg Config) *Fetcher {
	if cfg.Counters == nil {
		cfg.Counters = metrics.NewRunCounters()
	}
	return &Fetcher{
		source:   cfg.Source,
		pace:     cfg.Pace,
		counters: cfg.Counters,
		logger:   cfg.Logger,
	}
}

// Window fetches every message in channelID newer than cutoff, returned in
// timestamp-ascending order. Pagination proceeds backward via a before-cursor
// and stops on an empty page or once a page contains a message at or before
// the cutoff. Rate-limited pages are retried a bounded number of times with
// the source-specified interval; any other error fails this channel only.
func (f *Fetcher) Window(ctx context.Context, channelID string, cutoff time.Time) ([]domain.Message, error) {
	var collected []domain.Message
	beforeID := ""
	retries := 0

	for {
		if err := f.pace.Wait(ctx); err != nil {
			return nil, err
		}

		page, err := f.source.MessagesBefore(ctx, channelID, pageSize, beforeID)
		if err != nil {
			var rl *domain.RateLimitedError
			if errors.As(err, &rl) && retries < maxRateLimitRetries {
				retries++
				wait := rl.RetryAfter
				if wait <= 0 {
					wait = defaultBackoff
				}
				f.counters.RateLimitRetries.Add(1)
				f.logger.Warn("rate limited, backing off",
					"channel_id", channelID, "retry", retries, "wait", wait)
				if err := sleep(ctx, wait); err != nil {
					return nil, err
				}
				continue // retry the same page
			}
			return nil, fmt.Errorf("fetch channel %s: %w", channelID, err)
		}
		retries = 0
		f.counters.PagesFetched.Add(1)

		if len(page) == 0 {
			break
		}

		hitCutoff := false
		for _, m := range page {
			if m.Timestamp.After(cutoff) {
				collected = append(collected, m)
			} else {
				hitCutoff = true
			}
		}
		if hitCutoff {
			break
		}

		// Pages arrive newest first; the last entry is the page's oldest
		// message and becomes the next cursor.
		beforeID = page[len(page)-1].ID
		if len(page) < pageSize {
			break
		}
	}

	sort.Slice(collected, func(i, j int) bool {
		return collected[i].Timestamp.Before(collected[j].Timestamp)
	})
	f.counters.MessagesFetched.Add(int64(len(collected)))
	return collected, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
