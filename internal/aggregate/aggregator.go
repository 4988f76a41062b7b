// Package aggregate fans header retrieval out across many groups on a
// bounded worker pool, isolating per-group failures.
package aggregate

import (
	"context"
	"log/slog"
	"sync"

	"usenet-scout/internal/model"
)

// HeaderFetcher retrieves the header window for one group. Each call owns
// an independent connection, so concurrent calls do not interfere.
type HeaderFetcher interface {
	FetchHeaders(ctx context.Context, group string, maxCount, sinceDays int) ([]model.MessageHeader, error)
}

// DefaultMaxWorkers bounds parallel group fetches when no override is given.
const DefaultMaxWorkers = 4

// Aggregator drives per-group fetches in parallel and merges the results.
type Aggregator struct {
	fetcher    HeaderFetcher
	maxWorkers int
}

func New(fetcher HeaderFetcher, maxWorkers int) *Aggregator {
	if maxWorkers <= 0 {
		maxWorkers = DefaultMaxWorkers
	}
	return &Aggregator{fetcher: fetcher, maxWorkers: maxWorkers}
}

// SearchGroups fetches headers for every group concurrently, bounded by the
// worker limit. A group whose fetch fails contributes nothing to the result
// and is logged; groups with zero messages are omitted. Context
// cancellation stops unstarted groups and is propagated to in-flight
// fetches. Merging into the shared map is the single synchronization point.
func (a *Aggregator) SearchGroups(ctx context.Context, groups []string, maxPerGroup, sinceDays int) map[string][]model.MessageHeader {
	results := make(map[string][]model.MessageHeader, len(groups))
	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, a.maxWorkers)
	)

	for _, group := range groups {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		go func(group string) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return
			}

			msgs, err := a.fetcher.FetchHeaders(ctx, group, maxPerGroup, sinceDays)
			if err != nil {
				slog.Error("aggregate: group fetch failed", "group", group, "error", err)
				return
			}
			if len(msgs) == 0 {
				return
			}
			mu.Lock()
			results[group] = msgs
			mu.Unlock()
		}(group)
	}
	wg.Wait()
	return results
}

// Flatten merges a per-group result map into one slice. Ordering across
// groups is unspecified; callers sort as needed.
func Flatten(results map[string][]model.MessageHeader) []model.MessageHeader {
	n := 0
	for _, msgs := range results {
		n += len(msgs)
	}
	out := make([]model.MessageHeader, 0, n)
	for _, msgs := range results {
		out = append(out, msgs...)
	}
	return out
}
