package worker

import (
	"context"
	"log/slog"
	"time"

	"usenet-scout/internal/model"
)

// Refresher updates the group catalog snapshot when it goes stale.
type Refresher interface {
	Refresh(ctx context.Context, force bool) (*model.Snapshot, bool, error)
}

// CacheRefresher periodically re-checks the group catalog cache and
// refreshes it once the staleness window has passed. Refreshes are never
// forced, so a fresh cache makes each tick a no-op.
type CacheRefresher struct {
	Catalog  Refresher
	Interval time.Duration
}

func (w *CacheRefresher) Start(ctx context.Context) error {
	if w.Interval <= 0 {
		w.Interval = 6 * time.Hour
	}

	// initial run
	w.runOnce(ctx)

	t := time.NewTicker(w.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			w.runOnce(ctx)
		}
	}
}

func (w *CacheRefresher) runOnce(ctx context.Context) {
	snap, refreshed, err := w.Catalog.Refresh(ctx, false)
	if err != nil {
		slog.Error("cache-refresher: refresh error", "error", err)
		return
	}
	if refreshed {
		slog.Info("cache-refresher: snapshot refreshed", "groups", len(snap.Groups))
	}
}
