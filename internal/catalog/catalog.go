// Package catalog maintains the known universe of newsgroups: a cached
// snapshot of the server's group list, pattern resolution against it, and
// refresh with atomic replacement.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strings"
	"time"

	"usenet-scout/internal/model"
)

// Store persists catalog snapshots as whole documents.
type Store interface {
	LoadSnapshot(ctx context.Context) (*model.Snapshot, error)
	SaveSnapshot(ctx context.Context, snap *model.Snapshot) error
}

// Lister fetches the full group list from the source.
type Lister interface {
	ListAllGroups(ctx context.Context, pattern string, pageSize int) ([]model.GroupRecord, error)
}

// DefaultMaxAge is the staleness threshold for a cached snapshot.
const DefaultMaxAge = 24 * time.Hour

// Catalog resolves group patterns against a cached snapshot.
type Catalog struct {
	store    Store
	lister   Lister
	maxAge   time.Duration
	pageSize int
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithMaxAge overrides the staleness threshold.
func WithMaxAge(d time.Duration) Option {
	return func(c *Catalog) {
		if d > 0 {
			c.maxAge = d
		}
	}
}

// WithPageSize overrides the listing progress granularity.
func WithPageSize(n int) Option {
	return func(c *Catalog) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

func New(store Store, lister Lister, opts ...Option) *Catalog {
	c := &Catalog{
		store:    store,
		lister:   lister,
		maxAge:   DefaultMaxAge,
		pageSize: 1000,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Info describes the state of the cached snapshot.
type Info struct {
	Exists     bool      `json:"exists"`
	CapturedAt time.Time `json:"captured_at,omitempty"`
	Age        float64   `json:"age_hours"`
	GroupCount int       `json:"group_count"`
	Expired    bool      `json:"expired"`
}

// Status reports the cached snapshot's freshness without refreshing it.
func (c *Catalog) Status(ctx context.Context) (Info, error) {
	snap, err := c.store.LoadSnapshot(ctx)
	if err != nil {
		return Info{}, err
	}
	if snap == nil {
		return Info{}, nil
	}
	age := time.Since(snap.CapturedAt)
	return Info{
		Exists:     true,
		CapturedAt: snap.CapturedAt,
		Age:        age.Hours(),
		GroupCount: len(snap.Groups),
		Expired:    age > c.maxAge,
	}, nil
}

// Refresh fetches the entire group list and replaces the cached snapshot
// atomically. With force=false the refresh only runs when the cache is
// missing or stale; the returned bool reports whether a refresh was
// performed. A fetch or store failure leaves the prior snapshot intact.
func (c *Catalog) Refresh(ctx context.Context, force bool) (*model.Snapshot, bool, error) {
	if !force {
		snap, err := c.store.LoadSnapshot(ctx)
		if err != nil {
			return nil, false, err
		}
		if snap != nil && time.Since(snap.CapturedAt) <= c.maxAge {
			return snap, false, nil
		}
	}

	groups, err := c.lister.ListAllGroups(ctx, "", c.pageSize)
	if err != nil {
		return nil, false, fmt.Errorf("catalog: refresh: %w", err)
	}
	snap := &model.Snapshot{CapturedAt: time.Now().UTC(), Groups: groups}
	if err := c.store.SaveSnapshot(ctx, snap); err != nil {
		return nil, false, err
	}
	slog.Info("catalog: snapshot refreshed", "groups", len(groups))
	return snap, true, nil
}

// Resolve returns the groups matching pattern. An empty pattern returns the
// catalog verbatim. A pattern containing `*` or `?` selects shell-style glob
// matching; any other pattern selects case-insensitive substring matching.
// A missing or stale cache triggers a full refresh first.
func (c *Catalog) Resolve(ctx context.Context, pattern string) ([]model.GroupRecord, error) {
	snap, err := c.store.LoadSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	if snap == nil || time.Since(snap.CapturedAt) > c.maxAge {
		refreshed, _, err := c.Refresh(ctx, true)
		if err != nil {
			if snap == nil {
				return nil, err
			}
			// Stale data beats no data when the source is unreachable.
			slog.Warn("catalog: refresh failed, serving stale snapshot", "error", err)
		} else {
			snap = refreshed
		}
	}
	return Match(snap.Groups, pattern), nil
}

// ResolveNames is Resolve narrowed to group names.
func (c *Catalog) ResolveNames(ctx context.Context, pattern string) ([]string, error) {
	groups, err := c.Resolve(ctx, pattern)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(groups))
	for _, g := range groups {
		names = append(names, g.Name)
	}
	return names, nil
}

// Match filters records by pattern. Presence of `*` or `?` selects glob
// semantics, otherwise case-insensitive substring semantics. Results are
// sorted by name.
func Match(groups []model.GroupRecord, pattern string) []model.GroupRecord {
	out := make([]model.GroupRecord, 0, len(groups))
	switch {
	case pattern == "":
		out = append(out, groups...)
	case strings.ContainsAny(pattern, "*?"):
		for _, g := range groups {
			if ok, err := path.Match(pattern, g.Name); err == nil && ok {
				out = append(out, g)
			}
		}
	default:
		sub := strings.ToLower(pattern)
		for _, g := range groups {
			if strings.Contains(strings.ToLower(g.Name), sub) {
				out = append(out, g)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
