package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"usenet-scout/internal/model"
)

type memStore struct {
	snap    *model.Snapshot
	saveErr error
	loadErr error
}

func (s *memStore) LoadSnapshot(ctx context.Context) (*model.Snapshot, error) {
	return s.snap, s.loadErr
}

func (s *memStore) SaveSnapshot(ctx context.Context, snap *model.Snapshot) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.snap = snap
	return nil
}

type fakeLister struct {
	groups []model.GroupRecord
	err    error
	calls  int
}

func (l *fakeLister) ListAllGroups(ctx context.Context, pattern string, pageSize int) ([]model.GroupRecord, error) {
	l.calls++
	return l.groups, l.err
}

func records(names ...string) []model.GroupRecord {
	out := make([]model.GroupRecord, 0, len(names))
	for _, n := range names {
		out = append(out, model.GroupRecord{Name: n, Posting: model.PostingAllowed})
	}
	return out
}

func freshSnapshot(names ...string) *model.Snapshot {
	return &model.Snapshot{CapturedAt: time.Now().UTC(), Groups: records(names...)}
}

func TestMatchSelectsGlobVsSubstring(t *testing.T) {
	groups := records(
		"comp.sys.amiga.hardware",
		"comp.sys.amiga.misc",
		"comp.sys.mac.hardware",
		"alt.amiga.emulation",
	)

	// Wildcard tokens select glob semantics.
	got := Match(groups, "comp.sys.amiga.*")
	require.Len(t, got, 2)
	assert.Equal(t, "comp.sys.amiga.hardware", got[0].Name)
	assert.Equal(t, "comp.sys.amiga.misc", got[1].Name)

	got = Match(groups, "*.amiga.*")
	require.Len(t, got, 3)

	got = Match(groups, "comp.sys.?ac.hardware")
	require.Len(t, got, 1)
	assert.Equal(t, "comp.sys.mac.hardware", got[0].Name)

	// No wildcard tokens: case-insensitive substring semantics. A glob
	// interpretation of "amiga" would match nothing.
	got = Match(groups, "AMIGA")
	assert.Len(t, got, 3)

	// Empty pattern returns the catalog verbatim, sorted.
	got = Match(groups, "")
	require.Len(t, got, 4)
	assert.Equal(t, "alt.amiga.emulation", got[0].Name)
}

func TestResolveUsesFreshCacheWithoutRefetch(t *testing.T) {
	store := &memStore{snap: freshSnapshot("comp.sys.amiga.misc", "rec.games.corewar")}
	lister := &fakeLister{}
	c := New(store, lister)

	got, err := c.Resolve(context.Background(), "amiga")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Zero(t, lister.calls)
}

func TestResolveStaleCacheTriggersRefresh(t *testing.T) {
	store := &memStore{snap: &model.Snapshot{
		CapturedAt: time.Now().Add(-48 * time.Hour),
		Groups:     records("old.group"),
	}}
	lister := &fakeLister{groups: records("new.group")}
	c := New(store, lister)

	got, err := c.Resolve(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "new.group", got[0].Name)
	assert.Equal(t, 1, lister.calls)
}

func TestRefreshFailurePreservesPriorSnapshot(t *testing.T) {
	prior := freshSnapshot("kept.group")
	prior.CapturedAt = time.Now().Add(-48 * time.Hour)
	store := &memStore{snap: prior}
	lister := &fakeLister{err: errors.New("connection refused")}
	c := New(store, lister)

	_, _, err := c.Refresh(context.Background(), true)
	require.Error(t, err)
	assert.Same(t, prior, store.snap)

	// The prior snapshot stays queryable even though it is stale.
	got, err := c.Resolve(context.Background(), "kept")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "kept.group", got[0].Name)
}

func TestRefreshNotForcedSkipsWhenFresh(t *testing.T) {
	store := &memStore{snap: freshSnapshot("a.group")}
	lister := &fakeLister{groups: records("new.group")}
	c := New(store, lister)

	snap, refreshed, err := c.Refresh(context.Background(), false)
	require.NoError(t, err)
	assert.False(t, refreshed)
	assert.Equal(t, "a.group", snap.Groups[0].Name)
	assert.Zero(t, lister.calls)

	snap, refreshed, err = c.Refresh(context.Background(), true)
	require.NoError(t, err)
	assert.True(t, refreshed)
	assert.Equal(t, "new.group", snap.Groups[0].Name)
}

func TestStatus(t *testing.T) {
	store := &memStore{}
	c := New(store, &fakeLister{}, WithMaxAge(time.Hour))

	info, err := c.Status(context.Background())
	require.NoError(t, err)
	assert.False(t, info.Exists)

	store.snap = &model.Snapshot{
		CapturedAt: time.Now().Add(-2 * time.Hour),
		Groups:     records("a", "b"),
	}
	info, err = c.Status(context.Background())
	require.NoError(t, err)
	assert.True(t, info.Exists)
	assert.True(t, info.Expired)
	assert.Equal(t, 2, info.GroupCount)
	assert.InDelta(t, 2.0, info.Age, 0.1)
}
