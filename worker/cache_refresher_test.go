package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"usenet-scout/internal/model"
)

type fakeRefresher struct {
	calls int32
	err   error
}

func (f *fakeRefresher) Refresh(ctx context.Context, force bool) (*model.Snapshot, bool, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return nil, false, f.err
	}
	return &model.Snapshot{CapturedAt: time.Now()}, true, nil
}

func TestCacheRefresherRunsImmediatelyAndStopsOnCancel(t *testing.T) {
	f := &fakeRefresher{}
	w := &CacheRefresher{Catalog: f, Interval: time.Hour}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Start(ctx) }()

	// The initial run happens before the first tick.
	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&f.calls) == 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("refresher did not stop after cancellation")
	}
}

func TestCacheRefresherSurvivesErrors(t *testing.T) {
	f := &fakeRefresher{err: errors.New("provider down")}
	w := &CacheRefresher{Catalog: f, Interval: 10 * time.Millisecond}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	assert.NoError(t, w.Start(ctx))
	// Multiple ticks ran despite every refresh failing.
	assert.GreaterOrEqual(t, atomic.LoadInt32(&f.calls), int32(2))
}

func TestManagerWaitsForWorkers(t *testing.T) {
	f := &fakeRefresher{}
	m := NewManager(&CacheRefresher{Catalog: f, Interval: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Start(ctx) }()

	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&f.calls) == 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("manager did not stop after cancellation")
	}
}
