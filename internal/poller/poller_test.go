package poller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuxishi/aiusage/internal/cache"
	"github.com/yuxishi/aiusage/internal/metrics"
	"github.com/yuxishi/aiusage/internal/model"
)

type fakeFetcher struct {
	calls atomic.Int32
}

func (f *fakeFetcher) FetchAll(context.Context) []model.Result {
	f.calls.Add(1)
	return []model.Result{
		{
			Provider: "claude",
			Service:  model.ServiceClaude,
			Usage: &model.ServiceUsageData{
				Service: model.ServiceClaude,
				Windows: []model.UsageWindow{{Name: "5-Hour Usage", Utilization: 30, PeriodDuration: 5 * time.Hour}},
			},
		},
		{Provider: "gemini", Service: model.ServiceGemini, Err: errors.New("gemini down")},
	}
}

type fakeStore struct {
	mu       sync.Mutex
	inserted int
	prunedAt time.Time
}

func (s *fakeStore) InsertSnapshot(_ context.Context, _ time.Time, results []model.Result) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inserted += len(results)
	return len(results), nil
}

func (s *fakeStore) Prune(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prunedAt = before
	return 0, nil
}

func newTestPoller(t *testing.T, store SnapshotStore) (*Poller, *fakeFetcher, *metrics.Exporter) {
	t.Helper()
	c := cache.New[model.Result](time.Hour)
	t.Cleanup(c.Close)

	f := &fakeFetcher{}
	e := metrics.NewExporter()
	p := New(Options{
		Fetcher:   f,
		Cache:     c,
		Exporter:  e,
		Store:     store,
		Interval:  time.Hour,
		Retention: 24 * time.Hour,
	})
	p.now = func() time.Time { return time.Date(2025, 10, 19, 12, 0, 0, 0, time.UTC) }
	return p, f, e
}

func TestPoll_UpdatesCacheMetricsAndStore(t *testing.T) {
	store := &fakeStore{}
	p, f, e := newTestPoller(t, store)

	results := p.Poll(context.Background())

	require.Len(t, results, 2)
	assert.Equal(t, int32(1), f.calls.Load())
	assert.Equal(t, time.Date(2025, 10, 19, 12, 0, 0, 0, time.UTC), p.LastPoll())

	_, ok := p.cache.Get("claude")
	assert.True(t, ok)
	_, ok = p.cache.Get("gemini")
	assert.False(t, ok)

	assert.Equal(t, 1.0, testutil.ToFloat64(e.ProviderUp.WithLabelValues("claude", "Claude")))
	assert.Equal(t, 2, store.inserted)
	assert.Equal(t, time.Date(2025, 10, 18, 12, 0, 0, 0, time.UTC), store.prunedAt)

	assert.Equal(t, map[string]string{"gemini": "gemini down"}, p.Errors())
}

func TestResults_DropsInvalidatedSuccesses(t *testing.T) {
	p, _, _ := newTestPoller(t, nil)
	p.Poll(context.Background())

	require.Len(t, p.Results(), 2)

	p.Invalidate()
	got := p.Results()
	require.Len(t, got, 1)
	assert.Equal(t, "gemini", got[0].Provider)
}

func TestResults_BeforeFirstPoll(t *testing.T) {
	p, _, _ := newTestPoller(t, nil)
	assert.Empty(t, p.Results())
	assert.True(t, p.LastPoll().IsZero())
}

func TestRun_PollsImmediatelyAndStopsOnCancel(t *testing.T) {
	p, f, _ := newTestPoller(t, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return f.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop after cancel")
	}
}

func TestRun_TicksOnInterval(t *testing.T) {
	p, f, _ := newTestPoller(t, nil)
	p.interval = 10 * time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go p.Run(ctx)

	assert.Eventually(t, func() bool { return f.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
}

type scriptedFetcher struct {
	rounds [][]model.Result
	n      int
}

func (f *scriptedFetcher) FetchAll(context.Context) []model.Result {
	r := f.rounds[f.n]
	if f.n < len(f.rounds)-1 {
		f.n++
	}
	return r
}

func TestPoll_FailureEvictsCachedSuccess(t *testing.T) {
	ok := model.Result{
		Provider: "claude",
		Service:  model.ServiceClaude,
		Usage:    &model.ServiceUsageData{Service: model.ServiceClaude},
	}
	failed := model.Result{Provider: "claude", Service: model.ServiceClaude, Err: errors.New("expired token")}

	c := cache.New[model.Result](time.Hour)
	t.Cleanup(c.Close)
	p := New(Options{
		Fetcher: &scriptedFetcher{rounds: [][]model.Result{{ok}, {failed}}},
		Cache:   c,
	})

	p.Poll(context.Background())
	assert.Equal(t, 1, c.Len())

	p.Poll(context.Background())
	assert.Equal(t, 0, c.Len())

	got := p.Results()
	require.Len(t, got, 1)
	assert.EqualError(t, got[0].Err, "expired token")
}
