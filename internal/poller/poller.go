// Package poller refreshes provider usage on an interval for server mode.
package poller

import (
	"context"
	"sync"
	"time"

	"github.com/yuxishi/aiusage/internal/cache"
	"github.com/yuxishi/aiusage/internal/logger"
	"github.com/yuxishi/aiusage/internal/metrics"
	"github.com/yuxishi/aiusage/internal/model"
)

type Fetcher interface {
	FetchAll(ctx context.Context) []model.Result
}

// SnapshotStore persists poll results. It is optional.
type SnapshotStore interface {
	InsertSnapshot(ctx context.Context, capturedAt time.Time, results []model.Result) (int, error)
	Prune(ctx context.Context, before time.Time) (int64, error)
}

type Options struct {
	Fetcher   Fetcher
	Cache     *cache.Cache[model.Result]
	Exporter  *metrics.Exporter
	Store     SnapshotStore
	Interval  time.Duration
	Retention time.Duration
}

type Poller struct {
	fetcher   Fetcher
	cache     *cache.Cache[model.Result]
	exporter  *metrics.Exporter
	store     SnapshotStore
	interval  time.Duration
	retention time.Duration
	now       func() time.Time

	pollMu sync.Mutex

	mu       sync.RWMutex
	lastPoll time.Time
	last     []model.Result
}

func New(opts Options) *Poller {
	interval := opts.Interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Poller{
		fetcher:   opts.Fetcher,
		cache:     opts.Cache,
		exporter:  opts.Exporter,
		store:     opts.Store,
		interval:  interval,
		retention: opts.Retention,
		now:       time.Now,
	}
}

// Run polls immediately and then every interval until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	logger.Info("poller started", "interval", p.interval)
	p.Poll(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info("poller stopped")
			return
		case <-ticker.C:
			p.Poll(ctx)
		}
	}
}

// Poll runs one fetch cycle and returns its results. Concurrent calls are
// serialized.
func (p *Poller) Poll(ctx context.Context) []model.Result {
	p.pollMu.Lock()
	defer p.pollMu.Unlock()

	results := p.fetcher.FetchAll(ctx)
	now := p.now().UTC()

	failed := 0
	for _, r := range results {
		if r.OK() {
			p.cache.Set(r.Provider, r)
		} else {
			p.cache.Delete(r.Provider)
			failed++
		}
	}

	if p.exporter != nil {
		p.exporter.Update(results, now)
	}
	if p.store != nil {
		p.persist(ctx, now, results)
	}

	p.mu.Lock()
	p.lastPoll = now
	p.last = results
	p.mu.Unlock()

	logger.Info("poll completed", "providers", len(results), "failed", failed, "cached", p.cache.Len())
	return results
}

func (p *Poller) persist(ctx context.Context, now time.Time, results []model.Result) {
	n, err := p.store.InsertSnapshot(ctx, now, results)
	if err != nil {
		logger.Error("failed to store snapshot", "error", err)
		return
	}
	logger.Debug("snapshot stored", "rows", n)

	if p.retention <= 0 {
		return
	}
	pruned, err := p.store.Prune(ctx, now.Add(-p.retention))
	if err != nil {
		logger.Error("failed to prune snapshots", "error", err)
		return
	}
	if pruned > 0 {
		logger.Debug("snapshots pruned", "rows", pruned)
	}
}

// LastPoll returns when the last cycle finished, or the zero time.
func (p *Poller) LastPoll() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastPoll
}

// Results returns the last poll's results in provider order. Successful
// entries come from the cache and are omitted once they expire; failures
// are reported as last seen.
func (p *Poller) Results() []model.Result {
	p.mu.RLock()
	last := p.last
	p.mu.RUnlock()

	cached := p.cache.Items()
	out := make([]model.Result, 0, len(last))
	for _, r := range last {
		if !r.OK() {
			out = append(out, r)
			continue
		}
		if hit, ok := cached[r.Provider]; ok {
			out = append(out, hit)
		}
	}
	return out
}

// Errors maps provider names to the error of their last failed fetch.
func (p *Poller) Errors() map[string]string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	errs := make(map[string]string)
	for _, r := range p.last {
		if r.Err != nil {
			errs[r.Provider] = r.Err.Error()
		}
	}
	return errs
}

// Invalidate drops every cached result.
func (p *Poller) Invalidate() {
	p.cache.Clear()
}
