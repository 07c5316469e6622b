package provider

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yuxishi/aiusage/internal/logger"
	"github.com/yuxishi/aiusage/internal/model"
)

type Fetcher struct {
	providers      []Provider
	maxConcurrency int
	now            func() time.Time
}

func NewFetcher(providers []Provider, maxConcurrency int) *Fetcher {
	if maxConcurrency <= 0 {
		maxConcurrency = 4
	}
	return &Fetcher{providers: providers, maxConcurrency: maxConcurrency, now: time.Now}
}

// Providers returns the adapters in configured order.
func (f *Fetcher) Providers() []Provider {
	return f.providers
}

// FetchAll queries every provider concurrently. Results keep the configured
// order and a failing provider only marks its own result.
func (f *Fetcher) FetchAll(ctx context.Context) []model.Result {
	results := make([]model.Result, len(f.providers))

	var g errgroup.Group
	g.SetLimit(f.maxConcurrency)

	for i, p := range f.providers {
		g.Go(func() error {
			results[i] = f.fetchOne(ctx, p)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (f *Fetcher) fetchOne(ctx context.Context, p Provider) model.Result {
	res := model.Result{Provider: p.Name(), Service: ServiceName(p.Name())}

	logger.Debug("fetching usage", "provider", p.Name())
	data, err := p.Fetch(ctx)
	res.FetchedAt = f.now().UTC()
	if err != nil {
		logger.Warn("usage fetch failed", "provider", p.Name(), "kind", model.KindOf(err), "error", err)
		res.Err = err
		return res
	}

	logger.Debug("usage fetched", "provider", p.Name(), "windows", len(data.Windows))
	res.Usage = &data
	return res
}
