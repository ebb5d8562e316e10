package oracle

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"LiqSentinel/internal/assets"
	"LiqSentinel/internal/observability"
)

// PriceFetcher fetches the current USD price of one asset. Implemented by
// the on-chain oracle client; transport-level fallback lives below this
// interface.
type PriceFetcher interface {
	FetchUSD(ctx context.Context, asset assets.Config) (decimal.Decimal, error)
}

// Refresher periodically refreshes the price cache. All fetches of one
// cycle run concurrently and are joined before anything is published, so
// readers never see a partially refreshed cycle.
type Refresher struct {
	registry *assets.Registry
	cache    *PriceCache
	fetcher  PriceFetcher
	interval time.Duration
	log      zerolog.Logger
	metrics  *observability.Metrics
}

func NewRefresher(
	registry *assets.Registry,
	cache *PriceCache,
	fetcher PriceFetcher,
	interval time.Duration,
	log zerolog.Logger,
	metrics *observability.Metrics,
) *Refresher {
	return &Refresher{
		registry: registry,
		cache:    cache,
		fetcher:  fetcher,
		interval: interval,
		log:      log,
		metrics:  metrics,
	}
}

// Run refreshes immediately, then on every interval tick until ctx is
// cancelled. Individual fetch failures are logged and the previous price
// is kept; the loop itself only stops on cancellation.
func (r *Refresher) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.refreshOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.refreshOnce(ctx)
		}
	}
}

// RefreshOnce runs a single fan-out/fan-in refresh cycle.
func (r *Refresher) RefreshOnce(ctx context.Context) {
	r.refreshOnce(ctx)
}

func (r *Refresher) refreshOnce(ctx context.Context) {
	all := r.registry.All()

	type fetchResult struct {
		ticker string
		price  decimal.Decimal
		err    error
	}

	results := make([]fetchResult, len(all))

	var wg sync.WaitGroup
	for i, asset := range all {
		wg.Add(1)
		go func(i int, asset assets.Config) {
			defer wg.Done()
			price, err := r.fetcher.FetchUSD(ctx, asset)
			results[i] = fetchResult{ticker: asset.Ticker, price: price, err: err}
		}(i, asset)
	}
	wg.Wait()

	updates := make(map[string]decimal.Decimal, len(results))
	for _, res := range results {
		if res.err != nil {
			r.log.Warn().Str("ticker", res.ticker).Err(res.err).Msg("price fetch failed, keeping previous")
			if r.metrics != nil {
				r.metrics.PriceFetchErrors.WithLabelValues(res.ticker).Inc()
			}
			continue
		}
		updates[res.ticker] = res.price
	}

	if len(updates) > 0 {
		r.cache.Publish(updates)
	}

	if r.metrics != nil {
		r.metrics.PriceRefreshCycles.Inc()
		r.metrics.PriceLastRefresh.SetToCurrentTime()
	}
}
