package upstream

import (
	"context"
	"errors"
	"fmt"
	"time"

	"PumpRadar/internal/domain/models"
	domrepo "PumpRadar/internal/domain/repository"
	applogger "PumpRadar/pkg/logger"
)

var (
	// ErrCycleTimeout marks symbols that had not settled when the cycle deadline passed.
	ErrCycleTimeout = errors.New("cycle timeout")
)

// Fetcher runs one concurrent fetch per symbol and joins them all-settled.
type Fetcher struct {
	source  domrepo.QuoteSource
	metrics domrepo.Metrics
	log     *applogger.Logger
	now     func() time.Time
}

type FetcherOption func(*Fetcher)

// WithClock overrides the observation clock.
func WithClock(now func() time.Time) FetcherOption {
	return func(f *Fetcher) { f.now = now }
}

func NewFetcher(source domrepo.QuoteSource, m domrepo.Metrics, l *applogger.Logger, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{source: source, metrics: m, log: l, now: time.Now}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch returns one result per symbol, in input order. It returns when every symbol
// settled or ctx is done; unsettled symbols carry ErrCycleTimeout. Failures never
// affect other symbols.
func (f *Fetcher) Fetch(ctx context.Context, symbols []string, withVolume bool) []models.FetchResult {
	start := f.now()
	results := make([]models.FetchResult, len(symbols))
	settled := make([]bool, len(symbols))

	type item struct {
		idx int
		res models.FetchResult
	}
	ch := make(chan item, len(symbols))
	for i, sym := range symbols {
		go func(i int, sym string) {
			ch <- item{idx: i, res: f.fetchOne(ctx, sym, withVolume)}
		}(i, sym)
	}

	pending := len(symbols)
wait:
	for pending > 0 {
		select {
		case it := <-ch:
			results[it.idx] = it.res
			settled[it.idx] = true
			pending--
		case <-ctx.Done():
			break wait
		}
	}

	failed := 0
	for i, sym := range symbols {
		if !settled[i] {
			results[i] = models.FetchResult{Symbol: sym, Err: ErrCycleTimeout}
		}
		if r := results[i]; !r.OK() {
			failed++
			f.metrics.RecordError("fetch")
			f.log.Debug("symbol skipped", applogger.String("symbol", sym), applogger.Error(r.Err))
		} else {
			f.metrics.RecordLastPrice(sym, r.Quote.Price)
		}
	}

	f.metrics.RecordLatency("fetch", f.now().Sub(start).Seconds())
	if failed > 0 {
		f.log.Warn("fetch cycle had failures",
			applogger.Int("failed", failed),
			applogger.Int("symbols", len(symbols)),
			applogger.Bool("volume", withVolume),
		)
	}
	return results
}

func (f *Fetcher) fetchOne(ctx context.Context, sym string, withVolume bool) models.FetchResult {
	price, err := f.source.FetchPrice(ctx, sym)
	if err != nil {
		return models.FetchResult{Symbol: sym, Err: fmt.Errorf("price: %w", err)}
	}
	q := &models.Quote{Symbol: sym, Price: price, ObservedAt: f.now()}
	if withVolume {
		v, err := f.source.FetchVolume(ctx, sym)
		if err != nil {
			return models.FetchResult{Symbol: sym, Err: fmt.Errorf("volume: %w", err)}
		}
		q.Volume24h = &v
	}
	return models.FetchResult{Symbol: sym, Quote: q}
}

// Quotes keeps the successful results.
func Quotes(results []models.FetchResult) []models.Quote {
	out := make([]models.Quote, 0, len(results))
	for _, r := range results {
		if r.OK() {
			out = append(out, *r.Quote)
		}
	}
	return out
}
