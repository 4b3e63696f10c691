package candles

import (
	"math"
	"sort"
	"time"

	"PumpRadar/internal/domain/models"
	"PumpRadar/pkg/util"
)

// DefaultCapacity keeps a little more than one hour of minute candles per symbol.
const DefaultCapacity = 64

// Lookback horizons resolved against the newest candle.
const (
	HorizonOneMinute    = time.Minute
	HorizonThreeMinutes = 3 * time.Minute
	HorizonOneHour      = time.Hour
)

// Aggregator builds minute candles per symbol and resolves historical baselines by
// timestamp lookback. Not safe for concurrent use; the snapshot actor owns it.
type Aggregator struct {
	capacity int
	series   map[string][]models.Candle
}

func NewAggregator(capacity int) *Aggregator {
	if capacity < 2 {
		capacity = DefaultCapacity
	}
	return &Aggregator{
		capacity: capacity,
		series:   make(map[string][]models.Candle),
	}
}

// Apply folds tick into the symbol's candle for the tick's minute bucket. Ticks older
// than the newest bucket and non-positive prices are ignored.
func (a *Aggregator) Apply(tick models.PriceTick) bool {
	if tick.Symbol == "" || tick.Price <= 0 || math.IsNaN(tick.Price) || math.IsInf(tick.Price, 0) {
		return false
	}
	bucket := util.MinuteBucket(tick.ObservedAt)
	s := a.series[tick.Symbol]

	if n := len(s); n > 0 {
		last := &s[n-1]
		switch {
		case last.BucketStart.Equal(bucket):
			if tick.Price > last.High {
				last.High = tick.Price
			}
			if tick.Price < last.Low {
				last.Low = tick.Price
			}
			last.Close = tick.Price
			last.Ticks++
			return true
		case bucket.Before(last.BucketStart):
			return false
		}
	}

	c := models.Candle{
		BucketStart: bucket,
		Open:        tick.Price,
		High:        tick.Price,
		Low:         tick.Price,
		Close:       tick.Price,
		Ticks:       1,
	}
	if len(s) >= a.capacity {
		copy(s, s[1:])
		s[len(s)-1] = c
	} else {
		s = append(s, c)
	}
	a.series[tick.Symbol] = s
	return true
}

// Set returns copies of the now candle and its 1m, 3m and 1h baselines.
func (a *Aggregator) Set(symbol string) models.CandleSet {
	s := a.series[symbol]
	if len(s) == 0 {
		return models.CandleSet{}
	}
	now := s[len(s)-1]
	return models.CandleSet{
		Now:             &now,
		OneMinuteAgo:    lookback(s, now.BucketStart.Add(-HorizonOneMinute)),
		ThreeMinutesAgo: lookback(s, now.BucketStart.Add(-HorizonThreeMinutes)),
		OneHourAgo:      lookback(s, now.BucketStart.Add(-HorizonOneHour)),
	}
}

// Len reports how many candles are retained for symbol.
func (a *Aggregator) Len(symbol string) int { return len(a.series[symbol]) }

// Symbols returns every symbol with at least one candle, sorted.
func (a *Aggregator) Symbols() []string {
	out := make([]string, 0, len(a.series))
	for sym := range a.series {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

// lookback returns the newest candle whose bucket is at or before cutoff.
func lookback(s []models.Candle, cutoff time.Time) *models.Candle {
	for i := len(s) - 2; i >= 0; i-- {
		if !s[i].BucketStart.After(cutoff) {
			c := s[i]
			return &c
		}
	}
	return nil
}

// PctChange is (now.Close - old.Close) / old.Close * 100. It returns nil when
// either candle is missing or the baseline close is zero.
func PctChange(now, old *models.Candle) *float64 {
	if now == nil || old == nil || old.Close == 0 {
		return nil
	}
	v := (now.Close - old.Close) / old.Close * 100
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// BodyRatio is |close-open| / (high-low), 0 for a flat candle.
func BodyRatio(c *models.Candle) float64 {
	if c == nil {
		return 0
	}
	rng := c.High - c.Low
	if rng <= 0 {
		return 0
	}
	return math.Abs(c.Close-c.Open) / rng
}
