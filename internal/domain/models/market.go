package models

import "time"

// PriceTick is a single observed price. Consumed immediately by the candle aggregator.
type PriceTick struct {
	Symbol     string    `json:"symbol"`
	Price      float64   `json:"price"`
	ObservedAt time.Time `json:"observedAt"`
}

// Quote is one symbol's successful fetch for a cycle.
type Quote struct {
	Symbol     string
	Price      float64
	Volume24h  *float64 // set only on the volume path
	ObservedAt time.Time
}

// FetchResult carries either a quote or the reason the symbol was skipped.
type FetchResult struct {
	Symbol string
	Quote  *Quote
	Err    error
}

// OK reports whether the fetch produced a quote.
func (r FetchResult) OK() bool { return r.Err == nil && r.Quote != nil }

// Candle represents an OHLC aggregate over one minute bucket.
type Candle struct {
	BucketStart time.Time `json:"bucketStart"`
	Open        float64   `json:"open"`
	High        float64   `json:"high"`
	Low         float64   `json:"low"`
	Close       float64   `json:"close"`
	Ticks       int       `json:"ticks"`
}

// CandleSet is the per-symbol view the scorer reads. Historical slots may be nil.
type CandleSet struct {
	Now             *Candle
	OneMinuteAgo    *Candle
	ThreeMinutesAgo *Candle
	OneHourAgo      *Candle
}
