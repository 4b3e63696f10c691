package candles

import (
	"math"
	"testing"
	"time"

	"PumpRadar/internal/domain/models"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func tick(sym string, price float64, at time.Time) models.PriceTick {
	return models.PriceTick{Symbol: sym, Price: price, ObservedAt: at}
}

func TestApplyBuildsOHLC(t *testing.T) {
	a := NewAggregator(DefaultCapacity)
	for i, p := range []float64{100, 104, 98, 101} {
		a.Apply(tick("BTC-USD", p, t0.Add(time.Duration(i)*10*time.Second)))
	}

	set := a.Set("BTC-USD")
	c := set.Now
	if c == nil {
		t.Fatalf("expected now candle")
	}
	if c.Open != 100 || c.High != 104 || c.Low != 98 || c.Close != 101 || c.Ticks != 4 {
		t.Fatalf("unexpected candle: %+v", c)
	}
	if a.Len("BTC-USD") != 1 {
		t.Fatalf("expected one bucket, got %d", a.Len("BTC-USD"))
	}
}

func TestApplyRejectsStaleAndInvalid(t *testing.T) {
	a := NewAggregator(DefaultCapacity)
	a.Apply(tick("ETH-USD", 10, t0.Add(2*time.Minute)))

	cases := []struct {
		name string
		in   models.PriceTick
	}{
		{"older bucket", tick("ETH-USD", 11, t0)},
		{"zero price", tick("ETH-USD", 0, t0.Add(3*time.Minute))},
		{"nan price", tick("ETH-USD", math.NaN(), t0.Add(3*time.Minute))},
		{"no symbol", tick("", 5, t0.Add(3*time.Minute))},
	}
	for _, tc := range cases {
		if a.Apply(tc.in) {
			t.Errorf("%s: expected tick to be ignored", tc.name)
		}
	}
	if a.Len("ETH-USD") != 1 {
		t.Fatalf("stale tick created a bucket")
	}
}

func TestSetResolvesBaselinesByTimestamp(t *testing.T) {
	a := NewAggregator(DefaultCapacity)
	// minutes 0,1,2,3 then a gap to minute 6
	for i, m := range []int{0, 1, 2, 3, 6} {
		a.Apply(tick("SOL-USD", float64(100+i), t0.Add(time.Duration(m)*time.Minute)))
	}
	set := a.Set("SOL-USD")

	if set.Now.BucketStart != t0.Add(6*time.Minute) {
		t.Fatalf("now bucket %v", set.Now.BucketStart)
	}
	// 1m lookback (<= minute 5) lands on minute 3
	if set.OneMinuteAgo == nil || set.OneMinuteAgo.BucketStart != t0.Add(3*time.Minute) {
		t.Fatalf("1m baseline: %+v", set.OneMinuteAgo)
	}
	// 3m lookback (<= minute 3) lands on minute 3
	if set.ThreeMinutesAgo == nil || set.ThreeMinutesAgo.BucketStart != t0.Add(3*time.Minute) {
		t.Fatalf("3m baseline: %+v", set.ThreeMinutesAgo)
	}
	if set.OneHourAgo != nil {
		t.Fatalf("expected no 1h baseline, got %+v", set.OneHourAgo)
	}
}

func TestSetReturnsCopies(t *testing.T) {
	a := NewAggregator(DefaultCapacity)
	a.Apply(tick("BTC-USD", 100, t0))
	set := a.Set("BTC-USD")
	set.Now.Close = 1

	if a.Set("BTC-USD").Now.Close != 100 {
		t.Fatalf("Set leaked internal state")
	}
}

func TestCapacityEvictsOldest(t *testing.T) {
	a := NewAggregator(5)
	for m := 0; m < 8; m++ {
		a.Apply(tick("BTC-USD", float64(m+1), t0.Add(time.Duration(m)*time.Minute)))
	}
	if a.Len("BTC-USD") != 5 {
		t.Fatalf("len = %d", a.Len("BTC-USD"))
	}
	set := a.Set("BTC-USD")
	if set.ThreeMinutesAgo == nil || set.ThreeMinutesAgo.Close != 5 {
		t.Fatalf("3m baseline after eviction: %+v", set.ThreeMinutesAgo)
	}
}

func TestPctChangeNullOnMissingBaseline(t *testing.T) {
	now := &models.Candle{Close: 110}
	cases := []struct {
		name string
		now  *models.Candle
		old  *models.Candle
	}{
		{"never populated", now, nil},
		{"zero close", now, &models.Candle{Close: 0}},
		{"no now", nil, &models.Candle{Close: 100}},
	}
	for _, tc := range cases {
		if got := PctChange(tc.now, tc.old); got != nil {
			t.Errorf("%s: expected nil, got %v", tc.name, *got)
		}
	}

	got := PctChange(now, &models.Candle{Close: 100})
	if got == nil || math.Abs(*got-10) > 1e-9 {
		t.Fatalf("expected 10%%, got %v", got)
	}
}

func TestPctChangeForFreshSymbolIsNull(t *testing.T) {
	a := NewAggregator(DefaultCapacity)
	a.Apply(tick("NEW-USD", 3, t0))
	set := a.Set("NEW-USD")
	for name, old := range map[string]*models.Candle{
		"1m": set.OneMinuteAgo, "3m": set.ThreeMinutesAgo, "1h": set.OneHourAgo,
	} {
		if PctChange(set.Now, old) != nil {
			t.Errorf("%s change should be nil for a fresh symbol", name)
		}
	}
	if PctChange(a.Set("UNKNOWN").Now, nil) != nil {
		t.Fatalf("unknown symbol should yield nil")
	}
}

func TestBodyRatio(t *testing.T) {
	cases := []struct {
		c    *models.Candle
		want float64
	}{
		{&models.Candle{Open: 100, High: 110, Low: 100, Close: 108}, 0.8},
		{&models.Candle{Open: 100, High: 100, Low: 100, Close: 100}, 0},
		{nil, 0},
	}
	for _, tc := range cases {
		if got := BodyRatio(tc.c); math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("BodyRatio(%+v) = %v, want %v", tc.c, got, tc.want)
		}
	}
}
