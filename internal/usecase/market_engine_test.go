package usecase

import (
	"testing"
	"time"

	"PumpRadar/internal/domain/models"
	"PumpRadar/internal/services/momentum"
)

func quotesAt(at time.Time, prices map[string]float64) []models.Quote {
	out := make([]models.Quote, 0, len(prices))
	for sym, p := range prices {
		out = append(out, models.Quote{Symbol: sym, Price: p, ObservedAt: at})
	}
	return out
}

func TestMarketEngineTables(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	e := NewMarketEngine(testSymbols, 10, momentum.NewScorer())

	e.ApplyQuotes(quotesAt(t0, map[string]float64{"AAAUSDT": 100, "BBBUSDT": 100, "CCCUSDT": 100}), t0)
	t1 := t0.Add(time.Minute)
	tables, _ := e.ApplyQuotes(quotesAt(t1, map[string]float64{"AAAUSDT": 102, "BBBUSDT": 99, "CCCUSDT": 101}), t1)

	g := tables.Gainers1m
	if len(g) != 2 {
		t.Fatalf("gainers1m: %+v", g)
	}
	if g[0].Symbol != "AAAUSDT" || g[0].Rank != 1 || g[1].Symbol != "CCCUSDT" || g[1].Rank != 2 {
		t.Fatalf("gainers1m order: %+v", g)
	}
	if g[0].ChangePct < 1.999 || g[0].ChangePct > 2.001 {
		t.Fatalf("AAA pct1m = %v", g[0].ChangePct)
	}
	if g[0].Streak != 1 {
		t.Fatalf("AAA streak = %d, want 1", g[0].Streak)
	}
	if len(tables.Gainers3m) != 0 || len(tables.Losers3m) != 0 || len(tables.Banner1h) != 0 {
		t.Fatalf("tables without a baseline must be empty: %+v", tables)
	}
}

func TestMarketEngineTableSize(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	e := NewMarketEngine(testSymbols, 1, momentum.NewScorer())
	e.ApplyQuotes(quotesAt(t0, map[string]float64{"AAAUSDT": 100, "CCCUSDT": 100}), t0)
	t1 := t0.Add(time.Minute)
	tables, _ := e.ApplyQuotes(quotesAt(t1, map[string]float64{"AAAUSDT": 101, "CCCUSDT": 103}), t1)
	if len(tables.Gainers1m) != 1 || tables.Gainers1m[0].Symbol != "CCCUSDT" {
		t.Fatalf("gainers1m: %+v", tables.Gainers1m)
	}
}

func TestMarketEngineLosersAndStreakReset(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	e := NewMarketEngine([]string{"AAAUSDT"}, 10, momentum.NewScorer())
	prices := []float64{100, 101, 102, 103, 90}
	var tables models.RankedTables
	for i, p := range prices {
		at := t0.Add(time.Duration(i) * time.Minute)
		tables, _ = e.ApplyQuotes(quotesAt(at, map[string]float64{"AAAUSDT": p}), at)
		if i == 3 && (len(tables.Gainers3m) != 1 || tables.Gainers3m[0].Streak != 3) {
			t.Fatalf("minute 3 gainers3m: %+v", tables.Gainers3m)
		}
	}
	if len(tables.Losers3m) != 1 || tables.Losers3m[0].Symbol != "AAAUSDT" {
		t.Fatalf("losers3m: %+v", tables.Losers3m)
	}
	if tables.Losers3m[0].Streak != -1 {
		t.Fatalf("streak after reversal = %d, want -1", tables.Losers3m[0].Streak)
	}
}

func TestMarketEngineVolumeStatUsesDeltas(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	e := NewMarketEngine([]string{"AAAUSDT"}, 10, momentum.NewScorer())
	for i, v := range []float64{1000, 1010, 1030, 1020} {
		at := t0.Add(time.Duration(i) * time.Minute)
		vol := v
		e.ApplyQuotes([]models.Quote{{Symbol: "AAAUSDT", Price: 1, Volume24h: &vol, ObservedAt: at}}, at)
	}
	st := e.VolumeStat("AAAUSDT")
	// deltas 10, 20, 0 (negative clamps to zero)
	if st.Count != 3 || st.Mean < 9.999 || st.Mean > 10.001 {
		t.Fatalf("volume stat: %+v", st)
	}
	if n := len(e.VolumeRanking(0)); n != 1 {
		t.Fatalf("volume ranking len = %d", n)
	}
}
