package usecase

import (
	"math"
	"sort"
	"time"

	"PumpRadar/internal/domain/models"
	"PumpRadar/internal/services/candles"
	"PumpRadar/internal/services/momentum"
	"PumpRadar/internal/services/volume"
)

// MarketEngine holds every rolling statistic the tables and signals are built from.
// It has no locking: the snapshot actor is its only caller.
type MarketEngine struct {
	universe  []string
	tableSize int

	candles *candles.Aggregator
	ring    *volume.Ring
	scorer  *momentum.Scorer
	streaks *momentum.Streaks

	volStats  map[string]*models.VolumeStat // 24h volume deltas
	tickStats map[string]*models.VolumeStat // tick counts, for symbols without volume
	lastVol   map[string]float64
	lastZ     map[string]float64
}

func NewMarketEngine(universe []string, tableSize int, scorer *momentum.Scorer) *MarketEngine {
	if tableSize <= 0 {
		tableSize = 10
	}
	return &MarketEngine{
		universe:  append([]string(nil), universe...),
		tableSize: tableSize,
		candles:   candles.NewAggregator(candles.DefaultCapacity),
		ring:      volume.NewRing(volume.DefaultCapacity),
		scorer:    scorer,
		streaks:   momentum.NewStreaks(),
		volStats:  make(map[string]*models.VolumeStat),
		tickStats: make(map[string]*models.VolumeStat),
		lastVol:   make(map[string]float64),
		lastZ:     make(map[string]float64),
	}
}

// ApplyTick folds an out-of-cycle tick into the candles.
func (e *MarketEngine) ApplyTick(t models.PriceTick) bool {
	return e.candles.Apply(t)
}

type symbolView struct {
	symbol string
	price  float64
	pct1m  *float64
	pct3m  *float64
	pct1h  *float64
	set    models.CandleSet
}

// ApplyQuotes runs one cycle: quotes go into the candles and the volume ring, the
// five tables are rebuilt from the quoted symbols, streaks advance and signals are scored.
func (e *MarketEngine) ApplyQuotes(quotes []models.Quote, at time.Time) (models.RankedTables, []models.Signal) {
	views := make([]symbolView, 0, len(quotes))
	newVolume := make(map[string]float64)
	for _, q := range quotes {
		e.candles.Apply(models.PriceTick{Symbol: q.Symbol, Price: q.Price, ObservedAt: q.ObservedAt})
		if q.Volume24h != nil {
			e.ring.Push(q.Symbol, *q.Volume24h, q.ObservedAt)
			newVolume[q.Symbol] = *q.Volume24h
		}
		set := e.candles.Set(q.Symbol)
		views = append(views, symbolView{
			symbol: q.Symbol,
			price:  q.Price,
			pct1m:  candles.PctChange(set.Now, set.OneMinuteAgo),
			pct3m:  candles.PctChange(set.Now, set.ThreeMinutesAgo),
			pct1h:  candles.PctChange(set.Now, set.OneHourAgo),
			set:    set,
		})
	}

	gainers1m := e.table(views, func(v symbolView) *float64 { return v.pct1m }, positiveDesc)
	gainers3m := e.table(views, func(v symbolView) *float64 { return v.pct3m }, positiveDesc)
	losers3m := e.table(views, func(v symbolView) *float64 { return v.pct3m }, negativeAsc)
	banner1h := e.table(views, func(v symbolView) *float64 { return v.pct1h }, absDesc)

	up := make(map[string]bool)
	down := make(map[string]bool)
	for _, r := range gainers1m {
		up[r.Symbol] = true
	}
	for _, r := range gainers3m {
		up[r.Symbol] = true
	}
	for _, r := range losers3m {
		down[r.Symbol] = true
	}
	e.streaks.Update(e.knownSymbols(), up, down)
	for _, rows := range [][]models.MoverRow{gainers1m, gainers3m, losers3m, banner1h} {
		for i := range rows {
			rows[i].Streak = e.streaks.Get(rows[i].Symbol)
		}
	}

	features := make([]momentum.Features, 0, len(views))
	for _, v := range views {
		z := e.volumeZ(v, newVolume)
		if v.pct1m == nil || v.pct3m == nil {
			continue
		}
		features = append(features, momentum.Features{
			Symbol:    v.symbol,
			Pct1m:     *v.pct1m,
			Pct3m:     *v.pct3m,
			VolumeZ:   z,
			Streak:    e.streaks.Get(v.symbol),
			BodyRatio: candles.BodyRatio(v.set.Now),
		})
	}

	tables := models.RankedTables{
		Banner1h:  banner1h,
		Gainers1m: gainers1m,
		Gainers3m: gainers3m,
		Losers3m:  losers3m,
		Volume1h:  e.ring.Ranking(e.tableSize),
	}
	return tables, e.scorer.Rank(features, at)
}

// VolumeRanking returns the ring ranking, n <= 0 for all symbols.
func (e *MarketEngine) VolumeRanking(n int) []models.VolumeChange {
	return e.ring.Ranking(n)
}

// VolumeStat returns the accumulator currently feeding sym's z-score.
func (e *MarketEngine) VolumeStat(sym string) models.VolumeStat {
	if s, ok := e.volStats[sym]; ok {
		return *s
	}
	if s, ok := e.tickStats[sym]; ok {
		return *s
	}
	return models.VolumeStat{}
}

// volumeZ scores this cycle's volume observation against the history before it.
// Symbols with 24h volume use the positive delta since the previous sample and keep
// their last z between volume samples; others fall back to the now-candle tick count.
func (e *MarketEngine) volumeZ(v symbolView, newVolume map[string]float64) float64 {
	sym := v.symbol
	if cur, ok := newVolume[sym]; ok {
		prev, seen := e.lastVol[sym]
		e.lastVol[sym] = cur
		if !seen {
			return e.lastZ[sym]
		}
		obs := math.Max(0, cur-prev)
		st := e.stat(e.volStats, sym)
		z := momentum.ZScore(*st, obs)
		momentum.Observe(st, obs)
		e.lastZ[sym] = z
		return z
	}
	if _, hasVolume := e.lastVol[sym]; hasVolume {
		return e.lastZ[sym]
	}
	if v.set.Now == nil {
		return 0
	}
	obs := float64(v.set.Now.Ticks)
	st := e.stat(e.tickStats, sym)
	z := momentum.ZScore(*st, obs)
	momentum.Observe(st, obs)
	return z
}

func (e *MarketEngine) stat(m map[string]*models.VolumeStat, sym string) *models.VolumeStat {
	st, ok := m[sym]
	if !ok {
		st = &models.VolumeStat{}
		m[sym] = st
	}
	return st
}

func (e *MarketEngine) knownSymbols() []string {
	seen := make(map[string]bool, len(e.universe))
	out := make([]string, 0, len(e.universe))
	for _, s := range append(append([]string(nil), e.universe...), e.candles.Symbols()...) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

type tableOrder int

const (
	positiveDesc tableOrder = iota
	negativeAsc
	absDesc
)

func (e *MarketEngine) table(views []symbolView, pick func(symbolView) *float64, order tableOrder) []models.MoverRow {
	rows := make([]models.MoverRow, 0, len(views))
	for _, v := range views {
		p := pick(v)
		if p == nil {
			continue
		}
		switch {
		case order == positiveDesc && *p <= 0:
			continue
		case order == negativeAsc && *p >= 0:
			continue
		}
		rows = append(rows, models.MoverRow{Symbol: v.symbol, Price: v.price, ChangePct: *p})
	}

	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i].ChangePct, rows[j].ChangePct
		switch order {
		case negativeAsc:
		case absDesc:
			a, b = -math.Abs(a), -math.Abs(b)
		default:
			a, b = -a, -b
		}
		if a != b {
			return a < b
		}
		return rows[i].Symbol < rows[j].Symbol
	})
	if len(rows) > e.tableSize {
		rows = rows[:e.tableSize]
	}
	for i := range rows {
		rows[i].Rank = i + 1
	}
	return rows
}
