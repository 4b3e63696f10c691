package volume

import (
	"math"
	"sort"
	"time"

	"PumpRadar/internal/domain/models"
	"PumpRadar/pkg/util"
)

// DefaultCapacity is the number of minute samples retained per symbol.
const DefaultCapacity = 60

// Window is the horizon of the exact change.
const Window = time.Hour

// Ring is a per-symbol FIFO of minute-deduplicated 24h volume samples.
// Not safe for concurrent use; the snapshot actor owns it.
type Ring struct {
	capacity int
	entries  map[string][]models.VolumeRingEntry
}

func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Ring{
		capacity: capacity,
		entries:  make(map[string][]models.VolumeRingEntry),
	}
}

// Push appends a sample for the minute bucket of ts. A second sample in the newest
// bucket, or one older than it, is a no-op. It reports whether the ring changed.
func (r *Ring) Push(symbol string, volume24h float64, ts time.Time) bool {
	if symbol == "" || math.IsNaN(volume24h) || math.IsInf(volume24h, 0) || volume24h < 0 {
		return false
	}
	bucket := util.MinuteBucket(ts)
	es := r.entries[symbol]
	if n := len(es); n > 0 && !bucket.After(es[n-1].MinuteBucket) {
		return false
	}

	e := models.VolumeRingEntry{MinuteBucket: bucket, Volume24h: volume24h}
	if base := baseline(es, bucket); base != nil {
		e.VolumeChange1hPct = pct(volume24h, base.Volume24h)
	}

	if len(es) >= r.capacity {
		copy(es, es[1:])
		es[len(es)-1] = e
	} else {
		es = append(es, e)
	}
	r.entries[symbol] = es
	return true
}

// Len returns the number of retained samples for symbol.
func (r *Ring) Len(symbol string) int { return len(r.entries[symbol]) }

// Entries returns a copy of the retained samples, oldest first.
func (r *Ring) Entries(symbol string) []models.VolumeRingEntry {
	return append([]models.VolumeRingEntry(nil), r.entries[symbol]...)
}

// Read computes the 1h change for symbol. With a sample at least Window older than
// the newest one the change is exact. That sample may already be evicted, in which
// case the change Push recorded on the newest entry is used. Otherwise the change is
// extrapolated from the oldest sample and flagged as estimated. The second value is
// false for unknown symbols.
func (r *Ring) Read(symbol string) (models.VolumeChange, bool) {
	es := r.entries[symbol]
	if len(es) == 0 {
		return models.VolumeChange{}, false
	}
	newest := es[len(es)-1]
	out := models.VolumeChange{
		Symbol:    symbol,
		Timestamp: newest.MinuteBucket,
		Volume24h: newest.Volume24h,
	}

	if base := baseline(es[:len(es)-1], newest.MinuteBucket); base != nil {
		out.VolumeChange1hPct = pct(newest.Volume24h, base.Volume24h)
		return out, true
	}
	if newest.VolumeChange1hPct != nil {
		v := *newest.VolumeChange1hPct
		out.VolumeChange1hPct = &v
		return out, true
	}

	out.Estimated = true
	oldest := es[0]
	span := newest.MinuteBucket.Sub(oldest.MinuteBucket).Minutes()
	if len(es) < 2 || span <= 0 {
		return out, true
	}
	if p := pct(newest.Volume24h, oldest.Volume24h); p != nil {
		est := *p * Window.Minutes() / span
		out.VolumeChangeEstimate = &est
	}
	return out, true
}

// Ranking reads every symbol and sorts descending by whichever change is present.
// Symbols with neither sort last; ties break by symbol. n <= 0 returns all.
func (r *Ring) Ranking(n int) []models.VolumeChange {
	out := make([]models.VolumeChange, 0, len(r.entries))
	for sym := range r.entries {
		if vc, ok := r.Read(sym); ok {
			out = append(out, vc)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		vi, oki := out[i].RankValue()
		vj, okj := out[j].RankValue()
		switch {
		case oki != okj:
			return oki
		case oki && vi != vj:
			return vi > vj
		default:
			return out[i].Symbol < out[j].Symbol
		}
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// baseline returns the newest entry in es whose bucket is at or before latest-Window.
func baseline(es []models.VolumeRingEntry, latest time.Time) *models.VolumeRingEntry {
	cutoff := latest.Add(-Window)
	for i := len(es) - 1; i >= 0; i-- {
		if !es[i].MinuteBucket.After(cutoff) {
			return &es[i]
		}
	}
	return nil
}

func pct(cur, base float64) *float64 {
	if base == 0 {
		return nil
	}
	v := (cur - base) / base * 100
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
