package models

import (
	"testing"
	"time"
)

func TestMergeLeavesAbsentFieldsUntouched(t *testing.T) {
	prev := EmptySnapshot()
	prev.RankedTables.Losers3m = []MoverRow{{Rank: 1, Symbol: "ETH-USD", ChangePct: -4}}
	prev.RankedTables.Banner1h = []MoverRow{{Rank: 1, Symbol: "SOL-USD", ChangePct: 9}}

	rows := []MoverRow{{Rank: 1, Symbol: "BTC-USD", ChangePct: 2.5}}
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	got := prev.Merge(SnapshotPatch{Gainers1m: &rows}, at)

	if len(got.RankedTables.Gainers1m) != 1 || got.RankedTables.Gainers1m[0].Symbol != "BTC-USD" {
		t.Fatalf("gainers1m not merged: %+v", got.RankedTables.Gainers1m)
	}
	if len(got.RankedTables.Losers3m) != 1 || got.RankedTables.Losers3m[0].Symbol != "ETH-USD" {
		t.Fatalf("losers3m changed: %+v", got.RankedTables.Losers3m)
	}
	if len(got.RankedTables.Banner1h) != 1 || got.RankedTables.Banner1h[0].Symbol != "SOL-USD" {
		t.Fatalf("banner1h changed: %+v", got.RankedTables.Banner1h)
	}
	if !got.UpdatedAt.Equal(at) {
		t.Fatalf("updatedAt %v", got.UpdatedAt)
	}
	if len(prev.RankedTables.Gainers1m) != 0 {
		t.Fatalf("merge mutated the previous snapshot")
	}

	rows[0].Symbol = "MUTATED"
	if got.RankedTables.Gainers1m[0].Symbol != "BTC-USD" {
		t.Fatalf("merge aliased the patch slice")
	}
}

func TestPatchIsEmpty(t *testing.T) {
	if !(SnapshotPatch{}).IsEmpty() {
		t.Fatalf("zero patch should be empty")
	}
	empty := []MoverRow{}
	if (SnapshotPatch{Gainers3m: &empty}).IsEmpty() {
		t.Fatalf("explicit empty table is still a field")
	}
}

func TestVolumeChangeRankValue(t *testing.T) {
	exact, est := 12.0, 7.0
	if v, ok := (VolumeChange{VolumeChange1hPct: &exact, VolumeChangeEstimate: &est}).RankValue(); !ok || v != 12 {
		t.Fatalf("exact should win: %v %v", v, ok)
	}
	if v, ok := (VolumeChange{VolumeChangeEstimate: &est, Estimated: true}).RankValue(); !ok || v != 7 {
		t.Fatalf("estimate: %v %v", v, ok)
	}
	if _, ok := (VolumeChange{}).RankValue(); ok {
		t.Fatalf("neither present")
	}
}
