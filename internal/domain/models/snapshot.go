package models

import "time"

// MoverRow is one row of a price-change table.
type MoverRow struct {
	Rank      int     `json:"rank"`
	Symbol    string  `json:"symbol" validate:"required"`
	Price     float64 `json:"price" validate:"gte=0"`
	ChangePct float64 `json:"changePct"`
	Streak    int     `json:"streak,omitempty"`
}

// RankedTables groups every table served to clients.
type RankedTables struct {
	Banner1h  []MoverRow     `json:"banner1h"`
	Gainers1m []MoverRow     `json:"gainers1m"`
	Gainers3m []MoverRow     `json:"gainers3m"`
	Losers3m  []MoverRow     `json:"losers3m"`
	Volume1h  []VolumeChange `json:"volume1h"`
}

// Snapshot is the consolidated view owned by the snapshot actor. Treated as
// immutable once published; writes produce a new value.
type Snapshot struct {
	RankedTables RankedTables `json:"rankedTables"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

// EmptySnapshot is the cold-start default.
func EmptySnapshot() *Snapshot {
	return &Snapshot{
		RankedTables: RankedTables{
			Banner1h:  []MoverRow{},
			Gainers1m: []MoverRow{},
			Gainers3m: []MoverRow{},
			Losers3m:  []MoverRow{},
			Volume1h:  []VolumeChange{},
		},
	}
}

// SnapshotPatch is a partial write. Nil fields are left untouched by a merge.
type SnapshotPatch struct {
	Banner1h  *[]MoverRow     `json:"banner1h,omitempty" validate:"omitempty,dive"`
	Gainers1m *[]MoverRow     `json:"gainers1m,omitempty" validate:"omitempty,dive"`
	Gainers3m *[]MoverRow     `json:"gainers3m,omitempty" validate:"omitempty,dive"`
	Losers3m  *[]MoverRow     `json:"losers3m,omitempty" validate:"omitempty,dive"`
	Volume1h  *[]VolumeChange `json:"volume1h,omitempty"`
}

// IsEmpty reports whether the patch carries no field at all.
func (p SnapshotPatch) IsEmpty() bool {
	return p.Banner1h == nil && p.Gainers1m == nil && p.Gainers3m == nil &&
		p.Losers3m == nil && p.Volume1h == nil
}

// PatchFromTables builds a patch carrying every table.
func PatchFromTables(t RankedTables) SnapshotPatch {
	return SnapshotPatch{
		Banner1h:  &t.Banner1h,
		Gainers1m: &t.Gainers1m,
		Gainers3m: &t.Gainers3m,
		Losers3m:  &t.Losers3m,
		Volume1h:  &t.Volume1h,
	}
}

// Merge returns a new snapshot with the present patch fields replacing the
// matching tables of s. Slices are copied so the result shares nothing with p.
func (s *Snapshot) Merge(p SnapshotPatch, at time.Time) *Snapshot {
	out := &Snapshot{RankedTables: s.RankedTables, UpdatedAt: at}
	if p.Banner1h != nil {
		out.RankedTables.Banner1h = append([]MoverRow{}, (*p.Banner1h)...)
	}
	if p.Gainers1m != nil {
		out.RankedTables.Gainers1m = append([]MoverRow{}, (*p.Gainers1m)...)
	}
	if p.Gainers3m != nil {
		out.RankedTables.Gainers3m = append([]MoverRow{}, (*p.Gainers3m)...)
	}
	if p.Losers3m != nil {
		out.RankedTables.Losers3m = append([]MoverRow{}, (*p.Losers3m)...)
	}
	if p.Volume1h != nil {
		out.RankedTables.Volume1h = append([]VolumeChange{}, (*p.Volume1h)...)
	}
	return out
}
