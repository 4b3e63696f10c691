package models

import "time"

// VolumeRingEntry is one minute's 24h volume sample.
type VolumeRingEntry struct {
	MinuteBucket      time.Time `json:"minuteBucket"`
	Volume24h         float64   `json:"volume24h"`
	VolumeChange1hPct *float64  `json:"volumeChange1hPct,omitempty"`
}

// VolumeChange is the ring read result for one symbol. Exactly one of the two
// percentages is populated when history allows it; both are nil otherwise.
type VolumeChange struct {
	Symbol               string    `json:"symbol"`
	Timestamp            time.Time `json:"timestamp"`
	Volume24h            float64   `json:"volume24h"`
	VolumeChange1hPct    *float64  `json:"volumeChange1hPct"`
	VolumeChangeEstimate *float64  `json:"volumeChangeEstimate"`
	Estimated            bool      `json:"estimated"`
}

// RankValue returns whichever change is present.
func (v VolumeChange) RankValue() (float64, bool) {
	if v.VolumeChange1hPct != nil {
		return *v.VolumeChange1hPct, true
	}
	if v.VolumeChangeEstimate != nil {
		return *v.VolumeChangeEstimate, true
	}
	return 0, false
}
