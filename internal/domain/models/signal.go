package models

import "time"

type Direction string

const (
	DirectionPump Direction = "PUMP"
	DirectionDump Direction = "DUMP"
)

// Signal tags.
const (
	TagFastMove  = "fast-move"
	TagImpulse3m = "impulse-3m"
	TagVolSpike  = "vol-spike"
	TagStreak    = "streak"
)

// Signal is a momentum anomaly for one symbol. Valid for a single cycle only.
type Signal struct {
	Symbol    string    `json:"symbol"`
	Direction Direction `json:"direction"`
	Score     float64   `json:"score"`
	Pct1m     float64   `json:"pct1m"`
	Pct3m     float64   `json:"pct3m"`
	VolumeZ   float64   `json:"volumeZ"`
	Streak    int       `json:"streak"`
	BodyRatio float64   `json:"bodyRatio"`
	Tags      []string  `json:"tags"`
	EmittedAt time.Time `json:"emittedAt"`
}

// HasTag reports whether tag is attached to the signal.
func (s Signal) HasTag(tag string) bool {
	for _, t := range s.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// SignalSet is the ranked output of one cycle.
type SignalSet struct {
	Cycle     uint64    `json:"cycle"`
	EmittedAt time.Time `json:"emittedAt"`
	Signals   []Signal  `json:"signals"`
}

// VolumeStat is a Welford accumulator over volume observations.
type VolumeStat struct {
	Count  int64   `json:"count"`
	Mean   float64 `json:"mean"`
	M2     float64 `json:"sumSquaredDelta"`
	StdDev float64 `json:"stddev"`
}
