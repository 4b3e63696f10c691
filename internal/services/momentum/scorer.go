package momentum

import (
	"math"
	"sort"
	"time"

	"PumpRadar/internal/domain/models"
)

// Weights of the linear combination fed to the logistic squash.
type Weights struct {
	Pct1m   float64
	Pct3m   float64
	VolumeZ float64
	Streak  float64
	Body    float64
}

// DefaultWeights favours short-horizon moves backed by volume.
func DefaultWeights() Weights {
	return Weights{Pct1m: 0.35, Pct3m: 0.25, VolumeZ: 0.3, Streak: 0.1, Body: 0.5}
}

// Gate thresholds. A symbol below any of them emits nothing.
const (
	MinAbsPct1m  = 0.8
	MinAbsPct3m  = 1.2
	MinVolumeZ   = 1.0
	MinBodyRatio = 0.35
)

// Tag thresholds.
const (
	FastMovePct1m  = 2.0
	ImpulsePct3m   = 3.0
	VolSpikeZ      = 2.0
	StreakMinCount = 3
)

// Features is the per-symbol input of one scoring pass.
type Features struct {
	Symbol    string
	Pct1m     float64
	Pct3m     float64
	VolumeZ   float64
	Streak    int
	BodyRatio float64
}

type Option func(*Scorer)

// WithWeights overrides the default weights.
func WithWeights(w Weights) Option {
	return func(s *Scorer) { s.weights = w }
}

// WithTopN caps the ranked output.
func WithTopN(n int) Option {
	return func(s *Scorer) {
		if n > 0 {
			s.topN = n
		}
	}
}

// Scorer turns features into ranked momentum signals. Stateless apart from config.
type Scorer struct {
	weights Weights
	topN    int
}

func NewScorer(opts ...Option) *Scorer {
	s := &Scorer{weights: DefaultWeights(), topN: 10}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Evaluate scores one symbol. It returns false when any gate threshold is not met.
func (s *Scorer) Evaluate(f Features, at time.Time) (models.Signal, bool) {
	if math.Abs(f.Pct1m) < MinAbsPct1m || math.Abs(f.Pct3m) < MinAbsPct3m ||
		f.VolumeZ < MinVolumeZ || f.BodyRatio < MinBodyRatio {
		return models.Signal{}, false
	}

	w := s.weights
	x := w.Pct1m*f.Pct1m + w.Pct3m*f.Pct3m + w.VolumeZ*f.VolumeZ +
		w.Streak*float64(f.Streak) + w.Body*(f.BodyRatio-MinBodyRatio)

	dir := models.DirectionPump
	if f.Pct1m < 0 {
		x = -x
		dir = models.DirectionDump
	}

	return models.Signal{
		Symbol:    f.Symbol,
		Direction: dir,
		Score:     logistic(x),
		Pct1m:     f.Pct1m,
		Pct3m:     f.Pct3m,
		VolumeZ:   f.VolumeZ,
		Streak:    f.Streak,
		BodyRatio: f.BodyRatio,
		Tags:      tags(f),
		EmittedAt: at,
	}, true
}

// Rank evaluates every input and returns the top N by score, ties by symbol.
func (s *Scorer) Rank(in []Features, at time.Time) []models.Signal {
	out := make([]models.Signal, 0, len(in))
	for _, f := range in {
		if sig, ok := s.Evaluate(f, at); ok {
			out = append(out, sig)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Symbol < out[j].Symbol
	})
	if len(out) > s.topN {
		out = out[:s.topN]
	}
	return out
}

func tags(f Features) []string {
	out := make([]string, 0, 4)
	if math.Abs(f.Pct1m) >= FastMovePct1m {
		out = append(out, models.TagFastMove)
	}
	if math.Abs(f.Pct3m) >= ImpulsePct3m {
		out = append(out, models.TagImpulse3m)
	}
	if f.VolumeZ >= VolSpikeZ {
		out = append(out, models.TagVolSpike)
	}
	if f.Streak >= StreakMinCount || f.Streak <= -StreakMinCount {
		out = append(out, models.TagStreak)
	}
	return out
}

// logistic maps x into the open interval (0,1).
func logistic(x float64) float64 {
	v := 1 / (1 + math.Exp(-x))
	switch {
	case v >= 1:
		return math.Nextafter(1, 0)
	case v <= 0:
		return math.Nextafter(0, 1)
	}
	return v
}
