package momentum

import (
	"math"

	"PumpRadar/internal/domain/models"
)

// stddevEpsilon treats smaller deviations as zero when computing z-scores.
const stddevEpsilon = 1e-12

// Observe folds x into the running mean and variance (Welford).
func Observe(s *models.VolumeStat, x float64) {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return
	}
	s.Count++
	delta := x - s.Mean
	s.Mean += delta / float64(s.Count)
	s.M2 += delta * (x - s.Mean)
	if s.Count > 1 {
		s.StdDev = math.Sqrt(s.M2 / float64(s.Count-1))
	} else {
		s.StdDev = 0
	}
}

// ZScore returns (x - mean) / stddev, or 0 when fewer than two observations
// exist or the deviation is effectively zero.
func ZScore(s models.VolumeStat, x float64) float64 {
	if s.Count < 2 || s.StdDev < stddevEpsilon {
		return 0
	}
	z := (x - s.Mean) / s.StdDev
	if math.IsNaN(z) || math.IsInf(z, 0) {
		return 0
	}
	return z
}
