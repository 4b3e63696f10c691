package momentum

import (
	"math"
	"testing"

	"PumpRadar/internal/domain/models"
)

func TestObserveMatchesTwoPass(t *testing.T) {
	xs := []float64{4, 7, 13, 16, 2, 9, 11}
	var s models.VolumeStat
	for _, x := range xs {
		Observe(&s, x)
	}

	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(len(xs))
	var ss float64
	for _, x := range xs {
		ss += (x - mean) * (x - mean)
	}
	std := math.Sqrt(ss / float64(len(xs)-1))

	if s.Count != int64(len(xs)) || math.Abs(s.Mean-mean) > 1e-9 || math.Abs(s.StdDev-std) > 1e-9 {
		t.Fatalf("got %+v, want mean=%v std=%v", s, mean, std)
	}
}

func TestObserveStableForLargeOffsets(t *testing.T) {
	var s models.VolumeStat
	for _, x := range []float64{1e9 + 4, 1e9 + 7, 1e9 + 13, 1e9 + 16} {
		Observe(&s, x)
	}
	// variance of {4,7,13,16} is 30
	if math.Abs(s.StdDev-math.Sqrt(30)) > 1e-6 {
		t.Fatalf("stddev = %v", s.StdDev)
	}
}

func TestZScoreGuards(t *testing.T) {
	var s models.VolumeStat
	if z := ZScore(s, 10); z != 0 {
		t.Fatalf("empty stat z = %v", z)
	}
	Observe(&s, 5)
	Observe(&s, 5)
	if z := ZScore(s, 100); z != 0 {
		t.Fatalf("zero stddev z = %v", z)
	}
	Observe(&s, 8)
	if z := ZScore(s, s.Mean); z != 0 {
		t.Fatalf("z at mean = %v", z)
	}
	if z := ZScore(s, s.Mean+2*s.StdDev); math.Abs(z-2) > 1e-9 {
		t.Fatalf("z = %v, want 2", z)
	}
}

func TestObserveIgnoresNaN(t *testing.T) {
	var s models.VolumeStat
	Observe(&s, math.NaN())
	if s.Count != 0 {
		t.Fatalf("NaN counted")
	}
}
