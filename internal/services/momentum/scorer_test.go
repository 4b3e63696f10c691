package momentum

import (
	"testing"
	"time"

	"PumpRadar/internal/domain/models"
)

var at = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestEvaluateBelowGateEmitsNothing(t *testing.T) {
	s := NewScorer()
	cases := []struct {
		name string
		f    Features
	}{
		{"all below", Features{Symbol: "A", Pct1m: 0.2, Pct3m: 0.3, VolumeZ: 0.1, BodyRatio: 0.1}},
		{"pct1m below", Features{Symbol: "A", Pct1m: 0.5, Pct3m: 6, VolumeZ: 3, BodyRatio: 0.6}},
		{"pct3m below", Features{Symbol: "A", Pct1m: 5, Pct3m: 1, VolumeZ: 3, BodyRatio: 0.6}},
		{"volume below", Features{Symbol: "A", Pct1m: 5, Pct3m: 6, VolumeZ: 0.9, BodyRatio: 0.6}},
		{"body below", Features{Symbol: "A", Pct1m: 5, Pct3m: 6, VolumeZ: 3, BodyRatio: 0.3}},
	}
	for _, tc := range cases {
		if _, ok := s.Evaluate(tc.f, at); ok {
			t.Errorf("%s: expected no signal", tc.name)
		}
	}
}

func TestEvaluatePump(t *testing.T) {
	s := NewScorer()
	sig, ok := s.Evaluate(Features{Symbol: "BTC-USD", Pct1m: 5, Pct3m: 6, VolumeZ: 3, BodyRatio: 0.6}, at)
	if !ok {
		t.Fatalf("expected a signal")
	}
	if sig.Direction != models.DirectionPump {
		t.Fatalf("direction = %s", sig.Direction)
	}
	if !(sig.Score > 0 && sig.Score < 1) {
		t.Fatalf("score out of range: %v", sig.Score)
	}
	for _, tag := range []string{models.TagVolSpike, models.TagFastMove, models.TagImpulse3m} {
		if !sig.HasTag(tag) {
			t.Errorf("missing tag %s in %v", tag, sig.Tags)
		}
	}
	if sig.HasTag(models.TagStreak) {
		t.Errorf("unexpected streak tag")
	}
	if !sig.EmittedAt.Equal(at) {
		t.Fatalf("emittedAt = %v", sig.EmittedAt)
	}
}

func TestEvaluateDump(t *testing.T) {
	s := NewScorer()
	sig, ok := s.Evaluate(Features{Symbol: "ETH-USD", Pct1m: -5, Pct3m: -6, VolumeZ: 3, Streak: -3, BodyRatio: 0.6}, at)
	if !ok {
		t.Fatalf("expected a signal")
	}
	if sig.Direction != models.DirectionDump {
		t.Fatalf("direction = %s", sig.Direction)
	}
	if !(sig.Score > 0.5 && sig.Score < 1) {
		t.Fatalf("dump score = %v", sig.Score)
	}
	if !sig.HasTag(models.TagStreak) {
		t.Fatalf("expected streak tag for -3")
	}
}

func TestScoreStaysInsideOpenInterval(t *testing.T) {
	s := NewScorer()
	sig, ok := s.Evaluate(Features{Symbol: "X", Pct1m: 5000, Pct3m: 9000, VolumeZ: 500, BodyRatio: 1}, at)
	if !ok || sig.Score >= 1 || sig.Score <= 0 {
		t.Fatalf("score = %v", sig.Score)
	}
}

func TestRankOrdersAndTruncates(t *testing.T) {
	s := NewScorer(WithTopN(2))
	in := []Features{
		{Symbol: "LOW", Pct1m: 1, Pct3m: 1.5, VolumeZ: 1.1, BodyRatio: 0.4},
		{Symbol: "BBB", Pct1m: 5, Pct3m: 6, VolumeZ: 3, BodyRatio: 0.6},
		{Symbol: "AAA", Pct1m: 5, Pct3m: 6, VolumeZ: 3, BodyRatio: 0.6},
		{Symbol: "NONE", Pct1m: 0.1, Pct3m: 0.1, VolumeZ: 0, BodyRatio: 0},
	}
	got := s.Rank(in, at)
	if len(got) != 2 {
		t.Fatalf("len = %d", len(got))
	}
	if got[0].Symbol != "AAA" || got[1].Symbol != "BBB" {
		t.Fatalf("order = %s, %s", got[0].Symbol, got[1].Symbol)
	}
}

func TestStreaks(t *testing.T) {
	s := NewStreaks()
	universe := []string{"A", "B", "C"}
	up := map[string]bool{"A": true}
	down := map[string]bool{"B": true}

	for i := 0; i < 3; i++ {
		s.Update(universe, up, down)
	}
	if s.Get("A") != 3 || s.Get("B") != -3 || s.Get("C") != 0 {
		t.Fatalf("streaks A=%d B=%d C=%d", s.Get("A"), s.Get("B"), s.Get("C"))
	}

	// A drops out, B flips to gainer
	s.Update(universe, map[string]bool{"B": true}, nil)
	if s.Get("A") != 0 || s.Get("B") != 1 {
		t.Fatalf("after flip A=%d B=%d", s.Get("A"), s.Get("B"))
	}

	s.Update(universe, map[string]bool{"C": true}, map[string]bool{"C": true})
	if s.Get("C") != 0 {
		t.Fatalf("conflicting membership should reset, got %d", s.Get("C"))
	}
}
