package middleware

import (
	"context"
	"errors"
	"testing"
	"time"

	"PumpRadar/internal/domain/models"
	"PumpRadar/pkg/metrics"
)

type recordingSink struct {
	ticks []models.PriceTick
	err   error
}

func (s *recordingSink) IngestTicks(_ context.Context, ticks []models.PriceTick) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.ticks = append(s.ticks, ticks...)
	return len(ticks), nil
}

func TestTickPipelineValidation(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	sink := &recordingSink{}
	p := NewTickPipeline(sink, metrics.Nop{}, []string{"BTCUSDT"}, WithMaxRPS(0))

	cases := []struct {
		name string
		tick models.PriceTick
		ok   bool
	}{
		{"valid", models.PriceTick{Symbol: "BTCUSDT", Price: 10, ObservedAt: now}, true},
		{"unknown symbol", models.PriceTick{Symbol: "DOGEUSDT", Price: 10, ObservedAt: now}, false},
		{"empty symbol", models.PriceTick{Price: 10, ObservedAt: now}, false},
		{"zero price", models.PriceTick{Symbol: "BTCUSDT", ObservedAt: now}, false},
		{"missing time", models.PriceTick{Symbol: "BTCUSDT", Price: 10}, false},
	}
	for _, tc := range cases {
		err := p.Process(context.Background(), tc.tick)
		if tc.ok && err != nil {
			t.Fatalf("%s: unexpected err %v", tc.name, err)
		}
		if !tc.ok && !errors.Is(err, ErrInvalidTick) {
			t.Fatalf("%s: want ErrInvalidTick, got %v", tc.name, err)
		}
	}
	if len(sink.ticks) != 1 {
		t.Fatalf("sink got %d ticks, want 1", len(sink.ticks))
	}
}

func TestTickPipelineThrottlesPerSymbol(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	clock := func() time.Time { return now }
	sink := &recordingSink{}
	p := NewTickPipeline(sink, metrics.Nop{}, []string{"BTCUSDT", "ETHUSDT"}, WithMaxRPS(2), WithPipelineClock(clock))

	tick := func(sym string) models.PriceTick { return models.PriceTick{Symbol: sym, Price: 1, ObservedAt: now} }
	for i := 0; i < 2; i++ {
		if err := p.Process(context.Background(), tick("BTCUSDT")); err != nil {
			t.Fatalf("tick %d: %v", i, err)
		}
	}
	if err := p.Process(context.Background(), tick("BTCUSDT")); !errors.Is(err, ErrThrottled) {
		t.Fatalf("want ErrThrottled, got %v", err)
	}
	if err := p.Process(context.Background(), tick("ETHUSDT")); err != nil {
		t.Fatalf("other symbol throttled: %v", err)
	}
	now = now.Add(time.Second)
	if err := p.Process(context.Background(), tick("BTCUSDT")); err != nil {
		t.Fatalf("after refill: %v", err)
	}
}

func TestTickPipelineSinkError(t *testing.T) {
	sink := &recordingSink{err: errors.New("stopped")}
	p := NewTickPipeline(sink, metrics.Nop{}, []string{"BTCUSDT"})
	err := p.Process(context.Background(), models.PriceTick{Symbol: "BTCUSDT", Price: 1, ObservedAt: time.Now()})
	if err == nil || errors.Is(err, ErrInvalidTick) || errors.Is(err, ErrThrottled) {
		t.Fatalf("want downstream error, got %v", err)
	}
}
