package middleware

import (
	"context"
	"errors"
	"fmt"
	"time"

	"PumpRadar/internal/domain/models"
	domrepo "PumpRadar/internal/domain/repository"
	"PumpRadar/internal/service/ratelimit"
)

var (
	ErrInvalidTick = errors.New("invalid tick")
	ErrThrottled   = errors.New("tick throttled")
)

// TickSink receives ticks that passed the pipeline.
type TickSink interface {
	IngestTicks(ctx context.Context, ticks []models.PriceTick) (int, error)
}

// TickPipeline sits between an external tick feed and the snapshot actor.
// It validates ticks against the universe and throttles each symbol.
type TickPipeline struct {
	sink     TickSink
	metrics  domrepo.Metrics
	universe map[string]struct{}
	limiter  *ratelimit.Limiter
	maxRPS   int
	now      func() time.Time
}

type PipelineOption func(*TickPipeline)

// WithMaxRPS sets the max ticks per second per symbol. Zero disables throttling.
func WithMaxRPS(n int) PipelineOption {
	return func(p *TickPipeline) { p.maxRPS = n }
}

// WithPipelineClock overrides the clock used by the throttle.
func WithPipelineClock(now func() time.Time) PipelineOption {
	return func(p *TickPipeline) { p.now = now }
}

func NewTickPipeline(sink TickSink, metrics domrepo.Metrics, universe []string, opts ...PipelineOption) *TickPipeline {
	p := &TickPipeline{
		sink:     sink,
		metrics:  metrics,
		universe: make(map[string]struct{}, len(universe)),
		maxRPS:   20,
		now:      time.Now,
	}
	for _, s := range universe {
		p.universe[s] = struct{}{}
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.maxRPS > 0 {
		p.limiter = ratelimit.New(float64(p.maxRPS), float64(p.maxRPS), ratelimit.WithClock(p.now))
	}
	return p
}

// Process validates, throttles and forwards one tick.
func (p *TickPipeline) Process(ctx context.Context, t models.PriceTick) error {
	start := p.now()
	if err := p.validate(t); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}
	if p.limiter != nil && !p.limiter.Allow(t.Symbol) {
		p.metrics.RecordError("pipeline_throttle")
		return ErrThrottled
	}
	if _, err := p.sink.IngestTicks(ctx, []models.PriceTick{t}); err != nil {
		p.metrics.RecordError("pipeline_sink")
		return fmt.Errorf("pipeline downstream: %w", err)
	}
	p.metrics.RecordLastPrice(t.Symbol, t.Price)
	p.metrics.RecordLatency("pipeline_process", p.now().Sub(start).Seconds())
	return nil
}

func (p *TickPipeline) validate(t models.PriceTick) error {
	if t.Symbol == "" {
		return fmt.Errorf("%w: symbol empty", ErrInvalidTick)
	}
	if _, ok := p.universe[t.Symbol]; !ok {
		return fmt.Errorf("%w: %s not tracked", ErrInvalidTick, t.Symbol)
	}
	if t.ObservedAt.IsZero() {
		return fmt.Errorf("%w: timestamp missing", ErrInvalidTick)
	}
	if t.Price <= 0 {
		return fmt.Errorf("%w: non-positive price", ErrInvalidTick)
	}
	return nil
}
