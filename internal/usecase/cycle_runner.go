package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	domrepo "PumpRadar/internal/domain/repository"
	applogger "PumpRadar/pkg/logger"
)

// Refresher is the part of the snapshot actor the runner drives.
type Refresher interface {
	Refresh(ctx context.Context) (RefreshResult, error)
}

// CycleRunner triggers an ingest cycle on a fixed interval and fans the
// resulting signals out to the publisher.
type CycleRunner struct {
	actor     Refresher
	publisher domrepo.SignalPublisher
	metrics   domrepo.Metrics
	log       *applogger.Logger
	interval  time.Duration

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewCycleRunner creates a runner; publisher may be nil.
func NewCycleRunner(actor Refresher, publisher domrepo.SignalPublisher, metrics domrepo.Metrics, l *applogger.Logger, interval time.Duration) *CycleRunner {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &CycleRunner{
		actor:     actor,
		publisher: publisher,
		metrics:   metrics,
		log:       l.With("cycle-runner"),
		interval:  interval,
		stopChan:  make(chan struct{}),
	}
}

// Start runs one cycle immediately, then one per interval.
func (r *CycleRunner) Start(ctx context.Context) error {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		r.RunOnce(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-r.stopChan:
				return
			case <-ticker.C:
				r.RunOnce(ctx)
			}
		}
	}()
	r.log.Info("cycle runner started", applogger.Duration("interval", r.interval))
	return nil
}

// RunOnce runs a single cycle and publishes its signals.
func (r *CycleRunner) RunOnce(ctx context.Context) {
	res, err := r.actor.Refresh(ctx)
	switch {
	case errors.Is(err, ErrEmptyCycle):
		r.log.Warn("cycle produced no quotes", applogger.Int("failed", res.Failed))
		return
	case err != nil:
		r.log.Error("cycle failed", applogger.Error(err))
		return
	case !res.Refreshed:
		return
	}
	if r.publisher == nil || res.Signals == nil || len(res.Signals.Signals) == 0 {
		return
	}
	if err := r.publisher.Publish(ctx, res.Signals); err != nil {
		r.metrics.RecordError("signal_publish")
		r.log.Error("publish signals failed", applogger.Error(err), applogger.Int64("cycle", int64(res.Signals.Cycle)))
		return
	}
	r.metrics.RecordMessageSent("kafka", "signals")
}

// Stop waits for the in-progress cycle, if any, to finish.
func (r *CycleRunner) Stop(ctx context.Context) error {
	r.stopOnce.Do(func() { close(r.stopChan) })
	done := make(chan struct{})
	go func() { r.wg.Wait(); close(done) }()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
