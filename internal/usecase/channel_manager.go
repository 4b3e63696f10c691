package usecase

import (
	"context"
	"sync"
	"time"

	applogger "PumpRadar/pkg/logger"
)

// ChannelManager owns the heartbeat schedule for push channels. Registration
// itself goes through the snapshot actor so hello ordering holds.
type ChannelManager struct {
	actor    *SnapshotActor
	log      *applogger.Logger
	interval time.Duration
	missed   int

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewChannelManager(actor *SnapshotActor, l *applogger.Logger, interval time.Duration, missed int) *ChannelManager {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	if missed <= 0 {
		missed = 2
	}
	return &ChannelManager{
		actor:    actor,
		log:      l.With("channel-manager"),
		interval: interval,
		missed:   missed,
		stopChan: make(chan struct{}),
	}
}

// MaxSilence is how long a channel may go without acknowledging before it is pruned.
func (m *ChannelManager) MaxSilence() time.Duration {
	return time.Duration(m.missed) * m.interval
}

func (m *ChannelManager) Connect(ctx context.Context, sink Sink) (string, error) {
	return m.actor.Connect(ctx, sink)
}

func (m *ChannelManager) Disconnect(ctx context.Context, id string) error {
	return m.actor.Disconnect(ctx, id)
}

func (m *ChannelManager) Ack(ctx context.Context, id string) error {
	return m.actor.Ack(ctx, id)
}

func (m *ChannelManager) Channels(ctx context.Context) ([]ChannelInfo, error) {
	return m.actor.Channels(ctx)
}

func (m *ChannelManager) Start(ctx context.Context) error {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-m.stopChan:
				return
			case <-ticker.C:
				if _, err := m.actor.Heartbeat(ctx, m.MaxSilence()); err != nil {
					m.log.Warn("heartbeat failed", applogger.Error(err))
				}
			}
		}
	}()
	return nil
}

func (m *ChannelManager) Stop(ctx context.Context) error {
	m.stopOnce.Do(func() { close(m.stopChan) })
	done := make(chan struct{})
	go func() { m.wg.Wait(); close(done) }()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
