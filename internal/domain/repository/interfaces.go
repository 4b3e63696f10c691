package repository

import (
	"context"
	"errors"
	"time"

	"PumpRadar/internal/domain/models"
)

var (
	// ErrNotFound is returned by stores that hold no value for the key.
	ErrNotFound = errors.New("not found")
)

// QuoteSource fetches a single symbol's quote from upstream.
type QuoteSource interface {
	FetchPrice(ctx context.Context, symbol string) (float64, error)
	FetchVolume(ctx context.Context, symbol string) (float64, error)
}

// SnapshotStore is the primary persistence tier for the snapshot.
type SnapshotStore interface {
	Load(ctx context.Context, key string) (*models.Snapshot, error)
	Save(ctx context.Context, key string, s *models.Snapshot) error
}

// SnapshotReplica is the slower durable tier, written at most once per persist gap.
type SnapshotReplica interface {
	Init(ctx context.Context) error
	Load(ctx context.Context, key string) (*models.Snapshot, error)
	Save(ctx context.Context, key string, s *models.Snapshot) error
	Close() error
}

// Locker guards cross-instance work.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// SignalPublisher fans cycle signals out to downstream consumers.
type SignalPublisher interface {
	Publish(ctx context.Context, set *models.SignalSet) error
	Close() error
}

type Metrics interface {
	RecordMessageSent(backend, kind string)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
	RecordCycle(outcome string)
	RecordSignal(direction string)
	SetChannels(n int)
}
