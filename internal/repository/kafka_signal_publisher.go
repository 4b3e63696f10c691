package repository

import (
	"context"
	"fmt"

	"PumpRadar/internal/domain/models"
	domrepo "PumpRadar/internal/domain/repository"
	pkgkafka "PumpRadar/pkg/kafka"
)

// batchWriter is the subset of the Kafka producer the publisher needs.
type batchWriter interface {
	PublishBatch(ctx context.Context, topic string, messages []pkgkafka.Message) error
	Close() error
}

// signalMessage is the wire form of one published signal.
type signalMessage struct {
	Cycle uint64 `json:"cycle"`
	models.Signal
}

// KafkaSignalPublisher writes one message per signal keyed by symbol, so a
// symbol's signals stay ordered within a partition.
type KafkaSignalPublisher struct {
	w     batchWriter
	topic string
}

func NewKafkaSignalPublisher(p *pkgkafka.Producer, topic string) *KafkaSignalPublisher {
	return &KafkaSignalPublisher{w: p, topic: topic}
}

func (p *KafkaSignalPublisher) Publish(ctx context.Context, set *models.SignalSet) error {
	if set == nil || len(set.Signals) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, 0, len(set.Signals))
	for _, s := range set.Signals {
		msgs = append(msgs, pkgkafka.Message{
			Key:   []byte(s.Symbol),
			Value: signalMessage{Cycle: set.Cycle, Signal: s},
		})
	}
	if err := p.w.PublishBatch(ctx, p.topic, msgs); err != nil {
		return fmt.Errorf("publish %d signals: %w", len(msgs), err)
	}
	return nil
}

func (p *KafkaSignalPublisher) Close() error { return p.w.Close() }

var _ domrepo.SignalPublisher = (*KafkaSignalPublisher)(nil)
