package repository

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"PumpRadar/internal/domain/models"
	pkgkafka "PumpRadar/pkg/kafka"
)

type captureWriter struct {
	topic string
	msgs  []pkgkafka.Message
	err   error
}

func (w *captureWriter) PublishBatch(_ context.Context, topic string, messages []pkgkafka.Message) error {
	w.topic = topic
	w.msgs = append(w.msgs, messages...)
	return w.err
}

func (w *captureWriter) Close() error { return nil }

func TestKafkaSignalPublisherKeysBySymbol(t *testing.T) {
	w := &captureWriter{}
	p := &KafkaSignalPublisher{w: w, topic: "pumpradar.signals"}
	set := &models.SignalSet{
		Cycle:     7,
		EmittedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Signals: []models.Signal{
			{Symbol: "AAAUSDT", Direction: models.DirectionPump, Score: 0.9},
			{Symbol: "BBBUSDT", Direction: models.DirectionDump, Score: 0.8},
		},
	}
	if err := p.Publish(context.Background(), set); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if w.topic != "pumpradar.signals" || len(w.msgs) != 2 {
		t.Fatalf("topic=%s msgs=%d", w.topic, len(w.msgs))
	}
	if string(w.msgs[1].Key) != "BBBUSDT" {
		t.Fatalf("key = %s", w.msgs[1].Key)
	}
	b, _ := json.Marshal(w.msgs[0].Value)
	var decoded map[string]interface{}
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["cycle"].(float64) != 7 || decoded["symbol"] != "AAAUSDT" {
		t.Fatalf("payload: %s", b)
	}
}

func TestKafkaSignalPublisherSkipsEmpty(t *testing.T) {
	w := &captureWriter{err: errors.New("unreachable")}
	p := &KafkaSignalPublisher{w: w, topic: "t"}
	if err := p.Publish(context.Background(), &models.SignalSet{}); err != nil {
		t.Fatalf("empty set: %v", err)
	}
	if err := p.Publish(context.Background(), &models.SignalSet{Signals: []models.Signal{{Symbol: "A"}}}); err == nil {
		t.Fatalf("want writer error")
	}
}
