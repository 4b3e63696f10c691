package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"PumpRadar/internal/domain/models"
	domrepo "PumpRadar/internal/domain/repository"
	mid "PumpRadar/internal/middleware"
	pkgkafka "PumpRadar/pkg/kafka"
	"PumpRadar/pkg/util"
)

// TickProcessor is the pipeline the handler feeds.
type TickProcessor interface {
	Process(ctx context.Context, t models.PriceTick) error
}

// KafkaTicksHandler feeds externally published price ticks into the candles.
type KafkaTicksHandler struct {
	topic   string
	pipe    TickProcessor
	metrics domrepo.Metrics
	now     func() time.Time
}

func NewKafkaTicksHandler(topic string, pipe TickProcessor, metrics domrepo.Metrics) *KafkaTicksHandler {
	return &KafkaTicksHandler{topic: topic, pipe: pipe, metrics: metrics, now: time.Now}
}

func (h *KafkaTicksHandler) Topic() string { return h.topic }

// incoming message schema: {symbol, price, t} with t an epoch number (s/ms/us/ns)
// or an RFC3339 string
func (h *KafkaTicksHandler) Handle(ctx context.Context, b []byte) error {
	var m struct {
		Symbol string          `json:"symbol"`
		Price  float64         `json:"price"`
		T      json.RawMessage `json:"t"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		// a malformed payload never becomes valid on retry
		return nil
	}
	tick := models.PriceTick{Symbol: m.Symbol, Price: m.Price}
	if ts, ok := util.ParseTime(rawTime(m.T)); ok {
		tick.ObservedAt = ts.UTC()
		h.metrics.RecordLatency("ingest_e2e_seconds", h.now().Sub(tick.ObservedAt).Seconds())
	}

	err := h.pipe.Process(ctx, tick)
	switch {
	case err == nil:
		h.metrics.RecordMessageSent("kafka", "tick")
		return nil
	case errors.Is(err, mid.ErrInvalidTick), errors.Is(err, mid.ErrThrottled):
		return nil
	default:
		h.metrics.RecordError("consumer_ingest")
		return err
	}
}

// rawTime unquotes a JSON string, or returns a number literal as is.
func rawTime(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

var _ pkgkafka.MessageHandler = (*KafkaTicksHandler)(nil)
