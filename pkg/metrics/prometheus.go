package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	messagesSent *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	lastPrice    *prometheus.GaugeVec
	latency      *prometheus.HistogramVec
	cycles       *prometheus.CounterVec
	signals      *prometheus.CounterVec
	channels     prometheus.Gauge
}

// New creates a Prometheus metrics recorder registered on the default registry.
func New() *Recorder {
	return NewWith(promauto.With(prometheus.DefaultRegisterer))
}

// NewWith creates a recorder on the given factory. Tests pass a fresh registry.
func NewWith(f promauto.Factory) *Recorder {
	return &Recorder{
		messagesSent: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pumpradar_messages_sent_total",
				Help: "Messages sent to a backend or push channel",
			},
			[]string{"backend", "kind"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pumpradar_errors_total",
				Help: "Errors by kind",
			},
			[]string{"type"},
		),
		lastPrice: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pumpradar_last_price",
				Help: "Last observed price for a symbol",
			},
			[]string{"symbol"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pumpradar_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		cycles: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pumpradar_cycles_total",
				Help: "Ingest cycles by outcome",
			},
			[]string{"outcome"},
		),
		signals: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pumpradar_signals_total",
				Help: "Emitted momentum signals by direction",
			},
			[]string{"direction"},
		),
		channels: f.NewGauge(prometheus.GaugeOpts{
			Name: "pumpradar_push_channels",
			Help: "Registered push channels",
		}),
	}
}

func (r *Recorder) RecordMessageSent(backend, kind string) {
	r.messagesSent.WithLabelValues(backend, kind).Inc()
}

func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

func (r *Recorder) RecordCycle(outcome string) {
	r.cycles.WithLabelValues(outcome).Inc()
}

func (r *Recorder) RecordSignal(direction string) {
	r.signals.WithLabelValues(direction).Inc()
}

func (r *Recorder) SetChannels(n int) {
	r.channels.Set(float64(n))
}

// Nop discards every metric.
type Nop struct{}

func (Nop) RecordMessageSent(string, string) {}
func (Nop) RecordError(string)               {}
func (Nop) RecordLastPrice(string, float64)  {}
func (Nop) RecordLatency(string, float64)    {}
func (Nop) RecordCycle(string)               {}
func (Nop) RecordSignal(string)              {}
func (Nop) SetChannels(int)                  {}
