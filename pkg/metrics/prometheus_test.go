package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorderCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewWith(promauto.With(reg))

	r.RecordCycle("ok")
	r.RecordCycle("ok")
	r.RecordCycle("empty")
	r.RecordSignal("PUMP")
	r.SetChannels(3)

	if got := testutil.ToFloat64(r.cycles.WithLabelValues("ok")); got != 2 {
		t.Fatalf("ok cycles = %v", got)
	}
	if got := testutil.ToFloat64(r.cycles.WithLabelValues("empty")); got != 1 {
		t.Fatalf("empty cycles = %v", got)
	}
	if got := testutil.ToFloat64(r.channels); got != 3 {
		t.Fatalf("channels = %v", got)
	}
}
