package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"PumpRadar/internal/domain/models"
	"PumpRadar/internal/service/ratelimit"
	"PumpRadar/internal/usecase"
	xhttp "PumpRadar/pkg/http"
	xlogger "PumpRadar/pkg/logger"

	"github.com/gorilla/websocket"
)

type fakeChannels struct {
	mu           sync.Mutex
	acks         int
	disconnected chan string
	infos        []usecase.ChannelInfo
	listErr      error
}

func (f *fakeChannels) Connect(_ context.Context, sink usecase.Sink) (string, error) {
	if err := sink.Send(models.PushEvent{Type: models.EventHello, Snapshot: models.EmptySnapshot()}); err != nil {
		return "", err
	}
	return "ch-1", nil
}

func (f *fakeChannels) Disconnect(_ context.Context, id string) error {
	f.disconnected <- id
	return nil
}

func (f *fakeChannels) Ack(context.Context, string) error {
	f.mu.Lock()
	f.acks++
	f.mu.Unlock()
	return nil
}

func (f *fakeChannels) Channels(context.Context) ([]usecase.ChannelInfo, error) {
	return f.infos, f.listErr
}

func (f *fakeChannels) ackCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.acks
}

func startStream(t *testing.T, ch ChannelService, opts ...StreamOption) string {
	t.Helper()
	s := xhttp.NewServer(NewStreamEchoHandler(xlogger.NewNop(), ch, opts...), nil, xhttp.WithMetricsPath(""))
	ts := httptest.NewServer(s.Echo())
	t.Cleanup(ts.Close)
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/stream"
}

func TestStreamHelloAckDisconnect(t *testing.T) {
	ch := &fakeChannels{disconnected: make(chan string, 1)}
	url := startStream(t, ch)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	var ev models.PushEvent
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read hello: %v", err)
	}
	if ev.Type != models.EventHello || ev.Snapshot == nil {
		t.Fatalf("first event %+v", ev)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte("ack")); err != nil {
		t.Fatalf("write: %v", err)
	}
	_ = conn.Close()

	select {
	case id := <-ch.disconnected:
		if id != "ch-1" {
			t.Fatalf("disconnected %s", id)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("channel not disconnected")
	}
	if ch.ackCount() != 1 {
		t.Fatalf("acks = %d, want 1", ch.ackCount())
	}
}

func TestStreamConnectRateLimited(t *testing.T) {
	ch := &fakeChannels{disconnected: make(chan string, 4)}
	url := startStream(t, ch, WithConnectLimiter(ratelimit.New(1, 0.001)))

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("first dial: %v", err)
	}
	defer conn.Close()

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatalf("second dial should be rejected")
	}
	if resp == nil || resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("want 429, got %+v", resp)
	}
}

func TestWSSinkQueueFull(t *testing.T) {
	s := newWSSink(nil, 1, time.Second)
	if err := s.Send(models.PushEvent{Type: models.EventState}); err != nil {
		t.Fatalf("first send: %v", err)
	}
	if err := s.Send(models.PushEvent{Type: models.EventState}); err != usecase.ErrSlowConsumer {
		t.Fatalf("want ErrSlowConsumer, got %v", err)
	}
	_ = s.Close()
	if err := s.Send(models.PushEvent{}); err == nil {
		t.Fatalf("send after close should fail")
	}
}

func TestChannelsListAndGet(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ch := &fakeChannels{infos: []usecase.ChannelInfo{
		{ID: "a", State: usecase.ChannelOpen, ConnectedAt: at, LastHeartbeatAt: at},
		{ID: "b", State: usecase.ChannelOpen, ConnectedAt: at, LastHeartbeatAt: at.Add(time.Minute)},
	}}
	s := xhttp.NewServer(NewStreamEchoHandler(xlogger.NewNop(), ch), nil, xhttp.WithMetricsPath(""))

	rec := do(s, http.MethodGet, "/api/channels", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d body=%s", rec.Code, rec.Body.String())
	}
	var list struct {
		Data []usecase.ChannelInfo `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list.Data) != 2 || list.Data[1].ID != "b" {
		t.Fatalf("list = %+v", list.Data)
	}

	rec = do(s, http.MethodGet, "/api/channels/b", "")
	var one struct {
		Data usecase.ChannelInfo `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &one); err != nil {
		t.Fatalf("decode one: %v", err)
	}
	if rec.Code != http.StatusOK || !one.Data.LastHeartbeatAt.Equal(at.Add(time.Minute)) {
		t.Fatalf("get b: status=%d data=%+v", rec.Code, one.Data)
	}

	rec = do(s, http.MethodGet, "/api/channels/missing", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing status = %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "ERR_NOT_FOUND" {
		t.Fatalf("code = %s", code)
	}
}

func TestChannelsListStopped(t *testing.T) {
	ch := &fakeChannels{listErr: usecase.ErrActorStopped}
	s := xhttp.NewServer(NewStreamEchoHandler(xlogger.NewNop(), ch), nil, xhttp.WithMetricsPath(""))

	rec := do(s, http.MethodGet, "/api/channels", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "ERR_UNAVAILABLE" {
		t.Fatalf("code = %s", code)
	}
}
