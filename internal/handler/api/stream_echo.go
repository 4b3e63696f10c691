package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"PumpRadar/internal/domain/models"
	"PumpRadar/internal/service/ratelimit"
	"PumpRadar/internal/usecase"
	xhttp "PumpRadar/pkg/http"
	xlogger "PumpRadar/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// ChannelService registers push channels.
type ChannelService interface {
	Connect(ctx context.Context, sink usecase.Sink) (string, error)
	Disconnect(ctx context.Context, id string) error
	Ack(ctx context.Context, id string) error
	Channels(ctx context.Context) ([]usecase.ChannelInfo, error)
}

type StreamOption func(*StreamEchoHandler)

// WithSendBuffer sets the per-channel queue length.
func WithSendBuffer(n int) StreamOption {
	return func(h *StreamEchoHandler) {
		if n > 0 {
			h.sendBuffer = n
		}
	}
}

// WithWriteTimeout bounds every websocket write.
func WithWriteTimeout(d time.Duration) StreamOption {
	return func(h *StreamEchoHandler) {
		if d > 0 {
			h.writeTimeout = d
		}
	}
}

// WithConnectLimiter limits connects per remote address.
func WithConnectLimiter(l *ratelimit.Limiter) StreamOption {
	return func(h *StreamEchoHandler) { h.limiter = l }
}

// StreamEchoHandler serves push channels over websocket.
type StreamEchoHandler struct {
	logger       *xlogger.Logger
	channels     ChannelService
	upgrader     websocket.Upgrader
	limiter      *ratelimit.Limiter
	sendBuffer   int
	writeTimeout time.Duration
	connects     atomic.Uint64
}

// limiter buckets idle this long are full again and can be dropped
const limiterIdle = 10 * time.Minute

func NewStreamEchoHandler(logger *xlogger.Logger, channels ChannelService, opts ...StreamOption) *StreamEchoHandler {
	h := &StreamEchoHandler{
		logger:       logger.With("stream-api"),
		channels:     channels,
		sendBuffer:   32,
		writeTimeout: 5 * time.Second,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *StreamEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/stream", h.Stream)
	e.GET("/api/channels", h.List)
	e.GET("/api/channels/:id", h.Get)
}

// List returns every registered push channel with its health state.
func (h *StreamEchoHandler) List(c echo.Context) error {
	infos, err := h.channels.Channels(c.Request().Context())
	if err != nil {
		return xhttp.AppErrorResponse(c, mapError(err))
	}
	return xhttp.SuccessResponse(c, infos)
}

// Get returns one channel by id.
func (h *StreamEchoHandler) Get(c echo.Context) error {
	infos, err := h.channels.Channels(c.Request().Context())
	if err != nil {
		return xhttp.AppErrorResponse(c, mapError(err))
	}
	id := c.Param("id")
	for _, info := range infos {
		if info.ID == id {
			return xhttp.SuccessResponse(c, info)
		}
	}
	return xhttp.AppErrorResponse(c, xhttp.NotFoundError("channel not found"))
}

// Stream upgrades the request and keeps the channel registered until the peer
// goes away. Pongs and any client message count as heartbeat acknowledgements.
func (h *StreamEchoHandler) Stream(c echo.Context) error {
	if h.limiter != nil {
		if h.connects.Add(1)%128 == 0 {
			h.limiter.Prune(limiterIdle)
		}
		if !h.limiter.Allow(c.RealIP()) {
			return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("too many stream connects"))
		}
	}
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// the upgrader has already written the error response
		h.logger.Warn("websocket upgrade failed", xlogger.Error(err))
		return nil
	}

	sink := newWSSink(conn, h.sendBuffer, h.writeTimeout)
	go sink.writeLoop()

	ctx := c.Request().Context()
	id, err := h.channels.Connect(ctx, sink)
	if err != nil {
		h.logger.Warn("channel connect failed", xlogger.Error(err))
		_ = sink.Close()
		return nil
	}
	log := h.logger
	log.Debug("channel opened", xlogger.String("id", id), xlogger.String("remote", c.RealIP()))

	ack := func() {
		if err := h.channels.Ack(ctx, id); err != nil && !errors.Is(err, usecase.ErrNoChannel) {
			log.Debug("ack failed", xlogger.Error(err))
		}
	}
	conn.SetReadLimit(4096)
	conn.SetPongHandler(func(string) error { ack(); return nil })
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
		ack()
	}

	if err := h.channels.Disconnect(context.WithoutCancel(ctx), id); err != nil && !errors.Is(err, usecase.ErrNoChannel) {
		log.Warn("channel disconnect failed", xlogger.Error(err), xlogger.String("id", id))
	}
	log.Debug("channel closed", xlogger.String("id", id))
	return nil
}

// wsSink queues events for one connection. Send never blocks the actor.
type wsSink struct {
	conn         *websocket.Conn
	queue        chan models.PushEvent
	done         chan struct{}
	once         sync.Once
	writeTimeout time.Duration
}

func newWSSink(conn *websocket.Conn, size int, writeTimeout time.Duration) *wsSink {
	return &wsSink{
		conn:         conn,
		queue:        make(chan models.PushEvent, size),
		done:         make(chan struct{}),
		writeTimeout: writeTimeout,
	}
}

func (s *wsSink) Send(ev models.PushEvent) error {
	select {
	case <-s.done:
		return websocket.ErrCloseSent
	default:
	}
	select {
	case s.queue <- ev:
		return nil
	default:
		return usecase.ErrSlowConsumer
	}
}

func (s *wsSink) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}

// writeLoop owns every write on the connection. Keepalives also go out as a
// websocket ping so plain clients acknowledge with their automatic pong.
func (s *wsSink) writeLoop() {
	defer s.conn.Close()
	for {
		select {
		case <-s.done:
			deadline := time.Now().Add(s.writeTimeout)
			_ = s.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
			return
		case ev := <-s.queue:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
			if err := s.conn.WriteJSON(ev); err != nil {
				s.Close()
				return
			}
			if ev.Type == models.EventKeepalive {
				if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.writeTimeout)); err != nil {
					s.Close()
					return
				}
			}
		}
	}
}
