package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"PumpRadar/internal/domain/models"
	domrepo "PumpRadar/internal/domain/repository"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type memStore struct {
	mu      sync.Mutex
	data    map[string]*models.Snapshot
	saves   int
	loadErr error
	saveErr error
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string]*models.Snapshot)}
}

func (s *memStore) Init(context.Context) error { return nil }
func (s *memStore) Close() error               { return nil }

func (s *memStore) Load(_ context.Context, key string) (*models.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	snap, ok := s.data[key]
	if !ok {
		return nil, domrepo.ErrNotFound
	}
	return snap, nil
}

func (s *memStore) Save(_ context.Context, key string, snap *models.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.data[key] = snap
	s.saves++
	return nil
}

func (s *memStore) setSaveErr(err error) {
	s.mu.Lock()
	s.saveErr = err
	s.mu.Unlock()
}

func (s *memStore) saveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

var errSinkClosed = errors.New("sink closed")

type fakeSink struct {
	mu     sync.Mutex
	events []models.PushEvent
	fail   bool
	closed bool
}

func (s *fakeSink) Send(ev models.PushEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errSinkClosed
	}
	if s.fail {
		return ErrSlowConsumer
	}
	s.events = append(s.events, ev)
	return nil
}

func (s *fakeSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeSink) setFail(v bool) {
	s.mu.Lock()
	s.fail = v
	s.mu.Unlock()
}

func (s *fakeSink) received() []models.PushEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.PushEvent(nil), s.events...)
}

func (s *fakeSink) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// scriptedFetcher returns the prices set for the next cycle, optionally blocking
// until release is closed.
type scriptedFetcher struct {
	mu      sync.Mutex
	clock   *testClock
	prices  map[string]float64
	calls   int
	started chan struct{}
	release chan struct{}
}

func (f *scriptedFetcher) setPrices(p map[string]float64) {
	f.mu.Lock()
	f.prices = p
	f.mu.Unlock()
}

func (f *scriptedFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *scriptedFetcher) Fetch(ctx context.Context, symbols []string, _ bool) []models.FetchResult {
	f.mu.Lock()
	f.calls++
	prices := f.prices
	started, release := f.started, f.release
	f.mu.Unlock()

	if started != nil {
		select {
		case started <- struct{}{}:
		default:
		}
	}
	if release != nil {
		<-release
	}
	out := make([]models.FetchResult, 0, len(symbols))
	for _, sym := range symbols {
		p, ok := prices[sym]
		if !ok {
			out = append(out, models.FetchResult{Symbol: sym, Err: errors.New("upstream 503")})
			continue
		}
		out = append(out, models.FetchResult{Symbol: sym, Quote: &models.Quote{Symbol: sym, Price: p, ObservedAt: f.clock.Now()}})
	}
	return out
}
