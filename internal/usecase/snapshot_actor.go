package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"PumpRadar/internal/domain/models"
	domrepo "PumpRadar/internal/domain/repository"
	"PumpRadar/internal/service/upstream"
	applogger "PumpRadar/pkg/logger"

	"github.com/google/uuid"
)

type ActorState string

const (
	StateCold     ActorState = "cold"
	StateWarm     ActorState = "warm"
	StateUpdating ActorState = "updating"
)

// Fetcher is the ingest side of a cycle.
type Fetcher interface {
	Fetch(ctx context.Context, symbols []string, withVolume bool) []models.FetchResult
}

type ActorConfig struct {
	Key            string
	Symbols        []string
	CycleTimeout   time.Duration
	InteractiveGap time.Duration
	PersistGap     time.Duration
	VolumeEvery    time.Duration
	StoreTimeout   time.Duration
	QueueSize      int
}

// RefreshResult describes the cycle a Refresh call ran or joined.
type RefreshResult struct {
	Snapshot  *models.Snapshot
	Signals   *models.SignalSet
	Refreshed bool
	Fetched   int
	Failed    int
	Volume    bool
}

type refreshCall struct {
	done   chan struct{}
	result RefreshResult
	err    error
}

// SnapshotActor is the single writer of the snapshot. Every request runs on the
// actor goroutine one at a time, so the fields below the queue need no locks.
type SnapshotActor struct {
	cfg      ActorConfig
	store    domrepo.SnapshotStore
	replica  domrepo.SnapshotReplica
	locker   domrepo.Locker
	fetcher  Fetcher
	engine   *MarketEngine
	metrics  domrepo.Metrics
	log      *applogger.Logger
	now      func() time.Time
	newID    func() string
	stateVal atomic.Value

	reqs     chan func()
	stopCh   chan struct{}
	doneCh   chan struct{}
	startOne sync.Once
	stopOnce sync.Once
	bg       sync.WaitGroup

	// actor-owned
	snapshot      *models.Snapshot
	seq           uint64
	cycle         uint64
	signals       *models.SignalSet
	channels      *channelRegistry
	inflight      *refreshCall
	lastRefresh   time.Time
	lastVolumeAt  time.Time
	lastReplicaAt time.Time
}

type ActorOption func(*SnapshotActor)

// WithReplica enables the long-gap replica tier, guarded by locker when non-nil.
func WithReplica(r domrepo.SnapshotReplica, locker domrepo.Locker) ActorOption {
	return func(a *SnapshotActor) {
		a.replica = r
		a.locker = locker
	}
}

// WithActorClock overrides the actor clock.
func WithActorClock(now func() time.Time) ActorOption {
	return func(a *SnapshotActor) { a.now = now }
}

// WithChannelIDs overrides channel id generation.
func WithChannelIDs(fn func() string) ActorOption {
	return func(a *SnapshotActor) { a.newID = fn }
}

func NewSnapshotActor(cfg ActorConfig, store domrepo.SnapshotStore, fetcher Fetcher, engine *MarketEngine,
	m domrepo.Metrics, l *applogger.Logger, opts ...ActorOption) *SnapshotActor {
	if cfg.Key == "" {
		cfg.Key = "global"
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = 5 * time.Second
	}
	if cfg.CycleTimeout <= 0 {
		cfg.CycleTimeout = 8 * time.Second
	}
	a := &SnapshotActor{
		cfg:      cfg,
		store:    store,
		fetcher:  fetcher,
		engine:   engine,
		metrics:  m,
		log:      l.With("snapshot-actor"),
		now:      time.Now,
		newID:    uuid.NewString,
		reqs:     make(chan func(), cfg.QueueSize),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
		channels: newChannelRegistry(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.stateVal.Store(StateCold)
	return a
}

// Start launches the actor goroutine and attempts the cold load.
func (a *SnapshotActor) Start(ctx context.Context) error {
	a.startOne.Do(func() { go a.loop() })
	return a.do(ctx, func() {
		if err := a.ensureLoaded(ctx); err != nil {
			a.log.Warn("cold load failed, serving defaults", applogger.Error(err))
		}
	})
}

// Stop closes every channel, stops the actor and waits for replica writes.
func (a *SnapshotActor) Stop(ctx context.Context) error {
	var err error
	a.stopOnce.Do(func() {
		_ = a.do(ctx, func() { a.channels.closeAll(); a.metrics.SetChannels(0) })
		close(a.stopCh)
		select {
		case <-a.doneCh:
		case <-ctx.Done():
			err = ctx.Err()
			return
		}
		done := make(chan struct{})
		go func() { a.bg.Wait(); close(done) }()
		select {
		case <-done:
		case <-ctx.Done():
			err = ctx.Err()
		}
	})
	return err
}

// State reports the lifecycle state.
func (a *SnapshotActor) State() ActorState {
	return a.stateVal.Load().(ActorState)
}

func (a *SnapshotActor) setState(s ActorState) { a.stateVal.Store(s) }

func (a *SnapshotActor) loop() {
	defer close(a.doneCh)
	for {
		select {
		case fn := <-a.reqs:
			fn()
		case <-a.stopCh:
			return
		}
	}
}

// do runs fn on the actor goroutine and waits for it. Once queued, fn always runs
// to completion; ctx only bounds the wait for a queue slot.
func (a *SnapshotActor) do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	select {
	case a.reqs <- func() { defer close(done); fn() }:
	case <-a.stopCh:
		return ErrActorStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-a.doneCh:
		select {
		case <-done:
			return nil
		default:
			return ErrActorStopped
		}
	}
}

// Read returns the current snapshot. A snapshot that cannot be loaded degrades to
// the empty default instead of failing.
func (a *SnapshotActor) Read(ctx context.Context) (*models.Snapshot, error) {
	var snap *models.Snapshot
	err := a.do(ctx, func() {
		if err := a.ensureLoaded(ctx); err != nil {
			a.log.Warn("snapshot load failed, serving default", applogger.Error(err))
		}
		snap = a.current()
	})
	return snap, err
}

// Write merges the present fields of patch, persists the result and broadcasts it.
// On a persistence failure the previous snapshot stays authoritative.
func (a *SnapshotActor) Write(ctx context.Context, patch models.SnapshotPatch) (*models.Snapshot, error) {
	if patch.IsEmpty() {
		return nil, ErrEmptyPatch
	}
	var (
		snap *models.Snapshot
		werr error
	)
	err := a.do(ctx, func() { snap, werr = a.write(ctx, patch) })
	if err != nil {
		return nil, err
	}
	return snap, werr
}

// Refresh runs an ingest cycle unless one ran within the interactive gap. Callers
// arriving while a cycle is in flight wait for that cycle instead of starting another.
func (a *SnapshotActor) Refresh(ctx context.Context) (RefreshResult, error) {
	var (
		call *refreshCall
		snap *models.Snapshot
	)
	err := a.do(ctx, func() {
		if a.inflight != nil {
			call = a.inflight
			return
		}
		now := a.now()
		if !a.lastRefresh.IsZero() && now.Sub(a.lastRefresh) < a.cfg.InteractiveGap {
			if err := a.ensureLoaded(ctx); err != nil {
				a.log.Debug("snapshot load failed", applogger.Error(err))
			}
			snap = a.current()
			return
		}
		a.lastRefresh = now
		withVolume := a.cfg.VolumeEvery <= 0 || a.lastVolumeAt.IsZero() || now.Sub(a.lastVolumeAt) >= a.cfg.VolumeEvery
		if withVolume {
			a.lastVolumeAt = now
		}
		call = &refreshCall{done: make(chan struct{})}
		a.inflight = call
		a.bg.Add(1)
		go a.runCycle(ctx, call, withVolume)
	})
	if err != nil {
		return RefreshResult{}, err
	}
	if call == nil {
		return RefreshResult{Snapshot: snap, Signals: a.lastSignals(ctx)}, nil
	}
	select {
	case <-call.done:
		return call.result, call.err
	case <-ctx.Done():
		return RefreshResult{}, ctx.Err()
	}
}

func (a *SnapshotActor) lastSignals(ctx context.Context) *models.SignalSet {
	set, _ := a.Signals(ctx, 0)
	return set
}

// runCycle fetches off the actor goroutine and applies the result in a turn.
func (a *SnapshotActor) runCycle(ctx context.Context, call *refreshCall, withVolume bool) {
	defer a.bg.Done()
	defer close(call.done)
	start := a.now()

	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.CycleTimeout)
	results := a.fetcher.Fetch(fctx, a.cfg.Symbols, withVolume)
	cancel()

	err := a.do(context.WithoutCancel(ctx), func() {
		a.inflight = nil
		a.applyCycle(ctx, call, results, withVolume)
	})
	if err != nil {
		call.err = err
	}
	a.metrics.RecordLatency("cycle", a.now().Sub(start).Seconds())
}

func (a *SnapshotActor) applyCycle(ctx context.Context, call *refreshCall, results []models.FetchResult, withVolume bool) {
	quotes := upstream.Quotes(results)
	call.result = RefreshResult{
		Refreshed: true,
		Fetched:   len(quotes),
		Failed:    len(results) - len(quotes),
		Volume:    withVolume,
	}
	if len(quotes) == 0 {
		a.metrics.RecordCycle("empty")
		call.result.Snapshot = a.current()
		call.err = ErrEmptyCycle
		return
	}

	at := a.now()
	tables, signals := a.engine.ApplyQuotes(quotes, at)
	a.cycle++
	a.signals = &models.SignalSet{Cycle: a.cycle, EmittedAt: at, Signals: signals}
	for _, s := range signals {
		a.metrics.RecordSignal(string(s.Direction))
	}
	call.result.Signals = a.signals

	snap, err := a.write(ctx, models.PatchFromTables(tables))
	if err != nil {
		a.metrics.RecordCycle("persist_error")
		call.result.Snapshot = a.current()
		call.err = err
		return
	}
	a.metrics.RecordCycle("ok")
	call.result.Snapshot = snap
	a.log.Debug("cycle applied",
		applogger.Int("fetched", len(quotes)),
		applogger.Int("failed", call.result.Failed),
		applogger.Int("signals", len(signals)),
		applogger.Bool("volume", withVolume),
	)
}

// IngestTicks folds externally sourced ticks into the candles between cycles.
func (a *SnapshotActor) IngestTicks(ctx context.Context, ticks []models.PriceTick) (int, error) {
	n := 0
	err := a.do(ctx, func() {
		for _, t := range ticks {
			if a.engine.ApplyTick(t) {
				n++
			}
		}
	})
	return n, err
}

// VolumeRanking returns the volume ring ranking, n <= 0 for all symbols.
func (a *SnapshotActor) VolumeRanking(ctx context.Context, n int) ([]models.VolumeChange, error) {
	var out []models.VolumeChange
	err := a.do(ctx, func() { out = a.engine.VolumeRanking(n) })
	return out, err
}

// Signals returns the latest cycle's signals, at most n when n > 0.
func (a *SnapshotActor) Signals(ctx context.Context, n int) (*models.SignalSet, error) {
	var out *models.SignalSet
	err := a.do(ctx, func() {
		if a.signals == nil {
			out = &models.SignalSet{Signals: []models.Signal{}}
			return
		}
		set := *a.signals
		set.Signals = append([]models.Signal{}, a.signals.Signals...)
		if n > 0 && len(set.Signals) > n {
			set.Signals = set.Signals[:n]
		}
		out = &set
	})
	return out, err
}

// Connect registers sink and sends it the hello event in the same turn, so no
// broadcast can reach the channel before its hello.
func (a *SnapshotActor) Connect(ctx context.Context, sink Sink) (string, error) {
	var (
		id   string
		serr error
	)
	err := a.do(ctx, func() {
		if err := a.ensureLoaded(ctx); err != nil {
			a.log.Warn("snapshot load failed, greeting with default", applogger.Error(err))
		}
		snap := a.current()
		id = a.newID()
		a.channels.add(id, sink, a.now())
		serr = sink.Send(models.PushEvent{Type: models.EventHello, Seq: a.seq, Snapshot: snap, UpdatedAt: snap.UpdatedAt})
		if serr != nil {
			a.channels.remove(id)
		}
		a.metrics.SetChannels(a.channels.len())
	})
	if err != nil {
		return "", err
	}
	if serr != nil {
		return "", fmt.Errorf("send hello: %w", serr)
	}
	return id, nil
}

// Disconnect releases the channel slot and closes its sink.
func (a *SnapshotActor) Disconnect(ctx context.Context, id string) error {
	var ok bool
	err := a.do(ctx, func() {
		ok = a.channels.remove(id)
		a.metrics.SetChannels(a.channels.len())
	})
	if err != nil {
		return err
	}
	if !ok {
		return ErrNoChannel
	}
	return nil
}

// Ack records a heartbeat acknowledgement from the channel.
func (a *SnapshotActor) Ack(ctx context.Context, id string) error {
	var ok bool
	err := a.do(ctx, func() { ok = a.channels.ack(id, a.now()) })
	if err != nil {
		return err
	}
	if !ok {
		return ErrNoChannel
	}
	return nil
}

// Heartbeat prunes channels silent for longer than maxSilence and sends a
// keepalive to the rest. It returns the number of pruned channels.
func (a *SnapshotActor) Heartbeat(ctx context.Context, maxSilence time.Duration) (int, error) {
	pruned := 0
	err := a.do(ctx, func() {
		for _, id := range a.channels.stale(a.now().Add(-maxSilence)) {
			a.channels.remove(id)
			pruned++
		}
		_, failed := a.channels.broadcast(models.PushEvent{Type: models.EventKeepalive})
		pruned += len(failed)
		for i := 0; i < pruned; i++ {
			a.metrics.RecordError("channel_pruned")
		}
		a.metrics.SetChannels(a.channels.len())
	})
	if pruned > 0 {
		a.log.Info("channels pruned", applogger.Int("count", pruned))
	}
	return pruned, err
}

// Channels lists registered channels.
func (a *SnapshotActor) Channels(ctx context.Context) ([]ChannelInfo, error) {
	var out []ChannelInfo
	err := a.do(ctx, func() { out = a.channels.info() })
	return out, err
}

// ensureLoaded loads the snapshot on the first successful call: primary store,
// then replica, then the empty default. Must run on the actor goroutine.
func (a *SnapshotActor) ensureLoaded(ctx context.Context) error {
	if a.snapshot != nil {
		return nil
	}
	lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.StoreTimeout)
	defer cancel()

	snap, err := a.store.Load(lctx, a.cfg.Key)
	switch {
	case err == nil:
	case errors.Is(err, domrepo.ErrNotFound):
		snap, err = a.loadReplica(lctx)
		if err != nil {
			return err
		}
	default:
		a.metrics.RecordError("snapshot_load")
		return fmt.Errorf("load snapshot %s: %w", a.cfg.Key, err)
	}
	if snap == nil {
		snap = models.EmptySnapshot()
	}
	a.snapshot = snap
	a.setState(StateWarm)
	return nil
}

func (a *SnapshotActor) loadReplica(ctx context.Context) (*models.Snapshot, error) {
	if a.replica == nil {
		return nil, nil
	}
	snap, err := a.replica.Load(ctx, a.cfg.Key)
	if err != nil {
		if errors.Is(err, domrepo.ErrNotFound) {
			return nil, nil
		}
		a.metrics.RecordError("replica_load")
		return nil, fmt.Errorf("load replica %s: %w", a.cfg.Key, err)
	}
	a.log.Info("snapshot restored from replica", applogger.Time("updated_at", snap.UpdatedAt))
	return snap, nil
}

func (a *SnapshotActor) current() *models.Snapshot {
	if a.snapshot == nil {
		return models.EmptySnapshot()
	}
	return a.snapshot
}

// write is the merge-persist-broadcast path. Must run on the actor goroutine.
func (a *SnapshotActor) write(ctx context.Context, patch models.SnapshotPatch) (*models.Snapshot, error) {
	if err := a.ensureLoaded(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersist, err)
	}

	a.setState(StateUpdating)
	defer a.setState(StateWarm)

	merged := a.snapshot.Merge(patch, a.now().UTC())
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.StoreTimeout)
	err := a.store.Save(sctx, a.cfg.Key, merged)
	cancel()
	if err != nil {
		a.metrics.RecordError("snapshot_persist")
		a.log.Error("snapshot persist failed", applogger.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrPersist, err)
	}

	a.metrics.RecordMessageSent("store", "snapshot")
	a.snapshot = merged
	a.seq++
	sent, failed := a.channels.broadcast(models.PushEvent{
		Type:      models.EventState,
		Seq:       a.seq,
		Snapshot:  merged,
		UpdatedAt: merged.UpdatedAt,
	})
	a.metrics.RecordMessageSent("push", string(models.EventState))
	if len(failed) > 0 {
		a.metrics.SetChannels(a.channels.len())
		a.log.Info("dropped failing channels", applogger.Int("failed", len(failed)), applogger.Int("sent", sent))
	}
	a.maybeReplicate(merged)
	return merged, nil
}

// maybeReplicate copies snap to the replica at most once per persist gap.
func (a *SnapshotActor) maybeReplicate(snap *models.Snapshot) {
	if a.replica == nil {
		return
	}
	now := a.now()
	if !a.lastReplicaAt.IsZero() && now.Sub(a.lastReplicaAt) < a.cfg.PersistGap {
		return
	}
	a.lastReplicaAt = now

	a.bg.Add(1)
	go func() {
		defer a.bg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), a.cfg.StoreTimeout)
		defer cancel()

		if a.locker != nil {
			ok, err := a.locker.TryLock(ctx, "replica:"+a.cfg.Key, a.cfg.PersistGap)
			if err != nil {
				a.log.Warn("replica lock failed", applogger.Error(err))
				return
			}
			if !ok {
				return
			}
		}
		if err := a.replica.Save(ctx, a.cfg.Key, snap); err != nil {
			a.metrics.RecordError("replica_persist")
			a.log.Error("replica write failed", applogger.Error(err))
			return
		}
		a.metrics.RecordMessageSent("replica", "snapshot")
	}()
}
