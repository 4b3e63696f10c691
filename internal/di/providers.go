package di

import (
	"context"
	"fmt"
	"time"

	"PumpRadar/internal/domain/repository"
	"PumpRadar/internal/handler/api"
	mid "PumpRadar/internal/middleware"
	internalrepo "PumpRadar/internal/repository"
	"PumpRadar/internal/service/ratelimit"
	"PumpRadar/internal/service/upstream"
	"PumpRadar/internal/services/momentum"
	"PumpRadar/internal/usecase"
	"PumpRadar/pkg/cache"
	pkgch "PumpRadar/pkg/clickhouse"
	"PumpRadar/pkg/config"
	xhttp "PumpRadar/pkg/http"
	pkgkafka "PumpRadar/pkg/kafka"
	applogger "PumpRadar/pkg/logger"
	"PumpRadar/pkg/metrics"
	"PumpRadar/pkg/server"
)

// ProvideLogger creates the application logger from the log section.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideCache creates the primary snapshot tier.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	if cfg.Snapshot.Store == "memory" {
		return cache.NewMemoryCache(cache.WithMemoryCleanup(time.Minute)), nil
	}
	c, err := cache.NewRedisCache(
		cache.WithRedisHost(cfg.Redis.Host),
		cache.WithRedisPort(cfg.Redis.Port),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return c, nil
}

// ProvideSnapshotStore wraps the cache as the snapshot store and replica lock.
func ProvideSnapshotStore(c cache.Service) *internalrepo.CacheSnapshotStore {
	return internalrepo.NewCacheSnapshotStore(c)
}

// ProvideSnapshotReplica connects ClickHouse and prepares the replica table.
// Returns nil when the replica tier is disabled.
func ProvideSnapshotReplica(cfg *config.Config, l *applogger.Logger) (repository.SnapshotReplica, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	replica := internalrepo.NewCHSnapshotReplica(client, l)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := replica.Init(ctx); err != nil {
		_ = replica.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return replica, nil
}

// ProvideQuoteSource creates the upstream REST client.
func ProvideQuoteSource(cfg *config.Config) repository.QuoteSource {
	return upstream.NewClient(cfg.Upstream.BaseURL, cfg.Upstream.Timeout, xhttp.WithUserAgent("pumpradar/1.0"))
}

// ProvideFetcher creates the per-cycle fan-out fetcher.
func ProvideFetcher(src repository.QuoteSource, m repository.Metrics, l *applogger.Logger) *upstream.Fetcher {
	return upstream.NewFetcher(src, m, l)
}

// ProvideScorer builds the momentum scorer from the scorer section.
func ProvideScorer(cfg *config.Config) *momentum.Scorer {
	return momentum.NewScorer(
		momentum.WithTopN(cfg.Scorer.TopN),
		momentum.WithWeights(momentum.Weights{
			Pct1m:   cfg.Scorer.WeightPct1m,
			Pct3m:   cfg.Scorer.WeightPct3m,
			VolumeZ: cfg.Scorer.WeightVolZ,
			Streak:  cfg.Scorer.WeightStreak,
			Body:    cfg.Scorer.WeightBody,
		}),
	)
}

// ProvideMarketEngine creates the rolling statistics engine.
func ProvideMarketEngine(cfg *config.Config, scorer *momentum.Scorer) *usecase.MarketEngine {
	return usecase.NewMarketEngine(cfg.Upstream.Symbols, cfg.Scorer.TableSize, scorer)
}

// ProvideSnapshotActor creates the single-writer snapshot actor.
func ProvideSnapshotActor(
	cfg *config.Config,
	store *internalrepo.CacheSnapshotStore,
	replica repository.SnapshotReplica,
	fetcher *upstream.Fetcher,
	engine *usecase.MarketEngine,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.SnapshotActor {
	var opts []usecase.ActorOption
	if replica != nil {
		opts = append(opts, usecase.WithReplica(replica, store))
	}
	return usecase.NewSnapshotActor(usecase.ActorConfig{
		Key:            cfg.Snapshot.Key,
		Symbols:        cfg.Upstream.Symbols,
		CycleTimeout:   cfg.Cycle.Timeout,
		InteractiveGap: cfg.Cycle.InteractiveGap,
		PersistGap:     cfg.Cycle.PersistGap,
		VolumeEvery:    cfg.Cycle.VolumeEvery,
	}, store, fetcher, engine, m, l, opts...)
}

// ProvideSignalPublisher creates the Kafka signal publisher. Returns nil when Kafka is disabled.
func ProvideSignalPublisher(cfg *config.Config) (repository.SignalPublisher, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.Linger),
		pkgkafka.WithWriteTimeout(cfg.Kafka.Producer.WriteTimeout),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return internalrepo.NewKafkaSignalPublisher(producer, cfg.Kafka.SignalsTopic), nil
}

// ProvideCycleRunner creates the periodic cycle trigger.
func ProvideCycleRunner(cfg *config.Config, actor *usecase.SnapshotActor, pub repository.SignalPublisher, m repository.Metrics, l *applogger.Logger) *usecase.CycleRunner {
	return usecase.NewCycleRunner(actor, pub, m, l, cfg.Cycle.Interval)
}

// ProvideChannelManager creates the push channel heartbeat loop.
func ProvideChannelManager(cfg *config.Config, actor *usecase.SnapshotActor, l *applogger.Logger) *usecase.ChannelManager {
	return usecase.NewChannelManager(actor, l, cfg.Channels.Heartbeat, cfg.Channels.MissedHeartbeats)
}

// ProvideTickPipeline creates the validation and throttle stage for external ticks.
func ProvideTickPipeline(cfg *config.Config, actor *usecase.SnapshotActor, m repository.Metrics) *mid.TickPipeline {
	return mid.NewTickPipeline(actor, m, cfg.Upstream.Symbols, mid.WithMaxRPS(cfg.Kafka.Consumer.MaxTickRPS))
}

// ProvideKafkaTicksHandler creates the handler for the ticks topic.
func ProvideKafkaTicksHandler(cfg *config.Config, pipe *mid.TickPipeline, m repository.Metrics) *usecase.KafkaTicksHandler {
	return usecase.NewKafkaTicksHandler(cfg.Kafka.TicksTopic, pipe, m)
}

// ProvideKafkaConsumer creates the ticks consumer. Returns nil when Kafka is disabled.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(l,
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideHTTPServer registers the API and stream routes on the echo server.
func ProvideHTTPServer(cfg *config.Config, actor *usecase.SnapshotActor, channels *usecase.ChannelManager, l *applogger.Logger) *xhttp.Server {
	handlers := xhttp.Handlers{
		api.NewSnapshotEchoHandler(l, actor),
		api.NewStreamEchoHandler(l, channels,
			api.WithSendBuffer(cfg.Channels.SendBuffer),
			api.WithWriteTimeout(cfg.Channels.WriteTimeout),
			api.WithConnectLimiter(ratelimit.New(cfg.Channels.ConnectBurst, cfg.Channels.ConnectPerSec)),
		),
	}
	return xhttp.NewServer(handlers, l,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithSlowThreshold(cfg.Server.SlowThreshold),
		xhttp.WithMetricsPath(cfg.Metrics.Path),
		xhttp.WithCORSOrigins(cfg.Server.CORSOrigins),
	)
}

// ProvideApp assembles the application lifecycle.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	c cache.Service,
	replica repository.SnapshotReplica,
	actor *usecase.SnapshotActor,
	runner *usecase.CycleRunner,
	channels *usecase.ChannelManager,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaTicksHandler,
	pub repository.SignalPublisher,
	httpServer *xhttp.Server,
) *server.App {
	return server.New(cfg, l, server.Components{
		Cache:      c,
		Replica:    replica,
		Actor:      actor,
		Runner:     runner,
		Channels:   channels,
		Consumer:   consumer,
		Ticks:      kh,
		Publisher:  pub,
		HTTPServer: httpServer,
	})
}
