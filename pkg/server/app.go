package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"PumpRadar/internal/domain/repository"
	"PumpRadar/internal/usecase"
	"PumpRadar/pkg/cache"
	"PumpRadar/pkg/config"
	xhttp "PumpRadar/pkg/http"
	pkgkafka "PumpRadar/pkg/kafka"
	applogger "PumpRadar/pkg/logger"
)

// Components are the long-lived parts of the application. Consumer, Replica
// and Publisher are nil when their backends are disabled.
type Components struct {
	Cache      cache.Service
	Replica    repository.SnapshotReplica
	Actor      *usecase.SnapshotActor
	Runner     *usecase.CycleRunner
	Channels   *usecase.ChannelManager
	Consumer   *pkgkafka.Consumer
	Ticks      pkgkafka.MessageHandler
	Publisher  repository.SignalPublisher
	HTTPServer *xhttp.Server
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg *config.Config
	log *applogger.Logger
	Components
}

// New creates a new App instance with all dependencies.
func New(cfg *config.Config, l *applogger.Logger, c Components) *App {
	return &App{cfg: cfg, log: l, Components: c}
}

// Run starts the application and blocks until SIGINT or SIGTERM.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Start(ctx); err != nil {
		_ = a.Shutdown(context.Background())
		return err
	}
	<-ctx.Done()

	a.log.Info("shutdown signal received")
	return a.Shutdown(context.Background())
}

// Start brings components up in dependency order.
func (a *App) Start(ctx context.Context) error {
	if err := a.Actor.Start(ctx); err != nil {
		return fmt.Errorf("snapshot actor: %w", err)
	}
	a.log.Info("snapshot actor started",
		applogger.String("key", a.cfg.Snapshot.Key),
		applogger.String("state", string(a.Actor.State())),
	)

	if err := a.Channels.Start(ctx); err != nil {
		return fmt.Errorf("channel manager: %w", err)
	}
	if err := a.Runner.Start(ctx); err != nil {
		return fmt.Errorf("cycle runner: %w", err)
	}
	a.log.Info("cycle runner started", applogger.Strings("symbols", a.cfg.Upstream.Symbols))

	if a.Consumer != nil && a.Ticks != nil {
		a.Consumer.RegisterHandler(a.Ticks)
		if err := a.Consumer.Start(); err != nil {
			return fmt.Errorf("kafka consumer: %w", err)
		}
		a.log.Info("kafka consumer started", applogger.String("topic", a.Ticks.Topic()))
	}

	if err := a.HTTPServer.Start(); err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown stops components in reverse start order. The HTTP server goes
// first so no request reaches a stopped actor.
func (a *App) Shutdown(ctx context.Context) error {
	sctx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	step := func(name string, fn func() error) {
		if err := fn(); err != nil {
			a.log.Warn(name+" stop error", applogger.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}

	if a.HTTPServer != nil {
		step("http server", func() error { return a.HTTPServer.Stop(sctx) })
	}
	if a.Consumer != nil {
		step("kafka consumer", func() error { return a.Consumer.Stop(sctx) })
	}
	step("cycle runner", func() error { return a.Runner.Stop(sctx) })
	step("channel manager", func() error { return a.Channels.Stop(sctx) })
	step("snapshot actor", func() error { return a.Actor.Stop(sctx) })
	if a.Publisher != nil {
		step("signal publisher", a.Publisher.Close)
	}
	if a.Replica != nil {
		step("snapshot replica", a.Replica.Close)
	}
	if a.Cache != nil {
		step("cache", a.Cache.Close)
	}

	a.log.Info("shutdown complete")
	return errors.Join(errs...)
}
