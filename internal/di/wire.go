//go:build wireinject
// +build wireinject

package di

import (
	"PumpRadar/pkg/config"
	"PumpRadar/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Storage tiers
		ProvideCache,
		ProvideSnapshotStore,
		ProvideSnapshotReplica,

		// Ingest
		ProvideQuoteSource,
		ProvideFetcher,
		ProvideScorer,
		ProvideMarketEngine,

		// Use cases
		ProvideSnapshotActor,
		ProvideSignalPublisher,
		ProvideCycleRunner,
		ProvideChannelManager,
		ProvideTickPipeline,
		ProvideKafkaTicksHandler,
		ProvideKafkaConsumer,

		// Transport
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
