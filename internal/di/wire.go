//go:build wireinject
// +build wireinject

package di

import (
	"FeatCast/pkg/config"
	"FeatCast/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Metrics
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Repositories (with business logic)
		ProvideTickStorage,
		ProvideTickPublisher,
		ProvideMarketStream,
		ProvideBarStore,

		// Use cases
		ProvideTickProcessor,
		ProvideTickCollector,
		ProvideKafkaTicksHandler,
		ProvideEngineDefaults,
		ProvideFeaturesUseCase,
		ProvideBarsUseCase,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
