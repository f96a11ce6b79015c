//go:build wireinject
// +build wireinject

package di

import (
	"StockSignal/pkg/config"
	"StockSignal/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideRedisCache,
		ProvideCache,
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Market data
		ProvideProviderLimiter,
		ProvideMarketDataClient,
		ProvideMarketData,
		ProvidePriceFeed,
		ProvideForecaster,

		// Repositories
		ProvideBarStore,
		ProvideBarSource,
		ProvideSignalPublisher,

		// Use cases
		ProvideAnalyzer,
		ProvideRanker,
		ProvideBarsHandler,
		ProvideBarSync,
		ProvideScheduler,

		// HTTP
		ProvideAnalysisHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return nil, nil, nil
}
