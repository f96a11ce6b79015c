package di

import (
	"context"
	"fmt"
	"time"

	"StockSignal/internal/domain/repository"
	"StockSignal/internal/handler/api"
	internalrepo "StockSignal/internal/repository"
	"StockSignal/internal/scheduler"
	icache "StockSignal/internal/service/cache"
	"StockSignal/internal/service/finnhub"
	"StockSignal/internal/service/marketdata"
	"StockSignal/internal/service/ratelimit"
	"StockSignal/internal/services/forecast"
	"StockSignal/internal/usecase"
	pkgch "StockSignal/pkg/clickhouse"
	"StockSignal/pkg/config"
	xhttp "StockSignal/pkg/http"
	pkgkafka "StockSignal/pkg/kafka"
	applogger "StockSignal/pkg/logger"
	"StockSignal/pkg/metrics"
	"StockSignal/pkg/server"
)

const (
	memoryTTL        = 5 * time.Minute
	memoryMaxEntries = 10000
	clientRatePerMin = 120
	clientBurst      = 20
	syncBars         = 120
	initTimeout      = 10 * time.Second
)

// ProvideLogger builds the application logger from the logging section.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideRedisCache connects the shared cache tier. Nil when disabled.
func ProvideRedisCache(cfg *config.Config, l *applogger.Logger) (*icache.RedisCache, func(), error) {
	if !cfg.Cache.Redis.Enabled {
		return nil, func() {}, nil
	}
	rc := icache.NewRedisCache(icache.RedisConfig{
		Addr:     cfg.Cache.Redis.Addr,
		Password: cfg.Cache.Redis.Password,
		DB:       cfg.Cache.Redis.DB,
		Prefix:   cfg.Cache.Redis.Prefix,
	})
	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()
	if err := rc.Ping(ctx); err != nil {
		_ = rc.Close()
		return nil, nil, fmt.Errorf("redis ping: %w", err)
	}
	cleanup := func() {
		if err := rc.Close(); err != nil {
			l.Warn("redis close error", applogger.Error(err))
		}
	}
	return rc, cleanup, nil
}

// ProvideCache layers an in-process TTL cache over Redis when available.
func ProvideCache(redis *icache.RedisCache, m repository.Metrics) icache.BytesCache {
	l1 := icache.NewTTLCache(icache.WithMaxEntries(memoryMaxEntries))
	var l2 icache.BytesCache
	if redis != nil {
		l2 = redis
	}
	return icache.NewLayeredCache(l1, l2, memoryTTL, m)
}

// ProvideProviderLimiter throttles outbound market data calls.
func ProvideProviderLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.MarketData.RatePerMin, cfg.MarketData.Burst)
}

// ProvideMarketDataClient creates the market data provider client.
func ProvideMarketDataClient(cfg *config.Config, lim *ratelimit.Limiter, m repository.Metrics, l *applogger.Logger) *marketdata.Client {
	return marketdata.NewClient(cfg.MarketData.BaseURL, cfg.MarketData.APIKey,
		marketdata.WithHTTPClient(xhttp.NewClient(
			xhttp.WithTimeout(cfg.MarketData.Timeout),
			xhttp.WithUserAgent("stocksignal/1.0"),
		)),
		marketdata.WithLimiter(lim),
		marketdata.WithRetries(cfg.MarketData.Retries, time.Second),
		marketdata.WithMetrics(m),
		marketdata.WithLogger(l.With(applogger.String("component", "marketdata"))),
	)
}

// ProvideMarketData puts the quote/history cache in front of the provider.
func ProvideMarketData(cfg *config.Config, client *marketdata.Client, c icache.BytesCache, l *applogger.Logger) repository.MarketData {
	return marketdata.NewCached(client, c, marketdata.TTLs{
		Quote:        cfg.Cache.QuoteTTL,
		History:      cfg.Cache.HistoryTTL,
		Fundamentals: cfg.Cache.FundamentalsTTL,
	}, l)
}

// ProvideClickHouseClient creates a ClickHouse client. Nil when disabled.
func ProvideClickHouseClient(cfg *config.Config, l *applogger.Logger) (*pkgch.Client, func(), error) {
	if !cfg.ClickHouse.Enabled {
		return nil, func() {}, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}
	cleanup := func() {
		if err := client.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}
	return client, cleanup, nil
}

// ProvideBarStore creates the ClickHouse bar tables. Nil without ClickHouse.
func ProvideBarStore(ch *pkgch.Client, l *applogger.Logger) (*internalrepo.CHBarStore, error) {
	if ch == nil {
		return nil, nil
	}
	store := internalrepo.NewCHBarStore(ch)
	store.SetLogger(l)

	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("bar store init: %w", err)
	}
	return store, nil
}

// ProvideBarSource selects where history is read from.
func ProvideBarSource(cfg *config.Config, md repository.MarketData, store *internalrepo.CHBarStore) repository.BarSource {
	if cfg.History.Backend == "clickhouse" && store != nil {
		return internalrepo.NewStoreBarSource(store)
	}
	return md
}

// ProvidePriceFeed creates the live trade stream. Nil when disabled.
func ProvidePriceFeed(cfg *config.Config, m repository.Metrics, l *applogger.Logger) *finnhub.LivePrices {
	if !cfg.Finnhub.Enabled {
		return nil
	}
	return finnhub.New(cfg.Finnhub.APIKey, cfg.Finnhub.WebSocketURL, cfg.Watchlist.Symbols,
		finnhub.WithTiming(cfg.Finnhub.ReconnectDelay, cfg.Finnhub.PingInterval, cfg.Finnhub.MaxAge),
		finnhub.WithMetrics(m),
		finnhub.WithLogger(l.With(applogger.String("component", "finnhub"))),
	)
}

// ProvideForecaster creates the external forecast client. Nil when disabled.
func ProvideForecaster(cfg *config.Config) *forecast.HTTPForecaster {
	if !cfg.Forecast.Enabled {
		return nil
	}
	return forecast.NewHTTPForecaster(cfg.Forecast.URL, cfg.Forecast.Timeout, cfg.Forecast.Attempts)
}

// ProvideAnalyzer creates the analysis use case.
func ProvideAnalyzer(
	cfg *config.Config,
	bars repository.BarSource,
	md repository.MarketData,
	fc *forecast.HTTPForecaster,
	feed *finnhub.LivePrices,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.Analyzer {
	opts := []usecase.AnalyzerOption{
		usecase.WithMinBars(cfg.History.MinBars),
		usecase.WithAnalyzerMetrics(m),
		usecase.WithAnalyzerLogger(l),
	}
	if fc != nil {
		opts = append(opts, usecase.WithForecaster(fc))
	}
	if feed != nil {
		opts = append(opts, usecase.WithPriceFeed(feed))
	}
	return usecase.NewAnalyzer(bars, md, opts...)
}

// ProvideRanker creates the watchlist ranker.
func ProvideRanker(cfg *config.Config, a *usecase.Analyzer, l *applogger.Logger) *usecase.WatchlistRanker {
	return usecase.NewWatchlistRanker(a, cfg.Watchlist.Concurrency, l)
}

// ProvideAnalysisHandler creates the analysis HTTP routes.
func ProvideAnalysisHandler(cfg *config.Config, l *applogger.Logger, a *usecase.Analyzer, r *usecase.WatchlistRanker, c icache.BytesCache) *api.AnalysisEchoHandler {
	h := api.NewAnalysisEchoHandler(l, a, r)
	h.SetCache(c, cfg.Cache.QuoteTTL)
	h.SetLimiter(ratelimit.New(clientRatePerMin, clientBurst))
	return h
}

// ProvideHTTPServer creates the echo server with health checks for every
// enabled dependency.
func ProvideHTTPServer(cfg *config.Config, l *applogger.Logger, h *api.AnalysisEchoHandler, ch *pkgch.Client, redis *icache.RedisCache) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithSlowRequest(cfg.Server.SlowRequest),
		xhttp.WithLogger(l),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetrics(cfg.Metrics.Path))
	}
	if ch != nil {
		opts = append(opts, xhttp.WithHealthCheck("clickhouse", ch.Health))
	}
	if redis != nil {
		opts = append(opts, xhttp.WithHealthCheck("redis", redis.Ping))
	}
	return xhttp.NewServer([]xhttp.Handler{h}, opts...)
}

// ProvideKafkaProducer creates a Kafka producer for signal events. Nil when
// signal publishing is off.
func ProvideKafkaProducer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Producer, func(), error) {
	if !cfg.Kafka.Enabled || cfg.Kafka.SignalsTopic == "" {
		return nil, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	cleanup := func() {
		if err := producer.Close(); err != nil {
			l.Warn("kafka producer close error", applogger.Error(err))
		}
	}
	return producer, cleanup, nil
}

// ProvideSignalPublisher wraps the producer. Nil without a producer.
func ProvideSignalPublisher(cfg *config.Config, producer *pkgkafka.Producer) *internalrepo.KafkaSignalPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaSignalPublisher(producer, cfg.Kafka.SignalsTopic)
}

// ProvideKafkaConsumer creates the bar ingestion consumer. Nil when no bars
// topic is configured or there is no store to write to.
func ProvideKafkaConsumer(cfg *config.Config, store *internalrepo.CHBarStore, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled || cfg.Kafka.BarsTopic == "" || store == nil {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
		pkgkafka.WithConsumerLogger(l),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideBarsHandler handles the bars topic. Nil without a store.
func ProvideBarsHandler(cfg *config.Config, store *internalrepo.CHBarStore, m repository.Metrics) *usecase.BarsHandler {
	if store == nil {
		return nil
	}
	return usecase.NewBarsHandler(cfg.Kafka.BarsTopic, store, m)
}

// ProvideBarSync copies provider history into ClickHouse when ClickHouse is
// the history backend and a provider key is configured.
func ProvideBarSync(cfg *config.Config, md repository.MarketData, store *internalrepo.CHBarStore, l *applogger.Logger) *usecase.BarSync {
	if store == nil || cfg.History.Backend != "clickhouse" || cfg.MarketData.APIKey == "" {
		return nil
	}
	return usecase.NewBarSync(md, store, syncBars, l)
}

// ProvideScheduler registers the watchlist refresh. Nil without a schedule
// or watchlist.
func ProvideScheduler(
	cfg *config.Config,
	r *usecase.WatchlistRanker,
	a *usecase.Analyzer,
	sync *usecase.BarSync,
	pub *internalrepo.KafkaSignalPublisher,
	l *applogger.Logger,
) (*scheduler.Scheduler, error) {
	if cfg.Watchlist.Schedule == "" || len(cfg.Watchlist.Symbols) == 0 {
		return nil, nil
	}
	opts := []scheduler.Option{
		scheduler.WithTrend(a),
		scheduler.WithLogger(l.With(applogger.String("component", "scheduler"))),
	}
	if sync != nil {
		opts = append(opts, scheduler.WithBarSync(sync))
	}
	if pub != nil {
		opts = append(opts, scheduler.WithPublisher(pub))
	}
	s := scheduler.New(cfg.Watchlist.Symbols, r, opts...)
	if err := s.Register(cfg.Watchlist.Schedule); err != nil {
		return nil, err
	}
	return s, nil
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	srv *xhttp.Server,
	consumer *pkgkafka.Consumer,
	bars *usecase.BarsHandler,
	sched *scheduler.Scheduler,
	feed *finnhub.LivePrices,
) *server.App {
	var opts []server.Option
	if consumer != nil && bars != nil {
		opts = append(opts, server.WithConsumer(consumer, bars))
	}
	if sched != nil {
		opts = append(opts, server.WithScheduler(sched))
	}
	if feed != nil {
		opts = append(opts, server.WithRunner(feed))
	}
	return server.New(cfg, l, srv, opts...)
}
