package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"StockSignal/pkg/util"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
		SlowRequest     time.Duration `yaml:"slow_request"`
	} `yaml:"server"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"logging"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	History struct {
		// Backend selects where daily bars are read from: "provider" or "clickhouse".
		Backend string `yaml:"backend"`
		// MinBars is the shortest history accepted before any analysis.
		MinBars int `yaml:"min_bars"`
	} `yaml:"history"`
	MarketData struct {
		BaseURL    string        `yaml:"base_url"`
		APIKey     string        `yaml:"api_key"`
		Timeout    time.Duration `yaml:"timeout"`
		RatePerMin float64       `yaml:"rate_per_min"`
		Burst      float64       `yaml:"burst"`
		Retries    int           `yaml:"retries"`
	} `yaml:"market_data"`
	Cache struct {
		QuoteTTL        time.Duration `yaml:"quote_ttl"`
		HistoryTTL      time.Duration `yaml:"history_ttl"`
		FundamentalsTTL time.Duration `yaml:"fundamentals_ttl"`
		Redis           struct {
			Enabled  bool   `yaml:"enabled"`
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		BarsTopic    string   `yaml:"bars_topic"`
		SignalsTopic string   `yaml:"signals_topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes"`
			MaxBytes   int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Finnhub struct {
		Enabled        bool          `yaml:"enabled"`
		APIKey         string        `yaml:"api_key"`
		WebSocketURL   string        `yaml:"websocket_url"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`
		PingInterval   time.Duration `yaml:"ping_interval"`
		MaxAge         time.Duration `yaml:"max_age"`
	} `yaml:"finnhub"`
	Forecast struct {
		Enabled  bool          `yaml:"enabled"`
		URL      string        `yaml:"url"`
		Timeout  time.Duration `yaml:"timeout"`
		Attempts int           `yaml:"attempts"`
	} `yaml:"forecast"`
	Watchlist struct {
		Symbols     []string `yaml:"symbols"`
		Schedule    string   `yaml:"schedule"`
		Concurrency int      `yaml:"concurrency"`
	} `yaml:"watchlist"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML, fills defaults and validates.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	c.applyEnv(os.Getenv)
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("APP_ENV"); v != "" {
		c.Environment = v
	}
	if v := getenv("HTTP_PORT"); v != "" {
		c.Server.Port = util.ParseIntDefault(v, c.Server.Port)
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := getenv("ALPHAVANTAGE_API_KEY"); v != "" {
		c.MarketData.APIKey = v
	}
	if v := getenv("HISTORY_BACKEND"); v != "" {
		c.History.Backend = v
	}
	if v := getenv("FINNHUB_API_KEY"); v != "" {
		c.Finnhub.APIKey = v
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = splitList(v)
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Cache.Redis.Addr = v
	}
	if v := getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := getenv("FORECAST_URL"); v != "" {
		c.Forecast.URL = v
	}
	if v := getenv("WATCHLIST"); v != "" {
		c.Watchlist.Symbols = splitList(v)
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.History.Backend == "" {
		c.History.Backend = "provider"
	}
	if c.History.MinBars == 0 {
		c.History.MinBars = 26
	}
	if c.MarketData.BaseURL == "" {
		c.MarketData.BaseURL = "https://www.alphavantage.co"
	}
	if c.MarketData.Timeout == 0 {
		c.MarketData.Timeout = 10 * time.Second
	}
	if c.MarketData.RatePerMin == 0 {
		c.MarketData.RatePerMin = 5
	}
	if c.MarketData.Burst == 0 {
		c.MarketData.Burst = 5
	}
	if c.Cache.QuoteTTL == 0 {
		c.Cache.QuoteTTL = time.Minute
	}
	if c.Cache.HistoryTTL == 0 {
		c.Cache.HistoryTTL = time.Hour
	}
	if c.Cache.FundamentalsTTL == 0 {
		c.Cache.FundamentalsTTL = 24 * time.Hour
	}
	if c.Cache.Redis.Prefix == "" {
		c.Cache.Redis.Prefix = "stocksignal"
	}
	if c.Watchlist.Concurrency == 0 {
		c.Watchlist.Concurrency = 4
	}
	if c.Forecast.Attempts == 0 {
		c.Forecast.Attempts = 2
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	switch c.History.Backend {
	case "provider":
		if c.MarketData.APIKey == "" {
			return fmt.Errorf("market_data.api_key is required for the provider history backend")
		}
	case "clickhouse":
		if !c.ClickHouse.Enabled || c.ClickHouse.Host == "" {
			return fmt.Errorf("history.backend 'clickhouse' requires clickhouse.enabled and clickhouse.host")
		}
	default:
		return fmt.Errorf("history.backend must be 'provider' or 'clickhouse', got '%s'", c.History.Backend)
	}
	if c.History.MinBars < 26 {
		return fmt.Errorf("history.min_bars must be at least 26, got %d", c.History.MinBars)
	}
	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
		}
		if c.Kafka.SignalsTopic == "" && c.Kafka.BarsTopic == "" {
			return fmt.Errorf("kafka needs at least one of bars_topic or signals_topic")
		}
	}
	if c.Kafka.BarsTopic != "" && c.Kafka.Enabled && !c.ClickHouse.Enabled {
		return fmt.Errorf("kafka.bars_topic ingestion requires clickhouse.enabled")
	}
	if c.Finnhub.Enabled && c.Finnhub.APIKey == "" {
		return fmt.Errorf("finnhub.api_key is required when finnhub is enabled")
	}
	if c.Forecast.Enabled && c.Forecast.URL == "" {
		return fmt.Errorf("forecast.url is required when forecast is enabled")
	}
	if c.Cache.Redis.Enabled && c.Cache.Redis.Addr == "" {
		return fmt.Errorf("cache.redis.addr is required when redis is enabled")
	}
	return nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
