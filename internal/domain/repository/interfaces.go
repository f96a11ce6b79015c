package repository

import (
	"context"
	"errors"
	"time"

	"StockSignal/internal/domain/models"
)

// BarSource returns the most recent n bars of a symbol, ascending by date.
type BarSource interface {
	History(ctx context.Context, symbol string, interval Interval, n int) (models.Series, error)
}

// QuoteSource serves the latest quote and company overview of a symbol.
type QuoteSource interface {
	Quote(ctx context.Context, symbol string) (models.Quote, error)
	Fundamentals(ctx context.Context, symbol string) (models.Fundamentals, error)
}

// MarketData is the full provider surface the analysis use cases read from.
type MarketData interface {
	BarSource
	QuoteSource
}

// BarStore persists bar history.
type BarStore interface {
	Init(ctx context.Context) error // ensure tables
	SaveBars(ctx context.Context, symbol string, interval Interval, bars []models.Bar) error
	LatestBars(ctx context.Context, symbol string, interval Interval, n int) ([]models.Bar, error)
	Health(ctx context.Context) error
	Close() error
}

// SignalPublisher emits computed signals to downstream consumers.
type SignalPublisher interface {
	Publish(ctx context.Context, ev models.SignalEvent) error
	PublishBatch(ctx context.Context, evs []models.SignalEvent) error
	Close() error
}

// PriceFeed exposes the last streamed trade price of a symbol.
type PriceFeed interface {
	LastPrice(symbol string) (price float64, at time.Time, ok bool)
}

type Metrics interface {
	RecordProviderRequest(endpoint, status string)
	RecordCacheLookup(tier string, hit bool)
	RecordSignal(action string)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
}

// ErrNoData is returned by stores that hold nothing for the requested symbol.
var ErrNoData = errors.New("no data for symbol")
