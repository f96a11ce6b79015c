// Package usecase wires market data sources to the indicator engine and the
// signal scorers.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"StockSignal/internal/domain/models"
	domrepo "StockSignal/internal/domain/repository"
	domsvc "StockSignal/internal/domain/service"
	svcmetrics "StockSignal/internal/service/metrics"
	"StockSignal/internal/services/indicators"
	"StockSignal/internal/services/signals"
	applogger "StockSignal/pkg/logger"
)

var (
	ErrInsufficientHistory = errors.New("insufficient price history")
	ErrUnknownSymbol       = errors.New("unknown symbol")
)

const (
	// DefaultMinBars is the shortest history accepted for technical analysis:
	// the slow MACD EMA needs 26 closes.
	DefaultMinBars = indicators.DefaultMACDSlow

	recommendationHistory = 30
	priceSourceQuote      = "quote"
	priceSourceLive       = "live"
)

// AnalysisReport is the full indicator set of one symbol. Every line is
// positionally aligned with Dates.
type AnalysisReport struct {
	Symbol     string                `json:"symbol"`
	Interval   string                `json:"interval"`
	Dates      []string              `json:"dates"`
	Closes     []float64             `json:"closes"`
	SMA20      indicators.Line       `json:"sma20"`
	SMA50      indicators.Line       `json:"sma50"`
	EMA12      indicators.Line       `json:"ema12"`
	EMA26      indicators.Line       `json:"ema26"`
	RSI14      indicators.Line       `json:"rsi14"`
	VWAP20     indicators.Line       `json:"vwap20"`
	Bollinger  indicators.Bands      `json:"bollinger"`
	MACD       indicators.MACDResult `json:"macd"`
	Volatility *float64              `json:"volatility"`
	Momentum   *float64              `json:"momentum"`
	Trend      models.TrendResult    `json:"trend"`
	Forecast   *models.Forecast      `json:"forecast,omitempty"`
	// ForecastError is set when the forecast was requested but failed; the
	// rest of the report is still valid.
	ForecastError string `json:"forecast_error,omitempty"`
}

// RecommendationReport is a recommendation plus the price it was scored at.
type RecommendationReport struct {
	Symbol         string                      `json:"symbol"`
	Name           string                      `json:"name,omitempty"`
	Price          float64                     `json:"price"`
	PriceSource    string                      `json:"price_source"`
	Recommendation models.RecommendationResult `json:"recommendation"`
	Timestamp      time.Time                   `json:"timestamp"`
}

// Analyzer runs the indicator engine over provider data.
type Analyzer struct {
	bars       domrepo.BarSource
	quotes     domrepo.QuoteSource
	forecaster domsvc.Forecaster
	feed       domrepo.PriceFeed
	metrics    domrepo.Metrics
	minBars    int
	now        func() time.Time
	log        *applogger.Logger
}

type AnalyzerOption func(*Analyzer)

// WithForecaster enables the optional forecast section of reports.
func WithForecaster(f domsvc.Forecaster) AnalyzerOption {
	return func(a *Analyzer) { a.forecaster = f }
}

// WithPriceFeed lets a fresh streamed trade price override the quote price.
func WithPriceFeed(feed domrepo.PriceFeed) AnalyzerOption {
	return func(a *Analyzer) { a.feed = feed }
}

func WithAnalyzerMetrics(m domrepo.Metrics) AnalyzerOption {
	return func(a *Analyzer) { a.metrics = m }
}

// WithMinBars raises the history floor. Values below DefaultMinBars are ignored.
func WithMinBars(n int) AnalyzerOption {
	return func(a *Analyzer) {
		if n > DefaultMinBars {
			a.minBars = n
		}
	}
}

func WithAnalyzerClock(now func() time.Time) AnalyzerOption {
	return func(a *Analyzer) { a.now = now }
}

func WithAnalyzerLogger(l *applogger.Logger) AnalyzerOption {
	return func(a *Analyzer) {
		if l != nil {
			a.log = l
		}
	}
}

func NewAnalyzer(bars domrepo.BarSource, quotes domrepo.QuoteSource, opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{
		bars:    bars,
		quotes:  quotes,
		minBars: DefaultMinBars,
		now:     time.Now,
		log:     applogger.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AnalyzeParams selects the history window and the optional forecast.
type AnalyzeParams struct {
	Symbol   string
	Interval domrepo.Interval
	N        int
	Forecast bool
	Horizon  int
}

// Analyze computes every indicator over the last N bars.
func (a *Analyzer) Analyze(ctx context.Context, p AnalyzeParams) (*AnalysisReport, error) {
	series, err := a.history(ctx, p.Symbol, p.Interval, p.N)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	closes := series.Closes()
	r := &AnalysisReport{
		Symbol:    series.Symbol,
		Interval:  string(p.Interval),
		Dates:     formatDates(series.Dates()),
		Closes:    closes,
		SMA20:     indicators.SMA(closes, indicators.DefaultShortSMA),
		SMA50:     indicators.SMA(closes, indicators.DefaultLongSMA),
		EMA12:     indicators.EMA(closes, indicators.DefaultMACDFast),
		EMA26:     indicators.EMA(closes, indicators.DefaultMACDSlow),
		RSI14:     indicators.RSI(closes, indicators.DefaultRSIPeriod, indicators.RSIWilder),
		VWAP20:    indicators.VWAP(series.Bars, indicators.DefaultBollingerPeriod),
		Bollinger: indicators.Bollinger(closes, indicators.DefaultBollingerPeriod, indicators.DefaultBollingerK),
		MACD:      indicators.MACD(closes, indicators.DefaultMACDFast, indicators.DefaultMACDSlow, indicators.DefaultMACDSignal),
		Trend:     signals.ClassifyTrend(signals.TrendInputsFromCloses(closes)),
	}
	if v, ok := indicators.AnnualizedVolatility(closes); ok {
		r.Volatility = &v
	}
	if v, ok := indicators.Momentum(closes, indicators.DefaultMomentumPeriod); ok {
		r.Momentum = &v
	}
	svcmetrics.IndicatorDuration.Observe(time.Since(start).Seconds())

	if p.Forecast && a.forecaster != nil {
		fc, err := a.forecaster.Forecast(ctx, series.Symbol, r.Dates, closes, p.Horizon)
		if err != nil {
			a.log.Warn("forecast failed", applogger.String("symbol", series.Symbol), applogger.Error(err))
			a.recordError("forecast")
			r.ForecastError = "forecast unavailable"
		} else {
			r.Forecast = &fc
		}
	}
	return r, nil
}

// Trend classifies the last N bars.
func (a *Analyzer) Trend(ctx context.Context, symbol string, iv domrepo.Interval, n int) (models.TrendResult, error) {
	series, err := a.history(ctx, symbol, iv, n)
	if err != nil {
		return models.TrendResult{}, err
	}
	return signals.ClassifyTrend(signals.TrendInputsFromCloses(series.Closes())), nil
}

// Recommend scores the latest quote and company overview. Only a failing
// quote is an error; missing fundamentals or history degrade the inputs and
// the scorer falls back to its neutral defaults.
func (a *Analyzer) Recommend(ctx context.Context, symbol string) (*RecommendationReport, error) {
	q, err := a.quotes.Quote(ctx, symbol)
	if err != nil {
		return nil, classify(symbol, err)
	}

	f, err := a.quotes.Fundamentals(ctx, symbol)
	if err != nil {
		a.log.Warn("fundamentals unavailable", applogger.String("symbol", symbol), applogger.Error(err))
		f = models.Fundamentals{Symbol: symbol}
	}

	var closes []float64
	if s, err := a.bars.History(ctx, symbol, domrepo.IntervalDaily, recommendationHistory); err != nil {
		a.log.Warn("recent closes unavailable", applogger.String("symbol", symbol), applogger.Error(err))
	} else {
		closes = s.Closes()
	}

	source := priceSourceQuote
	if a.feed != nil {
		if live, _, ok := a.feed.LastPrice(symbol); ok {
			q.Price = live
			source = priceSourceLive
		}
	}

	rec := signals.Recommend(signals.RecommendationInputsFrom(q, f, closes))
	if a.metrics != nil {
		a.metrics.RecordSignal(string(rec.Action))
	}
	return &RecommendationReport{
		Symbol:         symbol,
		Name:           f.Name,
		Price:          q.Price,
		PriceSource:    source,
		Recommendation: rec,
		Timestamp:      a.now(),
	}, nil
}

// history enforces the minimum-bars boundary before any indicator runs.
func (a *Analyzer) history(ctx context.Context, symbol string, iv domrepo.Interval, n int) (models.Series, error) {
	if n < a.minBars {
		n = a.minBars
	}
	s, err := a.bars.History(ctx, symbol, iv, n)
	if err != nil {
		return models.Series{}, classify(symbol, err)
	}
	if err := s.Validate(); err != nil {
		if errors.Is(err, models.ErrEmptySeries) {
			return models.Series{}, fmt.Errorf("%s: %w", symbol, ErrUnknownSymbol)
		}
		return models.Series{}, fmt.Errorf("history %s: %w", symbol, err)
	}
	if s.Len() < a.minBars {
		return models.Series{}, fmt.Errorf("%s has %d bars, need %d: %w", symbol, s.Len(), a.minBars, ErrInsufficientHistory)
	}
	if s.Symbol == "" {
		s.Symbol = symbol
	}
	return s, nil
}

func (a *Analyzer) recordError(kind string) {
	if a.metrics != nil {
		a.metrics.RecordError(kind)
	}
}

func classify(symbol string, err error) error {
	if errors.Is(err, domrepo.ErrNoData) {
		return fmt.Errorf("%s: %w: %v", symbol, ErrUnknownSymbol, err)
	}
	return err
}

func formatDates(ds []time.Time) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = d.Format(models.DateLayout)
	}
	return out
}
