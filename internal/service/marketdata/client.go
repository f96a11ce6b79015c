// Package marketdata talks to an Alpha Vantage compatible quote and history
// provider.
package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"StockSignal/internal/domain/models"
	"StockSignal/internal/domain/repository"
	"StockSignal/internal/service/ratelimit"
	xhttp "StockSignal/pkg/http"
	applogger "StockSignal/pkg/logger"
)

var (
	ErrRateLimited = errors.New("market data provider rate limit reached")
	ErrNotFound    = fmt.Errorf("provider: %w", repository.ErrNoData)
)

const (
	fnDaily    = "TIME_SERIES_DAILY"
	fnWeekly   = "TIME_SERIES_WEEKLY"
	fnQuote    = "GLOBAL_QUOTE"
	fnOverview = "OVERVIEW"

	// compact responses carry the latest 100 bars
	compactSize = 100
	limiterKey  = "provider"
)

// Client implements repository.MarketData against the provider HTTP API.
type Client struct {
	http    *xhttp.Client
	baseURL string
	apiKey  string
	limiter *ratelimit.Limiter
	retries int
	backoff time.Duration
	metrics repository.Metrics
	log     *applogger.Logger
}

type Option func(*Client)

// WithLimiter throttles every call through l.
func WithLimiter(l *ratelimit.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithRetries retries rate-limited and 5xx responses up to n times.
func WithRetries(n int, backoff time.Duration) Option {
	return func(c *Client) {
		if n >= 0 {
			c.retries = n
		}
		if backoff > 0 {
			c.backoff = backoff
		}
	}
}

func WithMetrics(m repository.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

func WithLogger(l *applogger.Logger) Option {
	return func(c *Client) { c.log = l }
}

func WithHTTPClient(h *xhttp.Client) Option {
	return func(c *Client) { c.http = h }
}

func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		retries: 2,
		backoff: time.Second,
		log:     applogger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = xhttp.NewClient(xhttp.WithTimeout(10*time.Second), xhttp.WithUserAgent("stocksignal/1.0"))
	}
	return c
}

type notice struct {
	Note         string `json:"Note"`
	Information  string `json:"Information"`
	ErrorMessage string `json:"Error Message"`
}

type seriesResponse struct {
	Daily  map[string]ohlcv `json:"Time Series (Daily)"`
	Weekly map[string]ohlcv `json:"Weekly Time Series"`
}

// History returns the last n bars of symbol.
func (c *Client) History(ctx context.Context, symbol string, interval repository.Interval, n int) (models.Series, error) {
	fn := fnDaily
	if interval == repository.IntervalWeekly {
		fn = fnWeekly
	}
	params := url.Values{"symbol": {symbol}}
	if fn == fnDaily {
		size := "compact"
		if n > compactSize {
			size = "full"
		}
		params.Set("outputsize", size)
	}

	var resp seriesResponse
	if err := c.call(ctx, fn, params, &resp); err != nil {
		return models.Series{}, fmt.Errorf("history %s: %w", symbol, err)
	}
	raw := resp.Daily
	if interval == repository.IntervalWeekly {
		raw = resp.Weekly
	}
	if len(raw) == 0 {
		return models.Series{}, fmt.Errorf("history %s: %w", symbol, ErrNotFound)
	}
	bars, err := toBars(raw, n)
	if err != nil {
		return models.Series{}, fmt.Errorf("history %s: %w", symbol, err)
	}
	return models.Series{Symbol: symbol, Interval: string(interval), Bars: bars}, nil
}

type quoteResponse struct {
	Quote struct {
		Symbol           string `json:"01. symbol"`
		Open             string `json:"02. open"`
		High             string `json:"03. high"`
		Low              string `json:"04. low"`
		Price            string `json:"05. price"`
		Volume           string `json:"06. volume"`
		LatestTradingDay string `json:"07. latest trading day"`
		PreviousClose    string `json:"08. previous close"`
		ChangePercent    string `json:"10. change percent"`
	} `json:"Global Quote"`
}

// Quote returns the latest trading-day snapshot of symbol.
func (c *Client) Quote(ctx context.Context, symbol string) (models.Quote, error) {
	var resp quoteResponse
	if err := c.call(ctx, fnQuote, url.Values{"symbol": {symbol}}, &resp); err != nil {
		return models.Quote{}, fmt.Errorf("quote %s: %w", symbol, err)
	}
	g := resp.Quote
	price, ok := parseNumber(g.Price)
	if !ok || g.Symbol == "" {
		return models.Quote{}, fmt.Errorf("quote %s: %w", symbol, ErrNotFound)
	}
	q := models.Quote{
		Symbol:        g.Symbol,
		Price:         price,
		PreviousClose: number(g.PreviousClose),
		Open:          number(g.Open),
		High:          number(g.High),
		Low:           number(g.Low),
		Volume:        number(g.Volume),
		ChangePercent: number(g.ChangePercent),
	}
	if day, err := time.Parse(models.DateLayout, g.LatestTradingDay); err == nil {
		q.LatestTradingDay = day
	}
	return q, nil
}

type overviewResponse struct {
	Symbol               string `json:"Symbol"`
	Name                 string `json:"Name"`
	PERatio              string `json:"PERatio"`
	Beta                 string `json:"Beta"`
	FiftyDayAverage      string `json:"50DayMovingAverage"`
	TwoHundredDayAverage string `json:"200DayMovingAverage"`
	AnalystTargetPrice   string `json:"AnalystTargetPrice"`
}

// Fundamentals returns the company overview fields used by the scorer.
func (c *Client) Fundamentals(ctx context.Context, symbol string) (models.Fundamentals, error) {
	var resp overviewResponse
	if err := c.call(ctx, fnOverview, url.Values{"symbol": {symbol}}, &resp); err != nil {
		return models.Fundamentals{}, fmt.Errorf("overview %s: %w", symbol, err)
	}
	if resp.Symbol == "" {
		return models.Fundamentals{}, fmt.Errorf("overview %s: %w", symbol, ErrNotFound)
	}
	return models.Fundamentals{
		Symbol:               resp.Symbol,
		Name:                 resp.Name,
		FiftyDayAverage:      number(resp.FiftyDayAverage),
		TwoHundredDayAverage: number(resp.TwoHundredDayAverage),
		Beta:                 number(resp.Beta),
		PERatio:              number(resp.PERatio),
		AnalystTargetPrice:   number(resp.AnalystTargetPrice),
	}, nil
}

func (c *Client) call(ctx context.Context, function string, params url.Values, dest interface{}) error {
	q := url.Values{}
	for k, v := range params {
		q[k] = v
	}
	q.Set("function", function)
	q.Set("apikey", c.apiKey)

	var err error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			c.log.Warn("retrying provider call",
				applogger.String("function", function),
				applogger.Int("attempt", attempt),
				applogger.Error(err),
			)
			if serr := sleep(ctx, c.backoff*time.Duration(attempt)); serr != nil {
				return serr
			}
		}
		err = c.once(ctx, function, q, dest)
		if err == nil || !retryable(err) {
			break
		}
	}
	c.record(function, err)
	return err
}

func (c *Client) once(ctx context.Context, function string, q url.Values, dest interface{}) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, limiterKey); err != nil {
			return err
		}
	}

	var body []byte
	if err := c.http.GetJSON(ctx, c.baseURL, q, &body); err != nil {
		var se *xhttp.StatusError
		if errors.As(err, &se) && se.StatusCode == 429 {
			return fmt.Errorf("%w: %v", ErrRateLimited, err)
		}
		return err
	}

	var n notice
	if err := json.Unmarshal(body, &n); err != nil {
		return fmt.Errorf("decode %s: %w", function, err)
	}
	switch {
	case n.ErrorMessage != "":
		return fmt.Errorf("%w: %s", ErrNotFound, n.ErrorMessage)
	case n.Note != "":
		return fmt.Errorf("%w: %s", ErrRateLimited, n.Note)
	case n.Information != "":
		return fmt.Errorf("%w: %s", ErrRateLimited, n.Information)
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("decode %s: %w", function, err)
	}
	return nil
}

func (c *Client) record(function string, err error) {
	if c.metrics == nil {
		return
	}
	status := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrRateLimited):
		status = "rate_limited"
	case errors.Is(err, ErrNotFound):
		status = "not_found"
	default:
		status = "error"
	}
	c.metrics.RecordProviderRequest(function, status)
}

func retryable(err error) bool {
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	var se *xhttp.StatusError
	return errors.As(err, &se) && se.Temporary()
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
