// Package finnhub keeps the last traded price of watched symbols from the
// Finnhub trade WebSocket.
package finnhub

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"StockSignal/internal/domain/repository"
	applogger "StockSignal/pkg/logger"

	"github.com/gorilla/websocket"
)

type lastTrade struct {
	price float64
	at    time.Time
}

// LivePrices implements repository.PriceFeed. Prices older than maxAge are
// treated as absent so a stalled stream never overrides the REST quote.
type LivePrices struct {
	apiKey         string
	websocketURL   string
	symbols        []string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	maxAge         time.Duration
	now            func() time.Time
	metrics        repository.Metrics
	log            *applogger.Logger

	mu     sync.RWMutex
	prices map[string]lastTrade
}

type Option func(*LivePrices)

func WithTiming(reconnectDelay, pingInterval, maxAge time.Duration) Option {
	return func(p *LivePrices) {
		if reconnectDelay > 0 {
			p.reconnectDelay = reconnectDelay
		}
		if pingInterval > 0 {
			p.pingInterval = pingInterval
		}
		if maxAge > 0 {
			p.maxAge = maxAge
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(p *LivePrices) { p.now = now }
}

func WithMetrics(m repository.Metrics) Option {
	return func(p *LivePrices) { p.metrics = m }
}

func WithLogger(l *applogger.Logger) Option {
	return func(p *LivePrices) { p.log = l }
}

func New(apiKey, websocketURL string, symbols []string, opts ...Option) *LivePrices {
	p := &LivePrices{
		apiKey:         apiKey,
		websocketURL:   websocketURL,
		symbols:        symbols,
		reconnectDelay: 5 * time.Second,
		pingInterval:   30 * time.Second,
		maxAge:         15 * time.Minute,
		now:            time.Now,
		log:            applogger.Nop(),
		prices:         make(map[string]lastTrade),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// LastPrice returns the most recent trade price of symbol if it is fresh.
func (p *LivePrices) LastPrice(symbol string) (float64, time.Time, bool) {
	p.mu.RLock()
	t, ok := p.prices[symbol]
	p.mu.RUnlock()
	if !ok || p.now().Sub(t.at) > p.maxAge {
		return 0, time.Time{}, false
	}
	return t.price, t.at, true
}

// Run connects, subscribes and reads until ctx is done, reconnecting after
// every failure.
func (p *LivePrices) Run(ctx context.Context) error {
	for {
		err := p.session(ctx)
		if ctx.Err() != nil {
			return nil
		}
		p.log.Warn("finnhub session ended", applogger.Error(err))
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(p.reconnectDelay):
		}
	}
}

func (p *LivePrices) session(ctx context.Context) error {
	u, err := url.Parse(p.websocketURL)
	if err != nil {
		return fmt.Errorf("finnhub url: %w", err)
	}
	q := u.Query()
	q.Set("token", p.apiKey)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("finnhub connect: %w", err)
	}
	defer conn.Close()

	// unblock ReadMessage on shutdown
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stop:
		}
	}()

	var writeMu sync.Mutex
	for _, s := range p.symbols {
		writeMu.Lock()
		err := conn.WriteJSON(map[string]string{"type": "subscribe", "symbol": s})
		writeMu.Unlock()
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", s, err)
		}
	}
	p.log.Info("finnhub connected", applogger.Int("symbols", len(p.symbols)))

	go func() {
		ticker := time.NewTicker(p.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				writeMu.Lock()
				_ = conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
				writeMu.Unlock()
			}
		}
	}()

	for {
		_, b, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("finnhub read: %w", err)
		}
		p.apply(b)
	}
}

type fhTrade struct {
	S string  `json:"s"`
	P float64 `json:"p"`
	T int64   `json:"t"` // ms
}

type fhMessage struct {
	Type string    `json:"type"`
	Data []fhTrade `json:"data"`
}

// apply records trade frames; pings and malformed frames are ignored.
func (p *LivePrices) apply(frame []byte) {
	var m fhMessage
	if err := json.Unmarshal(frame, &m); err != nil || m.Type != "trade" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, d := range m.Data {
		if d.S == "" || d.P <= 0 {
			continue
		}
		at := time.UnixMilli(d.T)
		if cur, ok := p.prices[d.S]; ok && cur.at.After(at) {
			continue
		}
		p.prices[d.S] = lastTrade{price: d.P, at: at}
		if p.metrics != nil {
			p.metrics.RecordLastPrice(d.S, d.P)
		}
	}
}
