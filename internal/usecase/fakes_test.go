package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"StockSignal/internal/domain/models"
	domrepo "StockSignal/internal/domain/repository"
)

func day(i int) time.Time {
	return time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
}

// trending builds n bars whose close moves by step per bar from start.
func trending(symbol string, n int, start, step float64) models.Series {
	s := models.Series{Symbol: symbol, Interval: "daily", Bars: make([]models.Bar, n)}
	for i := range s.Bars {
		c := start + step*float64(i)
		s.Bars[i] = models.Bar{Date: day(i), Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 1000}
	}
	return s
}

type fakeMarket struct {
	series       map[string]models.Series
	quotes       map[string]models.Quote
	fundamentals map[string]models.Fundamentals
	historyErr   error
}

func (f *fakeMarket) History(_ context.Context, symbol string, _ domrepo.Interval, n int) (models.Series, error) {
	if f.historyErr != nil {
		return models.Series{}, f.historyErr
	}
	s, ok := f.series[symbol]
	if !ok {
		return models.Series{}, fmt.Errorf("history %s: %w", symbol, domrepo.ErrNoData)
	}
	return s.Tail(n), nil
}

func (f *fakeMarket) Quote(_ context.Context, symbol string) (models.Quote, error) {
	q, ok := f.quotes[symbol]
	if !ok {
		return models.Quote{}, fmt.Errorf("quote %s: %w", symbol, domrepo.ErrNoData)
	}
	return q, nil
}

func (f *fakeMarket) Fundamentals(_ context.Context, symbol string) (models.Fundamentals, error) {
	v, ok := f.fundamentals[symbol]
	if !ok {
		return models.Fundamentals{}, fmt.Errorf("overview %s: %w", symbol, domrepo.ErrNoData)
	}
	return v, nil
}

type fakeForecaster struct{ err error }

func (f fakeForecaster) Forecast(_ context.Context, symbol string, dates []string, _ []float64, horizon int) (models.Forecast, error) {
	if f.err != nil {
		return models.Forecast{}, f.err
	}
	out := models.Forecast{Symbol: symbol, Model: "naive"}
	for i := 0; i < horizon; i++ {
		out.Predictions = append(out.Predictions, models.ForecastPoint{Date: dates[len(dates)-1], Price: 1})
	}
	return out, nil
}

type fakeFeed struct{ prices map[string]float64 }

func (f fakeFeed) LastPrice(symbol string) (float64, time.Time, bool) {
	p, ok := f.prices[symbol]
	return p, time.Time{}, ok
}

type fakeMetrics struct {
	mu      sync.Mutex
	signals map[string]int
	errors  map[string]int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{signals: map[string]int{}, errors: map[string]int{}}
}

func (m *fakeMetrics) RecordProviderRequest(string, string) {}
func (m *fakeMetrics) RecordCacheLookup(string, bool)       {}
func (m *fakeMetrics) RecordLastPrice(string, float64)      {}
func (m *fakeMetrics) RecordLatency(string, float64)        {}
func (m *fakeMetrics) RecordSignal(action string) {
	m.mu.Lock()
	m.signals[action]++
	m.mu.Unlock()
}
func (m *fakeMetrics) RecordError(kind string) {
	m.mu.Lock()
	m.errors[kind]++
	m.mu.Unlock()
}

type memBarStore struct {
	mu    sync.Mutex
	saved map[string][]models.Bar
	err   error
}

func newMemBarStore() *memBarStore { return &memBarStore{saved: map[string][]models.Bar{}} }

func (m *memBarStore) Init(context.Context) error { return nil }
func (m *memBarStore) SaveBars(_ context.Context, symbol string, iv domrepo.Interval, bars []models.Bar) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := symbol + ":" + string(iv)
	m.saved[key] = append(m.saved[key], bars...)
	return nil
}
func (m *memBarStore) LatestBars(context.Context, string, domrepo.Interval, int) ([]models.Bar, error) {
	return nil, errors.New("not used")
}
func (m *memBarStore) Health(context.Context) error { return nil }
func (m *memBarStore) Close() error                 { return nil }
