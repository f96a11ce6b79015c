package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"StockSignal/internal/domain/models"
	domrepo "StockSignal/internal/domain/repository"
	pkgkafka "StockSignal/pkg/kafka"
	"StockSignal/pkg/util"
)

// BarsHandler consumes bar batches from Kafka and writes them to the bar store.
//
// incoming message schema:
//
//	{"symbol":"IBM","interval":"daily","bars":[{"date":"2024-01-02","open":1,"high":1,"low":1,"close":1,"volume":1}]}
//
// date accepts YYYY-MM-DD, RFC3339 or unix seconds/millis. Weekly bars are
// keyed by the Monday of their week.
type BarsHandler struct {
	topic   string
	store   domrepo.BarStore
	metrics domrepo.Metrics
}

func NewBarsHandler(topic string, store domrepo.BarStore, metrics domrepo.Metrics) *BarsHandler {
	return &BarsHandler{topic: topic, store: store, metrics: metrics}
}

func (h *BarsHandler) Topic() string { return h.topic }

type barMessage struct {
	Symbol   string `json:"symbol"`
	Interval string `json:"interval"`
	Bars     []struct {
		Date   json.RawMessage `json:"date"`
		Open   float64         `json:"open"`
		High   float64         `json:"high"`
		Low    float64         `json:"low"`
		Close  float64         `json:"close"`
		Volume float64         `json:"volume"`
	} `json:"bars"`
}

// Handle decodes and stores one batch. Malformed batches are marked permanent
// so the consumer sends them to the DLQ without retrying.
func (h *BarsHandler) Handle(ctx context.Context, b []byte) error {
	series, iv, err := decodeBars(b)
	if err != nil {
		h.recordError("bars_decode")
		return pkgkafka.Permanent(err)
	}
	if err := h.store.SaveBars(ctx, series.Symbol, iv, series.Bars); err != nil {
		h.recordError("bars_store")
		return err
	}
	if h.metrics != nil && series.Len() > 0 {
		h.metrics.RecordLastPrice(series.Symbol, series.Bars[series.Len()-1].Close)
	}
	return nil
}

func decodeBars(b []byte) (models.Series, domrepo.Interval, error) {
	var m barMessage
	if err := json.Unmarshal(b, &m); err != nil {
		return models.Series{}, "", fmt.Errorf("decode bars: %w", err)
	}
	symbol := util.NormalizeSymbol(m.Symbol)
	if symbol == "" {
		return models.Series{}, "", fmt.Errorf("decode bars: missing symbol")
	}
	iv := domrepo.Interval(m.Interval)
	if m.Interval == "" {
		iv = domrepo.DefaultInterval()
	}
	if !domrepo.IsValidInterval(iv) {
		return models.Series{}, "", fmt.Errorf("decode bars: unsupported interval %q", m.Interval)
	}

	s := models.Series{Symbol: symbol, Interval: string(iv), Bars: make([]models.Bar, 0, len(m.Bars))}
	for i, raw := range m.Bars {
		date, ok := parseDate(raw.Date)
		if !ok {
			return models.Series{}, "", fmt.Errorf("decode bars: bad date at index %d: %s", i, raw.Date)
		}
		day := util.TruncateDay(date)
		if iv == domrepo.IntervalWeekly {
			day = util.WeekStart(date)
		}
		s.Bars = append(s.Bars, models.Bar{
			Date:   day,
			Open:   raw.Open,
			High:   raw.High,
			Low:    raw.Low,
			Close:  raw.Close,
			Volume: raw.Volume,
		})
	}
	if err := s.Validate(); err != nil {
		return models.Series{}, "", fmt.Errorf("decode bars %s: %w", symbol, err)
	}
	return s, iv, nil
}

func parseDate(raw json.RawMessage) (t time.Time, ok bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return util.ParseTime(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return util.ParseTime(n.String())
	}
	return t, false
}

func (h *BarsHandler) recordError(kind string) {
	if h.metrics != nil {
		h.metrics.RecordError(kind)
	}
}
