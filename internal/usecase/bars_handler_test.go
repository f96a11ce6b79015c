package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	pkgkafka "StockSignal/pkg/kafka"
)

func TestBarsHandlerStoresBatch(t *testing.T) {
	store := newMemBarStore()
	metrics := newFakeMetrics()
	h := NewBarsHandler("bars", store, metrics)

	msg := `{"symbol":" ibm ","bars":[
		{"date":"2024-01-02","open":1,"high":2,"low":1,"close":1.5,"volume":10},
		{"date":"2024-01-03T15:30:00Z","open":1.5,"high":2,"low":1,"close":1.8,"volume":12}]}`
	if err := h.Handle(context.Background(), []byte(msg)); err != nil {
		t.Fatal(err)
	}
	bars := store.saved["IBM:daily"]
	if len(bars) != 2 {
		t.Fatalf("saved = %v", store.saved)
	}
	if want := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC); !bars[1].Date.Equal(want) {
		t.Fatalf("date = %v, want %v", bars[1].Date, want)
	}
	if h.Topic() != "bars" {
		t.Fatalf("topic = %s", h.Topic())
	}
}

func TestBarsHandlerWeeklyKeysByMonday(t *testing.T) {
	store := newMemBarStore()
	h := NewBarsHandler("bars", store, nil)
	msg := `{"symbol":"IBM","interval":"weekly","bars":[{"date":"2024-01-05","open":1,"high":1,"low":1,"close":1,"volume":1}]}`
	if err := h.Handle(context.Background(), []byte(msg)); err != nil {
		t.Fatal(err)
	}
	bars := store.saved["IBM:weekly"]
	if len(bars) != 1 || !bars[0].Date.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("weekly bars = %v", bars)
	}
}

func TestBarsHandlerMalformedIsPermanent(t *testing.T) {
	cases := map[string]string{
		"not json":     `{`,
		"no symbol":    `{"bars":[]}`,
		"bad interval": `{"symbol":"IBM","interval":"hourly","bars":[]}`,
		"bad date":     `{"symbol":"IBM","bars":[{"date":"yesterday","close":1}]}`,
		"unordered": `{"symbol":"IBM","bars":[
			{"date":"2024-01-03","open":1,"high":1,"low":1,"close":1,"volume":1},
			{"date":"2024-01-02","open":1,"high":1,"low":1,"close":1,"volume":1}]}`,
	}
	for name, msg := range cases {
		t.Run(name, func(t *testing.T) {
			metrics := newFakeMetrics()
			h := NewBarsHandler("bars", newMemBarStore(), metrics)
			err := h.Handle(context.Background(), []byte(msg))
			if err == nil || !pkgkafka.IsPermanent(err) {
				t.Fatalf("err = %v, want permanent", err)
			}
			if metrics.errors["bars_decode"] != 1 {
				t.Fatalf("errors = %v", metrics.errors)
			}
		})
	}
}

func TestBarsHandlerStoreErrorIsRetryable(t *testing.T) {
	store := newMemBarStore()
	store.err = errors.New("clickhouse unavailable")
	h := NewBarsHandler("bars", store, nil)
	msg := `{"symbol":"IBM","bars":[{"date":"2024-01-02","open":1,"high":1,"low":1,"close":1,"volume":1}]}`
	err := h.Handle(context.Background(), []byte(msg))
	if err == nil || pkgkafka.IsPermanent(err) {
		t.Fatalf("err = %v, want retryable", err)
	}
}

func TestBarSync(t *testing.T) {
	store := newMemBarStore()
	n, err := NewBarSync(newMarket(), store, 40, nil).Sync(context.Background(), []string{"UP", "NOPE", "DOWN"})
	if n != 2 {
		t.Fatalf("stored = %d, want 2", n)
	}
	if err == nil {
		t.Fatal("expected the NOPE failure to be reported")
	}
	if len(store.saved["UP:daily"]) != 40 || len(store.saved["DOWN:daily"]) != 30 {
		t.Fatalf("saved UP=%d DOWN=%d", len(store.saved["UP:daily"]), len(store.saved["DOWN:daily"]))
	}
}
