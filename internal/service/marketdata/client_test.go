package marketdata

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"StockSignal/internal/domain/repository"
)

const dailyBody = `{
  "Meta Data": {"2. Symbol": "IBM"},
  "Time Series (Daily)": {
    "2024-01-04": {"1. open": "161.0", "2. high": "162.0", "3. low": "160.5", "4. close": "161.10", "5. volume": "4000"},
    "2024-01-02": {"1. open": "162.8", "2. high": "163.3", "3. low": "161.2", "4. close": "162.90", "5. volume": "5000"},
    "2024-01-03": {"1. open": "162.0", "2. high": "162.4", "3. low": "160.1", "4. close": "160.50", "5. volume": "None"}
  }
}`

const quoteBody = `{"Global Quote": {
  "01. symbol": "IBM", "02. open": "186.1", "03. high": "188.0", "04. low": "185.2",
  "05. price": "187.5400", "06. volume": "3100000", "07. latest trading day": "2024-03-01",
  "08. previous close": "185.0300", "09. change": "2.51", "10. change percent": "1.3565%"}}`

const overviewBody = `{"Symbol": "IBM", "Name": "International Business Machines", "PERatio": "22.5",
  "Beta": "None", "50DayMovingAverage": "180.2", "200DayMovingAverage": "160.8", "AnalystTargetPrice": "-"}`

func newProvider(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(handler))
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "demo", WithRetries(1, time.Millisecond))
}

func byFunction(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Query().Get("function") {
	case fnDaily:
		_, _ = w.Write([]byte(dailyBody))
	case fnQuote:
		_, _ = w.Write([]byte(quoteBody))
	case fnOverview:
		_, _ = w.Write([]byte(overviewBody))
	default:
		_, _ = w.Write([]byte(`{}`))
	}
}

func TestHistory(t *testing.T) {
	c := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("apikey") != "demo" || r.URL.Query().Get("outputsize") != "compact" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		byFunction(w, r)
	})

	s, err := c.History(context.Background(), "IBM", repository.IntervalDaily, 2)
	if err != nil {
		t.Fatal(err)
	}
	if s.Len() != 2 {
		t.Fatalf("len = %d, want 2", s.Len())
	}
	if s.Bars[0].Close != 160.5 || s.Bars[1].Close != 161.1 {
		t.Fatalf("bars not ascending or not trimmed to the latest: %+v", s.Bars)
	}
	if s.Bars[0].Volume != 0 {
		t.Fatalf("missing volume should read as 0, got %v", s.Bars[0].Volume)
	}
	if err := s.Validate(); err != nil {
		t.Fatalf("provider series failed validation: %v", err)
	}
}

func TestQuoteAndFundamentals(t *testing.T) {
	c := newProvider(t, byFunction)
	ctx := context.Background()

	q, err := c.Quote(ctx, "IBM")
	if err != nil {
		t.Fatal(err)
	}
	if q.Price != 187.54 || q.PreviousClose != 185.03 || q.ChangePercent != 1.3565 {
		t.Fatalf("unexpected quote %+v", q)
	}
	if q.LatestTradingDay.Format("2006-01-02") != "2024-03-01" {
		t.Fatalf("trading day = %v", q.LatestTradingDay)
	}

	f, err := c.Fundamentals(ctx, "IBM")
	if err != nil {
		t.Fatal(err)
	}
	if f.Beta != 0 || f.AnalystTargetPrice != 0 {
		t.Fatalf("None and - must read as missing: %+v", f)
	}
	if f.FiftyDayAverage != 180.2 || f.TwoHundredDayAverage != 160.8 || f.PERatio != 22.5 {
		t.Fatalf("unexpected overview %+v", f)
	}
}

func TestUnknownSymbol(t *testing.T) {
	c := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("function") {
		case fnDaily:
			_, _ = w.Write([]byte(`{"Error Message": "Invalid API call."}`))
		case fnQuote:
			_, _ = w.Write([]byte(`{"Global Quote": {}}`))
		default:
			_, _ = w.Write([]byte(`{}`))
		}
	})
	ctx := context.Background()
	if _, err := c.History(ctx, "ZZZZ", repository.IntervalDaily, 30); !errors.Is(err, ErrNotFound) {
		t.Fatalf("history err = %v", err)
	}
	if _, err := c.Quote(ctx, "ZZZZ"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("quote err = %v", err)
	}
	if _, err := c.Fundamentals(ctx, "ZZZZ"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("overview err = %v", err)
	}
}

func TestRateLimitNoteIsRetried(t *testing.T) {
	var calls int32
	c := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			_, _ = w.Write([]byte(`{"Note": "Thank you for using Alpha Vantage! Our standard API call frequency is 5 calls per minute"}`))
			return
		}
		byFunction(w, r)
	})
	if _, err := c.Quote(context.Background(), "IBM"); err != nil {
		t.Fatalf("second attempt should succeed: %v", err)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
}

func TestRateLimitExhausted(t *testing.T) {
	c := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	if _, err := c.Quote(context.Background(), "IBM"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("err = %v, want ErrRateLimited", err)
	}
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"187.5400", 187.54, true},
		{"-0.4231%", -0.4231, true},
		{" 12 ", 12, true},
		{"None", 0, false},
		{"-", 0, false},
		{"", 0, false},
		{"abc", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseNumber(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("parseNumber(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
