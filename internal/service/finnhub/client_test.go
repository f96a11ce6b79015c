package finnhub

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestApplyKeepsLatestTrade(t *testing.T) {
	now := time.UnixMilli(1_700_000_010_000)
	p := New("k", "ws://unused", nil, WithClock(func() time.Time { return now }))

	p.apply([]byte(`{"type":"trade","data":[{"s":"IBM","p":187.1,"t":1700000005000},{"s":"IBM","p":187.3,"t":1700000009000}]}`))
	p.apply([]byte(`{"type":"trade","data":[{"s":"IBM","p":150,"t":1700000001000}]}`))
	p.apply([]byte(`{"type":"ping"}`))
	p.apply([]byte(`not json`))

	price, at, ok := p.LastPrice("IBM")
	if !ok || price != 187.3 || at.UnixMilli() != 1700000009000 {
		t.Fatalf("LastPrice = %v, %v, %v", price, at, ok)
	}
	if _, _, ok := p.LastPrice("MSFT"); ok {
		t.Fatal("unknown symbol should be absent")
	}
}

func TestStalePriceIsAbsent(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	p := New("k", "ws://unused", nil, WithClock(func() time.Time { return now }), WithTiming(0, 0, time.Minute))
	p.apply([]byte(`{"type":"trade","data":[{"s":"IBM","p":187.1,"t":1700000000000}]}`))

	now = now.Add(2 * time.Minute)
	if _, _, ok := p.LastPrice("IBM"); ok {
		t.Fatal("price older than max age should be ignored")
	}
}

func TestRunSubscribesAndReadsTrades(t *testing.T) {
	subscribed := make(chan string, 4)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("token") != "secret" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		var sub map[string]string
		if err := conn.ReadJSON(&sub); err != nil {
			return
		}
		subscribed <- sub["symbol"]
		_ = conn.WriteMessage(websocket.TextMessage,
			[]byte(`{"type":"trade","data":[{"s":"IBM","p":190.25,"t":`+strconv.FormatInt(time.Now().UnixMilli(), 10)+`}]}`))
		// hold the connection until the client goes away
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	p := New("secret", wsURL, []string{"IBM"}, WithTiming(10*time.Millisecond, time.Second, time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	select {
	case sym := <-subscribed:
		if sym != "IBM" {
			t.Fatalf("subscribed %q", sym)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no subscription received")
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		if price, _, ok := p.LastPrice("IBM"); ok {
			if price != 190.25 {
				t.Fatalf("price = %v", price)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("trade never applied")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop on cancel")
	}
}
