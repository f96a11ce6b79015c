package server

import (
	"context"
	"reflect"
	"sync"
	"testing"
	"time"

	"StockSignal/pkg/config"
	xhttp "StockSignal/pkg/http"
)

type recorder struct {
	mu    sync.Mutex
	steps []string
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	r.steps = append(r.steps, s)
	r.mu.Unlock()
}

func (r *recorder) Start()                   { r.add("scheduler start") }
func (r *recorder) Stop(ctx context.Context) { r.add("scheduler stop") }

type blockingRunner struct{ r *recorder }

func (b blockingRunner) Run(ctx context.Context) error {
	b.r.add("runner start")
	<-ctx.Done()
	return ctx.Err()
}

func TestAppRunStopsInOrder(t *testing.T) {
	cfg := &config.Config{}
	cfg.Server.ShutdownTimeout = time.Second
	rec := &recorder{}
	srv := xhttp.NewServer(nil, xhttp.WithPort(0))

	app := New(cfg, nil, srv,
		WithScheduler(rec),
		WithRunner(blockingRunner{r: rec}),
	)
	app.OnShutdown(func() { rec.add("close first") })
	app.OnShutdown(func() { rec.add("close second") })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("app did not stop")
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.steps) != 5 {
		t.Fatalf("steps = %v", rec.steps)
	}
	started := map[string]bool{rec.steps[0]: true, rec.steps[1]: true}
	if !started["runner start"] || !started["scheduler start"] {
		t.Fatalf("startup steps = %v", rec.steps[:2])
	}
	want := []string{"scheduler stop", "close second", "close first"}
	if !reflect.DeepEqual(rec.steps[2:], want) {
		t.Fatalf("shutdown steps = %v, want %v", rec.steps[2:], want)
	}
}
