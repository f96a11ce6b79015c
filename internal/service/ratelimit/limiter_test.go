package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeClock struct {
	t     time.Time
	slept []time.Duration
}

func (f *fakeClock) now() time.Time { return f.t }

func (f *fakeClock) sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.slept = append(f.slept, d)
	f.t = f.t.Add(d)
	return nil
}

func TestAllowBurstThenRefill(t *testing.T) {
	clk := &fakeClock{t: time.Unix(0, 0)}
	l := New(60, 2, WithClock(clk.now, clk.sleep)) // one token per second

	if !l.Allow("alphavantage") || !l.Allow("alphavantage") {
		t.Fatal("burst of 2 should be allowed")
	}
	if l.Allow("alphavantage") {
		t.Fatal("third request should be throttled")
	}
	if !l.Allow("other") {
		t.Fatal("buckets must be per key")
	}

	clk.t = clk.t.Add(time.Second)
	if !l.Allow("alphavantage") {
		t.Fatal("token should refill after one second")
	}
	if l.Allow("alphavantage") {
		t.Fatal("only one token refilled")
	}
}

func TestWaitSleepsUntilToken(t *testing.T) {
	clk := &fakeClock{t: time.Unix(0, 0)}
	l := New(30, 1, WithClock(clk.now, clk.sleep)) // one token per two seconds

	ctx := context.Background()
	if err := l.Wait(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	if err := l.Wait(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	if len(clk.slept) != 1 || clk.slept[0] != 2*time.Second {
		t.Fatalf("slept %v, want [2s]", clk.slept)
	}
}

func TestWaitHonoursContext(t *testing.T) {
	clk := &fakeClock{t: time.Unix(0, 0)}
	l := New(1, 1, WithClock(clk.now, clk.sleep))
	ctx, cancel := context.WithCancel(context.Background())
	_ = l.Wait(ctx, "k")
	cancel()
	if err := l.Wait(ctx, "k"); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
