package indicators

import (
	"math"
	"testing"
	"time"

	"StockSignal/internal/domain/models"
)

func TestStdDev(t *testing.T) {
	assertClose(t, "sd", StdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9}), 2, 1e-12)
	assertClose(t, "empty", StdDev(nil), 0, 0)
	assertClose(t, "single", StdDev([]float64{3}), 0, 0)
}

func TestReturns_SkipsZeroBase(t *testing.T) {
	r := Returns([]float64{0, 10, 11, 0, 5})
	// 0->10 skipped, 10->11 = 0.1, 11->0 = -1, 0->5 skipped
	if len(r) != 2 {
		t.Fatalf("len=%d, want 2: %v", len(r), r)
	}
	assertClose(t, "r0", r[0], 0.1, 1e-12)
	assertClose(t, "r1", r[1], -1, 1e-12)
}

func TestAnnualizedVolatility(t *testing.T) {
	// returns alternate +10% and -10% around the mean of zero-ish values
	closes := []float64{100, 110, 99, 108.9}
	r := Returns(closes)
	want := StdDev(r) * math.Sqrt(252) * 100
	got, ok := AnnualizedVolatility(closes)
	if !ok {
		t.Fatal("expected defined volatility")
	}
	assertClose(t, "vol", got, want, 1e-12)

	flat, ok := AnnualizedVolatility(constant(30, 10))
	if !ok || flat != 0 {
		t.Fatalf("flat vol=%v,%v", flat, ok)
	}
	if _, ok := AnnualizedVolatility([]float64{1, 2}); ok {
		t.Fatal("one return is not enough")
	}
}

func TestMomentum(t *testing.T) {
	closes := make([]float64, 11)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	got, ok := Momentum(closes, 10)
	if !ok {
		t.Fatal("11 closes should be enough for period 10")
	}
	assertClose(t, "momentum", got, 10, 1e-12)

	if _, ok := Momentum(closes[:10], 10); ok {
		t.Fatal("10 closes is not enough for period 10")
	}
	if _, ok := Momentum([]float64{0, 1, 2}, 2); ok {
		t.Fatal("zero base must be undefined")
	}
}

func TestVWAP(t *testing.T) {
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := []models.Bar{
		{Date: day, High: 11, Low: 9, Close: 10, Volume: 100},
		{Date: day.AddDate(0, 0, 1), High: 21, Low: 19, Close: 20, Volume: 300},
		{Date: day.AddDate(0, 0, 2), High: 31, Low: 29, Close: 30, Volume: 0},
	}
	l := VWAP(bars, 2)
	assertWarmup(t, "vwap", l, 3, 1)
	v1, _ := l.At(1)
	assertClose(t, "vwap[1]", v1, (10*100+20*300)/400.0, 1e-12)
	v2, _ := l.At(2)
	assertClose(t, "vwap[2]", v2, 20, 1e-12)

	zero := []models.Bar{{High: 4, Low: 2, Close: 3}, {High: 6, Low: 4, Close: 5}}
	z, _ := VWAP(zero, 2).Last()
	assertClose(t, "zero volume", z, 4, 1e-12)
}
