package indicators

import (
	"fmt"
	"testing"
)

func TestRealign(t *testing.T) {
	compacted := Line{{}, {}, Defined(7), Defined(8)}
	got := realign(compacted, 3, 8)
	if len(got) != 8 {
		t.Fatalf("len=%d", len(got))
	}
	if got.FirstValid() != 5 {
		t.Fatalf("first valid at %d, want 5", got.FirstValid())
	}
	if v, _ := got.At(6); v != 8 {
		t.Fatalf("got[6]=%v, want 8", v)
	}
	if got.CountValid() != 2 {
		t.Fatalf("CountValid=%d", got.CountValid())
	}
}

func TestRealign_TruncatesPastEnd(t *testing.T) {
	got := realign(Line{Defined(1), Defined(2), Defined(3)}, 2, 4)
	if got.CountValid() != 2 || got[3].Float != 2 {
		t.Fatalf("unexpected %+v", got)
	}
}

func TestMACD_Alignment(t *testing.T) {
	prices := sample(100)
	r := MACD(prices, DefaultMACDFast, DefaultMACDSlow, DefaultMACDSignal)
	assertWarmup(t, "macd", r.MACD, len(prices), DefaultMACDSlow-1)
	assertWarmup(t, "signal", r.Signal, len(prices), DefaultMACDSlow+DefaultMACDSignal-2)
	assertWarmup(t, "histogram", r.Histogram, len(prices), DefaultMACDSlow+DefaultMACDSignal-2)

	for i := range prices {
		m, okM := r.MACD.At(i)
		s, okS := r.Signal.At(i)
		h, okH := r.Histogram.At(i)
		if okH != (okM && okS) {
			t.Fatalf("histogram definedness mismatch at %d", i)
		}
		if okH {
			assertClose(t, fmt.Sprintf("hist[%d]", i), h, m-s, 1e-12)
		}
	}
}

func TestMACD_SignalIgnoresUndefinedPrefix(t *testing.T) {
	prices := sample(60)
	r := MACD(prices, 12, 26, 9)

	// The first signal value is the plain mean of the first nine MACD values.
	var sum float64
	for i := 25; i < 34; i++ {
		v, _ := r.MACD.At(i)
		sum += v
	}
	first, ok := r.Signal.At(33)
	if !ok {
		t.Fatal("signal undefined at slow+signal-2")
	}
	assertClose(t, "signal seed", first, sum/9, 1e-9)

	// Running the EMA over the zero-padded line would produce different values.
	padded := make([]float64, len(prices))
	for i := range padded {
		padded[i], _ = r.MACD.At(i)
		if !r.MACD[i].Valid {
			padded[i] = 0
		}
	}
	wrong, _ := EMA(padded, 9).At(33)
	if wrong == first {
		t.Fatal("signal equals the zero-padded EMA; alignment is not applied")
	}
}

func TestMACD_ShortInput(t *testing.T) {
	r := MACD(sample(30), 12, 26, 9)
	if r.MACD.CountValid() != 5 {
		t.Fatalf("macd defined count=%d, want 5", r.MACD.CountValid())
	}
	if r.Signal.CountValid() != 0 || r.Histogram.CountValid() != 0 {
		t.Fatal("signal and histogram need slow+signal-1 prices")
	}
	if MACD(sample(10), 12, 26, 9).MACD.CountValid() != 0 {
		t.Fatal("macd should be undefined below slow period")
	}
}
