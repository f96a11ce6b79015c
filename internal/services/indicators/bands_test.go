package indicators

import (
	"fmt"
	"testing"

	"github.com/markcheno/go-talib"
)

func TestBollinger_MiddleIsSMA(t *testing.T) {
	prices := sample(90)
	b := Bollinger(prices, DefaultBollingerPeriod, DefaultBollingerK)
	sma := SMA(prices, DefaultBollingerPeriod)
	for name, l := range map[string]Line{"upper": b.Upper, "middle": b.Middle, "lower": b.Lower} {
		assertWarmup(t, name, l, len(prices), DefaultBollingerPeriod-1)
	}
	for i := range prices {
		if b.Middle[i] != sma[i] {
			t.Fatalf("middle[%d]=%+v, sma=%+v", i, b.Middle[i], sma[i])
		}
	}
}

func TestBollinger_PopulationStdDev(t *testing.T) {
	// window {2,4,4,4,5,5,7,9}: mean 5, population sd 2
	prices := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	b := Bollinger(prices, 8, 2)
	u, _ := b.Upper.Last()
	m, _ := b.Middle.Last()
	l, _ := b.Lower.Last()
	assertClose(t, "upper", u, 9, 1e-12)
	assertClose(t, "middle", m, 5, 1e-12)
	assertClose(t, "lower", l, 1, 1e-12)
}

func TestBollinger_MatchTalib(t *testing.T) {
	prices := sample(150)
	b := Bollinger(prices, 20, 2)
	upper, middle, lower := talib.BBands(prices, 20, 2.0, 2.0, talib.SMA)
	for i := 19; i < len(prices); i++ {
		u, _ := b.Upper.At(i)
		m, _ := b.Middle.At(i)
		l, _ := b.Lower.At(i)
		assertClose(t, fmt.Sprintf("upper[%d]", i), u, upper[i], 1e-6)
		assertClose(t, fmt.Sprintf("middle[%d]", i), m, middle[i], 1e-6)
		assertClose(t, fmt.Sprintf("lower[%d]", i), l, lower[i], 1e-6)
	}
}

func TestBollinger_ShortInput(t *testing.T) {
	b := Bollinger([]float64{1, 2, 3}, 20, 2)
	if b.Upper.CountValid()+b.Middle.CountValid()+b.Lower.CountValid() != 0 {
		t.Fatal("all bands should be undefined")
	}
}
