package indicators

import (
	"math"

	"StockSignal/internal/domain/models"
)

const (
	TradingDaysPerYear    = 252
	DefaultMomentumPeriod = 10
)

// Mean returns 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdDev is the population standard deviation of values. Empty input yields 0.
func StdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := Mean(values)
	var sq float64
	for _, v := range values {
		d := v - m
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(values)))
}

// Returns are simple period-over-period returns. Changes from a zero close are
// skipped.
func Returns(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	out := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			continue
		}
		out = append(out, (closes[i]-closes[i-1])/closes[i-1])
	}
	return out
}

// AnnualizedVolatility is stdev(returns) * sqrt(252) * 100. It needs at least
// two returns.
func AnnualizedVolatility(closes []float64) (float64, bool) {
	r := Returns(closes)
	if len(r) < 2 {
		return math.NaN(), false
	}
	return StdDev(r) * math.Sqrt(TradingDaysPerYear) * 100, true
}

// Momentum is the percent change between the last close and the close period
// bars earlier. It needs period+1 closes and a non-zero base.
func Momentum(closes []float64, period int) (float64, bool) {
	requirePeriod("momentum", period)
	if len(closes) < period+1 {
		return math.NaN(), false
	}
	last := closes[len(closes)-1]
	base := closes[len(closes)-1-period]
	if base == 0 {
		return math.NaN(), false
	}
	return (last - base) / base * 100, true
}

// VWAP is the rolling volume-weighted typical price over period bars. A window
// with zero total volume falls back to the plain mean typical price.
func VWAP(bars []models.Bar, period int) Line {
	requirePeriod("vwap", period)
	out := make(Line, len(bars))
	for i := period - 1; i < len(bars); i++ {
		var pv, vol, typical float64
		for _, b := range bars[i-period+1 : i+1] {
			tp := (b.High + b.Low + b.Close) / 3
			pv += tp * b.Volume
			vol += b.Volume
			typical += tp
		}
		if vol == 0 {
			out[i] = Defined(typical / float64(period))
			continue
		}
		out[i] = Defined(pv / vol)
	}
	return out
}
