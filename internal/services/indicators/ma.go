package indicators

const (
	DefaultShortSMA = 20
	DefaultLongSMA  = 50
)

// SMA is the arithmetic mean of the trailing period values ending at each index.
func SMA(prices []float64, period int) Line {
	requirePeriod("sma", period)
	out := make(Line, len(prices))
	if len(prices) < period {
		return out
	}
	var sum float64
	for i, p := range prices {
		sum += p
		if i >= period {
			sum -= prices[i-period]
		}
		if i >= period-1 {
			out[i] = Defined(sum / float64(period))
		}
	}
	return out
}

// EMA is seeded with the SMA of the first period values at index period-1 and
// then smoothed with k = 2/(period+1).
func EMA(prices []float64, period int) Line {
	requirePeriod("ema", period)
	out := make(Line, len(prices))
	if len(prices) < period {
		return out
	}
	var seed float64
	for _, p := range prices[:period] {
		seed += p
	}
	prev := seed / float64(period)
	out[period-1] = Defined(prev)

	k := 2 / float64(period+1)
	for i := period; i < len(prices); i++ {
		prev = prices[i]*k + prev*(1-k)
		out[i] = Defined(prev)
	}
	return out
}
