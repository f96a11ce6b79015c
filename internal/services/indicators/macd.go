package indicators

const (
	DefaultMACDFast   = 12
	DefaultMACDSlow   = 26
	DefaultMACDSignal = 9
)

type MACDResult struct {
	MACD      Line `json:"macd"`
	Signal    Line `json:"signal"`
	Histogram Line `json:"histogram"`
}

// MACD computes EMA(fast)-EMA(slow), a signal EMA over the defined MACD values
// only, and their difference. With fast < slow the signal starts at
// slow+signal-2.
func MACD(prices []float64, fast, slow, signal int) MACDResult {
	requirePeriod("macd fast", fast)
	requirePeriod("macd slow", slow)
	requirePeriod("macd signal", signal)

	n := len(prices)
	fastLine := EMA(prices, fast)
	slowLine := EMA(prices, slow)

	macd := make(Line, n)
	for i := range prices {
		f, okF := fastLine.At(i)
		s, okS := slowLine.At(i)
		if okF && okS {
			macd[i] = Defined(f - s)
		}
	}

	sig := make(Line, n)
	if start := macd.FirstValid(); start >= 0 {
		sig = realign(EMA(macd.Compact(), signal), start, n)
	}

	hist := make(Line, n)
	for i := range prices {
		m, okM := macd.At(i)
		s, okS := sig.At(i)
		if okM && okS {
			hist[i] = Defined(m - s)
		}
	}
	return MACDResult{MACD: macd, Signal: sig, Histogram: hist}
}

// realign maps a line computed over a compacted slice back onto an index space
// of length n, where compacted[0] corresponds to index offset.
func realign(compacted Line, offset, n int) Line {
	out := make(Line, n)
	for j, v := range compacted {
		i := offset + j
		if i < 0 || i >= n {
			continue
		}
		out[i] = v
	}
	return out
}
