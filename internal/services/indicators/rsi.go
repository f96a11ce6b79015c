package indicators

import (
	"fmt"
	"math"
)

const DefaultRSIPeriod = 14

// RSIStrategy selects how average gain and loss are formed.
type RSIStrategy int

const (
	// RSIWindowed averages exactly the trailing period changes at each index,
	// with no smoothing carried between windows.
	RSIWindowed RSIStrategy = iota
	// RSIWilder seeds the averages over the first period changes and then
	// applies Wilder's recursive smoothing.
	RSIWilder
)

func (s RSIStrategy) String() string {
	switch s {
	case RSIWindowed:
		return "windowed"
	case RSIWilder:
		return "wilder-smoothed"
	default:
		return fmt.Sprintf("RSIStrategy(%d)", int(s))
	}
}

// ParseRSIStrategy accepts the names returned by String.
func ParseRSIStrategy(name string) (RSIStrategy, error) {
	switch name {
	case "windowed", "":
		return RSIWindowed, nil
	case "wilder", "wilder-smoothed":
		return RSIWilder, nil
	}
	return 0, fmt.Errorf("unknown rsi strategy %q", name)
}

// RSI returns the relative strength index line. Values are defined from index
// period onward.
func RSI(prices []float64, period int, strategy RSIStrategy) Line {
	requirePeriod("rsi", period)
	switch strategy {
	case RSIWindowed:
		return windowedRSI(prices, period)
	case RSIWilder:
		return wilderRSI(prices, period)
	default:
		panic(fmt.Sprintf("indicators: unknown rsi strategy %d", int(strategy)))
	}
}

// LatestRSI is the windowed RSI over the trailing period changes of prices.
func LatestRSI(prices []float64, period int) (float64, bool) {
	requirePeriod("rsi", period)
	if len(prices) < period+1 {
		return math.NaN(), false
	}
	gain, loss := windowAverages(prices[len(prices)-period-1:])
	return rsiFromAverages(gain, loss), true
}

func windowedRSI(prices []float64, period int) Line {
	out := make(Line, len(prices))
	for i := period; i < len(prices); i++ {
		gain, loss := windowAverages(prices[i-period : i+1])
		out[i] = Defined(rsiFromAverages(gain, loss))
	}
	return out
}

// windowAverages returns mean gain and mean absolute loss over the
// len(window)-1 changes in window.
func windowAverages(window []float64) (gain, loss float64) {
	for j := 1; j < len(window); j++ {
		change := window[j] - window[j-1]
		if change > 0 {
			gain += change
		} else {
			loss -= change
		}
	}
	n := float64(len(window) - 1)
	return gain / n, loss / n
}

func wilderRSI(prices []float64, period int) Line {
	out := make(Line, len(prices))
	if len(prices) < period+1 {
		return out
	}
	gain, loss := windowAverages(prices[:period+1])
	out[period] = Defined(rsiFromAverages(gain, loss))

	p := float64(period)
	for i := period + 1; i < len(prices); i++ {
		change := prices[i] - prices[i-1]
		var g, l float64
		if change > 0 {
			g = change
		} else {
			l = -change
		}
		gain = (gain*(p-1) + g) / p
		loss = (loss*(p-1) + l) / p
		out[i] = Defined(rsiFromAverages(gain, loss))
	}
	return out
}

// rsiFromAverages maps a zero average loss to 100, including a flat series.
func rsiFromAverages(gain, loss float64) float64 {
	if loss == 0 {
		return 100
	}
	rs := gain / loss
	return 100 - 100/(1+rs)
}
