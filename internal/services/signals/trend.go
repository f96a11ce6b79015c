// Package signals turns indicator readings into a trend label or a
// BUY/SELL/HOLD recommendation. Both scorers are rule tallies and never fail:
// missing readings are replaced with neutral defaults.
package signals

import (
	"fmt"
	"math"

	"StockSignal/internal/domain/models"
	"StockSignal/internal/services/indicators"
)

const (
	trendMaxPoints      = 5
	bullishAbove        = 60.0
	bearishBelow        = 40.0
	highVolatilityAbove = 30.0
	rsiOversold         = 30.0
	rsiOverbought       = 70.0
	neutralRSI          = 50.0
)

// TrendInputs are precomputed readings for the latest bar. NaN marks a
// reading that could not be computed.
type TrendInputs struct {
	RSI        float64
	SMA20      float64
	SMA50      float64
	Momentum   float64
	Volatility float64
}

// TrendInputsFromCloses derives the classifier inputs from a close series.
func TrendInputsFromCloses(closes []float64) TrendInputs {
	in := TrendInputs{RSI: math.NaN(), SMA20: math.NaN(), SMA50: math.NaN(), Momentum: math.NaN(), Volatility: math.NaN()}
	if v, ok := indicators.LatestRSI(closes, indicators.DefaultRSIPeriod); ok {
		in.RSI = v
	}
	if v, ok := indicators.SMA(closes, indicators.DefaultShortSMA).Last(); ok {
		in.SMA20 = v
	}
	if v, ok := indicators.SMA(closes, indicators.DefaultLongSMA).Last(); ok {
		in.SMA50 = v
	}
	if v, ok := indicators.Momentum(closes, indicators.DefaultMomentumPeriod); ok {
		in.Momentum = v
	}
	if v, ok := indicators.AnnualizedVolatility(closes); ok {
		in.Volatility = v
	}
	return in
}

// ClassifyTrend scores RSI (2 points), the 20/50 SMA crossover (2 points) and
// momentum (1 point) and labels the resulting percentage. Volatility only
// adds narration.
func ClassifyTrend(in TrendInputs) models.TrendResult {
	rsi := orDefault(in.RSI, neutralRSI)
	momentum := orDefault(in.Momentum, 0)
	volatility := orDefault(in.Volatility, 0)
	haveMA := !math.IsNaN(in.SMA20) && !math.IsNaN(in.SMA50)

	points := 0
	reasons := make([]string, 0, 4)

	switch {
	case rsi < rsiOversold:
		points += 2
		reasons = append(reasons, fmt.Sprintf("RSI at %.1f is oversold, suggesting a potential rebound", rsi))
	case rsi > rsiOverbought:
		reasons = append(reasons, fmt.Sprintf("RSI at %.1f is overbought, suggesting a potential pullback", rsi))
	default:
		points++
		reasons = append(reasons, fmt.Sprintf("RSI at %.1f is in neutral territory", rsi))
	}

	switch {
	case !haveMA:
		reasons = append(reasons, "Not enough history for a moving average crossover")
	case in.SMA20 > in.SMA50:
		points += 2
		reasons = append(reasons, "20-day SMA above 50-day SMA (bullish crossover)")
	default:
		reasons = append(reasons, "20-day SMA below 50-day SMA (bearish crossover)")
	}

	switch {
	case momentum > 0:
		points++
		reasons = append(reasons, fmt.Sprintf("Positive momentum of %.2f%% over %d days", momentum, indicators.DefaultMomentumPeriod))
	case momentum < 0:
		reasons = append(reasons, fmt.Sprintf("Negative momentum of %.2f%% over %d days", momentum, indicators.DefaultMomentumPeriod))
	default:
		reasons = append(reasons, "No price momentum")
	}

	if volatility > highVolatilityAbove {
		reasons = append(reasons, fmt.Sprintf("High volatility (%.1f%%) indicates increased risk", volatility))
	} else {
		reasons = append(reasons, fmt.Sprintf("Moderate volatility (%.1f%%)", volatility))
	}

	probability := float64(points) / trendMaxPoints * 100
	label := models.TrendNeutral
	switch {
	case probability > bullishAbove:
		label = models.TrendBullish
	case probability < bearishBelow:
		label = models.TrendBearish
	}
	return models.TrendResult{Label: label, Probability: probability, Reasons: reasons}
}

func orDefault(v, def float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return def
	}
	return v
}
