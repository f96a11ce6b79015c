package signals

import (
	"fmt"
	"math"
	"strings"

	"StockSignal/internal/domain/models"
	"StockSignal/internal/services/indicators"
)

const (
	InsufficientDataReasoning = "Insufficient data for recommendation"
	mixedSignalsReasoning     = "Mixed signals, no strong directional bias"

	actionThreshold   = 3
	baseConfidence    = 60
	holdConfidence    = 50
	confidencePerVote = 5
	maxConfidence     = 90
	maxReasons        = 3

	targetUpsideAbove    = 15.0
	targetDownsideBelow  = -10.0
	highPEAbove          = 50.0
	lowPEBelow           = 15.0
	dailyMoveThreshold   = 5.0
	recentClosesRequired = indicators.DefaultRSIPeriod + 1
)

// RecommendationInputs hold the quote, fundamentals and trailing RSI for one
// symbol. Zero or NaN marks a value the provider did not report.
type RecommendationInputs struct {
	Price                float64
	PreviousClose        float64
	FiftyDayAverage      float64
	TwoHundredDayAverage float64
	Beta                 float64
	PERatio              float64
	TargetPrice          float64
	RSI                  float64
}

// RecommendationInputsFrom assembles the scorer inputs. The RSI is the
// windowed 14-period value over recentCloses and is left NaN when fewer than
// 15 closes are available.
func RecommendationInputsFrom(q models.Quote, f models.Fundamentals, recentCloses []float64) RecommendationInputs {
	in := RecommendationInputs{
		Price:                q.Price,
		PreviousClose:        q.PreviousClose,
		FiftyDayAverage:      f.FiftyDayAverage,
		TwoHundredDayAverage: f.TwoHundredDayAverage,
		Beta:                 f.Beta,
		PERatio:              f.PERatio,
		TargetPrice:          f.AnalystTargetPrice,
		RSI:                  math.NaN(),
	}
	if len(recentCloses) >= recentClosesRequired {
		in.RSI, _ = indicators.LatestRSI(recentCloses, indicators.DefaultRSIPeriod)
	}
	return in
}

// Normalize applies the neutral defaults: beta 1 and RSI 50 when missing,
// and zero for any other non-finite or negative value.
func (in RecommendationInputs) Normalize() RecommendationInputs {
	out := in
	for _, p := range []*float64{&out.Price, &out.PreviousClose, &out.FiftyDayAverage, &out.TwoHundredDayAverage, &out.PERatio, &out.TargetPrice} {
		if !present(*p) {
			*p = 0
		}
	}
	if !present(out.Beta) {
		out.Beta = 1
	}
	out.RSI = orDefault(out.RSI, neutralRSI)
	return out
}

// Sufficient reports whether price, previous close and both long averages
// are present.
func (in RecommendationInputs) Sufficient() bool {
	return present(in.Price) && present(in.PreviousClose) &&
		present(in.FiftyDayAverage) && present(in.TwoHundredDayAverage)
}

// Recommend runs the signal tally and maps it to an action. BUY and SELL
// confidence is capped at 90; HOLD confidence is not.
func Recommend(raw RecommendationInputs) models.RecommendationResult {
	if !raw.Sufficient() {
		return models.RecommendationResult{
			Action:     models.ActionHold,
			Confidence: holdConfidence,
			Reasoning:  InsufficientDataReasoning,
		}
	}
	in := raw.Normalize()

	score := 0
	var reasons []string
	vote := func(delta int, reason string) {
		score += delta
		reasons = append(reasons, reason)
	}

	switch {
	case in.FiftyDayAverage > in.TwoHundredDayAverage:
		vote(1, "50-day average above 200-day average (golden cross)")
	case in.FiftyDayAverage < in.TwoHundredDayAverage:
		vote(-1, "50-day average below 200-day average (death cross)")
	}

	if in.Price > in.FiftyDayAverage {
		vote(1, "Price above 50-day average (upward momentum)")
	} else {
		vote(-1, "Price below 50-day average (downward momentum)")
	}

	switch {
	case in.RSI > rsiOverbought:
		vote(-2, fmt.Sprintf("RSI at %.1f indicates overbought", in.RSI))
	case in.RSI < rsiOversold:
		vote(2, fmt.Sprintf("RSI at %.1f indicates oversold", in.RSI))
	}

	if in.TargetPrice > 0 {
		diff := (in.TargetPrice - in.Price) / in.Price * 100
		switch {
		case diff > targetUpsideAbove:
			vote(2, fmt.Sprintf("Analyst target implies %.1f%% upside", diff))
		case diff < targetDownsideBelow:
			vote(-2, fmt.Sprintf("Analyst target implies %.1f%% downside", -diff))
		}
	}

	if in.PERatio > 0 {
		switch {
		case in.PERatio > highPEAbove:
			vote(-1, fmt.Sprintf("High P/E ratio of %.1f suggests overvaluation", in.PERatio))
		case in.PERatio < lowPEBelow:
			vote(1, fmt.Sprintf("Low P/E ratio of %.1f suggests undervaluation", in.PERatio))
		}
	}

	change := (in.Price - in.PreviousClose) / in.PreviousClose * 100
	switch {
	case change > dailyMoveThreshold:
		vote(-1, fmt.Sprintf("Up %.1f%% today, possible profit-taking", change))
	case change < -dailyMoveThreshold:
		vote(1, fmt.Sprintf("Down %.1f%% today, potential buying opportunity", -change))
	}

	res := models.RecommendationResult{Score: score, Reasoning: reasoning(reasons)}
	switch {
	case score >= actionThreshold:
		res.Action = models.ActionBuy
		res.Confidence = min(maxConfidence, baseConfidence+score*confidencePerVote)
	case score <= -actionThreshold:
		res.Action = models.ActionSell
		res.Confidence = min(maxConfidence, baseConfidence-score*confidencePerVote)
	default:
		res.Action = models.ActionHold
		res.Confidence = holdConfidence + abs(score)*confidencePerVote
	}
	return res
}

func reasoning(reasons []string) string {
	if len(reasons) == 0 {
		return mixedSignalsReasoning
	}
	if len(reasons) > maxReasons {
		reasons = reasons[:maxReasons]
	}
	return strings.Join(reasons, ". ")
}

func present(v float64) bool {
	return v > 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
