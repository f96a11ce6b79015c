package models

import "time"

// TrendLabel is the direction assigned by the trend classifier.
type TrendLabel string

const (
	TrendBullish TrendLabel = "bullish"
	TrendBearish TrendLabel = "bearish"
	TrendNeutral TrendLabel = "neutral"
)

// TrendResult is derived on every request and never persisted.
type TrendResult struct {
	Label       TrendLabel `json:"label"`
	Probability float64    `json:"probability"`
	Reasons     []string   `json:"reasons"`
}

type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// RecommendationResult carries the action, its confidence (0-100) and the
// raw signal tally it was mapped from.
type RecommendationResult struct {
	Action     Action `json:"action"`
	Confidence int    `json:"confidence"`
	Reasoning  string `json:"reasoning"`
	Score      int    `json:"score"`
}

// SignalEvent is the record published for each refreshed symbol.
type SignalEvent struct {
	Symbol         string               `json:"symbol"`
	Timestamp      time.Time            `json:"timestamp"`
	Price          float64              `json:"price"`
	Recommendation RecommendationResult `json:"recommendation"`
	Trend          *TrendResult         `json:"trend,omitempty"`
}
