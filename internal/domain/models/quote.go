package models

import "time"

// Quote is the latest trading-day snapshot for a symbol.
type Quote struct {
	Symbol           string    `json:"symbol"`
	Price            float64   `json:"price"`
	PreviousClose    float64   `json:"previous_close"`
	Open             float64   `json:"open"`
	High             float64   `json:"high"`
	Low              float64   `json:"low"`
	Volume           float64   `json:"volume"`
	ChangePercent    float64   `json:"change_percent"`
	LatestTradingDay time.Time `json:"latest_trading_day"`
}

// Fundamentals is the company overview subset the recommendation scorer reads.
// Zero means the provider did not report the field.
type Fundamentals struct {
	Symbol               string  `json:"symbol"`
	Name                 string  `json:"name"`
	FiftyDayAverage      float64 `json:"fifty_day_average"`
	TwoHundredDayAverage float64 `json:"two_hundred_day_average"`
	Beta                 float64 `json:"beta"`
	PERatio              float64 `json:"pe_ratio"`
	AnalystTargetPrice   float64 `json:"analyst_target_price"`
}

// ForecastPoint is one predicted close.
type ForecastPoint struct {
	Date  string  `json:"date"`
	Price float64 `json:"price"`
}

// Forecast is the response of the external forecasting model.
type Forecast struct {
	Symbol      string          `json:"symbol"`
	Model       string          `json:"model"`
	Predictions []ForecastPoint `json:"predictions"`
}
