package models

// Requests for the analysis HTTP endpoints. Bound from query params, then
// defaults applied and validated.

type IndicatorsRequest struct {
	Symbol   string `query:"symbol" json:"symbol" validate:"required,symbol"`
	N        int    `query:"n" json:"n" default:"120" validate:"gte=26,lte=2000"`
	Interval string `query:"interval" json:"interval" default:"daily" validate:"oneof=daily weekly"`
	Forecast bool   `query:"forecast" json:"forecast"`
	Horizon  int    `query:"horizon" json:"horizon" default:"7" validate:"gte=1,lte=60"`
}

type TrendRequest struct {
	Symbol   string `query:"symbol" json:"symbol" validate:"required,symbol"`
	N        int    `query:"n" json:"n" default:"60" validate:"gte=26,lte=2000"`
	Interval string `query:"interval" json:"interval" default:"daily" validate:"oneof=daily weekly"`
}

type RecommendationRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required,symbol"`
}

type RankRequest struct {
	Symbols string `query:"symbols" json:"symbols" validate:"required,symbols"`
	Limit   int    `query:"limit" json:"limit" default:"20" validate:"gte=1,lte=100"`
}
