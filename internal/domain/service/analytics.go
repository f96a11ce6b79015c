package service

import (
	"context"

	"StockSignal/internal/domain/models"
)

// Forecaster predicts future closes from a close history.
type Forecaster interface {
	Forecast(ctx context.Context, symbol string, dates []string, closes []float64, horizon int) (models.Forecast, error)
}
