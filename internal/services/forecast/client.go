// Package forecast calls the external price forecasting model.
package forecast

import (
	"context"
	"fmt"
	"time"

	"StockSignal/internal/domain/models"
	domsvc "StockSignal/internal/domain/service"
)

// HTTPForecaster posts the close history to the model service and returns
// its predictions.
type HTTPForecaster struct {
	base     *httpBase
	attempts int
	backoff  time.Duration
}

func NewHTTPForecaster(baseURL string, timeout time.Duration, attempts int) *HTTPForecaster {
	return &HTTPForecaster{
		base:     newHTTPBase(baseURL, timeout),
		attempts: attempts,
		backoff:  200 * time.Millisecond,
	}
}

type forecastReq struct {
	Symbol  string    `json:"symbol"`
	Dates   []string  `json:"dates"`
	Closes  []float64 `json:"closes"`
	Horizon int       `json:"horizon"`
}

func (f *HTTPForecaster) Forecast(ctx context.Context, symbol string, dates []string, closes []float64, horizon int) (models.Forecast, error) {
	if len(dates) != len(closes) {
		return models.Forecast{}, fmt.Errorf("forecast %s: %d dates for %d closes", symbol, len(dates), len(closes))
	}
	var out models.Forecast
	req := forecastReq{Symbol: symbol, Dates: dates, Closes: closes, Horizon: horizon}
	if err := f.base.postJSONWithRetry(ctx, "/forecast", req, &out, f.attempts, f.backoff); err != nil {
		return models.Forecast{}, fmt.Errorf("forecast %s: %w", symbol, err)
	}
	if out.Symbol == "" {
		out.Symbol = symbol
	}
	if len(out.Predictions) > horizon {
		out.Predictions = out.Predictions[:horizon]
	}
	return out, nil
}

var _ domsvc.Forecaster = (*HTTPForecaster)(nil)
