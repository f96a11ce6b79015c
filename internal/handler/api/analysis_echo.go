package api

import (
	"context"
	"errors"
	"fmt"
	"time"

	"StockSignal/internal/domain/models"
	domrepo "StockSignal/internal/domain/repository"
	icache "StockSignal/internal/service/cache"
	"StockSignal/internal/service/marketdata"
	svcmetrics "StockSignal/internal/service/metrics"
	"StockSignal/internal/service/ratelimit"
	"StockSignal/internal/usecase"
	xhttp "StockSignal/pkg/http"
	applogger "StockSignal/pkg/logger"
	"StockSignal/pkg/util"

	"github.com/labstack/echo/v4"
)

// Analyzer is the use-case surface the analysis routes call.
type Analyzer interface {
	Analyze(ctx context.Context, p usecase.AnalyzeParams) (*usecase.AnalysisReport, error)
	Trend(ctx context.Context, symbol string, iv domrepo.Interval, n int) (models.TrendResult, error)
	Recommend(ctx context.Context, symbol string) (*usecase.RecommendationReport, error)
}

type Ranker interface {
	Rank(ctx context.Context, symbols []string) usecase.RankResult
}

// AnalysisEchoHandler serves indicators, trend, recommendation and ranking.
type AnalysisEchoHandler struct {
	logger   *applogger.Logger
	analyzer Analyzer
	ranker   Ranker
	cache    icache.BytesCache
	cacheTTL time.Duration
	rl       *ratelimit.Limiter
}

func NewAnalysisEchoHandler(logger *applogger.Logger, analyzer Analyzer, ranker Ranker) *AnalysisEchoHandler {
	svcmetrics.Register()
	if logger == nil {
		logger = applogger.Nop()
	}
	return &AnalysisEchoHandler{logger: logger, analyzer: analyzer, ranker: ranker}
}

// SetCache stores rendered indicator reports for ttl.
func (h *AnalysisEchoHandler) SetCache(c icache.BytesCache, ttl time.Duration) {
	h.cache = c
	h.cacheTTL = ttl
}

// SetLimiter enables per-client request limiting.
func (h *AnalysisEchoHandler) SetLimiter(l *ratelimit.Limiter) { h.rl = l }

func (h *AnalysisEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/indicators", h.Indicators)
	g.GET("/trend", h.Trend)
	g.GET("/recommendation", h.Recommendation)
	g.GET("/rank", h.Rank)
}

func (h *AnalysisEchoHandler) Indicators(c echo.Context) error {
	const endpoint = "indicators"
	defer observe(endpoint, time.Now())

	req := &models.IndicatorsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if err := h.allow(c, endpoint); err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	symbol := util.NormalizeSymbol(req.Symbol)
	iv := domrepo.NormalizeInterval(req.Interval)
	ctx := c.Request().Context()

	key := fmt.Sprintf("report:%s:%s:%d:%t:%d", symbol, iv, req.N, req.Forecast, req.Horizon)
	if h.cache != nil {
		if rep, err := icache.GetJSON[usecase.AnalysisReport](ctx, h.cache, key); err == nil {
			return xhttp.SuccessResponse(c, rep)
		} else if !errors.Is(err, icache.ErrCacheMiss) {
			h.logger.Warn("report cache read failed", applogger.String("key", key), applogger.Error(err))
		}
	}

	rep, err := h.analyzer.Analyze(ctx, usecase.AnalyzeParams{
		Symbol:   symbol,
		Interval: iv,
		N:        req.N,
		Forecast: req.Forecast,
		Horizon:  req.Horizon,
	})
	if err != nil {
		return h.fail(c, endpoint, symbol, err)
	}
	if h.cache != nil && rep.ForecastError == "" {
		if err := icache.SetJSON(ctx, h.cache, key, rep, h.cacheTTL); err != nil {
			h.logger.Warn("report cache write failed", applogger.String("key", key), applogger.Error(err))
		}
	}
	return xhttp.SuccessResponse(c, rep)
}

func (h *AnalysisEchoHandler) Trend(c echo.Context) error {
	const endpoint = "trend"
	defer observe(endpoint, time.Now())

	req := &models.TrendRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if err := h.allow(c, endpoint); err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	symbol := util.NormalizeSymbol(req.Symbol)
	res, err := h.analyzer.Trend(c.Request().Context(), symbol, domrepo.NormalizeInterval(req.Interval), req.N)
	if err != nil {
		return h.fail(c, endpoint, symbol, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *AnalysisEchoHandler) Recommendation(c echo.Context) error {
	const endpoint = "recommendation"
	defer observe(endpoint, time.Now())

	req := &models.RecommendationRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if err := h.allow(c, endpoint); err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	symbol := util.NormalizeSymbol(req.Symbol)
	res, err := h.analyzer.Recommend(c.Request().Context(), symbol)
	if err != nil {
		return h.fail(c, endpoint, symbol, err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	return xhttp.SuccessResponse(c, res)
}

func (h *AnalysisEchoHandler) Rank(c echo.Context) error {
	const endpoint = "rank"
	defer observe(endpoint, time.Now())

	req := &models.RankRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if err := h.allow(c, endpoint); err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	res := h.ranker.Rank(c.Request().Context(), util.SplitSymbols(req.Symbols))
	if len(res.Items) > req.Limit {
		res.Items = res.Items[:req.Limit]
	}
	for range res.Errors {
		svcmetrics.AnalysisErrors.WithLabelValues(endpoint, "symbol").Inc()
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *AnalysisEchoHandler) allow(c echo.Context, endpoint string) error {
	if h.rl == nil || h.rl.Allow(c.RealIP()+":"+endpoint) {
		return nil
	}
	svcmetrics.AnalysisErrors.WithLabelValues(endpoint, "rate_limited").Inc()
	return xhttp.TooManyRequestsError("too many requests, slow down")
}

func (h *AnalysisEchoHandler) fail(c echo.Context, endpoint, symbol string, err error) error {
	appErr, kind := toAppError(symbol, err)
	svcmetrics.AnalysisErrors.WithLabelValues(endpoint, kind).Inc()
	if appErr.Status >= 500 {
		h.logger.Error("analysis request failed",
			applogger.String("endpoint", endpoint),
			applogger.String("symbol", symbol),
			applogger.Error(err))
	} else {
		h.logger.Debug("analysis request rejected",
			applogger.String("endpoint", endpoint),
			applogger.String("symbol", symbol),
			applogger.String("reason", err.Error()))
	}
	return xhttp.AppErrorResponse(c, appErr.WithError(err))
}

// toAppError maps use-case errors to HTTP errors and a metrics kind.
func toAppError(symbol string, err error) (*xhttp.AppError, string) {
	switch {
	case errors.Is(err, usecase.ErrUnknownSymbol):
		return xhttp.NotFoundErrorf("symbol %s not found", symbol), "not_found"
	case errors.Is(err, usecase.ErrInsufficientHistory):
		return xhttp.UnprocessableErrorf("not enough price history for %s", symbol), "insufficient_history"
	case errors.Is(err, marketdata.ErrRateLimited):
		return xhttp.TooManyRequestsError("market data provider rate limit reached, retry later"), "rate_limited"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return xhttp.UpstreamError("market data request timed out"), "timeout"
	default:
		return xhttp.UpstreamError("market data provider error"), "upstream"
	}
}

func observe(endpoint string, start time.Time) {
	svcmetrics.AnalysisLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}
