package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"StockSignal/internal/domain/models"
	domrepo "StockSignal/internal/domain/repository"
	icache "StockSignal/internal/service/cache"
	"StockSignal/internal/service/marketdata"
	"StockSignal/internal/service/ratelimit"
	"StockSignal/internal/usecase"

	"github.com/labstack/echo/v4"
)

type fakeAnalyzer struct {
	err     error
	calls   int
	lastReq usecase.AnalyzeParams
}

func (f *fakeAnalyzer) Analyze(_ context.Context, p usecase.AnalyzeParams) (*usecase.AnalysisReport, error) {
	f.calls++
	f.lastReq = p
	if f.err != nil {
		return nil, f.err
	}
	return &usecase.AnalysisReport{Symbol: p.Symbol, Interval: string(p.Interval), Dates: []string{"2024-01-02"}}, nil
}

func (f *fakeAnalyzer) Trend(_ context.Context, symbol string, _ domrepo.Interval, _ int) (models.TrendResult, error) {
	if f.err != nil {
		return models.TrendResult{}, f.err
	}
	return models.TrendResult{Label: models.TrendBullish, Probability: 80}, nil
}

func (f *fakeAnalyzer) Recommend(_ context.Context, symbol string) (*usecase.RecommendationReport, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &usecase.RecommendationReport{Symbol: symbol, Recommendation: models.RecommendationResult{Action: models.ActionBuy, Confidence: 80}}, nil
}

type fakeRanker struct{ got []string }

func (f *fakeRanker) Rank(_ context.Context, symbols []string) usecase.RankResult {
	f.got = symbols
	res := usecase.RankResult{Errors: map[string]string{}}
	for _, s := range symbols {
		res.Items = append(res.Items, usecase.RecommendationReport{Symbol: s})
	}
	return res
}

func newTestServer(h *AnalysisEchoHandler) *echo.Echo {
	e := echo.New()
	h.RegisterRoutes(e)
	return e
}

func get(e *echo.Echo, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

type envelope struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
	return env
}

func TestIndicatorsAppliesDefaults(t *testing.T) {
	a := &fakeAnalyzer{}
	e := newTestServer(NewAnalysisEchoHandler(nil, a, &fakeRanker{}))

	rec := get(e, "/api/indicators?symbol=ibm")
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	want := usecase.AnalyzeParams{Symbol: "IBM", Interval: domrepo.IntervalDaily, N: 120, Horizon: 7}
	if a.lastReq != want {
		t.Fatalf("params = %+v, want %+v", a.lastReq, want)
	}
}

func TestIndicatorsValidation(t *testing.T) {
	e := newTestServer(NewAnalysisEchoHandler(nil, &fakeAnalyzer{}, &fakeRanker{}))
	for _, target := range []string{
		"/api/indicators",
		"/api/indicators?symbol=IBM&n=10",
		"/api/indicators?symbol=IBM&interval=hourly",
		"/api/indicators?symbol=$$$",
		"/api/trend?symbol=",
		"/api/rank?symbols=,,",
	} {
		if rec := get(e, target); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status=%d, want 400", target, rec.Code)
		}
	}
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
		code string
	}{
		{fmt.Errorf("ZZZ: %w", usecase.ErrUnknownSymbol), http.StatusNotFound, "ERR_NOT_FOUND"},
		{fmt.Errorf("IBM has 3 bars: %w", usecase.ErrInsufficientHistory), http.StatusUnprocessableEntity, "ERR_UNPROCESSABLE"},
		{fmt.Errorf("history: %w", marketdata.ErrRateLimited), http.StatusTooManyRequests, "ERR_RATE_LIMITED"},
		{context.DeadlineExceeded, http.StatusBadGateway, "ERR_UPSTREAM"},
		{errors.New("connection reset"), http.StatusBadGateway, "ERR_UPSTREAM"},
	}
	for _, tc := range cases {
		e := newTestServer(NewAnalysisEchoHandler(nil, &fakeAnalyzer{err: tc.err}, &fakeRanker{}))
		for _, target := range []string{"/api/indicators?symbol=IBM", "/api/trend?symbol=IBM", "/api/recommendation?symbol=IBM"} {
			rec := get(e, target)
			if rec.Code != tc.want {
				t.Fatalf("%s with %v: status=%d, want %d", target, tc.err, rec.Code, tc.want)
			}
			var errs []struct {
				Code string `json:"code"`
			}
			if err := json.Unmarshal(decode(t, rec).Data, &errs); err != nil || len(errs) != 1 || errs[0].Code != tc.code {
				t.Fatalf("%s: body=%s", target, rec.Body.String())
			}
		}
	}
}

func TestRecommendationAndTrend(t *testing.T) {
	e := newTestServer(NewAnalysisEchoHandler(nil, &fakeAnalyzer{}, &fakeRanker{}))

	rec := get(e, "/api/recommendation?symbol=msft")
	if rec.Code != http.StatusOK || rec.Header().Get(echo.HeaderCacheControl) == "" {
		t.Fatalf("status=%d headers=%v", rec.Code, rec.Header())
	}
	var rep usecase.RecommendationReport
	if err := json.Unmarshal(decode(t, rec).Data, &rep); err != nil || rep.Symbol != "MSFT" || rep.Recommendation.Action != models.ActionBuy {
		t.Fatalf("report=%+v err=%v", rep, err)
	}

	rec = get(e, "/api/trend?symbol=msft&interval=weekly")
	var tr models.TrendResult
	if err := json.Unmarshal(decode(t, rec).Data, &tr); err != nil || tr.Label != models.TrendBullish {
		t.Fatalf("trend=%+v err=%v", tr, err)
	}
}

func TestRankSplitsAndLimits(t *testing.T) {
	r := &fakeRanker{}
	e := newTestServer(NewAnalysisEchoHandler(nil, &fakeAnalyzer{}, r))

	rec := get(e, "/api/rank?symbols=aapl,%20msft,,ibm&limit=2")
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	if len(r.got) != 3 || r.got[0] != "AAPL" || r.got[1] != "MSFT" {
		t.Fatalf("ranked %v", r.got)
	}
	var res usecase.RankResult
	if err := json.Unmarshal(decode(t, rec).Data, &res); err != nil || len(res.Items) != 2 {
		t.Fatalf("result=%+v err=%v", res, err)
	}
}

func TestIndicatorsServedFromCache(t *testing.T) {
	a := &fakeAnalyzer{}
	h := NewAnalysisEchoHandler(nil, a, &fakeRanker{})
	h.SetCache(icache.NewTTLCache(), time.Minute)
	e := newTestServer(h)

	for i := 0; i < 3; i++ {
		if rec := get(e, "/api/indicators?symbol=IBM"); rec.Code != http.StatusOK {
			t.Fatalf("status=%d", rec.Code)
		}
	}
	if a.calls != 1 {
		t.Fatalf("analyzer called %d times, want 1", a.calls)
	}
}

func TestLimiterRejects(t *testing.T) {
	h := NewAnalysisEchoHandler(nil, &fakeAnalyzer{}, &fakeRanker{})
	now := time.Unix(0, 0)
	h.SetLimiter(ratelimit.New(60, 1, ratelimit.WithClock(func() time.Time { return now }, nil)))
	e := newTestServer(h)

	if rec := get(e, "/api/trend?symbol=IBM"); rec.Code != http.StatusOK {
		t.Fatalf("first status=%d", rec.Code)
	}
	if rec := get(e, "/api/trend?symbol=IBM"); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second status=%d, want 429", rec.Code)
	}
}
