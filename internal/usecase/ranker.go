package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"StockSignal/internal/domain/models"
	applogger "StockSignal/pkg/logger"
)

type recommender interface {
	Recommend(ctx context.Context, symbol string) (*RecommendationReport, error)
}

// RankResult lists the scored symbols best first. A symbol that failed is
// reported in Errors and left out of Items.
type RankResult struct {
	Items     []RecommendationReport `json:"items"`
	Errors    map[string]string      `json:"errors,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// WatchlistRanker scores many symbols concurrently.
type WatchlistRanker struct {
	rec         recommender
	concurrency int
	timeout     time.Duration
	log         *applogger.Logger
}

func NewWatchlistRanker(rec recommender, concurrency int, l *applogger.Logger) *WatchlistRanker {
	if concurrency < 1 {
		concurrency = 4
	}
	if l == nil {
		l = applogger.Nop()
	}
	return &WatchlistRanker{rec: rec, concurrency: concurrency, timeout: 30 * time.Second, log: l}
}

// Rank recommends every symbol with at most concurrency calls in flight.
// Ordering: BUY, HOLD, SELL; higher confidence first within an action.
func (r *WatchlistRanker) Rank(ctx context.Context, symbols []string) RankResult {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	type item struct {
		symbol string
		rep    *RecommendationReport
		err    error
	}
	ch := make(chan item, len(symbols))
	sem := make(chan struct{}, r.concurrency)
	var wg sync.WaitGroup

	for _, s := range symbols {
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				ch <- item{symbol: symbol, err: ctx.Err()}
				return
			}
			rep, err := r.rec.Recommend(ctx, symbol)
			ch <- item{symbol: symbol, rep: rep, err: err}
		}(s)
	}
	go func() { wg.Wait(); close(ch) }()

	res := RankResult{Items: make([]RecommendationReport, 0, len(symbols)), Errors: map[string]string{}, Timestamp: time.Now()}
	for it := range ch {
		if it.err != nil {
			r.log.Warn("rank symbol failed", applogger.String("symbol", it.symbol), applogger.Error(it.err))
			res.Errors[it.symbol] = it.err.Error()
			continue
		}
		res.Items = append(res.Items, *it.rep)
	}
	SortRecommendations(res.Items)
	if len(res.Errors) == 0 {
		res.Errors = nil
	}
	return res
}

var actionOrder = map[models.Action]int{
	models.ActionBuy:  0,
	models.ActionHold: 1,
	models.ActionSell: 2,
}

// SortRecommendations orders BUY before HOLD before SELL, then by confidence
// descending, then by symbol.
func SortRecommendations(items []RecommendationReport) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i].Recommendation, items[j].Recommendation
		if actionOrder[a.Action] != actionOrder[b.Action] {
			return actionOrder[a.Action] < actionOrder[b.Action]
		}
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		return items[i].Symbol < items[j].Symbol
	})
}
