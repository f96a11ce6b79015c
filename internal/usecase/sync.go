package usecase

import (
	"context"
	"fmt"

	domrepo "StockSignal/internal/domain/repository"
	applogger "StockSignal/pkg/logger"
)

// BarSync copies recent provider history into the bar store so the store can
// serve as the history backend.
type BarSync struct {
	source domrepo.BarSource
	store  domrepo.BarStore
	n      int
	log    *applogger.Logger
}

func NewBarSync(source domrepo.BarSource, store domrepo.BarStore, n int, l *applogger.Logger) *BarSync {
	if l == nil {
		l = applogger.Nop()
	}
	if n <= 0 {
		n = 100
	}
	return &BarSync{source: source, store: store, n: n, log: l}
}

// Sync fetches and stores daily bars for each symbol. It continues past
// per-symbol failures and returns how many symbols were stored.
func (s *BarSync) Sync(ctx context.Context, symbols []string) (int, error) {
	stored := 0
	var firstErr error
	for _, sym := range symbols {
		if err := ctx.Err(); err != nil {
			return stored, err
		}
		series, err := s.source.History(ctx, sym, domrepo.IntervalDaily, s.n)
		if err == nil {
			err = s.store.SaveBars(ctx, sym, domrepo.IntervalDaily, series.Bars)
		}
		if err != nil {
			s.log.Warn("bar sync failed", applogger.String("symbol", sym), applogger.Error(err))
			if firstErr == nil {
				firstErr = fmt.Errorf("sync %s: %w", sym, err)
			}
			continue
		}
		stored++
	}
	return stored, firstErr
}
