// Package scheduler runs the periodic watchlist refresh.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"StockSignal/internal/domain/models"
	domrepo "StockSignal/internal/domain/repository"
	"StockSignal/internal/usecase"
	applogger "StockSignal/pkg/logger"

	"github.com/robfig/cron/v3"
)

const trendBars = 60

type ranker interface {
	Rank(ctx context.Context, symbols []string) usecase.RankResult
}

type trender interface {
	Trend(ctx context.Context, symbol string, iv domrepo.Interval, n int) (models.TrendResult, error)
}

type syncer interface {
	Sync(ctx context.Context, symbols []string) (int, error)
}

// Scheduler refreshes the watchlist on a cron schedule: optional bar sync,
// ranking (which warms the quote caches) and signal publishing.
type Scheduler struct {
	cron      *cron.Cron
	symbols   []string
	ranker    ranker
	trender   trender
	sync      syncer
	publisher domrepo.SignalPublisher
	timeout   time.Duration
	log       *applogger.Logger

	mu      sync.Mutex
	running bool
}

type Option func(*Scheduler)

// WithBarSync copies provider history into the bar store before ranking.
func WithBarSync(s syncer) Option { return func(sc *Scheduler) { sc.sync = s } }

// WithPublisher publishes one SignalEvent per ranked symbol.
func WithPublisher(p domrepo.SignalPublisher) Option {
	return func(sc *Scheduler) { sc.publisher = p }
}

// WithTrend attaches a daily trend to published events.
func WithTrend(t trender) Option { return func(sc *Scheduler) { sc.trender = t } }

func WithTimeout(d time.Duration) Option {
	return func(sc *Scheduler) {
		if d > 0 {
			sc.timeout = d
		}
	}
}

func WithLogger(l *applogger.Logger) Option {
	return func(sc *Scheduler) {
		if l != nil {
			sc.log = l
		}
	}
}

func New(symbols []string, r ranker, opts ...Option) *Scheduler {
	s := &Scheduler{
		cron:    cron.New(),
		symbols: symbols,
		ranker:  r,
		timeout: 5 * time.Minute,
		log:     applogger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register adds the refresh job. spec is a standard five-field cron
// expression or a descriptor such as "@every 15m".
func (s *Scheduler) Register(spec string) error {
	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		return fmt.Errorf("register refresh job %q: %w", spec, err)
	}
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started", applogger.Strings("symbols", s.symbols))
}

// Stop waits for a running refresh to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop().Done()
	select {
	case <-done:
	case <-ctx.Done():
	}
	s.log.Info("scheduler stopped")
}

func (s *Scheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if _, err := s.RunOnce(ctx); err != nil {
		s.log.Error("watchlist refresh failed", applogger.Error(err))
	}
}

// RunOnce performs one refresh and returns the published events. Overlapping
// runs are skipped.
func (s *Scheduler) RunOnce(ctx context.Context) ([]models.SignalEvent, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.log.Warn("refresh still running, skipping")
		return nil, nil
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	if len(s.symbols) == 0 {
		return nil, nil
	}
	start := time.Now()

	if s.sync != nil {
		n, err := s.sync.Sync(ctx, s.symbols)
		if err != nil {
			s.log.Warn("bar sync incomplete", applogger.Int("stored", n), applogger.Error(err))
		}
	}

	res := s.ranker.Rank(ctx, s.symbols)
	events := make([]models.SignalEvent, 0, len(res.Items))
	for _, it := range res.Items {
		ev := models.SignalEvent{
			Symbol:         it.Symbol,
			Timestamp:      it.Timestamp,
			Price:          it.Price,
			Recommendation: it.Recommendation,
		}
		if s.trender != nil {
			if tr, err := s.trender.Trend(ctx, it.Symbol, domrepo.IntervalDaily, trendBars); err == nil {
				ev.Trend = &tr
			} else {
				s.log.Debug("trend skipped", applogger.String("symbol", it.Symbol), applogger.Error(err))
			}
		}
		events = append(events, ev)
	}

	if s.publisher != nil && len(events) > 0 {
		if err := s.publisher.PublishBatch(ctx, events); err != nil {
			return events, fmt.Errorf("publish signals: %w", err)
		}
	}
	s.log.Info("watchlist refreshed",
		applogger.Int("ranked", len(res.Items)),
		applogger.Int("failed", len(res.Errors)),
		applogger.Duration("took", time.Since(start)))
	return events, nil
}
