package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"StockSignal/internal/domain/models"
	domrepo "StockSignal/internal/domain/repository"
	pkgch "StockSignal/pkg/clickhouse"
	applogger "StockSignal/pkg/logger"
)

// insertChunk bounds the rows of one multi-row INSERT.
const insertChunk = 2000

// CHBarStore implements BarStore backed by ClickHouse. Tables use
// ReplacingMergeTree keyed by (symbol, date), so re-ingesting a day replaces it.
type CHBarStore struct {
	ch       *pkgch.Client
	db       *sql.DB
	database string
	l        *applogger.Logger
	now      func() time.Time
}

func NewCHBarStore(ch *pkgch.Client) *CHBarStore {
	return &CHBarStore{ch: ch, db: ch.DB(), database: ch.Database(), l: applogger.Nop(), now: time.Now}
}

// SetLogger injects a structured logger.
func (s *CHBarStore) SetLogger(l *applogger.Logger) {
	if l != nil {
		s.l = l
	}
}

// Init creates the bar tables.
func (s *CHBarStore) Init(ctx context.Context) error {
	if err := s.ch.Migrate(ctx, schema(s.database)); err != nil {
		return fmt.Errorf("init bar tables: %w", err)
	}
	return nil
}

func schema(database string) []string {
	stmts := make([]string, 0, 2)
	for _, iv := range []domrepo.Interval{domrepo.IntervalDaily, domrepo.IntervalWeekly} {
		stmts = append(stmts, fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s (
            symbol      LowCardinality(String),
            date        Date,
            open        Float64,
            high        Float64,
            low         Float64,
            close       Float64,
            volume      Float64,
            ingested_at DateTime64(3)
        )
        ENGINE = ReplacingMergeTree(ingested_at)
        ORDER BY (symbol, date)`, tableFor(database, iv)))
	}
	return stmts
}

func tableFor(database string, iv domrepo.Interval) string {
	name := "bars_daily"
	if iv == domrepo.IntervalWeekly {
		name = "bars_weekly"
	}
	if database == "" {
		return name
	}
	return database + "." + name
}

// SaveBars upserts bars in chunks of multi-row inserts.
func (s *CHBarStore) SaveBars(ctx context.Context, symbol string, iv domrepo.Interval, bars []models.Bar) error {
	if len(bars) == 0 {
		return nil
	}
	start := time.Now()
	table := tableFor(s.database, iv)
	for from := 0; from < len(bars); from += insertChunk {
		to := from + insertChunk
		if to > len(bars) {
			to = len(bars)
		}
		q, args := buildInsert(table, symbol, bars[from:to], s.now())
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			s.l.Error("clickhouse save_bars error",
				applogger.String("table", table),
				applogger.String("symbol", symbol),
				applogger.Error(err),
			)
			return fmt.Errorf("save bars %s: %w", symbol, err)
		}
	}
	s.l.Debug("clickhouse save_bars ok",
		applogger.String("table", table),
		applogger.String("symbol", symbol),
		applogger.Int("rows", len(bars)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return nil
}

func buildInsert(table, symbol string, bars []models.Bar, at time.Time) (string, []interface{}) {
	values := make([]string, 0, len(bars))
	args := make([]interface{}, 0, len(bars)*8)
	for _, b := range bars {
		values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args, symbol, b.Date, b.Open, b.High, b.Low, b.Close, b.Volume, at)
	}
	q := fmt.Sprintf("INSERT INTO %s (symbol, date, open, high, low, close, volume, ingested_at) VALUES %s",
		table, strings.Join(values, ","))
	return q, args
}

// LatestBars returns up to n most recent bars, ascending by date.
func (s *CHBarStore) LatestBars(ctx context.Context, symbol string, iv domrepo.Interval, n int) ([]models.Bar, error) {
	start := time.Now()
	table := tableFor(s.database, iv)
	q := fmt.Sprintf(`
        SELECT date, open, high, low, close, volume
        FROM %s FINAL
        WHERE symbol = ?
        ORDER BY date DESC
        LIMIT ?`, table)
	rows, err := s.db.QueryContext(ctx, q, symbol, n)
	if err != nil {
		s.l.Error("clickhouse latest_bars query error",
			applogger.String("table", table),
			applogger.String("symbol", symbol),
			applogger.Int("limit", n),
			applogger.Error(err),
		)
		return nil, fmt.Errorf("latest bars %s: %w", symbol, err)
	}
	defer rows.Close()

	out := make([]models.Bar, 0, n)
	for rows.Next() {
		var b models.Bar
		if err := rows.Scan(&b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		b.Date = b.Date.UTC()
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	reverse(out)
	s.l.Debug("clickhouse latest_bars ok",
		applogger.String("table", table),
		applogger.String("symbol", symbol),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

func (s *CHBarStore) Health(ctx context.Context) error {
	return s.ch.Health(ctx)
}

// Close is a no-op; the pool belongs to pkg/clickhouse.
func (s *CHBarStore) Close() error { return nil }

func reverse(bars []models.Bar) {
	for i, j := 0, len(bars)-1; i < j; i, j = i+1, j-1 {
		bars[i], bars[j] = bars[j], bars[i]
	}
}

// StoreBarSource serves history from a BarStore.
type StoreBarSource struct {
	store domrepo.BarStore
}

func NewStoreBarSource(store domrepo.BarStore) *StoreBarSource {
	return &StoreBarSource{store: store}
}

func (s *StoreBarSource) History(ctx context.Context, symbol string, iv domrepo.Interval, n int) (models.Series, error) {
	bars, err := s.store.LatestBars(ctx, symbol, iv, n)
	if err != nil {
		return models.Series{}, err
	}
	if len(bars) == 0 {
		return models.Series{}, fmt.Errorf("history %s: %w", symbol, domrepo.ErrNoData)
	}
	return models.Series{Symbol: symbol, Interval: string(iv), Bars: bars}, nil
}

var (
	_ domrepo.BarStore  = (*CHBarStore)(nil)
	_ domrepo.BarSource = (*StoreBarSource)(nil)
)
