package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"tickback/internal/model"
	"tickback/internal/result"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when no stored run matches.
var ErrNotFound = errors.New("sqlite: not found")

// Reader provides read-only access to SQLite for quote loading and result reload.
type Reader struct {
	db *sql.DB
}

// NewReader opens a SQLite connection for reading.
func NewReader(dbPath string) (*Reader, error) {
	db, err := sql.Open("sqlite3", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("sqlite open reader: %w", err)
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(2)

	log.Printf("[sqlite-reader] opened %s", dbPath)
	return &Reader{db: db}, nil
}

// ReadQuotes returns the quotes of ticker in [from, to], ordered by
// timestamp ascending. A zero bound is open.
func (r *Reader) ReadQuotes(ctx context.Context, ticker string, from, to time.Time) ([]model.Quote, error) {
	lo, hi := int64(math.MinInt64), int64(math.MaxInt64)
	if !from.IsZero() {
		lo = from.UnixNano()
	}
	if !to.IsZero() {
		hi = to.UnixNano()
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT ts, ask, bid, ask_vol, bid_vol
		FROM quotes
		WHERE ticker = ? AND ts >= ? AND ts <= ?
		ORDER BY ts ASC
	`, ticker, lo, hi)
	if err != nil {
		return nil, fmt.Errorf("sqlite query quotes: %w", err)
	}
	defer rows.Close()

	var quotes []model.Quote
	for rows.Next() {
		var q model.Quote
		var tsNano int64
		var askVol, bidVol sql.NullFloat64
		if err := rows.Scan(&tsNano, &q.Ask, &q.Bid, &askVol, &bidVol); err != nil {
			return nil, fmt.Errorf("sqlite scan quotes: %w", err)
		}
		q.TS = time.Unix(0, tsNano).UTC()
		q.AskVol, q.BidVol = askVol.Float64, bidVol.Float64
		quotes = append(quotes, q)
	}
	return quotes, rows.Err()
}

// QuoteRange returns the first and last stored timestamps of ticker.
func (r *Reader) QuoteRange(ctx context.Context, ticker string) (first, last time.Time, err error) {
	var lo, hi sql.NullInt64
	err = r.db.QueryRowContext(ctx,
		`SELECT MIN(ts), MAX(ts) FROM quotes WHERE ticker = ?`, ticker,
	).Scan(&lo, &hi)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("sqlite quote range: %w", err)
	}
	if !lo.Valid {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: quotes for %s", ErrNotFound, ticker)
	}
	return time.Unix(0, lo.Int64).UTC(), time.Unix(0, hi.Int64).UTC(), nil
}

// LoadResult rebuilds a BacktestResult from its stored time series. The
// daily and info views are derived again rather than read back.
func (r *Reader) LoadResult(ctx context.Context, ticker, strategy string, start, end time.Time) (*result.BacktestResult, error) {
	key := keyOf(ticker, strategy, start, end)
	rows, err := r.db.QueryContext(ctx, `
		SELECT ts, weight, performance_rel
		FROM backtest_ts
		WHERE ticker = ? AND strategy = ? AND start_date = ? AND end_date = ?
		ORDER BY ts ASC
	`, key.args()...)
	if err != nil {
		return nil, fmt.Errorf("sqlite query backtest_ts: %w", err)
	}
	defer rows.Close()

	var times []time.Time
	var weights, perf []float64
	for rows.Next() {
		var tsNano int64
		var w float64
		var p sql.NullFloat64
		if err := rows.Scan(&tsNano, &w, &p); err != nil {
			return nil, fmt.Errorf("sqlite scan backtest_ts: %w", err)
		}
		times = append(times, time.Unix(0, tsNano).UTC())
		weights = append(weights, w)
		if p.Valid {
			perf = append(perf, p.Float64)
		} else {
			perf = append(perf, math.NaN())
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(times) == 0 {
		return nil, fmt.Errorf("%w: result %s/%s %s..%s", ErrNotFound, ticker, strategy, key.start, key.end)
	}
	return result.New(ticker, strategy, times, weights, perf)
}

// LoadInfo returns the stored info record and the run id that produced it.
func (r *Reader) LoadInfo(ctx context.Context, ticker, strategy string, start, end time.Time) (result.Info, string, error) {
	key := keyOf(ticker, strategy, start, end)
	var runID, data string
	err := r.db.QueryRowContext(ctx, `
		SELECT run_id, info FROM backtest_runs
		WHERE ticker = ? AND strategy = ? AND start_date = ? AND end_date = ?
	`, key.args()...).Scan(&runID, &data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return result.Info{}, "", fmt.Errorf("%w: run %s/%s %s..%s", ErrNotFound, ticker, strategy, key.start, key.end)
		}
		return result.Info{}, "", fmt.Errorf("sqlite read run: %w", err)
	}

	var fields map[string]string
	if err := json.Unmarshal([]byte(data), &fields); err != nil {
		return result.Info{}, "", fmt.Errorf("unmarshal info: %w", err)
	}
	in, err := result.ParseInfo(fields)
	return in, runID, err
}

// Close closes the reader.
func (r *Reader) Close() error {
	return r.db.Close()
}
