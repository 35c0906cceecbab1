package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"time"

	"tickback/internal/model"
	"tickback/internal/result"

	_ "github.com/mattn/go-sqlite3"
)

const defaultBatchSize = 1000

// WriterConfig configures the SQLite writer.
type WriterConfig struct {
	DBPath    string // path to SQLite database file, e.g. "data/ticks.db"
	BatchSize int    // quotes per transaction; 0 means 1000
}

// Writer is a single-connection SQLite writer with transaction batching.
type Writer struct {
	db        *sql.DB
	batchSize int
}

// DB returns the underlying sql.DB for health checks.
func (w *Writer) DB() *sql.DB { return w.db }

// New creates a new SQLite Writer, initializes the database with WAL mode and schema.
func New(cfg WriterConfig) (*Writer, error) {
	db, err := sql.Open("sqlite3", dsn(cfg.DBPath))
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Set connection pool for single-writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	batch := cfg.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	log.Printf("[sqlite] opened database at %s", cfg.DBPath)
	return &Writer{db: db, batchSize: batch}, nil
}

func dsn(path string) string {
	return path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS quotes (
			ticker   TEXT    NOT NULL,
			ts       INTEGER NOT NULL,
			ask      REAL    NOT NULL,
			bid      REAL    NOT NULL,
			ask_vol  REAL,
			bid_vol  REAL,
			PRIMARY KEY (ticker, ts)
		);

		CREATE TABLE IF NOT EXISTS backtest_runs (
			ticker     TEXT    NOT NULL,
			strategy   TEXT    NOT NULL,
			start_date TEXT    NOT NULL,
			end_date   TEXT    NOT NULL,
			run_id     TEXT    NOT NULL,
			info       TEXT    NOT NULL,
			created_at INTEGER NOT NULL,
			PRIMARY KEY (ticker, strategy, start_date, end_date)
		);

		CREATE TABLE IF NOT EXISTS backtest_ts (
			ticker          TEXT    NOT NULL,
			strategy        TEXT    NOT NULL,
			start_date      TEXT    NOT NULL,
			end_date        TEXT    NOT NULL,
			ts              INTEGER NOT NULL,
			weight          REAL    NOT NULL,
			performance_rel REAL,
			PRIMARY KEY (ticker, strategy, start_date, end_date, ts)
		);

		CREATE TABLE IF NOT EXISTS backtest_daily (
			ticker       TEXT NOT NULL,
			strategy     TEXT NOT NULL,
			start_date   TEXT NOT NULL,
			end_date     TEXT NOT NULL,
			date         TEXT NOT NULL,
			daily_return REAL,
			PRIMARY KEY (ticker, strategy, start_date, end_date, date)
		);
	`)
	return err
}

// WriteQuotes upserts quotes in transactions of BatchSize rows.
func (w *Writer) WriteQuotes(ctx context.Context, ticker string, quotes []model.Quote) error {
	start := time.Now()
	for lo := 0; lo < len(quotes); lo += w.batchSize {
		hi := min(lo+w.batchSize, len(quotes))
		if err := w.insertQuoteBatch(ctx, ticker, quotes[lo:hi]); err != nil {
			return fmt.Errorf("sqlite write quotes %s: %w", ticker, err)
		}
	}
	log.Printf("[sqlite] committed %d %s quotes in %v", len(quotes), ticker, time.Since(start))
	return nil
}

// insertQuoteBatch inserts a batch of quotes in a single transaction.
func (w *Writer) insertQuoteBatch(ctx context.Context, ticker string, quotes []model.Quote) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO quotes (ticker, ts, ask, bid, ask_vol, bid_vol)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, q := range quotes {
		_, err := stmt.ExecContext(ctx, ticker, q.TS.UnixNano(), q.Ask, q.Bid, q.AskVol, q.BidVol)
		if err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

// SaveResult stores the run row, time series and daily views of r in one
// transaction, replacing any earlier run with the same identity.
func (w *Writer) SaveResult(ctx context.Context, runID string, r *result.BacktestResult) error {
	key := keyOf(r.Ticker(), r.Strategy(), r.StartDate(), r.EndDate())
	info, err := json.Marshal(fieldMap(r.Info()))
	if err != nil {
		return fmt.Errorf("marshal info: %w", err)
	}

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite save result: %w", err)
	}
	if err := saveResultTx(ctx, tx, key, runID, string(info), r); err != nil {
		tx.Rollback()
		return fmt.Errorf("sqlite save result %s/%s: %w", key.ticker, key.strategy, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite save result commit: %w", err)
	}
	log.Printf("[sqlite] saved %s/%s %s..%s (%d ticks)", key.ticker, key.strategy, key.start, key.end, r.Len())
	return nil
}

func saveResultTx(ctx context.Context, tx *sql.Tx, key resultKey, runID, info string, r *result.BacktestResult) error {
	for _, table := range []string{"backtest_ts", "backtest_daily"} {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM `+table+` WHERE ticker = ? AND strategy = ? AND start_date = ? AND end_date = ?`,
			key.args()...); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO backtest_runs (ticker, strategy, start_date, end_date, run_id, info, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, append(key.args(), runID, info, time.Now().Unix())...); err != nil {
		return err
	}

	tsStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO backtest_ts (ticker, strategy, start_date, end_date, ts, weight, performance_rel)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer tsStmt.Close()
	for _, row := range r.TimeSeries() {
		if _, err := tsStmt.ExecContext(ctx, append(key.args(), row.TS.UnixNano(), row.Weight, nullable(row.PerformanceRel))...); err != nil {
			return err
		}
	}

	dailyStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO backtest_daily (ticker, strategy, start_date, end_date, date, daily_return)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer dailyStmt.Close()
	for _, d := range r.Daily() {
		if _, err := dailyStmt.ExecContext(ctx, append(key.args(), d.Date.Format(result.DateLayout), nullable(d.Return))...); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database.
func (w *Writer) Close() error {
	return w.db.Close()
}

type resultKey struct {
	ticker, strategy, start, end string
}

func keyOf(ticker, strategy string, start, end time.Time) resultKey {
	return resultKey{ticker, strategy, start.Format(result.DateLayout), end.Format(result.DateLayout)}
}

func (k resultKey) args() []any {
	return []any{k.ticker, k.strategy, k.start, k.end}
}

func fieldMap(in result.Info) map[string]string {
	m := make(map[string]string, 14)
	for _, f := range in.Fields() {
		m[f.Name] = f.Value
	}
	return m
}

// nullable stores NaN as NULL; SQLite has no NaN.
func nullable(f float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: f, Valid: !math.IsNaN(f)}
}
