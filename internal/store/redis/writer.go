package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"tickback/internal/result"

	goredis "github.com/go-redis/redis/v8"
)

const defaultResultTTL = 24 * time.Hour

// WriterConfig configures the Redis writer.
type WriterConfig struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int
	TTL      time.Duration // lifetime of published info and daily keys (default 24h)
}

// Announcement is the message published on a ticker's channel when a run
// finishes. Subscribers fetch the full record from InfoKey and DailyKey.
type Announcement struct {
	RunID       string  `json:"run_id"`
	Ticker      string  `json:"ticker"`
	Strategy    string  `json:"strategy"`
	StartDate   string  `json:"start_date"`
	EndDate     string  `json:"end_date"`
	TotalReturn float64 `json:"total_return"`
	InfoKey     string  `json:"info_key"`
	DailyKey    string  `json:"daily_key"`
}

// Writer publishes backtest results to Redis: the info record as a hash,
// the daily returns as a hash keyed by date, and an Announcement on the
// ticker's pub/sub channel.
type Writer struct {
	client *goredis.Client
	ttl    time.Duration
}

// Client returns the underlying Redis client for health checks.
func (w *Writer) Client() *goredis.Client { return w.client }

// New creates a new Redis Writer and pings the server.
func New(cfg WriterConfig) (*Writer, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Printf("[redis] connected to %s", cfg.Addr)
	return NewWithClient(client, cfg.TTL), nil
}

// NewWithClient wraps an existing client. A ttl of zero means 24h.
func NewWithClient(client *goredis.Client, ttl time.Duration) *Writer {
	if ttl <= 0 {
		ttl = defaultResultTTL
	}
	return &Writer{client: client, ttl: ttl}
}

// InfoKey is the hash holding the info record of one run.
func InfoKey(ticker, strategy string, start, end time.Time) string {
	return "bt:info:" + runSuffix(ticker, strategy, start, end)
}

// DailyKey is the hash mapping dates to daily returns of one run.
func DailyKey(ticker, strategy string, start, end time.Time) string {
	return "bt:daily:" + runSuffix(ticker, strategy, start, end)
}

// Channel is the pub/sub channel announcing results for ticker.
func Channel(ticker string) string {
	return "pub:backtest:" + ticker
}

func runSuffix(ticker, strategy string, start, end time.Time) string {
	return ticker + ":" + strategy + ":" + start.Format(result.DateLayout) + ":" + end.Format(result.DateLayout)
}

// Publish writes r under its info and daily keys and announces it, all in a
// single pipeline. Earlier daily entries of the same run identity are
// replaced.
func (w *Writer) Publish(ctx context.Context, runID string, r *result.BacktestResult) error {
	infoKey := InfoKey(r.Ticker(), r.Strategy(), r.StartDate(), r.EndDate())
	dailyKey := DailyKey(r.Ticker(), r.Strategy(), r.StartDate(), r.EndDate())
	info := r.Info()

	msg, err := json.Marshal(Announcement{
		RunID:       runID,
		Ticker:      r.Ticker(),
		Strategy:    r.Strategy(),
		StartDate:   info.StartDate.Format(result.DateLayout),
		EndDate:     info.EndDate.Format(result.DateLayout),
		TotalReturn: info.TotalReturn,
		InfoKey:     infoKey,
		DailyKey:    dailyKey,
	})
	if err != nil {
		return fmt.Errorf("marshal announcement: %w", err)
	}

	fields := make([]interface{}, 0, 32)
	for _, f := range info.Fields() {
		fields = append(fields, f.Name, f.Value)
	}
	fields = append(fields, "run_id", runID)

	daily := r.Daily()
	days := make([]interface{}, 0, 2*len(daily))
	for _, d := range daily {
		days = append(days, d.Date.Format(result.DateLayout), formatFloat(d.Return))
	}

	pipe := w.client.TxPipeline()
	pipe.HSet(ctx, infoKey, fields...)
	pipe.Expire(ctx, infoKey, w.ttl)
	pipe.Del(ctx, dailyKey)
	if len(days) > 0 {
		pipe.HSet(ctx, dailyKey, days...)
		pipe.Expire(ctx, dailyKey, w.ttl)
	}
	pipe.Publish(ctx, Channel(r.Ticker()), msg)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis publish %s/%s: %w", r.Ticker(), r.Strategy(), err)
	}
	return nil
}

// Close closes the Redis client.
func (w *Writer) Close() error {
	return w.client.Close()
}
