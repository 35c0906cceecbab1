// Package influx reads and writes bid/ask quotes in an InfluxDB v2 bucket.
package influx

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"tickback/internal/model"
)

const (
	defaultMeasurement = "quotes"
	writeBatch         = 5000
)

// tickerPattern matches ticker symbols that are safe to splice into Flux.
// Allows letters, digits, dots (BRK.A), hyphens (BF-B) and underscores.
var tickerPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._\-]{0,31}$`)

// ErrInvalidTicker is returned for tickers that fail ValidateTicker.
var ErrInvalidTicker = errors.New("invalid ticker")

// Config configures the InfluxDB source.
type Config struct {
	URL         string // e.g. "http://localhost:8086"
	Token       string
	Org         string
	Bucket      string
	Measurement string // default "quotes"
}

// Source implements model.QuoteStore on InfluxDB. Quotes are stored as one
// point per tick: tag ticker, fields ask, bid, ask_vol, bid_vol.
type Source struct {
	client      influxdb2.Client
	query       api.QueryAPI
	write       api.WriteAPIBlocking
	bucket      string
	measurement string
}

// New creates a Source. It does not contact the server; use Ping for that.
func New(cfg Config) (*Source, error) {
	if cfg.URL == "" || cfg.Org == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("influx config: url, org and bucket are required")
	}
	if cfg.Measurement == "" {
		cfg.Measurement = defaultMeasurement
	}
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	return &Source{
		client:      client,
		query:       client.QueryAPI(cfg.Org),
		write:       client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		bucket:      cfg.Bucket,
		measurement: cfg.Measurement,
	}, nil
}

// Ping checks the server health endpoint.
func (s *Source) Ping(ctx context.Context) error {
	health, err := s.client.Health(ctx)
	if err != nil {
		return fmt.Errorf("influx health: %w", err)
	}
	if health.Status != "pass" {
		return fmt.Errorf("influx health: status %s", health.Status)
	}
	return nil
}

// ValidateTicker rejects tickers that could alter a Flux query.
func ValidateTicker(ticker string) error {
	if !tickerPattern.MatchString(ticker) {
		return fmt.Errorf("%w: %q", ErrInvalidTicker, ticker)
	}
	return nil
}

// BuildQuery returns the Flux query selecting ticker's quotes in [from, to]
// pivoted to one row per tick. A zero from starts at the epoch and a zero to
// ends at now().
func BuildQuery(bucket, measurement, ticker string, from, to time.Time) (string, error) {
	if err := ValidateTicker(ticker); err != nil {
		return "", err
	}
	start := "0"
	if !from.IsZero() {
		start = from.UTC().Format(time.RFC3339Nano)
	}
	// range stop is exclusive
	stop := "now()"
	if !to.IsZero() {
		stop = to.Add(time.Nanosecond).UTC().Format(time.RFC3339Nano)
	}
	return fmt.Sprintf(`
		from(bucket: %q)
		  |> range(start: %s, stop: %s)
		  |> filter(fn: (r) => r._measurement == %q)
		  |> filter(fn: (r) => r.ticker == %q)
		  |> pivot(rowKey:["_time"], columnKey: ["_field"], valueColumn: "_value")
		  |> sort(columns: ["_time"], desc: false)
	`, bucket, start, stop, measurement, ticker), nil
}

// ReadQuotes returns the quotes of ticker in [from, to] ordered by time.
func (s *Source) ReadQuotes(ctx context.Context, ticker string, from, to time.Time) ([]model.Quote, error) {
	query, err := BuildQuery(s.bucket, s.measurement, ticker, from, to)
	if err != nil {
		return nil, err
	}
	res, err := s.query.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("influx query %s: %w", ticker, err)
	}
	defer res.Close()

	var quotes []model.Quote
	for res.Next() {
		rec := res.Record()
		quotes = append(quotes, model.Quote{
			TS:     rec.Time().UTC(),
			Ask:    floatField(rec.ValueByKey("ask")),
			Bid:    floatField(rec.ValueByKey("bid")),
			AskVol: floatField(rec.ValueByKey("ask_vol")),
			BidVol: floatField(rec.ValueByKey("bid_vol")),
		})
	}
	if err := res.Err(); err != nil {
		return nil, fmt.Errorf("influx read %s: %w", ticker, err)
	}
	return quotes, nil
}

// WriteQuotes writes quotes for ticker in batches.
func (s *Source) WriteQuotes(ctx context.Context, ticker string, quotes []model.Quote) error {
	if err := ValidateTicker(ticker); err != nil {
		return err
	}
	points := make([]*write.Point, 0, min(len(quotes), writeBatch))
	for i, q := range quotes {
		points = append(points, quotePoint(s.measurement, ticker, q))
		if len(points) == writeBatch || i == len(quotes)-1 {
			if err := s.write.WritePoint(ctx, points...); err != nil {
				return fmt.Errorf("influx write %s: %w", ticker, err)
			}
			points = points[:0]
		}
	}
	log.Printf("[influx] wrote %d quotes for %s", len(quotes), ticker)
	return nil
}

// Close releases the client.
func (s *Source) Close() error {
	s.client.Close()
	return nil
}

func quotePoint(measurement, ticker string, q model.Quote) *write.Point {
	return influxdb2.NewPoint(
		measurement,
		map[string]string{"ticker": ticker},
		map[string]interface{}{
			"ask":     q.Ask,
			"bid":     q.Bid,
			"ask_vol": q.AskVol,
			"bid_vol": q.BidVol,
		},
		q.TS,
	)
}

// floatField accepts the numeric types Flux may return for a field.
func floatField(v interface{}) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case int64:
		return float64(x)
	case uint64:
		return float64(x)
	default:
		return 0
	}
}
