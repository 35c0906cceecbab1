package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"tickback/config"
	"tickback/internal/model"
	"tickback/internal/result"
	"tickback/internal/store/influx"
	sqlitestore "tickback/internal/store/sqlite"
)

const (
	sourceSQLite    = "sqlite"
	sourceInflux    = "influx"
	sourceSynthetic = "synthetic"
)

// syntheticSource serves a deterministic random walk for any ticker.
type syntheticSource struct {
	seed  int64
	ticks int
	start time.Time
	step  time.Duration
}

func (s syntheticSource) ReadQuotes(ctx context.Context, ticker string, from, to time.Time) ([]model.Quote, error) {
	all := model.SyntheticQuotes(s.seed, s.ticks, s.start, s.step)
	out := all[:0]
	for _, q := range all {
		if (!from.IsZero() && q.TS.Before(from)) || (!to.IsZero() && q.TS.After(to)) {
			continue
		}
		out = append(out, q)
	}
	return out, nil
}

// openSource returns the quote reader named by source and a func releasing it.
func openSource(cfg *config.Config, source string, synth syntheticSource) (model.QuoteReader, func(), error) {
	switch source {
	case sourceSynthetic:
		return synth, func() {}, nil
	case sourceSQLite:
		r, err := sqlitestore.NewReader(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return r, func() { r.Close() }, nil
	case sourceInflux:
		if cfg.InfluxURL == "" {
			return nil, nil, fmt.Errorf("source influx: INFLUXDB_URL is not set")
		}
		src, err := influx.New(influx.Config{
			URL:    cfg.InfluxURL,
			Token:  cfg.InfluxToken,
			Org:    cfg.InfluxOrg,
			Bucket: cfg.InfluxBucket,
		})
		if err != nil {
			return nil, nil, err
		}
		return src, func() { src.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown source %q (want %s, %s or %s)", source, sourceSQLite, sourceInflux, sourceSynthetic)
	}
}

// openWriter opens the SQLite store, creating its directory if needed.
func openWriter(path string) (*sqlitestore.Writer, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return sqlitestore.New(sqlitestore.WriterConfig{DBPath: path})
}

// dateRange parses optional YYYY-MM-DD bounds. The upper bound covers the
// whole day.
func dateRange(from, to string) (time.Time, time.Time, error) {
	var lo, hi time.Time
	var err error
	if from != "" {
		if lo, err = time.Parse(result.DateLayout, from); err != nil {
			return lo, hi, fmt.Errorf("--from: %w", err)
		}
	}
	if to != "" {
		if hi, err = time.Parse(result.DateLayout, to); err != nil {
			return lo, hi, fmt.Errorf("--to: %w", err)
		}
		hi = hi.Add(24*time.Hour - time.Nanosecond)
	}
	if !lo.IsZero() && !hi.IsZero() && hi.Before(lo) {
		return lo, hi, fmt.Errorf("--to %s is before --from %s", to, from)
	}
	return lo, hi, nil
}
