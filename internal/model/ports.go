package model

import (
	"context"
	"time"
)

// ── Storage Port Interfaces ──
// These interfaces decouple the engine from concrete tick stores
// (SQLite, InfluxDB). Result persistence ports live in the result package.

// QuoteReader loads ticks for one security.
type QuoteReader interface {
	// ReadQuotes returns quotes in [from, to] ordered by timestamp.
	// A zero from or to leaves that side unbounded.
	ReadQuotes(ctx context.Context, ticker string, from, to time.Time) ([]Quote, error)
}

// QuoteWriter persists ticks for one security.
type QuoteWriter interface {
	WriteQuotes(ctx context.Context, ticker string, quotes []Quote) error
}

// QuoteStore is both a QuoteReader and a QuoteWriter.
type QuoteStore interface {
	QuoteReader
	QuoteWriter
	Close() error
}

// LoadSeries reads quotes through r and builds a PriceSeries from them.
func LoadSeries(ctx context.Context, r QuoteReader, ticker string, from, to time.Time) (*PriceSeries, error) {
	quotes, err := r.ReadQuotes(ctx, ticker, from, to)
	if err != nil {
		return nil, err
	}
	return NewPriceSeries(ticker, quotes)
}
