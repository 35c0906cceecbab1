// Package indicator provides technical indicators over bid/ask price series.
//
// Every indicator can be evaluated causally, one tick at a time with At, or
// over a whole series at once with Series. Both paths apply the same window
// policy and the same kernels, so Series(s)[i] equals At(s, i) for every i.
package indicator

import (
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"tickback/internal/model"
)

// ErrInvalidConfig is returned by constructors for malformed parameters.
var ErrInvalidConfig = errors.New("invalid indicator config")

// Indicator is the interface for all technical indicators.
type Indicator interface {
	// Name returns the indicator name (e.g., "SMA_1h0m0s_200").
	Name() string

	// At evaluates the indicator on the window ending at tick end using only
	// ticks up to end, and records the reading in the cache.
	At(s *model.PriceSeries, end int) Reading

	// Series evaluates the indicator at every tick of s. It does not touch
	// the cache.
	Series(s *model.PriceSeries) []Reading

	// Cache returns the instance's causal evaluation cache.
	Cache() *Cache
}

// SeriesObserver is notified after every vectorized evaluation.
type SeriesObserver interface {
	ObserveIndicatorSeries(name string, ticks int, took time.Duration)
}

// Option configures an indicator.
type Option func(*options)

type options struct {
	name     string
	workers  int
	observer SeriesObserver
}

// WithWorkers sets the number of goroutines used by Series. Values below 1
// are treated as 1.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithName overrides the generated indicator name.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithObserver reports Series timings to obs.
func WithObserver(obs SeriesObserver) Option {
	return func(o *options) { o.observer = obs }
}

// minChunk keeps tiny series on a single goroutine.
const minChunk = 2048

// base carries what every indicator shares: window, cache and pool settings.
type base struct {
	name     string
	window   Window
	workers  int
	observer SeriesObserver
	cache    *Cache
}

func newBase(defaultName string, w Window, opts []Option) (base, error) {
	if err := w.Validate(); err != nil {
		return base{}, err
	}
	o := options{workers: 1}
	for _, opt := range opts {
		opt(&o)
	}
	if o.name == "" {
		o.name = defaultName
	}
	if o.workers < 1 {
		o.workers = 1
	}
	return base{
		name:     o.name,
		window:   w,
		workers:  o.workers,
		observer: o.observer,
		cache:    NewCache(),
	}, nil
}

func (b *base) Name() string   { return b.name }
func (b *base) Cache() *Cache  { return b.cache }
func (b *base) Window() Window { return b.window }

// at runs eval on the causal window and records the reading.
func (b *base) at(s *model.PriceSeries, end int, eval func(start, end int) Reading) Reading {
	if end < 0 || end >= s.Len() {
		return Reading{}
	}
	r := eval(b.window.Start(s, end), end)
	b.cache.Put(s.Time(end), end, r)
	return r
}

// series evaluates fill over disjoint index chunks in parallel. fill must
// write only out[lo:hi].
func (b *base) series(s *model.PriceSeries, fill func(out []Reading, bounds []int, lo, hi int)) []Reading {
	began := time.Now()
	n := s.Len()
	out := make([]Reading, n)
	bounds := b.window.Bounds(s)

	chunk := (n + b.workers - 1) / b.workers
	if chunk < minChunk {
		chunk = minChunk
	}
	if chunk >= n {
		fill(out, bounds, 0, n)
	} else {
		var g errgroup.Group
		g.SetLimit(b.workers)
		for lo := 0; lo < n; lo += chunk {
			lo, hi := lo, min(lo+chunk, n)
			g.Go(func() error {
				fill(out, bounds, lo, hi)
				return nil
			})
		}
		_ = g.Wait()
	}

	if b.observer != nil {
		b.observer.ObserveIndicatorSeries(b.name, n, time.Since(began))
	}
	return out
}

// perIndex adapts a window evaluation to a chunk fill.
func perIndex(eval func(start, end int) Reading) func(out []Reading, bounds []int, lo, hi int) {
	return func(out []Reading, bounds []int, lo, hi int) {
		for i := lo; i < hi; i++ {
			out[i] = eval(bounds[i], i)
		}
	}
}
