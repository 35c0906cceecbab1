// Package backtest simulates a strategy's allocation signal over a price
// series and reports the cost-adjusted performance.
package backtest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"tickback/internal/model"
	"tickback/internal/result"
	"tickback/internal/strategy"
)

// ErrInvalidStart is returned when StartAt is outside the series.
var ErrInvalidStart = errors.New("backtest start outside series")

// DefaultInitialInvestment scales PerformanceRel into Performance.
const DefaultInitialInvestment = 100.0

// progressEvery is the tick cadence of iterative progress logs.
const progressEvery = 10000

// Mode selects how the weight signal is produced.
type Mode int

const (
	// Iterative calls WeightAt tick by tick.
	Iterative Mode = iota
	// Vectorized calls Weights once over the whole series.
	Vectorized
)

func (m Mode) String() string {
	switch m {
	case Iterative:
		return "iterative"
	case Vectorized:
		return "vectorized"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode accepts "iterative" or "vectorized".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "iterative", "iter":
		return Iterative, nil
	case "vectorized", "vector", "vec":
		return Vectorized, nil
	default:
		return 0, fmt.Errorf("unknown backtest mode %q", s)
	}
}

// Observer is notified after every completed run.
type Observer interface {
	ObserveBacktest(strategy string, mode Mode, ticks int, took time.Duration)
}

// Options tune a Backtest.
type Options struct {
	// InitialInvestment scales the relative performance. Zero means
	// DefaultInitialInvestment.
	InitialInvestment float64
	// StartAt is the first simulated tick. Earlier ticks are history for
	// the indicators only.
	StartAt int
	// Observer may be nil.
	Observer Observer
}

// Outcome is the result of one run.
type Outcome struct {
	Ticker   string
	Strategy string
	Mode     Mode
	Took     time.Duration
	Perf     *Performance
}

// Result converts the outcome into an analytics result.
func (o *Outcome) Result() (*result.BacktestResult, error) {
	return result.New(o.Ticker, o.Strategy, o.Perf.Times, o.Perf.Weights, o.Perf.PerformanceRel)
}

// Backtest runs one strategy over one series. Runs are memoised per mode.
// A Backtest owns its strategy; do not share the strategy across Backtests
// running concurrently.
type Backtest struct {
	series *model.PriceSeries
	strat  strategy.Strategy
	opts   Options

	mu       sync.Mutex
	outcomes map[Mode]*Outcome
}

// New validates opts and creates a backtest.
func New(series *model.PriceSeries, strat strategy.Strategy, opts Options) (*Backtest, error) {
	if series == nil || series.Len() == 0 {
		return nil, model.ErrEmptySeries
	}
	if strat == nil {
		return nil, errors.New("backtest: nil strategy")
	}
	if opts.StartAt < 0 || opts.StartAt >= series.Len() {
		return nil, fmt.Errorf("%w: start %d, series has %d ticks", ErrInvalidStart, opts.StartAt, series.Len())
	}
	if opts.InitialInvestment == 0 {
		opts.InitialInvestment = DefaultInitialInvestment
	}
	if opts.InitialInvestment < 0 {
		return nil, fmt.Errorf("backtest: initial investment must be positive, got %g", opts.InitialInvestment)
	}
	return &Backtest{
		series:   series,
		strat:    strat,
		opts:     opts,
		outcomes: make(map[Mode]*Outcome, 2),
	}, nil
}

// Series returns the simulated series.
func (b *Backtest) Series() *model.PriceSeries { return b.series }

// Weights produces the filled weight signal from StartAt to the end.
func (b *Backtest) Weights(ctx context.Context, mode Mode) ([]float64, error) {
	switch mode {
	case Iterative:
		return b.iterativeWeights(ctx)
	case Vectorized:
		all := b.strat.Weights(b.series)
		return Fill(all[b.opts.StartAt:]), nil
	default:
		return nil, fmt.Errorf("backtest: unsupported mode %s", mode)
	}
}

func (b *Backtest) iterativeWeights(ctx context.Context) ([]float64, error) {
	n := b.series.Len()
	sparse := make([]strategy.Weight, 0, n-b.opts.StartAt)
	for i := b.opts.StartAt; i < n; i++ {
		if (i-b.opts.StartAt)%progressEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("backtest %s aborted at tick %d: %w", b.strat.Name(), i, err)
			}
			slog.Debug("backtest progress",
				"strategy", b.strat.Name(),
				"ticker", b.series.Ticker(),
				"tick", i,
				"pct", 100*float64(i-b.opts.StartAt)/float64(n-b.opts.StartAt),
			)
		}
		sparse = append(sparse, b.strat.WeightAt(b.series, i))
	}
	return Fill(sparse), nil
}

// Performance simulates weights, which must start at StartAt.
func (b *Backtest) Performance(weights []float64) (*Performance, error) {
	return Simulate(b.series, b.opts.StartAt, weights, b.opts.InitialInvestment)
}

// Run produces weights in the given mode and simulates them. A completed
// run is cached; later calls with the same mode return the same Outcome.
func (b *Backtest) Run(ctx context.Context, mode Mode) (*Outcome, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if out, ok := b.outcomes[mode]; ok {
		return out, nil
	}

	began := time.Now()
	weights, err := b.Weights(ctx, mode)
	if err != nil {
		return nil, err
	}
	perf, err := b.Performance(weights)
	if err != nil {
		return nil, err
	}
	out := &Outcome{
		Ticker:   b.series.Ticker(),
		Strategy: b.strat.Name(),
		Mode:     mode,
		Took:     time.Since(began),
		Perf:     perf,
	}
	b.outcomes[mode] = out

	slog.Debug("backtest complete",
		"strategy", out.Strategy,
		"ticker", out.Ticker,
		"mode", mode.String(),
		"ticks", perf.Len(),
		"final", perf.Final(),
		"took", out.Took,
	)
	if b.opts.Observer != nil {
		b.opts.Observer.ObserveBacktest(out.Strategy, mode, perf.Len(), out.Took)
	}
	return out, nil
}

// Benchmark runs buy-and-hold over series with the given options.
func Benchmark(ctx context.Context, series *model.PriceSeries, opts Options) (*Outcome, error) {
	long, err := strategy.NewLong(strategy.Params{})
	if err != nil {
		return nil, err
	}
	bt, err := New(series, long, opts)
	if err != nil {
		return nil, err
	}
	return bt.Run(ctx, Vectorized)
}
