// Package runner executes many backtests concurrently on a bounded pool.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"tickback/internal/backtest"
	"tickback/internal/model"
	"tickback/internal/result"
	"tickback/internal/strategy"
)

// ErrNoSource is returned for a job without a series when the runner has
// no quote source to load one from.
var ErrNoSource = errors.New("runner: job has no series and no quote source is configured")

// Job describes one backtest. Series may be nil, in which case the runner
// loads Ticker in [From, To] from its Source; jobs sharing a range share
// one load.
type Job struct {
	Ticker   string
	From, To time.Time
	Series   *model.PriceSeries

	Strategy string
	Params   strategy.Params
	Mode     backtest.Mode
	StartAt  int
}

// Runner runs jobs with at most Workers in flight. Every job builds its own
// strategy, so no indicator cache is ever shared between goroutines.
type Runner struct {
	Workers           int
	InitialInvestment float64
	Observer          backtest.Observer
	Source            model.QuoteReader

	// Callbacks (for metrics)
	OnJobStart func()
	OnJobDone  func(err error)

	loads  singleflight.Group
	mu     sync.Mutex
	series map[string]*model.PriceSeries
}

// Run executes jobs and returns their results in job order. The first
// failing job cancels the rest.
func (r *Runner) Run(ctx context.Context, jobs []Job) ([]*result.BacktestResult, error) {
	workers := r.Workers
	if workers < 1 {
		workers = 1
	}
	out := make([]*result.BacktestResult, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range jobs {
		i, job := i, jobs[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if r.OnJobStart != nil {
				r.OnJobStart()
			}
			res, err := r.runJob(gctx, job)
			if r.OnJobDone != nil {
				r.OnJobDone(err)
			}
			if err != nil {
				return fmt.Errorf("job %d (%s/%s): %w", i, job.Ticker, job.Strategy, err)
			}
			out[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Runner) runJob(ctx context.Context, job Job) (*result.BacktestResult, error) {
	series := job.Series
	if series == nil {
		var err error
		if series, err = r.Load(ctx, job.Ticker, job.From, job.To); err != nil {
			return nil, err
		}
	}

	strat, err := strategy.Build(job.Strategy, job.Params)
	if err != nil {
		return nil, err
	}
	bt, err := backtest.New(series, strat, backtest.Options{
		InitialInvestment: r.InitialInvestment,
		StartAt:           job.StartAt,
		Observer:          r.Observer,
	})
	if err != nil {
		return nil, err
	}
	outcome, err := bt.Run(ctx, job.Mode)
	if err != nil {
		return nil, err
	}
	slog.Info("backtest finished",
		"ticker", outcome.Ticker,
		"strategy", outcome.Strategy,
		"mode", outcome.Mode.String(),
		"final", outcome.Perf.Final(),
		"took", outcome.Took,
	)
	return outcome.Result()
}

// Load returns the series of ticker in [from, to] from Source. Concurrent
// calls for the same range share one read, and loaded series are reused.
// The shared read is not tied to any single caller's cancellation: a caller
// whose ctx ends gets ctx.Err() while the read continues for the others.
func (r *Runner) Load(ctx context.Context, ticker string, from, to time.Time) (*model.PriceSeries, error) {
	if r.Source == nil {
		return nil, ErrNoSource
	}
	key := ticker + "|" + from.UTC().Format(time.RFC3339Nano) + "|" + to.UTC().Format(time.RFC3339Nano)

	r.mu.Lock()
	if s, ok := r.series[key]; ok {
		r.mu.Unlock()
		return s, nil
	}
	r.mu.Unlock()

	loadCtx := context.WithoutCancel(ctx)
	ch := r.loads.DoChan(key, func() (interface{}, error) {
		r.mu.Lock()
		if s, ok := r.series[key]; ok {
			r.mu.Unlock()
			return s, nil
		}
		r.mu.Unlock()

		s, err := model.LoadSeries(loadCtx, r.Source, ticker, from, to)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", ticker, err)
		}
		r.mu.Lock()
		if r.series == nil {
			r.series = make(map[string]*model.PriceSeries)
		}
		r.series[key] = s
		r.mu.Unlock()
		return s, nil
	})
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("load %s: %w", ticker, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*model.PriceSeries), nil
	}
}
