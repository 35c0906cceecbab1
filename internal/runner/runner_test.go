package runner

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickback/internal/backtest"
	"tickback/internal/model"
	"tickback/internal/strategy"
)

var t0 = time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

type countingSource struct {
	quotes []model.Quote
	calls  atomic.Int32
	err    error
}

func (s *countingSource) ReadQuotes(ctx context.Context, ticker string, from, to time.Time) ([]model.Quote, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	time.Sleep(5 * time.Millisecond)
	return s.quotes, nil
}

func TestRunner_ResultsInJobOrder(t *testing.T) {
	series := model.MustSeries("EURUSD", model.SyntheticQuotes(3, 3000, t0, 30*time.Second))
	names := []string{strategy.Combination, strategy.Long, strategy.Momentum, strategy.TrendSMA}
	jobs := make([]Job, len(names))
	for i, n := range names {
		jobs[i] = Job{Ticker: "EURUSD", Series: series, Strategy: n, Mode: backtest.Vectorized, StartAt: 400}
	}

	r := &Runner{Workers: 3}
	results, err := r.Run(context.Background(), jobs)
	require.NoError(t, err)
	require.Len(t, results, len(names))
	for i, n := range names {
		assert.Equal(t, n, results[i].Strategy())
		assert.Equal(t, series.Len()-400, results[i].Len())
	}

	// Same as running the backtest directly.
	strat, err := strategy.Build(strategy.Momentum, strategy.Params{})
	require.NoError(t, err)
	bt, err := backtest.New(series, strat, backtest.Options{StartAt: 400})
	require.NoError(t, err)
	out, err := bt.Run(context.Background(), backtest.Vectorized)
	require.NoError(t, err)
	assert.Equal(t, out.Perf.PerformanceRel, results[2].PerformanceRel())
}

func TestRunner_BoundedConcurrency(t *testing.T) {
	series := model.MustSeries("EURUSD", model.SyntheticQuotes(4, 1000, t0, time.Minute))
	var inFlight, peak atomic.Int32
	r := &Runner{
		Workers: 2,
		OnJobStart: func() {
			n := inFlight.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
		},
		OnJobDone: func(error) { inFlight.Add(-1) },
	}
	jobs := make([]Job, 8)
	for i := range jobs {
		jobs[i] = Job{Ticker: "EURUSD", Series: series, Strategy: strategy.Trend, Mode: backtest.Iterative}
	}
	_, err := r.Run(context.Background(), jobs)
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.Equal(t, int32(0), inFlight.Load())
}

func TestRunner_LoadsOncePerRange(t *testing.T) {
	src := &countingSource{quotes: model.SyntheticQuotes(5, 1500, t0, time.Minute)}
	r := &Runner{Workers: 4, Source: src}
	jobs := make([]Job, 0, len(strategy.Names()))
	for _, n := range strategy.Names() {
		if n == strategy.UpperLower {
			continue
		}
		jobs = append(jobs, Job{Ticker: "EURUSD", Strategy: n, Mode: backtest.Vectorized})
	}
	results, err := r.Run(context.Background(), jobs)
	require.NoError(t, err)
	assert.Len(t, results, len(jobs))
	assert.Equal(t, int32(1), src.calls.Load())

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Load(context.Background(), "EURUSD", time.Time{}, time.Time{})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), src.calls.Load())
}

// gatedSource blocks every read until release is closed and records whether
// the read's context was still live when it returned.
type gatedSource struct {
	quotes   []model.Quote
	entered  chan struct{}
	release  chan struct{}
	calls    atomic.Int32
	ctxAlive atomic.Bool
}

func (s *gatedSource) ReadQuotes(ctx context.Context, ticker string, from, to time.Time) ([]model.Quote, error) {
	if s.calls.Add(1) == 1 {
		close(s.entered)
	}
	<-s.release
	s.ctxAlive.Store(ctx.Err() == nil)
	return s.quotes, nil
}

func TestRunner_LoadSurvivesCallerCancel(t *testing.T) {
	src := &gatedSource{
		quotes:  model.SyntheticQuotes(8, 300, t0, time.Minute),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	r := &Runner{Source: src}

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := r.Load(ctxA, "EURUSD", time.Time{}, time.Time{})
		errA <- err
	}()
	<-src.entered

	type loaded struct {
		s   *model.PriceSeries
		err error
	}
	resB := make(chan loaded, 1)
	go func() {
		s, err := r.Load(context.Background(), "EURUSD", time.Time{}, time.Time{})
		resB <- loaded{s, err}
	}()

	cancelA()
	assert.ErrorIs(t, <-errA, context.Canceled)

	close(src.release)
	b := <-resB
	require.NoError(t, b.err)
	assert.Equal(t, 300, b.s.Len())
	assert.True(t, src.ctxAlive.Load(), "shared read saw the first caller's cancellation")
	assert.Equal(t, int32(1), src.calls.Load())
}

func TestRunner_Errors(t *testing.T) {
	series := model.MustSeries("EURUSD", model.SyntheticQuotes(6, 200, t0, time.Minute))

	_, err := (&Runner{}).Run(context.Background(), []Job{{Ticker: "EURUSD", Series: series, Strategy: "nope"}})
	assert.ErrorIs(t, err, strategy.ErrUnknownStrategy)

	_, err = (&Runner{}).Run(context.Background(), []Job{{Ticker: "EURUSD", Strategy: strategy.Long}})
	assert.ErrorIs(t, err, ErrNoSource)

	boom := errors.New("boom")
	_, err = (&Runner{Source: &countingSource{err: boom}}).Run(context.Background(), []Job{{Ticker: "EURUSD", Strategy: strategy.Long}})
	assert.ErrorIs(t, err, boom)

	_, err = (&Runner{}).Run(context.Background(), []Job{{Ticker: "EURUSD", Series: series, Strategy: strategy.Long, StartAt: 500}})
	assert.ErrorIs(t, err, backtest.ErrInvalidStart)
}

func TestRunner_Cancelled(t *testing.T) {
	series := model.MustSeries("EURUSD", model.SyntheticQuotes(7, 200, t0, time.Minute))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := (&Runner{}).Run(ctx, []Job{{Ticker: "EURUSD", Series: series, Strategy: strategy.Long}})
	assert.ErrorIs(t, err, context.Canceled)
}
