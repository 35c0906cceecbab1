package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"tickback/config"
	"tickback/internal/backtest"
	"tickback/internal/logger"
	"tickback/internal/metrics"
	"tickback/internal/model"
	"tickback/internal/notification"
	"tickback/internal/result"
	"tickback/internal/runner"
	"tickback/internal/store/redis"
	"tickback/internal/strategy"
)

const benchmarkName = "benchmark"

type runFlags struct {
	ticker     string
	source     string
	from, to   string
	strategies string
	mode       string
	startAt    int
	invest     float64
	low, high  float64
	noSave     bool
	synth      syntheticSource
}

func newRunCmd(cfg *config.Config) *cobra.Command {
	f := &runFlags{synth: syntheticSource{start: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)}}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Backtest strategies on one ticker and compare them with buy-and-hold",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runBacktests(ctx, cmd, cfg, f)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.ticker, "ticker", "SYNTH", "Security to backtest")
	fl.StringVar(&f.source, "source", sourceSQLite, "Quote source: sqlite, influx or synthetic")
	fl.StringVar(&f.from, "from", "", "First date (YYYY-MM-DD), empty for the whole history")
	fl.StringVar(&f.to, "to", "", "Last date (YYYY-MM-DD), inclusive")
	fl.StringVar(&f.strategies, "strategies", "", "Comma-separated strategies (default: all except upper_lower)")
	fl.StringVar(&f.mode, "mode", backtest.Vectorized.String(), "Evaluation mode: iterative or vectorized")
	fl.IntVar(&f.startAt, "start-at", 0, "First simulated tick; earlier ticks only warm up indicators")
	fl.Float64Var(&f.invest, "invest", 1, "Fraction of capital invested on entry, in (0,1]")
	fl.Float64Var(&f.low, "low", 0, "upper_lower: buy when ask falls below")
	fl.Float64Var(&f.high, "high", 0, "upper_lower: sell when bid rises above")
	fl.BoolVar(&f.noSave, "no-save", false, "Do not persist results to SQLite")
	fl.Int64Var(&f.synth.seed, "seed", 1, "synthetic: random seed")
	fl.IntVar(&f.synth.ticks, "ticks", 20000, "synthetic: number of quotes")
	fl.DurationVar(&f.synth.step, "step", 30*time.Second, "synthetic: mean spacing of quotes")
	return cmd
}

func (f *runFlags) strategyNames() []string {
	if f.strategies == "" {
		var names []string
		for _, n := range strategy.Names() {
			if n != strategy.UpperLower {
				names = append(names, n)
			}
		}
		return names
	}
	var names []string
	for _, n := range strings.Split(f.strategies, ",") {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	return names
}

func runBacktests(ctx context.Context, cmd *cobra.Command, cfg *config.Config, f *runFlags) error {
	runID := logger.NewRunID()
	ctx = logger.WithRunID(ctx, runID)

	mode, err := backtest.ParseMode(f.mode)
	if err != nil {
		return err
	}
	from, to, err := dateRange(f.from, f.to)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)
	health := metrics.NewHealthStatus()

	var store interface {
		result.Writer
		Close() error
	}
	if !f.noSave || f.source == sourceSQLite {
		w, err := openWriter(cfg.SQLitePath)
		if err != nil {
			return err
		}
		defer w.Close()
		store = w
		health.StartLivenessChecker(ctx, nil, w.DB(), 15*time.Second)
	}

	src, release, err := openSource(cfg, f.source, f.synth)
	if err != nil {
		return err
	}
	defer release()

	var pub *redis.BufferedPublisher
	if cfg.RedisAddr != "" {
		pub, err = openPublisher(ctx, cfg, m, health)
		if err != nil {
			// results still reach SQLite and stdout
			slog.Warn("redis unavailable, not publishing", append(logger.LogWithRun(ctx), "error", err)...)
		} else {
			defer pub.Underlying().Close()
		}
	}

	if cfg.MetricsAddr != "" {
		srv := metrics.NewServer(cfg.MetricsAddr, health, reg)
		srv.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Stop(shutdownCtx)
		}()
	}

	r := &runner.Runner{
		Workers:           cfg.BacktestWorkers,
		InitialInvestment: cfg.InitialInvestment,
		Observer:          m,
		Source:            src,
		OnJobStart:        m.JobsInFlight.Inc,
		OnJobDone: func(err error) {
			m.JobsInFlight.Dec()
			if err != nil {
				m.JobFailures.Inc()
				return
			}
			health.RecordRun(time.Now())
		},
	}
	series, err := r.Load(ctx, f.ticker, from, to)
	if err != nil {
		return err
	}
	slog.Info("series loaded", append(logger.LogWithRun(ctx),
		"ticker", series.Ticker(),
		"ticks", series.Len(),
		"start", series.StartDate(),
		"end", series.EndDate(),
	)...)

	params := strategy.Params{
		Invest:   f.invest,
		Low:      f.low,
		High:     f.high,
		Workers:  cfg.IndicatorWorkers,
		Observer: m,
	}
	names := f.strategyNames()
	jobs := make([]runner.Job, len(names))
	for i, name := range names {
		jobs[i] = runner.Job{
			Ticker:   f.ticker,
			Series:   series,
			Strategy: name,
			Params:   params,
			Mode:     mode,
			StartAt:  f.startAt,
		}
	}
	results, err := r.Run(ctx, jobs)
	if err != nil {
		return err
	}

	bench, err := benchmark(ctx, series, backtest.Options{
		InitialInvestment: cfg.InitialInvestment,
		StartAt:           f.startAt,
		Observer:          m,
	})
	if err != nil {
		return err
	}
	agg, err := result.Aggregate(results, result.AggregateOptions{
		InitialInvestment: cfg.InitialInvestment,
		Benchmark:         bench,
	})
	if err != nil {
		var mismatch *result.RangeMismatchError
		if errors.As(err, &mismatch) {
			m.AggregateErrors.Inc()
		}
		return err
	}

	if store != nil && !f.noSave {
		for _, res := range agg.Results() {
			began := time.Now()
			if err := store.SaveResult(ctx, runID, res); err != nil {
				return err
			}
			m.ObserveSave("sqlite", time.Since(began))
		}
	}
	if pub != nil {
		for _, res := range agg.Results() {
			began := time.Now()
			if err := pub.Publish(ctx, runID, res); err != nil {
				slog.Warn("publish failed, buffered", append(logger.LogWithRun(ctx), "strategy", res.Strategy(), "error", err)...)
				continue
			}
			m.ObserveSave("redis", time.Since(began))
		}
		if n := pub.PendingCount(); n > 0 {
			flushCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			if err := pub.Flush(flushCtx); err != nil {
				slog.Warn("unpublished results dropped", append(logger.LogWithRun(ctx), "count", pub.PendingCount(), "error", err)...)
			}
			cancel()
		}
	}

	notifier := notification.Multi{notification.NewLogNotifier()}
	if cfg.NotifyWebhookURL != "" {
		notifier = append(notifier, notification.NewWebhookNotifier(cfg.NotifyWebhookURL))
	}
	if err := notifier.Send(ctx, notification.RunAlert(runID, agg, benchmarkName)); err != nil {
		slog.Warn("run alert not delivered", append(logger.LogWithRun(ctx), "error", err)...)
	}

	slog.Info("backtests complete", append(logger.LogWithRun(ctx), "name", agg.Name, "strategies", len(results))...)
	fmt.Fprintf(cmd.OutOrStdout(), "run %s  %s  %s..%s\n\n", runID, agg.Ticker,
		agg.StartDate.Format(result.DateLayout), agg.EndDate.Format(result.DateLayout))
	return result.WriteSummary(cmd.OutOrStdout(), agg)
}

// benchmark runs buy-and-hold over series, named apart from a "long" run.
func benchmark(ctx context.Context, series *model.PriceSeries, opts backtest.Options) (*result.BacktestResult, error) {
	out, err := backtest.Benchmark(ctx, series, opts)
	if err != nil {
		return nil, fmt.Errorf("benchmark: %w", err)
	}
	return result.New(out.Ticker, benchmarkName, out.Perf.Times, out.Perf.Weights, out.Perf.PerformanceRel)
}

func openPublisher(ctx context.Context, cfg *config.Config, m *metrics.Metrics, health *metrics.HealthStatus) (*redis.BufferedPublisher, error) {
	w, err := redis.New(redis.WriterConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		TTL:      cfg.ResultTTL,
	})
	if err != nil {
		return nil, err
	}
	cb := redis.NewCircuitBreaker(5, 10*time.Second)
	cb.OnStateChange = func(from, to redis.State) {
		m.SetBreakerState(int(to))
		slog.Warn("redis circuit breaker", "from", from.String(), "to", to.String())
	}
	pub := redis.NewBufferedPublisher(ctx, w, cb, 0)
	pub.OnBuffer = m.RedisBufferedPublishes.Inc
	pub.OnFlush = func(n int) { m.RedisFlushedPublishes.Add(float64(n)) }
	health.StartLivenessChecker(ctx, w.Client(), nil, 15*time.Second)
	return pub, nil
}
