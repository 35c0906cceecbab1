package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"tickback/internal/backtest"
)

// Metrics holds all Prometheus metrics for the backtest engine.
// It satisfies backtest.Observer and indicator.SeriesObserver.
type Metrics struct {
	BacktestsTotal *prometheus.CounterVec   // labels: strategy, mode
	BacktestDur    *prometheus.HistogramVec // labels: mode
	TicksSimulated prometheus.Counter

	// Vectorized indicator evaluation
	IndicatorSeriesDur *prometheus.HistogramVec // labels: indicator
	IndicatorTicks     prometheus.Counter

	// Runner
	JobsInFlight prometheus.Gauge
	JobFailures  prometheus.Counter

	// Result persistence
	ResultSaveDur   *prometheus.HistogramVec // labels: store
	AggregateErrors prometheus.Counter

	// Circuit breaker on the Redis publisher
	RedisCircuitBreakerState prometheus.Gauge // 0=closed, 1=open, 2=half-open
	RedisCircuitBreakerTrips prometheus.Counter
	RedisBufferedPublishes   prometheus.Counter
	RedisFlushedPublishes    prometheus.Counter
}

// NewMetrics creates all metrics and registers them on reg.
// A nil reg registers on the default Prometheus registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		BacktestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tickback_backtests_total",
			Help: "Completed backtest runs (by strategy and mode)",
		}, []string{"strategy", "mode"}),
		BacktestDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tickback_backtest_duration_seconds",
			Help:    "Wall time of one backtest run",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 30, 120},
		}, []string{"mode"}),
		TicksSimulated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tickback_ticks_simulated_total",
			Help: "Ticks covered by completed backtest runs",
		}),

		IndicatorSeriesDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tickback_indicator_series_duration_seconds",
			Help:    "Vectorized indicator evaluation latency per series",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"indicator"}),
		IndicatorTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tickback_indicator_ticks_total",
			Help: "Ticks evaluated by vectorized indicators",
		}),

		JobsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tickback_runner_jobs_in_flight",
			Help: "Backtest jobs currently executing",
		}),
		JobFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tickback_runner_job_failures_total",
			Help: "Backtest jobs that returned an error",
		}),

		ResultSaveDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tickback_result_save_duration_seconds",
			Help:    "Result persistence latency (by store)",
			Buckets: prometheus.DefBuckets,
		}, []string{"store"}),
		AggregateErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tickback_aggregate_errors_total",
			Help: "Aggregations rejected because result ranges differ",
		}),

		RedisCircuitBreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tickback_redis_circuit_breaker_state",
			Help: "Redis circuit breaker state (0=closed, 1=open, 2=half-open)",
		}),
		RedisCircuitBreakerTrips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tickback_redis_circuit_breaker_trips_total",
			Help: "Times the Redis circuit breaker tripped open",
		}),
		RedisBufferedPublishes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tickback_redis_buffered_publishes_total",
			Help: "Result publishes buffered locally while Redis was unreachable",
		}),
		RedisFlushedPublishes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tickback_redis_flushed_publishes_total",
			Help: "Buffered result publishes replayed after Redis recovered",
		}),
	}

	reg.MustRegister(
		m.BacktestsTotal,
		m.BacktestDur,
		m.TicksSimulated,
		m.IndicatorSeriesDur,
		m.IndicatorTicks,
		m.JobsInFlight,
		m.JobFailures,
		m.ResultSaveDur,
		m.AggregateErrors,
		m.RedisCircuitBreakerState,
		m.RedisCircuitBreakerTrips,
		m.RedisBufferedPublishes,
		m.RedisFlushedPublishes,
	)

	return m
}

// ObserveBacktest records one completed run.
func (m *Metrics) ObserveBacktest(strategy string, mode backtest.Mode, ticks int, took time.Duration) {
	m.BacktestsTotal.WithLabelValues(strategy, mode.String()).Inc()
	m.BacktestDur.WithLabelValues(mode.String()).Observe(took.Seconds())
	m.TicksSimulated.Add(float64(ticks))
}

// ObserveIndicatorSeries records one vectorized indicator evaluation.
func (m *Metrics) ObserveIndicatorSeries(name string, ticks int, took time.Duration) {
	m.IndicatorSeriesDur.WithLabelValues(name).Observe(took.Seconds())
	m.IndicatorTicks.Add(float64(ticks))
}

// ObserveSave records the latency of persisting one result to store.
func (m *Metrics) ObserveSave(store string, took time.Duration) {
	m.ResultSaveDur.WithLabelValues(store).Observe(took.Seconds())
}

// SetBreakerState records a circuit breaker transition. state follows the
// gauge encoding; opening counts as a trip.
func (m *Metrics) SetBreakerState(state int) {
	m.RedisCircuitBreakerState.Set(float64(state))
	if state == 1 {
		m.RedisCircuitBreakerTrips.Inc()
	}
}
