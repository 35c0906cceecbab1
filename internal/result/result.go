// Package result derives daily returns and summary statistics from a
// simulated performance series.
package result

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrEmptyResult is returned when a result would hold no ticks.
	ErrEmptyResult = errors.New("backtest result is empty")
	// ErrRangeMismatch is wrapped by RangeMismatchError.
	ErrRangeMismatch = errors.New("backtest results cover different date ranges")
)

// BacktestResult is the immutable outcome of one (security, strategy,
// date range) simulation. Daily returns and Info are derived once in New.
type BacktestResult struct {
	ticker   string
	strategy string

	times   []time.Time
	weights []float64
	perfRel []float64

	daily []DailyRow
	info  Info
}

// TSRow is one tick of the time series view.
type TSRow struct {
	TS             time.Time `json:"ts"`
	Weight         float64   `json:"weight"`
	PerformanceRel float64   `json:"performance_rel"`
}

// New copies the inputs and derives the daily and info views.
func New(ticker, strategyName string, times []time.Time, weights, perfRel []float64) (*BacktestResult, error) {
	if len(times) == 0 {
		return nil, ErrEmptyResult
	}
	if len(weights) != len(times) || len(perfRel) != len(times) {
		return nil, fmt.Errorf("result %s/%s: %d times, %d weights, %d performance values",
			ticker, strategyName, len(times), len(weights), len(perfRel))
	}
	for i := 1; i < len(times); i++ {
		if !times[i].After(times[i-1]) {
			return nil, fmt.Errorf("result %s/%s: timestamps not increasing at %d", ticker, strategyName, i)
		}
	}
	r := &BacktestResult{
		ticker:   ticker,
		strategy: strategyName,
		times:    append([]time.Time(nil), times...),
		weights:  append([]float64(nil), weights...),
		perfRel:  append([]float64(nil), perfRel...),
	}
	r.daily = dailyPerformance(r.times, r.perfRel)
	r.info = summarize(r.times, r.perfRel, r.daily)
	return r, nil
}

func (r *BacktestResult) Ticker() string   { return r.ticker }
func (r *BacktestResult) Strategy() string { return r.strategy }
func (r *BacktestResult) Len() int         { return len(r.times) }

// StartDate is the calendar day (UTC) of the first tick.
func (r *BacktestResult) StartDate() time.Time { return r.info.StartDate }

// EndDate is the calendar day (UTC) of the last tick.
func (r *BacktestResult) EndDate() time.Time { return r.info.EndDate }

// PerformanceRel returns a copy of the relative performance series.
func (r *BacktestResult) PerformanceRel() []float64 {
	return append([]float64(nil), r.perfRel...)
}

// TimeSeries returns the weight and relative performance per tick.
func (r *BacktestResult) TimeSeries() []TSRow {
	rows := make([]TSRow, len(r.times))
	for i := range r.times {
		rows[i] = TSRow{TS: r.times[i], Weight: r.weights[i], PerformanceRel: r.perfRel[i]}
	}
	return rows
}

// Daily returns one row per calendar day.
func (r *BacktestResult) Daily() []DailyRow {
	return append([]DailyRow(nil), r.daily...)
}

// Info returns the summary statistics.
func (r *BacktestResult) Info() Info { return r.info }
