package result

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// RangeMismatchError names the date ranges that prevented an aggregation.
type RangeMismatchError struct {
	Ranges []string // "strategy: start..end", one per input
}

func (e *RangeMismatchError) Error() string {
	return fmt.Sprintf("%v: %s", ErrRangeMismatch, strings.Join(e.Ranges, ", "))
}

func (e *RangeMismatchError) Unwrap() error { return ErrRangeMismatch }

// AggregateOptions configure Aggregate.
type AggregateOptions struct {
	// InitialInvestment scales the performance table. Zero means 100.
	InitialInvestment float64
	// Benchmark, when set, is added as one more column, typically
	// buy-and-hold over the same series.
	Benchmark *BacktestResult
}

// AggregateResult compares several strategies over one date range.
type AggregateResult struct {
	Ticker            string
	Name              string
	StrategyNames     []string
	StartDate         time.Time
	EndDate           time.Time
	InitialInvestment float64

	results []*BacktestResult // ordered like StrategyNames
}

// NamedInfo is one row of the info table.
type NamedInfo struct {
	Strategy string
	Info
}

// Aggregate combines results that share identical start and end dates.
// Differing ranges fail with a *RangeMismatchError; nothing is truncated.
func Aggregate(results []*BacktestResult, opts AggregateOptions) (*AggregateResult, error) {
	var all []*BacktestResult
	for _, r := range results {
		if r != nil {
			all = append(all, r)
		}
	}
	if len(all) == 0 {
		return nil, ErrEmptyResult
	}
	if opts.Benchmark != nil {
		all = append(all, opts.Benchmark)
	}
	if opts.InitialInvestment == 0 {
		opts.InitialInvestment = 100
	}

	start, end := all[0].StartDate(), all[0].EndDate()
	mismatch := false
	for _, r := range all[1:] {
		if !r.StartDate().Equal(start) || !r.EndDate().Equal(end) {
			mismatch = true
		}
	}
	if mismatch {
		ranges := make([]string, len(all))
		for i, r := range all {
			ranges[i] = fmt.Sprintf("%s: %s..%s", r.Strategy(),
				r.StartDate().Format(DateLayout), r.EndDate().Format(DateLayout))
		}
		return nil, &RangeMismatchError{Ranges: ranges}
	}

	sort.SliceStable(all, func(i, j int) bool { return all[i].Strategy() < all[j].Strategy() })
	names := make([]string, len(all))
	for i, r := range all {
		names[i] = r.Strategy()
	}
	return &AggregateResult{
		Ticker:            all[0].Ticker(),
		Name:              strings.Join(names, "_"),
		StrategyNames:     names,
		StartDate:         start,
		EndDate:           end,
		InitialInvestment: opts.InitialInvestment,
		results:           all,
	}, nil
}

// Results returns the member results in StrategyNames order.
func (a *AggregateResult) Results() []*BacktestResult {
	return append([]*BacktestResult(nil), a.results...)
}

// InfoTable returns one info row per strategy.
func (a *AggregateResult) InfoTable() []NamedInfo {
	rows := make([]NamedInfo, len(a.results))
	for i, r := range a.results {
		rows[i] = NamedInfo{Strategy: r.Strategy(), Info: r.Info()}
	}
	return rows
}

// Table is a time-indexed frame with one column per strategy. Cells for
// keys a strategy never observed are NaN.
type Table struct {
	Index   []time.Time
	Columns []string
	Values  [][]float64 // Values[col][row]
}

// DailyTable joins the daily returns of all strategies on calendar day.
func (a *AggregateResult) DailyTable() Table {
	return a.join(func(r *BacktestResult) ([]time.Time, []float64) {
		days := r.Daily()
		idx := make([]time.Time, len(days))
		vals := make([]float64, len(days))
		for i, d := range days {
			idx[i], vals[i] = d.Date, d.Return
		}
		return idx, vals
	})
}

// PerformanceTable joins InitialInvestment·PerformanceRel of all strategies
// on tick timestamp.
func (a *AggregateResult) PerformanceTable() Table {
	return a.join(func(r *BacktestResult) ([]time.Time, []float64) {
		idx := make([]time.Time, len(r.times))
		vals := make([]float64, len(r.times))
		for i := range r.times {
			idx[i], vals[i] = r.times[i], a.InitialInvestment*r.perfRel[i]
		}
		return idx, vals
	})
}

func (a *AggregateResult) join(column func(*BacktestResult) ([]time.Time, []float64)) Table {
	type col struct {
		idx  []time.Time
		vals []float64
	}
	cols := make([]col, len(a.results))
	seen := make(map[int64]struct{})
	var index []time.Time
	for i, r := range a.results {
		idx, vals := column(r)
		cols[i] = col{idx, vals}
		for _, ts := range idx {
			if _, ok := seen[ts.UnixNano()]; !ok {
				seen[ts.UnixNano()] = struct{}{}
				index = append(index, ts)
			}
		}
	}
	sort.Slice(index, func(i, j int) bool { return index[i].Before(index[j]) })
	pos := make(map[int64]int, len(index))
	for i, ts := range index {
		pos[ts.UnixNano()] = i
	}

	t := Table{Index: index, Columns: append([]string(nil), a.StrategyNames...), Values: make([][]float64, len(cols))}
	for c, cl := range cols {
		vals := make([]float64, len(index))
		for i := range vals {
			vals[i] = math.NaN()
		}
		for k, ts := range cl.idx {
			vals[pos[ts.UnixNano()]] = cl.vals[k]
		}
		t.Values[c] = vals
	}
	return t
}
