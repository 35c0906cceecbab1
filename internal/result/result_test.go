package result

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d, h int) time.Time {
	return time.Date(2024, 2, d, h, 0, 0, 0, time.UTC)
}

func build(t *testing.T, name string, times []time.Time, perf []float64) *BacktestResult {
	t.Helper()
	ws := make([]float64, len(times))
	for i := range ws {
		ws[i] = 1
	}
	r, err := New("TCK", name, times, ws, perf)
	require.NoError(t, err)
	return r
}

// ────────────────────────────────────────────────────────────
// Daily aggregation
// ────────────────────────────────────────────────────────────

func TestDaily_RoundTrip(t *testing.T) {
	r := build(t, "s", []time.Time{day(1, 10), day(1, 15), day(2, 9)}, []float64{1.0, 1.02, 1.01})
	daily := r.Daily()
	require.Len(t, daily, 2)
	assert.Equal(t, day(1, 0), daily[0].Date)
	assert.InDelta(t, 0.02, daily[0].Return, 1e-12)
	assert.InDelta(t, 1.01/1.02-1, daily[1].Return, 1e-12)
}

func TestInfo_Buckets(t *testing.T) {
	// daily: +10%, 0%, -5%, +10%
	perf := []float64{1.1, 1.1, 1.045, 1.1495}
	r := build(t, "s", []time.Time{day(1, 12), day(2, 12), day(3, 12), day(4, 12)}, perf)
	in := r.Info()

	assert.Equal(t, day(1, 0), in.StartDate)
	assert.Equal(t, day(4, 0), in.EndDate)
	assert.Equal(t, 4, in.NumDays)
	assert.Equal(t, 2, in.PositiveDays)
	assert.Equal(t, 1, in.NeutralDays)
	assert.Equal(t, 1, in.NegativeDays)
	assert.InDelta(t, 0.1495, in.TotalReturn, 1e-12)
	assert.InDelta(t, 0.1, in.AvgPositive, 1e-9)
	assert.InDelta(t, -0.05, in.AvgNegative, 1e-9)
	assert.InDelta(t, -0.05, in.MinDaily, 1e-9)
	assert.InDelta(t, 0.1, in.MaxDaily, 1e-9)
	assert.InDelta(t, 0.0375, in.AvgDaily, 1e-9)

	// pct changes of perf: 0, -0.05, 0.1 → mean 0.01666…, sample var
	changes := []float64{0, 1.045/1.1 - 1, 1.1495/1.045 - 1}
	m := (changes[0] + changes[1] + changes[2]) / 3
	var ss float64
	for _, c := range changes {
		ss += (c - m) * (c - m)
	}
	assert.InDelta(t, ss/2, in.Var, 1e-12)
	assert.InDelta(t, math.Sqrt(ss/2), in.StdDev, 1e-12)
}

func TestInfo_EmptyBucketsAreNaN(t *testing.T) {
	r := build(t, "flat", []time.Time{day(1, 1)}, []float64{1})
	in := r.Info()
	assert.True(t, math.IsNaN(in.AvgPositive))
	assert.True(t, math.IsNaN(in.AvgNegative))
	assert.True(t, math.IsNaN(in.Var))
	assert.Equal(t, 1, in.NeutralDays)
}

func TestInfo_FieldsRoundTrip(t *testing.T) {
	r := build(t, "s", []time.Time{day(1, 10), day(2, 10), day(3, 10)}, []float64{1.01, 0.99, 1.03})
	fields := map[string]string{}
	for _, f := range r.Info().Fields() {
		fields[f.Name] = f.Value
	}
	require.Len(t, fields, 14)
	back, err := ParseInfo(fields)
	require.NoError(t, err)
	assert.Equal(t, r.Info(), back)

	delete(fields, "var")
	_, err = ParseInfo(fields)
	assert.Error(t, err)
}

func TestNew_Validation(t *testing.T) {
	_, err := New("T", "s", nil, nil, nil)
	assert.ErrorIs(t, err, ErrEmptyResult)

	_, err = New("T", "s", []time.Time{day(1, 1)}, []float64{1, 1}, []float64{1})
	assert.Error(t, err)

	_, err = New("T", "s", []time.Time{day(1, 2), day(1, 1)}, []float64{1, 1}, []float64{1, 1})
	assert.Error(t, err)
}

func TestTimeSeriesView(t *testing.T) {
	r := build(t, "s", []time.Time{day(1, 1), day(1, 2)}, []float64{0.99, 1.01})
	rows := r.TimeSeries()
	require.Len(t, rows, 2)
	assert.Equal(t, TSRow{TS: day(1, 2), Weight: 1, PerformanceRel: 1.01}, rows[1])
}

// ────────────────────────────────────────────────────────────
// Aggregation
// ────────────────────────────────────────────────────────────

func TestAggregate_RejectsMismatchedEnd(t *testing.T) {
	a := build(t, "trend", []time.Time{day(1, 1), day(3, 1)}, []float64{1, 1.1})
	b := build(t, "long", []time.Time{day(1, 1), day(4, 1)}, []float64{1, 1.2})

	agg, err := Aggregate([]*BacktestResult{a, b}, AggregateOptions{})
	require.Error(t, err)
	assert.Nil(t, agg)
	assert.True(t, errors.Is(err, ErrRangeMismatch))

	var rm *RangeMismatchError
	require.ErrorAs(t, err, &rm)
	assert.Equal(t, []string{"trend: 2024-02-01..2024-02-03", "long: 2024-02-01..2024-02-04"}, rm.Ranges)
}

func TestAggregate_BenchmarkMustMatch(t *testing.T) {
	a := build(t, "trend", []time.Time{day(1, 1), day(3, 1)}, []float64{1, 1.1})
	bench := build(t, "long", []time.Time{day(2, 1), day(3, 1)}, []float64{1, 1.2})
	_, err := Aggregate([]*BacktestResult{a}, AggregateOptions{Benchmark: bench})
	assert.ErrorIs(t, err, ErrRangeMismatch)
}

func TestAggregate_Tables(t *testing.T) {
	times := []time.Time{day(1, 1), day(1, 5), day(2, 1)}
	trend := build(t, "trend", times, []float64{1, 1.1, 1.21})
	combo := build(t, "combination", times, []float64{1, 1, 0.9})
	long := build(t, "long", []time.Time{day(1, 2), day(2, 3)}, []float64{1, 1.05})

	agg, err := Aggregate([]*BacktestResult{trend, combo}, AggregateOptions{InitialInvestment: 10, Benchmark: long})
	require.NoError(t, err)
	assert.Equal(t, []string{"combination", "long", "trend"}, agg.StrategyNames)
	assert.Equal(t, "combination_long_trend", agg.Name)
	assert.Equal(t, "TCK", agg.Ticker)

	info := agg.InfoTable()
	require.Len(t, info, 3)
	assert.Equal(t, "long", info[1].Strategy)

	daily := agg.DailyTable()
	assert.Equal(t, []time.Time{day(1, 0), day(2, 0)}, daily.Index)
	assert.InDelta(t, 0.1, daily.Values[2][0], 1e-12)

	perf := agg.PerformanceTable()
	require.Len(t, perf.Index, 5)
	assert.InDelta(t, 12.1, perf.Values[2][3], 1e-9)
	// the benchmark ticks at 02:00 only, so trend has no value there
	assert.True(t, math.IsNaN(perf.Values[2][1]))
	assert.InDelta(t, 10, perf.Values[1][1], 1e-12)
}

func TestAggregate_Empty(t *testing.T) {
	_, err := Aggregate(nil, AggregateOptions{})
	assert.ErrorIs(t, err, ErrEmptyResult)
}

func TestWriteSummary(t *testing.T) {
	times := []time.Time{day(1, 1), day(2, 1)}
	agg, err := Aggregate([]*BacktestResult{
		build(t, "trend", times, []float64{1, 1.1}),
		build(t, "long", times, []float64{1, 1.2}),
	}, AggregateOptions{})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, agg))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 15)
	assert.Contains(t, lines[0], "long")
	assert.Contains(t, lines[0], "trend")
	assert.Contains(t, buf.String(), "total_return")
}
