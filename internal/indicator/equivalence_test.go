package indicator

import (
	"testing"
	"time"

	"tickback/internal/model"
)

// ────────────────────────────────────────────────────────────
// Causal vs vectorized equivalence
// ────────────────────────────────────────────────────────────

func synthetic(t *testing.T, seed int64, n int) *model.PriceSeries {
	t.Helper()
	s, err := model.NewPriceSeries("SYN", model.SyntheticQuotes(seed, n, t0, 10*time.Second))
	if err != nil {
		t.Fatalf("synthetic series: %v", err)
	}
	return s
}

func allIndicators(t *testing.T, w Window, workers int) []Indicator {
	t.Helper()
	opts := []Option{WithWorkers(workers)}
	var out []Indicator
	add := func(ind Indicator, err error) {
		if err != nil {
			t.Fatalf("constructor: %v", err)
		}
		out = append(out, ind)
	}
	add(NewSMA(w, opts...))
	add(NewEMA(w, opts...))
	add(NewRSI(w, 30, 70, opts...))
	add(NewStochastic(w, 20, 80, opts...))
	add(NewATR(w, DefaultSegments, opts...))
	add(NewBollinger(w, DefaultBandWidth, opts...))
	add(NewKeltner(w, DefaultSegments, DefaultBandWidth, opts...))
	return out
}

func TestSeriesMatchesAt(t *testing.T) {
	s := synthetic(t, 7, 5000)
	windows := []Window{
		{Span: 5 * time.Minute, MinTicks: 20},
		{Span: time.Hour, MinTicks: 0},
		{Span: 0, MinTicks: 50},
		{Span: 30 * time.Second, MinTicks: 3},
	}
	for _, w := range windows {
		for _, ind := range allIndicators(t, w, 4) {
			vector := ind.Series(s)
			if len(vector) != s.Len() {
				t.Fatalf("%s: Series length %d, want %d", ind.Name(), len(vector), s.Len())
			}
			mismatches := 0
			for i := 0; i < s.Len(); i++ {
				if got := ind.At(s, i); got != vector[i] {
					mismatches++
					if mismatches <= 3 {
						t.Errorf("%s @%d: At=%+v Series=%+v", ind.Name(), i, got, vector[i])
					}
				}
			}
			if mismatches > 0 {
				t.Errorf("%s: %d mismatching ticks", ind.Name(), mismatches)
			}
		}
	}
}

func TestSeries_WorkerCountIndependent(t *testing.T) {
	s := synthetic(t, 11, 6000)
	w := Window{Span: 2 * time.Minute, MinTicks: 10}
	single := allIndicators(t, w, 1)
	parallel := allIndicators(t, w, 8)
	for k := range single {
		a, b := single[k].Series(s), parallel[k].Series(s)
		for i := range a {
			if a[i] != b[i] {
				t.Fatalf("%s @%d: 1 worker %+v, 8 workers %+v", single[k].Name(), i, a[i], b[i])
			}
		}
	}
}

// ────────────────────────────────────────────────────────────
// Cache
// ────────────────────────────────────────────────────────────

func TestCache_RecordsCausalOnly(t *testing.T) {
	s := synthetic(t, 3, 100)
	sma, _ := NewSMA(ticks(5))

	sma.Series(s)
	if n := sma.Cache().Len(); n != 0 {
		t.Fatalf("Series wrote %d cache entries", n)
	}

	r := sma.At(s, 42)
	byIdx, ok := sma.Cache().AtIndex(42)
	if !ok || byIdx != r {
		t.Fatalf("AtIndex(42) = %+v, %v; want %+v", byIdx, ok, r)
	}
	byTime, ok := sma.Cache().At(s.Time(42))
	if !ok || byTime != r {
		t.Fatalf("At(ts) = %+v, %v; want %+v", byTime, ok, r)
	}

	sma.Cache().Reset()
	if sma.Cache().Len() != 0 {
		t.Fatal("Reset left entries behind")
	}
}

func TestCache_IsolatedPerInstance(t *testing.T) {
	s := synthetic(t, 3, 50)
	a, _ := NewEMA(ticks(5))
	b, _ := NewEMA(ticks(5))
	a.At(s, 10)
	if b.Cache().Len() != 0 {
		t.Fatal("instances share a cache")
	}
}

func TestAt_OutOfRange(t *testing.T) {
	s := synthetic(t, 3, 10)
	sma, _ := NewSMA(ticks(5))
	if r := sma.At(s, 10); r.OK {
		t.Errorf("At past end returned %+v", r)
	}
	if r := sma.At(s, -1); r.OK {
		t.Errorf("At(-1) returned %+v", r)
	}
}
