package result

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// DateLayout is the calendar day format used by Info and the stores.
const DateLayout = "2006-01-02"

// Info is the summary statistics record of a BacktestResult. Bucket means
// are NaN when the bucket is empty; Var and StdDev are NaN with fewer than
// two performance changes.
type Info struct {
	StartDate    time.Time `json:"start_date"`
	EndDate      time.Time `json:"end_date"`
	NumDays      int       `json:"num_days"`
	NeutralDays  int       `json:"number_neutral_days"`
	TotalReturn  float64   `json:"total_return"`
	MinDaily     float64   `json:"min_daily_return"`
	AvgDaily     float64   `json:"average_daily_return"`
	MaxDaily     float64   `json:"max_daily_return"`
	PositiveDays int       `json:"number_positive_days"`
	AvgPositive  float64   `json:"average_positive_days_return"`
	NegativeDays int       `json:"number_negative_days"`
	AvgNegative  float64   `json:"average_negative_days_return"`
	Var          float64   `json:"var"`
	StdDev       float64   `json:"std_dev"`
}

// Field is one named entry of the info view.
type Field struct {
	Name  string
	Value string
}

// Fields returns the info record as ordered name/value pairs. Floats use the
// shortest round-tripping representation; NaN is "NaN".
func (in Info) Fields() []Field {
	return []Field{
		{"start_date", in.StartDate.Format(DateLayout)},
		{"end_date", in.EndDate.Format(DateLayout)},
		{"num_days", strconv.Itoa(in.NumDays)},
		{"number_neutral_days", strconv.Itoa(in.NeutralDays)},
		{"total_return", formatFloat(in.TotalReturn)},
		{"min_daily_return", formatFloat(in.MinDaily)},
		{"average_daily_return", formatFloat(in.AvgDaily)},
		{"max_daily_return", formatFloat(in.MaxDaily)},
		{"number_positive_days", strconv.Itoa(in.PositiveDays)},
		{"average_positive_days_return", formatFloat(in.AvgPositive)},
		{"number_negative_days", strconv.Itoa(in.NegativeDays)},
		{"average_negative_days_return", formatFloat(in.AvgNegative)},
		{"var", formatFloat(in.Var)},
		{"std_dev", formatFloat(in.StdDev)},
	}
}

// ParseInfo rebuilds an Info from the pairs produced by Fields.
func ParseInfo(fields map[string]string) (Info, error) {
	var in Info
	var err error
	date := func(key string) time.Time {
		if err != nil {
			return time.Time{}
		}
		var t time.Time
		t, err = time.Parse(DateLayout, fields[key])
		if err != nil {
			err = fmt.Errorf("info field %s: %w", key, err)
		}
		return t
	}
	integer := func(key string) int {
		if err != nil {
			return 0
		}
		var n int
		n, err = strconv.Atoi(fields[key])
		if err != nil {
			err = fmt.Errorf("info field %s: %w", key, err)
		}
		return n
	}
	float := func(key string) float64 {
		if err != nil {
			return 0
		}
		var f float64
		f, err = strconv.ParseFloat(fields[key], 64)
		if err != nil {
			err = fmt.Errorf("info field %s: %w", key, err)
		}
		return f
	}
	in.StartDate = date("start_date")
	in.EndDate = date("end_date")
	in.NumDays = integer("num_days")
	in.NeutralDays = integer("number_neutral_days")
	in.TotalReturn = float("total_return")
	in.MinDaily = float("min_daily_return")
	in.AvgDaily = float("average_daily_return")
	in.MaxDaily = float("max_daily_return")
	in.PositiveDays = integer("number_positive_days")
	in.AvgPositive = float("average_positive_days_return")
	in.NegativeDays = integer("number_negative_days")
	in.AvgNegative = float("average_negative_days_return")
	in.Var = float("var")
	in.StdDev = float("std_dev")
	if err != nil {
		return Info{}, err
	}
	return in, nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func summarize(times []time.Time, perfRel []float64, daily []DailyRow) Info {
	in := Info{
		StartDate:   dateOf(times[0]),
		EndDate:     dateOf(times[len(times)-1]),
		NumDays:     len(daily),
		TotalReturn: perfRel[len(perfRel)-1] - 1,
		MinDaily:    math.Inf(1),
		MaxDaily:    math.Inf(-1),
	}
	var sum, pos, neg float64
	for _, d := range daily {
		sum += d.Return
		in.MinDaily = math.Min(in.MinDaily, d.Return)
		in.MaxDaily = math.Max(in.MaxDaily, d.Return)
		switch {
		case d.Return > 0:
			in.PositiveDays++
			pos += d.Return
		case d.Return < 0:
			in.NegativeDays++
			neg += d.Return
		default:
			in.NeutralDays++
		}
	}
	in.AvgDaily = sum / float64(len(daily))
	in.AvgPositive = meanOrNaN(pos, in.PositiveDays)
	in.AvgNegative = meanOrNaN(neg, in.NegativeDays)
	in.Var = sampleVariance(pctChange(perfRel))
	in.StdDev = math.Sqrt(in.Var)
	return in
}

func meanOrNaN(sum float64, n int) float64 {
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

func pctChange(xs []float64) []float64 {
	if len(xs) < 2 {
		return nil
	}
	out := make([]float64, len(xs)-1)
	for i := 1; i < len(xs); i++ {
		out[i-1] = xs[i]/xs[i-1] - 1
	}
	return out
}

func sampleVariance(xs []float64) float64 {
	if len(xs) < 2 {
		return math.NaN()
	}
	var m float64
	for _, x := range xs {
		m += x
	}
	m /= float64(len(xs))
	var ss float64
	for _, x := range xs {
		ss += (x - m) * (x - m)
	}
	return ss / float64(len(xs)-1)
}
