package notification

import (
	"fmt"
	"math"
	"strconv"

	"tickback/internal/result"
)

// RunAlert summarizes an aggregate run: the best strategy by total return
// and how it compares with the benchmark column, if present. The alert is a
// warning when no strategy beat the benchmark.
func RunAlert(runID string, agg *result.AggregateResult, benchmark string) Alert {
	best, bestReturn := "", math.Inf(-1)
	benchReturn, haveBench := 0.0, false
	for _, row := range agg.InfoTable() {
		if row.Strategy == benchmark {
			benchReturn, haveBench = row.TotalReturn, true
			continue
		}
		if row.TotalReturn > bestReturn {
			best, bestReturn = row.Strategy, row.TotalReturn
		}
	}

	a := Alert{
		Level: AlertInfo,
		Title: fmt.Sprintf("backtest %s %s..%s", agg.Ticker,
			agg.StartDate.Format(result.DateLayout), agg.EndDate.Format(result.DateLayout)),
		Fields: map[string]string{
			"run_id":     runID,
			"ticker":     agg.Ticker,
			"strategies": strconv.Itoa(len(agg.StrategyNames)),
		},
	}
	if best == "" {
		a.Message = "no strategies besides the benchmark"
		return a
	}
	a.Fields["best"] = best
	a.Fields["best_return"] = pct(bestReturn)
	a.Message = fmt.Sprintf("best %s %s", best, pct(bestReturn))
	if haveBench {
		a.Fields["benchmark_return"] = pct(benchReturn)
		a.Message += fmt.Sprintf(" vs %s %s", benchmark, pct(benchReturn))
		if bestReturn <= benchReturn {
			a.Level = AlertWarning
		}
	}
	return a
}

func pct(f float64) string {
	return strconv.FormatFloat(100*f, 'f', 2, 64) + "%"
}
