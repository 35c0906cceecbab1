package result

import "time"

// DailyRow is the performance of one calendar day.
type DailyRow struct {
	Date   time.Time `json:"date"`
	Return float64   `json:"return"`
}

// dateOf truncates ts to its UTC calendar day.
func dateOf(ts time.Time) time.Time {
	y, m, d := ts.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// dailyPerformance takes the last relative performance of every calendar day
// and returns day-over-day ratios minus one. The first day is measured
// against the starting value of 1.
func dailyPerformance(times []time.Time, perfRel []float64) []DailyRow {
	var rows []DailyRow
	var lastOfDay []float64
	for i, ts := range times {
		day := dateOf(ts)
		if n := len(rows); n > 0 && rows[n-1].Date.Equal(day) {
			lastOfDay[n-1] = perfRel[i]
			continue
		}
		rows = append(rows, DailyRow{Date: day})
		lastOfDay = append(lastOfDay, perfRel[i])
	}
	prev := 1.0
	for k := range rows {
		rows[k].Return = lastOfDay[k]/prev - 1
		prev = lastOfDay[k]
	}
	return rows
}
