package model

import (
	"math"
	"math/rand"
	"time"
)

// SyntheticQuotes generates a deterministic random-walk quote stream.
// Used by tests and by the CLI's demo source; the same seed always yields
// the same quotes.
func SyntheticQuotes(seed int64, n int, start time.Time, step time.Duration) []Quote {
	rng := rand.New(rand.NewSource(seed))
	quotes := make([]Quote, n)
	mid := 100.0
	for i := 0; i < n; i++ {
		// Mean-reverting drift keeps long walks in a sane price band.
		mid *= 1 + rng.NormFloat64()*0.002 - (mid-100)*0.0005
		mid = math.Max(mid, 1)
		half := mid * (0.0001 + rng.Float64()*0.0004)
		ts := start.Add(time.Duration(i) * step)
		// Irregular tick spacing so calendar and tick-count windows diverge.
		if i > 0 && step > time.Nanosecond {
			ts = ts.Add(time.Duration(rng.Int63n(int64(step) / 2)))
		}
		quotes[i] = Quote{
			TS:     ts,
			Ask:    mid + half,
			Bid:    mid - half,
			AskVol: float64(1 + rng.Intn(10)),
			BidVol: float64(1 + rng.Intn(10)),
		}
	}
	return quotes
}

// MustSeries builds a series from quotes and panics on invalid input.
// Intended for tests and fixtures only.
func MustSeries(ticker string, quotes []Quote) *PriceSeries {
	s, err := NewPriceSeries(ticker, quotes)
	if err != nil {
		panic(err)
	}
	return s
}

// QuotesFromMids builds quotes with a fixed relative half-spread around the
// given mid prices, one tick per step starting at start.
func QuotesFromMids(mids []float64, start time.Time, step time.Duration, halfSpread float64) []Quote {
	quotes := make([]Quote, len(mids))
	for i, m := range mids {
		quotes[i] = Quote{
			TS:  start.Add(time.Duration(i) * step),
			Ask: m + halfSpread,
			Bid: m - halfSpread,
		}
	}
	return quotes
}
