package indicator

import (
	"fmt"
	"math"

	"tickback/internal/model"
)

// DefaultBandWidth is the default band multiplier for Bollinger and Keltner.
const DefaultBandWidth = 2.0

// Bollinger bands: sma ± k·stddev where stddev is the sample deviation of
// the tick-to-tick percentage changes of mid inside the window. At least
// two changes are needed for a value.
//
// Signal: SELL when mid is at or above the upper band, BUY at or below the
// lower band.
type Bollinger struct {
	base
	k float64
}

// NewBollinger creates Bollinger bands over w, k deviations wide.
func NewBollinger(w Window, k float64, opts ...Option) (*Bollinger, error) {
	if !(k > 0) || math.IsInf(k, 0) {
		return nil, fmt.Errorf("bollinger: %w: band width must be positive, got %g", ErrInvalidConfig, k)
	}
	b, err := newBase(fmt.Sprintf("BB(%s,%g)", w, k), w, opts)
	if err != nil {
		return nil, err
	}
	return &Bollinger{base: b, k: k}, nil
}

func (bb *Bollinger) At(s *model.PriceSeries, end int) Reading {
	mids := s.Mids()
	return bb.at(s, end, func(start, end int) Reading {
		if end-start < 2 {
			return Reading{}
		}
		changes := pctChanges(make([]float64, 0, end-start), mids[start:end+1])
		return bb.reading(mids, changes, start, end)
	})
}

func (bb *Bollinger) Series(s *model.PriceSeries) []Reading {
	mids := s.Mids()
	pct := pctColumn(mids)
	return bb.series(s, perIndex(func(start, end int) Reading {
		if end-start < 2 {
			return Reading{}
		}
		return bb.reading(mids, pct[start+1:end+1], start, end)
	}))
}

func (bb *Bollinger) reading(mids, changes []float64, start, end int) Reading {
	mid := mean(mids[start : end+1])
	width := bb.k * sampleStd(changes)
	lower, upper := mid-width, mid+width
	return Reading{
		Value:  mid,
		Lower:  lower,
		Upper:  upper,
		Signal: bandSignal(mids[end], lower, upper),
		OK:     true,
	}
}
