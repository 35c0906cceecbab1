package indicator

import (
	"fmt"

	"tickback/internal/model"
)

// Stochastic is the stochastic oscillator of mid prices:
// 100*(last-min)/(max-min) over the window, 50 when the window is flat.
//
// Signal: BUY at or below Lower, SELL at or above Upper.
type Stochastic struct {
	base
	lower, upper float64
}

// NewStochastic creates a stochastic oscillator over w.
func NewStochastic(w Window, lower, upper float64, opts ...Option) (*Stochastic, error) {
	if err := validLevels(lower, upper); err != nil {
		return nil, fmt.Errorf("stochastic: %w", err)
	}
	b, err := newBase(fmt.Sprintf("SO(%s,%g,%g)", w, lower, upper), w, opts)
	if err != nil {
		return nil, err
	}
	return &Stochastic{base: b, lower: lower, upper: upper}, nil
}

func (o *Stochastic) At(s *model.PriceSeries, end int) Reading {
	mids := s.Mids()
	return o.at(s, end, func(start, end int) Reading {
		lo, hi := mids[start], mids[start]
		for _, x := range mids[start+1 : end+1] {
			if x < lo {
				lo = x
			}
			if x > hi {
				hi = x
			}
		}
		return o.reading(mids[end], lo, hi)
	})
}

func (o *Stochastic) Series(s *model.PriceSeries) []Reading {
	mids := s.Mids()
	return o.series(s, func(out []Reading, bounds []int, lo, hi int) {
		slidingMinMax(mids, bounds, lo, hi, func(i int, low, high float64) {
			out[i] = o.reading(mids[i], low, high)
		})
	})
}

func (o *Stochastic) reading(last, lo, hi float64) Reading {
	v := stochastic(last, lo, hi)
	return Reading{
		Value:  v,
		Lower:  o.lower,
		Upper:  o.upper,
		Signal: thresholdSignal(v, o.lower, o.upper),
		OK:     true,
	}
}
