package indicator

import (
	"fmt"

	"tickback/internal/model"
)

// EMA is the bias-corrected exponential moving average of mid prices with
// smoothing factor 2/(n+1), n being the number of ticks in the window.
// Trend value only.
type EMA struct {
	base
}

// NewEMA creates an exponential moving average over w.
func NewEMA(w Window, opts ...Option) (*EMA, error) {
	b, err := newBase(fmt.Sprintf("EMA(%s)", w), w, opts)
	if err != nil {
		return nil, err
	}
	return &EMA{base: b}, nil
}

func (e *EMA) At(s *model.PriceSeries, end int) Reading {
	return e.at(s, end, e.eval(s.Mids()))
}

func (e *EMA) Series(s *model.PriceSeries) []Reading {
	return e.series(s, perIndex(e.eval(s.Mids())))
}

func (e *EMA) eval(mids []float64) func(start, end int) Reading {
	return func(start, end int) Reading {
		return Reading{Value: emaOf(mids[start : end+1]), OK: true}
	}
}

func emaOf(window []float64) float64 {
	return ewmAdjusted(window, 2/float64(len(window)+1))
}
