package indicator

import (
	"fmt"

	"tickback/internal/model"
)

// SMA is the simple moving average of mid prices over the window.
// Trend value only; its Signal is always HOLD.
type SMA struct {
	base
}

// NewSMA creates a simple moving average over w.
func NewSMA(w Window, opts ...Option) (*SMA, error) {
	b, err := newBase(fmt.Sprintf("SMA(%s)", w), w, opts)
	if err != nil {
		return nil, err
	}
	return &SMA{base: b}, nil
}

func (m *SMA) At(s *model.PriceSeries, end int) Reading {
	return m.at(s, end, m.eval(s.Mids()))
}

func (m *SMA) Series(s *model.PriceSeries) []Reading {
	return m.series(s, perIndex(m.eval(s.Mids())))
}

func (m *SMA) eval(mids []float64) func(start, end int) Reading {
	return func(start, end int) Reading {
		return Reading{Value: mean(mids[start : end+1]), OK: true}
	}
}
