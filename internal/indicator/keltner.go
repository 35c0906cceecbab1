package indicator

import (
	"fmt"
	"math"

	"tickback/internal/model"
)

// Keltner channels: ema ± k·ATR over the same window.
//
// Signal: SELL when mid is at or above the upper channel, BUY at or below
// the lower channel.
type Keltner struct {
	base
	segments int
	k        float64
}

// NewKeltner creates Keltner channels over w.
func NewKeltner(w Window, segments int, k float64, opts ...Option) (*Keltner, error) {
	if segments < 1 {
		return nil, fmt.Errorf("keltner: %w: segments must be positive, got %d", ErrInvalidConfig, segments)
	}
	if !(k > 0) || math.IsInf(k, 0) {
		return nil, fmt.Errorf("keltner: %w: channel width must be positive, got %g", ErrInvalidConfig, k)
	}
	b, err := newBase(fmt.Sprintf("KC(%s,%d,%g)", w, segments, k), w, opts)
	if err != nil {
		return nil, err
	}
	return &Keltner{base: b, segments: segments, k: k}, nil
}

func (kc *Keltner) At(s *model.PriceSeries, end int) Reading {
	return kc.at(s, end, kc.eval(s.Mids()))
}

func (kc *Keltner) Series(s *model.PriceSeries) []Reading {
	return kc.series(s, perIndex(kc.eval(s.Mids())))
}

func (kc *Keltner) eval(mids []float64) func(start, end int) Reading {
	return func(start, end int) Reading {
		window := mids[start : end+1]
		center := emaOf(window)
		width := kc.k * segmentRangeMean(window, kc.segments)
		lower, upper := center-width, center+width
		return Reading{
			Value:  center,
			Lower:  lower,
			Upper:  upper,
			Signal: bandSignal(mids[end], lower, upper),
			OK:     true,
		}
	}
}
