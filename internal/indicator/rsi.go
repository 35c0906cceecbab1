package indicator

import (
	"fmt"

	"tickback/internal/model"
)

// RSI is the relative strength index of mid-price differences in the
// window: 100 - 100/(1+RS), RS = mean gain / mean loss. A window without any
// loss reads the neutral 50; a single-tick window has no value.
//
// Signal: BUY at or below Lower, SELL at or above Upper.
type RSI struct {
	base
	lower, upper float64
}

// NewRSI creates an RSI over w with the given oversold/overbought levels.
func NewRSI(w Window, lower, upper float64, opts ...Option) (*RSI, error) {
	if err := validLevels(lower, upper); err != nil {
		return nil, fmt.Errorf("rsi: %w", err)
	}
	b, err := newBase(fmt.Sprintf("RSI(%s,%g,%g)", w, lower, upper), w, opts)
	if err != nil {
		return nil, err
	}
	return &RSI{base: b, lower: lower, upper: upper}, nil
}

func (r *RSI) At(s *model.PriceSeries, end int) Reading {
	return r.at(s, end, r.eval(s.Mids()))
}

func (r *RSI) Series(s *model.PriceSeries) []Reading {
	return r.series(s, perIndex(r.eval(s.Mids())))
}

func (r *RSI) eval(mids []float64) func(start, end int) Reading {
	return func(start, end int) Reading {
		if end == start {
			return Reading{}
		}
		v := rsi(gainLoss(mids[start : end+1]))
		return Reading{
			Value:  v,
			Lower:  r.lower,
			Upper:  r.upper,
			Signal: thresholdSignal(v, r.lower, r.upper),
			OK:     true,
		}
	}
}

// validLevels checks 0 <= lower <= upper <= 100 for oscillator thresholds.
func validLevels(lower, upper float64) error {
	if !(0 <= lower && lower <= upper && upper <= 100) {
		return fmt.Errorf("%w: need 0 <= lower <= upper <= 100, got lower=%g upper=%g", ErrInvalidConfig, lower, upper)
	}
	return nil
}
