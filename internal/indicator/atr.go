package indicator

import (
	"fmt"

	"tickback/internal/model"
)

// DefaultSegments is the segment count used by ATR and Keltner channels.
const DefaultSegments = 14

// ATR approximates the average true range from ticks: the window is split
// into at most Segments contiguous parts and the part ranges are averaged.
// Magnitude value only.
type ATR struct {
	base
	segments int
}

// NewATR creates an average true range over w with the given segment count.
func NewATR(w Window, segments int, opts ...Option) (*ATR, error) {
	if segments < 1 {
		return nil, fmt.Errorf("atr: %w: segments must be positive, got %d", ErrInvalidConfig, segments)
	}
	b, err := newBase(fmt.Sprintf("ATR(%s,%d)", w, segments), w, opts)
	if err != nil {
		return nil, err
	}
	return &ATR{base: b, segments: segments}, nil
}

func (a *ATR) At(s *model.PriceSeries, end int) Reading {
	return a.at(s, end, a.eval(s.Mids()))
}

func (a *ATR) Series(s *model.PriceSeries) []Reading {
	return a.series(s, perIndex(a.eval(s.Mids())))
}

func (a *ATR) eval(mids []float64) func(start, end int) Reading {
	return func(start, end int) Reading {
		return Reading{Value: segmentRangeMean(mids[start:end+1], a.segments), OK: true}
	}
}
