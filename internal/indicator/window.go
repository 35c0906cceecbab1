package indicator

import (
	"fmt"
	"time"

	"tickback/internal/model"
)

// Window is the dual lookback constraint of an indicator: a calendar span
// and a minimum tick count. Whichever constraint yields the larger sample
// wins, so growing either field never shrinks the window.
type Window struct {
	Span     time.Duration
	MinTicks int
}

// Validate rejects negative constraints.
func (w Window) Validate() error {
	if w.Span < 0 {
		return fmt.Errorf("%w: negative window span %s", ErrInvalidConfig, w.Span)
	}
	if w.MinTicks < 0 {
		return fmt.Errorf("%w: negative window min ticks %d", ErrInvalidConfig, w.MinTicks)
	}
	return nil
}

func (w Window) String() string {
	return fmt.Sprintf("%s/%d", w.Span, w.MinTicks)
}

// Start returns the first index of the window ending at end. The window is
// [Start, end] inclusive and always contains end itself.
func (w Window) Start(s *model.PriceSeries, end int) int {
	byTime := s.SearchAtOrAfter(s.Time(end).Add(-w.Span))
	return clampStart(byTime, end+1-w.MinTicks)
}

// Bounds returns Start(s, i) for every index of s in a single pass.
// Both the calendar start and the tick start are non-decreasing in i, so a
// two-pointer walk replaces the per-index binary search.
func (w Window) Bounds(s *model.PriceSeries) []int {
	n := s.Len()
	out := make([]int, n)
	times := s.Times()
	lo := 0
	for i := 0; i < n; i++ {
		cutoff := times[i].Add(-w.Span)
		for lo < i && times[lo].Before(cutoff) {
			lo++
		}
		out[i] = clampStart(lo, i+1-w.MinTicks)
	}
	return out
}

func clampStart(byTime, byTicks int) int {
	start := byTime
	if byTicks < start {
		start = byTicks
	}
	if start < 0 {
		start = 0
	}
	return start
}
