package model

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

var (
	// ErrEmptySeries is returned when a series would contain no ticks.
	ErrEmptySeries = errors.New("price series is empty")
	// ErrUnsortedTimestamps is returned when tick timestamps are not strictly increasing.
	ErrUnsortedTimestamps = errors.New("price series timestamps must be strictly increasing")
	// ErrInvalidQuote is returned for non-finite, non-positive or crossed quotes.
	ErrInvalidQuote = errors.New("invalid quote")
)

// PriceSeries is an immutable, time-ordered column store of ticks for one
// security. All derived columns are computed once at construction.
//
// Slices returned by the column accessors share memory with the series and
// must not be modified.
type PriceSeries struct {
	ticker string

	times     []time.Time
	ask       []float64
	bid       []float64
	mid       []float64
	spread    []float64
	returns   []float64
	sellCosts []float64
	askVol    []float64
	bidVol    []float64
}

// NewPriceSeries validates quotes and builds the derived columns.
// Return[0] is 0: the first tick has no predecessor inside the series.
func NewPriceSeries(ticker string, quotes []Quote) (*PriceSeries, error) {
	if len(quotes) == 0 {
		return nil, ErrEmptySeries
	}
	n := len(quotes)
	s := &PriceSeries{
		ticker:    ticker,
		times:     make([]time.Time, n),
		ask:       make([]float64, n),
		bid:       make([]float64, n),
		mid:       make([]float64, n),
		spread:    make([]float64, n),
		returns:   make([]float64, n),
		sellCosts: make([]float64, n),
		askVol:    make([]float64, n),
		bidVol:    make([]float64, n),
	}
	for i, q := range quotes {
		if !q.valid() {
			return nil, fmt.Errorf("%w at index %d (ask=%v bid=%v)", ErrInvalidQuote, i, q.Ask, q.Bid)
		}
		if i > 0 && !q.TS.After(quotes[i-1].TS) {
			return nil, fmt.Errorf("%w: index %d (%s) after %s", ErrUnsortedTimestamps, i,
				q.TS.Format(time.RFC3339Nano), quotes[i-1].TS.Format(time.RFC3339Nano))
		}
		s.times[i] = q.TS
		s.ask[i] = q.Ask
		s.bid[i] = q.Bid
		s.mid[i] = q.Mid()
		s.spread[i] = q.Spread()
		s.sellCosts[i] = -s.spread[i] / q.Ask
		s.askVol[i] = q.AskVol
		s.bidVol[i] = q.BidVol
		if i > 0 {
			s.returns[i] = q.Bid/quotes[i-1].Bid - 1
		}
	}
	return s, nil
}

// Ticker returns the security identifier.
func (s *PriceSeries) Ticker() string { return s.ticker }

// Len returns the number of ticks.
func (s *PriceSeries) Len() int { return len(s.times) }

func (s *PriceSeries) Time(i int) time.Time   { return s.times[i] }
func (s *PriceSeries) Ask(i int) float64      { return s.ask[i] }
func (s *PriceSeries) Bid(i int) float64      { return s.bid[i] }
func (s *PriceSeries) Mid(i int) float64      { return s.mid[i] }
func (s *PriceSeries) Spread(i int) float64   { return s.spread[i] }
func (s *PriceSeries) Return(i int) float64   { return s.returns[i] }
func (s *PriceSeries) SellCost(i int) float64 { return s.sellCosts[i] }

func (s *PriceSeries) Times() []time.Time   { return s.times }
func (s *PriceSeries) Asks() []float64      { return s.ask }
func (s *PriceSeries) Bids() []float64      { return s.bid }
func (s *PriceSeries) Mids() []float64      { return s.mid }
func (s *PriceSeries) Spreads() []float64   { return s.spread }
func (s *PriceSeries) Returns() []float64   { return s.returns }
func (s *PriceSeries) SellCosts() []float64 { return s.sellCosts }

// StartDate returns the first tick timestamp.
func (s *PriceSeries) StartDate() time.Time { return s.times[0] }

// EndDate returns the last tick timestamp.
func (s *PriceSeries) EndDate() time.Time { return s.times[len(s.times)-1] }

// SearchAtOrAfter returns the earliest index whose timestamp is >= ts.
// Returns Len() when every tick is before ts.
func (s *PriceSeries) SearchAtOrAfter(ts time.Time) int {
	return sort.Search(len(s.times), func(i int) bool {
		return !s.times[i].Before(ts)
	})
}

// IndexOf returns the index of the tick with exactly this timestamp.
func (s *PriceSeries) IndexOf(ts time.Time) (int, bool) {
	i := s.SearchAtOrAfter(ts)
	if i < len(s.times) && s.times[i].Equal(ts) {
		return i, true
	}
	return -1, false
}

// Quote reconstructs the raw quote at index i.
func (s *PriceSeries) Quote(i int) Quote {
	return Quote{TS: s.times[i], Ask: s.ask[i], Bid: s.bid[i], AskVol: s.askVol[i], BidVol: s.bidVol[i]}
}

// Strip returns a new series holding only ticks at or before end.
func (s *PriceSeries) Strip(end time.Time) (*PriceSeries, error) {
	hi := sort.Search(len(s.times), func(i int) bool {
		return s.times[i].After(end)
	})
	return s.slice(0, hi)
}

// Between returns a new series holding ticks in [from, to].
func (s *PriceSeries) Between(from, to time.Time) (*PriceSeries, error) {
	lo := s.SearchAtOrAfter(from)
	hi := sort.Search(len(s.times), func(i int) bool {
		return s.times[i].After(to)
	})
	if hi < lo {
		hi = lo
	}
	return s.slice(lo, hi)
}

// slice copies [lo, hi) into a fresh series. Returns are recomputed so the
// first tick of the new series again carries a zero return.
func (s *PriceSeries) slice(lo, hi int) (*PriceSeries, error) {
	if hi <= lo {
		return nil, ErrEmptySeries
	}
	quotes := make([]Quote, 0, hi-lo)
	for i := lo; i < hi; i++ {
		quotes = append(quotes, s.Quote(i))
	}
	return NewPriceSeries(s.ticker, quotes)
}
