// Package strategy turns indicator readings into target allocations.
//
// A Strategy answers, for a tick, what fraction of capital should be in the
// security. An empty Weight means "no new information": the backtest carries
// the previous allocation forward. Some(0) is an explicit exit.
package strategy

import (
	"errors"
	"fmt"
	"math"

	"github.com/moznion/go-optional"
	"golang.org/x/sync/errgroup"

	"tickback/internal/indicator"
	"tickback/internal/model"
)

var (
	// ErrInvalidConfig is returned for malformed strategy parameters.
	ErrInvalidConfig = errors.New("invalid strategy config")
	// ErrUnknownStrategy is returned by Build for unregistered names.
	ErrUnknownStrategy = errors.New("unknown strategy")
)

// Weight is a target allocation in [0, 1], or None to hold.
type Weight = optional.Option[float64]

// Strategy is the interface that all strategies implement. WeightAt and
// Weights must agree at every tick.
type Strategy interface {
	// Name returns the registered strategy name.
	Name() string

	// WeightAt decides the allocation at tick end from ticks up to end.
	WeightAt(s *model.PriceSeries, end int) Weight

	// Weights decides the allocation at every tick of s.
	Weights(s *model.PriceSeries) []Weight
}

// decideFunc folds the readings of a strategy's indicators at tick i into a
// weight. rs is ordered like Composite.Indicators and must not be retained.
type decideFunc func(s *model.PriceSeries, i int, rs []indicator.Reading) Weight

// Composite is a strategy built from a fixed indicator set and a decision
// rule. Every concrete strategy in this package is a Composite.
type Composite struct {
	name       string
	invest     float64
	indicators []indicator.Indicator
	decide     decideFunc
}

func (c *Composite) Name() string { return c.name }

// Invest returns the allocation used for a full entry.
func (c *Composite) Invest() float64 { return c.invest }

// Indicators returns the strategy's own indicator instances.
func (c *Composite) Indicators() []indicator.Indicator { return c.indicators }

func (c *Composite) WeightAt(s *model.PriceSeries, end int) Weight {
	if end < 0 || end >= s.Len() {
		return optional.None[float64]()
	}
	rs := make([]indicator.Reading, len(c.indicators))
	for k, ind := range c.indicators {
		rs[k] = ind.At(s, end)
	}
	return c.decide(s, end, rs)
}

func (c *Composite) Weights(s *model.PriceSeries) []Weight {
	cols := seriesAll(s, c.indicators)
	out := make([]Weight, s.Len())
	rs := make([]indicator.Reading, len(c.indicators))
	for i := range out {
		for k := range cols {
			rs[k] = cols[k][i]
		}
		out[i] = c.decide(s, i, rs)
	}
	return out
}

// seriesAll evaluates independent indicators concurrently. Each indicator
// owns its output slice, so nothing is shared between goroutines.
func seriesAll(s *model.PriceSeries, inds []indicator.Indicator) [][]indicator.Reading {
	cols := make([][]indicator.Reading, len(inds))
	var g errgroup.Group
	for k, ind := range inds {
		k, ind := k, ind
		g.Go(func() error {
			cols[k] = ind.Series(s)
			return nil
		})
	}
	_ = g.Wait()
	return cols
}

func validInvest(invest float64) error {
	if math.IsNaN(invest) || invest <= 0 || invest > 1 {
		return fmt.Errorf("%w: invest must be in (0, 1], got %g", ErrInvalidConfig, invest)
	}
	return nil
}

func enter(invest float64) Weight { return optional.Some(invest) }
func exit() Weight                { return optional.Some(0.0) }
func hold() Weight                { return optional.None[float64]() }
