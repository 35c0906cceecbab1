package backtest

import (
	"fmt"
	"time"

	"tickback/internal/model"
	"tickback/internal/strategy"
)

// Performance is the full simulation trace, one entry per evaluated tick.
type Performance struct {
	Times          []time.Time `json:"times"`
	Weights        []float64   `json:"weights"`
	RawPerformance []float64   `json:"raw_performance"`
	NewInvestment  []float64   `json:"new_investment"`
	CostFactor     []float64   `json:"cost_factor"`
	PerformanceRel []float64   `json:"performance_rel"`
	Performance    []float64   `json:"performance"`
}

// Len returns the number of simulated ticks.
func (p *Performance) Len() int { return len(p.Times) }

// Final returns the last relative performance, or 1 for an empty trace.
func (p *Performance) Final() float64 {
	if len(p.PerformanceRel) == 0 {
		return 1
	}
	return p.PerformanceRel[len(p.PerformanceRel)-1]
}

// Fill resolves a sparse weight signal: None carries the previous weight
// forward and a leading None becomes 0.
func Fill(ws []strategy.Weight) []float64 {
	out := make([]float64, len(ws))
	prev := 0.0
	for i, w := range ws {
		if w.IsSome() {
			prev = w.Unwrap()
		}
		out[i] = prev
	}
	return out
}

// Simulate compounds weights over the ticks of s starting at index from.
// weights[k] is the allocation decided at tick from+k.
//
// The weight held going into tick t is the one decided at t-1 (0 before the
// first tick), so weighted_return[t] = return[t]·w[t-1]. Spread cost is
// charged on allocation increases only, the first tick counting as a buy
// of w[0].
func Simulate(s *model.PriceSeries, from int, weights []float64, initialInvestment float64) (*Performance, error) {
	if from < 0 || from+len(weights) > s.Len() {
		return nil, fmt.Errorf("simulate: %d weights from tick %d exceed series of %d ticks", len(weights), from, s.Len())
	}
	n := len(weights)
	p := &Performance{
		Times:          s.Times()[from : from+n],
		Weights:        weights,
		RawPerformance: make([]float64, n),
		NewInvestment:  make([]float64, n),
		CostFactor:     make([]float64, n),
		PerformanceRel: make([]float64, n),
		Performance:    make([]float64, n),
	}
	returns := s.Returns()
	sellCosts := s.SellCosts()

	raw, cost, prevW := 1.0, 1.0, 0.0
	for k, w := range weights {
		t := from + k
		raw *= 1 + returns[t]*prevW
		bought := w - prevW
		if bought < 0 {
			bought = 0
		}
		cost *= 1 + bought*sellCosts[t]

		p.RawPerformance[k] = raw
		p.NewInvestment[k] = bought
		p.CostFactor[k] = cost
		p.PerformanceRel[k] = raw * cost
		p.Performance[k] = initialInvestment * raw * cost
		prevW = w
	}
	return p, nil
}
