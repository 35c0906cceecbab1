package strategy

import (
	"tickback/internal/indicator"
	"tickback/internal/model"
)

// momentumRule is the vote applied by the momentum strategy.
var momentumRule = VoteRule{MinBuy: 1, MinSell: 1, Of: 1}

// NewMomentum follows the stochastic oscillator over (1h, 200 ticks) with
// 20/80 levels: BUY enters, SELL exits, HOLD holds.
func NewMomentum(p Params) (*Composite, error) {
	p = p.withDefaults()
	if err := validInvest(p.Invest); err != nil {
		return nil, err
	}
	rule := momentumRule
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	so, err := indicator.NewStochastic(hourWindow, 20, 80, p.indicatorOpts()...)
	if err != nil {
		return nil, err
	}
	return &Composite{
		name:       Momentum,
		invest:     p.Invest,
		indicators: []indicator.Indicator{so},
		decide: func(_ *model.PriceSeries, _ int, rs []indicator.Reading) Weight {
			return rule.Decide(signals(rs), p.Invest)
		},
	}, nil
}
