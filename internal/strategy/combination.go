package strategy

import (
	"tickback/internal/indicator"
	"tickback/internal/model"
)

// combinationRule is the vote applied by the combination strategy.
var combinationRule = VoteRule{MinBuy: 3, MinSell: 2, Of: 3}

// NewCombination votes Bollinger bands, RSI (30/70) and the stochastic
// oscillator (20/80), all over (2h, 400 ticks). Enter on 3 of 3 BUY; exit on
// at least 2 SELL with no BUY; hold otherwise.
func NewCombination(p Params) (*Composite, error) {
	p = p.withDefaults()
	if err := validInvest(p.Invest); err != nil {
		return nil, err
	}
	rule := combinationRule
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	opts := p.indicatorOpts()
	bb, err := indicator.NewBollinger(twoHourWindow, indicator.DefaultBandWidth, opts...)
	if err != nil {
		return nil, err
	}
	rsi, err := indicator.NewRSI(twoHourWindow, 30, 70, opts...)
	if err != nil {
		return nil, err
	}
	so, err := indicator.NewStochastic(twoHourWindow, 20, 80, opts...)
	if err != nil {
		return nil, err
	}
	return &Composite{
		name:       Combination,
		invest:     p.Invest,
		indicators: []indicator.Indicator{bb, rsi, so},
		decide: func(_ *model.PriceSeries, _ int, rs []indicator.Reading) Weight {
			return rule.Decide(signals(rs), p.Invest)
		},
	}, nil
}
