package strategy

import (
	"tickback/internal/indicator"
	"tickback/internal/model"
)

// volatilityRule is the vote applied by the volatility strategy.
var volatilityRule = VoteRule{MinBuy: 2, MinSell: 2, Of: 2}

// NewVolatility votes Bollinger bands and Keltner channels over
// (1h, 200 ticks), gated on rising volatility: both bands must agree (2 of 2,
// no opposing vote) and ATR(6h, 1200 ticks) must be below ATR(1h, 200 ticks).
// Anything else holds.
func NewVolatility(p Params) (*Composite, error) {
	p = p.withDefaults()
	if err := validInvest(p.Invest); err != nil {
		return nil, err
	}
	rule := volatilityRule
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	opts := p.indicatorOpts()
	atrShort, err := indicator.NewATR(hourWindow, indicator.DefaultSegments, opts...)
	if err != nil {
		return nil, err
	}
	atrLong, err := indicator.NewATR(sixHourWindow, indicator.DefaultSegments, opts...)
	if err != nil {
		return nil, err
	}
	bb, err := indicator.NewBollinger(hourWindow, indicator.DefaultBandWidth, opts...)
	if err != nil {
		return nil, err
	}
	kc, err := indicator.NewKeltner(hourWindow, indicator.DefaultSegments, indicator.DefaultBandWidth, opts...)
	if err != nil {
		return nil, err
	}
	return &Composite{
		name:       Volatility,
		invest:     p.Invest,
		indicators: []indicator.Indicator{atrShort, atrLong, bb, kc},
		decide: func(_ *model.PriceSeries, _ int, rs []indicator.Reading) Weight {
			short, long := rs[0], rs[1]
			if !short.OK || !long.OK || !(long.Value < short.Value) {
				return hold()
			}
			return rule.Decide(signals(rs[2:]), p.Invest)
		},
	}, nil
}
