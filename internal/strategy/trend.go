package strategy

import (
	"tickback/internal/indicator"
	"tickback/internal/model"
)

// NewTrendSMA is the golden cross: SMA(1h, 200 ticks) against
// SMA(6h, 1200 ticks). Enter while the fast average is above the slow one,
// exit while it is below, hold on a tie.
func NewTrendSMA(p Params) (*Composite, error) {
	p = p.withDefaults()
	if err := validInvest(p.Invest); err != nil {
		return nil, err
	}
	fast, err := indicator.NewSMA(hourWindow, p.indicatorOpts()...)
	if err != nil {
		return nil, err
	}
	slow, err := indicator.NewSMA(sixHourWindow, p.indicatorOpts()...)
	if err != nil {
		return nil, err
	}
	return &Composite{
		name:       TrendSMA,
		invest:     p.Invest,
		indicators: []indicator.Indicator{fast, slow},
		decide: func(_ *model.PriceSeries, _ int, rs []indicator.Reading) Weight {
			fast, slow := rs[0], rs[1]
			switch {
			case !fast.OK || !slow.OK:
				return hold()
			case fast.Value > slow.Value:
				return enter(p.Invest)
			case fast.Value < slow.Value:
				return exit()
			default:
				return hold()
			}
		},
	}, nil
}

// NewTrend confirms the golden cross with price against EMA(1h, 200 ticks):
// enter when fast > slow and mid > ema, exit when fast < slow and
// mid < ema, hold otherwise.
func NewTrend(p Params) (*Composite, error) {
	p = p.withDefaults()
	if err := validInvest(p.Invest); err != nil {
		return nil, err
	}
	fast, err := indicator.NewSMA(hourWindow, p.indicatorOpts()...)
	if err != nil {
		return nil, err
	}
	slow, err := indicator.NewSMA(sixHourWindow, p.indicatorOpts()...)
	if err != nil {
		return nil, err
	}
	ema, err := indicator.NewEMA(hourWindow, p.indicatorOpts()...)
	if err != nil {
		return nil, err
	}
	return &Composite{
		name:       Trend,
		invest:     p.Invest,
		indicators: []indicator.Indicator{fast, slow, ema},
		decide: func(s *model.PriceSeries, i int, rs []indicator.Reading) Weight {
			fast, slow, ema := rs[0], rs[1], rs[2]
			if !fast.OK || !slow.OK || !ema.OK {
				return hold()
			}
			price := s.Mid(i)
			switch {
			case slow.Value < fast.Value && ema.Value < price:
				return enter(p.Invest)
			case fast.Value < slow.Value && price < ema.Value:
				return exit()
			default:
				return hold()
			}
		},
	}, nil
}
