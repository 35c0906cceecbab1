package strategy

import (
	"tickback/internal/indicator"
	"tickback/internal/model"
)

// NewLong is buy-and-hold: always Invest. Used as the benchmark.
func NewLong(p Params) (*Composite, error) {
	p = p.withDefaults()
	if err := validInvest(p.Invest); err != nil {
		return nil, err
	}
	return &Composite{
		name:   Long,
		invest: p.Invest,
		decide: func(*model.PriceSeries, int, []indicator.Reading) Weight {
			return enter(p.Invest)
		},
	}, nil
}
