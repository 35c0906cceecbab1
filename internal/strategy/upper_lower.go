package strategy

import (
	"fmt"

	"tickback/internal/indicator"
	"tickback/internal/model"
)

// NewUpperLower trades fixed price levels: enter when ask drops below Low,
// exit when bid rises above High, hold otherwise.
func NewUpperLower(p Params) (*Composite, error) {
	p = p.withDefaults()
	if err := validInvest(p.Invest); err != nil {
		return nil, err
	}
	if !(p.Low > 0 && p.Low < p.High) {
		return nil, fmt.Errorf("%w: upper_lower needs 0 < low < high, got low=%g high=%g", ErrInvalidConfig, p.Low, p.High)
	}
	return &Composite{
		name:   UpperLower,
		invest: p.Invest,
		decide: func(s *model.PriceSeries, i int, _ []indicator.Reading) Weight {
			switch {
			case s.Ask(i) < p.Low:
				return enter(p.Invest)
			case s.Bid(i) > p.High:
				return exit()
			default:
				return hold()
			}
		},
	}, nil
}
