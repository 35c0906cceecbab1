package strategy

import (
	"fmt"

	"tickback/internal/indicator"
)

// VoteRule allocates fully when at least MinBuy of Of indicators say BUY and
// none say SELL, exits when at least MinSell say SELL and none say BUY, and
// holds otherwise.
type VoteRule struct {
	MinBuy  int
	MinSell int
	Of      int
}

// Validate checks 1 <= MinBuy, MinSell <= Of.
func (v VoteRule) Validate() error {
	if v.Of < 1 || v.MinBuy < 1 || v.MinSell < 1 || v.MinBuy > v.Of || v.MinSell > v.Of {
		return fmt.Errorf("%w: vote rule %d/%d buy, %d/%d sell", ErrInvalidConfig, v.MinBuy, v.Of, v.MinSell, v.Of)
	}
	return nil
}

// Decide applies the rule to inds, which must hold exactly Of votes.
func (v VoteRule) Decide(inds []indicator.Indication, invest float64) Weight {
	buys, sells := indicator.Tally(inds...)
	switch {
	case buys >= v.MinBuy && sells == 0:
		return enter(invest)
	case sells >= v.MinSell && buys == 0:
		return exit()
	default:
		return hold()
	}
}

func signals(rs []indicator.Reading) []indicator.Indication {
	out := make([]indicator.Indication, len(rs))
	for k, r := range rs {
		out[k] = r.Signal
	}
	return out
}
