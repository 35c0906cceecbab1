package indicator

// Indication is a ternary trading signal. The numeric values allow votes to
// be summed and compared.
type Indication int8

const (
	Sell Indication = -1
	Hold Indication = 0
	Buy  Indication = 1
)

func (i Indication) String() string {
	switch i {
	case Sell:
		return "SELL"
	case Buy:
		return "BUY"
	default:
		return "HOLD"
	}
}

// Tally counts the buy and sell votes in inds.
func Tally(inds ...Indication) (buys, sells int) {
	for _, ind := range inds {
		switch ind {
		case Buy:
			buys++
		case Sell:
			sells++
		}
	}
	return buys, sells
}

// bandSignal is the shared band rule: SELL at or above the upper band, BUY at
// or below the lower band. On a collapsed band (lower == upper) the price
// sits on the upper band and SELL wins.
func bandSignal(price, lower, upper float64) Indication {
	switch {
	case price >= upper:
		return Sell
	case price <= lower:
		return Buy
	default:
		return Hold
	}
}

// thresholdSignal maps an oscillator value onto BUY at or below lower and
// SELL at or above upper.
func thresholdSignal(v, lower, upper float64) Indication {
	switch {
	case v <= lower:
		return Buy
	case v >= upper:
		return Sell
	default:
		return Hold
	}
}
