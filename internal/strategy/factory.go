package strategy

import (
	"fmt"
	"sort"
)

// Registered strategy names.
const (
	Long        = "long"
	UpperLower  = "upper_lower"
	TrendSMA    = "trend_sma"
	Trend       = "trend"
	Momentum    = "momentum"
	Volatility  = "volatility"
	Combination = "combination"
)

var registry = map[string]func(Params) (*Composite, error){
	Long:        NewLong,
	UpperLower:  NewUpperLower,
	TrendSMA:    NewTrendSMA,
	Trend:       NewTrend,
	Momentum:    NewMomentum,
	Volatility:  NewVolatility,
	Combination: NewCombination,
}

// Build creates a fresh instance of the named strategy. Instances never
// share indicators, so each may run on its own goroutine.
func Build(name string, p Params) (*Composite, error) {
	ctor, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %v)", ErrUnknownStrategy, name, Names())
	}
	s, err := ctor(p)
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", name, err)
	}
	return s, nil
}

// Names returns the registered strategy names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
