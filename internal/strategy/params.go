package strategy

import (
	"time"

	"tickback/internal/indicator"
)

// Params are the tunables shared by all strategies. Thresholds and windows
// are part of each strategy's identity and are not configurable here.
type Params struct {
	// Invest is the allocation for a full entry, in (0, 1]. Zero means 1.
	Invest float64
	// Low and High are the entry and exit prices of upper_lower.
	Low, High float64
	// Workers bounds the goroutines each indicator uses for Weights.
	Workers int
	// Observer receives indicator timings; may be nil.
	Observer indicator.SeriesObserver
}

func (p Params) withDefaults() Params {
	if p.Invest == 0 {
		p.Invest = 1
	}
	if p.Workers < 1 {
		p.Workers = 1
	}
	return p
}

func (p Params) indicatorOpts() []indicator.Option {
	opts := []indicator.Option{indicator.WithWorkers(p.Workers)}
	if p.Observer != nil {
		opts = append(opts, indicator.WithObserver(p.Observer))
	}
	return opts
}

// Standard lookbacks.
var (
	hourWindow    = indicator.Window{Span: time.Hour, MinTicks: 200}
	sixHourWindow = indicator.Window{Span: 6 * time.Hour, MinTicks: 1200}
	twoHourWindow = indicator.Window{Span: 2 * time.Hour, MinTicks: 400}
)
