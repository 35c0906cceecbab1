package model

import (
	"math"
	"time"
)

// Quote is a single bid/ask observation as delivered by the tick feed.
// Volumes are carried through storage but unused by the indicators.
type Quote struct {
	TS     time.Time `json:"ts"`
	Ask    float64   `json:"ask"`
	Bid    float64   `json:"bid"`
	AskVol float64   `json:"ask_vol"`
	BidVol float64   `json:"bid_vol"`
}

// Mid returns (ask+bid)/2.
func (q Quote) Mid() float64 { return (q.Ask + q.Bid) / 2 }

// Spread returns ask-bid.
func (q Quote) Spread() float64 { return q.Ask - q.Bid }

func (q Quote) valid() bool {
	if math.IsNaN(q.Ask) || math.IsNaN(q.Bid) || math.IsInf(q.Ask, 0) || math.IsInf(q.Bid, 0) {
		return false
	}
	return q.Ask > 0 && q.Bid > 0 && q.Ask >= q.Bid
}
