package strategy

import (
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickback/internal/indicator"
	"tickback/internal/model"
)

var t0 = time.Date(2024, 5, 6, 8, 0, 0, 0, time.UTC)

func synthetic(t *testing.T, seed int64, n int) *model.PriceSeries {
	t.Helper()
	s, err := model.NewPriceSeries("SYN", model.SyntheticQuotes(seed, n, t0, 10*time.Second))
	require.NoError(t, err)
	return s
}

func sameWeight(a, b Weight) bool {
	if a.IsNone() || b.IsNone() {
		return a.IsNone() == b.IsNone()
	}
	return a.Unwrap() == b.Unwrap()
}

func describe(w Weight) string {
	if w.IsNone() {
		return "None"
	}
	return "Some(" + formatFloat(w.Unwrap()) + ")"
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// ────────────────────────────────────────────────────────────
// Causal vs vectorized equivalence
// ────────────────────────────────────────────────────────────

func TestWeightsMatchWeightAt(t *testing.T) {
	s := synthetic(t, 21, 4000)
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			p := Params{Invest: 0.8, Workers: 3, Low: 99.5, High: 100.5}
			strat, err := Build(name, p)
			require.NoError(t, err)

			vector := strat.Weights(s)
			require.Len(t, vector, s.Len())

			decided := 0
			for i := 0; i < s.Len(); i++ {
				got := strat.WeightAt(s, i)
				if !sameWeight(got, vector[i]) {
					t.Fatalf("tick %d: WeightAt=%s Weights=%s", i, describe(got), describe(vector[i]))
				}
				if got.IsSome() {
					decided++
					v := got.Unwrap()
					require.True(t, v == 0 || v == 0.8, "weight %v outside {0, invest}", v)
				}
			}
			t.Logf("%s: %d of %d ticks decided", name, decided, s.Len())
		})
	}
}

func TestLong_AlwaysInvests(t *testing.T) {
	s := synthetic(t, 1, 50)
	strat, err := NewLong(Params{})
	require.NoError(t, err)
	for _, w := range strat.Weights(s) {
		require.True(t, w.IsSome())
		assert.Equal(t, 1.0, w.Unwrap())
	}
}

func TestUpperLower_Levels(t *testing.T) {
	quotes := []model.Quote{
		{TS: t0, Ask: 10.1, Bid: 9.9},                       // between: hold
		{TS: t0.Add(time.Second), Ask: 8.9, Bid: 8.8},       // ask < low: enter
		{TS: t0.Add(2 * time.Second), Ask: 12.2, Bid: 12.1}, // bid > high: exit
	}
	s := model.MustSeries("UL", quotes)
	strat, err := NewUpperLower(Params{Invest: 0.5, Low: 9, High: 12})
	require.NoError(t, err)

	assert.True(t, strat.WeightAt(s, 0).IsNone())
	assert.Equal(t, 0.5, strat.WeightAt(s, 1).Unwrap())
	w := strat.WeightAt(s, 2)
	require.True(t, w.IsSome())
	assert.Equal(t, 0.0, w.Unwrap())
}

func TestTrendSMA_FollowsCross(t *testing.T) {
	// A steady climb keeps the 1h average above the 6h average.
	mids := make([]float64, 1500)
	for i := range mids {
		mids[i] = 100 + float64(i)*0.01
	}
	s := model.MustSeries("UP", model.QuotesFromMids(mids, t0, 10*time.Second, 0.005))
	strat, err := NewTrendSMA(Params{})
	require.NoError(t, err)
	w := strat.WeightAt(s, 1499)
	require.True(t, w.IsSome())
	assert.Equal(t, 1.0, w.Unwrap())
}

// ────────────────────────────────────────────────────────────
// Vote rules
// ────────────────────────────────────────────────────────────

func TestVoteRule_Decide(t *testing.T) {
	const (
		B = indicator.Buy
		S = indicator.Sell
		H = indicator.Hold
	)
	combo := VoteRule{MinBuy: 3, MinSell: 2, Of: 3}
	tests := []struct {
		name string
		inds []indicator.Indication
		want Weight
	}{
		{"unanimous buy", []indicator.Indication{B, B, B}, enter(0.7)},
		{"two buys hold", []indicator.Indication{B, B, H}, hold()},
		{"two sells exit", []indicator.Indication{S, S, H}, exit()},
		{"three sells exit", []indicator.Indication{S, S, S}, exit()},
		{"mixed holds", []indicator.Indication{S, S, B}, hold()},
		{"single sell holds", []indicator.Indication{S, H, H}, hold()},
		{"all hold", []indicator.Indication{H, H, H}, hold()},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := combo.Decide(tc.inds, 0.7)
			assert.True(t, sameWeight(tc.want, got), "got %s want %s", describe(got), describe(tc.want))
		})
	}
}

func TestVoteRule_Validate(t *testing.T) {
	assert.NoError(t, VoteRule{MinBuy: 2, MinSell: 2, Of: 2}.Validate())
	for _, bad := range []VoteRule{
		{},
		{MinBuy: 3, MinSell: 1, Of: 2},
		{MinBuy: 1, MinSell: 0, Of: 2},
	} {
		assert.ErrorIs(t, bad.Validate(), ErrInvalidConfig, "%+v", bad)
	}
}

func TestVoteStrategies_RejectMalformedRule(t *testing.T) {
	cases := []struct {
		name string
		rule *VoteRule
	}{
		{Momentum, &momentumRule},
		{Volatility, &volatilityRule},
		{Combination, &combinationRule},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.NoError(t, tc.rule.Validate())
			_, err := Build(tc.name, Params{})
			require.NoError(t, err)

			saved := *tc.rule
			t.Cleanup(func() { *tc.rule = saved })
			*tc.rule = VoteRule{MinBuy: saved.Of + 1, MinSell: 1, Of: saved.Of}
			_, err = Build(tc.name, Params{})
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

// ────────────────────────────────────────────────────────────
// Factory
// ────────────────────────────────────────────────────────────

func TestBuild_Unknown(t *testing.T) {
	_, err := Build("martingale", Params{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownStrategy))
}

func TestBuild_RejectsInvest(t *testing.T) {
	for _, invest := range []float64{-0.1, 1.5} {
		_, err := Build(Trend, Params{Invest: invest})
		assert.ErrorIs(t, err, ErrInvalidConfig, "invest %v", invest)
	}
}

func TestBuild_UpperLowerNeedsLevels(t *testing.T) {
	_, err := Build(UpperLower, Params{})
	assert.ErrorIs(t, err, ErrInvalidConfig)
	_, err = Build(UpperLower, Params{Low: 10, High: 5})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestBuild_FreshInstances(t *testing.T) {
	a, err := Build(Combination, Params{})
	require.NoError(t, err)
	b, err := Build(Combination, Params{})
	require.NoError(t, err)

	s := synthetic(t, 2, 100)
	a.WeightAt(s, 50)
	for k := range a.Indicators() {
		assert.NotSame(t, a.Indicators()[k], b.Indicators()[k])
		assert.Equal(t, 0, b.Indicators()[k].Cache().Len())
		assert.Equal(t, 1, a.Indicators()[k].Cache().Len())
	}
}

func TestNames_Sorted(t *testing.T) {
	assert.Equal(t, []string{
		Combination, Long, Momentum, Trend, TrendSMA, UpperLower, Volatility,
	}, Names())
}
