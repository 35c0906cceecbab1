package indicator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindow_Start(t *testing.T) {
	s := seriesOf(t, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10)
	tests := []struct {
		name string
		w    Window
		end  int
		want int
	}{
		{"ticks only", Window{MinTicks: 3}, 9, 7},
		{"span only", Window{Span: 4 * time.Minute}, 9, 5},
		{"span wins", Window{Span: 4 * time.Minute, MinTicks: 2}, 9, 5},
		{"ticks win", Window{Span: time.Minute, MinTicks: 6}, 9, 4},
		{"clamped", Window{MinTicks: 50}, 3, 0},
		{"empty window keeps end", Window{}, 6, 6},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.w.Start(s, tc.end))
		})
	}
}

func TestWindow_BoundsMatchesStart(t *testing.T) {
	s := synthetic(t, 5, 3000)
	for _, w := range []Window{
		{},
		{MinTicks: 1},
		{Span: 45 * time.Second, MinTicks: 7},
		{Span: 10 * time.Minute},
		{Span: 24 * time.Hour, MinTicks: 100000},
	} {
		bounds := w.Bounds(s)
		require.Len(t, bounds, s.Len())
		for i := range bounds {
			require.Equal(t, w.Start(s, i), bounds[i], "window %s index %d", w, i)
		}
	}
}

func TestWindow_Monotonic(t *testing.T) {
	s := synthetic(t, 9, 800)
	spans := []time.Duration{0, 10 * time.Second, time.Minute, 5 * time.Minute, time.Hour}
	minTicks := []int{0, 1, 5, 20, 200}
	for end := 0; end < s.Len(); end += 37 {
		for si := range spans {
			for mi := range minTicks {
				w := Window{Span: spans[si], MinTicks: minTicks[mi]}
				start := w.Start(s, end)
				require.LessOrEqual(t, start, end, "window must contain end")
				if si+1 < len(spans) {
					wider := Window{Span: spans[si+1], MinTicks: minTicks[mi]}
					require.LessOrEqual(t, wider.Start(s, end), start, "longer span shrank window %s", w)
				}
				if mi+1 < len(minTicks) {
					wider := Window{Span: spans[si], MinTicks: minTicks[mi+1]}
					require.LessOrEqual(t, wider.Start(s, end), start, "more ticks shrank window %s", w)
				}
			}
		}
	}
}

func TestTally(t *testing.T) {
	buys, sells := Tally(Buy, Hold, Sell, Buy)
	assert.Equal(t, 2, buys)
	assert.Equal(t, 1, sells)
	assert.Equal(t, "BUY", Buy.String())
	assert.Equal(t, "SELL", Sell.String())
	assert.Equal(t, "HOLD", Hold.String())
}
