package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickback/internal/model"
	"tickback/internal/result"
)

var t0 = time.Date(2024, 6, 3, 7, 30, 0, 123000, time.UTC)

func openStore(t *testing.T) (*Writer, *Reader) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ticks.db")
	w, err := New(WriterConfig{DBPath: path, BatchSize: 64})
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })
	r, err := NewReader(path)
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return w, r
}

func TestQuotes_RoundTrip(t *testing.T) {
	w, r := openStore(t)
	ctx := context.Background()
	quotes := model.SyntheticQuotes(1, 300, t0, 1500*time.Millisecond)

	require.NoError(t, w.WriteQuotes(ctx, "EURUSD", quotes))
	// rewriting is an upsert, not a duplicate
	require.NoError(t, w.WriteQuotes(ctx, "EURUSD", quotes[:10]))
	require.NoError(t, w.WriteQuotes(ctx, "OTHER", quotes[:5]))

	got, err := r.ReadQuotes(ctx, "EURUSD", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, got, len(quotes))
	for i := range quotes {
		assert.True(t, quotes[i].TS.Equal(got[i].TS), "ts %d", i)
		assert.Equal(t, quotes[i].Ask, got[i].Ask)
		assert.Equal(t, quotes[i].Bid, got[i].Bid)
		assert.Equal(t, quotes[i].AskVol, got[i].AskVol)
	}

	window, err := r.ReadQuotes(ctx, "EURUSD", quotes[100].TS, quotes[199].TS)
	require.NoError(t, err)
	assert.Len(t, window, 100)

	first, last, err := r.QuoteRange(ctx, "EURUSD")
	require.NoError(t, err)
	assert.True(t, first.Equal(quotes[0].TS))
	assert.True(t, last.Equal(quotes[len(quotes)-1].TS))

	_, _, err = r.QuoteRange(ctx, "MISSING")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestLoadSeries_ViaPort(t *testing.T) {
	w, r := openStore(t)
	ctx := context.Background()
	require.NoError(t, w.WriteQuotes(ctx, "XAU", model.SyntheticQuotes(2, 50, t0, time.Minute)))

	var reader model.QuoteReader = r
	s, err := model.LoadSeries(ctx, reader, "XAU", time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 50, s.Len())
	assert.Equal(t, "XAU", s.Ticker())
}

func TestResult_SaveAndLoad(t *testing.T) {
	w, r := openStore(t)
	ctx := context.Background()

	times := []time.Time{t0, t0.Add(time.Hour), t0.Add(26 * time.Hour), t0.Add(50 * time.Hour)}
	res, err := result.New("EURUSD", "trend", times, []float64{0, 1, 1, 0}, []float64{1, 0.998, 1.01, 1.004})
	require.NoError(t, err)

	require.NoError(t, w.SaveResult(ctx, "run-1", res))
	// saving again replaces rather than duplicating rows
	require.NoError(t, w.SaveResult(ctx, "run-2", res))

	back, err := r.LoadResult(ctx, "EURUSD", "trend", res.StartDate(), res.EndDate())
	require.NoError(t, err)
	assert.Equal(t, res.TimeSeries(), back.TimeSeries())
	assert.Equal(t, res.Daily(), back.Daily())
	assert.Equal(t, res.Info(), back.Info())

	info, runID, err := r.LoadInfo(ctx, "EURUSD", "trend", res.StartDate(), res.EndDate())
	require.NoError(t, err)
	assert.Equal(t, "run-2", runID)
	assert.Equal(t, res.Info(), info)

	_, err = r.LoadResult(ctx, "EURUSD", "momentum", res.StartDate(), res.EndDate())
	assert.ErrorIs(t, err, ErrNotFound)
}
