package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickback/internal/result"
)

func newTestWriter(t *testing.T) (*Writer, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { client.Close() })
	return NewWithClient(client, time.Hour), mr
}

// threeDayResult spans 2024-03-04..2024-03-06 and ends at +10%.
func threeDayResult(t *testing.T, strategy string) *result.BacktestResult {
	t.Helper()
	base := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	times := []time.Time{
		base, base.Add(2 * time.Hour),
		base.Add(24 * time.Hour), base.Add(26 * time.Hour),
		base.Add(48 * time.Hour),
	}
	r, err := result.New("EURUSD", strategy, times,
		[]float64{0, 1, 1, 0, 0},
		[]float64{1, 1.02, 1.05, 1.04, 1.10})
	require.NoError(t, err)
	return r
}

func TestKeys(t *testing.T) {
	start := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "bt:info:EURUSD:long:2024-03-04:2024-03-06", InfoKey("EURUSD", "long", start, end))
	assert.Equal(t, "bt:daily:EURUSD:long:2024-03-04:2024-03-06", DailyKey("EURUSD", "long", start, end))
	assert.Equal(t, "pub:backtest:EURUSD", Channel("EURUSD"))
}

func TestWriter_PublishAndRead(t *testing.T) {
	w, mr := newTestWriter(t)
	ctx := context.Background()
	res := threeDayResult(t, "long")

	require.NoError(t, w.Publish(ctx, "run-1", res))

	infoKey := InfoKey("EURUSD", "long", res.StartDate(), res.EndDate())
	assert.True(t, mr.Exists(infoKey))
	assert.Equal(t, time.Hour, mr.TTL(infoKey))

	rd := NewReader(w.Client())
	info, runID, err := rd.ReadInfo(ctx, infoKey)
	require.NoError(t, err)
	assert.Equal(t, "run-1", runID)
	assert.Equal(t, res.Info().NumDays, info.NumDays)
	assert.InDelta(t, res.Info().TotalReturn, info.TotalReturn, 1e-12)
	assert.True(t, info.StartDate.Equal(res.StartDate()))

	daily, err := rd.ReadDaily(ctx, DailyKey("EURUSD", "long", res.StartDate(), res.EndDate()))
	require.NoError(t, err)
	want := res.Daily()
	require.Len(t, daily, len(want))
	for i := range want {
		assert.True(t, daily[i].Date.Equal(want[i].Date))
		assert.InDelta(t, want[i].Return, daily[i].Return, 1e-12)
	}
}

func TestReader_Missing(t *testing.T) {
	w, _ := newTestWriter(t)
	rd := NewReader(w.Client())
	_, _, err := rd.ReadInfo(context.Background(), "bt:info:nope")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = rd.ReadDaily(context.Background(), "bt:daily:nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReader_Subscribe(t *testing.T) {
	w, _ := newTestWriter(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := make(chan Announcement, 1)
	done := make(chan error, 1)
	go func() { done <- NewReader(w.Client()).Subscribe(ctx, "EURUSD", out) }()

	res := threeDayResult(t, "long")
	// Publish until the subscription is live; early messages have no receiver.
	var got Announcement
	require.Eventually(t, func() bool {
		if err := w.Publish(ctx, "run-7", res); err != nil {
			return false
		}
		select {
		case got = <-out:
			return true
		case <-time.After(20 * time.Millisecond):
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, "run-7", got.RunID)
	assert.Equal(t, "long", got.Strategy)
	assert.Equal(t, "2024-03-04", got.StartDate)
	assert.Equal(t, "2024-03-06", got.EndDate)
	assert.Equal(t, InfoKey("EURUSD", "long", res.StartDate(), res.EndDate()), got.InfoKey)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestBufferedPublisher_BuffersWhileDown(t *testing.T) {
	w, mr := newTestWriter(t)
	ctx := context.Background()
	cb, clock := newTestBreaker(1)
	bp := NewBufferedPublisher(ctx, w, cb, 10)
	flushed := make(chan int, 4)
	bp.OnFlush = func(n int) { flushed <- n }

	mr.Close()
	err := bp.Publish(ctx, "run-1", threeDayResult(t, "long"))
	assert.Error(t, err, "first failure is reported")
	assert.Equal(t, StateOpen, cb.CurrentState())

	assert.NoError(t, bp.Publish(ctx, "run-2", threeDayResult(t, "momentum")), "open circuit buffers silently")
	assert.Equal(t, 2, bp.PendingCount())

	require.NoError(t, mr.Restart())
	clock.advance(11 * time.Second)
	require.NoError(t, bp.Publish(ctx, "run-3", threeDayResult(t, "trend")))
	assert.Equal(t, StateClosed, cb.CurrentState())

	select {
	case n := <-flushed:
		assert.Equal(t, 2, n)
	case <-time.After(2 * time.Second):
		t.Fatal("buffer was not flushed after the circuit closed")
	}
	assert.Equal(t, 0, bp.PendingCount())

	for _, name := range []string{"long", "momentum", "trend"} {
		res := threeDayResult(t, name)
		assert.True(t, mr.Exists(InfoKey("EURUSD", name, res.StartDate(), res.EndDate())), name)
	}
}

func TestBufferedPublisher_DropsOldest(t *testing.T) {
	w, mr := newTestWriter(t)
	cb, _ := newTestBreaker(1)
	bp := NewBufferedPublisher(context.Background(), w, cb, 2)
	mr.Close()

	for _, id := range []string{"a", "b", "c"} {
		bp.Publish(context.Background(), id, threeDayResult(t, "long"))
	}
	require.Equal(t, 2, bp.PendingCount())
	bp.mu.Lock()
	assert.Equal(t, "b", bp.buffer[0].runID)
	bp.mu.Unlock()
}
