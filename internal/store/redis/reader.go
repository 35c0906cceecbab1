package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"strconv"
	"time"

	"tickback/internal/result"

	goredis "github.com/go-redis/redis/v8"
)

// ErrNotFound is returned when a published key is missing or expired.
var ErrNotFound = errors.New("redis: not found")

// Reader reads published backtest records back from Redis.
type Reader struct {
	client *goredis.Client
}

// NewReader wraps client for reading. The client is shared, not owned.
func NewReader(client *goredis.Client) *Reader {
	return &Reader{client: client}
}

// ReadInfo loads the info record stored at key together with the id of the
// run that published it.
func (r *Reader) ReadInfo(ctx context.Context, key string) (result.Info, string, error) {
	fields, err := r.client.HGetAll(ctx, key).Result()
	if err != nil {
		return result.Info{}, "", fmt.Errorf("redis HGETALL %s: %w", key, err)
	}
	if len(fields) == 0 {
		return result.Info{}, "", fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	in, err := result.ParseInfo(fields)
	if err != nil {
		return result.Info{}, "", fmt.Errorf("parse %s: %w", key, err)
	}
	return in, fields["run_id"], nil
}

// ReadDaily loads the daily returns stored at key, ordered by date.
func (r *Reader) ReadDaily(ctx context.Context, key string) ([]result.DailyRow, error) {
	fields, err := r.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis HGETALL %s: %w", key, err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	rows := make([]result.DailyRow, 0, len(fields))
	for day, v := range fields {
		date, err := time.Parse(result.DateLayout, day)
		if err != nil {
			return nil, fmt.Errorf("parse date %q: %w", day, err)
		}
		ret, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("parse return %q: %w", v, err)
		}
		rows = append(rows, result.DailyRow{Date: date, Return: ret})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })
	return rows, nil
}

// Subscribe delivers every Announcement published for ticker to out until
// ctx is cancelled. Malformed messages are logged and skipped.
func (r *Reader) Subscribe(ctx context.Context, ticker string, out chan<- Announcement) error {
	pubsub := r.client.Subscribe(ctx, Channel(ticker))
	defer pubsub.Close()

	// Wait for confirmation
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("redis subscribe %s: %w", Channel(ticker), err)
	}

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var a Announcement
			if err := json.Unmarshal([]byte(msg.Payload), &a); err != nil {
				log.Printf("[redis-reader] bad announcement on %s: %v", msg.Channel, err)
				continue
			}
			select {
			case out <- a:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
