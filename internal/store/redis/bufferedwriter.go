package redis

import (
	"context"
	"errors"
	"log"
	"sync"

	"tickback/internal/result"
)

// pendingPublish is a publish that could not reach Redis.
type pendingPublish struct {
	runID  string
	result *result.BacktestResult
}

// BufferedPublisher wraps a Writer with a circuit breaker.
// While the circuit is open, publishes are buffered locally and replayed
// when the circuit closes again, so an unreachable Redis never fails a run.
type BufferedPublisher struct {
	writer *Writer
	cb     *CircuitBreaker
	ctx    context.Context

	mu     sync.Mutex
	buffer []pendingPublish
	maxBuf int // max buffered publishes before dropping oldest (default: 1000)

	// Callbacks
	OnBuffer func()          // called when a publish is buffered (for metrics)
	OnFlush  func(count int) // called after flushing buffered publishes
}

// NewBufferedPublisher creates a BufferedPublisher wrapping the given Writer.
// ctx bounds the background flushes.
func NewBufferedPublisher(ctx context.Context, w *Writer, cb *CircuitBreaker, maxBufferSize int) *BufferedPublisher {
	if maxBufferSize <= 0 {
		maxBufferSize = 1000
	}
	bp := &BufferedPublisher{
		writer: w,
		cb:     cb,
		ctx:    ctx,
		buffer: make([]pendingPublish, 0, 16),
		maxBuf: maxBufferSize,
	}

	// Register flush on circuit close
	prevCallback := cb.OnStateChange
	cb.OnStateChange = func(from, to State) {
		if prevCallback != nil {
			prevCallback(from, to)
		}
		if to == StateClosed {
			go bp.Flush(bp.ctx)
		}
	}

	return bp
}

// Publish sends r through the circuit breaker. A rejected or failed publish
// is buffered; the returned error is informational and the result is not
// lost unless the buffer overflows.
func (bp *BufferedPublisher) Publish(ctx context.Context, runID string, r *result.BacktestResult) error {
	err := bp.cb.Execute(func() error {
		return bp.writer.Publish(ctx, runID, r)
	})
	if err == nil {
		return nil
	}
	bp.enqueue(pendingPublish{runID: runID, result: r})
	if errors.Is(err, ErrCircuitOpen) {
		return nil
	}
	return err
}

func (bp *BufferedPublisher) enqueue(p pendingPublish) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if len(bp.buffer) >= bp.maxBuf {
		bp.buffer = bp.buffer[1:]
		log.Printf("[buffered-publisher] buffer full, dropped oldest pending publish")
	}
	bp.buffer = append(bp.buffer, p)

	if bp.OnBuffer != nil {
		bp.OnBuffer()
	}
}

// Flush replays all buffered publishes. Publishes that fail again go back
// into the buffer and the first error is returned.
func (bp *BufferedPublisher) Flush(ctx context.Context) error {
	bp.mu.Lock()
	if len(bp.buffer) == 0 {
		bp.mu.Unlock()
		return nil
	}
	toFlush := bp.buffer
	bp.buffer = make([]pendingPublish, 0, 16)
	bp.mu.Unlock()

	var firstErr error
	flushed := 0
	for _, p := range toFlush {
		if err := bp.writer.Publish(ctx, p.runID, p.result); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			bp.enqueue(p)
			continue
		}
		flushed++
	}

	log.Printf("[buffered-publisher] flushed %d/%d buffered publishes", flushed, len(toFlush))
	if bp.OnFlush != nil {
		bp.OnFlush(flushed)
	}
	return firstErr
}

// PendingCount returns the number of buffered publishes waiting to be flushed.
func (bp *BufferedPublisher) PendingCount() int {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	return len(bp.buffer)
}

// Underlying returns the wrapped Redis writer for direct access.
func (bp *BufferedPublisher) Underlying() *Writer {
	return bp.writer
}
