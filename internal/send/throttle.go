package send

import (
	"context"
	"io"
	"sync"
	"time"
)

// RateLimiter is a token bucket refilled once per second. A rate of 0 means
// unlimited.
type RateLimiter struct {
	mu             sync.Mutex
	bytesPerSecond int64
	tokens         int64
	lastRefill     time.Time
}

// NewRateLimiter creates a limiter for bytesPerSecond.
func NewRateLimiter(bytesPerSecond int64) *RateLimiter {
	return &RateLimiter{
		bytesPerSecond: bytesPerSecond,
		tokens:         bytesPerSecond,
		lastRefill:     time.Now(),
	}
}

// SetRate changes the limit.
func (r *RateLimiter) SetRate(bytesPerSecond int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bytesPerSecond = bytesPerSecond
	r.tokens = bytesPerSecond
}

// Rate returns the current limit.
func (r *RateLimiter) Rate() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bytesPerSecond
}

// Wait blocks until n bytes may pass or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context, n int64) error {
	for {
		r.mu.Lock()
		rate := r.bytesPerSecond
		if rate <= 0 {
			r.mu.Unlock()
			return nil
		}
		r.refillLocked(rate)
		// A chunk larger than the bucket would never fit; let it through once full.
		if r.tokens >= n || r.tokens >= rate {
			r.tokens -= n
			r.mu.Unlock()
			return nil
		}
		wait := time.Duration(float64(n-r.tokens) / float64(rate) * float64(time.Second))
		r.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// refillLocked adds tokens for the elapsed time. Caller holds r.mu.
func (r *RateLimiter) refillLocked(rate int64) {
	now := time.Now()
	r.tokens += int64(now.Sub(r.lastRefill).Seconds() * float64(rate))
	if r.tokens > rate {
		r.tokens = rate
	}
	r.lastRefill = now
}

// throttledWriter rate-limits writes and aborts once ctx is done.
type throttledWriter struct {
	ctx     context.Context
	w       io.Writer
	limiter *RateLimiter
}

func (tw *throttledWriter) Write(p []byte) (int, error) {
	if err := tw.ctx.Err(); err != nil {
		return 0, err
	}
	if tw.limiter != nil {
		if err := tw.limiter.Wait(tw.ctx, int64(len(p))); err != nil {
			return 0, err
		}
	}
	return tw.w.Write(p)
}

// progressWriter reports cumulative bytes as a percentage of total.
type progressWriter struct {
	w       io.Writer
	written int64
	total   int64
	report  func(percent int)
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n, err := pw.w.Write(p)
	pw.written += int64(n)
	if pw.report != nil && pw.total > 0 {
		pw.report(int(pw.written * 100 / pw.total))
	}
	return n, err
}
