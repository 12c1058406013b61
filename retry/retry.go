// Package retry runs an operation in a bounded exponential backoff loop.
package retry

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// Outcome is how a retry loop ended.
type Outcome int

const (
	// Succeeded means some attempt returned nil.
	Succeeded Outcome = iota
	// Exhausted means every allowed attempt failed with a retryable error.
	Exhausted
	// Aborted means a non-retryable error or cancellation stopped the loop early.
	Aborted
)

func (o Outcome) String() string {
	switch o {
	case Succeeded:
		return "succeeded"
	case Exhausted:
		return "exhausted"
	case Aborted:
		return "aborted"
	}
	return "unknown"
}

// Policy bounds the loop: one initial attempt plus MaxRetries retries.
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration
	Multiplier float64       // defaults to 2
	MaxDelay   time.Duration // 0 means uncapped
	Jitter     float64       // fraction of the delay added at random, 0 disables
}

// Delay returns the wait before retry n (1-based).
func (p Policy) Delay(n int) time.Duration {
	mult := p.Multiplier
	if mult <= 0 {
		mult = 2
	}
	delay := time.Duration(float64(p.BaseDelay) * math.Pow(mult, float64(n-1)))
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	if p.Jitter > 0 {
		delay += time.Duration(rand.Float64() * p.Jitter * float64(delay))
	}
	return delay
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the real-clock SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Result describes a finished loop.
type Result struct {
	Outcome  Outcome
	Attempts int
	Delays   []time.Duration
	Err      error // last error; nil on success
}

// Retrier executes operations under a Policy.
type Retrier struct {
	Policy    Policy
	Retryable func(error) bool // nil retries every error
	Sleep     SleepFunc        // nil uses Sleep
}

// Do calls op until it succeeds, returns a non-retryable error, or the
// policy is exhausted. attempt is 1-based.
func (r *Retrier) Do(ctx context.Context, op func(ctx context.Context, attempt int) error) Result {
	sleep := r.Sleep
	if sleep == nil {
		sleep = Sleep
	}

	var res Result
	for attempt := 1; ; attempt++ {
		res.Attempts = attempt
		err := op(ctx, attempt)
		if err == nil {
			res.Outcome = Succeeded
			res.Err = nil
			return res
		}
		res.Err = err

		if r.Retryable != nil && !r.Retryable(err) {
			res.Outcome = Aborted
			return res
		}
		if attempt > r.Policy.MaxRetries {
			res.Outcome = Exhausted
			return res
		}

		delay := r.Policy.Delay(attempt)
		res.Delays = append(res.Delays, delay)
		if serr := sleep(ctx, delay); serr != nil {
			res.Outcome = Aborted
			res.Err = serr
			return res
		}
	}
}
