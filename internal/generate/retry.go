package generate

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const (
	maxAttempts  = 3
	initialDelay = 1000 * time.Millisecond
)

// Retrying decorates an Invoker with bounded exponential backoff on
// transient upstream failures. Non-transient errors propagate on the
// first attempt.
type Retrying struct {
	next  Invoker
	log   *zap.Logger
	sleep func(ctx context.Context, d time.Duration) error
}

func NewRetrying(next Invoker, log *zap.Logger) *Retrying {
	return &Retrying{next: next, log: log, sleep: sleepCtx}
}

type decision struct {
	retry bool
	delay time.Duration
}

// decide is the retry step function: given the 1-based attempt number that
// just failed and its error, it yields either retry-after-delay or
// propagate. Delays start at 1000ms and double per attempt.
func decide(attempt int, err error) decision {
	if _, transient := KindOf(err); !transient {
		return decision{}
	}
	if attempt >= maxAttempts {
		return decision{}
	}
	return decision{retry: true, delay: initialDelay << (attempt - 1)}
}

func (r *Retrying) Invoke(ctx context.Context, req Request) (*Response, error) {
	for attempt := 1; ; attempt++ {
		resp, err := r.next.Invoke(ctx, req)
		if err == nil {
			return resp, nil
		}
		d := decide(attempt, err)
		if !d.retry {
			return nil, err
		}
		r.log.Warn("generation retry",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", maxAttempts),
			zap.Int64("delay_ms", d.delay.Milliseconds()),
			zap.Error(err))
		if err := r.sleep(ctx, d.delay); err != nil {
			return nil, err
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
