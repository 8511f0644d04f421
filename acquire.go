package filesem

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Acquirer drives repeated TryAcquire attempts against a Store until a slot
// is granted.
//
// There is no backoff and no attempt cap: waiters poll at a fixed interval
// until the limit has room. The lock is held only for the duration of a
// single attempt, never across the sleep, so waiting processes do not block
// each other. No fairness is provided among waiters: when a slot frees,
// all pollers race for it and a long-waiting process can lose repeatedly
// under sustained contention.
type Acquirer struct {
	store    *Store
	max      int
	interval time.Duration
	logger   *zap.Logger
}

// NewAcquirer returns an Acquirer that polls store for one of max slots
// every interval. A nil logger disables logging.
func NewAcquirer(store *Store, max int, interval time.Duration, logger *zap.Logger) *Acquirer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Acquirer{
		store:    store,
		max:      max,
		interval: interval,
		logger:   logger,
	}
}

// Acquire blocks until a slot is taken or ctx is done. On success the
// returned Guard owns the slot and must be released; Guard.Release is
// idempotent, so calling it from both a defer and a signal path is safe.
//
// Cancellation is observed only between attempts, never while the file lock
// is held, so an abandoned Acquire always leaves the counter untouched.
// Pass context.Background() to wait indefinitely.
func (a *Acquirer) Acquire(ctx context.Context) (*Guard, error) {
	for {
		res, err := a.store.TryAcquire(a.max)
		if err != nil {
			return nil, err
		}
		if res == Acquired {
			return newGuard(a.store, a.logger), nil
		}

		a.logger.Debug("semaphore saturated, waiting",
			zap.String("file", a.store.Path()),
			zap.Duration("interval", a.interval))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(a.interval):
		}
	}
}
