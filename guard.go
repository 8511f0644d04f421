package filesem

import (
	"sync/atomic"

	"go.uber.org/zap"
)

// Guard owns one acquired slot and guarantees it is returned exactly once.
//
// Release is latched: invoking it from multiple exit paths (a defer, a
// signal handler, an explicit call) decrements the counter a single time.
// A nil Guard holds nothing and releases nothing, so exit paths of a
// process that was interrupted before it ever acquired can run the guard
// unconditionally.
//
// Release deliberately knows nothing about the workload's outcome: once a
// slot was held, it is returned whether the workload succeeded, failed, or
// never ran at all.
type Guard struct {
	store    *Store
	released atomic.Bool
	logger   *zap.Logger
}

func newGuard(store *Store, logger *zap.Logger) *Guard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{store: store, logger: logger}
}

// Release returns the slot to the store. Only the first call does anything;
// later calls are no-ops and return nil.
func (g *Guard) Release() error {
	if g == nil || g.store == nil {
		return nil
	}
	if !g.released.CompareAndSwap(false, true) {
		return nil
	}
	return g.store.Release()
}

// Released reports whether the slot has already been returned.
func (g *Guard) Released() bool {
	return g == nil || g.store == nil || g.released.Load()
}
