package filesem

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// Semaphore provides cross-process concurrency limiting backed by a shared
// file. It coordinates independent OS processes (parallel CI jobs, cron
// scripts) that share a filesystem but have no central coordinator.
//
// All participants must use the same semaphore file path and the same
// maximum. The limit is cooperative: it only binds processes that go
// through the semaphore.
//
// Example:
//
//	sem, _ := filesem.New(filesem.Config{
//		SemaphoreFile:     "/var/run/nightly.sem",
//		MaxConcurrentJobs: 2,
//		RetryInterval:     5 * time.Second,
//	}, nil)
//
//	guard, _ := sem.Acquire()
//	defer guard.Release()
//	// run the protected workload
type Semaphore interface {
	// Acquire blocks until a slot is held, polling at the retry interval.
	Acquire() (*Guard, error)

	// AcquireContext blocks until a slot is held or ctx is done.
	AcquireContext(ctx context.Context) (*Guard, error)

	// TryAcquire attempts to take a slot without blocking.
	// Returns (guard, true) if acquired, (nil, false) if the semaphore was full.
	TryAcquire() (*Guard, bool, error)

	// AcquireTimeout attempts to acquire with a maximum wait time.
	// Returns (guard, true) if acquired, (nil, false) if the timeout elapsed.
	AcquireTimeout(timeout time.Duration) (*Guard, bool, error)
}

// FileSemaphore is the file-backed Semaphore implementation.
type FileSemaphore struct {
	store  *Store
	acq    *Acquirer
	max    int
	logger *zap.Logger
}

var _ Semaphore = (*FileSemaphore)(nil)

// New returns a FileSemaphore for cfg. A nil logger disables logging.
func New(cfg Config, logger *zap.Logger) (*FileSemaphore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	store := NewStore(cfg.SemaphoreFile, logger)
	return &FileSemaphore{
		store:  store,
		acq:    NewAcquirer(store, cfg.MaxConcurrentJobs, cfg.RetryInterval, logger),
		max:    cfg.MaxConcurrentJobs,
		logger: logger,
	}, nil
}

// Store returns the underlying counter store, for status inspection.
func (s *FileSemaphore) Store() *Store {
	return s.store
}

// Acquire blocks until a slot is held, polling at the retry interval.
func (s *FileSemaphore) Acquire() (*Guard, error) {
	return s.acq.Acquire(context.Background())
}

// AcquireContext blocks until a slot is held or ctx is done.
func (s *FileSemaphore) AcquireContext(ctx context.Context) (*Guard, error) {
	return s.acq.Acquire(ctx)
}

// TryAcquire attempts to take a slot without blocking.
func (s *FileSemaphore) TryAcquire() (*Guard, bool, error) {
	res, err := s.store.TryAcquire(s.max)
	if err != nil {
		return nil, false, err
	}
	if res != Acquired {
		return nil, false, nil
	}
	return newGuard(s.store, s.logger), true, nil
}

// AcquireTimeout attempts to acquire with a maximum wait time.
func (s *FileSemaphore) AcquireTimeout(timeout time.Duration) (*Guard, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	guard, err := s.acq.Acquire(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return guard, true, nil
}
