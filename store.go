package filesem

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// AcquireResult is the outcome of a single TryAcquire attempt.
type AcquireResult int

const (
	// Busy means the counter was already at the maximum; nothing was changed.
	Busy AcquireResult = iota

	// Acquired means the counter was incremented and the caller now holds a slot.
	Acquired
)

// Store owns the persisted slot counter and the advisory lock guarding it.
//
// The counter file's entire content is a plain-text non-negative integer.
// A missing, empty, or non-numeric file reads as zero: the store recovers
// from corruption locally instead of surfacing it, favoring availability
// over strict detection. Every read-modify-write of the counter happens
// inside one hold of the lock; no mutation occurs outside that critical
// section.
//
// The counter file is created on first acquire, persists across
// invocations, and is never deleted by the store.
type Store struct {
	path     string
	lock     *fileLock
	registry *Registry
	label    string
	logger   *zap.Logger
}

// NewStore returns a Store for the semaphore file at path. The advisory
// lock lives at path+".lock" and the holder registry at path+".holders".
// A nil logger disables logging.
func NewStore(path string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		path:     path,
		lock:     newFileLock(path + ".lock"),
		registry: newRegistry(path+".holders", MessagePackCodec{}),
		logger:   logger,
	}
}

// Path returns the semaphore file path.
func (s *Store) Path() string {
	return s.path
}

// SetLabel sets an optional label recorded with this process's holder
// registry entry, typically the workload command name.
func (s *Store) SetLabel(label string) {
	s.label = label
}

// TryAcquire attempts to take one slot without blocking. Under the lock it
// reads the counter and, if it is below max, writes counter+1 and returns
// Acquired; otherwise the counter is left untouched and Busy is returned.
// The read, compare, and write happen inside one lock hold so two processes
// cannot both observe room for the last slot.
func (s *Store) TryAcquire(max int) (AcquireResult, error) {
	if err := s.lock.lock(); err != nil {
		return Busy, err
	}
	defer s.lock.unlock()

	n := s.readCounter()
	if n >= max {
		s.logger.Debug("semaphore busy", zap.Int("count", n), zap.Int("max", max))
		return Busy, nil
	}
	if err := s.writeCounter(n + 1); err != nil {
		return Busy, err
	}

	// Registry writes are best effort; a failure here never fails the acquire.
	h := Holder{PID: os.Getpid(), Host: hostname(), Label: s.label, AcquiredAt: time.Now()}
	if err := s.registry.add(h); err != nil {
		s.logger.Warn("recording holder entry", zap.Error(err))
	}

	s.logger.Debug("slot acquired", zap.Int("count", n+1), zap.Int("max", max))
	return Acquired, nil
}

// Release returns one slot. Under the lock it reads the counter and writes
// counter-1 if it is positive; a zero counter is left alone so an unmatched
// Release can never underflow.
func (s *Store) Release() error {
	if err := s.lock.lock(); err != nil {
		return err
	}
	defer s.lock.unlock()

	n := s.readCounter()
	if n == 0 {
		s.logger.Warn("release with zero counter", zap.String("file", s.path))
		return nil
	}
	if err := s.writeCounter(n - 1); err != nil {
		return err
	}
	if err := s.registry.remove(os.Getpid()); err != nil {
		s.logger.Warn("removing holder entry", zap.Error(err))
	}
	s.logger.Debug("slot released", zap.Int("count", n-1))
	return nil
}

// Peek returns the current counter value under the lock without mutating it.
func (s *Store) Peek() (int, error) {
	if err := s.lock.lock(); err != nil {
		return 0, err
	}
	defer s.lock.unlock()
	return s.readCounter(), nil
}

// Holders returns the recorded slot holders under the lock. The registry is
// diagnostic: entries may be missing if a holder's registry write failed.
func (s *Store) Holders() ([]Holder, error) {
	if err := s.lock.lock(); err != nil {
		return nil, err
	}
	defer s.lock.unlock()
	return s.registry.load(), nil
}

// Repair reconciles the counter with the holder registry. Registry entries
// whose process no longer exists on this host are dropped, and one slot is
// subtracted per dropped entry, clamping at zero. Entries recorded by other
// hosts cannot be probed and are kept.
//
// Repair is an explicit administrative operation for recovering slots leaked
// by holders that died without running their release guard (SIGKILL, power
// loss). It is never invoked automatically. Returns the number of stale
// entries removed.
func (s *Store) Repair() (int, error) {
	if err := s.lock.lock(); err != nil {
		return 0, err
	}
	defer s.lock.unlock()

	holders := s.registry.load()
	live := make([]Holder, 0, len(holders))
	removed := 0
	for _, h := range holders {
		if h.Stale() {
			s.logger.Info("dropping stale holder", zap.Int("pid", h.PID), zap.String("label", h.Label))
			removed++
			continue
		}
		live = append(live, h)
	}
	if removed == 0 {
		return 0, nil
	}

	if err := s.registry.save(live); err != nil {
		s.logger.Warn("updating holder registry", zap.Error(err))
	}
	n := s.readCounter() - removed
	if n < 0 {
		n = 0
	}
	if err := s.writeCounter(n); err != nil {
		return removed, err
	}
	s.logger.Info("repaired semaphore", zap.Int("removed", removed), zap.Int("count", n))
	return removed, nil
}

// readCounter returns the persisted counter, treating a missing, empty,
// negative, or non-numeric file as zero.
func (s *Store) readCounter() int {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return 0
	}
	n, err := strconv.Atoi(string(bytes.TrimSpace(data)))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func (s *Store) writeCounter(n int) error {
	if err := os.WriteFile(s.path, []byte(strconv.Itoa(n)+"\n"), 0o644); err != nil {
		return fmt.Errorf("writing semaphore file: %w", err)
	}
	return nil
}
