// Package filesem provides a file-backed counting semaphore for limiting
// how many independent OS processes concurrently run a protected workload.
//
// The only shared state is the filesystem: there is no daemon, database, or
// network service. This makes filesem a fit for environments where multiple
// independent invocations (parallel CI jobs, cron-triggered scripts) must
// serialize or cap concurrency without a central coordinator, as long as
// they share a filesystem.
//
// # Protocol
//
// The semaphore file's entire content is a plain-text non-negative integer
// counting the slots currently held. A missing, empty, or garbled file
// reads as zero. Every read-modify-write of the counter happens under an
// exclusive advisory lock on a sidecar ".lock" file, so two processes can
// never both observe room for the last slot:
//
//  1. Take the lock.
//  2. Read the counter; if it is below the maximum, write counter+1 and
//     report Acquired, otherwise leave it untouched and report Busy.
//  3. Drop the lock.
//
// A Busy result puts the caller to sleep for a fixed retry interval before
// the next attempt. There is no backoff, no attempt cap, and no fairness:
// when a slot frees, all pollers race for it.
//
// A successful acquire returns a Guard whose Release is latched to fire at
// most once, so it can be wired to every exit path (a defer, a signal
// handler) without double-decrementing. Release happens whether the
// workload succeeded or failed; slot accounting is decoupled from workload
// outcome.
//
// # Library use
//
//	sem, err := filesem.New(filesem.Config{
//		SemaphoreFile:     "/var/run/nightly.sem",
//		MaxConcurrentJobs: 2,
//		RetryInterval:     5 * time.Second,
//	}, logger)
//	if err != nil {
//		return err
//	}
//
//	guard, err := sem.AcquireContext(ctx)
//	if err != nil {
//		return err
//	}
//	defer guard.Release()
//	// run the protected workload
//
// TryAcquire and AcquireTimeout cover non-blocking and bounded waits.
//
// # CLI use
//
// The filesem command wraps an arbitrary executable:
//
//	filesem run -f /var/run/nightly.sem -n 2 -- ./backup.sh --full
//
// It acquires a slot (waiting as long as needed), runs the workload with
// inherited stdio, exits with the workload's own exit code, and releases
// the slot on every exit path including SIGINT and SIGTERM.
//
// # Holder registry
//
// Next to the counter, a ".holders" sidecar records who currently holds
// each slot (pid, host, acquire time, optional label), encoded with
// MessagePack. The registry is purely diagnostic (the counter stays the
// source of truth) and feeds two CLI commands:
//
//	filesem status  # counter value plus holders, stale entries marked
//	filesem repair  # drop holders whose process died, reclaim their slots
//
// A holder that terminates normally, fails, or is interrupted releases its
// slot through the guard. Only a hard kill (SIGKILL, power loss) can leak a
// slot, and repair reclaims it.
//
// # Caveats
//
// The advisory lock uses flock on Unix and LockFileEx on Windows. Over NFS
// and other network filesystems flock semantics are implementation
// dependent; place the semaphore file on a filesystem with sound advisory
// locking.
package filesem
