//go:build !windows
// +build !windows

package filesem

import (
	"os"

	"golang.org/x/sys/unix"
)

// lockFile takes an exclusive flock on f, blocking until it is granted.
func lockFile(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_EX)
}

// unlockFile releases the flock held on f.
func unlockFile(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_UN)
}

// pidAlive reports whether a process with the given pid exists on this host.
// Signal 0 performs the existence check without delivering anything; EPERM
// means the process exists but belongs to another user.
func pidAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	return err == nil || err == unix.EPERM
}
