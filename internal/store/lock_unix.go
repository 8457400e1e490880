//go:build !windows

package store

import (
	"os"
	"syscall"
)

// lockExclusive takes an advisory exclusive lock on f, blocking until
// it is available. append() holds it only for the duration of one
// write; search holds the shared variant for the duration of a query.
func lockExclusive(f *os.File) error {
	return syscall.Flock(int(f.Fd()), syscall.LOCK_EX)
}

func lockShared(f *os.File) error {
	return syscall.Flock(int(f.Fd()), syscall.LOCK_SH)
}

func unlock(f *os.File) error {
	return syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
}
