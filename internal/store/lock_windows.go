//go:build windows

package store

import "os"

// Windows advisory locking across separate process handles isn't
// exposed through the standard library; the single-process case
// (the only one this CLI exercises within one invocation) doesn't
// need it, so these are no-ops rather than a LockFileEx binding.
func lockExclusive(f *os.File) error { return nil }
func lockShared(f *os.File) error    { return nil }
func unlock(f *os.File) error        { return nil }
