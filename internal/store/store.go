// Package store implements the append-only, fixed-record-width file
// that backs the vector database: sequential append, positioned
// reads, and partitioning of the record index range for parallel
// scans.
package store

import (
	"errors"
	"fmt"
	"os"

	"github.com/diffsec/vekta/internal/diagnostics"
)

// ErrCorruptLength is returned by Len when the file size is not an
// integer multiple of the record size, and by Open when the file is
// non-empty but shorter than one whole record. Open recovers the one
// case that can legitimately arise from a crashed writer — a partial
// trailing record after at least one complete record — by truncating
// back to the last record boundary; anything shorter than a single
// record cannot be explained by a partial write (the previous append
// would have had a full record on disk before attempting the next
// one) and more likely means the file was created under a different
// (label_size, dimensions) configuration, so it is rejected untouched
// instead.
var ErrCorruptLength = errors.New("store file length is not a multiple of the record size")

// Store is the append-only record file.
type Store struct {
	path       string
	recordSize int
	file       *os.File
	log        diagnostics.Logger
}

// Open creates the file at path if it doesn't exist, and otherwise
// opens it and truncates back to the last full record boundary if a
// previous append was interrupted mid-write, logging a warning for
// the truncation. A non-empty file shorter than one record is rejected
// with ErrCorruptLength and left untouched, since it cannot be a
// partial write recovering from a crash (§3: "a file opened under a
// mismatched configuration is rejected").
func Open(path string, recordSize int, log diagnostics.Logger) (*Store, error) {
	if log == nil {
		log = diagnostics.Noop{}
	}
	if recordSize <= 0 {
		return nil, fmt.Errorf("invalid record size %d", recordSize)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	s := &Store{path: path, recordSize: recordSize, file: f, log: log}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat store: %w", err)
	}

	if info.Size() > 0 && info.Size() < int64(recordSize) {
		f.Close()
		return nil, fmt.Errorf("%w: %s is %d bytes, smaller than one record (%d bytes) — likely opened under a different configuration",
			ErrCorruptLength, path, info.Size(), recordSize)
	}

	if rem := info.Size() % int64(recordSize); rem != 0 {
		truncated := info.Size() - rem
		if err := f.Truncate(truncated); err != nil {
			f.Close()
			return nil, fmt.Errorf("truncate partial write: %w", err)
		}
		log.Warn("store %s had a partial trailing record (%d bytes); truncated to %d bytes", path, rem, truncated)
	}

	return s, nil
}

// RecordSize returns the fixed byte width of one record in this store.
func (s *Store) RecordSize() int { return s.recordSize }

// Path returns the store's file path.
func (s *Store) Path() string { return s.path }

// Append writes one record at end-of-file under an exclusive
// advisory lock, flushing before returning, and releases the lock
// before returning. raw must be exactly RecordSize() bytes.
func (s *Store) Append(raw []byte) error {
	if len(raw) != s.recordSize {
		return fmt.Errorf("append: record is %d bytes, expected %d", len(raw), s.recordSize)
	}

	if err := lockExclusive(s.file); err != nil {
		return fmt.Errorf("lock store for append: %w", err)
	}
	defer unlock(s.file)

	if _, err := s.file.Seek(0, os.SEEK_END); err != nil {
		return fmt.Errorf("seek to end: %w", err)
	}
	if _, err := s.file.Write(raw); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	if err := s.file.Sync(); err != nil {
		return fmt.Errorf("flush record: %w", err)
	}
	return nil
}

// RLock takes a shared advisory lock on the store file for the
// duration of a query session, blocking new Append calls (which need
// the exclusive variant) until Unlock releases it. A query that never
// calls RLock still works; it just loses the "blocks new appends"
// guarantee described in spec.md's concurrency model.
func (s *Store) RLock() error {
	return lockShared(s.file)
}

// Unlock releases a lock previously taken with RLock.
func (s *Store) Unlock() error {
	return unlock(s.file)
}

// Len returns the number of records currently stored.
func (s *Store) Len() (int, error) {
	info, err := s.file.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat store: %w", err)
	}
	if info.Size()%int64(s.recordSize) != 0 {
		return 0, ErrCorruptLength
	}
	return int(info.Size() / int64(s.recordSize)), nil
}

// ReadAt returns the raw bytes of record i.
func (s *Store) ReadAt(i int) ([]byte, error) {
	buf := make([]byte, s.recordSize)
	off := int64(i) * int64(s.recordSize)
	if _, err := s.file.ReadAt(buf, off); err != nil {
		return nil, fmt.Errorf("read record %d: %w", i, err)
	}
	return buf, nil
}

// Range is a contiguous, half-open sub-range [Start, End) of the
// record index space, as produced by Partitions.
type Range struct {
	Start, End int
}

// Partitions splits [0, Len()) into w approximately equal, disjoint,
// contiguous sub-ranges. w is clamped to at least 1 and to at most
// the number of records, so no partition is empty.
func (s *Store) Partitions(w int) ([]Range, error) {
	n, err := s.Len()
	if err != nil {
		return nil, err
	}
	if w < 1 {
		w = 1
	}
	if w > n {
		w = n
	}
	if n == 0 {
		return nil, nil
	}

	ranges := make([]Range, 0, w)
	base := n / w
	rem := n % w
	start := 0
	for i := 0; i < w; i++ {
		size := base
		if i < rem {
			size++
		}
		ranges = append(ranges, Range{Start: start, End: start + size})
		start += size
	}
	return ranges, nil
}

// Each sequentially visits every stored record, calling fn with its
// index and raw bytes. Iteration stops at the first error fn returns.
func (s *Store) Each(fn func(i int, raw []byte) error) error {
	n, err := s.Len()
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		raw, err := s.ReadAt(i)
		if err != nil {
			return err
		}
		if err := fn(i, raw); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying file handle.
func (s *Store) Close() error {
	return s.file.Close()
}
