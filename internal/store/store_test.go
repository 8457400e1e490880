package store

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/diffsec/vekta/internal/diagnostics"
)

const recSize = 8 + 4*8 // L=8, D=8

func openTemp(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "vekta.bin")
	s, err := Open(path, recSize, diagnostics.Noop{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, path
}

func makeRecord(t *testing.T) []byte {
	t.Helper()
	return make([]byte, recSize)
}

func TestAppendAndLen(t *testing.T) {
	s, path := openTemp(t)
	for i := 0; i < 5; i++ {
		if err := s.Append(makeRecord(t)); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	n, err := s.Len()
	if err != nil {
		t.Fatalf("Len: %v", err)
	}
	if n != 5 {
		t.Fatalf("Len() = %d, want 5", n)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Size() != int64(5*recSize) {
		t.Fatalf("file size = %d, want %d", info.Size(), 5*recSize)
	}
}

func TestPartitionsDisjointAndContiguous(t *testing.T) {
	s, _ := openTemp(t)
	for i := 0; i < 10; i++ {
		s.Append(makeRecord(t))
	}

	for _, w := range []int{1, 2, 3, 4, 8} {
		ranges, err := s.Partitions(w)
		if err != nil {
			t.Fatalf("Partitions(%d): %v", w, err)
		}
		total := 0
		prevEnd := 0
		for _, r := range ranges {
			if r.Start != prevEnd {
				t.Fatalf("w=%d: range %+v not contiguous after %d", w, r, prevEnd)
			}
			if r.End <= r.Start {
				t.Fatalf("w=%d: empty range %+v", w, r)
			}
			total += r.End - r.Start
			prevEnd = r.End
		}
		if total != 10 {
			t.Fatalf("w=%d: total covered = %d, want 10", w, total)
		}
	}
}

func TestPartitionsEmptyStore(t *testing.T) {
	s, _ := openTemp(t)
	ranges, err := s.Partitions(4)
	if err != nil {
		t.Fatalf("Partitions: %v", err)
	}
	if len(ranges) != 0 {
		t.Fatalf("ranges = %v, want empty", ranges)
	}
}

func TestPartialWriteRecovery(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vekta.bin")

	s, err := Open(path, recSize, diagnostics.Noop{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Append(makeRecord(t)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	s.Close()

	if err := os.Truncate(path, int64(recSize)+3); err != nil {
		t.Fatalf("Truncate: %v", err)
	}

	var warned bool
	logger := &countingLogger{onWarn: func() { warned = true }}
	s2, err := Open(path, recSize, logger)
	if err != nil {
		t.Fatalf("reopen after partial write: %v", err)
	}
	defer s2.Close()

	if !warned {
		t.Fatalf("expected a warning on partial-write recovery")
	}
	n, err := s2.Len()
	if err != nil {
		t.Fatalf("Len: %v", err)
	}
	if n != 1 {
		t.Fatalf("Len() = %d, want 1 after truncation", n)
	}

	if err := s2.Append(makeRecord(t)); err != nil {
		t.Fatalf("Append after recovery: %v", err)
	}
}

func TestMismatchedConfigRejectedUntouched(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vekta.bin")

	s, err := Open(path, recSize, diagnostics.Noop{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Append(makeRecord(t)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	s.Close()

	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	// Reopen under a larger record size, as if (label_size, dimensions)
	// had changed; the file (one record under the old config) is now
	// shorter than a single record and must be rejected, not truncated
	// to zero.
	biggerRecSize := recSize * 2
	if _, err := Open(path, biggerRecSize, diagnostics.Noop{}); !errors.Is(err, ErrCorruptLength) {
		t.Fatalf("Open under mismatched config: err = %v, want ErrCorruptLength", err)
	}

	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !bytes.Equal(before, after) {
		t.Fatalf("file was modified by a rejected Open: before=%d bytes, after=%d bytes", len(before), len(after))
	}
}

type countingLogger struct {
	onWarn func()
}

func (c *countingLogger) Warn(format string, args ...interface{}) {
	if c.onWarn != nil {
		c.onWarn()
	}
}
func (c *countingLogger) Info(format string, args ...interface{}) {}
