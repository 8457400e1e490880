// Package record encodes and decodes the fixed-width on-disk record
// format: L label bytes followed by 4*D little-endian float32 bytes.
package record

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"golang.org/x/text/unicode/norm"
)

var (
	// ErrLabelTooLong is returned when a label's normalized UTF-8
	// byte length exceeds the configured label width L.
	ErrLabelTooLong = errors.New("label too long")
	// ErrDimensionMismatch is returned when a vector's length does
	// not exactly equal the configured dimension D.
	ErrDimensionMismatch = errors.New("dimension mismatch")
	// ErrNonFinite is returned when a vector entry is NaN or ±Inf.
	ErrNonFinite = errors.New("non-finite vector entry")
)

// Record is one vector record: a label and its D-dimensional vector.
type Record struct {
	Label  string
	Vector []float32
}

// Size returns the on-disk byte size of a record under (l, d).
func Size(l, d int) int {
	return l + 4*d
}

// Encode writes r into a fixed-width buffer of exactly Size(l, d)
// bytes: l bytes of zero-padded, NFC-normalized label followed by
// 4*d little-endian float32 bytes. Non-finite vector entries and
// labels or vectors that don't fit (l, d) are rejected; nothing is
// written at rest that wasn't validated here.
func Encode(r Record, l, d int) ([]byte, error) {
	if len(r.Vector) != d {
		return nil, fmt.Errorf("%w: got %d, expected %d", ErrDimensionMismatch, len(r.Vector), d)
	}
	for _, v := range r.Vector {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return nil, fmt.Errorf("%w", ErrNonFinite)
		}
	}

	labelBytes := []byte(norm.NFC.String(r.Label))
	if len(labelBytes) > l {
		return nil, fmt.Errorf("%w: label %q is %d bytes, limit is %d", ErrLabelTooLong, r.Label, len(labelBytes), l)
	}

	buf := make([]byte, Size(l, d))
	copy(buf, labelBytes)

	for i, v := range r.Vector {
		off := l + 4*i
		binary.LittleEndian.PutUint32(buf[off:off+4], math.Float32bits(v))
	}
	return buf, nil
}

// Decode is the inverse of Encode. Trailing zero bytes are stripped
// from the label. Data at rest is trusted: non-finite entries read
// back from disk are returned as-is, not sanitized.
func Decode(buf []byte, l, d int) (Record, error) {
	want := Size(l, d)
	if len(buf) != want {
		return Record{}, fmt.Errorf("record buffer is %d bytes, expected %d", len(buf), want)
	}

	labelBytes := buf[:l]
	end := len(labelBytes)
	for end > 0 && labelBytes[end-1] == 0 {
		end--
	}
	label := string(labelBytes[:end])

	vec := make([]float32, d)
	for i := range vec {
		off := l + 4*i
		bits := binary.LittleEndian.Uint32(buf[off : off+4])
		vec[i] = math.Float32frombits(bits)
	}

	return Record{Label: label, Vector: vec}, nil
}
