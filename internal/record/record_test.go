package record

import (
	"errors"
	"math"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	r := Record{Label: "hello", Vector: []float32{1, 2, 3, 4, 5, 6, 7, 8}}
	buf, err := Encode(r, 8, 8)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(buf, 8, 8)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Label != r.Label {
		t.Fatalf("label = %q, want %q", got.Label, r.Label)
	}
	for i := range r.Vector {
		if got.Vector[i] != r.Vector[i] {
			t.Fatalf("vector[%d] = %v, want %v", i, got.Vector[i], r.Vector[i])
		}
	}
}

func TestLabelPaddingStripped(t *testing.T) {
	r := Record{Label: "a", Vector: []float32{1, 0, 0, 0, 0, 0, 0, 0}}
	buf, err := Encode(r, 32, 8)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(buf, 32, 8)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Label != "a" {
		t.Fatalf("label = %q, want %q", got.Label, "a")
	}
}

func TestLabelTooLong(t *testing.T) {
	r := Record{Label: "this label is definitely too long", Vector: []float32{0, 0, 0, 0, 0, 0, 0, 0}}
	_, err := Encode(r, 4, 8)
	if !errors.Is(err, ErrLabelTooLong) {
		t.Fatalf("err = %v, want ErrLabelTooLong", err)
	}
}

func TestDimensionMismatch(t *testing.T) {
	r := Record{Label: "x", Vector: []float32{1, 2, 3}}
	_, err := Encode(r, 8, 8)
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("err = %v, want ErrDimensionMismatch", err)
	}
}

func TestNonFiniteRejected(t *testing.T) {
	r := Record{Label: "x", Vector: []float32{float32(math.NaN()), 0, 0, 0, 0, 0, 0, 0}}
	_, err := Encode(r, 8, 8)
	if !errors.Is(err, ErrNonFinite) {
		t.Fatalf("err = %v, want ErrNonFinite", err)
	}
}

func TestEncodeSizeIsFixed(t *testing.T) {
	r := Record{Label: "x", Vector: make([]float32, 16)}
	buf, err := Encode(r, 10, 16)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(buf) != Size(10, 16) {
		t.Fatalf("len(buf) = %d, want %d", len(buf), Size(10, 16))
	}
}
