// Package lsh builds a random-hyperplane locality-sensitive-hashing
// index over a store's vectors for approximate nearest-neighbor
// search, and expands query candidates by ascending Hamming distance
// over the projection signatures.
package lsh

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/diffsec/vekta/internal/kernel"
	"github.com/diffsec/vekta/internal/record"
	"github.com/diffsec/vekta/internal/search"
	"github.com/diffsec/vekta/internal/store"
)

// MaxProjections bounds P to the width of the uint64 signature this
// package uses to represent a sign vector.
const MaxProjections = 64

// Logger is the subset of diagnostics.Logger the index needs.
type Logger interface {
	Warn(format string, args ...interface{})
}

// Index is a random-projection LSH table built once per query
// session and held read-only afterward.
type Index struct {
	dimension   int
	projections int
	planes      [][]float32 // P hyperplane normals, each D-dimensional
	buckets     map[uint64][]int
	store       *store.Store
	labelSize   int
	log         Logger
}

// Seed derives a deterministic RNG seed from (D, P) so the same
// database configuration always yields the same hyperplanes, and
// repeated queries against an unchanged database see stable
// candidate sets.
func Seed(d, p int) int64 {
	return int64(d)*1_000_003 + int64(p)*97 + 17
}

// Build draws P hyperplane normals, computes every stored vector's
// signature, and buckets record indices by signature. p must be in
// (0, MaxProjections]; callers fall back to exact search for p == 0
// per spec.
func Build(s *store.Store, l, d, p int, log Logger) (*Index, error) {
	if p <= 0 || p > MaxProjections {
		return nil, fmt.Errorf("lsh: projection count %d out of range (1..%d)", p, MaxProjections)
	}

	rng := rand.New(rand.NewSource(Seed(d, p)))
	planes := make([][]float32, p)
	for i := range planes {
		plane := make([]float32, d)
		for j := range plane {
			plane[j] = float32(rng.NormFloat64())
		}
		planes[i] = plane
	}

	idx := &Index{
		dimension:   d,
		projections: p,
		planes:      planes,
		buckets:     make(map[uint64][]int),
		store:       s,
		labelSize:   l,
		log:         log,
	}

	n, err := s.Len()
	if err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		raw, err := s.ReadAt(i)
		if err != nil {
			return nil, err
		}
		rec, err := record.Decode(raw, l, d)
		if err != nil {
			if log != nil {
				log.Warn("record %d failed to decode while building LSH index, skipping: %v", i, err)
			}
			continue
		}
		sig := idx.signature(rec.Vector)
		idx.buckets[sig] = append(idx.buckets[sig], i)
	}

	return idx, nil
}

// FromSignatures rebuilds the bucket table from a previously computed
// (record index -> signature) map instead of rescanning the store,
// skipping the projection pass entirely. It still draws the same
// deterministic hyperplanes so Query's projection of the live query
// vector lines up with the cached signatures.
func FromSignatures(s *store.Store, l, d, p int, sigs map[int]uint64, log Logger) (*Index, error) {
	if p <= 0 || p > MaxProjections {
		return nil, fmt.Errorf("lsh: projection count %d out of range (1..%d)", p, MaxProjections)
	}
	rng := rand.New(rand.NewSource(Seed(d, p)))
	planes := make([][]float32, p)
	for i := range planes {
		plane := make([]float32, d)
		for j := range plane {
			plane[j] = float32(rng.NormFloat64())
		}
		planes[i] = plane
	}

	idx := &Index{
		dimension:   d,
		projections: p,
		planes:      planes,
		buckets:     make(map[uint64][]int, len(sigs)),
		store:       s,
		labelSize:   l,
		log:         log,
	}
	for i, sig := range sigs {
		idx.buckets[sig] = append(idx.buckets[sig], i)
	}
	return idx, nil
}

// Signatures returns the (record index -> signature) map backing this
// index's buckets, for persistence by an external sidecar cache.
func (idx *Index) Signatures() map[int]uint64 {
	sigs := make(map[int]uint64)
	for sig, indices := range idx.buckets {
		for _, i := range indices {
			sigs[i] = sig
		}
	}
	return sigs
}

// signature computes sig(v): bit j is 1 iff <v, h_j> >= 0, with a
// dot product of exactly 0 treated as a 1-bit so the mapping is
// total.
func (idx *Index) signature(v []float32) uint64 {
	var sig uint64
	for j, plane := range idx.planes {
		if dot(v, plane) >= 0 {
			sig |= 1 << uint(j)
		}
	}
	return sig
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// Query scores the multi-probe candidate pool collected by expanding
// outward from sig(q) in ascending Hamming radius, until the pool is
// at least max(k, 4k) or the radius reaches P, and returns the top k
// by exact similarity under the same ordering convention as the
// exact searcher.
func (idx *Index) Query(q []float32, k int) ([]search.Hit, error) {
	if k <= 0 {
		return nil, nil
	}

	target := 4 * k
	if target < k {
		target = k
	}

	total, err := idx.store.Len()
	if err != nil {
		return nil, err
	}

	sig := idx.signature(q)
	seen := make(map[int]bool)
	var candidates []int

	// The radius<=P bound from spec §4.5 is the correctness backstop;
	// stopping early once every stored record has been seen avoids the
	// C(P, radius) blowup of the last few radii when the store is
	// smaller than the target pool (e.g. target=4k but len(store)<4k).
	for radius := 0; radius <= idx.projections && len(candidates) < target && len(candidates) < total; radius++ {
		for _, probe := range sigsAtDistance(sig, idx.projections, radius) {
			for _, i := range idx.buckets[probe] {
				if !seen[i] {
					seen[i] = true
					candidates = append(candidates, i)
				}
			}
		}
	}

	var hits []search.Hit
	for _, i := range candidates {
		raw, err := idx.store.ReadAt(i)
		if err != nil {
			return nil, err
		}
		rec, err := record.Decode(raw, idx.labelSize, idx.dimension)
		var sim float32
		switch {
		case err != nil:
			if idx.log != nil {
				idx.log.Warn("record %d failed to decode, scoring as 0.0: %v", i, err)
			}
			sim = 0
		case kernel.ContainsNonFinite(rec.Vector):
			if idx.log != nil {
				idx.log.Warn("record %d has a non-finite vector entry, scoring as 0.0", i)
			}
			sim = 0
		default:
			sim = kernel.Similarity(q, rec.Vector)
		}
		hits = append(hits, search.Hit{Label: rec.Label, Similarity: sim, Index: i})
	}

	sort.Slice(hits, func(a, b int) bool {
		if hits[a].Similarity != hits[b].Similarity {
			return hits[a].Similarity > hits[b].Similarity
		}
		return hits[a].Index < hits[b].Index
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// sigsAtDistance enumerates every P-bit signature at exactly the
// given Hamming distance from base, sorted ascending by integer
// value so ties at the same radius expand deterministically.
func sigsAtDistance(base uint64, p, radius int) []uint64 {
	if radius == 0 {
		return []uint64{base}
	}
	var combos [][]int
	var combo func(start int, chosen []int)
	combo = func(start int, chosen []int) {
		if len(chosen) == radius {
			c := make([]int, radius)
			copy(c, chosen)
			combos = append(combos, c)
			return
		}
		for bit := start; bit < p; bit++ {
			combo(bit+1, append(chosen, bit))
		}
	}
	combo(0, nil)

	sigs := make([]uint64, 0, len(combos))
	for _, bits := range combos {
		mask := uint64(0)
		for _, b := range bits {
			mask |= 1 << uint(b)
		}
		sigs = append(sigs, base^mask)
	}
	sort.Slice(sigs, func(i, j int) bool { return sigs[i] < sigs[j] })
	return sigs
}
