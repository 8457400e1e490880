// Package search implements the exact nearest-neighbor scan: the
// record range is partitioned across a worker pool, each worker
// maintains a local bounded top-K heap, and the heaps are merged into
// a single ranked result.
package search

import (
	"container/heap"
	"runtime"
	"sort"
	"sync"

	"github.com/diffsec/vekta/internal/kernel"
	"github.com/diffsec/vekta/internal/record"
	"github.com/diffsec/vekta/internal/store"
)

// Hit is one scored candidate: the record's label, its similarity to
// the query, and its sequential index (used only to break ties).
type Hit struct {
	Label      string
	Similarity float32
	Index      int
}

// Workers returns the default worker count: the available hardware
// parallelism, matching spec.md's "W equals the available
// parallelism".
func Workers() int {
	w := runtime.GOMAXPROCS(0)
	if w < 1 {
		w = 1
	}
	return w
}

// Logger is the subset of diagnostics.Logger the searcher needs to
// report a record that degraded to similarity 0.0.
type Logger interface {
	Warn(format string, args ...interface{})
}

// Search scans every record in s, scores it against query with the
// kernel, and returns the top k hits sorted by descending similarity,
// ties broken by ascending index. It partitions the record range
// across workers goroutines; the result is identical for any worker
// count (1, 2, 4, 8, ...) by construction, since ranking happens only
// after every worker's local heap has been merged.
func Search(s *store.Store, l, d int, query []float32, k int, workers int, log Logger) ([]Hit, error) {
	n, err := s.Len()
	if err != nil {
		return nil, err
	}
	if n == 0 || k <= 0 {
		return nil, nil
	}

	ranges, err := s.Partitions(workers)
	if err != nil {
		return nil, err
	}

	localResults := make([][]Hit, len(ranges))
	var wg sync.WaitGroup
	errs := make([]error, len(ranges))

	for wi, rng := range ranges {
		wi, rng := wi, rng
		wg.Add(1)
		go func() {
			defer wg.Done()
			h := &minHeap{}
			heap.Init(h)
			for i := rng.Start; i < rng.End; i++ {
				raw, err := s.ReadAt(i)
				if err != nil {
					errs[wi] = err
					return
				}
				var sim float32
				rec, err := record.Decode(raw, l, d)
				switch {
				case err != nil:
					if log != nil {
						log.Warn("record %d failed to decode, scoring as 0.0: %v", i, err)
					}
					rec.Label = ""
					sim = 0
				case kernel.ContainsNonFinite(rec.Vector):
					if log != nil {
						log.Warn("record %d has a non-finite vector entry, scoring as 0.0", i)
					}
					sim = 0
				default:
					sim = kernel.Similarity(query, rec.Vector)
				}
				hit := Hit{Label: rec.Label, Similarity: sim, Index: i}
				if h.Len() < k {
					heap.Push(h, hit)
				} else if h.Len() > 0 && better(hit, (*h)[0]) {
					heap.Pop(h)
					heap.Push(h, hit)
				}
			}
			localResults[wi] = *h
		}()
	}
	wg.Wait()

	for _, e := range errs {
		if e != nil {
			return nil, e
		}
	}

	var merged []Hit
	for _, hits := range localResults {
		merged = append(merged, hits...)
	}

	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Similarity != merged[j].Similarity {
			return merged[i].Similarity > merged[j].Similarity
		}
		return merged[i].Index < merged[j].Index
	})

	if len(merged) > k {
		merged = merged[:k]
	}
	return merged, nil
}

// better reports whether a should replace the current worst element
// of a size-k min-heap: strictly higher similarity, or equal
// similarity with a lower index (so ties resolve deterministically
// toward insertion order regardless of scan order).
func better(a, worst Hit) bool {
	if a.Similarity != worst.Similarity {
		return a.Similarity > worst.Similarity
	}
	return a.Index < worst.Index
}

// minHeap orders Hits so the weakest candidate (lowest similarity,
// breaking ties toward the higher index) is at the root and gets
// evicted first once the heap reaches size k.
type minHeap []Hit

func (h minHeap) Len() int { return len(h) }
func (h minHeap) Less(i, j int) bool {
	if h[i].Similarity != h[j].Similarity {
		return h[i].Similarity < h[j].Similarity
	}
	return h[i].Index > h[j].Index
}
func (h minHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *minHeap) Push(x interface{}) {
	*h = append(*h, x.(Hit))
}
func (h *minHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
