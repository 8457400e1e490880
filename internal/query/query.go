// Package query implements the coordinator: it selects the exact or
// ANN search path per configuration, enforces the query/store
// dimension invariant, and assembles the result set.
package query

import (
	"fmt"

	"github.com/diffsec/vekta/internal/config"
	"github.com/diffsec/vekta/internal/lsh"
	"github.com/diffsec/vekta/internal/lshcache"
	"github.com/diffsec/vekta/internal/record"
	"github.com/diffsec/vekta/internal/search"
	"github.com/diffsec/vekta/internal/store"
)

// Logger is the subset of diagnostics.Logger the coordinator and its
// searchers need.
type Logger interface {
	Warn(format string, args ...interface{})
	Info(format string, args ...interface{})
}

// Result is the assembled outcome of one query: the original query
// record plus its ranked hits.
type Result struct {
	Query record.Record
	Hits  []search.Hit
}

// Run selects the exact or ANN path according to cfg.SearchMethod,
// scores q against the records in s (every record on the exact path,
// the LSH candidate pool on the ANN path), and returns the top
// cfg.TopK hits. A dimension mismatch between q and cfg is a coordinator-level
// error, reported as record.ErrDimensionMismatch; the CLI layer chooses
// to report it as a parse error (exit 2) rather than a config error
// (exit 1), since it always traces back to the query record's shape,
// not to the resolved configuration.
func Run(s *store.Store, cfg *config.Config, q record.Record, log Logger) (*Result, error) {
	if len(q.Vector) != cfg.Dimensions {
		return nil, fmt.Errorf("%w: query has %d dimensions, store is configured for %d",
			record.ErrDimensionMismatch, len(q.Vector), cfg.Dimensions)
	}

	if err := s.RLock(); err != nil {
		return nil, fmt.Errorf("lock store for search: %w", err)
	}
	defer s.Unlock()

	method := cfg.SearchMethod
	if method == "ann" && cfg.AnnNumProjections == 0 {
		if log != nil {
			log.Warn("ann_num_projections is 0, falling back to exact search")
		}
		method = "exact"
	}

	var hits []search.Hit
	var err error
	switch method {
	case "ann":
		hits, err = runANN(s, cfg, q.Vector, log)
	default:
		hits, err = search.Search(s, cfg.LabelSize, cfg.Dimensions, q.Vector, cfg.TopK, search.Workers(), log)
	}
	if err != nil {
		return nil, err
	}

	return &Result{Query: q, Hits: hits}, nil
}

func runANN(s *store.Store, cfg *config.Config, q []float32, log Logger) ([]search.Hit, error) {
	idx, err := buildOrLoadIndex(s, cfg, log)
	if err != nil {
		return nil, err
	}
	return idx.Query(q, cfg.TopK)
}

// buildOrLoadIndex builds the LSH index, consulting the sqlite
// sidecar cache first when ann_persist_index is enabled and the
// sidecar's (dimension, projections, record count) tuple still
// matches the store. Any mismatch or absence falls back to a full
// rebuild and, if persistence is enabled, repopulates the sidecar.
func buildOrLoadIndex(s *store.Store, cfg *config.Config, log Logger) (*lsh.Index, error) {
	n, err := s.Len()
	if err != nil {
		return nil, err
	}

	if !cfg.AnnPersistIndex {
		return lsh.Build(s, cfg.LabelSize, cfg.Dimensions, cfg.AnnNumProjections, log)
	}

	cache, err := lshcache.Open(lshcache.Path(s.Path()))
	if err != nil {
		if log != nil {
			log.Warn("could not open LSH sidecar cache, rebuilding in-memory: %v", err)
		}
		return lsh.Build(s, cfg.LabelSize, cfg.Dimensions, cfg.AnnNumProjections, log)
	}
	defer cache.Close()

	if sigs, ok, err := cache.Load(cfg.Dimensions, cfg.AnnNumProjections, n); err == nil && ok {
		if log != nil {
			log.Info("loaded %d cached LSH signatures from sidecar", len(sigs))
		}
		return lsh.FromSignatures(s, cfg.LabelSize, cfg.Dimensions, cfg.AnnNumProjections, sigs, log)
	}

	idx, err := lsh.Build(s, cfg.LabelSize, cfg.Dimensions, cfg.AnnNumProjections, log)
	if err != nil {
		return nil, err
	}
	if err := cache.Save(cfg.Dimensions, cfg.AnnNumProjections, n, idx.Signatures()); err != nil && log != nil {
		log.Warn("failed to persist LSH sidecar cache: %v", err)
	}
	return idx, nil
}
