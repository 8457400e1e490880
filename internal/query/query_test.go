package query

import (
	"errors"
	"testing"

	"github.com/diffsec/vekta/internal/config"
	"github.com/diffsec/vekta/internal/diagnostics"
	"github.com/diffsec/vekta/internal/record"
	"github.com/diffsec/vekta/internal/store"
)

func newTestStore(t *testing.T, cfg *config.Config, vectors [][]float32, labels []string) *store.Store {
	t.Helper()
	path := t.TempDir() + "/vekta.bin"
	s, err := store.Open(path, record.Size(cfg.LabelSize, cfg.Dimensions), diagnostics.Noop{})
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	for i, v := range vectors {
		buf, err := record.Encode(record.Record{Label: labels[i], Vector: v}, cfg.LabelSize, cfg.Dimensions)
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		if err := s.Append(buf); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	return s
}

func baseConfig() *config.Config {
	cfg := config.Defaults()
	cfg.Dimensions = 8
	cfg.LabelSize = 8
	cfg.TopK = 2
	return &cfg
}

func TestRunExactSelfMatch(t *testing.T) {
	cfg := baseConfig()
	v := []float32{1, 0, 0, 0, 0, 0, 0, 0}
	s := newTestStore(t, cfg, [][]float32{v}, []string{"a"})

	res, err := Run(s, cfg, record.Record{Label: "q", Vector: v}, diagnostics.Noop{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Hits) != 1 || res.Hits[0].Label != "a" || res.Hits[0].Similarity != 1.0 {
		t.Fatalf("hits = %+v", res.Hits)
	}
}

func TestRunANNSelfMatch(t *testing.T) {
	cfg := baseConfig()
	cfg.SearchMethod = "ann"
	cfg.AnnNumProjections = 8
	v := []float32{1, 0, 0, 0, 0, 0, 0, 0}
	s := newTestStore(t, cfg, [][]float32{v}, []string{"a"})

	res, err := Run(s, cfg, record.Record{Label: "q", Vector: v}, diagnostics.Noop{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Hits) != 1 || res.Hits[0].Label != "a" {
		t.Fatalf("hits = %+v", res.Hits)
	}
}

func TestRunANNFallsBackWhenProjectionsZero(t *testing.T) {
	cfg := baseConfig()
	cfg.SearchMethod = "ann"
	cfg.AnnNumProjections = 0
	v := []float32{1, 0, 0, 0, 0, 0, 0, 0}
	s := newTestStore(t, cfg, [][]float32{v}, []string{"a"})

	res, err := Run(s, cfg, record.Record{Label: "q", Vector: v}, diagnostics.Noop{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Hits) != 1 || res.Hits[0].Label != "a" {
		t.Fatalf("hits = %+v", res.Hits)
	}
}

func TestRunDimensionMismatch(t *testing.T) {
	cfg := baseConfig()
	s := newTestStore(t, cfg, nil, nil)

	_, err := Run(s, cfg, record.Record{Label: "q", Vector: []float32{1, 2, 3}}, diagnostics.Noop{})
	if !errors.Is(err, record.ErrDimensionMismatch) {
		t.Fatalf("err = %v, want ErrDimensionMismatch", err)
	}
}

func TestRunANNPersistedAcrossSessions(t *testing.T) {
	cfg := baseConfig()
	cfg.SearchMethod = "ann"
	cfg.AnnNumProjections = 8
	cfg.AnnPersistIndex = true
	v := []float32{1, 0, 0, 0, 0, 0, 0, 0}
	s := newTestStore(t, cfg, [][]float32{v}, []string{"a"})

	res1, err := Run(s, cfg, record.Record{Label: "q", Vector: v}, diagnostics.Noop{})
	if err != nil {
		t.Fatalf("Run (build): %v", err)
	}
	res2, err := Run(s, cfg, record.Record{Label: "q", Vector: v}, diagnostics.Noop{})
	if err != nil {
		t.Fatalf("Run (load from sidecar): %v", err)
	}
	if len(res1.Hits) != len(res2.Hits) || res1.Hits[0].Label != res2.Hits[0].Label {
		t.Fatalf("results differ across sessions: %+v vs %+v", res1.Hits, res2.Hits)
	}
}
