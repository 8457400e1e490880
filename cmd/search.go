package cmd

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"

	"github.com/diffsec/vekta/internal/query"
	"github.com/diffsec/vekta/internal/record"
	"github.com/diffsec/vekta/internal/store"
	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Query the store for the nearest records to a vector",
	Long: `search reads a single JSON record from standard input and writes the
top-k nearest stored records, ranked by cosine similarity, as a single
JSON object to standard output.`,
	Run: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	log := newLogger(cfg)

	reader := bufio.NewReaderSize(os.Stdin, 64*1024)
	data, err := reader.ReadBytes('\n')
	if err != nil && len(data) == 0 {
		exitWith(exitParseError, "read query: %v", err)
	}

	var wr wireRecord
	if err := json.Unmarshal(data, &wr); err != nil {
		exitWith(exitParseError, "parse query json: %v", err)
	}

	s, err := store.Open(cfg.Path, record.Size(cfg.LabelSize, cfg.Dimensions), log)
	if err != nil {
		exitWith(exitIOError, "open store: %v", err)
	}
	defer s.Close()

	q := record.Record{Label: wr.Label, Vector: wr.Vector}
	res, err := query.Run(s, cfg, q, log)
	if err != nil {
		// A dimension mismatch is a coordinator-level error (spec.md
		// §4.6), but it is always caused by the query record read from
		// stdin above having the wrong shape, not by the resolved
		// configuration itself — so it is reported as a parse error
		// (exit 2) here rather than the generic I/O failure path below.
		if errors.Is(err, record.ErrDimensionMismatch) {
			exitWith(exitParseError, "%v", err)
		}
		exitWith(exitIOError, "search: %v", err)
	}

	hits := make([]wireHit, len(res.Hits))
	for i, h := range res.Hits {
		hits[i] = wireHit{Label: h.Label, Similarity: h.Similarity}
	}

	out := wireResult{
		Query:   wireRecord{Label: res.Query.Label, Vector: res.Query.Vector},
		Results: hits,
	}
	enc := json.NewEncoder(os.Stdout)
	if err := enc.Encode(out); err != nil {
		exitWith(exitIOError, "write output: %v", err)
	}
}
