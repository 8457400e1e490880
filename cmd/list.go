package cmd

import (
	"encoding/json"
	"os"

	"github.com/diffsec/vekta/internal/labelindex"
	"github.com/diffsec/vekta/internal/record"
	"github.com/diffsec/vekta/internal/store"
	"github.com/spf13/cobra"
)

var listGrepFlag string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Emit every stored record as JSON",
	Long: `list streams one JSON object per stored record to standard output.
With --grep, only labels containing the given substring are emitted;
absent the flag, the configured list_grep default applies.`,
	Run: runList,
}

func init() {
	listCmd.Flags().StringVar(&listGrepFlag, "grep", "", "filter records by label substring")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	log := newLogger(cfg)

	pattern := cfg.ListGrep
	if listGrepFlag != "" {
		pattern = listGrepFlag
	}

	s, err := store.Open(cfg.Path, record.Size(cfg.LabelSize, cfg.Dimensions), log)
	if err != nil {
		exitWith(exitIOError, "open store: %v", err)
	}
	defer s.Close()

	var records []record.Record
	err = s.Each(func(i int, raw []byte) error {
		rec, err := record.Decode(raw, cfg.LabelSize, cfg.Dimensions)
		if err != nil {
			log.Warn("record %d failed to decode: %v", i, err)
			return nil
		}
		records = append(records, rec)
		return nil
	})
	if err != nil {
		exitWith(exitIOError, "scan store: %v", err)
	}

	labels := make([]string, len(records))
	for i, rec := range records {
		labels[i] = rec.Label
	}
	matched, err := labelindex.Match(labels, pattern)
	if err != nil {
		exitWith(exitIOError, "filter labels: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	for _, rec := range records {
		if !matched[rec.Label] {
			continue
		}
		if err := enc.Encode(wireRecord{Label: rec.Label, Vector: rec.Vector}); err != nil {
			exitWith(exitIOError, "write output: %v", err)
		}
	}
}
