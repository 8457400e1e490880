package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/diffsec/vekta/internal/record"
	"github.com/diffsec/vekta/internal/store"
	"github.com/diffsec/vekta/internal/ui"
	"github.com/spf13/cobra"
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Append records read as JSON-lines from standard input",
	Long: `add reads one JSON record per line from standard input and appends
each to the store. A line that fails to parse or doesn't match the
configured (label_size, dimensions) is skipped with a warning; the
process exits 0 only if every line in the stream succeeded.`,
	Run: runAdd,
}

func init() {
	rootCmd.AddCommand(addCmd)
}

func runAdd(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	log := newLogger(cfg)

	s, err := store.Open(cfg.Path, record.Size(cfg.LabelSize, cfg.Dimensions), log)
	if err != nil {
		exitWith(exitIOError, "open store: %v", err)
	}
	defer s.Close()

	progress := ui.NewProgress("ingesting records", !cfg.Verbose)
	progress.Start()

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	total, failed := 0, 0
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		total++
		if err := addLine(s, cfg.LabelSize, cfg.Dimensions, line); err != nil {
			failed++
			log.Warn("skipping record %d: %v", total, err)
		}
	}
	if err := scanner.Err(); err != nil && err != io.EOF {
		progress.Failed("reading input failed")
		exitWith(exitIOError, "read stdin: %v", err)
	}

	if failed > 0 {
		progress.Failed("added %d/%d records, %d failed", total-failed, total, failed)
		os.Exit(exitParseError)
	}
	progress.Done("added %d record(s) to %s", total, cfg.Path)
}

func addLine(s *store.Store, l, d int, line []byte) error {
	var wr wireRecord
	if err := json.Unmarshal(line, &wr); err != nil {
		return fmt.Errorf("parse json: %w", err)
	}

	buf, err := record.Encode(record.Record{Label: wr.Label, Vector: wr.Vector}, l, d)
	if err != nil {
		return err
	}
	return s.Append(buf)
}
