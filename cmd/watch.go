package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/diffsec/vekta/internal/record"
	"github.com/diffsec/vekta/internal/store"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Tail a directory for .jsonl files and append new records",
	Long: `watch follows every *.jsonl file under <dir> and appends new lines
to the store as they are written, the same per-record skip-and-continue
policy as add. It runs until interrupted.`,
	Args: cobra.ExactArgs(1),
	Run:  runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

// tailState tracks how many bytes of a watched file have already been
// consumed, so a later write only yields the newly appended lines.
type tailState struct {
	offset int64
}

func runWatch(cmd *cobra.Command, args []string) {
	dir := args[0]
	cfg := loadConfig()
	log := newLogger(cfg)

	s, err := store.Open(cfg.Path, record.Size(cfg.LabelSize, cfg.Dimensions), log)
	if err != nil {
		exitWith(exitIOError, "open store: %v", err)
	}
	defer s.Close()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		exitWith(exitIOError, "create watcher: %v", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		exitWith(exitIOError, "watch %s: %v", dir, err)
	}

	states := make(map[string]*tailState)
	entries, err := os.ReadDir(dir)
	if err != nil {
		exitWith(exitIOError, "read %s: %v", dir, err)
	}
	for _, e := range entries {
		if isJSONL(e.Name()) {
			path := filepath.Join(dir, e.Name())
			states[path] = &tailState{}
			ingestNew(s, cfg.LabelSize, cfg.Dimensions, path, states[path], log)
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	fmt.Fprintf(os.Stderr, "watching %s for *.jsonl changes (ctrl-c to stop)\n", dir)

	for {
		select {
		case <-sigCh:
			return
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !isJSONL(ev.Name) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				st, ok := states[ev.Name]
				if !ok {
					st = &tailState{}
					states[ev.Name] = st
				}
				ingestNew(s, cfg.LabelSize, cfg.Dimensions, ev.Name, st, log)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Warn("watcher error: %v", err)
		}
	}
}

func isJSONL(name string) bool {
	return strings.HasSuffix(name, ".jsonl")
}

// ingestNew reads any bytes appended to path since st.offset, one line
// at a time, and appends each successfully parsed record to s. A line
// that fails to parse or encode is skipped with a warning, matching
// add's per-record policy.
func ingestNew(s *store.Store, l, d int, path string, st *tailState, log interface {
	Warn(format string, args ...interface{})
}) {
	f, err := os.Open(path)
	if err != nil {
		log.Warn("open %s: %v", path, err)
		return
	}
	defer f.Close()

	if _, err := f.Seek(st.offset, io.SeekStart); err != nil {
		log.Warn("seek %s: %v", path, err)
		return
	}

	reader := bufio.NewReader(f)
	for {
		line, err := reader.ReadBytes('\n')
		if len(line) > 0 && err == nil {
			st.offset += int64(len(line))
			ingestLine(s, l, d, line, log)
			continue
		}
		if len(line) > 0 && err == io.EOF {
			// Partial trailing line: wait for it to be completed by a
			// later write rather than consuming it now.
			break
		}
		break
	}
}

func ingestLine(s *store.Store, l, d int, line []byte, log interface {
	Warn(format string, args ...interface{})
}) {
	trimmed := strings.TrimSpace(string(line))
	if trimmed == "" {
		return
	}

	var wr wireRecord
	if err := json.Unmarshal([]byte(trimmed), &wr); err != nil {
		log.Warn("skipping unparseable line: %v", err)
		return
	}
	buf, err := record.Encode(record.Record{Label: wr.Label, Vector: wr.Vector}, l, d)
	if err != nil {
		log.Warn("skipping record: %v", err)
		return
	}
	if err := s.Append(buf); err != nil {
		log.Warn("append failed: %v", err)
	}
}
