// Package cmd implements the vekta CLI: add, list, search, config and
// watch subcommands over the embedded vector store.
package cmd

import (
	"fmt"
	"os"

	"github.com/diffsec/vekta/internal/config"
	"github.com/diffsec/vekta/internal/diagnostics"
	"github.com/spf13/cobra"
)

// Exit codes, per spec: 0 success, 1 config error, 2 input parse
// error, 3 I/O error.
const (
	exitOK          = 0
	exitConfigError = 1
	exitParseError  = 2
	exitIOError     = 3
)

var (
	configPath  string
	verboseFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "vekta",
	Short: "Embedded vector database with exact and ANN cosine search",
	Long: `vekta persists labeled fixed-dimension float vectors in a packed
binary file and answers nearest-neighbor queries under cosine similarity.

Two retrieval modes are available: an exact scan over every stored
vector, and a randomized locality-sensitive-hashing approximation
built from random hyperplane projections.`,
	Version: "1.0.0",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.yaml (default ~/.vekta/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "verbose diagnostic output")
}

// Execute runs the root command, exiting the process with the
// appropriate exit code on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitConfigError)
	}
}

// loadConfig resolves the configuration and applies the --verbose
// override, exiting with exitConfigError on any validation failure.
func loadConfig() *config.Config {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(exitConfigError)
	}
	if verboseFlag {
		cfg.Verbose = true
	}
	return cfg
}

func newLogger(cfg *config.Config) diagnostics.Logger {
	return diagnostics.New(cfg.Verbose)
}

func exitWith(code int, format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(code)
}
