package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the resolved configuration",
	Long: `config resolves the configuration the same way every other command
does (environment, then ~/.vekta/config.yaml, then built-in defaults)
and prints it as key/value pairs.`,
	Run: runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	for _, kv := range cfg.AsKeyValues() {
		fmt.Printf("%s=%s\n", kv[0], kv[1])
	}
}
