// Package cli implements the stixbridge command tree.
package cli

import (
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "stixbridge",
	Short: "MISP to STIX 2.0 translation service",
	Long: `stixbridge translates MISP event exports into STIX 2.0 bundles.

Run one-shot conversions of export files from the command line, or start
the HTTP service to convert on demand and feed downstream sinks.`,
	Version: "0.1.0",
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")
}
