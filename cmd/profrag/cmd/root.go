// Package cmd provides CLI command implementations
package cmd

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "profrag",
	Short: "profrag - peptidoform fragmentation and spectrum annotation",
	Long: `profrag parses ProForma peptidoform notation, generates theoretical
fragments under a configurable model, and annotates observed spectra.

Supported inputs:
- ProForma 2.0 peptidoforms (modifications, ambiguity, cross-links, chimeric sets)
- MGF peak lists
- Sage search results (TSV)`,
	Version: "1.0.0",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := zerolog.WarnLevel
		if verbose {
			level = zerolog.DebugLevel
		}
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
			Level(level).
			With().Timestamp().Logger()
	},
}

// Execute runs the root command. Errors are already reported by cobra.
func Execute() error {
	rootCmd.SilenceUsage = true
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(fragmentCmd)
	rootCmd.AddCommand(annotateCmd)
	rootCmd.AddCommand(germlineCmd)
}
