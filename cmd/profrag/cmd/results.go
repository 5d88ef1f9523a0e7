package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mjhoffman/profrag/pkg/reader/sage"
)

var resultsCmd = &cobra.Command{
	Use:   "results <tsv>",
	Short: "Summarize a Sage results file",
	Long: `Parse the peptide column of a Sage results file as ProForma and print
one line per peptide-spectrum match with the computed neutral mass.

Example:
  profrag results results.sage.tsv`,
	Args: cobra.ExactArgs(1),
	RunE: runResults,
}

func init() {
	rootCmd.AddCommand(resultsCmd)
}

func runResults(cmd *cobra.Command, args []string) error {
	in, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open results file: %w", err)
	}
	defer in.Close()

	r, err := sage.NewReader(in)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "peptide\tcharge\tneutral mass\tscore\tscan")
	count := 0
	for r.Next() {
		rec := r.Record()
		fmt.Fprintf(w, "%s\t%d\t%.6f\t%.4f\t%s\n",
			rec.Peptide, rec.Charge, rec.Set.NeutralMono(), rec.Score, rec.Scan)
		count++
	}
	if err := r.Err(); err != nil {
		return fmt.Errorf("error reading results: %w", err)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("%d records\n", count)
	return nil
}
