package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/mjhoffman/profrag/pkg/germline"
)

var germlineDB string

var germlineCmd = &cobra.Command{
	Use:   "germline",
	Short: "Manage the germline sequence database",
}

var germlineImportCmd = &cobra.Command{
	Use:   "import <tsv>",
	Short: "Import germline sequences from a TSV file",
	Long: `Import germline sequences from a tab-separated file with three columns:
species, gene, sequence (ProForma). Existing entries are replaced.

Example:
  profrag germline import imgt_human.tsv --db germline.db`,
	Args: cobra.ExactArgs(1),
	RunE: runGermlineImport,
}

var germlineLookupCmd = &cobra.Command{
	Use:   "lookup <species> <gene>",
	Short: "Look up a germline sequence",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := germline.Open(germlineDB)
		if err != nil {
			return err
		}
		defer store.Close()
		seq, ok := store.Lookup(args[0], args[1])
		if !ok {
			return fmt.Errorf("germline %s/%s not found", args[0], args[1])
		}
		fmt.Println(seq)
		return nil
	},
}

var germlineListCmd = &cobra.Command{
	Use:   "list [species]",
	Short: "List stored species, or the genes of one species",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := germline.Open(germlineDB)
		if err != nil {
			return err
		}
		defer store.Close()
		var names []string
		if len(args) == 0 {
			names, err = store.Species()
		} else {
			names, err = store.Genes(args[0])
		}
		if err != nil {
			return err
		}
		for _, n := range names {
			fmt.Println(n)
		}
		return nil
	},
}

func init() {
	germlineCmd.PersistentFlags().StringVar(&germlineDB, "db", "germline.db", "Germline database file")
	germlineCmd.AddCommand(germlineImportCmd)
	germlineCmd.AddCommand(germlineLookupCmd)
	germlineCmd.AddCommand(germlineListCmd)
}

func runGermlineImport(cmd *cobra.Command, args []string) error {
	in, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer in.Close()

	store, err := germline.Open(germlineDB)
	if err != nil {
		return err
	}
	defer store.Close()

	scanner := bufio.NewScanner(in)
	lineNum := 0
	count := 0
	skipped := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != 3 {
			return fmt.Errorf("line %d: expected 3 fields (species, gene, sequence), got %d", lineNum, len(fields))
		}
		if err := store.Add(fields[0], fields[1], fields[2]); err != nil {
			log.Warn().Int("line", lineNum).Err(err).Msg("skipping entry")
			skipped++
			continue
		}
		count++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading input: %w", err)
	}

	fmt.Printf("Imported %d sequences", count)
	if skipped > 0 {
		fmt.Printf(" (%d skipped)", skipped)
	}
	fmt.Println()
	return nil
}
