package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mjhoffman/profrag/pkg/proforma"
)

var parseCanonical bool

var parseCmd = &cobra.Command{
	Use:   "parse <proforma>",
	Short: "Parse a ProForma peptidoform and print its properties",
	Long: `Parse a ProForma 2.0 peptidoform and print sequence, modifications,
neutral mass, and charge for every member of the set.

Examples:
  profrag parse 'EM[Oxidation]EVEES[Phospho]PEK/2'
  profrag parse 'PEK[XL:DSS#XL1]TIDE//AK[#XL1]A'
  profrag parse --canonical 'PES[+79.966331]K'`,
	Args: cobra.ExactArgs(1),
	RunE: runParse,
}

func init() {
	parseCmd.Flags().BoolVar(&parseCanonical, "canonical", false, "Print the canonical serialized form only")
}

func runParse(cmd *cobra.Command, args []string) error {
	set, err := proforma.Parse(args[0])
	if err != nil {
		return err
	}
	if parseCanonical {
		fmt.Println(proforma.Serialize(set))
		return nil
	}

	for i, pf := range set.Peptidoforms {
		if len(set.Peptidoforms) > 1 {
			fmt.Printf("Peptidoform %d:\n", i+1)
		}
		fmt.Printf("Sequence:        %s\n", pf.Sequence())
		fmt.Printf("Residues:        %d\n", pf.ResidueCount())
		fmt.Printf("Monoisotopic:    %.6f Da\n", pf.NeutralMono())
		fmt.Printf("Average:         %.4f Da\n", pf.NeutralAvg())
		if z := pf.TotalCharge(); z != 0 {
			fmt.Printf("Charge:          %+d\n", z)
		}
		for pos := 0; pos < pf.ResidueCount(); pos++ {
			for _, m := range pf.ModificationsAt(pos) {
				fmt.Printf("  %c%d  %s (%+.6f)\n", pf.Residues[pos].AminoAcid, pos+1, proforma.FormatModification(m), m.Mono)
			}
		}
		for _, m := range pf.NTerm {
			fmt.Printf("  N-term  %s (%+.6f)\n", proforma.FormatModification(m), m.Mono)
		}
		for _, m := range pf.CTerm {
			fmt.Printf("  C-term  %s (%+.6f)\n", proforma.FormatModification(m), m.Mono)
		}
		for _, g := range pf.Ambiguous {
			if g.Unknown {
				fmt.Printf("  unknown position  %s (%+.6f)\n", proforma.FormatModification(g.Modification), g.Modification.Mono)
				continue
			}
			fmt.Printf("  ambiguous %s  %s over %d positions\n", g.ID, proforma.FormatModification(g.Modification), len(g.Positions))
		}
	}
	for _, xl := range set.CrossLinks {
		kind := "inter"
		if xl.Intra() {
			kind = "intra"
		}
		fmt.Printf("Cross-link %s (%s): %s (%+.6f)\n", xl.Name, kind, xl.Linker.Name, xl.Linker.Mono)
	}
	if len(set.Peptidoforms) > 1 || len(set.CrossLinks) > 0 {
		fmt.Printf("Set neutral mass: %.6f Da\n", set.NeutralMono())
	}
	return nil
}
