package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/mjhoffman/profrag/pkg/fragment"
	"github.com/mjhoffman/profrag/pkg/proforma"
)

var (
	modelFile   string
	modelPreset string
	maxCharge   int
	precursor   bool
)

var fragmentCmd = &cobra.Command{
	Use:   "fragment <proforma>",
	Short: "Generate theoretical fragments for a peptidoform",
	Long: `Generate the theoretical fragment ions of a ProForma peptidoform under
a fragmentation model and print them as a table.

Examples:
  # b/y ions up to charge 2 (default model)
  profrag fragment 'EM[Oxidation]EVEESPEK/2'

  # ETD preset (c/z ions with w satellites)
  profrag fragment --preset etd PEPTIDE

  # Custom model from a TOML file
  profrag fragment --model hcd_losses.toml 'PEN[Glycan:HexNAc2Hex3]TIDE'`,
	Args: cobra.ExactArgs(1),
	RunE: runFragment,
}

func init() {
	fragmentCmd.Flags().StringVarP(&modelFile, "model", "m", "", "Fragmentation model TOML file")
	fragmentCmd.Flags().StringVar(&modelPreset, "preset", "", "Model preset: default, hcd, etd")
	fragmentCmd.Flags().IntVar(&maxCharge, "max-charge", 0, "Override the model's maximum fragment charge")
	fragmentCmd.Flags().BoolVar(&precursor, "precursor", false, "Include the precursor ion")
}

// loadConfiguredModel resolves --model/--preset plus overrides into a model.
func loadConfiguredModel() (fragment.Model, error) {
	var m fragment.Model
	switch {
	case modelFile != "":
		loaded, err := fragment.LoadModel(modelFile)
		if err != nil {
			return fragment.Model{}, err
		}
		m = loaded
	case modelPreset != "":
		switch strings.ToLower(modelPreset) {
		case "default":
			m = fragment.Default()
		case "hcd":
			m = fragment.HCD()
		case "etd":
			m = fragment.ETD()
		default:
			return fragment.Model{}, fmt.Errorf("unknown preset %q, must be default, hcd, or etd", modelPreset)
		}
	default:
		m = fragment.Default()
	}
	if maxCharge > 0 {
		m.MaxCharge = maxCharge
	}
	if precursor {
		m.Precursor = true
	}
	return m, nil
}

func runFragment(cmd *cobra.Command, args []string) error {
	set, err := proforma.Parse(args[0])
	if err != nil {
		return err
	}
	model, err := loadConfiguredModel()
	if err != nil {
		return err
	}
	frags, err := fragment.Generate(set, model)
	if err != nil {
		return err
	}
	log.Debug().Int("fragments", len(frags)).Msg("generation complete")

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ion\tm/z\tneutral\tcharge\tpeptidoform\tplacement")
	for _, f := range frags {
		placement := f.Placement
		if placement == "" {
			placement = "-"
		}
		fmt.Fprintf(w, "%s\t%.6f\t%.6f\t%d\t%d\t%s\n",
			f.Annotation(), f.MZ(), f.MonoMass, f.Charge, f.Peptidoform+1, placement)
	}
	return w.Flush()
}
