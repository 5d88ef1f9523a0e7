package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/mjhoffman/profrag/pkg/core"
	"github.com/mjhoffman/profrag/pkg/filter"
	"github.com/mjhoffman/profrag/pkg/fragment"
	"github.com/mjhoffman/profrag/pkg/matcher"
	"github.com/mjhoffman/profrag/pkg/proforma"
	"github.com/mjhoffman/profrag/pkg/reader/mgf"
)

var (
	spectraFile   string
	toleranceStr  string
	titleFilter   string
	topN          int
	cutoffPercent float64
	minMZ, maxMZ  float64
	showPeaks     bool
)

var annotateCmd = &cobra.Command{
	Use:   "annotate <proforma>",
	Short: "Match theoretical fragments against observed spectra",
	Long: `Generate theoretical fragments for a peptidoform and match them against
the spectra of an MGF file under a mass tolerance.

The tolerance is required and carries its unit: '10ppm' or '0.02da'.

Examples:
  profrag annotate --spectra run1.mgf --tolerance 10ppm 'EM[Oxidation]EVEESPEK/2'
  profrag annotate --spectra run1.mgf --tolerance 0.02da --top-n 150 --cutoff 1 PEPTIDE
  profrag annotate --spectra run1.mgf --tolerance 10ppm --peaks --title scan=101 PEPTIDE`,
	Args: cobra.ExactArgs(1),
	RunE: runAnnotate,
}

func init() {
	annotateCmd.Flags().StringVarP(&spectraFile, "spectra", "s", "", "MGF file with observed spectra (required)")
	annotateCmd.Flags().StringVarP(&toleranceStr, "tolerance", "t", "", "Match tolerance, e.g. 10ppm or 0.02da (required)")
	annotateCmd.Flags().StringVar(&titleFilter, "title", "", "Only annotate spectra whose title contains this substring")
	annotateCmd.Flags().IntVar(&topN, "top-n", 0, "Keep only the N most intense peaks (0 = no limit)")
	annotateCmd.Flags().Float64Var(&cutoffPercent, "cutoff", 0, "Intensity cutoff as % of base peak (0 = no cutoff)")
	annotateCmd.Flags().Float64Var(&minMZ, "min-mz", 0, "Drop peaks below this m/z")
	annotateCmd.Flags().Float64Var(&maxMZ, "max-mz", 0, "Drop peaks above this m/z")
	annotateCmd.Flags().BoolVar(&showPeaks, "peaks", false, "Print per-peak matches")

	annotateCmd.Flags().StringVarP(&modelFile, "model", "m", "", "Fragmentation model TOML file")
	annotateCmd.Flags().StringVar(&modelPreset, "preset", "", "Model preset: default, hcd, etd")

	annotateCmd.MarkFlagRequired("spectra")
	annotateCmd.MarkFlagRequired("tolerance")
}

func runAnnotate(cmd *cobra.Command, args []string) error {
	set, err := proforma.Parse(args[0])
	if err != nil {
		return err
	}
	tol, err := matcher.ParseTolerance(toleranceStr)
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
	log.Debug().Int("fragments", len(frags)).Str("tolerance", tol.String()).Msg("matching")

	in, err := os.Open(spectraFile)
	if err != nil {
		return fmt.Errorf("failed to open spectra file: %w", err)
	}
	defer in.Close()

	filterConfig := &filter.Config{
		TopN:            topN,
		IntensityCutoff: cutoffPercent,
		MinMZ:           minMZ,
		MaxMZ:           maxMZ,
	}

	r := mgf.NewReader(in, spectraFile)
	annotated := 0
	for r.Next() {
		spec := r.Spectrum()
		if titleFilter != "" && !strings.Contains(spec.Title, titleFilter) {
			continue
		}
		filter.RemoveZeroIntensityPeaks(spec)
		if err := filterConfig.Apply(spec); err != nil {
			return err
		}
		if err := spec.Validate(); err != nil {
			log.Warn().Str("title", spec.Title).Err(err).Msg("skipping invalid spectrum")
			continue
		}

		rep := matcher.Match(spec, frags, tol)
		printReport(spec, rep)
		annotated++
	}
	if err := r.Err(); err != nil {
		return fmt.Errorf("error reading spectra: %w", err)
	}
	if annotated == 0 {
		return fmt.Errorf("no spectra matched the selection")
	}
	return nil
}

func printReport(spec *core.Spectrum, rep *matcher.Report) {
	fmt.Printf("Spectrum: %s\n", spec.Title)
	total := len(rep.Matches) + len(rep.UnmatchedFragments)
	fmt.Printf("  matched %d of %d fragments (%.1f%%), %d peaks unexplained\n",
		len(rep.Matches), total, 100*rep.MatchedFraction(), len(rep.UnexplainedPeaks))
	fmt.Printf("  intensity explained: %.1f%%, mean |error|: %.2f ppm\n",
		100*(matcher.IntensityWeighted{}).Score(spec, rep), matcher.MeanAbsoluteErrorPPM(rep))

	if !showPeaks {
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "  ion\tm/z\terror (ppm)\tpeptidoform")
	for _, m := range rep.Matches {
		fmt.Fprintf(w, "  %s\t%.6f\t%+.2f\t%d\n",
			m.Fragment.Annotation(), m.Fragment.MZ(), m.ErrorPPM, m.Fragment.Peptidoform+1)
	}
	w.Flush()
}
