package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/tabprep/internal/analysis"
	cfgpkg "github.com/KaramelBytes/tabprep/internal/config"
	"github.com/KaramelBytes/tabprep/internal/export"
	"github.com/KaramelBytes/tabprep/internal/pipeline"
	"github.com/KaramelBytes/tabprep/internal/prep"
	"github.com/KaramelBytes/tabprep/internal/source"
	"github.com/KaramelBytes/tabprep/internal/table"
)

var (
	// Source selection, shared by run, inspect and interactive
	srcDelimiter string
	srcPart      string
	srcPartIndex int

	runFeatures []string
	runTarget   string
	runMissing  string
	runFill     string
	runEncoding string
	runScaling  string
	runOutliers string
	runFormat   string
	runOutDir   string
	runName     string
	runTable    string
	runReport   bool
)

var runCmd = &cobra.Command{
	Use:   "run <source>",
	Short: "Run the whole pipeline without prompts",
	Long: `Run loads <source>, applies every preprocessing stage with the strategies
given by flags or configuration and exports the result. Strategies left unset
default to drop, onehot, minmax and drop.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := settings()
		if err != nil {
			return err
		}
		log, err := newLogger(cmd, c)
		if err != nil {
			return err
		}
		opt, err := sourceOptions(c)
		if err != nil {
			return err
		}
		preset, err := runPreset(cmd, c)
		if err != nil {
			return err
		}
		format := c.ExportFormat
		if cmd.Flags().Changed("format") {
			format = runFormat
		}
		f, err := export.ParseFormat(format)
		if err != nil {
			return err
		}
		dir := c.ExportDir
		if cmd.Flags().Changed("out") {
			dir = runOutDir
		}

		out := cmd.OutOrStdout()
		viz := analysis.Writer{Out: io.Discard, Options: analysis.Options{Bins: c.HistogramBins, Rows: c.SampleRows}}
		if runReport {
			viz.Out = out
		}
		location := args[0]
		ctrl := pipeline.NewController(pipeline.Collaborators{
			Loader: pipeline.LoaderFunc(func(ctx context.Context) (*table.Table, pipeline.Source, error) {
				return source.Open(ctx, location, opt)
			}),
			Selector:   preset,
			Decider:    preset,
			Visualizer: viz,
			Exporter:   export.New(export.Options{Format: f, Dir: dir, Name: runName, Table: runTable}, log),
		}, log)

		results, err := ctrl.RunAll(cmd.Context())
		for _, res := range results {
			if !res.Committed {
				continue
			}
			fmt.Fprintf(out, "✓ %s: %s\n", res.Op, res.Summary)
			for _, w := range res.Warnings {
				fmt.Fprintf(out, "⚠ %s\n", w)
			}
		}
		return err
	},
}

// sourceOptions merges the configured reading settings with the source
// flags.
func sourceOptions(c *cfgpkg.Global) (source.Options, error) {
	opt, err := c.SourceOptions()
	if err != nil {
		return opt, err
	}
	if srcDelimiter != "" {
		if opt.Delimiter, err = cfgpkg.Rune(srcDelimiter); err != nil {
			return opt, fmt.Errorf("invalid --delimiter: %w", err)
		}
	}
	opt.Part, opt.PartIndex = srcPart, srcPartIndex
	return opt, nil
}

// runPreset builds the fixed answers of a run from flags, falling back to
// configuration.
func runPreset(cmd *cobra.Command, c *cfgpkg.Global) (pipeline.Preset, error) {
	pick := func(flag, val, fallback string) string {
		if cmd.Flags().Changed(flag) {
			return val
		}
		return fallback
	}
	var (
		p   = pipeline.Preset{Roles: pipeline.Roles{Features: runFeatures, Target: runTarget}}
		err error
	)
	if p.Roles.Empty() {
		return p, fmt.Errorf("--features and --target are required")
	}
	if p.Missing, err = prep.ParseMissingStrategy(pick("missing", runMissing, c.MissingStrategy), pick("fill", runFill, c.FillConstant)); err != nil {
		return p, err
	}
	if p.Encoding, err = prep.ParseEncodingStrategy(pick("encoding", runEncoding, c.EncodingStrategy)); err != nil {
		return p, err
	}
	if p.Scaling, err = prep.ParseScalingStrategy(pick("scaling", runScaling, c.ScalingStrategy)); err != nil {
		return p, err
	}
	if p.Outliers, err = prep.ParseOutlierStrategy(pick("outliers", runOutliers, c.OutlierStrategy)); err != nil {
		return p, err
	}
	return p, nil
}

func addSourceFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&srcDelimiter, "delimiter", "", "field delimiter for delimited text (',', ';', 'tab'); sniffed when empty")
	cmd.Flags().StringVar(&srcPart, "part", "", "sheet or table name for workbooks and databases")
	cmd.Flags().IntVar(&srcPartIndex, "part-index", 0, "1-based sheet or table index when --part is empty")
}

func init() {
	rootCmd.AddCommand(runCmd)
	addSourceFlags(runCmd)
	runCmd.Flags().StringSliceVar(&runFeatures, "features", nil, "comma-separated feature columns")
	runCmd.Flags().StringVar(&runTarget, "target", "", "target column")
	runCmd.Flags().StringVar(&runMissing, "missing", "", "missing values: drop|mean|median|mode|constant")
	runCmd.Flags().StringVar(&runFill, "fill", "0", "fill value for --missing constant")
	runCmd.Flags().StringVar(&runEncoding, "encoding", "", "categorical encoding: onehot|label")
	runCmd.Flags().StringVar(&runScaling, "scaling", "", "scaling: minmax|zscore")
	runCmd.Flags().StringVar(&runOutliers, "outliers", "", "outliers: drop|median|keep")
	runCmd.Flags().StringVar(&runFormat, "format", "csv", "export format: csv|xlsx|sqlite")
	runCmd.Flags().StringVarP(&runOutDir, "out", "o", ".", "output directory")
	runCmd.Flags().StringVar(&runName, "name", "", "output file name without extension (default <source>_prepared)")
	runCmd.Flags().StringVar(&runTable, "table", "", "table name for SQLite exports (default data)")
	runCmd.Flags().BoolVar(&runReport, "report", false, "print every visualization before exporting")
}
