package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/tabprep/internal/analysis"
	"github.com/KaramelBytes/tabprep/internal/console"
	"github.com/KaramelBytes/tabprep/internal/export"
	"github.com/KaramelBytes/tabprep/internal/pipeline"
)

var interactiveCmd = &cobra.Command{
	Use:     "interactive [source]",
	Aliases: []string{"menu"},
	Short:   "Walk through the pipeline from a numbered menu",
	Long: `Interactive shows the main menu and asks for every choice. When [source] is
given it is loaded before the menu appears.`,
	Args: cobra.MaximumNArgs(1),
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
		f, err := export.ParseFormat(c.ExportFormat)
		if err != nil {
			return err
		}
		copt := console.Options{
			Source: opt,
			Export: export.Options{Format: f, Dir: c.ExportDir},
			Views:  analysis.Options{Bins: c.HistogramBins, Rows: c.SampleRows},
			Sample: c.SampleRows,
		}
		if len(args) == 1 {
			copt.Preload = args[0]
		}
		con := console.New(cmd.InOrStdin(), cmd.OutOrStdout(), copt, log)
		ctrl := pipeline.NewController(con.Collaborators(), log)

		if len(args) == 1 {
			res, err := ctrl.Run(cmd.Context(), pipeline.OpLoad)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ %s\n", res.Summary)
		}
		return con.Run(cmd.Context(), ctrl)
	},
}

func init() {
	rootCmd.AddCommand(interactiveCmd)
	addSourceFlags(interactiveCmd)
}
