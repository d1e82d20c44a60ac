package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/tabprep/internal/analysis"
	"github.com/KaramelBytes/tabprep/internal/source"
	"github.com/KaramelBytes/tabprep/internal/utils"
)

var (
	inspectParts  bool
	inspectOutput string
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <source>",
	Short: "Describe a table: shape, column types and a sample of rows",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := settings()
		if err != nil {
			return err
		}
		location := args[0]
		out := cmd.OutOrStdout()
		if inspectParts {
			parts, err := source.Parts(cmd.Context(), location)
			if err != nil {
				return err
			}
			if len(parts) == 0 {
				fmt.Fprintln(out, "(single table)")
			}
			for i, p := range parts {
				fmt.Fprintf(out, "[%d] %s\n", i+1, p)
			}
			return nil
		}
		opt, err := sourceOptions(c)
		if err != nil {
			return err
		}
		t, src, err := source.Open(cmd.Context(), location, opt)
		if err != nil {
			return err
		}
		md := analysis.Describe(t, src.String(), c.SampleRows).Markdown()
		if inspectOutput == "" {
			fmt.Fprint(out, md)
			return nil
		}
		if err := utils.EnsureDir(filepath.Dir(inspectOutput)); err != nil {
			return err
		}
		if err := utils.SafeWriteFile(inspectOutput, []byte(md)); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		fmt.Fprintf(out, "✓ Report written to %s\n", inspectOutput)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	addSourceFlags(inspectCmd)
	inspectCmd.Flags().BoolVar(&inspectParts, "list", false, "list the sheets or tables instead of describing one")
	inspectCmd.Flags().StringVarP(&inspectOutput, "output", "o", "", "write the report to a file instead of stdout")
}
