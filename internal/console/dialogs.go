package console

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/KaramelBytes/tabprep/internal/analysis"
	"github.com/KaramelBytes/tabprep/internal/export"
	"github.com/KaramelBytes/tabprep/internal/pipeline"
	"github.com/KaramelBytes/tabprep/internal/source"
	"github.com/KaramelBytes/tabprep/internal/table"
)

var sourceKinds = []struct {
	label  string
	kind   string
	prompt string
}{
	{"CSV / TSV", "csv", "Enter the file path: "},
	{"Excel (.xlsx)", "xlsx", "Enter the file path: "},
	{"SQLite", "sqlite", "Enter the SQLite database path: "},
	{"PostgreSQL", "postgres", "Enter the connection URL (postgres://...): "},
}

// Load asks for a source, lets the user pick a sheet or table when there
// are several, and prints an overview of what was read.
func (c *Console) Load(ctx context.Context) (*table.Table, pipeline.Source, error) {
	location := c.opt.Preload
	c.opt.Preload = ""
	opt := c.opt.Source
	if location == "" {
		c.banner("Load data")
		c.printf("Select the kind of source to load:\n")
		labels := make([]string, 0, len(sourceKinds)+1)
		for _, k := range sourceKinds {
			labels = append(labels, k.label)
		}
		n, err := c.choose(ctx, append(labels, "Back to the main menu"))
		if err != nil {
			return nil, pipeline.Source{}, err
		}
		if n == 0 || n > len(sourceKinds) {
			return nil, pipeline.Source{}, cancel()
		}
		want := sourceKinds[n-1]
		if location, err = c.ask(ctx, want.prompt); err != nil {
			return nil, pipeline.Source{}, err
		}
		kind, err := source.KindOf(location)
		if err != nil || kind != want.kind {
			return nil, pipeline.Source{}, fmt.Errorf("%q is not a %s source", location, want.label)
		}
		if kind != "postgres" {
			if _, err := os.Stat(location); err != nil {
				return nil, pipeline.Source{}, fmt.Errorf("file not found: %s", location)
			}
		}
		if opt, err = c.pickPart(ctx, location, kind, opt); err != nil {
			return nil, pipeline.Source{}, err
		}
	}
	t, src, err := source.Open(ctx, location, opt)
	if err != nil {
		return nil, src, err
	}
	c.printf("\n%s", analysis.Describe(t, src.String(), c.opt.Sample).Markdown())
	return t, src, nil
}

// pickPart lists the sheets or tables of location and asks for one when
// there are several. An invalid sheet choice falls back to the first sheet;
// an invalid table choice cancels.
func (c *Console) pickPart(ctx context.Context, location, kind string, opt source.Options) (source.Options, error) {
	parts, err := source.Parts(ctx, location)
	if err != nil {
		return opt, err
	}
	if len(parts) == 0 && (kind == "sqlite" || kind == "postgres") {
		return opt, fmt.Errorf("no tables found in %s", source.RedactDSN(location))
	}
	if len(parts) <= 1 {
		return opt, nil
	}
	what := "table"
	if kind == "xlsx" {
		what = "sheet"
	}
	c.printf("Available %ss:\n", what)
	for i, p := range parts {
		c.printf("  [%d] %s\n", i+1, p)
	}
	ans, err := c.ask(ctx, fmt.Sprintf("Select a %s: ", what))
	if err != nil {
		return opt, err
	}
	i, convErr := strconv.Atoi(ans)
	if convErr != nil || i < 1 || i > len(parts) {
		if kind != "xlsx" {
			c.printf("Invalid selection.\n")
			return opt, cancel()
		}
		c.printf("Invalid selection. Using the first sheet.\n")
		i = 1
	}
	opt.Part, opt.PartIndex = parts[i-1], 0
	return opt, nil
}

// SelectColumns asks for the feature columns, then the target. Entering the
// number one past the last column cancels.
func (c *Console) SelectColumns(ctx context.Context, t *table.Table) (pipeline.Roles, error) {
	names := t.Names()
	quit := strconv.Itoa(len(names) + 1)
	c.banner("Column selection")
	c.printf("Available columns:\n")
	for i, n := range names {
		c.printf("  [%d] %s (%s)\n", i+1, n, t.Columns()[i].Type)
	}
	c.printf("  [%s] Cancel\n", quit)

	var features []string
	for {
		ans, err := c.ask(ctx, "\nEnter the numbers of the input columns (features), separated by commas: ")
		if err != nil {
			return pipeline.Roles{}, err
		}
		if ans == quit {
			return pipeline.Roles{}, cancel()
		}
		idx, err := parseIndices(ans, len(names))
		if err != nil {
			c.printf("Error: %v\n", err)
			continue
		}
		features = features[:0]
		for _, i := range idx {
			features = append(features, names[i-1])
		}
		break
	}

	for {
		ans, err := c.ask(ctx, "\nEnter the number of the output column (target): ")
		if err != nil {
			return pipeline.Roles{}, err
		}
		if ans == quit {
			return pipeline.Roles{}, cancel()
		}
		i, convErr := strconv.Atoi(ans)
		if convErr != nil {
			c.printf("Error: enter a valid number.\n")
			continue
		}
		if i < 1 || i > len(names) {
			c.printf("Error: index out of range.\n")
			continue
		}
		target := names[i-1]
		if contains(features, target) || len(features) == 0 {
			c.printf("⚠ Error: select at least one feature and a single target that is not a feature.\n")
			continue
		}
		c.printf("\nSelection saved:\nFeatures = %s\nTarget = %s\n", strings.Join(features, ", "), target)
		return pipeline.Roles{Features: features, Target: target}, nil
	}
}

// parseIndices parses comma-separated 1-based indices. Repeated indices are
// kept once.
func parseIndices(s string, n int) ([]int, error) {
	var out []int
	seen := map[int]bool{}
	for _, f := range strings.Split(s, ",") {
		i, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, fmt.Errorf("enter valid numbers separated by commas")
		}
		if i < 1 || i > n {
			return nil, fmt.Errorf("one or more indices out of range")
		}
		if !seen[i] {
			seen[i] = true
			out = append(out, i)
		}
	}
	return out, nil
}

func contains(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}

// Visualize shows one view chosen from the visualization menu. Back returns
// without output; an invalid choice cancels.
func (c *Console) Visualize(ctx context.Context, t *table.Table, roles pipeline.Roles) error {
	c.banner("Data visualization")
	if len(analysis.Columns(t, roles)) == 0 {
		c.printf("None of the selected columns can be visualized.\n")
		return cancel()
	}
	labels := make([]string, 0, len(analysis.Views)+1)
	for _, v := range analysis.Views {
		labels = append(labels, capitalize(v.String()))
	}
	n, err := c.choose(ctx, append(labels, "Back to the main menu"))
	if err != nil {
		return err
	}
	if n == 0 {
		return cancel()
	}
	view := analysis.ViewBack
	if n <= len(analysis.Views) {
		view = analysis.Views[n-1]
	}
	md, err := analysis.Render(t, roles, view, c.opt.Views)
	if err != nil {
		return err
	}
	if md != "" {
		c.printf("\n%s", md)
	}
	return nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

var exportLabels = map[export.Format]string{
	export.FormatCSV:    "CSV (.csv)",
	export.FormatXLSX:   "Excel (.xlsx)",
	export.FormatSQLite: "SQLite (.db)",
}

// Export previews the table, asks for a format and a file name and writes
// both the file and its manifest.
func (c *Console) Export(ctx context.Context, s *pipeline.Session) (string, error) {
	c.banner("Export data")
	for _, w := range export.MissingRoles(s.Table, s.Roles) {
		c.printf("⚠ Warning: %s\n", w)
	}
	preview := s.Table.Head(c.opt.Sample)
	c.printf("\nData to export (first %d rows):\n", preview.Rows())
	c.printf("%s", analysis.Describe(preview, "", preview.Rows()).Markdown())
	c.printf("Total rows: %d, total columns: %d\n", s.Table.Rows(), s.Table.Width())

	c.printf("Select the export format:\n")
	labels := make([]string, 0, len(export.Formats)+1)
	for _, f := range export.Formats {
		labels = append(labels, exportLabels[f])
	}
	n, err := c.choose(ctx, append(labels, "Back to the main menu"))
	if err != nil {
		return "", err
	}
	if n == 0 || n > len(export.Formats) {
		return "", cancel()
	}
	name, err := c.ask(ctx, "Enter the output file name (without extension): ")
	if err != nil {
		return "", err
	}
	if name == "" {
		c.printf("Invalid file name.\n")
		return "", cancel()
	}
	opt := c.opt.Export
	opt.Format = export.Formats[n-1]
	opt.Name = name
	out, err := export.New(opt, c.log).Export(ctx, s)
	if err != nil {
		return "", err
	}
	c.printf("Data exported to %q.\n", out)
	return out, nil
}
