package analysis

import (
	"context"
	"fmt"
	"io"

	"github.com/KaramelBytes/tabprep/internal/pipeline"
	"github.com/KaramelBytes/tabprep/internal/prep"
	"github.com/KaramelBytes/tabprep/internal/table"
)

// View selects one rendering of the working table.
type View int

const (
	ViewSummary View = iota + 1
	ViewHistogram
	ViewScaling
	ViewCorrelation
	ViewBack
)

func (v View) String() string {
	switch v {
	case ViewSummary:
		return "statistical summary"
	case ViewHistogram:
		return "histograms"
	case ViewScaling:
		return "scaling comparison"
	case ViewCorrelation:
		return "correlation matrix"
	case ViewBack:
		return "back"
	}
	return fmt.Sprintf("view(%d)", int(v))
}

// Views lists the renderable views in menu order.
var Views = []View{ViewSummary, ViewHistogram, ViewScaling, ViewCorrelation}

// Options tunes rendering.
type Options struct {
	Bins int
	Rows int
}

// DefaultOptions returns reasonable rendering defaults.
func DefaultOptions() Options { return Options{Bins: DefaultBins, Rows: 10} }

// Columns returns the columns the views operate on: numeric features,
// binary columns and the target when it is numeric or boolean.
func Columns(t *table.Table, roles pipeline.Roles) []string {
	cls := prep.Classify(t, roles.Features, roles.Target)
	out := append([]string{}, cls.Numeric...)
	out = append(out, cls.Binary...)
	if c, ok := t.Column(roles.Target); ok && c.Type != table.TypeText {
		out = append(out, roles.Target)
	}
	return out
}

// Render produces the Markdown for v. ViewBack renders nothing.
func Render(t *table.Table, roles pipeline.Roles, v View, opt Options) (string, error) {
	cols := Columns(t, roles)
	r := &Report{Rows: t.Rows()}
	switch v {
	case ViewBack:
		return "", nil
	case ViewSummary:
		r = Summary(t, cols)
	case ViewHistogram:
		for _, n := range cols {
			if h, ok := NewHistogram(t, n, opt.Bins); ok {
				r.Histograms = append(r.Histograms, h)
			}
		}
	case ViewScaling:
		cls := prep.Classify(t, roles.Features, roles.Target)
		r.Scaled = CompareScaling(t, cls.Numeric, opt.Rows)
		if r.Scaled == nil {
			r.Warnings = append(r.Warnings, "no numeric feature columns to compare")
		}
	case ViewCorrelation:
		r.Corr = Correlation(t, cols)
		if r.Corr == nil {
			r.Warnings = append(r.Warnings, "correlation needs at least two numeric columns")
		}
	default:
		return "", fmt.Errorf("unknown view %d", int(v))
	}
	return r.Markdown(), nil
}

// Writer renders every view to Out. It satisfies pipeline.Visualizer for
// non-interactive runs.
type Writer struct {
	Out     io.Writer
	Options Options
}

func (w Writer) Visualize(_ context.Context, t *table.Table, roles pipeline.Roles) error {
	for _, v := range Views {
		md, err := Render(t, roles, v, w.Options)
		if err != nil {
			return err
		}
		if _, err := io.WriteString(w.Out, md+"\n"); err != nil {
			return fmt.Errorf("write %s: %w", v, err)
		}
	}
	return nil
}
