package analysis

import (
	"fmt"
	"math"
	"strings"

	"github.com/KaramelBytes/tabprep/internal/stats"
	"github.com/KaramelBytes/tabprep/internal/table"
)

// DefaultBins is the histogram bin count used when none is configured.
const DefaultBins = 20

const barWidth = 40

// Histogram holds equal-width bin counts for one column.
type Histogram struct {
	Column string
	Edges  []float64 // len(Counts)+1
	Counts []int
}

// NewHistogram bins the non-null values of the named column. It returns
// false when the column is missing, not numeric or has no values.
func NewHistogram(t *table.Table, name string, bins int) (Histogram, bool) {
	c, ok := t.Column(name)
	if !ok {
		return Histogram{}, false
	}
	xs, ok := numbers(c)
	if !ok {
		return Histogram{}, false
	}
	lo, hi := stats.MinMax(xs)
	if math.IsNaN(lo) {
		return Histogram{}, false
	}
	if bins <= 0 {
		bins = DefaultBins
	}
	if lo == hi {
		bins = 1
	}
	h := Histogram{Column: name, Edges: make([]float64, bins+1), Counts: make([]int, bins)}
	width := (hi - lo) / float64(bins)
	for i := range h.Edges {
		h.Edges[i] = lo + width*float64(i)
	}
	h.Edges[bins] = hi
	for _, x := range xs {
		if math.IsNaN(x) {
			continue
		}
		i := bins - 1
		if width > 0 {
			i = int((x - lo) / width)
			if i >= bins {
				i = bins - 1
			}
		}
		h.Counts[i]++
	}
	return h, true
}

// Markdown renders the histogram as text bars.
func (h Histogram) Markdown() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("[HISTOGRAM %s]\n", h.Column))
	peak := 0
	for _, n := range h.Counts {
		if n > peak {
			peak = n
		}
	}
	for i, n := range h.Counts {
		bar := 0
		if peak > 0 {
			bar = int(math.Round(float64(n) / float64(peak) * barWidth))
		}
		b.WriteString(fmt.Sprintf("%10.4g .. %-10.4g | %-*s %d\n", h.Edges[i], h.Edges[i+1], barWidth, strings.Repeat("#", bar), n))
	}
	return b.String()
}

// ScaleComparison lists, for the first rows, each numeric column's value
// next to its min-max scaled counterpart.
type ScaleComparison struct {
	Columns []string
	Rows    []int
	Before  [][]float64 // [column][row]
	After   [][]float64
}

// CompareScaling builds a before/after min-max comparison of the named
// numeric columns over the first n rows.
func CompareScaling(t *table.Table, names []string, n int) *ScaleComparison {
	if n > t.Rows() {
		n = t.Rows()
	}
	sc := &ScaleComparison{}
	for i := 0; i < n; i++ {
		sc.Rows = append(sc.Rows, i)
	}
	for _, name := range names {
		c, ok := t.Column(name)
		if !ok {
			continue
		}
		xs, ok := numbers(c)
		if !ok {
			continue
		}
		lo, hi := stats.MinMax(xs)
		before := make([]float64, n)
		after := make([]float64, n)
		for i := 0; i < n; i++ {
			before[i] = xs[i]
			switch {
			case math.IsNaN(xs[i]):
				after[i] = math.NaN()
			case hi == lo:
				after[i] = 0
			default:
				after[i] = (xs[i] - lo) / (hi - lo)
			}
		}
		sc.Columns = append(sc.Columns, name)
		sc.Before = append(sc.Before, before)
		sc.After = append(sc.After, after)
	}
	if len(sc.Columns) == 0 {
		return nil
	}
	return sc
}

// Markdown renders the comparison as a table of index, value and scaled
// value per column.
func (sc *ScaleComparison) Markdown() string {
	var b strings.Builder
	b.WriteString("[SCALING COMPARISON]\n")
	head := []string{"index"}
	for _, c := range sc.Columns {
		head = append(head, c, c+" (scaled)")
	}
	writeRow(&b, head)
	sep := make([]string, len(head))
	for i := range sep {
		sep[i] = "---"
	}
	writeRow(&b, sep)
	for r, idx := range sc.Rows {
		cells := []string{fmt.Sprint(idx)}
		for c := range sc.Columns {
			cells = append(cells, fmtNum(sc.Before[c][r]), fmtStat(sc.After[c][r]))
		}
		writeRow(&b, cells)
	}
	return b.String()
}

func fmtNum(x float64) string {
	if math.IsNaN(x) {
		return "NaN"
	}
	return table.FormatNumber(x)
}
