// Package analysis renders textual views of a working table: the dataset
// overview shown after loading, a statistical summary, histograms, a
// before/after scaling comparison and a correlation matrix.
package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/KaramelBytes/tabprep/internal/stats"
	"github.com/KaramelBytes/tabprep/internal/table"
)

// Report is a markdown-friendly view of a working table. Sections left
// empty are not rendered.
type Report struct {
	Name       string
	Rows       int
	Cols       []ColumnSummary
	Samples    [][]string
	Histograms []Histogram
	Scaled     *ScaleComparison
	Corr       *CorrMatrix
	Warnings   []string
}

// ColumnSummary captures type and statistics per column.
type ColumnSummary struct {
	Name    string
	Kind    string // number|bool|text
	NonNull int
	Missing int
	Unique  int
	// Numeric stats; booleans count as 0/1
	Mean   float64
	Median float64
	Std    float64
	Min    float64
	Max    float64
	// Text columns
	TopValues []ValueCount
}

// ValueCount is a category with its frequency.
type ValueCount struct {
	Value string
	Count int
}

// CorrMatrix holds pairwise Pearson correlations.
type CorrMatrix struct {
	Columns []string
	Values  [][]float64
}

// numbers returns the numeric view of a column, mapping booleans to 0/1.
// ok is false for text columns.
func numbers(c *table.Column) ([]float64, bool) {
	switch c.Type {
	case table.TypeNumber:
		return c.Floats(), true
	case table.TypeBool:
		out := make([]float64, c.Len())
		for i, v := range c.Values {
			b, ok := v.Truth()
			switch {
			case !ok:
				out[i] = math.NaN()
			case b:
				out[i] = 1
			}
		}
		return out, true
	}
	return nil, false
}

func summarize(c *table.Column, top int) ColumnSummary {
	s := ColumnSummary{Name: c.Name, Kind: c.Type.String()}
	s.Missing = c.NullCount()
	s.NonNull = c.Len() - s.Missing
	counts := map[string]int{}
	for _, v := range c.Values {
		if !v.IsNull() {
			counts[v.String()]++
		}
	}
	s.Unique = len(counts)
	if xs, ok := numbers(c); ok {
		s.Mean = stats.Mean(xs)
		s.Median = stats.Median(xs)
		s.Std = stats.StdDev(xs)
		s.Min, s.Max = stats.MinMax(xs)
		return s
	}
	for v, n := range counts {
		s.TopValues = append(s.TopValues, ValueCount{Value: v, Count: n})
	}
	sort.Slice(s.TopValues, func(i, j int) bool {
		if s.TopValues[i].Count == s.TopValues[j].Count {
			return s.TopValues[i].Value < s.TopValues[j].Value
		}
		return s.TopValues[i].Count > s.TopValues[j].Count
	})
	if len(s.TopValues) > top {
		s.TopValues = s.TopValues[:top]
	}
	return s
}

// Describe builds the dataset overview: schema, per-column statistics and the
// first sampleRows rows.
func Describe(t *table.Table, name string, sampleRows int) *Report {
	r := &Report{Name: name, Rows: t.Rows()}
	for _, c := range t.Columns() {
		r.Cols = append(r.Cols, summarize(c, 5))
	}
	head := t.Head(sampleRows)
	for i := 0; i < head.Rows(); i++ {
		row := head.Row(i)
		cells := make([]string, len(row))
		for j, v := range row {
			if v.IsNull() {
				cells[j] = "NaN"
			} else {
				cells[j] = v.String()
			}
		}
		r.Samples = append(r.Samples, cells)
	}
	return r
}

// Summary builds statistics for the named numeric or boolean columns. Other
// columns are reported as warnings.
func Summary(t *table.Table, columns []string) *Report {
	r := &Report{Rows: t.Rows()}
	for _, n := range columns {
		c, ok := t.Column(n)
		if !ok {
			r.Warnings = append(r.Warnings, fmt.Sprintf("column %q not in table", n))
			continue
		}
		if _, ok := numbers(c); !ok {
			r.Warnings = append(r.Warnings, fmt.Sprintf("column %q is not numeric", n))
			continue
		}
		r.Cols = append(r.Cols, summarize(c, 0))
	}
	return r
}

// Correlation computes the Pearson matrix of the numeric or boolean columns
// among names. It returns nil when fewer than two qualify.
func Correlation(t *table.Table, names []string) *CorrMatrix {
	var cols []string
	var data [][]float64
	for _, n := range names {
		c, ok := t.Column(n)
		if !ok {
			continue
		}
		if xs, ok := numbers(c); ok {
			cols = append(cols, n)
			data = append(data, xs)
		}
	}
	if len(cols) < 2 {
		return nil
	}
	m := &CorrMatrix{Columns: cols, Values: make([][]float64, len(cols))}
	for i := range cols {
		m.Values[i] = make([]float64, len(cols))
		for j := range cols {
			if i == j {
				m.Values[i][j] = 1
				continue
			}
			m.Values[i][j] = stats.Pearson(data[i], data[j])
		}
	}
	return m
}

// Markdown renders the report with bracketed section headers.
func (r *Report) Markdown() string {
	var b strings.Builder
	if r.Name != "" || len(r.Samples) > 0 {
		b.WriteString("[DATASET]\n")
		if r.Name != "" {
			b.WriteString(fmt.Sprintf("Source: %s\n", r.Name))
		}
		b.WriteString(fmt.Sprintf("Rows: %d\nColumns: %d\n\n", r.Rows, len(r.Cols)))
	}
	if len(r.Cols) > 0 {
		b.WriteString("[SCHEMA]\n")
		for _, c := range r.Cols {
			total := c.NonNull + c.Missing
			missPct := 0.0
			if total > 0 {
				missPct = float64(c.Missing) * 100.0 / float64(total)
			}
			b.WriteString(fmt.Sprintf("- %s: %s (non-null %d, missing %.1f%%, unique %d)", safeName(c.Name), c.Kind, c.NonNull, missPct, c.Unique))
			if c.Kind != "text" && c.NonNull > 0 {
				b.WriteString(fmt.Sprintf(": mean %.4g, median %.4g, std %s, min %.4g, max %.4g", c.Mean, c.Median, fmtStat(c.Std), c.Min, c.Max))
			}
			if len(c.TopValues) > 0 {
				b.WriteString(": top ")
				for i, kv := range c.TopValues {
					if i > 0 {
						b.WriteString(", ")
					}
					b.WriteString(fmt.Sprintf("%s(%d)", safeVal(kv.Value), kv.Count))
				}
			}
			b.WriteString("\n")
		}
	}
	for _, h := range r.Histograms {
		b.WriteString("\n")
		b.WriteString(h.Markdown())
	}
	if r.Scaled != nil {
		b.WriteString("\n")
		b.WriteString(r.Scaled.Markdown())
	}
	if r.Corr != nil {
		b.WriteString("\n")
		b.WriteString(r.Corr.Markdown())
	}
	if len(r.Samples) > 0 {
		b.WriteString("\n[HEAD]\n")
		names := make([]string, len(r.Cols))
		for i, c := range r.Cols {
			names[i] = safeName(c.Name)
		}
		writeRow(&b, names)
		sep := make([]string, len(r.Cols))
		for i := range sep {
			sep[i] = "---"
		}
		writeRow(&b, sep)
		for _, row := range r.Samples {
			cells := make([]string, len(r.Cols))
			for i := range cells {
				if i < len(row) {
					v := row[i]
					if len(v) > 40 {
						v = v[:37] + "..."
					}
					cells[i] = safeVal(v)
				}
			}
			writeRow(&b, cells)
		}
	}
	if len(r.Warnings) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, w := range r.Warnings {
			b.WriteString("- ")
			b.WriteString(w)
			b.WriteString("\n")
		}
	}
	return b.String()
}

// Markdown renders the matrix as a table.
func (m *CorrMatrix) Markdown() string {
	var b strings.Builder
	b.WriteString("[CORRELATIONS]\n")
	writeRow(&b, append([]string{""}, m.Columns...))
	sep := make([]string, len(m.Columns)+1)
	for i := range sep {
		sep[i] = "---"
	}
	writeRow(&b, sep)
	for i, name := range m.Columns {
		cells := []string{name}
		for j := range m.Columns {
			cells = append(cells, fmtStat(m.Values[i][j]))
		}
		writeRow(&b, cells)
	}
	return b.String()
}

func writeRow(b *strings.Builder, cells []string) {
	b.WriteString("| ")
	b.WriteString(strings.Join(cells, " | "))
	b.WriteString(" |\n")
}

func fmtStat(x float64) string {
	if math.IsNaN(x) {
		return "n/a"
	}
	return fmt.Sprintf("%.3f", x)
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
