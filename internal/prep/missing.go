package prep

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/KaramelBytes/tabprep/internal/stats"
	"github.com/KaramelBytes/tabprep/internal/table"
)

// MissingKind selects how missing values are resolved.
type MissingKind uint8

const (
	MissingCancel MissingKind = iota
	MissingDrop
	MissingMean
	MissingMedian
	MissingMode
	MissingConstant
)

// MissingStrategy is a missing-value strategy. Constant is only meaningful
// for MissingConstant.
type MissingStrategy struct {
	Kind     MissingKind
	Constant float64
}

// FillConstant returns the strategy that fills every null with v.
func FillConstant(v float64) MissingStrategy {
	return MissingStrategy{Kind: MissingConstant, Constant: v}
}

func (s MissingStrategy) String() string {
	switch s.Kind {
	case MissingDrop:
		return "drop"
	case MissingMean:
		return "mean"
	case MissingMedian:
		return "median"
	case MissingMode:
		return "mode"
	case MissingConstant:
		return "constant(" + table.FormatNumber(s.Constant) + ")"
	default:
		return "cancel"
	}
}

// ParseConstant parses a user-entered fill constant.
func ParseConstant(s string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidConstant, s)
	}
	return f, nil
}

// ParseMissingStrategy maps a configuration name onto a strategy. constant is
// only parsed for "constant". An empty name selects drop.
func ParseMissingStrategy(name, constant string) (MissingStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "drop":
		return MissingStrategy{Kind: MissingDrop}, nil
	case "mean":
		return MissingStrategy{Kind: MissingMean}, nil
	case "median":
		return MissingStrategy{Kind: MissingMedian}, nil
	case "mode":
		return MissingStrategy{Kind: MissingMode}, nil
	case "constant":
		v, err := ParseConstant(constant)
		if err != nil {
			return MissingStrategy{}, err
		}
		return FillConstant(v), nil
	case "cancel":
		return MissingStrategy{}, nil
	}
	return MissingStrategy{}, fmt.Errorf("%w: missing=%q", ErrUnknownStrategy, name)
}

// MissingCount is the number of nulls in one selected column.
type MissingCount struct {
	Column string
	Nulls  int
}

// Selected returns the present features followed by the target, if present.
func Selected(t *table.Table, features []string, target string) []string {
	out := Present(t, features)
	if target != "" && t.Has(target) {
		for _, f := range out {
			if f == target {
				return out
			}
		}
		out = append(out, target)
	}
	return out
}

// CountMissing reports the null count of every selected column in selection
// order.
func CountMissing(t *table.Table, features []string, target string) []MissingCount {
	sel := Selected(t, features, target)
	out := make([]MissingCount, 0, len(sel))
	for _, name := range sel {
		col, _ := t.Column(name)
		out = append(out, MissingCount{Column: name, Nulls: col.NullCount()})
	}
	return out
}

// TotalMissing sums the counts.
func TotalMissing(counts []MissingCount) int {
	n := 0
	for _, c := range counts {
		n += c.Nulls
	}
	return n
}

// HandleMissing resolves nulls in the selected columns using s.
func HandleMissing(t *table.Table, features []string, target string, s MissingStrategy) (Outcome, error) {
	counts := CountMissing(t, features, target)
	if TotalMissing(counts) == 0 {
		return unchanged(t, "no missing values"), nil
	}
	if s.Kind == MissingCancel {
		return cancelled(t)
	}

	out := t.Clone()
	o := Outcome{Table: out, Changed: true}
	switch s.Kind {
	case MissingDrop:
		drop := map[int]struct{}{}
		for _, c := range counts {
			col, _ := out.Column(c.Column)
			for i, v := range col.Values {
				if v.IsNull() {
					drop[i] = struct{}{}
				}
			}
		}
		n := out.DropRows(drop)
		o.Summary = fmt.Sprintf("removed %d rows with missing values", n)

	case MissingMean, MissingMedian:
		filled := 0
		for _, c := range counts {
			if c.Nulls == 0 {
				continue
			}
			col, _ := out.Column(c.Column)
			if col.Type != table.TypeNumber {
				warnf(&o, "column %q is not numeric, %s fill skipped", c.Column, s)
				continue
			}
			var fill float64
			if s.Kind == MissingMean {
				fill = stats.Mean(col.Floats())
			} else {
				fill = stats.Median(col.Floats())
			}
			if math.IsNaN(fill) {
				warnf(&o, "column %q has no values, %s fill skipped", c.Column, s)
				continue
			}
			filled += fillNulls(col, table.Number(fill))
		}
		o.Summary = fmt.Sprintf("filled %d missing values with %s", filled, s)

	case MissingMode:
		filled := 0
		for _, c := range counts {
			if c.Nulls == 0 {
				continue
			}
			col, _ := out.Column(c.Column)
			m, ok := Mode(col)
			if !ok {
				return failed(t, fmt.Errorf("mode fill %q: %w", c.Column, ErrNoValues))
			}
			filled += fillNulls(col, m)
		}
		o.Summary = fmt.Sprintf("filled %d missing values with mode", filled)

	case MissingConstant:
		filled := 0
		for _, c := range counts {
			col, _ := out.Column(c.Column)
			filled += fillNulls(col, table.Number(s.Constant))
		}
		o.Summary = fmt.Sprintf("filled %d missing values with %s", filled, table.FormatNumber(s.Constant))

	default:
		return failed(t, fmt.Errorf("%w: missing kind %d", ErrUnknownStrategy, s.Kind))
	}
	return o, nil
}

// Mode returns the most frequent non-null cell of col. Ties go to the value
// that sorts first.
func Mode(col *table.Column) (table.Value, bool) {
	counts := map[string]int{}
	vals := map[string]table.Value{}
	for _, v := range col.Values {
		if v.IsNull() {
			continue
		}
		k := v.Key()
		counts[k]++
		vals[k] = v
	}
	if len(counts) == 0 {
		return table.Null(), false
	}
	keys := make([]string, 0, len(vals))
	for k := range vals {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if counts[a] != counts[b] {
			return counts[a] > counts[b]
		}
		return table.Compare(vals[a], vals[b]) < 0
	})
	return vals[keys[0]], true
}

func fillNulls(col *table.Column, v table.Value) int {
	n := 0
	for i := range col.Values {
		if col.Values[i].IsNull() {
			col.Values[i] = v
			n++
		}
	}
	if n > 0 {
		col.Retype()
	}
	return n
}
