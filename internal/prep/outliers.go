package prep

import (
	"fmt"
	"sort"
	"strings"

	"github.com/KaramelBytes/tabprep/internal/stats"
	"github.com/KaramelBytes/tabprep/internal/table"
)

// OutlierStrategy selects what happens to detected outliers.
type OutlierStrategy uint8

const (
	OutlierCancel OutlierStrategy = iota
	OutlierDrop
	OutlierMedian
	OutlierKeep
)

func (s OutlierStrategy) String() string {
	switch s {
	case OutlierDrop:
		return "drop"
	case OutlierMedian:
		return "median"
	case OutlierKeep:
		return "keep"
	default:
		return "cancel"
	}
}

// ParseOutlierStrategy maps a configuration name onto a strategy. An empty
// name selects drop.
func ParseOutlierStrategy(name string) (OutlierStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "drop":
		return OutlierDrop, nil
	case "median":
		return OutlierMedian, nil
	case "keep":
		return OutlierKeep, nil
	case "cancel":
		return OutlierCancel, nil
	}
	return OutlierCancel, fmt.Errorf("%w: outliers=%q", ErrUnknownStrategy, name)
}

// IQRFactor scales the interquartile range into the outlier fences.
const IQRFactor = 1.5

// ColumnOutliers lists the outlier rows found in one column.
type ColumnOutliers struct {
	Column string
	Binary bool
	// Numeric columns only.
	Lower, Upper, Median float64
	Rows                 []int
}

// OutlierReport is the result of outlier detection over a table.
type OutlierReport struct {
	Columns []ColumnOutliers
}

// Total counts outlier cells across all columns.
func (r OutlierReport) Total() int {
	n := 0
	for _, c := range r.Columns {
		n += len(c.Rows)
	}
	return n
}

// RowSet returns the union of outlier rows across all columns.
func (r OutlierReport) RowSet() map[int]struct{} {
	set := map[int]struct{}{}
	for _, c := range r.Columns {
		for _, i := range c.Rows {
			set[i] = struct{}{}
		}
	}
	return set
}

// DetectOutliers classifies t from its current schema and flags numeric
// values outside the IQR fences and binary cells outside the column's valid
// set. A null numeric cell is never an outlier; a null binary cell is, since
// it is not one of the two valid values.
func DetectOutliers(t *table.Table, features []string, target string) OutlierReport {
	cls := Classify(t, features, target)
	var r OutlierReport
	for _, name := range cls.Numeric {
		col, _ := t.Column(name)
		xs := col.Floats()
		if col.NullCount() == col.Len() {
			continue
		}
		q1, q3 := stats.Quartiles(xs)
		iqr := q3 - q1
		co := ColumnOutliers{
			Column: name,
			Lower:  q1 - IQRFactor*iqr,
			Upper:  q3 + IQRFactor*iqr,
			Median: stats.Median(xs),
		}
		for i, v := range col.Values {
			f, ok := v.Float()
			if ok && (f < co.Lower || f > co.Upper) {
				co.Rows = append(co.Rows, i)
			}
		}
		r.Columns = append(r.Columns, co)
	}
	for _, name := range cls.Binary {
		col, _ := t.Column(name)
		co := ColumnOutliers{Column: name, Binary: true}
		for i, v := range col.Values {
			if v.IsNull() || !validBinary(col.Type, v) {
				co.Rows = append(co.Rows, i)
			}
		}
		r.Columns = append(r.Columns, co)
	}
	return r
}

func validBinary(typ table.Type, v table.Value) bool {
	if typ == table.TypeBool {
		_, ok := v.Truth()
		return ok
	}
	_, ok := binaryInt(v)
	return ok
}

// HandleOutliers resolves the outliers listed in r using s. r must have been
// produced by DetectOutliers on t.
func HandleOutliers(t *table.Table, r OutlierReport, s OutlierStrategy) (Outcome, error) {
	if r.Total() == 0 {
		return unchanged(t, "no outliers found"), nil
	}
	switch s {
	case OutlierCancel:
		return cancelled(t)
	case OutlierKeep:
		return unchanged(t, fmt.Sprintf("kept %d outlier values", r.Total())), nil
	case OutlierDrop:
		out := t.Clone()
		n := out.DropRows(r.RowSet())
		return Outcome{Table: out, Changed: true, Summary: fmt.Sprintf("removed %d rows with outliers", n)}, nil
	case OutlierMedian:
		out := t.Clone()
		replaced := 0
		for _, co := range r.Columns {
			col, ok := out.Column(co.Column)
			if !ok {
				return failed(t, fmt.Errorf("replace outliers: column %q not in table", co.Column))
			}
			fill := table.Number(co.Median)
			if co.Binary {
				fill = table.Number(0)
				if col.Type == table.TypeBool {
					fill = table.Bool(false)
				}
			}
			for _, i := range co.Rows {
				col.Values[i] = fill
				replaced++
			}
			if len(co.Rows) > 0 {
				col.Retype()
			}
		}
		return Outcome{Table: out, Changed: true, Summary: fmt.Sprintf("replaced %d outlier values", replaced)}, nil
	}
	return failed(t, fmt.Errorf("%w: outliers %d", ErrUnknownStrategy, s))
}

// SortedRows returns the union of outlier rows in ascending order.
func (r OutlierReport) SortedRows() []int {
	set := r.RowSet()
	out := make([]int, 0, len(set))
	for i := range set {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}
