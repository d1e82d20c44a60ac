package prep

import "github.com/KaramelBytes/tabprep/internal/table"

// Classification partitions column names into the groups the numeric and
// binary aware stages work on. The three lists are disjoint.
type Classification struct {
	Numeric     []string
	Binary      []string
	Categorical []string
}

// Present filters names down to the columns t still holds, keeping order.
func Present(t *table.Table, names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if t.Has(n) {
			out = append(out, n)
		}
	}
	return out
}

// Classify derives the classification from the live schema of t.
//
// Numeric and categorical columns are taken from the present features.
// Binary columns are searched across every column of t so that indicator
// columns produced by one-hot encoding are found even though they were never
// part of the feature list.
func Classify(t *table.Table, features []string, target string) Classification {
	var c Classification
	numeric := map[string]bool{}
	for _, name := range Present(t, features) {
		col, _ := t.Column(name)
		switch col.Type {
		case table.TypeNumber:
			c.Numeric = append(c.Numeric, name)
			numeric[name] = true
		case table.TypeText:
			if name != target {
				c.Categorical = append(c.Categorical, name)
			}
		}
	}
	categorical := map[string]bool{}
	for _, name := range c.Categorical {
		categorical[name] = true
	}
	for _, col := range t.Columns() {
		if numeric[col.Name] || categorical[col.Name] || col.Name == target {
			continue
		}
		if IsBinary(col) {
			c.Binary = append(c.Binary, col.Name)
		}
	}
	return c
}

// IsBinary reports whether every non-null cell of col is one of 0, 1, false
// or true, and at least one such cell exists.
func IsBinary(col *table.Column) bool {
	seen := false
	for _, v := range col.Values {
		if v.IsNull() {
			continue
		}
		if _, ok := binaryInt(v); !ok {
			return false
		}
		seen = true
	}
	return seen
}

// binaryInt maps a cell onto 0 or 1, treating booleans and the numbers 0 and
// 1 as equal.
func binaryInt(v table.Value) (int, bool) {
	if b, ok := v.Truth(); ok {
		if b {
			return 1, true
		}
		return 0, true
	}
	if f, ok := v.Float(); ok {
		switch f {
		case 0:
			return 0, true
		case 1:
			return 1, true
		}
	}
	return 0, false
}
