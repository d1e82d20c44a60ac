// Package table implements the in-memory working table the preprocessing
// pipeline passes between stages.
//
// A Table is an ordered set of equally long named columns. Stages treat the
// table they receive as read-only: they Clone it, transform the clone and
// hand the clone back, so a failed stage never leaks a partial change.
package table

import (
	"errors"
	"fmt"
	"math"
)

// Type is the declared type of a column.
type Type uint8

const (
	TypeNumber Type = iota + 1
	TypeBool
	TypeText
)

func (t Type) String() string {
	switch t {
	case TypeNumber:
		return "number"
	case TypeBool:
		return "bool"
	case TypeText:
		return "text"
	default:
		return "unknown"
	}
}

// Column is a named, typed sequence of cells.
type Column struct {
	Name   string
	Type   Type
	Values []Value
}

// NewColumn builds a column whose declared type is inferred from its cells.
func NewColumn(name string, values []Value) *Column {
	return &Column{Name: name, Type: InferType(values), Values: values}
}

// Numbers builds a numeric column; NaN entries become nulls.
func Numbers(name string, xs ...float64) *Column {
	vals := make([]Value, len(xs))
	for i, x := range xs {
		vals[i] = Number(x)
	}
	return &Column{Name: name, Type: TypeNumber, Values: vals}
}

// Texts builds a text column; empty strings become nulls.
func Texts(name string, xs ...string) *Column {
	vals := make([]Value, len(xs))
	for i, x := range xs {
		if x != "" {
			vals[i] = Text(x)
		}
	}
	return &Column{Name: name, Type: TypeText, Values: vals}
}

// Bools builds a boolean column.
func Bools(name string, xs ...bool) *Column {
	vals := make([]Value, len(xs))
	for i, x := range xs {
		vals[i] = Bool(x)
	}
	return &Column{Name: name, Type: TypeBool, Values: vals}
}

// InferType derives a declared type from cells: only numbers gives
// TypeNumber, only booleans gives TypeBool, anything else (including a mix)
// gives TypeText. A column with no non-null cell is numeric.
func InferType(values []Value) Type {
	var nums, bools, texts int
	for _, v := range values {
		switch v.Kind() {
		case KindNumber:
			nums++
		case KindBool:
			bools++
		case KindText:
			texts++
		}
	}
	switch {
	case texts == 0 && bools == 0:
		return TypeNumber
	case texts == 0 && nums == 0:
		return TypeBool
	default:
		return TypeText
	}
}

func (c *Column) Len() int { return len(c.Values) }

// Retype recomputes the declared type after cells were replaced. A column
// left without any non-null cell keeps its type.
func (c *Column) Retype() {
	if c.NullCount() == len(c.Values) {
		return
	}
	c.Type = InferType(c.Values)
}

// NullCount returns the number of missing cells.
func (c *Column) NullCount() int {
	n := 0
	for _, v := range c.Values {
		if v.IsNull() {
			n++
		}
	}
	return n
}

// Floats returns the numeric payload of every cell, NaN where the cell is
// not a number.
func (c *Column) Floats() []float64 {
	out := make([]float64, len(c.Values))
	for i, v := range c.Values {
		if f, ok := v.Float(); ok {
			out[i] = f
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}

// Clone deep-copies the column.
func (c *Column) Clone() *Column {
	vals := make([]Value, len(c.Values))
	copy(vals, c.Values)
	return &Column{Name: c.Name, Type: c.Type, Values: vals}
}

// Table is an ordered collection of equally long named columns.
type Table struct {
	cols  []*Column
	index map[string]int
	rows  int
}

var (
	ErrDuplicateColumn = errors.New("duplicate column name")
	ErrRowMismatch     = errors.New("column length differs from table row count")
)

// New assembles a table from columns. All columns must have the same length
// and distinct names.
func New(cols ...*Column) (*Table, error) {
	t := &Table{index: make(map[string]int, len(cols))}
	for i, c := range cols {
		if i == 0 {
			t.rows = c.Len()
		}
		if err := t.AppendColumn(c); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Rows returns the row count.
func (t *Table) Rows() int { return t.rows }

// Width returns the column count.
func (t *Table) Width() int { return len(t.cols) }

// Names returns the column names in table order.
func (t *Table) Names() []string {
	out := make([]string, len(t.cols))
	for i, c := range t.cols {
		out[i] = c.Name
	}
	return out
}

// Columns exposes the columns in table order. Callers must not append to
// or reorder the returned slice.
func (t *Table) Columns() []*Column { return t.cols }

// Column looks a column up by name.
func (t *Table) Column(name string) (*Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.cols[i], true
}

// Has reports whether the table holds a column with the given name.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// AppendColumn adds c after the existing columns.
func (t *Table) AppendColumn(c *Column) error {
	if _, dup := t.index[c.Name]; dup {
		return fmt.Errorf("%w: %q", ErrDuplicateColumn, c.Name)
	}
	if len(t.cols) > 0 && c.Len() != t.rows {
		return fmt.Errorf("%w: %q has %d rows, table has %d", ErrRowMismatch, c.Name, c.Len(), t.rows)
	}
	if len(t.cols) == 0 {
		t.rows = c.Len()
	}
	t.index[c.Name] = len(t.cols)
	t.cols = append(t.cols, c)
	return nil
}

// DropColumn removes the named column and reports whether it existed.
func (t *Table) DropColumn(name string) bool {
	i, ok := t.index[name]
	if !ok {
		return false
	}
	t.cols = append(t.cols[:i], t.cols[i+1:]...)
	t.reindex()
	if len(t.cols) == 0 {
		t.rows = 0
	}
	return true
}

// DropRows removes the given row positions from every column and returns how
// many rows were removed. Out-of-range positions are ignored.
func (t *Table) DropRows(rows map[int]struct{}) int {
	if len(rows) == 0 {
		return 0
	}
	keep := make([]int, 0, t.rows)
	for i := 0; i < t.rows; i++ {
		if _, drop := rows[i]; !drop {
			keep = append(keep, i)
		}
	}
	removed := t.rows - len(keep)
	for _, c := range t.cols {
		vals := make([]Value, len(keep))
		for j, i := range keep {
			vals[j] = c.Values[i]
		}
		c.Values = vals
	}
	t.rows = len(keep)
	return removed
}

// Row returns the cells of row i in column order.
func (t *Table) Row(i int) []Value {
	out := make([]Value, len(t.cols))
	for j, c := range t.cols {
		out[j] = c.Values[i]
	}
	return out
}

// Clone deep-copies the table.
func (t *Table) Clone() *Table {
	cp := &Table{cols: make([]*Column, len(t.cols)), index: make(map[string]int, len(t.cols)), rows: t.rows}
	for i, c := range t.cols {
		cp.cols[i] = c.Clone()
		cp.index[c.Name] = i
	}
	return cp
}

// Head returns a copy holding at most the first n rows.
func (t *Table) Head(n int) *Table {
	if n > t.rows {
		n = t.rows
	}
	if n < 0 {
		n = 0
	}
	cp := &Table{cols: make([]*Column, len(t.cols)), index: make(map[string]int, len(t.cols)), rows: n}
	for i, c := range t.cols {
		vals := make([]Value, n)
		copy(vals, c.Values[:n])
		cp.cols[i] = &Column{Name: c.Name, Type: c.Type, Values: vals}
		cp.index[c.Name] = i
	}
	return cp
}

func (t *Table) reindex() {
	t.index = make(map[string]int, len(t.cols))
	for i, c := range t.cols {
		t.index[c.Name] = i
	}
}
