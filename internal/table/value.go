package table

import (
	"math"
	"strconv"
	"strings"
)

// Kind identifies what a single cell holds.
type Kind uint8

const (
	KindNull Kind = iota
	KindNumber
	KindBool
	KindText
)

// Value is one cell of a column. The zero Value is null.
type Value struct {
	kind Kind
	num  float64
	b    bool
	s    string
}

// Null returns the missing-value cell.
func Null() Value { return Value{} }

// Number returns a numeric cell. NaN is stored as null.
func Number(f float64) Value {
	if math.IsNaN(f) {
		return Value{}
	}
	return Value{kind: KindNumber, num: f}
}

// Bool returns a boolean cell.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Text returns a label cell.
func Text(s string) Value { return Value{kind: KindText, s: s} }

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

// Float returns the numeric payload and whether the cell is a number.
func (v Value) Float() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	return v.num, true
}

// Truth returns the boolean payload and whether the cell is a boolean.
func (v Value) Truth() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

// String renders the cell the way it is exported and used in generated
// column names. Null renders as the empty string.
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return FormatNumber(v.num)
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	case KindText:
		return v.s
	default:
		return ""
	}
}

// Key returns a string that is unique per distinct cell, including its kind,
// so that Number(1) and Text("1") do not collide in maps.
func (v Value) Key() string {
	switch v.kind {
	case KindNumber:
		return "n:" + FormatNumber(v.num)
	case KindBool:
		return "b:" + v.String()
	case KindText:
		return "t:" + v.s
	default:
		return "null"
	}
}

// Equal reports whether two cells hold the same kind and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNumber:
		return v.num == o.num
	case KindBool:
		return v.b == o.b
	case KindText:
		return v.s == o.s
	default:
		return true
	}
}

// Compare orders cells: null first, then numbers, booleans and text. Cells
// of the same kind compare by payload (false < true, text lexicographically).
func Compare(a, b Value) int {
	if a.kind != b.kind {
		if a.kind < b.kind {
			return -1
		}
		return 1
	}
	switch a.kind {
	case KindNumber:
		switch {
		case a.num < b.num:
			return -1
		case a.num > b.num:
			return 1
		}
		return 0
	case KindBool:
		switch {
		case a.b == b.b:
			return 0
		case !a.b:
			return -1
		}
		return 1
	case KindText:
		return strings.Compare(a.s, b.s)
	}
	return 0
}

// FormatNumber renders integral values without a fractional part and all
// others with the shortest exact representation.
func FormatNumber(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatFloat(f, 'f', 0, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
