package prep

import (
	"fmt"
	"sort"
	"strings"

	"github.com/KaramelBytes/tabprep/internal/table"
)

// EncodingStrategy selects how categorical columns become numeric.
type EncodingStrategy uint8

const (
	EncodeCancel EncodingStrategy = iota
	EncodeOneHot
	EncodeLabel
)

func (s EncodingStrategy) String() string {
	switch s {
	case EncodeOneHot:
		return "onehot"
	case EncodeLabel:
		return "label"
	default:
		return "cancel"
	}
}

// ParseEncodingStrategy maps a configuration name onto a strategy. An empty
// name selects one-hot.
func ParseEncodingStrategy(name string) (EncodingStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "onehot", "one-hot":
		return EncodeOneHot, nil
	case "label":
		return EncodeLabel, nil
	case "cancel":
		return EncodeCancel, nil
	}
	return EncodeCancel, fmt.Errorf("%w: encoding=%q", ErrUnknownStrategy, name)
}

// EncodeCategorical encodes the given categorical columns of t.
func EncodeCategorical(t *table.Table, categorical []string, s EncodingStrategy) (Outcome, error) {
	categorical = Present(t, categorical)
	if len(categorical) == 0 {
		return unchanged(t, "no categorical columns"), nil
	}
	if s == EncodeCancel {
		return cancelled(t)
	}
	out := t.Clone()
	o := Outcome{Table: out, Changed: true}
	switch s {
	case EncodeOneHot:
		added := 0
		for _, name := range categorical {
			n, err := oneHot(out, name)
			if err != nil {
				return failed(t, fmt.Errorf("one-hot %q: %w", name, err))
			}
			added += n
		}
		o.Summary = fmt.Sprintf("one-hot encoded %d columns into %d indicator columns", len(categorical), added)
	case EncodeLabel:
		for _, name := range categorical {
			col, _ := out.Column(name)
			labelEncode(col)
		}
		o.Summary = fmt.Sprintf("label encoded %d columns", len(categorical))
	default:
		return failed(t, fmt.Errorf("%w: encoding %d", ErrUnknownStrategy, s))
	}
	return o, nil
}

// Categories returns the distinct non-null cells of col in first-seen order.
func Categories(col *table.Column) []table.Value {
	seen := map[string]bool{}
	var out []table.Value
	for _, v := range col.Values {
		if v.IsNull() || seen[v.Key()] {
			continue
		}
		seen[v.Key()] = true
		out = append(out, v)
	}
	return out
}

func oneHot(t *table.Table, name string) (int, error) {
	col, _ := t.Column(name)
	cats := Categories(col)
	for _, cat := range cats {
		vals := make([]table.Value, col.Len())
		k := cat.Key()
		for i, v := range col.Values {
			vals[i] = table.Bool(!v.IsNull() && v.Key() == k)
		}
		ind := &table.Column{Name: freeName(t, name+"_"+cat.String()), Type: table.TypeBool, Values: vals}
		if err := t.AppendColumn(ind); err != nil {
			return 0, err
		}
	}
	t.DropColumn(name)
	return len(cats), nil
}

// freeName returns base, or base with the smallest "__N" suffix (N >= 2)
// that t does not already use.
func freeName(t *table.Table, base string) string {
	if !t.Has(base) {
		return base
	}
	for i := 2; ; i++ {
		n := fmt.Sprintf("%s__%d", base, i)
		if !t.Has(n) {
			return n
		}
	}
}

// LabelCodes returns the code assigned to each distinct non-null cell,
// keyed by table.Value.Key. Values are sorted numerically when every one is
// a number and by their text otherwise.
func LabelCodes(col *table.Column) map[string]int {
	cats := Categories(col)
	allNumbers := true
	for _, c := range cats {
		if c.Kind() != table.KindNumber {
			allNumbers = false
			break
		}
	}
	sort.SliceStable(cats, func(i, j int) bool {
		if allNumbers {
			return table.Compare(cats[i], cats[j]) < 0
		}
		return cats[i].String() < cats[j].String()
	})
	codes := make(map[string]int, len(cats))
	for i, c := range cats {
		codes[c.Key()] = i
	}
	return codes
}

func labelEncode(col *table.Column) {
	codes := LabelCodes(col)
	for i, v := range col.Values {
		if v.IsNull() {
			continue
		}
		col.Values[i] = table.Number(float64(codes[v.Key()]))
	}
	col.Type = table.TypeNumber
}
