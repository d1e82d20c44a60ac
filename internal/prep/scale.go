package prep

import (
	"fmt"
	"math"
	"strings"

	"github.com/KaramelBytes/tabprep/internal/stats"
	"github.com/KaramelBytes/tabprep/internal/table"
)

// ScalingStrategy selects how numeric columns are rescaled.
type ScalingStrategy uint8

const (
	ScaleCancel ScalingStrategy = iota
	ScaleMinMax
	ScaleZScore
)

func (s ScalingStrategy) String() string {
	switch s {
	case ScaleMinMax:
		return "minmax"
	case ScaleZScore:
		return "zscore"
	default:
		return "cancel"
	}
}

// ParseScalingStrategy maps a configuration name onto a strategy. An empty
// name selects min-max.
func ParseScalingStrategy(name string) (ScalingStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "minmax", "min-max":
		return ScaleMinMax, nil
	case "zscore", "z-score", "standard":
		return ScaleZScore, nil
	case "cancel":
		return ScaleCancel, nil
	}
	return ScaleCancel, fmt.Errorf("%w: scaling=%q", ErrUnknownStrategy, name)
}

// Scale rescales the given numeric columns of t.
func Scale(t *table.Table, numeric []string, s ScalingStrategy) (Outcome, error) {
	numeric = Present(t, numeric)
	if len(numeric) == 0 {
		return unchanged(t, "no numeric columns"), nil
	}
	if s == ScaleCancel {
		return cancelled(t)
	}
	if s != ScaleMinMax && s != ScaleZScore {
		return failed(t, fmt.Errorf("%w: scaling %d", ErrUnknownStrategy, s))
	}
	out := t.Clone()
	o := Outcome{Table: out, Changed: true}
	scaled := 0
	for _, name := range numeric {
		col, _ := out.Column(name)
		xs := col.Floats()
		if col.NullCount() == col.Len() {
			warnf(&o, "column %q has no values, scaling skipped", name)
			continue
		}
		var shift, div float64
		degenerate := false
		if s == ScaleMinMax {
			lo, hi := stats.MinMax(xs)
			shift, div = lo, hi-lo
			degenerate = div == 0
		} else {
			sd := stats.StdDev(xs)
			shift, div = stats.Mean(xs), sd
			degenerate = math.IsNaN(sd) || sd == 0
		}
		for i, x := range xs {
			switch {
			case degenerate:
				col.Values[i] = table.Number(0)
			case math.IsNaN(x):
			default:
				col.Values[i] = table.Number((x - shift) / div)
			}
		}
		if degenerate {
			warnf(&o, "column %q is constant, set to 0", name)
		}
		scaled++
	}
	o.Summary = fmt.Sprintf("%s scaled %d columns", s, scaled)
	return o, nil
}
