package pipeline

import (
	"context"
	"fmt"

	"github.com/KaramelBytes/tabprep/internal/prep"
	"github.com/KaramelBytes/tabprep/internal/table"
)

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context) (*table.Table, Source, error)

func (f LoaderFunc) Load(ctx context.Context) (*table.Table, Source, error) { return f(ctx) }

// Preset answers the column selection and every strategy question with
// fixed choices, for runs without a user at the keyboard.
type Preset struct {
	Roles    Roles
	Missing  prep.MissingStrategy
	Encoding prep.EncodingStrategy
	Scaling  prep.ScalingStrategy
	Outliers prep.OutlierStrategy
}

func (p Preset) SelectColumns(context.Context, *table.Table) (Roles, error) { return p.Roles, nil }

func (p Preset) MissingStrategy(context.Context, []prep.MissingCount) (prep.MissingStrategy, error) {
	return p.Missing, nil
}

func (p Preset) EncodingStrategy(context.Context, []string) (prep.EncodingStrategy, error) {
	return p.Encoding, nil
}

func (p Preset) ScalingStrategy(context.Context, []string) (prep.ScalingStrategy, error) {
	return p.Scaling, nil
}

func (p Preset) OutlierStrategy(context.Context, prep.OutlierReport) (prep.OutlierStrategy, error) {
	return p.Outliers, nil
}

// RunAll runs every operation in pipeline order and stops at the first
// failure. A cancelled stage stops the run with an error wrapping
// prep.ErrCancelled.
func (c *Controller) RunAll(ctx context.Context) ([]Result, error) {
	var out []Result
	for _, op := range Ops {
		res, err := c.Run(ctx, op)
		out = append(out, res)
		if err != nil {
			return out, err
		}
		if res.Cancelled {
			return out, fmt.Errorf("%s: %w", op, prep.ErrCancelled)
		}
	}
	return out, nil
}
