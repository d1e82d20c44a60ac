package console

import (
	"context"
	"math"
	"strings"

	"github.com/KaramelBytes/tabprep/internal/prep"
	"github.com/KaramelBytes/tabprep/internal/table"
)

// MissingStrategy shows the null counts and asks how to resolve them.
func (c *Console) MissingStrategy(ctx context.Context, counts []prep.MissingCount) (prep.MissingStrategy, error) {
	c.banner("Missing values")
	c.printf("Missing values were found in these selected columns:\n")
	for _, m := range counts {
		if m.Nulls > 0 {
			c.printf("  - %s: %d missing values\n", m.Column, m.Nulls)
		}
	}
	c.printf("\nSelect a strategy for the missing values:\n")
	n, err := c.choose(ctx, []string{
		"Drop rows with missing values",
		"Fill with the column mean",
		"Fill with the column median",
		"Fill with the column mode",
		"Fill with a constant value",
		"Back to the main menu",
	})
	if err != nil {
		return prep.MissingStrategy{}, err
	}
	switch n {
	case 1:
		return prep.MissingStrategy{Kind: prep.MissingDrop}, nil
	case 2:
		return prep.MissingStrategy{Kind: prep.MissingMean}, nil
	case 3:
		return prep.MissingStrategy{Kind: prep.MissingMedian}, nil
	case 4:
		return prep.MissingStrategy{Kind: prep.MissingMode}, nil
	case 5:
		ans, err := c.ask(ctx, "Enter a numeric value to fill the missing values with: ")
		if err != nil {
			return prep.MissingStrategy{}, err
		}
		v, err := prep.ParseConstant(ans)
		if err != nil {
			return prep.MissingStrategy{}, err
		}
		return prep.FillConstant(v), nil
	}
	return prep.MissingStrategy{}, cancel()
}

// EncodingStrategy asks how to encode the categorical columns.
func (c *Console) EncodingStrategy(ctx context.Context, categorical []string) (prep.EncodingStrategy, error) {
	c.banner("Categorical data")
	c.printf("Categorical columns: %s\n\nSelect an encoding:\n", strings.Join(categorical, ", "))
	n, err := c.choose(ctx, []string{
		"One-Hot Encoding (one binary column per category)",
		"Label Encoding (categories become integers)",
		"Back to the main menu",
	})
	if err != nil {
		return prep.EncodeCancel, err
	}
	switch n {
	case 1:
		return prep.EncodeOneHot, nil
	case 2:
		return prep.EncodeLabel, nil
	}
	return prep.EncodeCancel, cancel()
}

// ScalingStrategy asks how to rescale the numeric columns.
func (c *Console) ScalingStrategy(ctx context.Context, numeric []string) (prep.ScalingStrategy, error) {
	c.banner("Normalization and scaling")
	c.printf("Numeric columns: %s\n\nSelect a scaling method:\n", strings.Join(numeric, ", "))
	n, err := c.choose(ctx, []string{
		"Min-Max Scaling (values between 0 and 1)",
		"Z-score Normalization (mean 0, standard deviation 1)",
		"Back to the main menu",
	})
	if err != nil {
		return prep.ScaleCancel, err
	}
	switch n {
	case 1:
		return prep.ScaleMinMax, nil
	case 2:
		return prep.ScaleZScore, nil
	}
	return prep.ScaleCancel, cancel()
}

// OutlierStrategy reports the outliers found and asks what to do with them.
func (c *Console) OutlierStrategy(ctx context.Context, report prep.OutlierReport) (prep.OutlierStrategy, error) {
	c.banner("Outlier detection and handling")
	for _, col := range report.Columns {
		switch {
		case len(col.Rows) == 0:
			continue
		case col.Binary:
			c.printf("  - %s: %d missing or non-binary values\n", col.Column, len(col.Rows))
			continue
		}
		c.printf("  - %s: %d outliers outside [%s, %s]\n", col.Column, len(col.Rows), fmtBound(col.Lower), fmtBound(col.Upper))
	}
	c.printf("Rows affected: %d\n\nSelect how to handle the outliers:\n", len(report.RowSet()))
	n, err := c.choose(ctx, []string{
		"Drop rows with outliers",
		"Replace outliers with the column median",
		"Keep outliers unchanged",
		"Back to the main menu",
	})
	if err != nil {
		return prep.OutlierCancel, err
	}
	switch n {
	case 1:
		return prep.OutlierDrop, nil
	case 2:
		return prep.OutlierMedian, nil
	case 3:
		return prep.OutlierKeep, nil
	}
	return prep.OutlierCancel, cancel()
}

func fmtBound(x float64) string {
	return table.FormatNumber(math.Round(x*1000) / 1000)
}
