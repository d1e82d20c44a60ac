// Package prep implements the preprocessing stages applied to a working
// table: column classification, missing-value handling, categorical
// encoding, scaling and outlier handling.
//
// Every stage receives a table it must not modify. On success it returns an
// Outcome holding a transformed copy; on cancellation or failure it returns
// an Outcome holding the input table together with a non-nil error, so the
// caller can decide whether to commit the replacement.
package prep

import (
	"errors"
	"fmt"

	"github.com/KaramelBytes/tabprep/internal/table"
)

var (
	// ErrCancelled signals that the user backed out of a stage.
	ErrCancelled = errors.New("cancelled")
	// ErrInvalidConstant is returned when a fill constant is not a number.
	ErrInvalidConstant = errors.New("fill constant must be numeric")
	// ErrNoValues is returned when a statistic is requested for a column
	// without any non-null value.
	ErrNoValues = errors.New("column has no non-null values")
	// ErrUnknownStrategy is returned when a strategy name cannot be parsed.
	ErrUnknownStrategy = errors.New("unknown strategy")
)

// Outcome is the result of running a stage.
type Outcome struct {
	Table    *table.Table
	Summary  string
	Warnings []string
	// Changed is false when the stage found nothing to do.
	Changed bool
}

func unchanged(t *table.Table, summary string) Outcome {
	return Outcome{Table: t, Summary: summary}
}

func cancelled(t *table.Table) (Outcome, error) {
	return Outcome{Table: t}, ErrCancelled
}

func failed(t *table.Table, err error) (Outcome, error) {
	return Outcome{Table: t}, err
}

func warnf(o *Outcome, format string, args ...any) {
	o.Warnings = append(o.Warnings, fmt.Sprintf(format, args...))
}
