package pipeline

import "fmt"

// Step marks how far a session has progressed. Steps are totally ordered.
type Step int

const (
	StepStart Step = iota
	StepLoaded
	StepColumnsSelected
	StepMissingHandled
	StepCategoricalHandled
	StepNormalized
	StepOutliersHandled
	StepVisualized
	StepExported
)

var stepNames = [...]string{
	"start",
	"loaded",
	"columns selected",
	"missing values handled",
	"categorical data handled",
	"normalized",
	"outliers handled",
	"visualized",
	"exported",
}

func (s Step) String() string {
	if s < 0 || int(s) >= len(stepNames) {
		return fmt.Sprintf("step(%d)", int(s))
	}
	return stepNames[s]
}

// Op is an operation the controller can run.
type Op int

const (
	OpLoad Op = iota
	OpSelectColumns
	OpHandleMissing
	OpEncodeCategorical
	OpNormalize
	OpHandleOutliers
	OpVisualize
	OpExport
)

// Ops lists every operation in pipeline order.
var Ops = []Op{OpLoad, OpSelectColumns, OpHandleMissing, OpEncodeCategorical, OpNormalize, OpHandleOutliers, OpVisualize, OpExport}

var opNames = [...]string{
	"load",
	"select columns",
	"handle missing values",
	"encode categorical data",
	"normalize",
	"handle outliers",
	"visualize",
	"export",
}

func (o Op) String() string {
	if o < 0 || int(o) >= len(opNames) {
		return fmt.Sprintf("op(%d)", int(o))
	}
	return opNames[o]
}

// Required returns the step a session must have reached before o may run.
func (o Op) Required() Step {
	if o == OpLoad {
		return StepStart
	}
	return Step(o)
}

// Completes returns the step a successful run of o advances to.
func (o Op) Completes() Step {
	return Step(o) + 1
}

// Marker symbols rendered next to menu entries.
const (
	MarkLocked  = "✗"
	MarkPending = "-"
	MarkDone    = "✓"
)

// Marker returns the menu marker for o at step current.
func Marker(o Op, current Step) string {
	switch {
	case current < o.Required():
		return MarkLocked
	case current >= o.Completes():
		return MarkDone
	default:
		return MarkPending
	}
}

// StepError is returned when an operation is attempted before the session
// reached the step it requires.
type StepError struct {
	Op       Op
	Required Step
	Current  Step
}

func (e *StepError) Error() string {
	return fmt.Sprintf("cannot %s: requires step %q, session is at %q", e.Op, e.Required, e.Current)
}
