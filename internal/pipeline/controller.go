// Package pipeline drives a preprocessing session: it gates operations by
// the step reached, hands the working table to one stage at a time and
// commits the stage's result only when the stage succeeds.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/KaramelBytes/tabprep/internal/prep"
	"github.com/KaramelBytes/tabprep/internal/table"
)

// Loader produces a new working table.
type Loader interface {
	Load(ctx context.Context) (*table.Table, Source, error)
}

// ColumnSelector asks for the feature and target columns of t.
type ColumnSelector interface {
	SelectColumns(ctx context.Context, t *table.Table) (Roles, error)
}

// Decider picks a strategy once a stage has found work to do. Returning
// prep.ErrCancelled, or a cancel strategy, aborts the stage.
type Decider interface {
	MissingStrategy(ctx context.Context, counts []prep.MissingCount) (prep.MissingStrategy, error)
	EncodingStrategy(ctx context.Context, categorical []string) (prep.EncodingStrategy, error)
	ScalingStrategy(ctx context.Context, numeric []string) (prep.ScalingStrategy, error)
	OutlierStrategy(ctx context.Context, report prep.OutlierReport) (prep.OutlierStrategy, error)
}

// Visualizer renders views of the working table.
type Visualizer interface {
	Visualize(ctx context.Context, t *table.Table, roles Roles) error
}

// Exporter writes the session's working table somewhere and returns a short
// description of where.
type Exporter interface {
	Export(ctx context.Context, s *Session) (string, error)
}

// Collaborators bundles the components a Controller calls out to. A nil
// collaborator makes its operation fail.
type Collaborators struct {
	Loader     Loader
	Selector   ColumnSelector
	Decider    Decider
	Visualizer Visualizer
	Exporter   Exporter
}

// Result describes the outcome of one Run.
type Result struct {
	Op        Op
	Committed bool
	Cancelled bool
	Strategy  string
	Summary   string
	Warnings  []string
}

// ErrNoCollaborator is returned when an operation has nothing to call.
var ErrNoCollaborator = errors.New("no collaborator configured")

// Controller owns a Session and runs operations against it.
type Controller struct {
	session *Session
	with    Collaborators
	log     zerolog.Logger
}

// NewController creates a controller over a fresh session.
func NewController(with Collaborators, log zerolog.Logger) *Controller {
	s := NewSession()
	return &Controller{
		session: s,
		with:    with,
		log:     log.With().Str("session", s.ID).Logger(),
	}
}

// Session exposes the controlled session. Callers must treat it as
// read-only.
func (c *Controller) Session() *Session { return c.session }

// Step returns the step reached.
func (c *Controller) Step() Step { return c.session.Step }

// Marker returns the menu marker for op at the current step.
func (c *Controller) Marker(op Op) string { return Marker(op, c.session.Step) }

// Allowed reports whether op may run now.
func (c *Controller) Allowed(op Op) bool { return c.session.Step >= op.Required() }

// Run executes op. A gate violation returns *StepError and changes nothing.
// Cancellation is not an error: it returns a Result with Cancelled set. Any
// other error leaves the session untouched.
func (c *Controller) Run(ctx context.Context, op Op) (Result, error) {
	if !c.Allowed(op) {
		err := &StepError{Op: op, Required: op.Required(), Current: c.session.Step}
		c.log.Debug().Str("op", op.String()).Stringer("step", c.session.Step).Msg("operation locked")
		return Result{Op: op}, err
	}
	start := time.Now()
	res, err := c.dispatch(ctx, op)
	res.Op = op
	l := c.log.With().Str("op", op.String()).Dur("took", time.Since(start)).Logger()
	switch {
	case errors.Is(err, prep.ErrCancelled):
		res.Committed = false
		res.Cancelled = true
		l.Info().Stringer("step", c.session.Step).Msg("stage cancelled")
		return res, nil
	case err != nil:
		res.Committed = false
		l.Error().Err(err).Stringer("step", c.session.Step).Msg("stage failed")
		return res, err
	}
	res.Committed = true
	l.Info().Str("strategy", res.Strategy).Stringer("step", c.session.Step).Str("summary", res.Summary).Msg("stage committed")
	for _, w := range res.Warnings {
		l.Warn().Msg(w)
	}
	return res, nil
}

func (c *Controller) dispatch(ctx context.Context, op Op) (Result, error) {
	switch op {
	case OpLoad:
		return c.load(ctx)
	case OpSelectColumns:
		return c.selectColumns(ctx)
	case OpHandleMissing:
		return c.handleMissing(ctx)
	case OpEncodeCategorical:
		return c.encodeCategorical(ctx)
	case OpNormalize:
		return c.normalize(ctx)
	case OpHandleOutliers:
		return c.handleOutliers(ctx)
	case OpVisualize:
		return c.visualize(ctx)
	case OpExport:
		return c.export(ctx)
	}
	return Result{}, fmt.Errorf("unknown operation %d", int(op))
}

// commit replaces the working table, advances the step monotonically and
// records the stage.
func (c *Controller) commit(op Op, t *table.Table, res Result) {
	s := c.session
	s.Table = t
	if next := op.Completes(); next > s.Step {
		s.Step = next
	}
	s.History = append(s.History, Stage{
		Op:       op.String(),
		Strategy: res.Strategy,
		Summary:  res.Summary,
		Warnings: res.Warnings,
		Rows:     t.Rows(),
		Columns:  t.Width(),
		At:       time.Now().UTC(),
	})
}

func (c *Controller) load(ctx context.Context) (Result, error) {
	if c.with.Loader == nil {
		return Result{}, fmt.Errorf("load: %w", ErrNoCollaborator)
	}
	t, src, err := c.with.Loader.Load(ctx)
	if err != nil {
		return Result{}, err
	}
	s := c.session
	s.Source = src
	s.Roles = Roles{}
	s.History = nil
	s.Step = StepStart
	res := Result{Strategy: src.Kind, Summary: fmt.Sprintf("loaded %d rows x %d columns from %s", t.Rows(), t.Width(), src)}
	c.commit(OpLoad, t, res)
	return res, nil
}

func (c *Controller) selectColumns(ctx context.Context) (Result, error) {
	if c.with.Selector == nil {
		return Result{}, fmt.Errorf("select columns: %w", ErrNoCollaborator)
	}
	t := c.session.Table
	roles, err := c.with.Selector.SelectColumns(ctx, t)
	if err != nil {
		return Result{}, err
	}
	if err := roles.Validate(t); err != nil {
		return Result{}, err
	}
	c.session.Roles = roles
	res := Result{Summary: fmt.Sprintf("features %v, target %q", roles.Features, roles.Target)}
	c.commit(OpSelectColumns, t, res)
	return res, nil
}

func (c *Controller) handleMissing(ctx context.Context) (Result, error) {
	t, r := c.session.Table, c.session.Roles
	counts := prep.CountMissing(t, r.Features, r.Target)
	var strategy prep.MissingStrategy
	if prep.TotalMissing(counts) > 0 {
		if c.with.Decider == nil {
			return Result{}, fmt.Errorf("handle missing values: %w", ErrNoCollaborator)
		}
		var err error
		if strategy, err = c.with.Decider.MissingStrategy(ctx, counts); err != nil {
			return Result{}, err
		}
	}
	out, err := prep.HandleMissing(t, r.Features, r.Target, strategy)
	return c.finish(OpHandleMissing, strategyName(prep.TotalMissing(counts) > 0, strategy), out, err)
}

func (c *Controller) encodeCategorical(ctx context.Context) (Result, error) {
	t, r := c.session.Table, c.session.Roles
	cats := prep.Classify(t, r.Features, r.Target).Categorical
	var strategy prep.EncodingStrategy
	if len(cats) > 0 {
		if c.with.Decider == nil {
			return Result{}, fmt.Errorf("encode categorical data: %w", ErrNoCollaborator)
		}
		var err error
		if strategy, err = c.with.Decider.EncodingStrategy(ctx, cats); err != nil {
			return Result{}, err
		}
	}
	out, err := prep.EncodeCategorical(t, cats, strategy)
	return c.finish(OpEncodeCategorical, strategyName(len(cats) > 0, strategy), out, err)
}

func (c *Controller) normalize(ctx context.Context) (Result, error) {
	t, r := c.session.Table, c.session.Roles
	numeric := prep.Classify(t, r.Features, r.Target).Numeric
	var strategy prep.ScalingStrategy
	if len(numeric) > 0 {
		if c.with.Decider == nil {
			return Result{}, fmt.Errorf("normalize: %w", ErrNoCollaborator)
		}
		var err error
		if strategy, err = c.with.Decider.ScalingStrategy(ctx, numeric); err != nil {
			return Result{}, err
		}
	}
	out, err := prep.Scale(t, numeric, strategy)
	return c.finish(OpNormalize, strategyName(len(numeric) > 0, strategy), out, err)
}

func (c *Controller) handleOutliers(ctx context.Context) (Result, error) {
	t, r := c.session.Table, c.session.Roles
	report := prep.DetectOutliers(t, r.Features, r.Target)
	var strategy prep.OutlierStrategy
	if report.Total() > 0 {
		if c.with.Decider == nil {
			return Result{}, fmt.Errorf("handle outliers: %w", ErrNoCollaborator)
		}
		var err error
		if strategy, err = c.with.Decider.OutlierStrategy(ctx, report); err != nil {
			return Result{}, err
		}
	}
	out, err := prep.HandleOutliers(t, report, strategy)
	return c.finish(OpHandleOutliers, strategyName(report.Total() > 0, strategy), out, err)
}

func (c *Controller) visualize(ctx context.Context) (Result, error) {
	if c.with.Visualizer == nil {
		return Result{}, fmt.Errorf("visualize: %w", ErrNoCollaborator)
	}
	if err := c.with.Visualizer.Visualize(ctx, c.session.Table, c.session.Roles); err != nil {
		return Result{}, err
	}
	res := Result{Summary: "visualization shown"}
	c.commit(OpVisualize, c.session.Table, res)
	return res, nil
}

func (c *Controller) export(ctx context.Context) (Result, error) {
	if c.with.Exporter == nil {
		return Result{}, fmt.Errorf("export: %w", ErrNoCollaborator)
	}
	where, err := c.with.Exporter.Export(ctx, c.session)
	if err != nil {
		return Result{}, err
	}
	res := Result{Summary: "exported to " + where}
	c.commit(OpExport, c.session.Table, res)
	return res, nil
}

// finish turns a stage outcome into a Result and commits it on success.
func (c *Controller) finish(op Op, strategy string, out prep.Outcome, err error) (Result, error) {
	res := Result{Strategy: strategy, Summary: out.Summary, Warnings: out.Warnings}
	if err != nil {
		if errors.Is(err, prep.ErrCancelled) {
			return res, err
		}
		return res, fmt.Errorf("%s: %w", op, err)
	}
	c.commit(op, out.Table, res)
	return res, nil
}

// strategyName leaves the strategy blank when the stage had nothing to do.
func strategyName(asked bool, s fmt.Stringer) string {
	if !asked {
		return ""
	}
	return s.String()
}
