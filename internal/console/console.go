// Package console is the interactive front end: a numbered main menu that
// shows the pipeline's progress, and the dialogs the pipeline calls back into
// for loading, column selection, strategy choices, views and export.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/KaramelBytes/tabprep/internal/analysis"
	"github.com/KaramelBytes/tabprep/internal/export"
	"github.com/KaramelBytes/tabprep/internal/pipeline"
	"github.com/KaramelBytes/tabprep/internal/prep"
	"github.com/KaramelBytes/tabprep/internal/source"
)

// Options configures the dialogs.
type Options struct {
	Source source.Options
	Export export.Options
	Views  analysis.Options
	Sample int
	// Preload is loaded by the first Load call instead of prompting.
	Preload string
}

// Console reads choices from in and writes menus to out. It implements every
// pipeline collaborator.
type Console struct {
	in  *bufio.Reader
	out io.Writer
	opt Options
	log zerolog.Logger
}

// New returns a console over in and out.
func New(in io.Reader, out io.Writer, opt Options, log zerolog.Logger) *Console {
	if opt.Sample <= 0 {
		opt.Sample = 5
	}
	return &Console{in: bufio.NewReader(in), out: out, opt: opt, log: log}
}

// Collaborators returns the console wired as every pipeline collaborator.
func (c *Console) Collaborators() pipeline.Collaborators {
	return pipeline.Collaborators{Loader: c, Selector: c, Decider: c, Visualizer: c, Exporter: c}
}

func (c *Console) printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}

func (c *Console) banner(title string) {
	c.printf("\n===================================\n  %s\n===================================\n", title)
}

// ask prints prompt and reads one trimmed line. At end of input it returns
// io.EOF.
func (c *Console) ask(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c.printf("%s", prompt)
	line, err := c.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// choose prints numbered options and returns the 1-based choice. Anything
// that is not one of the numbers is reported and returns 0.
func (c *Console) choose(ctx context.Context, options []string) (int, error) {
	for i, o := range options {
		c.printf("  [%d] %s\n", i+1, o)
	}
	ans, err := c.ask(ctx, "Select an option: ")
	if err != nil {
		return 0, err
	}
	n, convErr := strconv.Atoi(ans)
	if convErr != nil || n < 1 || n > len(options) {
		c.printf("Invalid option.\n")
		return 0, nil
	}
	return n, nil
}

var subOps = []pipeline.Op{
	pipeline.OpSelectColumns,
	pipeline.OpHandleMissing,
	pipeline.OpEncodeCategorical,
	pipeline.OpNormalize,
	pipeline.OpHandleOutliers,
}

var opLabels = map[pipeline.Op]string{
	pipeline.OpLoad:              "Load data",
	pipeline.OpSelectColumns:     "Column selection",
	pipeline.OpHandleMissing:     "Missing values",
	pipeline.OpEncodeCategorical: "Categorical data",
	pipeline.OpNormalize:         "Normalization and scaling",
	pipeline.OpHandleOutliers:    "Outlier detection and handling",
	pipeline.OpVisualize:         "Data visualization",
	pipeline.OpExport:            "Export data",
}

// status describes op at step for the menu.
func status(op pipeline.Op, step pipeline.Step) string {
	switch pipeline.Marker(op, step) {
	case pipeline.MarkLocked:
		return "requires " + strings.ToLower(opLabels[pipeline.Op(op.Required()-1)])
	case pipeline.MarkDone:
		return "completed"
	}
	return "pending"
}

func (c *Console) menu(ctrl *pipeline.Controller) {
	s := ctrl.Session()
	c.banner("Main menu")
	loaded := "no file loaded"
	if s.Table != nil {
		loaded = s.Source.String()
	}
	c.printf("[%s] 1. %s (%s)\n", ctrl.Marker(pipeline.OpLoad), opLabels[pipeline.OpLoad], loaded)

	pre := "requires loaded data"
	prepMark := pipeline.MarkLocked
	switch {
	case s.Step >= pipeline.StepOutliersHandled:
		pre, prepMark = "completed", pipeline.MarkDone
	case s.Step >= pipeline.StepLoaded:
		pre, prepMark = "in progress", pipeline.MarkPending
	}
	c.printf("[%s] 2. Preprocessing (%s)\n", prepMark, pre)
	if s.Step >= pipeline.StepLoaded {
		for i, op := range subOps {
			c.printf("\t[%s] 2.%d %s (%s)\n", ctrl.Marker(op), i+1, opLabels[op], status(op, s.Step))
		}
	}
	c.printf("[%s] 3. %s (%s)\n", ctrl.Marker(pipeline.OpVisualize), opLabels[pipeline.OpVisualize], status(pipeline.OpVisualize, s.Step))
	c.printf("[%s] 4. %s (%s)\n", ctrl.Marker(pipeline.OpExport), opLabels[pipeline.OpExport], status(pipeline.OpExport, s.Step))
	c.printf("[%s] 5. Exit\n", pipeline.MarkDone)
}

// parseChoice maps a main-menu entry onto an operation. "2" alone opens the
// preprocessing sub-menu and reports sub=true.
func parseChoice(choice string) (op pipeline.Op, sub, exit, ok bool) {
	switch choice {
	case "1":
		return pipeline.OpLoad, false, false, true
	case "2":
		return 0, true, false, true
	case "3":
		return pipeline.OpVisualize, false, false, true
	case "4":
		return pipeline.OpExport, false, false, true
	case "5":
		return 0, false, true, true
	}
	if rest, found := strings.CutPrefix(choice, "2."); found {
		i, err := strconv.Atoi(rest)
		if err == nil && i >= 1 && i <= len(subOps) {
			return subOps[i-1], false, false, true
		}
	}
	return 0, false, false, false
}

// Run shows the main menu until the user exits or input ends.
func (c *Console) Run(ctx context.Context, ctrl *pipeline.Controller) error {
	for {
		c.menu(ctrl)
		choice, err := c.ask(ctx, "\nSelect an option: ")
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		op, sub, exit, ok := parseChoice(choice)
		switch {
		case !ok:
			c.printf("Invalid option or not available yet.\n")
			continue
		case exit:
			quit, err := c.confirmExit(ctx)
			if err != nil || quit {
				return ignoreEOF(err)
			}
			continue
		case sub:
			if !ctrl.Allowed(pipeline.OpSelectColumns) {
				c.printf("✗ Preprocessing requires loaded data.\n")
				continue
			}
			c.banner("Preprocessing")
			for i, op := range subOps {
				c.printf("  [%s] 2.%d %s\n", ctrl.Marker(op), i+1, opLabels[op])
			}
			choice, err := c.ask(ctx, "Select a step (2.1-2.5): ")
			if err != nil {
				return ignoreEOF(err)
			}
			if !strings.HasPrefix(choice, "2.") {
				choice = "2." + choice
			}
			if op, _, _, ok = parseChoice(choice); !ok {
				c.printf("Invalid option.\n")
				continue
			}
		}
		if err := c.runOp(ctx, ctrl, op); err != nil {
			return err
		}
	}
}

// runOp runs one operation and reports its result. Only a closed input is
// returned; stage errors are reported and the menu continues.
func (c *Console) runOp(ctx context.Context, ctrl *pipeline.Controller, op pipeline.Op) error {
	res, err := ctrl.Run(ctx, op)
	var stepErr *pipeline.StepError
	switch {
	case errors.Is(err, io.EOF):
		return nil
	case errors.As(err, &stepErr):
		c.printf("✗ %s is not available yet (%s).\n", opLabels[op], status(op, ctrl.Step()))
	case err != nil:
		c.printf("✗ Error: %v\n", err)
	case res.Cancelled:
		c.printf("Operation cancelled.\n")
	default:
		if res.Summary != "" {
			c.printf("✓ %s\n", res.Summary)
		}
		for _, w := range res.Warnings {
			c.printf("⚠ %s\n", w)
		}
	}
	return nil
}

func (c *Console) confirmExit(ctx context.Context) (bool, error) {
	c.banner("Exit")
	c.printf("Are you sure you want to exit?\n")
	n, err := c.choose(ctx, []string{"Yes", "No"})
	if err != nil {
		return false, err
	}
	if n == 1 {
		c.printf("Closing tabprep...\n")
		return true, nil
	}
	c.printf("Back to the main menu...\n")
	return false, nil
}

func ignoreEOF(err error) error {
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// cancel reports a cancelled dialog.
func cancel() error { return prep.ErrCancelled }
