package pipeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/KaramelBytes/tabprep/internal/table"
)

// ErrInvalidRoles is returned when a column role selection is unusable.
var ErrInvalidRoles = errors.New("invalid column selection")

// Roles assigns input and output columns.
type Roles struct {
	Features []string `json:"features"`
	Target   string   `json:"target"`
}

// Empty reports whether no roles were selected yet.
func (r Roles) Empty() bool { return len(r.Features) == 0 && r.Target == "" }

// Validate checks r against the columns of t.
func (r Roles) Validate(t *table.Table) error {
	if len(r.Features) == 0 {
		return fmt.Errorf("%w: no feature columns", ErrInvalidRoles)
	}
	if r.Target == "" {
		return fmt.Errorf("%w: no target column", ErrInvalidRoles)
	}
	if !t.Has(r.Target) {
		return fmt.Errorf("%w: unknown target %q", ErrInvalidRoles, r.Target)
	}
	seen := map[string]bool{}
	for _, f := range r.Features {
		switch {
		case f == r.Target:
			return fmt.Errorf("%w: target %q is also a feature", ErrInvalidRoles, f)
		case !t.Has(f):
			return fmt.Errorf("%w: unknown feature %q", ErrInvalidRoles, f)
		case seen[f]:
			return fmt.Errorf("%w: feature %q selected twice", ErrInvalidRoles, f)
		}
		seen[f] = true
	}
	return nil
}

// Source describes where the working table came from.
type Source struct {
	Kind     string `json:"kind"`
	Location string `json:"location"`
	// Sheet or table name for multi-table sources.
	Part string `json:"part,omitempty"`
}

func (s Source) String() string {
	if s.Part != "" {
		return fmt.Sprintf("%s:%s (%s)", s.Kind, s.Location, s.Part)
	}
	return fmt.Sprintf("%s:%s", s.Kind, s.Location)
}

// Stage records one committed operation.
type Stage struct {
	Op       string    `json:"op"`
	Strategy string    `json:"strategy,omitempty"`
	Summary  string    `json:"summary,omitempty"`
	Warnings []string  `json:"warnings,omitempty"`
	Rows     int       `json:"rows"`
	Columns  int       `json:"columns"`
	At       time.Time `json:"at"`
}

// Session is the state the controller owns: the working table, its roles,
// the step reached and the history of committed stages.
type Session struct {
	ID      string
	Started time.Time
	Table   *table.Table
	Source  Source
	Roles   Roles
	Step    Step
	History []Stage
}

// NewSession starts an empty session.
func NewSession() *Session {
	return &Session{ID: uuid.NewString(), Started: time.Now().UTC(), Step: StepStart}
}
