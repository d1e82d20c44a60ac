package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/tabprep/internal/prep"
	"github.com/KaramelBytes/tabprep/internal/table"
)

func presetController(t *testing.T, p Preset, load LoaderFunc) (*Controller, *fakeExporter) {
	t.Helper()
	exp := &fakeExporter{}
	c := NewController(Collaborators{
		Loader:     load,
		Selector:   p,
		Decider:    p,
		Visualizer: &fakeViz{},
		Exporter:   exp,
	}, zerolog.Nop())
	return c, exp
}

func titanicLoader(t *testing.T) LoaderFunc {
	tb := titanic(t)
	return func(context.Context) (*table.Table, Source, error) {
		return tb.Clone(), Source{Kind: "csv", Location: "titanic.csv"}, nil
	}
}

func TestRunAllWithPreset(t *testing.T) {
	p := Preset{
		Roles:    Roles{Features: []string{"Age", "Fare", "Sex"}, Target: "Survived"},
		Missing:  prep.MissingStrategy{Kind: prep.MissingMedian},
		Encoding: prep.EncodeLabel,
		Scaling:  prep.ScaleZScore,
		Outliers: prep.OutlierKeep,
	}
	c, exp := presetController(t, p, titanicLoader(t))
	results, err := c.RunAll(context.Background())
	require.NoError(t, err)
	require.Len(t, results, len(Ops))
	for i, res := range results {
		assert.Equal(t, Ops[i], res.Op)
		assert.True(t, res.Committed, res.Op.String())
	}
	assert.Equal(t, StepExported, c.Step())
	assert.NotNil(t, exp.got)
	assert.Equal(t, "median", results[2].Strategy)
	assert.Equal(t, "label", results[3].Strategy)
	// keeping outliers leaves every row in place
	assert.Equal(t, 5, c.Session().Table.Rows())
}

func TestRunAllStopsOnCancel(t *testing.T) {
	p := Preset{
		Roles:    Roles{Features: []string{"Age", "Fare", "Sex"}, Target: "Survived"},
		Missing:  prep.MissingStrategy{Kind: prep.MissingDrop},
		Encoding: prep.EncodeCancel,
	}
	c, exp := presetController(t, p, titanicLoader(t))
	results, err := c.RunAll(context.Background())
	assert.ErrorIs(t, err, prep.ErrCancelled)
	require.Len(t, results, 4)
	assert.True(t, results[3].Cancelled)
	assert.Equal(t, StepMissingHandled, c.Step())
	assert.Nil(t, exp.got)
}

func TestRunAllStopsOnLoadFailure(t *testing.T) {
	boom := errors.New("boom")
	c, _ := presetController(t, Preset{}, func(context.Context) (*table.Table, Source, error) {
		return nil, Source{}, boom
	})
	results, err := c.RunAll(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Len(t, results, 1)
	assert.Equal(t, StepStart, c.Step())
}
