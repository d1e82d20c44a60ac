package export

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/tabprep/internal/pipeline"
	"github.com/KaramelBytes/tabprep/internal/source"
	"github.com/KaramelBytes/tabprep/internal/table"
	"github.com/KaramelBytes/tabprep/internal/utils"
)

func session(t *testing.T) *pipeline.Session {
	t.Helper()
	tb, err := table.New(
		table.Numbers("Age", 22, 38.5, math.NaN()),
		table.Texts("City", "Oslo", "", `Bergen "west"`),
		table.Bools("Sex_male", true, false, true),
		table.Numbers("Survived", 0, 1, 1),
	)
	require.NoError(t, err)
	s := pipeline.NewSession()
	s.Table = tb
	s.Source = pipeline.Source{Kind: "csv", Location: "/data/titanic.csv"}
	s.Roles = pipeline.Roles{Features: []string{"Age", "City", "Sex"}, Target: "Survived"}
	s.Step = pipeline.StepVisualized
	s.History = []pipeline.Stage{{Op: "load", Rows: 3, Columns: 4}}
	return s
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatCSV, "CSV": FormatCSV, ".xlsx": FormatXLSX, "excel": FormatXLSX, "db": FormatSQLite, "sqlite": FormatSQLite} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseFormat("parquet")
	assert.ErrorIs(t, err, ErrUnknownFormat)
	assert.Equal(t, ".db", FormatSQLite.Ext())
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, session(t).Table, 0))
	want := "Age,City,Sex_male,Survived\n22,Oslo,true,0\n38.5,,false,1\n,\"Bergen \"\"west\"\"\",true,1\n"
	assert.Equal(t, want, buf.String())

	buf.Reset()
	require.NoError(t, WriteCSV(&buf, session(t).Table, ';'))
	assert.Contains(t, buf.String(), "Age;City;Sex_male;Survived\n")
}

func TestColumnName(t *testing.T) {
	assert.Equal(t, "A", columnName(0))
	assert.Equal(t, "Z", columnName(25))
	assert.Equal(t, "AA", columnName(26))
	assert.Equal(t, "BA", columnName(52))
}

func TestBaseName(t *testing.T) {
	assert.Equal(t, "titanic_prepared", BaseName(pipeline.Source{Kind: "csv", Location: "/data/titanic.csv"}))
	assert.Equal(t, "book_prepared", BaseName(pipeline.Source{Kind: "xlsx", Location: "book.xlsx", Part: "Sheet 1"}))
	assert.Equal(t, "orders_prepared", BaseName(pipeline.Source{Kind: "sqlite", Location: "shop.db", Part: "orders"}))
	assert.Equal(t, "public.orders_prepared", BaseName(pipeline.Source{Kind: "postgres", Location: "postgres://h/db", Part: "public.orders"}))
	assert.Equal(t, "dataset_prepared", BaseName(pipeline.Source{}))
}

func TestMissingRoles(t *testing.T) {
	s := session(t)
	warnings := MissingRoles(s.Table, s.Roles)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], `"Sex"`)
}

func readBack(t *testing.T, path string, opt source.Options) *table.Table {
	t.Helper()
	tb, _, err := source.Open(context.Background(), path, opt)
	require.NoError(t, err)
	return tb
}

func TestExportCSVWritesManifest(t *testing.T) {
	dir := t.TempDir()
	s := session(t)
	e := New(Options{Format: FormatCSV, Dir: dir}, zerolog.Nop())
	out, err := e.Export(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "titanic_prepared.csv"), out)

	back := readBack(t, out, source.DefaultOptions())
	assert.Equal(t, s.Table.Names(), back.Names())
	assert.Equal(t, 3, back.Rows())

	raw, err := os.ReadFile(filepath.Join(dir, "titanic_prepared.manifest.json"))
	require.NoError(t, err)
	var m Manifest
	require.NoError(t, json.Unmarshal(raw, &m))
	assert.Equal(t, s.ID, m.SessionID)
	assert.NotEmpty(t, m.RunID)
	assert.Equal(t, "exported", m.Step)
	assert.Equal(t, 3, m.Rows)
	assert.Equal(t, s.Table.Names(), m.Columns)
	assert.Equal(t, FormatCSV, m.Format)
	assert.Equal(t, s.Roles, m.Roles)
	assert.Len(t, m.History, 1)
	assert.Len(t, m.Warnings, 1)
	sum, err := utils.FileChecksum(out)
	require.NoError(t, err)
	assert.Equal(t, sum, m.Checksum)
}

func TestExportXLSXRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := session(t)
	out, err := New(Options{Format: FormatXLSX, Dir: dir, Name: "out"}, zerolog.Nop()).Export(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "out.xlsx"), out)

	back := readBack(t, out, source.DefaultOptions())
	assert.Equal(t, s.Table.Names(), back.Names())
	for _, name := range s.Table.Names() {
		want, _ := s.Table.Column(name)
		got, _ := back.Column(name)
		assert.Equal(t, want.Type, got.Type, name)
		assert.Equal(t, want.Values, got.Values, name)
	}
	_, err = os.Stat(filepath.Join(dir, "out.manifest.json"))
	assert.NoError(t, err)
}

func TestExportSQLiteRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := session(t)
	e := New(Options{Format: FormatSQLite, Dir: dir, Table: "prepared"}, zerolog.Nop())
	out, err := e.Export(context.Background(), s)
	require.NoError(t, err)
	// a second export replaces the database instead of failing on CREATE TABLE
	out, err = e.Export(context.Background(), s)
	require.NoError(t, err)

	parts, err := source.Parts(context.Background(), out)
	require.NoError(t, err)
	assert.Equal(t, []string{"prepared"}, parts)

	back := readBack(t, out, source.DefaultOptions())
	assert.Equal(t, 3, back.Rows())
	age, _ := back.Column("Age")
	assert.Equal(t, []table.Value{table.Number(22), table.Number(38.5), table.Null()}, age.Values)
	city, _ := back.Column("City")
	assert.Equal(t, table.Text(`Bergen "west"`), city.Values[2])
	male, _ := back.Column("Sex_male")
	assert.Equal(t, []table.Value{table.Number(1), table.Number(0), table.Number(1)}, male.Values)
}

func TestExportWithoutTableFails(t *testing.T) {
	_, err := New(Options{Dir: t.TempDir()}, zerolog.Nop()).Export(context.Background(), pipeline.NewSession())
	assert.Error(t, err)
}
