// Package export writes the working table to CSV, XLSX or a SQLite table and
// records a JSON manifest of the run next to the output.
package export

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/KaramelBytes/tabprep/internal/pipeline"
	"github.com/KaramelBytes/tabprep/internal/table"
	"github.com/KaramelBytes/tabprep/internal/utils"
)

// Format is an output file format.
type Format string

const (
	FormatCSV    Format = "csv"
	FormatXLSX   Format = "xlsx"
	FormatSQLite Format = "sqlite"
)

// Formats lists the supported formats in menu order.
var Formats = []Format{FormatCSV, FormatXLSX, FormatSQLite}

// ErrUnknownFormat is returned for an unsupported format name.
var ErrUnknownFormat = errors.New("unknown export format")

// ParseFormat maps a format name or file extension onto a Format. An empty
// name is CSV.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), ".")) {
	case "", "csv":
		return FormatCSV, nil
	case "xlsx", "excel":
		return FormatXLSX, nil
	case "sqlite", "sqlite3", "db":
		return FormatSQLite, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
}

// Ext returns the file extension written for f.
func (f Format) Ext() string {
	if f == FormatSQLite {
		return ".db"
	}
	return "." + string(f)
}

// Options controls where and how a table is exported.
type Options struct {
	Format Format
	// Dir is the output directory; the current directory when empty.
	Dir string
	// Name is the output file name without extension. Derived from the
	// source when empty.
	Name string
	// Table names the SQLite table written; "data" when empty.
	Table string
	// Delimiter for CSV output; ',' when 0.
	Delimiter rune
}

// Exporter writes sessions to files. It satisfies pipeline.Exporter.
type Exporter struct {
	Options Options
	Log     zerolog.Logger
}

// New returns an Exporter for opt.
func New(opt Options, log zerolog.Logger) *Exporter {
	return &Exporter{Options: opt, Log: log}
}

// Export writes the session's table and its manifest and returns the output
// path.
func (e *Exporter) Export(ctx context.Context, s *pipeline.Session) (string, error) {
	if s == nil || s.Table == nil {
		return "", errors.New("export: no table loaded")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	format := e.Options.Format
	if format == "" {
		format = FormatCSV
	}
	dir := e.Options.Dir
	if dir == "" {
		dir = "."
	}
	if err := utils.EnsureDir(dir); err != nil {
		return "", fmt.Errorf("export: create %s: %w", dir, err)
	}
	name := e.Options.Name
	if name == "" {
		name = BaseName(s.Source)
	}
	out := filepath.Join(dir, name+format.Ext())

	warnings := MissingRoles(s.Table, s.Roles)
	for _, w := range warnings {
		e.Log.Warn().Str("output", out).Msg(w)
	}

	var err error
	switch format {
	case FormatCSV:
		err = WriteCSVFile(out, s.Table, e.Options.Delimiter)
	case FormatXLSX:
		err = WriteXLSXFile(out, s.Table, "Data")
	case FormatSQLite:
		tbl := e.Options.Table
		if tbl == "" {
			tbl = "data"
		}
		err = WriteSQLite(ctx, out, tbl, s.Table)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if err != nil {
		return "", fmt.Errorf("export %s: %w", format, err)
	}

	m, err := NewManifest(s, format, out, warnings)
	if err != nil {
		return "", err
	}
	mpath := ManifestPath(out)
	if err := m.Write(mpath); err != nil {
		return "", err
	}
	e.Log.Info().Str("output", out).Str("manifest", mpath).Int("rows", s.Table.Rows()).Int("columns", s.Table.Width()).Msg("table exported")
	return out, nil
}

// BaseName derives an output name from the source: the file stem, or the
// sheet or table name, followed by "_prepared".
func BaseName(src pipeline.Source) string {
	stem := ""
	switch {
	case src.Part != "" && src.Kind != "xlsx":
		stem = src.Part
	case src.Location != "" && !strings.Contains(src.Location, "://"):
		stem = strings.TrimSuffix(filepath.Base(src.Location), filepath.Ext(src.Location))
	}
	stem = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			return '_'
		}
		return r
	}, stem)
	if stem == "" || stem == "." {
		stem = "dataset"
	}
	return stem + "_prepared"
}

// MissingRoles lists warnings for feature and target columns that are no
// longer in t, as happens after one-hot encoding.
func MissingRoles(t *table.Table, roles pipeline.Roles) []string {
	var out []string
	for _, f := range roles.Features {
		if !t.Has(f) {
			out = append(out, fmt.Sprintf("feature column %q is no longer in the table", f))
		}
	}
	if roles.Target != "" && !t.Has(roles.Target) {
		out = append(out, fmt.Sprintf("target column %q is no longer in the table", roles.Target))
	}
	return out
}

// Manifest describes one export.
type Manifest struct {
	RunID     string           `json:"run_id"`
	SessionID string           `json:"session_id"`
	Created   time.Time        `json:"created"`
	Source    pipeline.Source  `json:"source"`
	Roles     pipeline.Roles   `json:"roles"`
	Step      string           `json:"step"`
	History   []pipeline.Stage `json:"history"`
	Rows      int              `json:"rows"`
	Columns   []string         `json:"columns"`
	Format    Format           `json:"format"`
	Output    string           `json:"output"`
	Checksum  string           `json:"checksum_xxh3"`
	Warnings  []string         `json:"warnings,omitempty"`
}

// NewManifest describes the export of s to out. The step recorded is the
// one the export completes.
func NewManifest(s *pipeline.Session, format Format, out string, warnings []string) (*Manifest, error) {
	sum, err := utils.FileChecksum(out)
	if err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}
	return &Manifest{
		RunID:     uuid.NewString(),
		SessionID: s.ID,
		Created:   time.Now().UTC(),
		Source:    s.Source,
		Roles:     s.Roles,
		Step:      pipeline.OpExport.Completes().String(),
		History:   append([]pipeline.Stage(nil), s.History...),
		Rows:      s.Table.Rows(),
		Columns:   s.Table.Names(),
		Format:    format,
		Output:    out,
		Checksum:  sum,
		Warnings:  warnings,
	}, nil
}

// ManifestPath returns the manifest location for an output file.
func ManifestPath(out string) string {
	return strings.TrimSuffix(out, filepath.Ext(out)) + ".manifest.json"
}

// Write stores the manifest as pretty JSON.
func (m *Manifest) Write(path string) error {
	b, err := utils.PrettyJSON(m)
	if err != nil {
		return err
	}
	if err := utils.SafeWriteFile(path, b); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}
