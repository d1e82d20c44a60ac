package source

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/KaramelBytes/tabprep/internal/pipeline"
	"github.com/KaramelBytes/tabprep/internal/table"
)

type sqliteReader struct{}

func (sqliteReader) Kind() string { return "sqlite" }

func (sqliteReader) CanRead(location string) bool {
	switch strings.ToLower(filepath.Ext(location)) {
	case ".db", ".sqlite", ".sqlite3":
		return true
	}
	return false
}

func openSQLite(ctx context.Context, location string) (*sql.DB, error) {
	if _, err := os.Stat(location); err != nil {
		return nil, fmt.Errorf("sqlite: %w", err)
	}
	db, err := sql.Open("sqlite", location)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	return db, nil
}

func (sqliteReader) List(ctx context.Context, location string) ([]string, error) {
	db, err := openSQLite(ctx, location)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return sqliteTables(ctx, db)
}

func sqliteTables(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list tables: %w", err)
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("sqlite: list tables: %w", err)
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

func (sqliteReader) Read(ctx context.Context, location string, opt Options) (*table.Table, pipeline.Source, error) {
	src := pipeline.Source{Kind: "sqlite", Location: location}
	db, err := openSQLite(ctx, location)
	if err != nil {
		return nil, src, err
	}
	defer db.Close()
	names, err := sqliteTables(ctx, db)
	if err != nil {
		return nil, src, err
	}
	name, err := pickPart(names, opt)
	if err != nil {
		return nil, src, fmt.Errorf("sqlite %s: %w", filepath.Base(location), err)
	}
	src.Part = name
	rows, err := db.QueryContext(ctx, "SELECT * FROM "+quoteIdent(name))
	if err != nil {
		return nil, src, fmt.Errorf("sqlite: select %s: %w", name, err)
	}
	defer rows.Close()
	cols, err := rows.Columns()
	if err != nil {
		return nil, src, fmt.Errorf("sqlite: columns: %w", err)
	}
	var records [][]table.Value
	for rows.Next() {
		raw := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, src, fmt.Errorf("sqlite: scan: %w", err)
		}
		rec := make([]table.Value, len(cols))
		for i, v := range raw {
			rec[i] = dbValue(v, opt)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, src, fmt.Errorf("sqlite: rows: %w", err)
	}
	t, err := fromValues(cols, records, opt)
	return t, src, err
}

// quoteIdent quotes a SQL identifier with double quotes.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// dbValue maps a driver value onto a cell. Integers and floats become
// numbers; text stays text unless it is a null token.
func dbValue(v any, opt Options) table.Value {
	switch x := v.(type) {
	case nil:
		return table.Null()
	case int64:
		return table.Number(float64(x))
	case int32:
		return table.Number(float64(x))
	case int16:
		return table.Number(float64(x))
	case int8:
		return table.Number(float64(x))
	case int:
		return table.Number(float64(x))
	case float64:
		return table.Number(x)
	case float32:
		return table.Number(float64(x))
	case bool:
		return table.Bool(x)
	case []byte:
		return textValue(string(x), opt)
	case string:
		return textValue(x, opt)
	case time.Time:
		return table.Text(x.Format(time.RFC3339))
	case fmt.Stringer:
		return textValue(x.String(), opt)
	}
	return textValue(fmt.Sprint(v), opt)
}

func textValue(s string, opt Options) table.Value {
	if isNull(s, opt) {
		return table.Null()
	}
	return table.Text(s)
}

// fromValues assembles a table from already typed records. A column whose
// present values all came back as text is inferred like a delimited text
// column, so numbers and booleans stored as TEXT keep their meaning.
func fromValues(names []string, records [][]table.Value, opt Options) (*table.Table, error) {
	if len(names) == 0 {
		return nil, ErrEmpty
	}
	names = cleanHeader(names)
	cols := make([]*table.Column, len(names))
	for c := range names {
		vals := make([]table.Value, len(records))
		for r, rec := range records {
			vals[r] = rec[c]
		}
		inferText(vals, opt)
		cols[c] = table.NewColumn(names[c], vals)
	}
	return table.New(cols...)
}

// inferText reparses vals in place when it holds at least one text value and
// nothing but text and nulls.
func inferText(vals []table.Value, opt Options) {
	var (
		cells []string
		at    []int
	)
	for i, v := range vals {
		switch v.Kind() {
		case table.KindNull:
		case table.KindText:
			cells = append(cells, v.String())
			at = append(at, i)
		default:
			return
		}
	}
	if len(cells) == 0 {
		return
	}
	col := inferColumn("", cells, opt)
	for j, i := range at {
		vals[i] = col.Values[j]
	}
}
