package export

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/KaramelBytes/tabprep/internal/table"
	"github.com/KaramelBytes/tabprep/internal/utils"
)

// WriteSQLite stores t as table name in a new SQLite database at path. The
// database is built in a temp file and renamed into place, replacing any
// existing file.
func WriteSQLite(ctx context.Context, path, name string, t *table.Table) error {
	tmp := path + ".tmp"
	_ = os.Remove(tmp)
	if err := fillSQLite(ctx, tmp, name, t); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return utils.CommitFile(tmp, path)
}

func fillSQLite(ctx context.Context, path, name string, t *table.Table) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("sqlite: open: %w", err)
	}
	defer db.Close()

	defs := make([]string, t.Width())
	marks := make([]string, t.Width())
	for i, c := range t.Columns() {
		defs[i] = quoteIdent(c.Name) + " " + sqlType(c.Type)
		marks[i] = "?"
	}
	if _, err := db.ExecContext(ctx, "CREATE TABLE "+quoteIdent(name)+" ("+strings.Join(defs, ", ")+")"); err != nil {
		return fmt.Errorf("sqlite: create %s: %w", name, err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	defer tx.Rollback()
	stmt, err := tx.PrepareContext(ctx, "INSERT INTO "+quoteIdent(name)+" VALUES ("+strings.Join(marks, ", ")+")")
	if err != nil {
		return fmt.Errorf("sqlite: prepare: %w", err)
	}
	defer stmt.Close()
	args := make([]any, t.Width())
	for i := 0; i < t.Rows(); i++ {
		for j, v := range t.Row(i) {
			args[j] = sqlArg(v)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("sqlite: insert row %d: %w", i+1, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	return nil
}

func sqlType(t table.Type) string {
	switch t {
	case table.TypeNumber:
		return "REAL"
	case table.TypeBool:
		return "INTEGER"
	}
	return "TEXT"
}

// sqlArg maps a cell onto a driver value. Booleans are stored as 0/1.
func sqlArg(v table.Value) any {
	switch v.Kind() {
	case table.KindNumber:
		f, _ := v.Float()
		return f
	case table.KindBool:
		if b, _ := v.Truth(); b {
			return int64(1)
		}
		return int64(0)
	case table.KindText:
		return v.String()
	}
	return nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
