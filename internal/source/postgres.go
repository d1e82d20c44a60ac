package source

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/KaramelBytes/tabprep/internal/pipeline"
	"github.com/KaramelBytes/tabprep/internal/table"
)

type postgresReader struct{}

func (postgresReader) Kind() string { return "postgres" }

func (postgresReader) CanRead(location string) bool {
	l := strings.ToLower(location)
	return strings.HasPrefix(l, "postgres://") || strings.HasPrefix(l, "postgresql://")
}

func (postgresReader) List(ctx context.Context, location string) ([]string, error) {
	conn, err := pgx.Connect(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	defer conn.Close(ctx)
	return postgresTables(ctx, conn)
}

func postgresTables(ctx context.Context, conn *pgx.Conn) ([]string, error) {
	rows, err := conn.Query(ctx, `SELECT table_schema, table_name FROM information_schema.tables
		WHERE table_type = 'BASE TABLE' AND table_schema NOT IN ('pg_catalog', 'information_schema')
		ORDER BY table_schema, table_name`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list tables: %w", err)
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var schema, name string
		if err := rows.Scan(&schema, &name); err != nil {
			return nil, fmt.Errorf("postgres: list tables: %w", err)
		}
		names = append(names, schema+"."+name)
	}
	return names, rows.Err()
}

func (postgresReader) Read(ctx context.Context, location string, opt Options) (*table.Table, pipeline.Source, error) {
	src := pipeline.Source{Kind: "postgres", Location: RedactDSN(location)}
	conn, err := pgx.Connect(ctx, location)
	if err != nil {
		return nil, src, fmt.Errorf("postgres: connect: %w", err)
	}
	defer conn.Close(ctx)
	names, err := postgresTables(ctx, conn)
	if err != nil {
		return nil, src, err
	}
	if opt.Part != "" && !strings.Contains(opt.Part, ".") {
		opt.Part = "public." + opt.Part
	}
	name, err := pickPart(names, opt)
	if err != nil {
		return nil, src, fmt.Errorf("postgres: %w", err)
	}
	src.Part = name
	schema, tbl, _ := strings.Cut(name, ".")
	rows, err := conn.Query(ctx, "SELECT * FROM "+pgx.Identifier{schema, tbl}.Sanitize())
	if err != nil {
		return nil, src, fmt.Errorf("postgres: select %s: %w", name, err)
	}
	defer rows.Close()
	fields := rows.FieldDescriptions()
	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = f.Name
	}
	var records [][]table.Value
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, src, fmt.Errorf("postgres: values: %w", err)
		}
		rec := make([]table.Value, len(vals))
		for i, v := range vals {
			rec[i] = pgValue(v, opt)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, src, fmt.Errorf("postgres: rows: %w", err)
	}
	t, err := fromValues(cols, records, opt)
	return t, src, err
}

// pgValue maps the Go values pgx decodes into cells.
func pgValue(v any, opt Options) table.Value {
	switch x := v.(type) {
	case pgtype.Numeric:
		if !x.Valid {
			return table.Null()
		}
		f, err := x.Float64Value()
		if err != nil || !f.Valid {
			return table.Null()
		}
		return table.Number(f.Float64)
	case uint32:
		return table.Number(float64(x))
	}
	return dbValue(v, opt)
}

// RedactDSN removes the password from a connection URL.
func RedactDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.User == nil {
		return dsn
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}
