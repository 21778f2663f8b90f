package clickhouse

import (
	"context"
	"database/sql"
	"slices"
	"strings"

	"chbridge/internal/ddl"
	"chbridge/internal/storage"
	"chbridge/internal/storage/sqlconn"
)

// searchStringEscape is the LIKE escape ClickHouse applies by default.
const searchStringEscape = `\`

var (
	_ storage.Conn     = (*Conn)(nil)
	_ storage.Metadata = (*Conn)(nil)
)

// Conn is one pinned connection to ClickHouse. Metadata, DDL and inserts all
// run on it; Abort cancels whatever is in flight and discards it.
type Conn struct {
	*sqlconn.Base
	infoSch bool
}

func newConn(c *sql.Conn, closeFn func() error, useInformationSchema bool) *Conn {
	return &Conn{
		Base:    sqlconn.New("clickhouse", c, ddl.Backtick, closeFn),
		infoSch: useInformationSchema,
	}
}

// Metadata returns c; the connection answers metadata queries itself.
func (c *Conn) Metadata() storage.Metadata { return c }

// SearchStringEscape implements storage.Metadata.
func (c *Conn) SearchStringEscape() string { return searchStringEscape }

// StoresUpperCaseIdentifiers implements storage.Metadata. ClickHouse names
// are case-sensitive and never folded.
func (c *Conn) StoresUpperCaseIdentifiers() bool { return false }

// Schemas lists every database, internal ones included.
func (c *Conn) Schemas(ctx context.Context) ([]string, error) {
	query := "SHOW DATABASES"
	if c.infoSch {
		query = "SELECT schema_name FROM information_schema.schemata ORDER BY schema_name"
	}
	ctx, done := c.Op(ctx)
	defer done()
	names, err := c.Strings(ctx, 0, query)
	if err != nil {
		return nil, storage.Wrap("list schemas", err)
	}
	return names, nil
}

// Tables lists tables and views. Name patterns are matched client side since
// ClickHouse has no LIKE ... ESCAPE clause; literal patterns still narrow the
// query.
func (c *Conn) Tables(ctx context.Context, schemaPattern, namePattern string, kinds []string) ([]storage.TableInfo, error) {
	ctx, done := c.Op(ctx)
	defer done()

	var (
		out []storage.TableInfo
		err error
	)
	if c.infoSch {
		out, err = c.tablesFromInformationSchema(ctx, schemaPattern, namePattern)
	} else {
		out, err = c.tablesFromShow(ctx, schemaPattern)
	}
	if err != nil {
		return nil, storage.Wrap("list tables", err)
	}

	filtered := out[:0]
	for _, t := range out {
		if !storage.MatchLike(schemaPattern, searchStringEscape, t.Schema) ||
			!storage.MatchLike(namePattern, searchStringEscape, t.Name) {
			continue
		}
		if len(kinds) > 0 && !slices.Contains(kinds, t.Kind) {
			continue
		}
		filtered = append(filtered, t)
	}
	return filtered, nil
}

func (c *Conn) tablesFromInformationSchema(ctx context.Context, schemaPattern, namePattern string) ([]storage.TableInfo, error) {
	query := "SELECT table_schema, table_name, table_type FROM information_schema.tables"
	var (
		where []string
		args  []any
	)
	if s, ok := storage.LiteralPattern(schemaPattern, searchStringEscape); ok && schemaPattern != "" {
		where, args = append(where, "table_schema = ?"), append(args, s)
	}
	if n, ok := storage.LiteralPattern(namePattern, searchStringEscape); ok && namePattern != "" {
		where, args = append(where, "table_name = ?"), append(args, n)
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY table_schema, table_name"

	rows, err := c.SQL.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []storage.TableInfo
	err = sqlconn.ScanText(rows, func(v []string) error {
		out = append(out, storage.TableInfo{Schema: v[0], Name: v[1], Kind: tableKind(v[2])})
		return nil
	})
	return out, err
}

func (c *Conn) tablesFromShow(ctx context.Context, schemaPattern string) ([]storage.TableInfo, error) {
	schemas, err := c.Strings(ctx, 0, "SHOW DATABASES")
	if err != nil {
		return nil, err
	}
	var out []storage.TableInfo
	for _, s := range schemas {
		if !storage.MatchLike(schemaPattern, searchStringEscape, s) {
			continue
		}
		names, err := c.Strings(ctx, 0, "SHOW TABLES FROM "+ddl.Backtick.Ident(s))
		if err != nil {
			return nil, err
		}
		for _, n := range names {
			// SHOW TABLES does not distinguish views.
			out = append(out, storage.TableInfo{Schema: s, Name: n, Kind: storage.KindTable})
		}
	}
	return out, nil
}

// Columns lists the columns of schema.table in ordinal order.
func (c *Conn) Columns(ctx context.Context, schema, table string) ([]storage.ColumnInfo, error) {
	ctx, done := c.Op(ctx)
	defer done()

	var (
		rows *sql.Rows
		err  error
	)
	if c.infoSch {
		rows, err = c.SQL.QueryContext(ctx,
			"SELECT column_name, data_type, is_nullable FROM information_schema.columns"+
				" WHERE table_schema = ? AND table_name = ? ORDER BY ordinal_position",
			schema, table)
	} else {
		// name, type, default_type, ...
		rows, err = c.SQL.QueryContext(ctx, "DESCRIBE TABLE "+ddl.Backtick.Qualified(schema, table))
	}
	if err != nil {
		return nil, storage.Wrap("list columns", err)
	}
	defer rows.Close()

	var out []storage.ColumnInfo
	err = sqlconn.ScanText(rows, func(v []string) error {
		d := Describe(v[1])
		if c.infoSch && isYes(v[2]) {
			d.Nullable = true
		}
		out = append(out, storage.ColumnInfo{Name: v[0], Descriptor: d})
		return nil
	})
	if err != nil {
		return nil, storage.Wrap("list columns", err)
	}
	return out, nil
}

func tableKind(infoSchemaType string) string {
	if strings.Contains(strings.ToUpper(infoSchemaType), "VIEW") {
		return storage.KindView
	}
	return storage.KindTable
}

func isYes(s string) bool {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "YES", "1", "TRUE":
		return true
	}
	return false
}
