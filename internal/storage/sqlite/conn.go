// Package sqlite is a local storage backend over modernc.org/sqlite. It
// stands in for ClickHouse when running the bridge offline: attached
// databases play the role of schemas, and column declarations are classified
// into the same descriptors the mapping bridge consumes. It registers as
// storage kind "sqlite".
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"slices"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"chbridge/internal/ddl"
	"chbridge/internal/storage"
	"chbridge/internal/storage/sqlconn"
)

const searchStringEscape = `\`

// quoter uses ANSI double quotes.
var quoter = ddl.Quoter{Quote: `"`, Separator: "."}

var (
	_ storage.Conn     = (*Conn)(nil)
	_ storage.Metadata = (*Conn)(nil)
)

// Conn is a pinned SQLite connection.
type Conn struct {
	*sqlconn.Base
}

// openDB is a test hook that points to sql.Open by default.
var openDB = func(dsn string) (*sql.DB, error) { return sql.Open("sqlite", dsn) }

func init() {
	storage.Register("sqlite", func(ctx context.Context, cfg storage.Config) (storage.Conn, error) {
		return Open(ctx, cfg.DSN)
	})
}

// Open opens dsn and pins one connection. DSN is passed to the driver, e.g.
//
//	"file:bridge.db?cache=shared"
//	":memory:"
func Open(ctx context.Context, dsn string) (*Conn, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("sqlite: DSN must not be empty")
	}
	db, err := openDB(dsn)
	if err != nil {
		return nil, storage.Wrap("open", err)
	}
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	c, err := db.Conn(pingCtx)
	if err == nil {
		err = c.PingContext(pingCtx)
	}
	if err != nil {
		if c != nil {
			_ = c.Close()
		}
		_ = db.Close()
		return nil, storage.Wrap("connect", err)
	}

	log.Printf("sqlite: opened dsn=%s", dsn)
	return &Conn{Base: sqlconn.New("sqlite", c, quoter, db.Close)}, nil
}

// Metadata returns c.
func (c *Conn) Metadata() storage.Metadata { return c }

// SearchStringEscape implements storage.Metadata.
func (c *Conn) SearchStringEscape() string { return searchStringEscape }

// StoresUpperCaseIdentifiers implements storage.Metadata.
func (c *Conn) StoresUpperCaseIdentifiers() bool { return false }

// Schemas lists the main database and every attached one.
func (c *Conn) Schemas(ctx context.Context) ([]string, error) {
	ctx, done := c.Op(ctx)
	defer done()
	// seq, name, file
	names, err := c.Strings(ctx, 1, "PRAGMA database_list")
	if err != nil {
		return nil, storage.Wrap("list schemas", err)
	}
	return names, nil
}

// Tables lists tables and views from each matching schema's sqlite_master.
func (c *Conn) Tables(ctx context.Context, schemaPattern, namePattern string, kinds []string) ([]storage.TableInfo, error) {
	schemas, err := c.Schemas(ctx)
	if err != nil {
		return nil, err
	}

	ctx, done := c.Op(ctx)
	defer done()

	var out []storage.TableInfo
	for _, s := range schemas {
		if !storage.MatchLike(schemaPattern, searchStringEscape, s) {
			continue
		}
		rows, err := c.SQL.QueryContext(ctx, fmt.Sprintf(
			"SELECT name, type FROM %s.sqlite_master WHERE type IN ('table', 'view') ORDER BY name",
			quoter.Ident(s)))
		if err != nil {
			return nil, storage.Wrap("list tables", err)
		}
		err = sqlconn.ScanText(rows, func(v []string) error {
			if strings.HasPrefix(v[0], "sqlite_") || !storage.MatchLike(namePattern, searchStringEscape, v[0]) {
				return nil
			}
			kind := storage.KindTable
			if v[1] == "view" {
				kind = storage.KindView
			}
			if len(kinds) > 0 && !slices.Contains(kinds, kind) {
				return nil
			}
			out = append(out, storage.TableInfo{Schema: s, Name: v[0], Kind: kind})
			return nil
		})
		rows.Close()
		if err != nil {
			return nil, storage.Wrap("list tables", err)
		}
	}
	return out, nil
}

// Columns lists the declared columns of schema.table.
func (c *Conn) Columns(ctx context.Context, schema, table string) ([]storage.ColumnInfo, error) {
	ctx, done := c.Op(ctx)
	defer done()

	if schema == "" {
		schema = "main"
	}
	rows, err := c.SQL.QueryContext(ctx,
		`SELECT name, type, "notnull" FROM pragma_table_info(?, ?) ORDER BY cid`, table, schema)
	if err != nil {
		return nil, storage.Wrap("list columns", err)
	}
	defer rows.Close()

	var out []storage.ColumnInfo
	err = sqlconn.ScanText(rows, func(v []string) error {
		d := Describe(v[1])
		d.Nullable = v[2] == "0"
		out = append(out, storage.ColumnInfo{Name: v[0], Descriptor: d})
		return nil
	})
	if err != nil {
		return nil, storage.Wrap("list columns", err)
	}
	if len(out) == 0 {
		return nil, storage.Wrap("list columns", fmt.Errorf("table %s not found", quoter.Qualified(schema, table)))
	}
	return out, nil
}
