package client

import (
	"context"
	"fmt"
	"strings"
	"time"

	"chbridge/internal/ddl"
	"chbridge/internal/storage"
	"chbridge/internal/types"
)

// NewColumn describes a column to create from an engine type.
type NewColumn struct {
	Name       string
	Type       types.Type
	Nullable   bool
	PrimaryKey bool
}

// CreateTable creates name with native types chosen by ToWriteMapping.
// Nullable columns are wrapped in Nullable(...). Without a primary key a
// MergeTree table is ordered by tuple().
func (c *Client) CreateTable(ctx context.Context, name ddl.QualifiedName, cols []NewColumn) (err error) {
	defer func(start time.Time) { c.step("create_table", start, err) }(time.Now())

	sql, err := c.CreateTableSQL(name, cols)
	if err != nil {
		return err
	}
	return c.withConn(ctx, func(conn storage.Conn) error {
		return c.exec(ctx, conn, sql)
	})
}

// CreateTableSQL renders the statement CreateTable would run.
func (c *Client) CreateTableSQL(name ddl.QualifiedName, cols []NewColumn) (string, error) {
	def, err := c.tableDef(name, cols)
	if err != nil {
		return "", err
	}
	return c.ddl.CreateTable(def)
}

func (c *Client) tableDef(name ddl.QualifiedName, cols []NewColumn) (ddl.TableDef, error) {
	def := ddl.TableDef{Name: name, Columns: make([]ddl.ColumnDef, 0, len(cols))}
	hasPK := false
	for _, col := range cols {
		wm, err := c.ToWriteMapping(col.Type)
		if err != nil {
			return ddl.TableDef{}, fmt.Errorf("client: column %s: %w", col.Name, err)
		}
		typ := wm.TypeName
		if col.Nullable {
			typ = "Nullable(" + typ + ")"
		}
		def.Columns = append(def.Columns, ddl.ColumnDef{
			Name:       col.Name,
			SQLType:    typ,
			Nullable:   col.Nullable,
			PrimaryKey: col.PrimaryKey,
		})
		hasPK = hasPK || col.PrimaryKey
	}

	def.Engine = c.engine
	if !hasPK && strings.HasSuffix(strings.TrimSpace(c.engine), "MergeTree") {
		def.Engine += " ORDER BY tuple()"
	}
	return def, nil
}

// RenameColumn renames column of table, folding the new name to upper case
// when the store keeps identifiers that way.
func (c *Client) RenameColumn(ctx context.Context, table ddl.QualifiedName, column, newName string) (err error) {
	defer func(start time.Time) { c.step("rename_column", start, err) }(time.Now())

	if strings.TrimSpace(column) == "" || strings.TrimSpace(newName) == "" {
		return fmt.Errorf("client: RenameColumn: column names must not be empty")
	}
	return c.withConn(ctx, func(conn storage.Conn) error {
		upper := conn.Metadata().StoresUpperCaseIdentifiers()
		return c.exec(ctx, conn, c.ddl.RenameColumn(table, column, newName, upper))
	})
}

// RenameTable moves from to to. The handle must carry its database in
// Catalog and leave Schema empty; otherwise ddl.ErrUnsupportedOperation is
// returned before any connection is opened.
func (c *Client) RenameTable(ctx context.Context, from ddl.QualifiedName, to ddl.SchemaTableName) (err error) {
	defer func(start time.Time) { c.step("rename_table", start, err) }(time.Now())

	if _, err := c.ddl.RenameTable(ddl.RenameRequest{From: from, To: to}); err != nil {
		return err
	}
	return c.withConn(ctx, func(conn storage.Conn) error {
		sql, err := c.ddl.RenameTable(ddl.RenameRequest{
			From:      from,
			To:        to,
			UpperCase: conn.Metadata().StoresUpperCaseIdentifiers(),
		})
		if err != nil {
			return err
		}
		return c.exec(ctx, conn, sql)
	})
}

// CopyTableSchema creates newTable next to source with the same layout.
func (c *Client) CopyTableSchema(ctx context.Context, source ddl.QualifiedName, newTable string) (err error) {
	defer func(start time.Time) { c.step("copy_table_schema", start, err) }(time.Now())

	return c.withConn(ctx, func(conn storage.Conn) error {
		return c.copyTableSchema(ctx, conn, source, newTable)
	})
}

func (c *Client) copyTableSchema(ctx context.Context, conn storage.Conn, source ddl.QualifiedName, newTable string) error {
	if strings.TrimSpace(newTable) == "" {
		return fmt.Errorf("client: CopyTableSchema: new table name must not be empty")
	}
	target := source
	target.Table = newTable
	return c.exec(ctx, conn, c.ddl.CreateTableLike(target, source))
}

// DropTable removes name.
func (c *Client) DropTable(ctx context.Context, name ddl.QualifiedName) (err error) {
	defer func(start time.Time) { c.step("drop_table", start, err) }(time.Now())

	return c.withConn(ctx, func(conn storage.Conn) error {
		return c.exec(ctx, conn, c.ddl.DropTable(name))
	})
}
