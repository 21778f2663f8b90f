package client

import (
	"context"
	"path/filepath"
	"testing"

	"chbridge/internal/ddl"
	"chbridge/internal/mapping"
	"chbridge/internal/storage"
	"chbridge/internal/storage/sqlite"
	"chbridge/internal/types"
)

// sqliteClient points a Client at a file database so every operation's
// fresh connection sees the same data.
func sqliteClient(t *testing.T) *Client {
	t.Helper()

	path := filepath.Join(t.TempDir(), "bridge.db")
	open := func(ctx context.Context) (storage.Conn, error) { return sqlite.Open(ctx, path) }

	seed, err := sqlite.Open(context.Background(), path)
	if err != nil {
		t.Fatalf("sqlite.Open() error = %v", err)
	}
	defer seed.Close()
	for _, s := range []string{
		`CREATE TABLE orders (id INTEGER NOT NULL, label VARCHAR(20), amount DECIMAL(10, 2), payload JSON)`,
		`INSERT INTO orders VALUES (1, 'first', 12.5, '{"b":1,"a":2}'), (2, NULL, 0.25, NULL)`,
		`CREATE TABLE order_items (order_id INTEGER, sku TEXT)`,
		`CREATE VIEW big_orders AS SELECT id FROM orders WHERE amount > 10`,
	} {
		if err := seed.Exec(context.Background(), s); err != nil {
			t.Fatalf("seed %q: %v", s, err)
		}
	}
	return New("local", open, mapping.DefaultSession())
}

func TestSQLite_CatalogAndDescribe(t *testing.T) {
	t.Parallel()

	c := sqliteClient(t)
	ctx := context.Background()

	schemas, err := c.ListSchemas(ctx)
	if err != nil {
		t.Fatalf("ListSchemas() error = %v", err)
	}
	if _, ok := schemas["main"]; !ok {
		t.Fatalf("ListSchemas() = %v, want main", schemas)
	}

	tables, err := c.GetTables(ctx, "main", "order_items")
	if err != nil {
		t.Fatalf("GetTables() error = %v", err)
	}
	if len(tables) != 1 || tables[0].Name != "order_items" {
		t.Fatalf("GetTables(order_items) = %v", tables)
	}

	cols, err := c.DescribeTable(ctx, "main", "orders")
	if err != nil {
		t.Fatalf("DescribeTable() error = %v", err)
	}
	want := []types.Type{types.Bigint, types.Varchar(20), types.MustDecimal(10, 2), types.JSONType}
	if len(cols) != len(want) {
		t.Fatalf("DescribeTable() = %d columns, want %d", len(cols), len(want))
	}
	for i, w := range want {
		if cols[i].Mapping.Type != w {
			t.Fatalf("column %s = %v, want %v", cols[i].Name, cols[i].Mapping.Type, w)
		}
	}
	if cols[0].Descriptor.Nullable || !cols[1].Descriptor.Nullable {
		t.Fatalf("nullability = %t/%t, want false/true", cols[0].Descriptor.Nullable, cols[1].Descriptor.Nullable)
	}

	all, err := c.DescribeSchema(ctx, "main")
	if err != nil {
		t.Fatalf("DescribeSchema() error = %v", err)
	}
	if _, ok := all["big_orders"]; !ok || len(all) != 3 {
		t.Fatalf("DescribeSchema() tables = %v", sortedKeys(all))
	}
}

func TestSQLite_ScanWithLimit(t *testing.T) {
	t.Parallel()

	c := sqliteClient(t)
	ctx := context.Background()

	cols, err := c.DescribeTable(ctx, "main", "orders")
	if err != nil {
		t.Fatalf("DescribeTable() error = %v", err)
	}
	conn, err := c.OpenReadConnection(ctx)
	if err != nil {
		t.Fatalf("OpenReadConnection() error = %v", err)
	}
	defer conn.Close()

	var rows [][]any
	err = c.Scan(ctx, conn, ddl.QualifiedName{Schema: "main", Table: "orders"}, cols, 1, func(r []any) error {
		rows = append(rows, r)
		return nil
	})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("Scan(limit 1) rows = %d, want 1", len(rows))
	}
	r := rows[0]
	if r[0] != int64(1) || r[1] != "first" {
		t.Fatalf("row = %#v", r)
	}
	if doc, ok := r[3].(types.JSON); !ok || doc.String() != `{"a":2,"b":1}` {
		t.Fatalf("payload = %#v, want canonical JSON", r[3])
	}
}

func TestSQLite_RenameColumn(t *testing.T) {
	t.Parallel()

	c := sqliteClient(t)
	ctx := context.Background()

	if err := c.RenameColumn(ctx, ddl.QualifiedName{Schema: "main", Table: "order_items"}, "sku", "product_code"); err != nil {
		t.Fatalf("RenameColumn() error = %v", err)
	}
	cols, err := c.DescribeTable(ctx, "main", "order_items")
	if err != nil {
		t.Fatalf("DescribeTable() error = %v", err)
	}
	if len(cols) != 2 || cols[1].Name != "product_code" {
		t.Fatalf("columns after rename = %+v", cols)
	}
}
