package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chbridge/internal/rowsource"
	"chbridge/internal/storage/sqlite"
	"chbridge/internal/types"
)

func noEnv(string) string { return "" }

// run executes the CLI in-process with stdout and stderr captured together.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand(noEnv)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCommandPresence(t *testing.T) {
	cmd := newRootCommand(noEnv)
	for _, name := range []string{
		"schemas", "tables", "describe", "scan", "load", "ddl",
		"canon-json", "read-type", "write-type", "limit", "validate",
	} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err, "command %s", name)
		assert.Equal(t, name, sub.Name())
	}

	set := cmd.PersistentFlags().Lookup("set")
	require.NotNil(t, set)
	assert.Equal(t, "s", set.Shorthand)
}

func TestCanonJSON(t *testing.T) {
	out, err := run(t, "", "canon-json", `{ "b": [1, 2.50], "a": "x" }`)
	require.NoError(t, err)
	assert.Equal(t, `{"a":"x","b":[1,2.50]}`+"\n", out)

	out, err = run(t, `{"z":null,"y":true}`, "canon-json", "--fingerprint")
	require.NoError(t, err)
	fp, doc, ok := strings.Cut(strings.TrimSpace(out), "\t")
	require.True(t, ok, out)
	assert.Len(t, fp, 16)
	assert.Equal(t, `{"y":true,"z":null}`, doc)

	_, err = run(t, "", "canon-json", `{"a":`)
	assert.Error(t, err)
}

func TestReadType(t *testing.T) {
	out, err := run(t, "", "read-type", "Int32", "Nullable(Decimal(40, 10))", "UUID", "JSON")
	require.NoError(t, err)
	assert.Equal(t, "Int32\tinteger\n"+
		"Nullable(Decimal(40, 10))\tunsupported\n"+
		"UUID\tunsupported\n"+
		"JSON\tjson\n", out)

	out, err = run(t, "",
		"--set", "decimal-mapping=allow_overflow",
		"--set", "decimal-default-scale=4",
		"--set", "jdbc-types-mapped-to-varchar=uuid",
		"read-type", "Nullable(Decimal(40, 10))", "UUID")
	require.NoError(t, err)
	assert.Equal(t, "Nullable(Decimal(40, 10))\tdecimal(38,4)\nUUID\tvarchar\n", out)
}

func TestWriteType(t *testing.T) {
	out, err := run(t, "", "write-type", "bigint", "varchar(300)", "timestamp with time zone")
	require.NoError(t, err)
	assert.Equal(t, "bigint\tbigint\nvarchar(300)\ttext\ntimestamp with time zone\tunsupported\n", out)

	out, err = run(t, "", "--format", "json", "write-type", "real")
	require.NoError(t, err)
	var rows []typeRow
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "float", rows[0].Native)
	assert.True(t, rows[0].Supported)

	_, err = run(t, "", "write-type", "interval")
	assert.Error(t, err)
}

func TestLimit(t *testing.T) {
	out, err := run(t, "", "limit", "SELECT * FROM t", "5")
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM t LIMIT 5\n", out)

	out, err = run(t, "", "--format", "json", "limit", "SELECT 1", "0")
	require.NoError(t, err)
	assert.JSONEq(t, `{"sql":"SELECT 1 LIMIT 0","guaranteed":true}`, out)

	_, err = run(t, "", "limit", "SELECT 1", "-1")
	assert.Error(t, err)
}

func TestDDLDryRun(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    string
		wantErr bool
	}{
		{
			name: "rename column upper",
			args: []string{"ddl", "rename-column", "--dry-run", "--upper", "sales.orders", "note", "memo"},
			want: "ALTER TABLE `sales`.`orders` RENAME COLUMN `note` TO `MEMO`",
		},
		{
			name: "rename table",
			args: []string{"ddl", "rename-table", "--dry-run", "sales.orders", "archive.orders_old"},
			want: "ALTER TABLE `sales`.`orders` RENAME TO `archive`.`orders_old`",
		},
		{
			name:    "rename table with schema",
			args:    []string{"ddl", "rename-table", "--dry-run", "cat.sales.orders", "archive.orders_old"},
			wantErr: true,
		},
		{
			name: "copy table",
			args: []string{"ddl", "copy-table", "--dry-run", "sales.orders", "orders_copy"},
			want: "CREATE TABLE `sales`.`orders_copy` LIKE `sales`.`orders`",
		},
		{
			name: "drop table",
			args: []string{"ddl", "drop-table", "--dry-run", "orders"},
			want: "DROP TABLE `orders`",
		},
		{
			name: "create table",
			args: []string{"ddl", "create-table", "--dry-run", "sales.orders",
				"--column", "id:bigint:pk", "--column", "note:varchar(20):null"},
			want: "CREATE TABLE `sales`.`orders` (\n  `id` bigint NOT NULL,\n  `note` Nullable(tinytext),\n  PRIMARY KEY (`id`)\n) ENGINE = MergeTree;",
		},
		{
			name:    "create table bad attribute",
			args:    []string{"ddl", "create-table", "--dry-run", "t", "--column", "id:bigint:unique"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, "", tt.args...)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want+"\n", out)
		})
	}
}

func TestValidate(t *testing.T) {
	out, err := run(t, "", "validate")
	require.Error(t, err)
	assert.Contains(t, out, "error at connection-url")

	out, err = run(t, "", "--set", "storage-kind=sqlite", "--set", "connection-url=:memory:", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "configuration is valid: catalog=clickhouse storage=sqlite")
	assert.Contains(t, out, "sqlite")

	_, err = run(t, "", "--set", "nonsense", "validate")
	assert.Error(t, err)
	_, err = run(t, "", "--format", "yaml", "validate")
	assert.Error(t, err)
}

func TestConnectRejectsInvalidConfig(t *testing.T) {
	out, err := run(t, "", "schemas")
	require.Error(t, err)
	assert.Contains(t, out, "connection-url")
}

// seedSQLite creates a file database and returns the flags pointing at it.
func seedSQLite(t *testing.T) []string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cli.db")
	conn, err := sqlite.Open(context.Background(), path)
	require.NoError(t, err)
	defer conn.Close()
	for _, s := range []string{
		`CREATE TABLE orders (id INTEGER NOT NULL, label VARCHAR(20), payload JSON)`,
		`INSERT INTO orders VALUES (1, 'first', '{"b":1,"a":2}'), (2, NULL, NULL)`,
		`CREATE TABLE order_items (order_id INTEGER, sku TEXT)`,
	} {
		require.NoError(t, conn.Exec(context.Background(), s))
	}
	return []string{"--set", "catalog=local", "--set", "storage-kind=sqlite", "--set", "connection-url=" + path}
}

func TestSQLiteCommands(t *testing.T) {
	flags := seedSQLite(t)
	with := func(args ...string) []string { return append(append([]string{}, flags...), args...) }

	out, err := run(t, "", with("schemas")...)
	require.NoError(t, err)
	assert.Equal(t, "main\n", out)

	out, err = run(t, "", with("tables", "main", "order_items")...)
	require.NoError(t, err)
	assert.Equal(t, "main\torder_items\tTABLE\n", out)

	out, err = run(t, "", with("describe", "main", "orders")...)
	require.NoError(t, err)
	assert.Equal(t, "orders\tid\tINTEGER\tbigint\tNOT NULL\n"+
		"orders\tlabel\tVARCHAR\tvarchar(20)\tNULL\n"+
		"orders\tpayload\tJSON\tjson\tNULL\n", out)

	out, err = run(t, "", with("describe", "main")...)
	require.NoError(t, err)
	assert.Contains(t, out, "order_items\tsku\tTEXT\tvarchar\tNULL\n")

	out, err = run(t, "", with("scan", "main", "orders")...)
	require.NoError(t, err)
	assert.Equal(t, "1\tfirst\t{\"a\":2,\"b\":1}\n2\tNULL\tNULL\n", out)

	out, err = run(t, "", with("--format", "json", "scan", "main", "orders", "--limit", "1", "--columns", "payload,id")...)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1,"payload":{"a":2,"b":1}}`, out)

	_, err = run(t, "", with("scan", "main", "orders", "--columns", "missing")...)
	assert.Error(t, err)

	_, err = run(t, "", with("ddl", "rename-column", "main.order_items", "sku", "product_code")...)
	require.NoError(t, err)
	out, err = run(t, "", with("describe", "main", "order_items")...)
	require.NoError(t, err)
	assert.Contains(t, out, "order_items\tproduct_code\tTEXT")
}

func TestCanonicalValue(t *testing.T) {
	num := json.Number
	tests := []struct {
		name    string
		in      any
		typ     types.Type
		want    any
		wantErr bool
	}{
		{name: "null", in: nil, typ: types.Bigint, want: nil},
		{name: "bigint", in: num("42"), typ: types.Bigint, want: int64(42)},
		{name: "bigint fraction", in: num("4.2"), typ: types.Bigint, wantErr: true},
		{name: "real", in: num("1.5"), typ: types.Real, want: float32(1.5)},
		{name: "double", in: num("2.25"), typ: types.Double, want: 2.25},
		{name: "decimal number", in: num("12.50"), typ: types.MustDecimal(10, 2), want: "12.50"},
		{name: "decimal text", in: "0.01", typ: types.MustDecimal(10, 2), want: "0.01"},
		{name: "varchar", in: "abc", typ: types.Varchar(5), want: "abc"},
		{name: "varchar number", in: num("1"), typ: types.Varchar(5), wantErr: true},
		{name: "boolean", in: true, typ: types.Boolean, want: true},
		{name: "varbinary", in: "hi", typ: types.Varbinary, want: []byte("hi")},
		{name: "date", in: "2024-02-29", typ: types.Date, want: time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)},
		{name: "time", in: "01:02:03", typ: types.Time, want: time.Hour + 2*time.Minute + 3*time.Second},
		{name: "timestamp", in: "2024-02-29 10:11:12", typ: types.Timestamp, want: time.Date(2024, 2, 29, 10, 11, 12, 0, time.UTC)},
		{name: "timestamp bad", in: "yesterday", typ: types.Timestamp, wantErr: true},
		{name: "json", in: map[string]any{"b": num("1"), "a": []any{true}}, typ: types.JSONType, want: types.JSON(`{"a":[true],"b":1}`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := canonicalValue(tt.in, tt.typ)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConverter(t *testing.T) {
	cols, err := parseColumnSpecs([]string{"id:bigint", "note:varchar(10):null"})
	require.NoError(t, err)
	names := []string{"id", "note"}

	out := make(chan []any, 4)
	in := "[1, \"a\"]\n\n{\"id\": 2}\n"
	require.NoError(t, rowsource.StreamJSON(context.Background(), strings.NewReader(in), names, converter(cols), out))
	close(out)
	var rows [][]any
	for r := range out {
		rows = append(rows, r)
	}
	assert.Equal(t, [][]any{{int64(1), "a"}, {int64(2), nil}}, rows)

	err = rowsource.StreamJSON(context.Background(), strings.NewReader(`["x", "a"]`), names, converter(cols), make(chan []any, 1))
	assert.ErrorContains(t, err, "record 1: column id: cannot use string as bigint")
}
