package client

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"chbridge/internal/config"
	"chbridge/internal/ddl"
	"chbridge/internal/mapping"
	"chbridge/internal/metrics"
	"chbridge/internal/storage"
	"chbridge/internal/types"
)

func newTestClient(f *fakeStore, opts ...Option) *Client {
	return New("ch", f.open, mapping.DefaultSession(), opts...)
}

func TestListSchemas(t *testing.T) {
	t.Parallel()

	f := newFakeStore()
	f.schemas = []string{"system", "sales", "analytics"}

	got, err := newTestClient(f).ListSchemas(context.Background())
	if err != nil {
		t.Fatalf("ListSchemas() error = %v", err)
	}
	if keys := sortedKeys(got); strings.Join(keys, ",") != "analytics,sales" {
		t.Fatalf("ListSchemas() = %v, want [analytics sales]", keys)
	}
	if _, opens, closes := f.snapshot(); opens != 1 || closes != 1 {
		t.Fatalf("opens/closes = %d/%d, want 1/1", opens, closes)
	}
}

func TestListSchemas_OpenError(t *testing.T) {
	t.Parallel()

	f := newFakeStore()
	f.openErr = storage.Wrap("connect", errors.New("connection refused"))

	if _, err := newTestClient(f).ListSchemas(context.Background()); !errors.Is(err, storage.ErrMetadataAccess) {
		t.Fatalf("ListSchemas() error = %v, want ErrMetadataAccess", err)
	}
}

func TestGetTables(t *testing.T) {
	t.Parallel()

	f := newFakeStore()
	f.tables = []storage.TableInfo{
		{Schema: "sales", Name: "order_items", Kind: storage.KindTable},
		{Schema: "sales", Name: "orderXitems", Kind: storage.KindTable},
		{Schema: "hr", Name: "staff", Kind: storage.KindView},
	}
	c := newTestClient(f)

	got, err := c.GetTables(context.Background(), "sales", "order_items")
	if err != nil {
		t.Fatalf("GetTables() error = %v", err)
	}
	if len(got) != 1 || got[0].Name != "order_items" {
		t.Fatalf("GetTables(sales, order_items) = %v, want only the literal match", got)
	}

	all, err := c.GetTables(context.Background(), "", "")
	if err != nil {
		t.Fatalf("GetTables() error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("GetTables(any) = %d tables, want 3", len(all))
	}
}

func TestDescribeTable(t *testing.T) {
	t.Parallel()

	f := newFakeStore()
	f.columns["sales.orders"] = []storage.ColumnInfo{
		{Name: "id", Descriptor: mapping.Descriptor{Code: mapping.TypeBigint, TypeName: "Int64"}},
		{Name: "payload", Descriptor: mapping.Descriptor{Code: mapping.TypeOther, TypeName: "JSON"}},
		{Name: "amount", Descriptor: mapping.Descriptor{Code: mapping.TypeDecimal, TypeName: "Decimal", ColumnSize: 50, DecimalDigits: 10}},
		{Name: "tags", Descriptor: mapping.Descriptor{Code: mapping.TypeOther, TypeName: "Array(String)"}},
		{Name: "uid", Descriptor: mapping.Descriptor{Code: mapping.TypeOther, TypeName: "UUID"}},
	}

	s := mapping.DefaultSession()
	s.DecimalMapping = mapping.DecimalAllowOverflow
	s.DecimalDefaultScale = 2
	s.ForcedVarchar = []string{"uuid"}
	c := New("ch", f.open, s)

	cols, err := c.DescribeTable(context.Background(), "sales", "orders")
	if err != nil {
		t.Fatalf("DescribeTable() error = %v", err)
	}

	want := []struct {
		name string
		typ  types.Type
	}{
		{"id", types.Bigint},
		{"payload", types.JSONType},
		{"amount", types.MustDecimal(38, 2)},
		{"uid", types.UnboundedVarchar},
	}
	if len(cols) != len(want) {
		t.Fatalf("DescribeTable() = %d columns, want %d (Array skipped)", len(cols), len(want))
	}
	for i, w := range want {
		if cols[i].Name != w.name || cols[i].Mapping.Type != w.typ {
			t.Fatalf("column %d = %s %v, want %s %v", i, cols[i].Name, cols[i].Mapping.Type, w.name, w.typ)
		}
	}
}

func TestDescribeTable_MissingTypeName(t *testing.T) {
	t.Parallel()

	f := newFakeStore()
	f.columns["s.t"] = []storage.ColumnInfo{{Name: "x", Descriptor: mapping.Descriptor{Code: mapping.TypeBigint}}}

	if _, err := newTestClient(f).DescribeTable(context.Background(), "s", "t"); err == nil {
		t.Fatal("DescribeTable() error = nil, want error for descriptor without type name")
	}
}

func TestDescribeSchema(t *testing.T) {
	t.Parallel()

	f := newFakeStore()
	f.tables = []storage.TableInfo{
		{Schema: "sales", Name: "orders", Kind: storage.KindTable},
		{Schema: "sales", Name: "items", Kind: storage.KindTable},
		{Schema: "hr", Name: "staff", Kind: storage.KindTable},
	}
	f.columns["sales.orders"] = []storage.ColumnInfo{{Name: "id", Descriptor: mapping.Descriptor{Code: mapping.TypeBigint, TypeName: "Int64"}}}
	f.columns["sales.items"] = []storage.ColumnInfo{{Name: "sku", Descriptor: mapping.Descriptor{Code: mapping.TypeVarchar, TypeName: "String"}}}

	got, err := newTestClient(f, WithParallelism(2)).DescribeSchema(context.Background(), "sales")
	if err != nil {
		t.Fatalf("DescribeSchema() error = %v", err)
	}
	if keys := sortedKeys(got); strings.Join(keys, ",") != "items,orders" {
		t.Fatalf("DescribeSchema() tables = %v, want [items orders]", keys)
	}
	if got["items"][0].Mapping.Type != types.UnboundedVarchar {
		t.Fatalf("items.sku = %v, want unbounded varchar", got["items"][0].Mapping.Type)
	}
	if _, opens, closes := f.snapshot(); opens != 3 || closes != 3 {
		t.Fatalf("opens/closes = %d/%d, want 3/3", opens, closes)
	}

	if _, err := newTestClient(f).DescribeSchema(context.Background(), " "); err == nil {
		t.Fatal("DescribeSchema(blank) error = nil")
	}
}

func TestCreateTable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cols []NewColumn
		want string
	}{
		{
			name: "primary key",
			cols: []NewColumn{
				{Name: "id", Type: types.Bigint, PrimaryKey: true},
				{Name: "note", Type: types.Varchar(100), Nullable: true},
			},
			want: "CREATE TABLE `sales`.`orders` (\n  `id` bigint NOT NULL,\n  `note` Nullable(tinytext),\n  PRIMARY KEY (`id`)\n) ENGINE = MergeTree;",
		},
		{
			name: "no key orders by tuple",
			cols: []NewColumn{
				{Name: "ts", Type: types.Timestamp},
				{Name: "ratio", Type: types.Real},
			},
			want: "CREATE TABLE `sales`.`orders` (\n  `ts` datetime NOT NULL,\n  `ratio` float NOT NULL\n) ENGINE = MergeTree ORDER BY tuple();",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFakeStore()
			err := newTestClient(f).CreateTable(context.Background(), ddl.QualifiedName{Schema: "sales", Table: "orders"}, tt.cols)
			if err != nil {
				t.Fatalf("CreateTable() error = %v", err)
			}
			execs, _, _ := f.snapshot()
			if len(execs) != 1 || execs[0] != tt.want {
				t.Fatalf("CreateTable() executed %q, want %q", execs, tt.want)
			}
		})
	}
}

func TestCreateTable_Unsupported(t *testing.T) {
	t.Parallel()

	f := newFakeStore()
	err := newTestClient(f).CreateTable(context.Background(), ddl.QualifiedName{Table: "t"},
		[]NewColumn{{Name: "at", Type: types.TimestampWithTimeZone}})
	if !errors.Is(err, mapping.ErrUnsupportedColumnType) {
		t.Fatalf("CreateTable() error = %v, want ErrUnsupportedColumnType", err)
	}
	if _, opens, _ := f.snapshot(); opens != 0 {
		t.Fatalf("opens = %d, want 0", opens)
	}
}

func TestRenameColumn(t *testing.T) {
	t.Parallel()

	tests := []struct {
		upper bool
		want  string
	}{
		{false, "ALTER TABLE `sales`.`orders` RENAME COLUMN `qty` TO `quantity`"},
		{true, "ALTER TABLE `sales`.`orders` RENAME COLUMN `qty` TO `QUANTITY`"},
	}
	for _, tt := range tests {
		f := newFakeStore()
		f.upper = tt.upper
		err := newTestClient(f).RenameColumn(context.Background(), ddl.QualifiedName{Schema: "sales", Table: "orders"}, "qty", "quantity")
		if err != nil {
			t.Fatalf("RenameColumn() error = %v", err)
		}
		if execs, _, _ := f.snapshot(); len(execs) != 1 || execs[0] != tt.want {
			t.Fatalf("RenameColumn(upper=%t) executed %q, want %q", tt.upper, execs, tt.want)
		}
	}
}

func TestRenameTable(t *testing.T) {
	t.Parallel()

	from := ddl.QualifiedName{Catalog: "sales", Table: "orders"}
	to := ddl.SchemaTableName{Schema: "archive", Table: "orders_2025"}

	f := newFakeStore()
	if err := newTestClient(f).RenameTable(context.Background(), from, to); err != nil {
		t.Fatalf("RenameTable() error = %v", err)
	}
	if execs, _, _ := f.snapshot(); len(execs) != 1 || execs[0] != "ALTER TABLE `sales`.`orders` RENAME TO `archive`.`orders_2025`" {
		t.Fatalf("RenameTable() executed %q", execs)
	}

	f = newFakeStore()
	f.upper = true
	if err := newTestClient(f).RenameTable(context.Background(), from, to); err != nil {
		t.Fatalf("RenameTable() error = %v", err)
	}
	if execs, _, _ := f.snapshot(); len(execs) != 1 || execs[0] != "ALTER TABLE `sales`.`orders` RENAME TO `ARCHIVE`.`ORDERS_2025`" {
		t.Fatalf("RenameTable(upper) executed %q", execs)
	}

	f = newFakeStore()
	err := newTestClient(f).RenameTable(context.Background(), ddl.QualifiedName{Catalog: "c", Schema: "s", Table: "t"}, to)
	if !errors.Is(err, ddl.ErrUnsupportedOperation) {
		t.Fatalf("RenameTable(schema set) error = %v, want ErrUnsupportedOperation", err)
	}
	if _, opens, _ := f.snapshot(); opens != 0 {
		t.Fatalf("opens = %d, want 0 for rejected rename", opens)
	}
}

func TestCopyTableSchemaAndDrop(t *testing.T) {
	t.Parallel()

	f := newFakeStore()
	c := newTestClient(f)
	src := ddl.QualifiedName{Schema: "sales", Table: "orders"}

	if err := c.CopyTableSchema(context.Background(), src, "orders_copy"); err != nil {
		t.Fatalf("CopyTableSchema() error = %v", err)
	}
	if err := c.CopyTableSchema(context.Background(), src, ""); err == nil {
		t.Fatal("CopyTableSchema(empty) error = nil")
	}
	if err := c.DropTable(context.Background(), ddl.QualifiedName{Schema: "sales", Table: "orders_copy"}); err != nil {
		t.Fatalf("DropTable() error = %v", err)
	}

	execs, _, _ := f.snapshot()
	want := []string{
		"CREATE TABLE `sales`.`orders_copy` LIKE `sales`.`orders`",
		"DROP TABLE `sales`.`orders_copy`",
	}
	if strings.Join(execs, "\n") != strings.Join(want, "\n") {
		t.Fatalf("executed %q, want %q", execs, want)
	}
}

func TestExecErrorWraps(t *testing.T) {
	t.Parallel()

	f := newFakeStore()
	f.execErr = errors.New("table is locked")
	err := newTestClient(f).DropTable(context.Background(), ddl.QualifiedName{Table: "t"})
	if !errors.Is(err, storage.ErrMetadataAccess) {
		t.Fatalf("DropTable() error = %v, want ErrMetadataAccess", err)
	}
}

func TestLimitPolicy(t *testing.T) {
	t.Parallel()

	c := newTestClient(newFakeStore())
	if !c.IsLimitGuaranteed() {
		t.Fatal("IsLimitGuaranteed() = false, want true")
	}
	if got := c.LimitFunction()("SELECT 1", 5); got != "SELECT 1 LIMIT 5" {
		t.Fatalf("LimitFunction()() = %q", got)
	}
}

func TestFromConfig(t *testing.T) {
	t.Parallel()

	f := newFakeStore()
	storage.Register("client-fake", func(ctx context.Context, cfg storage.Config) (storage.Conn, error) {
		return f.open(ctx)
	})

	cfg := config.Default()
	cfg.Catalog = "analytics"
	cfg.StorageKind = "client-fake"
	cfg.DecimalMapping = "allow_overflow"

	c, err := FromConfig(cfg)
	if err != nil {
		t.Fatalf("FromConfig() error = %v", err)
	}
	if c.Catalog() != "analytics" || c.Session().DecimalMapping != mapping.DecimalAllowOverflow {
		t.Fatalf("FromConfig() = catalog %q session %+v", c.Catalog(), c.Session())
	}
	if _, err := c.ListSchemas(context.Background()); err != nil {
		t.Fatalf("ListSchemas() via registry error = %v", err)
	}

	cfg.DecimalRoundingMode = "SIDEWAYS"
	if _, err := FromConfig(cfg); err == nil {
		t.Fatal("FromConfig(bad rounding) error = nil")
	}
}

// recorder captures metric calls; installed globally, so tests using it do
// not run in parallel.
type recorder struct {
	mu       sync.Mutex
	counters []string
}

func (r *recorder) IncCounter(name string, _ float64, l metrics.Labels) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters = append(r.counters, name+"|"+l["op"]+l["kind"]+"|"+l["status"])
}
func (r *recorder) ObserveHistogram(string, float64, metrics.Labels) {}
func (r *recorder) Flush() error                                    { return nil }

func TestMetricsRecorded(t *testing.T) {
	rec := &recorder{}
	metrics.SetBackend(rec)
	t.Cleanup(func() { metrics.SetBackend(noopBackend{}) })

	f := newFakeStore()
	f.columns["s.t"] = []storage.ColumnInfo{
		{Name: "id", Descriptor: mapping.Descriptor{Code: mapping.TypeBigint, TypeName: "Int64"}},
		{Name: "doc", Descriptor: mapping.Descriptor{Code: mapping.TypeOther, TypeName: "json"}},
		{Name: "m", Descriptor: mapping.Descriptor{Code: mapping.TypeOther, TypeName: "Map(String, UInt8)"}},
	}
	c := newTestClient(f)
	if _, err := c.DescribeTable(context.Background(), "s", "t"); err != nil {
		t.Fatalf("DescribeTable() error = %v", err)
	}
	_ = c.RenameTable(context.Background(), ddl.QualifiedName{Catalog: "c", Schema: "s", Table: "t"}, ddl.SchemaTableName{Table: "u"})

	want := []string{
		metrics.ColumnsTotal + "|mapped|",
		metrics.ColumnsTotal + "|json|",
		metrics.ColumnsTotal + "|unsupported|",
		metrics.StepTotal + "|describe_table|success",
		metrics.StepTotal + "|rename_table|failure",
	}
	if strings.Join(rec.counters, "\n") != strings.Join(want, "\n") {
		t.Fatalf("counters =\n%s\nwant\n%s", strings.Join(rec.counters, "\n"), strings.Join(want, "\n"))
	}
}

type noopBackend struct{}

func (noopBackend) IncCounter(string, float64, metrics.Labels)       {}
func (noopBackend) ObserveHistogram(string, float64, metrics.Labels) {}
func (noopBackend) Flush() error                                     { return nil }
